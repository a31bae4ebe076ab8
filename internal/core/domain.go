package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Daily   Granularity = "day"
	Weekly  Granularity = "week"
	Monthly Granularity = "month"
	Yearly  Granularity = "year"
)

const (
	// CadenceStandard is the plain interval-driven schedule.
	CadenceStandard Cadence = "standard"
	// CadenceSemiMonthly fires twice per month: on the anchor day and a
	// second day offset by fourteen days.
	CadenceSemiMonthly Cadence = "semimonthly"
)

const (
	SourceAsset AccountSource = "asset"
	SourcePlaid AccountSource = "plaid"
)

const (
	SourceRecurring TransactionSource = "recurring"
	SourceOneOff    TransactionSource = "one-off"
)

type (
	Granularity       string
	Cadence           string
	AccountSource     string
	TransactionSource string

	// AccountID is the common identifier type both upstream source systems
	// (asset accounts and externally-linked accounts) are coerced to.
	AccountID int64

	// Date is a calendar date at day granularity, always UTC midnight.
	Date struct {
		time.Time
	}

	// Account is an immutable snapshot of one account for the duration of
	// a projection.
	Account struct {
		ID      AccountID
		Name    string
		Balance decimal.Decimal
		Source  AccountSource
	}

	// RecurringItem describes one recurring payment or income schedule.
	// AnchorDate is the canonical billing date all periodic math is
	// anchored to; it may lie in the past, outside any projection window.
	RecurringItem struct {
		ID          int64
		AccountID   AccountID
		Payee       string
		AnchorDate  Date
		Granularity Granularity
		Interval    int
		Cadence     Cadence
		Amount      decimal.Decimal // unsigned magnitude
		IsIncome    bool
		EndDate     Date // zero = open-ended; inclusive cutoff otherwise
		// Posted maps occurrence dates (YYYY-MM-DD) to the number of
		// transactions the upstream system has already realized on that
		// date. Dates with at least one posting are suppressed during
		// expansion so they are not double-counted.
		Posted map[string]int
	}

	// Transaction is a flattened, dated ledger entry produced by the
	// expander or adapted from a one-off entry. Negative amounts are
	// debits.
	Transaction struct {
		Date        Date              `json:"date"`
		Amount      decimal.Decimal   `json:"amount"`
		Description string            `json:"description"`
		IsIncome    bool              `json:"is_income"`
		Source      TransactionSource `json:"source,omitempty"`
	}

	// LocalTransaction is a user-entered one-off transaction stored
	// outside the upstream system and merged into projections.
	LocalTransaction struct {
		ID          int64           `json:"id"`
		AccountID   AccountID       `json:"account_id"`
		Date        Date            `json:"date"`
		Amount      decimal.Decimal `json:"amount"` // signed
		Description string          `json:"description"`
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidInterval    = errors.New("interval must be at least 1")
	ErrUnknownGranularity = errors.New("unknown granularity")
	ErrEmptyDescription   = errors.New("empty description")
)

// dateLayout is the only accepted wire format for dates. Serializing at
// day granularity in UTC avoids timezone-induced off-by-one-day errors.
const dateLayout = "2006-01-02"

// NewDate creates a Date at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an arbitrary instant to its UTC calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string. Any other shape is a fatal input
// error for the record carrying it.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON serializes as a quoted YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON parses a quoted YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDate(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths returns the date n calendar months later. Overflowing days
// normalize forward (Jan 31 + 1 month = Mar 2/3), matching the horizon
// arithmetic of the upstream feeds.
func (d Date) AddMonths(n int) Date {
	return Date{Time: d.Time.AddDate(0, n, 0)}
}

// DaysSince returns the whole days elapsed from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.Time.Sub(other.Time).Hours() / 24)
}

// MonthIndex returns a linear month counter usable for interval congruence.
func (d Date) MonthIndex() int {
	return d.Year()*12 + int(d.Month()) - 1
}

// LastDayOfMonth returns the number of days in d's month.
func (d Date) LastDayOfMonth() int {
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// SameMonth reports whether both dates fall in the same calendar month of
// the same year.
func (d Date) SameMonth(other Date) bool {
	return d.Year() == other.Year() && d.Month() == other.Month()
}

// Later returns the later of two dates.
func Later(a, b Date) Date {
	if a.After(b.Time) {
		return a
	}
	return b
}

// ResolveCadence maps the upstream free-form cadence label to an
// enumerated modifier. Only the literal "twice a month" changes behavior;
// everything else is the standard interval schedule. The literal is
// matched here, once, at adaptation time and never inside the expansion
// algorithm.
func ResolveCadence(label string) Cadence {
	if strings.EqualFold(strings.TrimSpace(label), "twice a month") {
		return CadenceSemiMonthly
	}
	return CadenceStandard
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrInvalidDate)
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("account name cannot be empty")
	}
	switch a.Source {
	case SourceAsset, SourcePlaid:
	default:
		return fmt.Errorf("unknown account source %q", a.Source)
	}
	return nil
}

func (ri RecurringItem) Validate() error {
	if err := ri.AnchorDate.Validate(); err != nil {
		return fmt.Errorf("invalid anchor date: %w", err)
	}
	if ri.Interval < 1 {
		return ErrInvalidInterval
	}
	switch ri.Granularity {
	case Daily, Weekly, Monthly, Yearly:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownGranularity, ri.Granularity)
	}
	if ri.Amount.IsNegative() {
		return fmt.Errorf("%w: magnitude must be unsigned", ErrInvalidAmount)
	}
	if !ri.EndDate.IsZero() && ri.EndDate.Before(ri.AnchorDate.Time) {
		return errors.New("end date must not precede anchor date")
	}
	return nil
}

func (lt LocalTransaction) Validate() error {
	if err := lt.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(lt.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(lt.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if lt.Amount.IsZero() {
		return ErrInvalidAmount
	}
	return nil
}
