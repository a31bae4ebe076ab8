// Package projection implements the balance projection engine: recurrence
// expansion over a window followed by a single forward time-sweep.
//
// Each granularity (daily, weekly, monthly, yearly) has its own expansion
// rule encapsulating the calendar arithmetic for its occurrence dates.
package projection

import (
	"fmt"

	"cashflow/internal/core"
)

// Window is the projection window. Both ends are inclusive in the sweep:
// Start <= d <= End. Start is "today" at UTC midnight, injected by the
// caller so the engine never reads a clock.
type Window struct {
	Start core.Date
	End   core.Date
}

// NewWindow builds a window spanning horizonMonths calendar months from
// today. Month-length variance is preserved; the horizon is not a fixed
// day count.
func NewWindow(today core.Date, horizonMonths int) Window {
	return Window{Start: today, End: today.AddMonths(horizonMonths)}
}

// Options control the variant behaviors the engine supports.
type Options struct {
	// ApplyIncomeSign credits recurring items flagged as income instead
	// of debiting them. The canonical behavior (false) always debits: a
	// schedule's realized polarity reduces the balance unless the
	// caller's data marks the item as a credit at the amount level.
	ApplyIncomeSign bool
}

// occurrenceRule is the strategy interface for one granularity. A rule
// yields the ordered occurrence dates inside the window, anchored to the
// item's anchor date.
type occurrenceRule interface {
	occurrences(item core.RecurringItem, w Window) []core.Date
}

// expansionRules maps granularities to their rules. Unknown granularities
// have no entry and the item is skipped by the caller.
var expansionRules = map[core.Granularity]occurrenceRule{
	core.Daily:   dailyRule{},
	core.Weekly:  weeklyRule{},
	core.Monthly: monthlyRule{},
	core.Yearly:  yearlyRule{},
}

// Expand generates the dated, signed transactions one recurring item
// contributes to the window. Occurrences whose date already carries an
// upstream posting are suppressed so they are not double-counted.
//
// An interval below 1 is invalid input and aborts the projection. An
// unrecognized granularity returns core.ErrUnknownGranularity; the caller
// skips the item (accepted policy) after logging it.
func Expand(item core.RecurringItem, w Window, opts Options) ([]core.Transaction, error) {
	if item.Interval < 1 {
		return nil, fmt.Errorf("recurring item %d (%s): %w", item.ID, item.Payee, core.ErrInvalidInterval)
	}

	rule, ok := expansionRules[item.Granularity]
	if !ok {
		return nil, fmt.Errorf("recurring item %d (%s): %w %q", item.ID, item.Payee, core.ErrUnknownGranularity, item.Granularity)
	}

	amount := item.Amount.Neg()
	if opts.ApplyIncomeSign && item.IsIncome {
		amount = item.Amount
	}

	description := item.Payee
	if description == "" {
		description = "Recurring Transaction"
	}

	var out []core.Transaction
	for _, d := range rule.occurrences(item, w) {
		if item.Posted[d.String()] > 0 {
			continue
		}
		out = append(out, core.Transaction{
			Date:        d,
			Amount:      amount,
			Description: description,
			IsIncome:    item.IsIncome,
			Source:      core.SourceRecurring,
		})
	}
	return out, nil
}

// cutoff returns the inclusive upper bound for occurrences: the window end,
// tightened by the item's end date when one is set.
func cutoff(item core.RecurringItem, w Window) core.Date {
	if !item.EndDate.IsZero() && item.EndDate.Before(w.End.Time) {
		return item.EndDate
	}
	return w.End
}

type dailyRule struct{}

// occurrences are every Interval days counted from the anchor. The
// effective start is the later of anchor and window start, advanced to the
// next date congruent to the anchor mod Interval.
func (dailyRule) occurrences(item core.RecurringItem, w Window) []core.Date {
	return stepOccurrences(item, w, item.Interval)
}

type weeklyRule struct{}

// occurrences fall on the anchor's weekday, every Interval weeks counted
// from the anchor.
func (weeklyRule) occurrences(item core.RecurringItem, w Window) []core.Date {
	return stepOccurrences(item, w, 7*item.Interval)
}

// stepOccurrences generates dates at a fixed day step from the anchor,
// clamped into the window. Congruence is computed against the anchor, never
// the clamped start.
func stepOccurrences(item core.RecurringItem, w Window, stepDays int) []core.Date {
	end := cutoff(item, w)
	d := core.Later(item.AnchorDate, w.Start)
	if rem := d.DaysSince(item.AnchorDate) % stepDays; rem != 0 {
		d = d.AddDays(stepDays - rem)
	}

	var out []core.Date
	for ; !d.After(end.Time); d = d.AddDays(stepDays) {
		out = append(out, d)
	}
	return out
}

type monthlyRule struct{}

// occurrences fire in months congruent to the anchor's month mod Interval,
// on the anchor's day-of-month. A nominal day of 29 or above clamps to the
// last day of shorter months. The semimonthly cadence adds a second
// day-of-month offset fourteen days from the anchor day and selects the
// earliest and latest qualifying day per month.
func (monthlyRule) occurrences(item core.RecurringItem, w Window) []core.Date {
	end := cutoff(item, w)
	floor := core.Later(item.AnchorDate, w.Start)

	anchorIdx := item.AnchorDate.MonthIndex()
	idx := floor.MonthIndex()
	if rem := (idx - anchorIdx) % item.Interval; rem != 0 {
		idx += item.Interval - rem
	}

	var out []core.Date
	for ; ; idx += item.Interval {
		year, month := idx/12, idx%12+1
		if core.NewDate(year, month, 1).After(end.Time) {
			break
		}
		for _, day := range monthDays(item, year, month) {
			d := core.NewDate(year, month, day)
			if d.Before(floor.Time) || d.After(end.Time) {
				continue
			}
			out = append(out, d)
		}
	}
	return out
}

// monthDays returns the qualifying day(s) of one month, ascending.
func monthDays(item core.RecurringItem, year, month int) []int {
	last := core.NewDate(year, month, 1).LastDayOfMonth()
	nominal := item.AnchorDate.Day()

	// Nominal days of 29+ clamp to the end of shorter months; exact day
	// otherwise.
	day := nominal
	if nominal >= 29 && nominal > last {
		day = last
	}

	if item.Cadence != core.CadenceSemiMonthly {
		return []int{day}
	}

	second := nominal + 14
	if nominal >= 15 {
		second = min(15, nominal-14)
	}

	lo, hi := min(day, second), max(day, second)
	if lo == hi {
		return []int{lo}
	}
	return []int{lo, hi}
}

type yearlyRule struct{}

// occurrences fire on the anchor's month and day in years congruent to the
// anchor's year mod Interval, with the same short-month clamping as the
// monthly rule (a Feb 29 anchor fires on Feb 28 in non-leap years).
func (yearlyRule) occurrences(item core.RecurringItem, w Window) []core.Date {
	end := cutoff(item, w)
	floor := core.Later(item.AnchorDate, w.Start)

	month := int(item.AnchorDate.Month())
	nominal := item.AnchorDate.Day()

	year := floor.Year()
	if rem := (year - item.AnchorDate.Year()) % item.Interval; rem != 0 {
		year += item.Interval - rem
	}

	var out []core.Date
	for ; year <= end.Year(); year += item.Interval {
		last := core.NewDate(year, month, 1).LastDayOfMonth()
		day := nominal
		if nominal >= 29 && nominal > last {
			day = last
		}
		d := core.NewDate(year, month, day)
		if d.Before(floor.Time) || d.After(end.Time) {
			continue
		}
		out = append(out, d)
	}
	return out
}
