package projection

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"cashflow/internal/core"
)

type (
	// DailyBalance is one point on the projected balance curve. Every day
	// in the window gets a point, whether or not anything happened.
	DailyBalance struct {
		Date    core.Date       `json:"date"`
		Balance decimal.Decimal `json:"balance"`
	}

	// KeyEvent is one chronological ledger entry: a transaction, the
	// starting-balance marker, or a monthly subtotal. For subtotals,
	// Amount carries the month's net change and the credit/debit fields
	// are populated; Balance is the balance as of the event.
	KeyEvent struct {
		Date          core.Date       `json:"date"`
		Description   string          `json:"description"`
		Amount        decimal.Decimal `json:"amount"`
		Balance       decimal.Decimal `json:"balance"`
		IsIncome      bool            `json:"is_income,omitempty"`
		IsSubtotal    bool            `json:"is_subtotal"`
		MonthlyCredit decimal.Decimal `json:"monthly_credit"`
		MonthlyDebit  decimal.Decimal `json:"monthly_debit"`
	}

	// NegativeBalanceAlert flags a day that had at least one transaction
	// and ended with a negative balance. At most one alert exists per
	// calendar day, attached to the day's final transaction.
	NegativeBalanceAlert struct {
		Date        core.Date        `json:"date"`
		Balance     decimal.Decimal  `json:"balance"`
		Transaction core.Transaction `json:"transaction"`
	}

	// Result is the full projection output.
	Result struct {
		DailyBalances         []DailyBalance         `json:"dailyBalances"`
		KeyEvents             []KeyEvent             `json:"keyEvents"`
		NegativeBalanceAlerts []NegativeBalanceAlert `json:"negativeBalanceAlerts"`
	}
)

// Sweep walks the window one calendar day at a time, accumulating balance
// from the flattened transaction list and emitting the ledger of key
// events, the daily balance curve, and negative-balance alerts.
//
// Transactions are stably sorted by date: ties keep their input order,
// which is the concatenation of recurring expansions in item order
// followed by one-off entries. The very first event is always the
// zero-amount Starting Balance marker dated at the window start; the start
// day's own transactions are applied after it.
func Sweep(startingBalance decimal.Decimal, w Window, txns []core.Transaction) Result {
	sorted := make([]core.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.Date.Before(w.Start.Time) || t.Date.After(w.End.Time) {
			continue
		}
		sorted = append(sorted, t)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date.Time)
	})

	balance := startingBalance
	events := []KeyEvent{{
		Date:        w.Start,
		Description: "Starting Balance",
		Amount:      decimal.Zero,
		Balance:     balance,
	}}

	var (
		daily  []DailyBalance
		alerts []NegativeBalanceAlert
	)

	credit, debit := decimal.Zero, decimal.Zero
	trackedMonth := w.Start
	idx := 0

	for d := w.Start; !d.After(w.End.Time); d = d.AddDays(1) {
		// Close out the previous month before applying this day.
		if !d.SameMonth(trackedMonth) {
			events = append(events, subtotalEvent(d.AddDays(-1), credit, debit, balance))
			credit, debit = decimal.Zero, decimal.Zero
			trackedMonth = d
		}

		dayCount := 0
		var lastApplied core.Transaction
		for idx < len(sorted) && sorted[idx].Date.Equal(d.Time) {
			t := sorted[idx]
			idx++

			balance = balance.Add(t.Amount)
			if t.Amount.Sign() > 0 {
				credit = credit.Add(t.Amount)
			} else {
				debit = debit.Add(t.Amount)
			}
			events = append(events, KeyEvent{
				Date:        t.Date,
				Description: t.Description,
				Amount:      t.Amount,
				Balance:     balance,
				IsIncome:    t.IsIncome,
			})
			lastApplied = t
			dayCount++
		}

		if balance.Sign() < 0 && dayCount > 0 {
			alerts = append(alerts, NegativeBalanceAlert{
				Date:        d,
				Balance:     balance,
				Transaction: lastApplied,
			})
		}

		daily = append(daily, DailyBalance{Date: d, Balance: balance})
	}

	// The final partial month only gets a subtotal when something moved.
	if !credit.Add(debit).IsZero() {
		events = append(events, subtotalEvent(w.End, credit, debit, balance))
	}

	return Result{
		DailyBalances:         daily,
		KeyEvents:             events,
		NegativeBalanceAlerts: alerts,
	}
}

func subtotalEvent(date core.Date, credit, debit, balance decimal.Decimal) KeyEvent {
	return KeyEvent{
		Date:          date,
		Description:   fmt.Sprintf("Monthly Subtotal (%s)", date.Format("January 2006")),
		Amount:        credit.Add(debit),
		Balance:       balance,
		IsSubtotal:    true,
		MonthlyCredit: credit,
		MonthlyDebit:  debit,
	}
}
