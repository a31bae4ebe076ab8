// Package memory provides an in-memory upstream feed seeded with fixture
// data. It backs local development and tests where no Lunch Money token
// is available.
package memory

import (
	"context"
	"sync"

	"cashflow/internal/core"
	"cashflow/internal/upstream"
)

type Feed struct {
	mu       sync.RWMutex
	accounts []core.Account
	items    []core.RecurringItem
}

var _ upstream.Feed = (*Feed)(nil)

// NewFeed returns a feed holding the given fixtures.
func NewFeed(accounts []core.Account, items []core.RecurringItem) *Feed {
	return &Feed{accounts: accounts, items: items}
}

// NewSeededFeed returns a feed with a small default dataset, enough to
// exercise a projection end to end.
func NewSeededFeed(today core.Date) *Feed {
	firstOfMonth := core.NewDate(today.Year(), int(today.Month()), 1)
	return NewFeed(
		[]core.Account{
			{ID: 1, Name: "Checking", Balance: core.MustAmount("2500.00"), Source: core.SourceAsset},
			{ID: 2, Name: "Savings", Balance: core.MustAmount("10000.00"), Source: core.SourceAsset},
		},
		[]core.RecurringItem{
			{
				ID:          1,
				AccountID:   1,
				Payee:       "Rent",
				AnchorDate:  firstOfMonth,
				Granularity: core.Monthly,
				Interval:    1,
				Amount:      core.MustAmount("1200.00"),
			},
			{
				ID:          2,
				AccountID:   1,
				Payee:       "Salary",
				AnchorDate:  firstOfMonth.AddDays(14),
				Granularity: core.Monthly,
				Interval:    1,
				Amount:      core.MustAmount("3000.00"),
				IsIncome:    true,
			},
			{
				ID:          3,
				AccountID:   1,
				Payee:       "Streaming",
				AnchorDate:  firstOfMonth.AddDays(9),
				Granularity: core.Monthly,
				Interval:    1,
				Amount:      core.MustAmount("15.99"),
			},
		},
	)
}

func (f *Feed) ListAccounts(_ context.Context) ([]core.Account, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.Account, len(f.accounts))
	copy(out, f.accounts)
	return out, nil
}

// ListRecurringItems returns every item whose schedule could overlap the
// range. Items ending before the range start are excluded; anchor dates
// after the range end are not, since the expander handles them.
func (f *Feed) ListRecurringItems(_ context.Context, start, _ core.Date) ([]core.RecurringItem, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]core.RecurringItem, 0, len(f.items))
	for _, item := range f.items {
		if !item.EndDate.IsZero() && item.EndDate.Before(start.Time) {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}
