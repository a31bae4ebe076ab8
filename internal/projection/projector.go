package projection

import (
	"errors"
	"fmt"
	"log/slog"

	"cashflow/internal/core"
)

// Project runs one full projection: it expands every recurring item bound
// to the selected account over the window, merges the account's one-off
// transactions, and sweeps the result.
//
// The whole computation is a pure function of its inputs; today is
// supplied by the caller. A selected account that cannot be found is a
// normal empty state, not an error: the result is nil with a nil error.
func Project(
	accounts []core.Account,
	items []core.RecurringItem,
	selected core.AccountID,
	horizonMonths int,
	oneOffs []core.LocalTransaction,
	today core.Date,
	opts Options,
) (*Result, error) {
	if horizonMonths < 1 {
		return nil, fmt.Errorf("horizon must be at least 1 month, got %d", horizonMonths)
	}

	account, found := findAccount(accounts, selected)
	if !found {
		return nil, nil
	}

	w := NewWindow(today, horizonMonths)

	var txns []core.Transaction
	for _, item := range items {
		if item.AccountID != selected {
			continue
		}
		expanded, err := Expand(item, w, opts)
		if err != nil {
			// Unrecognized schedules are skipped, not fatal; everything
			// else would corrupt the balance curve and aborts.
			if errors.Is(err, core.ErrUnknownGranularity) {
				slog.Warn("Skipping recurring item with unrecognized schedule",
					"item_id", item.ID,
					"payee", item.Payee,
					"granularity", string(item.Granularity))
				continue
			}
			return nil, err
		}
		txns = append(txns, expanded...)
	}

	for _, lt := range oneOffs {
		if lt.AccountID != selected {
			continue
		}
		txns = append(txns, core.Transaction{
			Date:        lt.Date,
			Amount:      lt.Amount,
			Description: lt.Description,
			IsIncome:    lt.Amount.Sign() > 0,
			Source:      core.SourceOneOff,
		})
	}

	result := Sweep(account.Balance, w, txns)
	return &result, nil
}

func findAccount(accounts []core.Account, id core.AccountID) (core.Account, bool) {
	for _, a := range accounts {
		if a.ID == id {
			return a, true
		}
	}
	return core.Account{}, false
}
