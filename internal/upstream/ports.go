// Package upstream defines the ports for the two external data feeds the
// projection engine consumes: the account list and the recurring-item
// list. The core never branches on which source system a record came
// from; adapters coerce everything to the domain types first.
package upstream

import (
	"context"

	"cashflow/internal/core"
)

type (
	// AccountReader lists the combined account set across both source
	// systems (asset accounts and externally-linked accounts).
	AccountReader interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
	}

	// RecurringItemReader lists recurring items overlapping the given
	// date range.
	RecurringItemReader interface {
		ListRecurringItems(ctx context.Context, start, end core.Date) ([]core.RecurringItem, error)
	}

	// Feed bundles both readers; every upstream backend implements it.
	Feed interface {
		AccountReader
		RecurringItemReader
	}
)
