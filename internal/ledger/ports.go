// Package ledger defines the port for the external backup ledger that
// one-off transactions are mirrored to.
package ledger

import (
	"context"

	"cashflow/internal/core"
)

// Writer appends one transaction to the backup ledger and returns a
// reference to where it landed.
type Writer interface {
	Append(ctx context.Context, tx core.LocalTransaction) (string, error)
}
