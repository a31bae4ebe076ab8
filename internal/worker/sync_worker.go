// Package worker backs up one-off transactions from SQLite to the
// external ledger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
	"cashflow/internal/ledger"
	"cashflow/internal/storage"
)

// SyncWorker consumes ledger sync messages and appends the referenced
// transactions to the backup ledger.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	ledger    ledger.Writer
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, ledger ledger.Writer, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single ledger sync message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	tx, err := w.storage.GetTransaction(ctx, msg.ID)
	if err != nil {
		// Deleted before the message arrived; nothing to back up.
		if errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "Transaction gone before sync, dropping message", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	return w.backup(ctx, msg.ID, msg.Version, tx)
}

// ProcessPending backs up transactions still marked pending. This is
// the recovery path for lost AMQP messages.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		tx, err := w.storage.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction", "id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			continue
		}

		if err := w.backup(ctx, p.ID, p.Version, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to back up transaction", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck drains the pending queue at worker startup to recover
// from missed messages or downtime. It uses a larger batch than the
// steady-state recovery pass.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	synced, failed := 0, 0
	for _, p := range pending {
		tx, err := w.storage.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction for startup sync",
				"id", p.ID, "error", err)
			if err := w.storage.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "id", p.ID, "error", err)
			}
			failed++
			continue
		}

		if err := w.backup(ctx, p.ID, p.Version, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to back up transaction during startup",
				"id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)

	return nil
}

func (w *SyncWorker) backup(ctx context.Context, id, version int64, tx core.LocalTransaction) error {
	ref, err := w.ledger.Append(ctx, tx)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to ledger: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id, version); err != nil {
		// The append worked; the pending flag just sticks around for a
		// redundant retry.
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Successfully backed up transaction",
		"id", id,
		"ledger_ref", ref,
		"description", tx.Description,
		"amount", tx.Amount.String())

	return nil
}
