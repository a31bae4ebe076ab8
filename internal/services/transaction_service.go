package services

import (
	"context"
	"fmt"
	"log/slog"

	"cashflow/internal/amqp"
	"cashflow/internal/core"
	"cashflow/internal/storage"
)

// TransactionService orchestrates one-off transaction writes across
// SQLite and the AMQP backup queue. SQLite is the source of truth; the
// ledger backup is best effort and never fails a request.
type TransactionService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewTransactionService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *TransactionService {
	return &TransactionService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreateTransaction validates and saves a transaction locally, then
// publishes a ledger sync message.
func (s *TransactionService) CreateTransaction(ctx context.Context, tx core.LocalTransaction) (core.LocalTransaction, error) {
	if err := tx.Validate(); err != nil {
		return core.LocalTransaction{}, err
	}

	created, err := s.storage.CreateTransaction(ctx, tx)
	if err != nil {
		return core.LocalTransaction{}, fmt.Errorf("save transaction: %w", err)
	}

	if err := s.publishSyncMessage(ctx, created.ID, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger sync message",
			"id", created.ID, "error", err)
		// The transaction is saved locally; the queue retries later.
	}

	return created, nil
}

// ListTransactions returns stored transactions, optionally scoped to one
// account (pass 0 for all).
func (s *TransactionService) ListTransactions(ctx context.Context, accountID core.AccountID) ([]core.LocalTransaction, error) {
	return s.storage.ListTransactions(ctx, accountID)
}

// DeleteTransaction removes a transaction.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) error {
	return s.storage.DeleteTransaction(ctx, id)
}

func (s *TransactionService) publishSyncMessage(ctx context.Context, id, version int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}
	return s.amqpClient.PublishLedgerSync(ctx, id, version)
}

// Close closes both storage and AMQP connections.
func (s *TransactionService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}
	return nil
}
