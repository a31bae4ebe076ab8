// Package storage persists locally-entered one-off transactions in
// SQLite. Amounts are stored as decimal strings, never floats.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cashflow/internal/core"

	_ "modernc.org/sqlite"
)

// Sync statuses for the ledger backup queue.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

var ErrNotFound = errors.New("transaction not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateTransaction inserts a one-off transaction and returns it with
// its assigned id. New rows enter the sync queue as pending.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.LocalTransaction) (core.LocalTransaction, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (account_id, date, amount, description) VALUES (?, ?, ?, ?)`,
		int64(tx.AccountID), tx.Date.String(), tx.Amount.String(), tx.Description)
	if err != nil {
		return core.LocalTransaction{}, fmt.Errorf("create transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.LocalTransaction{}, fmt.Errorf("last insert id: %w", err)
	}
	tx.ID = id

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"account_id", tx.AccountID,
		"date", tx.Date.String(),
		"amount", tx.Amount.String())

	return tx, nil
}

// ListTransactions returns every stored transaction, oldest date first.
// Pass accountID 0 to list across all accounts.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, accountID core.AccountID) ([]core.LocalTransaction, error) {
	query := `SELECT id, account_id, date, amount, description FROM transactions ORDER BY date, id`
	args := []interface{}{}
	if accountID != 0 {
		query = `SELECT id, account_id, date, amount, description FROM transactions WHERE account_id = ? ORDER BY date, id`
		args = append(args, int64(accountID))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.LocalTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.LocalTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, account_id, date, amount, description FROM transactions WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LocalTransaction{}, ErrNotFound
	}
	return tx, err
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Transaction deleted", "id", id)
	return nil
}

// PendingSyncTransaction is the minimal row needed for sync queue
// messages.
type PendingSyncTransaction struct {
	ID        int64
	Version   int64
	CreatedAt time.Time
}

// GetPendingSyncTransactions returns transactions waiting for ledger
// backup, oldest first.
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]PendingSyncTransaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version, created_at FROM transactions WHERE sync_status = ? ORDER BY created_at LIMIT ?`,
		SyncPending, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync transactions: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncTransaction
	for rows.Next() {
		var p PendingSyncTransaction
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync transaction: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetVersion returns the current version counter for a transaction.
func (r *SQLiteRepository) GetVersion(ctx context.Context, id int64) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM transactions WHERE id = ?`, id).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}

// MarkSynced marks a transaction as successfully backed up, but only if
// the version still matches the message that was processed. A stale
// message leaves the row pending for the next attempt.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, version int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND version = ?`,
		SyncDone, id, version)
	if err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}

	slog.InfoContext(ctx, "Transaction marked as synced", "id", id, "version", version)
	return nil
}

// MarkSyncError marks a transaction as having failed its backup.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		SyncError, id)
	if err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}

	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (core.LocalTransaction, error) {
	var (
		tx        core.LocalTransaction
		accountID int64
		dateStr   string
		amountStr string
	)
	if err := row.Scan(&tx.ID, &accountID, &dateStr, &amountStr, &tx.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.LocalTransaction{}, err
		}
		return core.LocalTransaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	date, err := core.ParseDate(dateStr)
	if err != nil {
		return core.LocalTransaction{}, fmt.Errorf("transaction %d: %w", tx.ID, err)
	}
	amount, err := core.ParseAmount(amountStr)
	if err != nil {
		return core.LocalTransaction{}, fmt.Errorf("transaction %d: %w", tx.ID, err)
	}

	tx.AccountID = core.AccountID(accountID)
	tx.Date = date
	tx.Amount = amount
	return tx, nil
}
