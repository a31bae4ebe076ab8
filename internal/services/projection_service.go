// Package services wires the projection engine, the upstream feed, local
// storage, and the backup queue into the operations the handlers call.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"cashflow/internal/cache"
	"cashflow/internal/core"
	"cashflow/internal/projection"
	"cashflow/internal/upstream"
)

// OneOffReader lists locally-stored one-off transactions for an account.
type OneOffReader interface {
	ListTransactions(ctx context.Context, accountID core.AccountID) ([]core.LocalTransaction, error)
}

// ProjectionService fetches upstream data, merges local one-offs, and
// runs projections. Results are cached per account and horizon; any
// local write bumps a generation counter that invalidates every cached
// snapshot at once.
type ProjectionService struct {
	feed           upstream.Feed
	oneOffs        OneOffReader
	snapshots      *cache.LRU[*projection.Result]
	defaultHorizon int
	opts           projection.Options
	now            func() core.Date
	generation     atomic.Int64
}

func NewProjectionService(
	feed upstream.Feed,
	oneOffs OneOffReader,
	defaultHorizon int,
	snapshotTTL time.Duration,
	snapshotEntries int,
	opts projection.Options,
) *ProjectionService {
	return &ProjectionService{
		feed:           feed,
		oneOffs:        oneOffs,
		snapshots:      cache.NewLRU[*projection.Result](snapshotEntries, snapshotTTL),
		defaultHorizon: defaultHorizon,
		opts:           opts,
		now:            func() core.Date { return core.DateOf(time.Now()) },
	}
}

// WithClock overrides the clock. Tests use this to pin today.
func (s *ProjectionService) WithClock(now func() core.Date) *ProjectionService {
	s.now = now
	return s
}

// ListAccounts returns the combined upstream account list.
func (s *ProjectionService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.feed.ListAccounts(ctx)
}

// Invalidate discards every cached snapshot. Called after any local
// transaction write so projections pick up the change immediately.
func (s *ProjectionService) Invalidate() {
	s.generation.Add(1)
}

// Project computes the balance projection for one account. A horizon of
// 0 uses the configured default. An unknown account yields (nil, nil).
func (s *ProjectionService) Project(ctx context.Context, accountID core.AccountID, horizonMonths int) (*projection.Result, error) {
	if horizonMonths == 0 {
		horizonMonths = s.defaultHorizon
	}
	if horizonMonths < 1 {
		return nil, fmt.Errorf("horizon must be at least 1 month, got %d", horizonMonths)
	}

	today := s.now()
	key := fmt.Sprintf("%d:%d:%s:%d", accountID, horizonMonths, today, s.generation.Load())
	if cached, ok := s.snapshots.Get(key); ok {
		slog.DebugContext(ctx, "Projection snapshot cache hit",
			"account_id", accountID, "horizon_months", horizonMonths)
		return cached, nil
	}

	w := projection.NewWindow(today, horizonMonths)

	var (
		accounts []core.Account
		items    []core.RecurringItem
		local    []core.LocalTransaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = s.feed.ListAccounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.feed.ListRecurringItems(gctx, w.Start, w.End)
		return err
	})
	g.Go(func() error {
		var err error
		local, err = s.oneOffs.ListTransactions(gctx, accountID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gather projection inputs: %w", err)
	}

	result, err := projection.Project(accounts, items, accountID, horizonMonths, local, today, s.opts)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	s.snapshots.Set(key, result)
	slog.InfoContext(ctx, "Projection computed",
		"account_id", accountID,
		"horizon_months", horizonMonths,
		"key_events", len(result.KeyEvents),
		"alerts", len(result.NegativeBalanceAlerts))

	return result, nil
}
