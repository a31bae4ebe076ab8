package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"cashflow/internal/core"
	"cashflow/internal/projection"
	"cashflow/internal/upstream/memory"
)

type countingFeed struct {
	*memory.Feed
	accountCalls atomic.Int64
}

func (f *countingFeed) ListAccounts(ctx context.Context) ([]core.Account, error) {
	f.accountCalls.Add(1)
	return f.Feed.ListAccounts(ctx)
}

type stubOneOffs struct {
	txns []core.LocalTransaction
}

func (s *stubOneOffs) ListTransactions(_ context.Context, accountID core.AccountID) ([]core.LocalTransaction, error) {
	var out []core.LocalTransaction
	for _, tx := range s.txns {
		if accountID == 0 || tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func fixedToday() core.Date { return core.NewDate(2024, 3, 10) }

func newTestService(oneOffs *stubOneOffs) (*ProjectionService, *countingFeed) {
	feed := &countingFeed{Feed: memory.NewFeed(
		[]core.Account{
			{ID: 1, Name: "Checking", Balance: core.MustAmount("1000.00"), Source: core.SourceAsset},
		},
		[]core.RecurringItem{
			{
				ID:          1,
				AccountID:   1,
				Payee:       "Rent",
				AnchorDate:  core.NewDate(2024, 1, 1),
				Granularity: core.Monthly,
				Interval:    1,
				Amount:      core.MustAmount("200.00"),
			},
		},
	)}
	svc := NewProjectionService(feed, oneOffs, 3, time.Minute, 8, projection.Options{}).
		WithClock(fixedToday)
	return svc, feed
}

func TestProjectComputesAndCaches(t *testing.T) {
	svc, feed := newTestService(&stubOneOffs{})
	ctx := context.Background()

	first, err := svc.Project(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}
	if first == nil || len(first.DailyBalances) == 0 {
		t.Fatalf("empty result")
	}
	callsAfterFirst := feed.accountCalls.Load()

	second, err := svc.Project(ctx, 1, 2)
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}
	if second != first {
		t.Fatalf("expected cached result pointer")
	}
	if feed.accountCalls.Load() != callsAfterFirst {
		t.Fatalf("cache hit must not refetch upstream")
	}
}

func TestInvalidateDiscardsSnapshots(t *testing.T) {
	svc, feed := newTestService(&stubOneOffs{})
	ctx := context.Background()

	if _, err := svc.Project(ctx, 1, 2); err != nil {
		t.Fatalf("Project() error: %v", err)
	}
	callsAfterFirst := feed.accountCalls.Load()

	svc.Invalidate()

	if _, err := svc.Project(ctx, 1, 2); err != nil {
		t.Fatalf("Project() error: %v", err)
	}
	if feed.accountCalls.Load() == callsAfterFirst {
		t.Fatalf("invalidation must force a refetch")
	}
}

func TestProjectUnknownAccountYieldsNil(t *testing.T) {
	svc, _ := newTestService(&stubOneOffs{})

	result, err := svc.Project(context.Background(), 99, 2)
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}
	if result != nil {
		t.Fatalf("expected nil result for unknown account, got %+v", result)
	}
}

func TestProjectMergesLocalTransactions(t *testing.T) {
	oneOffs := &stubOneOffs{txns: []core.LocalTransaction{
		{ID: 1, AccountID: 1, Date: core.NewDate(2024, 3, 20), Amount: core.MustAmount("-50.00"), Description: "Concert"},
	}}
	svc, _ := newTestService(oneOffs)

	result, err := svc.Project(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}

	found := false
	for _, ev := range result.KeyEvents {
		if ev.Description == "Concert" {
			found = true
		}
	}
	if !found {
		t.Fatalf("local transaction missing from key events: %+v", result.KeyEvents)
	}
}

func TestProjectDefaultHorizon(t *testing.T) {
	svc, _ := newTestService(&stubOneOffs{})

	result, err := svc.Project(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}
	// Default horizon is 3 months from the pinned today.
	want := fixedToday().AddMonths(3)
	last := result.DailyBalances[len(result.DailyBalances)-1]
	if !last.Date.Equal(want.Time) {
		t.Fatalf("last daily balance = %s, want %s", last.Date, want)
	}
}

func TestProjectRejectsNegativeHorizon(t *testing.T) {
	svc, _ := newTestService(&stubOneOffs{})
	if _, err := svc.Project(context.Background(), 1, -1); err == nil {
		t.Fatalf("expected error for negative horizon")
	}
}
