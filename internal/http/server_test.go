package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"cashflow/internal/core"
	"cashflow/internal/projection"
	"cashflow/internal/services"
	"cashflow/internal/storage"
	"cashflow/internal/upstream/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	feed := memory.NewFeed(
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
	)

	projections := services.NewProjectionService(feed, repo, 3, time.Minute, 8, projection.Options{}).
		WithClock(func() core.Date { return core.NewDate(2024, 3, 10) })
	transactions := services.NewTransactionService(repo, nil)

	s := NewServer(":0", projections, transactions)
	srv := httptest.NewServer(s.Handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetAccounts(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/accounts")
	if err != nil {
		t.Fatalf("GET /api/accounts: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var body struct {
		Accounts []struct {
			ID     int64  `json:"id"`
			Name   string `json:"name"`
			Source string `json:"source"`
		} `json:"accounts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Accounts) != 1 || body.Accounts[0].Name != "Checking" || body.Accounts[0].Source != "asset" {
		t.Fatalf("accounts = %+v", body.Accounts)
	}
}

func TestGetProjectionRequiresAccountID(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/projection")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetProjectionUnknownAccount(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/projection?account_id=99")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestGetProjection(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/projection?account_id=1&months=2")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var result struct {
		DailyBalances []struct {
			Date string `json:"date"`
		} `json:"dailyBalances"`
		KeyEvents []struct {
			Description string `json:"description"`
		} `json:"keyEvents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.DailyBalances) == 0 {
		t.Fatalf("empty daily balances")
	}
	if result.DailyBalances[0].Date != "2024-03-10" {
		t.Fatalf("first balance date = %s", result.DailyBalances[0].Date)
	}
	if result.KeyEvents[0].Description != "Starting Balance" {
		t.Fatalf("first event = %q", result.KeyEvents[0].Description)
	}
}

func TestGetProjectionRejectsBadMonths(t *testing.T) {
	srv := newTestServer(t)

	for _, months := range []string{"0", "-3", "25", "abc"} {
		resp, err := http.Get(srv.URL + "/api/projection?account_id=1&months=" + months)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("months=%s: status = %d, want 400", months, resp.StatusCode)
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	payload := `{"account_id":1,"date":"2024-03-20","amount":"-50.00","description":"Concert"}`
	resp, err := http.Post(srv.URL+"/api/transactions", "application/json", bytes.NewBufferString(payload))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	var created core.LocalTransaction
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode created: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if created.ID == 0 {
		t.Fatalf("missing id in created transaction")
	}

	// The new transaction must show up in a fresh projection.
	resp, err = http.Get(srv.URL + "/api/projection?account_id=1&months=1")
	if err != nil {
		t.Fatalf("GET projection: %v", err)
	}
	var result struct {
		KeyEvents []struct {
			Description string `json:"description"`
		} `json:"keyEvents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode projection: %v", err)
	}
	resp.Body.Close()
	found := false
	for _, ev := range result.KeyEvents {
		if ev.Description == "Concert" {
			found = true
		}
	}
	if !found {
		t.Fatalf("created transaction missing from projection")
	}

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/api/transactions/%d", srv.URL, created.ID), nil)
	if err != nil {
		t.Fatalf("build delete: %v", err)
	}
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", resp.StatusCode)
	}

	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE again: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", resp.StatusCode)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{"malformed json", `{`, http.StatusBadRequest},
		{"empty description", `{"account_id":1,"date":"2024-03-20","amount":"-50","description":"  "}`, http.StatusUnprocessableEntity},
		{"zero amount", `{"account_id":1,"date":"2024-03-20","amount":"0","description":"x"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"account_id":1,"date":"03/20/2024","amount":"-50","description":"x"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/api/transactions", "application/json", bytes.NewBufferString(tt.payload))
			if err != nil {
				t.Fatalf("POST: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}
