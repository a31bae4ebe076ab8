package lunchmoney

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cashflow/internal/core"
)

func TestListAccountsCombinesSources(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		switch r.URL.Path {
		case "/assets":
			w.Write([]byte(`{"assets":[{"id":1,"name":"checking","balance":"1000.00"}]}`))
		case "/plaid_accounts":
			w.Write([]byte(`{"plaid_accounts":[{"id":2,"name":"savings","display_name":"High Yield","balance":2500.5}]}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-token", time.Second)
	accounts, err := c.ListAccounts(context.Background())
	if err != nil {
		t.Fatalf("ListAccounts() error: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("got %d accounts", len(accounts))
	}
	if accounts[0].Source != core.SourceAsset || accounts[1].Source != core.SourcePlaid {
		t.Fatalf("asset accounts must come first: %+v", accounts)
	}
	if accounts[1].Name != "High Yield" {
		t.Fatalf("name = %q", accounts[1].Name)
	}
	if !accounts[1].Balance.Equal(core.MustAmount("2500.5")) {
		t.Fatalf("balance = %s", accounts[1].Balance)
	}
}

func TestListRecurringItemsSendsRange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/recurring_items" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("start_date") != "2024-01-15" || q.Get("end_date") != "2024-04-15" {
			t.Errorf("range params = %v", q)
		}
		w.Write([]byte(`[{"id":9,"payee":"Rent","amount":"1200","billing_date":"2024-01-01","granularity":"month","asset_id":1}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	items, err := c.ListRecurringItems(context.Background(),
		core.NewDate(2024, 1, 15), core.NewDate(2024, 4, 15))
	if err != nil {
		t.Fatalf("ListRecurringItems() error: %v", err)
	}
	if len(items) != 1 || items[0].Payee != "Rent" || items[0].AccountID != 1 {
		t.Fatalf("items = %+v", items)
	}
}

func TestNonOKStatusSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad", time.Second)
	if _, err := c.ListAccounts(context.Background()); err == nil {
		t.Fatalf("expected error on 401")
	}
}
