// Package lunchmoney implements the upstream feed against the Lunch Money
// REST API.
package lunchmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"cashflow/internal/core"
	"cashflow/internal/upstream"
)

// Client talks to the Lunch Money API with a bearer token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

var _ upstream.Feed = (*Client)(nil)

// NewClient creates a client for the given API base URL (no trailing
// slash required) and access token.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

// ListAccounts fetches asset accounts and externally-linked accounts
// concurrently and returns them as one adapted list, assets first.
func (c *Client) ListAccounts(ctx context.Context) ([]core.Account, error) {
	var (
		assets assetsResponse
		plaid  plaidAccountsResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.get(gctx, "/assets", nil, &assets)
	})
	g.Go(func() error {
		return c.get(gctx, "/plaid_accounts", nil, &plaid)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch accounts: %w", err)
	}

	accounts := make([]core.Account, 0, len(assets.Assets)+len(plaid.PlaidAccounts))
	for _, raw := range assets.Assets {
		a, err := adaptAsset(raw)
		if err != nil {
			return nil, fmt.Errorf("asset %d: %w", raw.ID, err)
		}
		accounts = append(accounts, a)
	}
	for _, raw := range plaid.PlaidAccounts {
		a, err := adaptPlaidAccount(raw)
		if err != nil {
			return nil, fmt.Errorf("plaid account %d: %w", raw.ID, err)
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// ListRecurringItems fetches recurring items overlapping the range and
// adapts them. A malformed date on any record aborts the whole fetch; a
// silently misdated schedule would corrupt the balance curve.
func (c *Client) ListRecurringItems(ctx context.Context, start, end core.Date) ([]core.RecurringItem, error) {
	params := url.Values{
		"start_date": {start.String()},
		"end_date":   {end.String()},
	}

	var resp recurringItemsResponse
	if err := c.get(ctx, "/recurring_items", params, &resp); err != nil {
		return nil, fmt.Errorf("fetch recurring items: %w", err)
	}

	items := make([]core.RecurringItem, 0, len(resp.items))
	for _, raw := range resp.items {
		item, err := adaptRecurringItem(raw)
		if err != nil {
			return nil, fmt.Errorf("recurring item %d: %w", raw.ID, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber() // keep amounts exact until decimal parsing
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
