package lunchmoney

import (
	"encoding/json"
	"fmt"

	"cashflow/internal/core"
)

// Raw wire shapes. Amounts arrive as numeric strings or numbers depending
// on the endpoint; json.Number keeps them exact until decimal parsing.
type (
	assetsResponse struct {
		Assets []rawAsset `json:"assets"`
	}

	plaidAccountsResponse struct {
		PlaidAccounts []rawPlaidAccount `json:"plaid_accounts"`
	}

	rawAsset struct {
		ID          int64       `json:"id"`
		Name        string      `json:"name"`
		DisplayName string      `json:"display_name"`
		Balance     json.Number `json:"balance"`
	}

	rawPlaidAccount struct {
		ID          int64       `json:"id"`
		Name        string      `json:"name"`
		DisplayName string      `json:"display_name"`
		Balance     json.Number `json:"balance"`
	}

	rawRecurringItem struct {
		ID             int64       `json:"id"`
		Payee          string      `json:"payee"`
		Amount         json.Number `json:"amount"`
		BillingDate    string      `json:"billing_date"`
		StartDate      string      `json:"start_date"`
		Granularity    string      `json:"granularity"`
		Cadence        string      `json:"cadence"`
		Quantity       *int        `json:"quantity"`
		AssetID        *int64      `json:"asset_id"`
		PlaidAccountID *int64      `json:"plaid_account_id"`
		IsIncome       bool        `json:"is_income"`
		EndDate        string      `json:"end_date"`
		// Occurrences maps billing dates to the transactions already
		// posted on them.
		Occurrences map[string][]json.RawMessage `json:"occurrences"`
	}
)

// recurringItemsResponse tolerates both wire shapes the endpoint has
// used: a bare array and an object wrapping one.
type recurringItemsResponse struct {
	items []rawRecurringItem
}

func (r *recurringItemsResponse) UnmarshalJSON(data []byte) error {
	var direct []rawRecurringItem
	if err := json.Unmarshal(data, &direct); err == nil {
		r.items = direct
		return nil
	}
	var wrapped struct {
		RecurringItems []rawRecurringItem `json:"recurring_items"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	r.items = wrapped.RecurringItems
	return nil
}

func adaptAsset(raw rawAsset) (core.Account, error) {
	balance, err := core.ParseAmount(raw.Balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("balance: %w", err)
	}
	return core.Account{
		ID:      core.AccountID(raw.ID),
		Name:    displayName(raw.DisplayName, raw.Name),
		Balance: balance,
		Source:  core.SourceAsset,
	}, nil
}

func adaptPlaidAccount(raw rawPlaidAccount) (core.Account, error) {
	balance, err := core.ParseAmount(raw.Balance)
	if err != nil {
		return core.Account{}, fmt.Errorf("balance: %w", err)
	}
	return core.Account{
		ID:      core.AccountID(raw.ID),
		Name:    displayName(raw.DisplayName, raw.Name),
		Balance: balance,
		Source:  core.SourcePlaid,
	}, nil
}

// adaptRecurringItem coerces one upstream record into the domain type.
// The billing date is the canonical anchor; start_date is only a
// fallback for older records that lack one. The cadence literal is
// resolved to an enumerated modifier here, never downstream.
func adaptRecurringItem(raw rawRecurringItem) (core.RecurringItem, error) {
	anchorStr := raw.BillingDate
	if anchorStr == "" {
		anchorStr = raw.StartDate
	}
	anchor, err := core.ParseDate(anchorStr)
	if err != nil {
		return core.RecurringItem{}, fmt.Errorf("billing date: %w", err)
	}

	amount, err := core.ParseAmount(raw.Amount)
	if err != nil {
		return core.RecurringItem{}, fmt.Errorf("amount: %w", err)
	}

	var endDate core.Date
	if raw.EndDate != "" {
		endDate, err = core.ParseDate(raw.EndDate)
		if err != nil {
			return core.RecurringItem{}, fmt.Errorf("end date: %w", err)
		}
	}

	interval := 1
	if raw.Quantity != nil && *raw.Quantity > 0 {
		interval = *raw.Quantity
	}

	item := core.RecurringItem{
		ID:          raw.ID,
		AccountID:   accountRef(raw),
		Payee:       raw.Payee,
		AnchorDate:  anchor,
		Granularity: core.Granularity(raw.Granularity),
		Interval:    interval,
		Cadence:     core.ResolveCadence(raw.Cadence),
		Amount:      amount.Abs(),
		IsIncome:    raw.IsIncome,
		EndDate:     endDate,
	}

	if len(raw.Occurrences) > 0 {
		item.Posted = make(map[string]int, len(raw.Occurrences))
		for date, posted := range raw.Occurrences {
			if _, err := core.ParseDate(date); err != nil {
				return core.RecurringItem{}, fmt.Errorf("occurrence key: %w", err)
			}
			item.Posted[date] = len(posted)
		}
	}

	return item, nil
}

// accountRef coerces the two heterogeneous id fields to the common
// account identifier. Asset ids win when both are present.
func accountRef(raw rawRecurringItem) core.AccountID {
	if raw.AssetID != nil {
		return core.AccountID(*raw.AssetID)
	}
	if raw.PlaidAccountID != nil {
		return core.AccountID(*raw.PlaidAccountID)
	}
	return 0
}

func displayName(display, name string) string {
	if display != "" {
		return display
	}
	return name
}
