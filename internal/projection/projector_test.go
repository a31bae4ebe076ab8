package projection

import (
	"reflect"
	"testing"

	"cashflow/internal/core"
)

func fixtureAccounts() []core.Account {
	return []core.Account{
		{ID: 1, Name: "Checking", Balance: core.MustAmount("1000.00"), Source: core.SourceAsset},
		{ID: 2, Name: "Credit Card", Balance: core.MustAmount("-250.00"), Source: core.SourcePlaid},
	}
}

func TestProjectScenario(t *testing.T) {
	// Account balance 1000.00, one monthly recurring debit of 200.00
	// anchored on the 1st, horizon 1 month, window Jan 1 - Feb 1.
	items := []core.RecurringItem{{
		ID:          10,
		AccountID:   1,
		Payee:       "Rent",
		AnchorDate:  core.NewDate(2024, 1, 1),
		Granularity: core.Monthly,
		Interval:    1,
		Cadence:     core.CadenceStandard,
		Amount:      core.MustAmount("200.00"),
	}}

	res, err := Project(fixtureAccounts(), items, 1, 1, nil, core.NewDate(2024, 1, 1), Options{})
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}
	if res == nil {
		t.Fatalf("expected a result")
	}

	// Policy: an occurrence on the window start is applied the same day,
	// after the Starting Balance marker.
	if got := res.DailyBalances[0].Balance; !got.Equal(core.MustAmount("800.00")) {
		t.Fatalf("day-one balance = %s, want 800.00", got)
	}
	if res.KeyEvents[0].Description != "Starting Balance" {
		t.Fatalf("first event = %q", res.KeyEvents[0].Description)
	}
	if res.KeyEvents[1].Description != "Rent" || !res.KeyEvents[1].Balance.Equal(core.MustAmount("800.00")) {
		t.Fatalf("second event wrong: %+v", res.KeyEvents[1])
	}

	var jan *KeyEvent
	for i, ev := range res.KeyEvents {
		if ev.IsSubtotal && ev.Date.String() == "2024-01-31" {
			jan = &res.KeyEvents[i]
		}
	}
	if jan == nil {
		t.Fatalf("missing january subtotal")
	}
	if !jan.MonthlyDebit.Equal(core.MustAmount("-200.00")) || !jan.MonthlyCredit.IsZero() {
		t.Fatalf("january subtotal: credit=%s debit=%s", jan.MonthlyCredit, jan.MonthlyDebit)
	}

	// Feb 1 is inside the inclusive window, so the next occurrence fires.
	final := res.DailyBalances[len(res.DailyBalances)-1]
	if final.Date.String() != "2024-02-01" || !final.Balance.Equal(core.MustAmount("600.00")) {
		t.Fatalf("final day wrong: %+v", final)
	}
}

func TestProjectUnknownAccountIsEmptyResult(t *testing.T) {
	res, err := Project(fixtureAccounts(), nil, 99, 3, nil, core.NewDate(2024, 1, 1), Options{})
	if err != nil {
		t.Fatalf("unknown account must not be an error, got %v", err)
	}
	if res != nil {
		t.Fatalf("expected nil result, got %+v", res)
	}
}

func TestProjectIsDeterministic(t *testing.T) {
	items := []core.RecurringItem{
		{
			ID: 1, AccountID: 1, Payee: "Rent", AnchorDate: core.NewDate(2023, 6, 28),
			Granularity: core.Monthly, Interval: 1, Cadence: core.CadenceStandard,
			Amount: core.MustAmount("950.00"),
		},
		{
			ID: 2, AccountID: 1, Payee: "Gym", AnchorDate: core.NewDate(2024, 1, 3),
			Granularity: core.Weekly, Interval: 1, Cadence: core.CadenceStandard,
			Amount: core.MustAmount("15.00"),
		},
	}
	oneOffs := []core.LocalTransaction{
		{ID: 1, AccountID: 1, Date: core.NewDate(2024, 2, 14), Amount: core.MustAmount("-120.00"), Description: "Dinner"},
	}

	a, err := Project(fixtureAccounts(), items, 1, 3, oneOffs, core.NewDate(2024, 1, 2), Options{})
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}
	b, err := Project(fixtureAccounts(), items, 1, 3, oneOffs, core.NewDate(2024, 1, 2), Options{})
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical inputs produced different outputs")
	}
}

func TestProjectFiltersByAccount(t *testing.T) {
	items := []core.RecurringItem{
		{
			ID: 1, AccountID: 1, Payee: "Mine", AnchorDate: core.NewDate(2024, 1, 5),
			Granularity: core.Monthly, Interval: 1, Cadence: core.CadenceStandard,
			Amount: core.MustAmount("10.00"),
		},
		{
			ID: 2, AccountID: 2, Payee: "Other card", AnchorDate: core.NewDate(2024, 1, 5),
			Granularity: core.Monthly, Interval: 1, Cadence: core.CadenceStandard,
			Amount: core.MustAmount("999.00"),
		},
	}
	oneOffs := []core.LocalTransaction{
		{ID: 1, AccountID: 2, Date: core.NewDate(2024, 1, 10), Amount: core.MustAmount("-500.00"), Description: "Not mine"},
	}

	res, err := Project(fixtureAccounts(), items, 1, 1, oneOffs, core.NewDate(2024, 1, 1), Options{})
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}
	for _, ev := range res.KeyEvents {
		if ev.Description == "Other card" || ev.Description == "Not mine" {
			t.Fatalf("foreign account entry leaked into projection: %+v", ev)
		}
	}
}

func TestProjectSkipsUnrecognizedSchedules(t *testing.T) {
	items := []core.RecurringItem{
		{
			ID: 1, AccountID: 1, Payee: "Weird", AnchorDate: core.NewDate(2024, 1, 5),
			Granularity: "lunar", Interval: 1, Cadence: core.CadenceStandard,
			Amount: core.MustAmount("10.00"),
		},
	}

	res, err := Project(fixtureAccounts(), items, 1, 1, nil, core.NewDate(2024, 1, 1), Options{})
	if err != nil {
		t.Fatalf("unrecognized granularity must be skipped, got %v", err)
	}
	for _, ev := range res.KeyEvents {
		if ev.Description == "Weird" {
			t.Fatalf("skipped item leaked into output")
		}
	}
}

func TestProjectInvalidIntervalAborts(t *testing.T) {
	items := []core.RecurringItem{
		{
			ID: 1, AccountID: 1, Payee: "Broken", AnchorDate: core.NewDate(2024, 1, 5),
			Granularity: core.Monthly, Interval: 0, Cadence: core.CadenceStandard,
			Amount: core.MustAmount("10.00"),
		},
	}

	if _, err := Project(fixtureAccounts(), items, 1, 1, nil, core.NewDate(2024, 1, 1), Options{}); err == nil {
		t.Fatalf("expected error for invalid interval")
	}
}

func TestProjectInvalidHorizon(t *testing.T) {
	if _, err := Project(fixtureAccounts(), nil, 1, 0, nil, core.NewDate(2024, 1, 1), Options{}); err == nil {
		t.Fatalf("expected error for zero horizon")
	}
}

func TestProjectMergesOneOffsAfterRecurring(t *testing.T) {
	items := []core.RecurringItem{
		{
			ID: 1, AccountID: 1, Payee: "Sub", AnchorDate: core.NewDate(2024, 1, 10),
			Granularity: core.Monthly, Interval: 1, Cadence: core.CadenceStandard,
			Amount: core.MustAmount("20.00"),
		},
	}
	oneOffs := []core.LocalTransaction{
		{ID: 1, AccountID: 1, Date: core.NewDate(2024, 1, 10), Amount: core.MustAmount("300.00"), Description: "Bonus"},
	}

	res, err := Project(fixtureAccounts(), items, 1, 1, oneOffs, core.NewDate(2024, 1, 1), Options{})
	if err != nil {
		t.Fatalf("Project() error: %v", err)
	}

	// Same date: recurring expansion precedes the one-off entry.
	var names []string
	for _, ev := range res.KeyEvents {
		if ev.Date.String() == "2024-01-10" && !ev.IsSubtotal {
			names = append(names, ev.Description)
		}
	}
	if len(names) != 2 || names[0] != "Sub" || names[1] != "Bonus" {
		t.Fatalf("tie order = %v, want [Sub Bonus]", names)
	}

	// One-offs with positive amounts carry the income hint.
	for _, ev := range res.KeyEvents {
		if ev.Description == "Bonus" && !ev.IsIncome {
			t.Fatalf("positive one-off should be marked income")
		}
	}
}
