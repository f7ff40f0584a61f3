package ledger_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"cuops/internal/domain"
	"cuops/internal/ledger"
)

func units(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func contract(total, rollover, used string) domain.Contract {
	return domain.Contract{
		Status:            domain.ContractActive,
		TotalContentUnits: units(total),
		RolloverUnits:     units(rollover),
		UsedContentUnits:  units(used),
	}
}

func TestBalanceOf(t *testing.T) {
	cases := []struct {
		name      string
		c         domain.Contract
		total     string
		remaining string
		pct       string
		over      bool
	}{
		{"plain", contract("10", "0", "3"), "10", "7", "30", false},
		{"rollover counts", contract("10", "2", "3"), "12", "9", "25", false},
		{"zero grant", contract("0", "0", "0"), "0", "0", "0", false},
		{"zero grant with usage", contract("0", "0", "2"), "0", "-2", "0", true},
		{"overdraft", contract("10", "0", "12.5"), "10", "-2.5", "100", true},
		{"fractional", contract("1.5", "0", "0.5"), "1.5", "1", "33.3", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := ledger.BalanceOf(tc.c)
			if !b.Total.Equal(units(tc.total)) {
				t.Fatalf("total = %s, want %s", b.Total, tc.total)
			}
			if !b.Remaining.Equal(units(tc.remaining)) {
				t.Fatalf("remaining = %s, want %s", b.Remaining, tc.remaining)
			}
			if !b.PercentUsed.Equal(units(tc.pct)) {
				t.Fatalf("percent = %s, want %s", b.PercentUsed, tc.pct)
			}
			if b.OverBudget != tc.over {
				t.Fatalf("over budget = %v, want %v", b.OverBudget, tc.over)
			}
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		explicit    string
		total, done int
		want        string
	}{
		{"", 0, 0, ledger.StatusNoTasks},
		{"", 3, 0, ledger.StatusNotStarted},
		{"", 3, 1, ledger.StatusInProgress},
		{"", 3, 3, ledger.StatusComplete},
		{domain.ContentPublished, 0, 0, ledger.StatusPublished},
		{domain.ContentPublished, 3, 1, ledger.StatusPublished},
		{domain.ContentPublished, 3, 3, ledger.StatusPublished},
		{domain.ContentSpiked, 3, 2, ledger.StatusSpiked},
	}
	for _, tc := range cases {
		got := ledger.DeriveStatus(tc.explicit, tc.total, tc.done)
		if got != tc.want {
			t.Errorf("DeriveStatus(%q,%d,%d) = %q, want %q", tc.explicit, tc.total, tc.done, got, tc.want)
		}
		if again := ledger.DeriveStatus(tc.explicit, tc.total, tc.done); again != got {
			t.Errorf("DeriveStatus not deterministic: %q vs %q", got, again)
		}
	}
}

func TestCheckAffordable(t *testing.T) {
	b := ledger.BalanceOf(contract("10", "0", "3"))
	if err := ledger.CheckAffordable(b, units("7")); err != nil {
		t.Fatalf("exact remaining should be affordable: %v", err)
	}
	err := ledger.CheckAffordable(b, units("7.01"))
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
}

func TestAutoSelect(t *testing.T) {
	draft := contract("5", "0", "0")
	draft.Status = domain.ContractDraft
	active := contract("10", "0", "3")
	active.ID = "c-1"

	opts := ledger.ActiveOptions([]domain.Contract{draft, active})
	sel, ok := ledger.AutoSelect(opts)
	if !ok || sel.Contract.ID != "c-1" {
		t.Fatalf("expected single active contract to be selected, got %+v ok=%v", sel, ok)
	}
	second := active
	second.ID = "c-2"
	if _, ok := ledger.AutoSelect(ledger.ActiveOptions([]domain.Contract{active, second})); ok {
		t.Fatalf("two active contracts must not auto-select")
	}
}

func TestUnits(t *testing.T) {
	if _, err := ledger.ParseUnits("0.5"); err != nil {
		t.Fatalf("parse 0.5: %v", err)
	}
	if _, err := ledger.ParseUnits("1000000000000"); err != nil {
		t.Fatalf("parse upper bound: %v", err)
	}
	for _, bad := range []string{"-1", "0.125", "abc", "1000000000000.01", "100000000000000000"} {
		if _, err := ledger.ParseUnits(bad); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("ParseUnits(%q) = %v, want invalid input", bad, err)
		}
	}
	if err := ledger.ValidateAmount("monthly_fee", units("99.999")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("fee with three decimals = %v, want invalid input", err)
	}
	if got, err := ledger.ToCenti(units("2.5")); err != nil || got != 250 {
		t.Fatalf("ToCenti = %d, %v", got, err)
	}
	for _, huge := range []string{"100000000000000000", "-100000000000000000"} {
		if got, err := ledger.ToCenti(units(huge)); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("ToCenti(%s) = %d, %v, want out of range", huge, got, err)
		}
	}
	if got := ledger.FromCenti(250); !got.Equal(units("2.5")) {
		t.Fatalf("FromCenti = %s", got)
	}
	if got := ledger.UnitsFromFloat(0.1); !got.Equal(units("0.1")) {
		t.Fatalf("UnitsFromFloat = %s", got)
	}
}

func TestTaskOrderingAndProgress(t *testing.T) {
	tasks := []domain.Task{
		{ID: "c", SortOrder: 1, CreatedAt: "2024-01-01T00:00:02.000000Z", Status: domain.TaskTodo},
		{ID: "b", SortOrder: 1, CreatedAt: "2024-01-01T00:00:01.000000Z", Status: domain.TaskDone},
		{ID: "a", SortOrder: 0, CreatedAt: "2024-01-01T00:00:03.000000Z", Status: domain.TaskTodo},
	}
	ledger.SortTasks(tasks)
	if tasks[0].ID != "a" || tasks[1].ID != "b" || tasks[2].ID != "c" {
		t.Fatalf("unexpected order: %s %s %s", tasks[0].ID, tasks[1].ID, tasks[2].ID)
	}
	if next := ledger.NextSortOrder(tasks); next != 2 {
		t.Fatalf("next sort order = %d", next)
	}
	if next := ledger.NextSortOrder(nil); next != 0 {
		t.Fatalf("next sort order on empty = %d", next)
	}
	p := ledger.ProgressOf(tasks)
	if p.Total != 3 || p.Done != 1 {
		t.Fatalf("progress = %+v", p)
	}
	if empty := ledger.ProgressOf(nil); empty.Percent != 0 {
		t.Fatalf("empty percent = %v", empty.Percent)
	}
}

func TestSetStatusCompletedAt(t *testing.T) {
	var task domain.Task
	ledger.SetStatus(&task, domain.TaskDone, "2024-01-01T00:00:00.000000Z")
	if task.CompletedAt == nil {
		t.Fatalf("completed_at must be set on done")
	}
	ledger.SetStatus(&task, domain.TaskTodo, "2024-01-02T00:00:00.000000Z")
	if task.CompletedAt != nil {
		t.Fatalf("completed_at must be cleared on todo")
	}
	if ledger.Toggled(domain.TaskTodo) != domain.TaskDone || ledger.Toggled(domain.TaskDone) != domain.TaskTodo {
		t.Fatalf("toggle mismatch")
	}
}

func TestScope(t *testing.T) {
	if !ledger.ScopeFrom("  ").IsAll() {
		t.Fatalf("blank customer should be all")
	}
	id, ok := ledger.ScopeFrom("cust-1").CustomerID()
	if !ok || id != "cust-1" {
		t.Fatalf("customer scope = %q %v", id, ok)
	}
	scoped := ledger.Customer("cust-1")
	if !scoped.Includes("cust-1") || scoped.Includes("cust-2") || scoped.Includes("") {
		t.Fatalf("customer scope includes the wrong records")
	}
	if !ledger.All().Includes("") || !ledger.All().Includes("cust-2") {
		t.Fatalf("all scope must include every record")
	}
}
