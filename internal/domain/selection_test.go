package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPaymentSelection_ToggleRoundTrip(t *testing.T) {
	sel := NewPaymentSelection()
	key := CategoryKey{Category: CategoryTuition, TermNumber: 1}

	if sel.IsValid() {
		t.Error("empty selection must be invalid")
	}

	sel.ToggleCategory(key, true)
	if !sel.IsSelected(key) {
		t.Error("category should be selected after toggle on")
	}
	if !sel.IsValid() {
		t.Error("selection with one category must be valid")
	}

	sel.ToggleCategory(key, false)
	if sel.IsSelected(key) {
		t.Error("category should be unselected after toggle off")
	}
	if sel.IsValid() {
		t.Error("selection must be invalid again once emptied")
	}
}

func TestPaymentSelection_MutualExclusion(t *testing.T) {
	sel := NewPaymentSelection()
	key := CategoryKey{Category: CategoryBook}

	sel.ToggleCategory(key, true)
	sel.SetCustomAmount(decimal.NewFromInt(750))

	if sel.IsSelected(key) {
		t.Error("setting a custom amount must clear selected categories")
	}
	if !sel.HasCustomAmount() {
		t.Error("custom amount should be set")
	}

	sel.ToggleCategory(key, true)
	if sel.HasCustomAmount() {
		t.Error("selecting a category must clear the custom amount")
	}
	if !sel.IsSelected(key) {
		t.Error("category should be selected")
	}
}

func TestPaymentSelection_CustomAmountValidity(t *testing.T) {
	sel := NewPaymentSelection()

	sel.SetCustomAmount(decimal.Zero)
	if sel.IsValid() {
		t.Error("zero custom amount must not validate")
	}

	sel.SetCustomAmount(decimal.NewFromInt(-10))
	if sel.IsValid() {
		t.Error("negative custom amount must not validate")
	}

	sel.SetCustomAmount(decimal.NewFromInt(100))
	if !sel.IsValid() {
		t.Error("positive custom amount must validate")
	}

	sel.ClearCustomAmount()
	if sel.HasCustomAmount() || sel.IsValid() {
		t.Error("cleared custom amount leaves an invalid empty selection")
	}
}

func TestPaymentSelection_SnapshotFollowsBalanceOrder(t *testing.T) {
	balances := []FeeCategoryBalance{
		{Category: CategoryBook},
		{Category: CategoryTuition, TermNumber: 1},
		{Category: CategoryTuition, TermNumber: 2},
	}

	sel := NewPaymentSelection()
	sel.ToggleCategory(balances[2].Key(), true)
	sel.ToggleCategory(balances[0].Key(), true)

	snap := sel.Snapshot(balances)
	if len(snap.Selected) != 2 {
		t.Fatalf("expected 2 selected keys, got %d", len(snap.Selected))
	}
	if snap.Selected[0] != balances[0].Key() || snap.Selected[1] != balances[2].Key() {
		t.Errorf("snapshot order must follow balances slice, got %+v", snap.Selected)
	}
	if snap.CustomAmount != nil {
		t.Error("no custom amount expected in snapshot")
	}

	sel.SetCustomAmount(decimal.NewFromInt(500))
	snap = sel.Snapshot(balances)
	if len(snap.Selected) != 0 {
		t.Errorf("custom amount snapshot must list no selected keys, got %+v", snap.Selected)
	}
	if snap.CustomAmount == nil || *snap.CustomAmount != "500" {
		t.Errorf("snapshot custom amount = %v, want 500", snap.CustomAmount)
	}
}

func TestReceiptHandle_ReleaseIsIdempotent(t *testing.T) {
	calls := 0
	h := NewReceiptHandle("id-1", "TX-1", "receipt.pdf", time.Now(), func() error {
		calls++
		return nil
	})

	if h.Released() {
		t.Error("fresh handle must not be released")
	}
	if err := h.Release(); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if err := h.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if calls != 1 {
		t.Errorf("release func called %d times, want 1", calls)
	}
	if !h.Released() {
		t.Error("handle must report released")
	}
}
