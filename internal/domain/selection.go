package domain

import "github.com/shopspring/decimal"

// PaymentSelection tracks which fee categories are picked for the current
// payment action. A set of categories and a custom override amount are
// mutually exclusive: setting one clears the other. The zero value is an
// empty (invalid) selection.
type PaymentSelection struct {
	selected map[CategoryKey]bool
	custom   *decimal.Decimal
}

func NewPaymentSelection() *PaymentSelection {
	return &PaymentSelection{selected: make(map[CategoryKey]bool)}
}

// ToggleCategory includes or excludes one category. Including any
// category drops a previously set custom amount.
func (s *PaymentSelection) ToggleCategory(key CategoryKey, included bool) {
	if s.selected == nil {
		s.selected = make(map[CategoryKey]bool)
	}
	if included {
		s.custom = nil
		s.selected[key] = true
		return
	}
	delete(s.selected, key)
}

// SetCustomAmount switches the selection to a single override amount,
// clearing all selected categories.
func (s *PaymentSelection) SetCustomAmount(amount decimal.Decimal) {
	s.selected = make(map[CategoryKey]bool)
	a := amount
	s.custom = &a
}

func (s *PaymentSelection) ClearCustomAmount() {
	s.custom = nil
}

func (s *PaymentSelection) HasCustomAmount() bool {
	return s.custom != nil
}

// CustomAmount returns the override amount, zero when unset.
func (s *PaymentSelection) CustomAmount() decimal.Decimal {
	if s.custom == nil {
		return decimal.Zero
	}
	return *s.custom
}

func (s *PaymentSelection) IsSelected(key CategoryKey) bool {
	return s.selected[key]
}

func (s *PaymentSelection) SelectedCount() int {
	return len(s.selected)
}

// IsValid reports whether the selection can back a payment: at least one
// category selected, or a positive custom amount.
func (s *PaymentSelection) IsValid() bool {
	if len(s.selected) > 0 {
		return true
	}
	return s.custom != nil && s.custom.IsPositive()
}

// SelectionSnapshot is the JSON-facing view of a selection.
type SelectionSnapshot struct {
	Selected     []CategoryKey `json:"selected"`
	CustomAmount *string       `json:"custom_amount,omitempty"`
}

// Snapshot copies the selection for rendering. Keys follow the order of
// the balances slice so the view is stable across refreshes.
func (s *PaymentSelection) Snapshot(balances []FeeCategoryBalance) SelectionSnapshot {
	snap := SelectionSnapshot{Selected: []CategoryKey{}}
	for _, b := range balances {
		if s.selected[b.Key()] {
			snap.Selected = append(snap.Selected, b.Key())
		}
	}
	if s.custom != nil {
		v := s.custom.String()
		snap.CustomAmount = &v
	}
	return snap
}
