package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDeriveBalances_Outstanding(t *testing.T) {
	cases := []struct {
		name        string
		total, paid string
		want        string
	}{
		{"unpaid", "5000", "0", "5000"},
		{"partially paid", "5000", "1500", "3500"},
		{"exactly settled", "5000", "5000", "0"},
		{"overpaid clamps to zero", "5000", "6000", "0"},
		{"negative total clamps", "-100", "0", "0"},
		{"negative paid clamps", "5000", "-50", "5000"},
		{"fractional", "1200.50", "200.25", "1000.25"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveBalances([]RawCategoryAmount{{
				Category: CategoryTuition,
				Total:    dec(tc.total),
				Paid:     dec(tc.paid),
			}})
			if len(got) != 1 {
				t.Fatalf("expected 1 balance, got %d", len(got))
			}
			if !got[0].Outstanding.Equal(dec(tc.want)) {
				t.Errorf("outstanding = %s, want %s", got[0].Outstanding, tc.want)
			}
			if got[0].Outstanding.IsNegative() {
				t.Errorf("outstanding must never be negative, got %s", got[0].Outstanding)
			}
		})
	}
}

func TestDeriveBalances_PreservesOrderAndKeys(t *testing.T) {
	raw := []RawCategoryAmount{
		{Category: CategoryBook, Total: dec("300"), Paid: dec("0")},
		{Category: CategoryTuition, TermNumber: 1, Total: dec("5000"), Paid: dec("0")},
		{Category: CategoryTuition, TermNumber: 2, Total: dec("5000"), Paid: dec("5000")},
	}

	got := DeriveBalances(raw)
	if len(got) != 3 {
		t.Fatalf("expected 3 balances, got %d", len(got))
	}
	for i, b := range got {
		if b.Category != raw[i].Category || b.TermNumber != raw[i].TermNumber {
			t.Errorf("balance %d reordered: got %s/%d, want %s/%d",
				i, b.Category, b.TermNumber, raw[i].Category, raw[i].TermNumber)
		}
	}

	if got[1].Key() != (CategoryKey{Category: CategoryTuition, TermNumber: 1}) {
		t.Errorf("unexpected key for term 1 tuition: %+v", got[1].Key())
	}
	if got[1].Key() == got[2].Key() {
		t.Error("per-term lines must have distinct keys")
	}
}

func TestFeeCategory_Valid(t *testing.T) {
	for _, c := range []FeeCategory{CategoryBook, CategoryTuition, CategoryTransport, CategoryAdmission, CategoryOther} {
		if !c.Valid() {
			t.Errorf("%s should be valid", c)
		}
	}
	if FeeCategory("LIBRARY").Valid() {
		t.Error("unknown category must be invalid")
	}
	if FeeCategory("").Valid() {
		t.Error("empty category must be invalid")
	}
}

func TestFeeCategory_HasTerm(t *testing.T) {
	if !CategoryTuition.HasTerm() || !CategoryTransport.HasTerm() {
		t.Error("tuition and transport are term-scoped")
	}
	if CategoryBook.HasTerm() || CategoryAdmission.HasTerm() || CategoryOther.HasTerm() {
		t.Error("book, admission and other are not term-scoped")
	}
}
