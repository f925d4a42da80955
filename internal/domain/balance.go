package domain

import "github.com/shopspring/decimal"

// FeeCategory identifies what a payment line settles. Term-scoped
// categories (tuition, transport) carry the term in a separate field.
type FeeCategory string

const (
	CategoryBook      FeeCategory = "BOOK"
	CategoryTuition   FeeCategory = "TUITION"
	CategoryTransport FeeCategory = "TRANSPORT"
	CategoryAdmission FeeCategory = "ADMISSION"
	CategoryOther     FeeCategory = "OTHER"
)

func (c FeeCategory) Valid() bool {
	switch c {
	case CategoryBook, CategoryTuition, CategoryTransport, CategoryAdmission, CategoryOther:
		return true
	}
	return false
}

// HasTerm reports whether the category is billed per academic term.
func (c FeeCategory) HasTerm() bool {
	return c == CategoryTuition || c == CategoryTransport
}

// CategoryKey addresses one payable line: a category plus its term
// number (0 for term-less categories like BOOK or ADMISSION).
type CategoryKey struct {
	Category   FeeCategory `json:"category"`
	TermNumber int         `json:"term_number,omitempty"`
}

// RawCategoryAmount is one (category, total, paid) triple as returned by
// the balance query service. Totals and paid may arrive absent; the zero
// decimal stands in for them.
type RawCategoryAmount struct {
	Category   FeeCategory     `json:"category"`
	TermNumber int             `json:"term_number,omitempty"`
	Total      decimal.Decimal `json:"total"`
	Paid       decimal.Decimal `json:"paid"`
}

// FeeCategoryBalance is a derived payable line. Outstanding is always
// recomputed from the raw totals, never stored authoritatively here.
type FeeCategoryBalance struct {
	Category    FeeCategory     `json:"category"`
	TermNumber  int             `json:"term_number,omitempty"`
	Total       decimal.Decimal `json:"total"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

func (b FeeCategoryBalance) Key() CategoryKey {
	return CategoryKey{Category: b.Category, TermNumber: b.TermNumber}
}

// DeriveBalances turns raw service totals into non-negative outstanding
// balances: outstanding = max(0, total - paid). Pure and deterministic;
// safe to call on every refresh. Negative raw inputs are clamped to zero
// so a malformed row can never produce a negative outstanding.
func DeriveBalances(raw []RawCategoryAmount) []FeeCategoryBalance {
	out := make([]FeeCategoryBalance, 0, len(raw))
	for _, r := range raw {
		total := clampNonNegative(r.Total)
		paid := clampNonNegative(r.Paid)
		out = append(out, FeeCategoryBalance{
			Category:    r.Category,
			TermNumber:  r.TermNumber,
			Total:       total,
			Paid:        paid,
			Outstanding: clampNonNegative(total.Sub(paid)),
		})
	}
	return out
}

func clampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
