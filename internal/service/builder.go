package service

import (
	"feepay-engine/internal/domain"

	"github.com/shopspring/decimal"
)

// BuildOptions tweak request construction. CustomPurpose overrides the
// OTHER purpose used for a custom-amount line; Remarks is free text
// carried with the request.
type BuildOptions struct {
	CustomPurpose domain.FeeCategory
	Remarks       string
}

// BuildPaymentRequest turns the current selection plus derived balances
// into an ordered payment request.
//
// Each selected category with a positive outstanding produces one line
// paying that outstanding in full; partial settlement of an individual
// category is not supported. A custom amount bypasses the per-category
// breakdown entirely and yields exactly one line. Line order follows the
// order of the balances slice.
//
// Returns *domain.ValidationError when the selection is invalid, the
// computed total is not positive, or the student identifier is absent.
// A ValidationError never reaches the network layer.
func BuildPaymentRequest(
	studentID string,
	sel *domain.PaymentSelection,
	balances []domain.FeeCategoryBalance,
	method domain.PaymentMethod,
	opts BuildOptions,
) (*domain.PaymentRequest, error) {
	if studentID == "" {
		return nil, &domain.ValidationError{Field: "student_identifier", Message: "student identifier is required"}
	}
	if sel == nil || !sel.IsValid() {
		return nil, &domain.ValidationError{Field: "selection", Message: "select at least one fee category or enter an amount"}
	}
	if !method.Valid() {
		return nil, &domain.ValidationError{Field: "payment_method", Message: "payment method is required"}
	}

	req := &domain.PaymentRequest{
		StudentIdentifier: studentID,
		Remarks:           opts.Remarks,
	}

	if sel.HasCustomAmount() {
		purpose := domain.CategoryOther
		if opts.CustomPurpose != "" {
			if !opts.CustomPurpose.Valid() {
				return nil, &domain.ValidationError{Field: "custom_purpose", Message: "unknown fee category"}
			}
			purpose = opts.CustomPurpose
		}
		req.Details = []domain.PaymentLineItem{{
			Purpose:       purpose,
			PaidAmount:    sel.CustomAmount(),
			PaymentMethod: method,
		}}
	} else {
		for _, b := range balances {
			if !sel.IsSelected(b.Key()) || !b.Outstanding.IsPositive() {
				continue
			}
			line := domain.PaymentLineItem{
				Purpose:       b.Category,
				PaidAmount:    b.Outstanding,
				PaymentMethod: method,
			}
			if b.Category.HasTerm() {
				term := b.TermNumber
				line.TermNumber = &term
			}
			req.Details = append(req.Details, line)
		}
	}

	if len(req.Details) == 0 || !req.Total().GreaterThan(decimal.Zero) {
		return nil, &domain.ValidationError{Field: "selection", Message: "nothing outstanding for the selected categories"}
	}

	return req, nil
}
