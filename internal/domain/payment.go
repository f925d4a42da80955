package domain

import "github.com/shopspring/decimal"

type PaymentMethod string

const (
	MethodCash   PaymentMethod = "CASH"
	MethodOnline PaymentMethod = "ONLINE"
	MethodCard   PaymentMethod = "CARD"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodOnline, MethodCard:
		return true
	}
	return false
}

// PaymentLineItem is one entry in a payment request. TermNumber is nil
// for term-less purposes.
type PaymentLineItem struct {
	Purpose       FeeCategory     `json:"purpose"`
	TermNumber    *int            `json:"term_number,omitempty"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
}

// PaymentRequest is submitted to the ledger service as one atomic
// operation. It is built fresh from current selection state for every
// attempt and never reused across attempts.
type PaymentRequest struct {
	StudentIdentifier string            `json:"student_identifier"`
	Details           []PaymentLineItem `json:"details"`
	Remarks           string            `json:"remarks,omitempty"`
}

// Total sums all line amounts.
func (r *PaymentRequest) Total() decimal.Decimal {
	total := decimal.Zero
	for _, d := range r.Details {
		total = total.Add(d.PaidAmount)
	}
	return total
}
