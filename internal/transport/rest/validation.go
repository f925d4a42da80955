package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"feepay-engine/internal/domain"

	"github.com/shopspring/decimal"
)

type OpenSessionRequest struct {
	StudentIdentifier string `json:"student_identifier"`
}

func ValidateOpenSessionRequest(r *http.Request) (*OpenSessionRequest, error) {
	var req OpenSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		return nil, err
	}

	req.StudentIdentifier = strings.TrimSpace(req.StudentIdentifier)
	if req.StudentIdentifier == "" {
		return nil, &domain.ValidationError{Field: "student_identifier", Message: "student_identifier is required"}
	}

	return &req, nil
}

type ToggleRequest struct {
	Category   domain.FeeCategory `json:"category"`
	TermNumber int                `json:"term_number"`
	Included   bool               `json:"included"`
}

func ValidateToggleRequest(r *http.Request) (*ToggleRequest, error) {
	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, err
	}

	if req.Category == "" {
		return nil, &domain.ValidationError{Field: "category", Message: "category is required"}
	}
	if !req.Category.Valid() {
		return nil, &domain.ValidationError{Field: "category", Message: "unknown fee category"}
	}

	return &req, nil
}

// CustomAmountRequest carries the override amount as a string so the
// client controls its precision. An empty amount clears the override.
type CustomAmountRequest struct {
	Amount string `json:"amount"`

	parsed decimal.Decimal
}

func (r *CustomAmountRequest) Clear() bool {
	return r.Amount == ""
}

func (r *CustomAmountRequest) Parsed() decimal.Decimal {
	return r.parsed
}

func ValidateCustomAmountRequest(r *http.Request) (*CustomAmountRequest, error) {
	var req CustomAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		return nil, err
	}

	req.Amount = strings.TrimSpace(req.Amount)
	if req.Amount == "" {
		return &req, nil
	}

	parsed, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, &domain.ValidationError{Field: "amount", Message: "amount must be a decimal number"}
	}
	if !parsed.IsPositive() {
		return nil, &domain.ValidationError{Field: "amount", Message: "amount must be positive"}
	}
	req.parsed = parsed

	return &req, nil
}

type SubmitRequest struct {
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	Remarks       string               `json:"remarks"`
	CustomPurpose domain.FeeCategory   `json:"custom_purpose"`
}

func ValidateSubmitRequest(r *http.Request) (*SubmitRequest, error) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		return nil, err
	}

	if req.PaymentMethod == "" {
		return nil, &domain.ValidationError{Field: "payment_method", Message: "payment_method is required"}
	}
	if !req.PaymentMethod.Valid() {
		return nil, &domain.ValidationError{Field: "payment_method", Message: "unknown payment method"}
	}
	if req.CustomPurpose != "" && !req.CustomPurpose.Valid() {
		return nil, &domain.ValidationError{Field: "custom_purpose", Message: "unknown fee category"}
	}

	return &req, nil
}

type RegenerateRequest struct {
	TransactionRef string `json:"transaction_reference"`
}

func ValidateRegenerateRequest(r *http.Request) (*RegenerateRequest, error) {
	var req RegenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		return nil, err
	}

	req.TransactionRef = strings.TrimSpace(req.TransactionRef)
	if req.TransactionRef == "" {
		return nil, &domain.ValidationError{Field: "transaction_reference", Message: "transaction_reference is required"}
	}

	return &req, nil
}
