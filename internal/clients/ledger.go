package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"feepay-engine/internal/domain"
)

type LedgerConfig struct {
	BaseURL string
	Timeout time.Duration
}

// LedgerClient talks to the external ledger service that holds the
// authoritative fee state. A payment request is one POST carrying all
// line items; the ledger applies them all-or-nothing. No retry lives
// here: a lost response is reported as an unknown outcome and the
// decision to resubmit belongs to the user.
type LedgerClient struct {
	http    *http.Client
	baseURL string
}

func NewLedgerClient(cfg LedgerConfig) *LedgerClient {
	return &LedgerClient{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: trimTrailingSlash(cfg.BaseURL),
	}
}

// PaymentAck is the ledger's acknowledgment of an applied payment.
type PaymentAck struct {
	TransactionRef string                     `json:"transaction_ref"`
	Balances       []domain.RawCategoryAmount `json:"balances"`
}

type ledgerErrorBody struct {
	Message string `json:"message"`
}

// PayByStudent submits the full request as a single atomic call:
// POST pay-by-student/{studentIdentifier}.
//
// Error mapping: an explicit non-2xx reply becomes a
// SubmissionRejectedError carrying the server's message verbatim; a
// transport failure or timeout becomes an UnknownOutcomeError, since the
// ledger may have applied the payment before the response was lost.
func (c *LedgerClient) PayByStudent(ctx context.Context, req *domain.PaymentRequest) (*PaymentAck, error) {
	body := struct {
		Details []domain.PaymentLineItem `json:"details"`
		Remarks string                   `json:"remarks,omitempty"`
	}{
		Details: req.Details,
		Remarks: req.Remarks,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/pay-by-student/%s", c.baseURL, url.PathEscape(req.StudentIdentifier))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &domain.UnknownOutcomeError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody ledgerErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Message == "" {
			errBody.Message = fmt.Sprintf("ledger service returned status %d", resp.StatusCode)
		}
		return nil, &domain.SubmissionRejectedError{Message: errBody.Message}
	}

	var ack PaymentAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		// the payment was accepted but the acknowledgment is unreadable
		return nil, &domain.UnknownOutcomeError{Err: fmt.Errorf("decode payment ack: %w", err)}
	}
	if ack.TransactionRef == "" {
		return nil, &domain.UnknownOutcomeError{Err: errors.New("payment ack missing transaction reference")}
	}

	return &ack, nil
}

// IsTimeout reports whether a transport error was a deadline problem,
// so the failure notification can phrase the unknown outcome as a
// timeout instead of a generic transport error.
func IsTimeout(err error) bool {
	var ue *domain.UnknownOutcomeError
	if errors.As(err, &ue) {
		err = ue.Err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
