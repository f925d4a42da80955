package domain

// ValidationError blocks a payment before any network call is made. It
// is always recoverable locally.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// SubmissionRejectedError means the ledger service explicitly declined
// the payment. The message is the server's own and must be surfaced
// verbatim. No retry is attempted.
type SubmissionRejectedError struct {
	Message string
}

func (e *SubmissionRejectedError) Error() string {
	if e.Message == "" {
		return "payment rejected by ledger service"
	}
	return e.Message
}

// UnknownOutcomeError marks a timeout or transport failure where the
// payment may or may not have been applied server-side. Never retried
// automatically: a blind retry risks double-charging when the first
// attempt succeeded but the response was lost.
type UnknownOutcomeError struct {
	Err error
}

func (e *UnknownOutcomeError) Error() string {
	return "payment outcome unknown: " + e.Err.Error()
}

func (e *UnknownOutcomeError) Unwrap() error { return e.Err }

// ReceiptGenerationError is secondary: the payment is already committed
// and this never implies payment failure.
type ReceiptGenerationError struct {
	Err error
}

func (e *ReceiptGenerationError) Error() string {
	return "receipt generation failed: " + e.Err.Error()
}

func (e *ReceiptGenerationError) Unwrap() error { return e.Err }

// RefreshError is secondary: re-fetching authoritative balances failed
// after a committed payment. Reported as a warning, never reversed.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return "balance refresh failed: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() error { return e.Err }
