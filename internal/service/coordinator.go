package service

import (
	"context"
	"errors"
	"sync"

	"feepay-engine/internal/clients"
	"feepay-engine/internal/domain"
)

// SubmissionState is the observable phase of one payment attempt.
type SubmissionState string

const (
	StateIdle         SubmissionState = "IDLE"
	StateSubmitting   SubmissionState = "SUBMITTING"
	StateSucceeded    SubmissionState = "SUCCEEDED"
	StateFailed       SubmissionState = "FAILED"
	StateReceiptReady SubmissionState = "RECEIPT_READY"
)

type Ledger interface {
	PayByStudent(ctx context.Context, req *domain.PaymentRequest) (*clients.PaymentAck, error)
}

// ReceiptAcquirer produces a receipt handle for a settled transaction
// and returns the handle plus its public URL. Implemented by the payment
// session, which also owns handle supersession.
type ReceiptAcquirer interface {
	AcquireReceipt(ctx context.Context, transactionRef string) (*domain.ReceiptHandle, string, error)
}

type Refresher interface {
	Refresh(ctx context.Context, studentID string) ([]domain.FeeCategoryBalance, error)
}

type Notifier interface {
	NotifyPaymentSucceeded(ctx context.Context, userID int64, sessionID, transactionRef string) error
	NotifyPaymentFailed(ctx context.Context, userID int64, sessionID, errMsg string, unknownOutcome bool) error
	NotifyPaymentWarning(ctx context.Context, userID int64, sessionID, warning string) error
	NotifyReceiptReady(ctx context.Context, userID int64, sessionID, transactionRef, url, filename string) error
}

const (
	warnReceiptGeneration = "payment succeeded, but could not generate receipt"
	warnRefresh           = "payment succeeded, but could not refresh view"
)

// Coordinator drives one payment attempt through
// IDLE -> SUBMITTING -> {SUCCEEDED, FAILED}, with RECEIPT_READY entered
// from SUCCEEDED once the receipt handle lands. The ledger call is a
// single atomic operation; on failure there is no automatic retry
// (a blind retry could double-charge when the first attempt succeeded
// but its response was lost). On success, receipt generation and
// balance reconciliation run concurrently; their failures are warnings,
// never a reversal of the committed payment.
type Coordinator struct {
	ledger      Ledger
	receipts    ReceiptAcquirer
	refresher   Refresher
	notifier    Notifier
	onRefreshed func([]domain.FeeCategoryBalance)

	userID    int64
	sessionID string

	mu             sync.Mutex
	state          SubmissionState
	submitErr      error
	warnings       []string
	transactionRef string

	done chan struct{}
}

func NewCoordinator(ledger Ledger, receipts ReceiptAcquirer, refresher Refresher, notifier Notifier, userID int64, sessionID string, onRefreshed func([]domain.FeeCategoryBalance)) *Coordinator {
	return &Coordinator{
		ledger:      ledger,
		receipts:    receipts,
		refresher:   refresher,
		notifier:    notifier,
		onRefreshed: onRefreshed,
		userID:      userID,
		sessionID:   sessionID,
		state:       StateIdle,
	}
}

// Submit starts the attempt in the background and returns immediately.
// A second Submit while one is in flight is refused before any network
// call, as is a Submit after the payment already succeeded (a new
// payment needs a new session). A Submit after FAILED is an explicit
// user re-submission and is allowed.
func (c *Coordinator) Submit(req *domain.PaymentRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateSubmitting:
		return &domain.ValidationError{Field: "state", Message: "a submission is already in flight"}
	case StateSucceeded, StateReceiptReady:
		return &domain.ValidationError{Field: "state", Message: "payment already submitted"}
	}

	c.state = StateSubmitting
	c.submitErr = nil
	c.warnings = nil
	c.done = make(chan struct{})

	// Detached from any request context: once sent, the payment is not
	// abortable by the client, and a late result must still be applied
	// and reported. The outbound client's own timeout bounds the call.
	go c.run(context.Background(), req, c.done)

	return nil
}

func (c *Coordinator) run(ctx context.Context, req *domain.PaymentRequest, done chan struct{}) {
	defer close(done)

	ack, err := c.ledger.PayByStudent(ctx, req)
	if err != nil {
		c.mu.Lock()
		c.state = StateFailed
		c.submitErr = err
		c.mu.Unlock()

		if c.notifier != nil {
			var unknown *domain.UnknownOutcomeError
			msg := err.Error()
			if clients.IsTimeout(err) {
				msg = "payment request timed out; verify whether it was applied before retrying"
			}
			_ = c.notifier.NotifyPaymentFailed(ctx, c.userID, c.sessionID, msg, errors.As(err, &unknown))
		}
		return
	}

	c.mu.Lock()
	c.state = StateSucceeded
	c.transactionRef = ack.TransactionRef
	c.mu.Unlock()

	if c.notifier != nil {
		_ = c.notifier.NotifyPaymentSucceeded(ctx, c.userID, c.sessionID, ack.TransactionRef)
	}

	// Receipt generation and reconciliation refresh proceed
	// independently; neither blocks the other and neither failure flips
	// the state back to FAILED.
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		c.generateReceipt(ctx, ack.TransactionRef)
	}()

	go func() {
		defer wg.Done()
		c.refreshBalances(ctx, req.StudentIdentifier)
	}()

	wg.Wait()
}

func (c *Coordinator) generateReceipt(ctx context.Context, transactionRef string) {
	if c.receipts == nil {
		return
	}

	handle, url, err := c.receipts.AcquireReceipt(ctx, transactionRef)
	if err != nil {
		c.addWarning(warnReceiptGeneration)
		if c.notifier != nil {
			_ = c.notifier.NotifyPaymentWarning(ctx, c.userID, c.sessionID, warnReceiptGeneration)
		}
		return
	}

	c.mu.Lock()
	if c.state == StateSucceeded {
		c.state = StateReceiptReady
	}
	c.mu.Unlock()

	if c.notifier != nil {
		_ = c.notifier.NotifyReceiptReady(ctx, c.userID, c.sessionID, transactionRef, url, DownloadFilename(handle))
	}
}

func (c *Coordinator) refreshBalances(ctx context.Context, studentID string) {
	if c.refresher == nil {
		return
	}

	balances, err := c.refresher.Refresh(ctx, studentID)
	if err != nil {
		c.addWarning(warnRefresh)
		if c.notifier != nil {
			_ = c.notifier.NotifyPaymentWarning(ctx, c.userID, c.sessionID, warnRefresh)
		}
		return
	}

	if c.onRefreshed != nil {
		c.onRefreshed(balances)
	}
}

func (c *Coordinator) addWarning(w string) {
	c.mu.Lock()
	c.warnings = append(c.warnings, w)
	c.mu.Unlock()
}

func (c *Coordinator) State() SubmissionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Wait blocks until the current attempt (including its secondary
// receipt/refresh work) has finished. Returns immediately when nothing
// was ever submitted.
func (c *Coordinator) Wait() {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done == nil {
		return
	}
	<-done
}

// CoordinatorSnapshot is the observable submission state for rendering.
type CoordinatorSnapshot struct {
	State          SubmissionState `json:"state"`
	TransactionRef string          `json:"transaction_ref,omitempty"`
	Error          string          `json:"error,omitempty"`
	ErrorKind      string          `json:"error_kind,omitempty"`
	UnknownOutcome bool            `json:"unknown_outcome,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
}

func (c *Coordinator) Snapshot() CoordinatorSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := CoordinatorSnapshot{
		State:          c.state,
		TransactionRef: c.transactionRef,
		Warnings:       append([]string(nil), c.warnings...),
	}

	if c.submitErr != nil {
		snap.Error = c.submitErr.Error()
		snap.ErrorKind = errorKind(c.submitErr)
		var unknown *domain.UnknownOutcomeError
		snap.UnknownOutcome = errors.As(c.submitErr, &unknown)
	}

	return snap
}

func errorKind(err error) string {
	var (
		ve *domain.ValidationError
		re *domain.SubmissionRejectedError
		ue *domain.UnknownOutcomeError
	)
	switch {
	case errors.As(err, &ve):
		return "validation"
	case errors.As(err, &re):
		return "rejected"
	case errors.As(err, &ue):
		return "unknown_outcome"
	}
	return "internal"
}
