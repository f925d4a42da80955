package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"feepay-engine/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrSessionNotFound = errors.New("payment session not found")

// PaymentSession is one open payment dialog for one student: the
// selection model, the balance snapshot it renders against, the
// submission coordinator, and the receipt handle it exclusively owns.
type PaymentSession struct {
	ID        string
	UserID    int64
	StudentID string

	receipts *ReceiptManager

	mu          sync.Mutex
	selection   *domain.PaymentSelection
	balances    []domain.FeeCategoryBalance
	coordinator *Coordinator
	handle      *domain.ReceiptHandle
	lastActive  time.Time
	closed      bool
}

func (s *PaymentSession) touch() {
	s.lastActive = time.Now()
}

// ToggleCategory includes or excludes one category in the selection.
func (s *PaymentSession) ToggleCategory(key domain.CategoryKey, included bool) error {
	if !key.Category.Valid() {
		return &domain.ValidationError{Field: "category", Message: fmt.Sprintf("unknown fee category %q", key.Category)}
	}
	if key.Category.HasTerm() && key.TermNumber <= 0 {
		return &domain.ValidationError{Field: "term_number", Message: "term number is required for this category"}
	}
	if !key.Category.HasTerm() {
		key.TermNumber = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionNotFound
	}
	s.touch()
	s.selection.ToggleCategory(key, included)
	return nil
}

// SetCustomAmount switches the selection to an override amount.
func (s *PaymentSession) SetCustomAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return &domain.ValidationError{Field: "amount", Message: "custom amount must be positive"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionNotFound
	}
	s.touch()
	s.selection.SetCustomAmount(amount)
	return nil
}

func (s *PaymentSession) ClearCustomAmount() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionNotFound
	}
	s.touch()
	s.selection.ClearCustomAmount()
	return nil
}

// Submit builds a fresh payment request from the current selection state
// (requests are never reused across attempts) and hands it to the
// coordinator. Validation failures return before any network call.
func (s *PaymentSession) Submit(method domain.PaymentMethod, opts BuildOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionNotFound
	}
	s.touch()

	req, err := BuildPaymentRequest(s.StudentID, s.selection, s.balances, method, opts)
	if err != nil {
		return err
	}

	return s.coordinator.Submit(req)
}

// AcquireReceipt implements ReceiptAcquirer for the coordinator. The new
// handle supersedes any prior one, which is released immediately after
// the new one is acquired and never left dangling.
func (s *PaymentSession) AcquireReceipt(ctx context.Context, transactionRef string) (*domain.ReceiptHandle, string, error) {
	handle, err := s.receipts.Generate(ctx, transactionRef, s.StudentID, s.UserID)
	if err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	prior := s.handle
	s.handle = handle
	s.mu.Unlock()

	if prior != nil {
		_ = prior.Release()
	}

	return handle, s.receipts.URL(handle), nil
}

// Handle returns the session's current receipt handle, nil when none.
func (s *PaymentSession) Handle() *domain.ReceiptHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// replaceBalances applies a reconciliation result: the snapshot is
// swapped wholesale, never merged.
func (s *PaymentSession) replaceBalances(balances []domain.FeeCategoryBalance) {
	s.mu.Lock()
	s.balances = balances
	s.mu.Unlock()
}

// ReceiptInfo is the receipt part of the observable session state.
type ReceiptInfo struct {
	TransactionRef string    `json:"transaction_ref"`
	URL            string    `json:"url"`
	Filename       string    `json:"filename"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// SessionSnapshot is everything the UI needs to render the dialog.
type SessionSnapshot struct {
	ID         string                      `json:"id"`
	StudentID  string                      `json:"student_identifier"`
	Balances   []domain.FeeCategoryBalance `json:"balances"`
	Selection  domain.SelectionSnapshot    `json:"selection"`
	Submission CoordinatorSnapshot         `json:"submission"`
	Receipt    *ReceiptInfo                `json:"receipt,omitempty"`
}

func (s *PaymentSession) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := SessionSnapshot{
		ID:         s.ID,
		StudentID:  s.StudentID,
		Balances:   append([]domain.FeeCategoryBalance(nil), s.balances...),
		Selection:  s.selection.Snapshot(s.balances),
		Submission: s.coordinator.Snapshot(),
	}

	if s.handle != nil && !s.handle.Released() {
		snap.Receipt = &ReceiptInfo{
			TransactionRef: s.handle.TransactionRef,
			URL:            s.receipts.URL(s.handle),
			Filename:       DownloadFilename(s.handle),
			GeneratedAt:    s.handle.GeneratedAt,
		}
	}

	return snap
}

// SessionRegistry owns all open payment sessions. At most one
// coordinator is active per session, and the submit guard lives in the
// coordinator itself.
type SessionRegistry struct {
	ledger     Ledger
	balances   BalanceSource
	receipts   *ReceiptManager
	reconciler Refresher
	notifier   Notifier

	mu       sync.Mutex
	sessions map[string]*PaymentSession
}

func NewSessionRegistry(ledger Ledger, balances BalanceSource, receipts *ReceiptManager, reconciler Refresher, notifier Notifier) *SessionRegistry {
	return &SessionRegistry{
		ledger:     ledger,
		balances:   balances,
		receipts:   receipts,
		reconciler: reconciler,
		notifier:   notifier,
		sessions:   make(map[string]*PaymentSession),
	}
}

// Open starts a payment dialog: fetches the student's balances fresh
// and wires a fresh selection and coordinator.
func (r *SessionRegistry) Open(ctx context.Context, userID int64, studentID string) (*PaymentSession, error) {
	if studentID == "" {
		return nil, &domain.ValidationError{Field: "student_identifier", Message: "student identifier is required"}
	}

	balances, err := r.balances.Fetch(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load balances for %s: %w", studentID, err)
	}

	sess := &PaymentSession{
		ID:         uuid.NewString(),
		UserID:     userID,
		StudentID:  studentID,
		receipts:   r.receipts,
		selection:  domain.NewPaymentSelection(),
		balances:   balances,
		lastActive: time.Now(),
	}
	sess.coordinator = NewCoordinator(r.ledger, sess, r.reconciler, r.notifier, userID, sess.ID, sess.replaceBalances)

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	return sess, nil
}

// Get returns a session owned by the user.
func (r *SessionRegistry) Get(id string, userID int64) (*PaymentSession, error) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	r.mu.Unlock()

	if !ok || sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close ends the dialog. The receipt handle is released on this exit
// path. Closing while a submission is in flight does not cancel it (the
// remote payment is not abortable), so release is deferred until the
// outcome has arrived and been routed to the notifier.
func (r *SessionRegistry) Close(id string, userID int64) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok && sess.UserID == userID {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok || sess.UserID != userID {
		return ErrSessionNotFound
	}

	sess.detach()
	return nil
}

// detach marks the session closed and releases its receipt handle once
// the coordinator has settled. Waiting matters: a handle acquired by
// still-running secondary work would otherwise land on the dead session
// and leak until the cleanup sweep. Wait returns immediately when
// nothing is in flight.
func (s *PaymentSession) detach() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	go func() {
		s.coordinator.Wait()
		s.mu.Lock()
		handle := s.handle
		s.handle = nil
		s.mu.Unlock()
		if handle != nil {
			_ = handle.Release()
		}
	}()
}

// SweepIdle closes sessions inactive for longer than maxIdle, releasing
// their handles. In-flight submissions are left alone.
func (r *SessionRegistry) SweepIdle(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	var expired []*PaymentSession
	for id, sess := range r.sessions {
		sess.mu.Lock()
		idle := sess.lastActive.Before(cutoff)
		submitting := sess.coordinator.State() == StateSubmitting
		sess.mu.Unlock()
		if idle && !submitting {
			delete(r.sessions, id)
			expired = append(expired, sess)
		}
	}
	r.mu.Unlock()

	for _, sess := range expired {
		sess.detach()
	}
}
