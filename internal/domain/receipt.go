package domain

import (
	"sync"
	"sync/atomic"
	"time"
)

// ReceiptHandle is an owned reference to a generated receipt artifact.
// The creator must call Release exactly once when done; Release is
// idempotent so calling it on every exit path is safe. There is no
// finalizer reclaiming the artifact: a handle left unreleased leaks the
// file until the storage cleanup sweep catches it.
type ReceiptHandle struct {
	ID             string    `json:"id"`
	TransactionRef string    `json:"transaction_ref"`
	FileName       string    `json:"file_name"`
	GeneratedAt    time.Time `json:"generated_at"`

	releaseOnce sync.Once
	released    atomic.Bool
	releaseFn   func() error
}

// NewReceiptHandle wires the artifact reference to its release function
// (typically removal of the stored file).
func NewReceiptHandle(id, transactionRef, fileName string, generatedAt time.Time, release func() error) *ReceiptHandle {
	return &ReceiptHandle{
		ID:             id,
		TransactionRef: transactionRef,
		FileName:       fileName,
		GeneratedAt:    generatedAt,
		releaseFn:      release,
	}
}

// Release reclaims the artifact's underlying resource. Only the first
// call runs the release function; later calls return nil.
func (h *ReceiptHandle) Release() error {
	var err error
	h.releaseOnce.Do(func() {
		h.released.Store(true)
		if h.releaseFn != nil {
			err = h.releaseFn()
		}
	})
	return err
}

func (h *ReceiptHandle) Released() bool {
	return h.released.Load()
}
