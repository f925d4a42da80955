package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"feepay-engine/internal/clients"
	"feepay-engine/internal/domain"

	"github.com/google/uuid"
)

type DocumentService interface {
	GenerateReceipt(ctx context.Context, transactionRef string) ([]byte, error)
	FetchReceipt(ctx context.Context, transactionRef string) ([]byte, error)
}

type ArtifactStore interface {
	Save(ctx context.Context, fileName string, data []byte) (string, error)
	Open(fileName string) (io.ReadCloser, error)
	Remove(fileName string) error
	GetURL(fileName string) string
}

// Archive is the durable settled-receipt copy; optional.
type Archive interface {
	Archive(ctx context.Context, transactionRef string, data []byte) (string, error)
	Fetch(ctx context.Context, transactionRef string) ([]byte, error)
	GetTemporaryURL(ctx context.Context, transactionRef string, ttl time.Duration) (string, error)
}

const (
	receiptSetKey = "receipt_ids"
	receiptTTL    = 30 * 24 * time.Hour
	archiveURLTTL = 15 * time.Minute
)

// ReceiptRecord is the metadata kept per generated receipt.
type ReceiptRecord struct {
	TransactionRef string    `json:"transaction_ref"`
	StudentID      string    `json:"student_id,omitempty"`
	UserID         int64     `json:"user_id"`
	FileName       string    `json:"file_name"`
	GeneratedAt    time.Time `json:"generated_at"`
	Regenerated    bool      `json:"regenerated,omitempty"`
}

// ReceiptManager owns the receipt artifact lifecycle: generate (or
// regenerate for a historical transaction), hand out readers for
// preview/download/print, and release the artifact's storage. Handles
// are caller-owned; the manager itself is stateless apart from the
// metadata index.
type ReceiptManager struct {
	docs    DocumentService
	store   ArtifactStore
	archive Archive
	redis   *clients.RedisClient
}

func NewReceiptManager(docs DocumentService, store ArtifactStore, archive Archive, redis *clients.RedisClient) *ReceiptManager {
	return &ReceiptManager{docs: docs, store: store, archive: archive, redis: redis}
}

// DownloadFilename derives the user-facing artifact name from the
// transaction reference, deterministically.
func DownloadFilename(h *domain.ReceiptHandle) string {
	return fmt.Sprintf("receipt_%s.pdf", h.TransactionRef)
}

// Generate requests artifact creation from the document service and
// returns an owned handle. Failure is a ReceiptGenerationError and never
// implies payment failure.
func (m *ReceiptManager) Generate(ctx context.Context, transactionRef, studentID string, userID int64) (*domain.ReceiptHandle, error) {
	data, err := m.docs.GenerateReceipt(ctx, transactionRef)
	if err != nil {
		return nil, &domain.ReceiptGenerationError{Err: err}
	}

	handle, err := m.storeArtifact(ctx, transactionRef, data)
	if err != nil {
		return nil, err
	}

	if m.archive != nil {
		if _, err := m.archive.Archive(ctx, transactionRef, data); err != nil {
			log.Printf("[RECEIPT] archive of %s failed: %v", transactionRef, err)
		}
	}

	m.saveRecord(ctx, ReceiptRecord{
		TransactionRef: transactionRef,
		StudentID:      studentID,
		UserID:         userID,
		FileName:       handle.FileName,
		GeneratedAt:    handle.GeneratedAt,
	})

	return handle, nil
}

// Regenerate re-creates the artifact for an already-settled transaction,
// independent of any submission flow. The archive is preferred; the
// document service is the fallback.
func (m *ReceiptManager) Regenerate(ctx context.Context, transactionRef string, userID int64) (*domain.ReceiptHandle, error) {
	var (
		data []byte
		err  error
	)

	fromArchive := false
	if m.archive != nil {
		data, err = m.archive.Fetch(ctx, transactionRef)
		if err == nil && len(data) > 0 {
			fromArchive = true
		}
	}

	if !fromArchive {
		data, err = m.docs.FetchReceipt(ctx, transactionRef)
		if err != nil {
			return nil, &domain.ReceiptGenerationError{Err: err}
		}
	}

	handle, err := m.storeArtifact(ctx, transactionRef, data)
	if err != nil {
		return nil, err
	}

	if !fromArchive && m.archive != nil {
		if _, err := m.archive.Archive(ctx, transactionRef, data); err != nil {
			log.Printf("[RECEIPT] archive of %s failed: %v", transactionRef, err)
		}
	}

	m.saveRecord(ctx, ReceiptRecord{
		TransactionRef: transactionRef,
		UserID:         userID,
		FileName:       handle.FileName,
		GeneratedAt:    handle.GeneratedAt,
		Regenerated:    true,
	})

	return handle, nil
}

func (m *ReceiptManager) storeArtifact(ctx context.Context, transactionRef string, data []byte) (*domain.ReceiptHandle, error) {
	saved, err := m.store.Save(ctx, fmt.Sprintf("receipt_%s.pdf", transactionRef), data)
	if err != nil {
		return nil, &domain.ReceiptGenerationError{Err: err}
	}

	return domain.NewReceiptHandle(
		uuid.NewString(),
		transactionRef,
		saved,
		time.Now(),
		func() error { return m.store.Remove(saved) },
	), nil
}

// Preview opens the artifact for viewing without transferring ownership
// of the handle.
func (m *ReceiptManager) Preview(h *domain.ReceiptHandle) (io.ReadCloser, error) {
	return m.open(h)
}

// Download opens the artifact for delivery and returns the deterministic
// filename alongside.
func (m *ReceiptManager) Download(h *domain.ReceiptHandle) (io.ReadCloser, string, error) {
	r, err := m.open(h)
	if err != nil {
		return nil, "", err
	}
	return r, DownloadFilename(h), nil
}

// Print opens the artifact as a print-ready stream.
func (m *ReceiptManager) Print(h *domain.ReceiptHandle) (io.ReadCloser, error) {
	return m.open(h)
}

func (m *ReceiptManager) open(h *domain.ReceiptHandle) (io.ReadCloser, error) {
	if h == nil {
		return nil, errors.New("no receipt handle")
	}
	if h.Released() {
		return nil, errors.New("receipt handle already released")
	}
	return m.store.Open(h.FileName)
}

// Release reclaims the artifact's storage. Idempotent; must run on every
// exit path of the handle's owner.
func (m *ReceiptManager) Release(h *domain.ReceiptHandle) error {
	if h == nil {
		return nil
	}
	return h.Release()
}

// URL returns the public URL of the live artifact.
func (m *ReceiptManager) URL(h *domain.ReceiptHandle) string {
	if h == nil {
		return ""
	}
	return m.store.GetURL(h.FileName)
}

// ArchiveURL presigns a time-limited link to the archived copy of a
// settled receipt. Empty when no archive is configured or presigning
// fails; the local artifact stays the primary access path.
func (m *ReceiptManager) ArchiveURL(ctx context.Context, transactionRef string) string {
	if m.archive == nil {
		return ""
	}
	url, err := m.archive.GetTemporaryURL(ctx, transactionRef, archiveURLTTL)
	if err != nil {
		log.Printf("[RECEIPT] presign archive url for %s failed: %v", transactionRef, err)
		return ""
	}
	return url
}

func (m *ReceiptManager) saveRecord(ctx context.Context, rec ReceiptRecord) {
	if m.redis == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	key := "receipts:" + rec.TransactionRef
	if err := m.redis.Set(ctx, key, string(data), receiptTTL); err != nil {
		log.Printf("[RECEIPT] save record %s failed: %v", key, err)
		return
	}
	_ = m.redis.SAdd(ctx, receiptSetKey, key)
}

// ListReceipts returns the metadata index for one user, newest first.
func (m *ReceiptManager) ListReceipts(ctx context.Context, userID int64) ([]ReceiptRecord, error) {
	if m.redis == nil {
		return nil, errors.New("redis client not configured")
	}

	keys, err := m.redis.SMembers(ctx, receiptSetKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt keys: %w", err)
	}

	var records []ReceiptRecord
	for _, key := range keys {
		data, err := m.redis.Get(ctx, key)
		if err != nil {
			continue
		}

		var rec ReceiptRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}

		if rec.UserID == userID {
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].GeneratedAt.After(records[j].GeneratedAt)
	})

	return records, nil
}
