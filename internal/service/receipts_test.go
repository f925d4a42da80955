package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"feepay-engine/internal/clients"
	"feepay-engine/internal/domain"
)

type fakeDocuments struct {
	generated int
	fetched   int
	data      []byte
	err       error
	block     chan struct{} // when set, GenerateReceipt stalls until closed
}

func (f *fakeDocuments) GenerateReceipt(ctx context.Context, transactionRef string) ([]byte, error) {
	f.generated++
	if f.block != nil {
		<-f.block
	}
	return f.data, f.err
}

func (f *fakeDocuments) FetchReceipt(ctx context.Context, transactionRef string) ([]byte, error) {
	f.fetched++
	return f.data, f.err
}

type fakeArchive struct {
	stored     map[string][]byte
	archived   int
	fetchErr   error
	presignErr error
}

func newFakeArchive() *fakeArchive {
	return &fakeArchive{stored: make(map[string][]byte)}
}

func (f *fakeArchive) Archive(ctx context.Context, transactionRef string, data []byte) (string, error) {
	f.archived++
	f.stored[transactionRef] = data
	return "receipt_" + transactionRef + ".pdf", nil
}

func (f *fakeArchive) Fetch(ctx context.Context, transactionRef string) ([]byte, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	data, ok := f.stored[transactionRef]
	if !ok {
		return nil, errors.New("not archived")
	}
	return data, nil
}

func (f *fakeArchive) GetTemporaryURL(ctx context.Context, transactionRef string, ttl time.Duration) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return fmt.Sprintf("https://archive.local/receipt_%s.pdf?expires=%d", transactionRef, int(ttl.Seconds())), nil
}

func newTestStorage(t *testing.T) *clients.ArtifactStorage {
	t.Helper()
	storage, err := clients.NewArtifactStorage(t.TempDir(), "/files", "http://localhost:8020")
	if err != nil {
		t.Fatalf("storage init: %v", err)
	}
	return storage
}

func readAll(t *testing.T, r io.ReadCloser) []byte {
	t.Helper()
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	return data
}

func TestReceiptManager_GenerateAndRelease(t *testing.T) {
	storage := newTestStorage(t)
	docs := &fakeDocuments{data: []byte("%PDF-1.7 receipt body")}
	m := NewReceiptManager(docs, storage, nil, nil)

	h, err := m.Generate(context.Background(), "TX-200", "STU-42", 7)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if h.TransactionRef != "TX-200" {
		t.Errorf("handle ref = %s, want TX-200", h.TransactionRef)
	}
	if DownloadFilename(h) != "receipt_TX-200.pdf" {
		t.Errorf("download filename = %s", DownloadFilename(h))
	}

	path := filepath.Join(storage.BaseDir, h.FileName)
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("artifact not on disk: %v", err)
	}

	r, err := m.Preview(h)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if got := readAll(t, r); string(got) != "%PDF-1.7 receipt body" {
		t.Errorf("artifact content mismatch: %q", got)
	}

	dl, name, err := m.Download(h)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	readAll(t, dl)
	if name != "receipt_TX-200.pdf" {
		t.Errorf("download name = %s", name)
	}

	if err := m.Release(h); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("release must remove the stored artifact")
	}

	if err := m.Release(h); err != nil {
		t.Errorf("second release must be a no-op, got %v", err)
	}

	if _, err := m.Preview(h); err == nil {
		t.Error("preview after release must fail")
	}
}

func TestReceiptManager_GenerateFailureIsTyped(t *testing.T) {
	storage := newTestStorage(t)
	docs := &fakeDocuments{err: errors.New("document service down")}
	m := NewReceiptManager(docs, storage, nil, nil)

	_, err := m.Generate(context.Background(), "TX-201", "STU-42", 7)
	var rge *domain.ReceiptGenerationError
	if !errors.As(err, &rge) {
		t.Fatalf("expected ReceiptGenerationError, got %T: %v", err, err)
	}
}

func TestReceiptManager_GenerateArchivesCopy(t *testing.T) {
	storage := newTestStorage(t)
	archive := newFakeArchive()
	docs := &fakeDocuments{data: []byte("pdf-bytes")}
	m := NewReceiptManager(docs, storage, archive, nil)

	h, err := m.Generate(context.Background(), "TX-202", "STU-42", 7)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	defer m.Release(h)

	if archive.archived != 1 {
		t.Errorf("archive called %d times, want 1", archive.archived)
	}
	if string(archive.stored["TX-202"]) != "pdf-bytes" {
		t.Error("archived bytes mismatch")
	}
}

func TestReceiptManager_RegeneratePrefersArchive(t *testing.T) {
	storage := newTestStorage(t)
	archive := newFakeArchive()
	archive.stored["TX-203"] = []byte("archived copy")
	docs := &fakeDocuments{data: []byte("fresh copy")}
	m := NewReceiptManager(docs, storage, archive, nil)

	h, err := m.Regenerate(context.Background(), "TX-203", 7)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	defer m.Release(h)

	if docs.fetched != 0 {
		t.Error("document service must not be hit when the archive has the receipt")
	}

	r, err := m.Preview(h)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if got := readAll(t, r); string(got) != "archived copy" {
		t.Errorf("expected the archived bytes, got %q", got)
	}
	if archive.archived != 0 {
		t.Error("an archive hit must not be re-archived")
	}
}

func TestReceiptManager_RegenerateFallsBackToDocuments(t *testing.T) {
	storage := newTestStorage(t)
	archive := newFakeArchive()
	archive.fetchErr = errors.New("archive unavailable")
	docs := &fakeDocuments{data: []byte("fresh copy")}
	m := NewReceiptManager(docs, storage, archive, nil)

	h, err := m.Regenerate(context.Background(), "TX-204", 7)
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	defer m.Release(h)

	if docs.fetched != 1 {
		t.Errorf("document service fetched %d times, want 1", docs.fetched)
	}
	if archive.archived != 1 {
		t.Error("a document-service copy must be archived after the miss")
	}

	if !strings.HasSuffix(h.FileName, "receipt_TX-204.pdf") {
		t.Errorf("stored name should keep the deterministic suffix, got %s", h.FileName)
	}
}

func TestReceiptManager_ArchiveURL(t *testing.T) {
	storage := newTestStorage(t)
	docs := &fakeDocuments{data: []byte("x")}

	t.Run("presigned link when archived", func(t *testing.T) {
		m := NewReceiptManager(docs, storage, newFakeArchive(), nil)
		url := m.ArchiveURL(context.Background(), "TX-206")
		if !strings.Contains(url, "receipt_TX-206.pdf") {
			t.Errorf("unexpected archive URL: %s", url)
		}
	})

	t.Run("empty without archive", func(t *testing.T) {
		m := NewReceiptManager(docs, storage, nil, nil)
		if url := m.ArchiveURL(context.Background(), "TX-206"); url != "" {
			t.Errorf("expected empty URL, got %s", url)
		}
	})

	t.Run("empty on presign failure", func(t *testing.T) {
		archive := newFakeArchive()
		archive.presignErr = errors.New("presign unavailable")
		m := NewReceiptManager(docs, storage, archive, nil)
		if url := m.ArchiveURL(context.Background(), "TX-206"); url != "" {
			t.Errorf("presign failure must degrade to empty, got %s", url)
		}
	})
}

func TestReceiptManager_URL(t *testing.T) {
	storage := newTestStorage(t)
	docs := &fakeDocuments{data: []byte("x")}
	m := NewReceiptManager(docs, storage, nil, nil)

	h, err := m.Generate(context.Background(), "TX-205", "STU-42", 7)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	defer m.Release(h)

	url := m.URL(h)
	if !strings.Contains(url, "/files/") || !strings.HasSuffix(url, h.FileName) {
		t.Errorf("unexpected public URL: %s", url)
	}
	if m.URL(nil) != "" {
		t.Error("nil handle has no URL")
	}
}
