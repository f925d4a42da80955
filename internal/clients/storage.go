package clients

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// ArtifactStorage keeps generated receipt artifacts on the local
// filesystem while a handle to them is alive. Files carry a random
// prefix so concurrent generations for the same transaction never
// collide. The cleanup sweep is the backstop for handles that were
// never released.
type ArtifactStorage struct {
	BaseDir      string // directory holding artifact files
	PublicPrefix string // URL prefix where artifacts are served, e.g. "/files"
	BaseURL      string // optional absolute base URL (scheme+host[:port])
}

// NewArtifactStorage creates the store; baseDir is created if missing.
func NewArtifactStorage(baseDir, publicPrefix, baseURL string) (*ArtifactStorage, error) {
	if baseDir == "" {
		baseDir = "./receipts"
	}
	if publicPrefix == "" {
		publicPrefix = "/files"
	}

	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure artifact dir %q: %w", baseDir, err)
	}

	return &ArtifactStorage{BaseDir: baseDir, PublicPrefix: publicPrefix, BaseURL: baseURL}, nil
}

// Save writes data under a unique name (random prefix + provided name)
// and returns the stored name.
func (s *ArtifactStorage) Save(ctx context.Context, fileName string, data []byte) (string, error) {
	// sanitize provided filename to avoid path traversal
	fileName = filepath.Base(fileName)

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return "", fmt.Errorf("failed to generate file name: %w", err)
	}
	unique := hex.EncodeToString(randBytes)
	final := fmt.Sprintf("%s_%s", unique, fileName)

	path := filepath.Join(s.BaseDir, final)
	// write atomically: tmp file then rename
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("failed to finalize artifact: %w", err)
	}

	return final, nil
}

// Open returns a reader over a stored artifact. The caller closes it.
func (s *ArtifactStorage) Open(fileName string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.BaseDir, filepath.Base(fileName)))
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact %q: %w", fileName, err)
	}
	return f, nil
}

// Remove deletes a stored artifact. Removing an already-removed file is
// not an error; handle release must stay idempotent.
func (s *ArtifactStorage) Remove(fileName string) error {
	err := os.Remove(filepath.Join(s.BaseDir, filepath.Base(fileName)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove artifact %q: %w", fileName, err)
	}
	return nil
}

// GetURL returns the public URL for a stored artifact: absolute when
// BaseURL is configured, otherwise PublicPrefix-relative.
func (s *ArtifactStorage) GetURL(fileName string) string {
	prefix := s.PublicPrefix
	if prefix == "" {
		prefix = "/files"
	}
	if prefix[0] != '/' {
		prefix = "/" + prefix
	}

	if s.BaseURL != "" {
		base := s.BaseURL
		if base[len(base)-1] == '/' {
			base = base[:len(base)-1]
		}
		return fmt.Sprintf("%s%s/%s", base, prefix, fileName)
	}

	return fmt.Sprintf("%s/%s", prefix, fileName)
}

// CleanupOlderThan deletes artifacts older than the given duration.
func (s *ArtifactStorage) CleanupOlderThan(d time.Duration) error {
	now := time.Now()
	return filepath.WalkDir(s.BaseDir, func(path string, de fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if de.IsDir() {
			return nil
		}
		info, err := de.Info()
		if err != nil {
			return nil
		}
		if now.Sub(info.ModTime()) > d {
			_ = os.Remove(path) // best-effort
		}
		return nil
	})
}
