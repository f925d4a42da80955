package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type DocumentConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DocumentClient consumes the external document service that renders
// receipt artifacts. The artifact is opaque bytes; this client never
// inspects it.
type DocumentClient struct {
	http    *http.Client
	baseURL string
}

func NewDocumentClient(cfg DocumentConfig) *DocumentClient {
	return &DocumentClient{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: trimTrailingSlash(cfg.BaseURL),
	}
}

// GenerateReceipt asks the document service to render a receipt for a
// settled transaction: POST receipts/generate.
func (c *DocumentClient) GenerateReceipt(ctx context.Context, transactionRef string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{"transaction_ref": transactionRef})
	if err != nil {
		return nil, fmt.Errorf("marshal receipt request: %w", err)
	}

	endpoint := c.baseURL + "/receipts/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build receipt request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.fetchArtifact(req)
}

// FetchReceipt retrieves a previously generated receipt for a historical
// transaction: GET receipts/{id}.
func (c *DocumentClient) FetchReceipt(ctx context.Context, transactionRef string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/receipts/%s", c.baseURL, url.PathEscape(transactionRef))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build receipt request: %w", err)
	}

	return c.fetchArtifact(req)
}

func (c *DocumentClient) fetchArtifact(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("document service call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document service returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read receipt artifact: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("document service returned an empty artifact")
	}

	return data, nil
}
