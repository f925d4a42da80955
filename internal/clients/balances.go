package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"feepay-engine/internal/domain"
)

// SnapshotCache records the last fetched balance snapshot per student.
// It is write-only on the read path: balance reads always hit the
// service, so a recorded snapshot can never be served stale to the
// engine. Satisfied by *RedisClient.
type SnapshotCache interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type BalanceConfig struct {
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// BalanceClient reads (category, total, paid) triples from the external
// balance query service and derives outstanding amounts. Every read
// issues a fresh round trip with caching disabled, on initial load and
// on reconciliation alike; the engine never renders a snapshot older
// than the response it just received. The snapshot record in redis is
// kept for observability and is overwritten on success, dropped on
// failure.
type BalanceClient struct {
	http     *http.Client
	baseURL  string
	cache    SnapshotCache
	cacheTTL time.Duration
}

func NewBalanceClient(cfg BalanceConfig, cache SnapshotCache) *BalanceClient {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &BalanceClient{
		http:     &http.Client{Timeout: cfg.Timeout},
		baseURL:  trimTrailingSlash(cfg.BaseURL),
		cache:    cache,
		cacheTTL: ttl,
	}
}

func balanceCacheKey(studentID string) string {
	return "balances:" + studentID
}

// Fetch returns freshly derived balances for a student. The snapshot
// record is replaced wholesale, never merged; a failed read drops it so
// nothing stale survives the failure.
func (c *BalanceClient) Fetch(ctx context.Context, studentID string) ([]domain.FeeCategoryBalance, error) {
	if studentID == "" {
		return nil, fmt.Errorf("student identifier is required")
	}

	endpoint := fmt.Sprintf("%s/balances/%s", c.baseURL, url.PathEscape(studentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build balance request: %w", err)
	}
	// disable any intermediary response cache; the caller needs truth
	req.Header.Set("Cache-Control", "no-cache, no-store")
	req.Header.Set("Pragma", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		c.dropSnapshot(ctx, studentID)
		return nil, fmt.Errorf("balance query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.dropSnapshot(ctx, studentID)
		return nil, fmt.Errorf("balance service returned status %d", resp.StatusCode)
	}

	var raw []domain.RawCategoryAmount
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		c.dropSnapshot(ctx, studentID)
		return nil, fmt.Errorf("decode balance response: %w", err)
	}

	if c.cache != nil {
		if data, err := json.Marshal(raw); err == nil {
			_ = c.cache.Set(ctx, balanceCacheKey(studentID), string(data), c.cacheTTL)
		}
	}

	return domain.DeriveBalances(raw), nil
}

func (c *BalanceClient) dropSnapshot(ctx context.Context, studentID string) {
	if c.cache == nil {
		return
	}
	_ = c.cache.Del(ctx, balanceCacheKey(studentID))
}
