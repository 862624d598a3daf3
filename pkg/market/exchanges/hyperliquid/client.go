package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/syncx"
	"github.com/zeromicro/go-zero/core/threading"

	"tradeboard-api/pkg/market"
)

const (
	defaultBaseURL         = "https://api.hyperliquid.xyz/info"
	defaultHTTPTimeout     = 10 * time.Second
	defaultUniverseTTL     = 5 * time.Minute
	universeRefreshTimeout = 10 * time.Second

	universeKey = "meta"
)

// Client wraps access to the Hyperliquid info endpoint. Only the listed
// universe is cached; market context is fetched per call.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxRetries  int
	universeTTL time.Duration
	now         func() time.Time

	flight syncx.SingleFlight

	universeMu   sync.RWMutex
	symbolIndex  map[string]string
	universeMeta map[string]UniverseEntry
	refreshedAt  time.Time
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the default info endpoint URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithMaxRetries adjusts the retry budget. Zero means a single attempt.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// WithUniverseTTL sets how long the symbol listing is reused.
func WithUniverseTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.universeTTL = ttl
		}
	}
}

// NewClient constructs a Hyperliquid API client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: defaultHTTPTimeout},
		universeTTL: defaultUniverseTTL,
		now:         time.Now,
		flight:      syncx.NewSingleFlight(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// doRequest posts an InfoRequest and decodes the response into result.
func (c *Client) doRequest(ctx context.Context, req InfoRequest, result any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("hyperliquid: encode request: %w", err)
	}
	return market.Retry(ctx, c.maxRetries, func(ctx context.Context) error {
		return c.post(ctx, payload, result)
	})
}

func (c *Client) post(ctx context.Context, payload []byte, result any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("hyperliquid: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("hyperliquid: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("hyperliquid: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &market.StatusError{
			Status: resp.StatusCode,
			Err:    fmt.Errorf("hyperliquid: http status %d: %s", resp.StatusCode, string(body)),
		}
	}
	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("hyperliquid: decode response: %w", err)
		}
	}
	return nil
}

// assetContext fetches a fresh metaAndAssetCtxs snapshot and returns the
// context of symbol from it.
func (c *Client) assetContext(ctx context.Context, symbol string) (string, AssetCtx, error) {
	var payload MetaAndAssetCtxsResponse
	if err := c.doRequest(ctx, InfoRequest{Type: "metaAndAssetCtxs"}, &payload); err != nil {
		return "", AssetCtx{}, err
	}
	c.storeUniverse(payload.Universe)

	key := normalizeKey(symbol)
	if key != "" {
		for i, entry := range payload.Universe {
			if normalizeKey(entry.Name) != key || i >= len(payload.AssetCtxs) {
				continue
			}
			return strings.TrimSpace(entry.Name), payload.AssetCtxs[i], nil
		}
	}
	return "", AssetCtx{}, fmt.Errorf("hyperliquid: %q: %w", symbol, market.ErrSymbolNotFound)
}

// listUniverse fetches the listed universe and refreshes the cached index.
func (c *Client) listUniverse(ctx context.Context) ([]UniverseEntry, error) {
	var payload MetaResponse
	if err := c.doRequest(ctx, InfoRequest{Type: universeKey}, &payload); err != nil {
		return nil, err
	}
	c.storeUniverse(payload.Universe)
	logx.WithContext(ctx).Debugf("hyperliquid: universe refreshed, %d assets", len(payload.Universe))
	return payload.Universe, nil
}

func (c *Client) storeUniverse(entries []UniverseEntry) {
	index := make(map[string]string, len(entries))
	meta := make(map[string]UniverseEntry, len(entries))
	for _, entry := range entries {
		canonical := strings.TrimSpace(entry.Name)
		key := normalizeKey(canonical)
		if key == "" {
			continue
		}
		index[key] = canonical
		meta[canonical] = entry
	}

	c.universeMu.Lock()
	c.symbolIndex = index
	c.universeMeta = meta
	c.refreshedAt = c.now()
	c.universeMu.Unlock()
}

// universe returns the symbol index, refreshing it at most once per TTL. The
// refresh is shared by concurrent callers and runs detached from any one
// caller's context; each caller still stops waiting when its own ctx ends.
func (c *Client) universe(ctx context.Context) (map[string]string, error) {
	if index, ok := c.cachedIndex(); ok {
		return index, nil
	}

	done := make(chan error, 1)
	detached := context.WithoutCancel(ctx)
	threading.GoSafe(func() {
		_, err := c.flight.Do(universeKey, func() (any, error) {
			refreshCtx, cancel := context.WithTimeout(detached, universeRefreshTimeout)
			defer cancel()
			_, err := c.listUniverse(refreshCtx)
			return nil, err
		})
		done <- err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, err
		}
	}
	c.universeMu.RLock()
	defer c.universeMu.RUnlock()
	return c.symbolIndex, nil
}

func (c *Client) cachedIndex() (map[string]string, bool) {
	c.universeMu.RLock()
	defer c.universeMu.RUnlock()
	if c.symbolIndex == nil || c.now().Sub(c.refreshedAt) >= c.universeTTL {
		return nil, false
	}
	return c.symbolIndex, true
}

// canonicalSymbolFor resolves any accepted spelling to the listed coin name.
func (c *Client) canonicalSymbolFor(ctx context.Context, symbol string) (string, error) {
	index, err := c.universe(ctx)
	if err != nil {
		return "", err
	}
	canonical, ok := index[normalizeKey(symbol)]
	if !ok {
		return "", fmt.Errorf("hyperliquid: %q: %w", symbol, market.ErrSymbolNotFound)
	}
	return canonical, nil
}

// normalizeKey maps "BTC", "btc", "BTCUSDT" and "BTC/USDC:USDC" to one key.
func normalizeKey(symbol string) string {
	trimmed := strings.TrimSpace(symbol)
	if trimmed == "" {
		return ""
	}
	if base, _, ok := strings.Cut(trimmed, "/"); ok {
		trimmed = base
	}
	for _, suffix := range []string{"USDT", "USDC"} {
		if len(trimmed) > len(suffix) && strings.EqualFold(trimmed[len(trimmed)-len(suffix):], suffix) {
			trimmed = trimmed[:len(trimmed)-len(suffix)]
			break
		}
	}
	return strings.ToUpper(trimmed)
}
