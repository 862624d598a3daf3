package hyperliquid

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"tradeboard-api/pkg/market"
)

const (
	defaultAdapterTimeout = 8 * time.Second
	settleAsset           = "USDC"
)

// Adapter exposes Hyperliquid perpetuals through the market.Adapter contract.
// Every quote reads its own metaAndAssetCtxs snapshot.
type Adapter struct {
	client  *Client
	timeout time.Duration
	name    string
}

type adapterConfig struct {
	timeout      time.Duration
	clientConfig []Option
}

// AdapterOption customises the Hyperliquid adapter.
type AdapterOption func(*adapterConfig)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(timeout time.Duration) AdapterOption {
	return func(cfg *adapterConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithClientOptions passes options to the underlying Hyperliquid client.
func WithClientOptions(options ...Option) AdapterOption {
	return func(cfg *adapterConfig) {
		cfg.clientConfig = append(cfg.clientConfig, options...)
	}
}

// NewAdapter constructs a Hyperliquid adapter.
func NewAdapter(opts ...AdapterOption) *Adapter {
	cfg := &adapterConfig{timeout: defaultAdapterTimeout}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Adapter{
		client:  NewClient(cfg.clientConfig...),
		timeout: cfg.timeout,
		name:    "hyperliquid",
	}
}

func init() {
	market.RegisterAdapter("hyperliquid", func(name string, cfg *market.ExchangeConfig) (market.Adapter, error) {
		opts := []AdapterOption{}
		clientOptions := []Option{WithMaxRetries(cfg.MaxRetries)}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		if cfg.HTTPTimeout > 0 {
			clientOptions = append(clientOptions, WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
		}
		if cfg.BaseURL != "" {
			clientOptions = append(clientOptions, WithBaseURL(cfg.BaseURL))
		}
		opts = append(opts, WithClientOptions(clientOptions...))
		adapter := NewAdapter(opts...)
		adapter.name = name
		return adapter, nil
	})
}

// Capabilities implements market.Adapter.
func (a *Adapter) Capabilities() market.CapabilitySet {
	return market.Capabilities(
		market.CapFetchTicker,
		market.CapFetchFunding,
		market.CapListMarkets,
		market.CapFundingHistory,
		market.CapCandles,
	)
}

// FetchQuote implements market.Adapter.
func (a *Adapter) FetchQuote(ctx context.Context, symbol string) (*market.RawQuote, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	canonical, assetCtx, err := a.client.assetContext(ctx, symbol)
	if err != nil {
		return nil, err
	}
	quote := &market.RawQuote{
		Native:          canonical,
		Perpetual:       true,
		Mark:            assetCtx.MarkPx,
		Index:           assetCtx.OraclePx,
		Last:            assetCtx.MidPx,
		BaseVolume:      assetCtx.DayBaseVlm,
		QuoteVolume:     assetCtx.DayNtlVlm,
		OpenInterest:    assetCtx.OpenInterest,
		FundingRate:     assetCtx.Funding,
		NextFundingTime: nextFundingTime(a.client.now()),
	}
	if len(assetCtx.ImpactPxs) == 2 {
		quote.Bid = assetCtx.ImpactPxs[0]
		quote.Ask = assetCtx.ImpactPxs[1]
	}
	if change, ok := market.PercentChange(assetCtx.MidPx, assetCtx.PrevDayPx); ok {
		quote.ChangePct = change
	}
	return quote, nil
}

// FetchFunding implements market.Adapter.
func (a *Adapter) FetchFunding(ctx context.Context, symbol string) (*market.RawFunding, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	_, assetCtx, err := a.client.assetContext(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return &market.RawFunding{Rate: assetCtx.Funding, NextFundingTime: nextFundingTime(a.client.now())}, nil
}

// ListMarkets implements market.Adapter. Delisted coins are reported inactive.
func (a *Adapter) ListMarkets(ctx context.Context) ([]market.MarketDescriptor, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	entries, err := a.client.listUniverse(ctx)
	if err != nil {
		return nil, err
	}
	markets := make([]market.MarketDescriptor, 0, len(entries))
	for _, meta := range entries {
		canonical := strings.TrimSpace(meta.Name)
		if canonical == "" {
			continue
		}
		markets = append(markets, market.MarketDescriptor{
			ID:     canonical,
			Symbol: market.UnifiedSymbol(canonical, settleAsset, settleAsset),
			Base:   canonical,
			Quote:  settleAsset,
			Settle: settleAsset,
			Kind:   market.KindPerpetual,
			Active: !meta.IsDelisted,
		})
	}

	sort.Slice(markets, func(i, j int) bool {
		return markets[i].ID < markets[j].ID
	})
	return markets, nil
}

// FetchFundingHistory implements market.FundingHistorian.
func (a *Adapter) FetchFundingHistory(ctx context.Context, symbol string, since time.Time) ([]market.FundingEntry, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.client.GetFundingHistory(ctx, symbol, since)
}

// FetchCandles implements market.CandleSource.
func (a *Adapter) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.client.GetCandles(ctx, symbol, interval, limit)
}

// Close releases pooled connections.
func (a *Adapter) Close() error {
	a.client.httpClient.CloseIdleConnections()
	return nil
}

func (a *Adapter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, a.timeout)
}
