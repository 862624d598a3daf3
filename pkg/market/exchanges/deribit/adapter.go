// Package deribit adapts the Deribit v2 public API, which serves JSON-RPC
// methods over plain GET requests.
package deribit

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"tradeboard-api/pkg/market"
	"tradeboard-api/pkg/market/exchanges/internal/httpjson"
)

const (
	defaultBaseURL = "https://www.deribit.com"
	defaultTimeout = 8 * time.Second

	codeNotFound = 13020

	// fundingWindow bounds one get_funding_rate_history call.
	fundingWindow = 30 * 24 * time.Hour
)

// resolutions maps candle intervals to tradingview resolutions.
var resolutions = map[string]struct {
	value string
	step  time.Duration
}{
	"1m":  {"1", time.Minute},
	"3m":  {"3", 3 * time.Minute},
	"5m":  {"5", 5 * time.Minute},
	"10m": {"10", 10 * time.Minute},
	"15m": {"15", 15 * time.Minute},
	"30m": {"30", 30 * time.Minute},
	"1h":  {"60", time.Hour},
	"2h":  {"120", 2 * time.Hour},
	"3h":  {"180", 3 * time.Hour},
	"6h":  {"360", 6 * time.Hour},
	"12h": {"720", 12 * time.Hour},
	"1d":  {"1D", 24 * time.Hour},
}

// Adapter serves Deribit perpetuals and dated futures.
type Adapter struct {
	client  *httpjson.Client
	timeout time.Duration
	now     func() time.Time
}

// NewAdapter builds an adapter from exchange configuration.
func NewAdapter(cfg *market.ExchangeConfig) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Adapter{
		client:  httpjson.NewClient("deribit", baseURL, cfg.HTTPTimeout, cfg.MaxRetries, decode),
		timeout: timeout,
		now:     time.Now,
	}
}

func init() {
	market.RegisterAdapter("deribit", func(name string, cfg *market.ExchangeConfig) (market.Adapter, error) {
		return NewAdapter(cfg), nil
	})
}

func decode(status int, body gjson.Result) (gjson.Result, error) {
	if rpcErr := body.Get("error"); rpcErr.Exists() {
		code := rpcErr.Get("code").Int()
		msg := rpcErr.Get("message").String()
		if code == codeNotFound || strings.Contains(msg, "not_found") {
			return gjson.Result{}, fmt.Errorf("deribit: %s: %w", msg, market.ErrSymbolNotFound)
		}
		return gjson.Result{}, fmt.Errorf("deribit: code %d: %s", code, msg)
	}
	result := body.Get("result")
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("deribit: http status %d without result", status)
	}
	return result, nil
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

// FetchQuote implements market.Adapter. Deribit funds continuously; the
// quote carries the trailing 8h rate and no next funding time.
func (a *Adapter) FetchQuote(ctx context.Context, symbol string) (*market.RawQuote, error) {
	name, err := NativeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ticker, err := a.client.Get(ctx, "/api/v2/public/ticker", url.Values{"instrument_name": {name}})
	if err != nil {
		return nil, err
	}
	quote := &market.RawQuote{
		Native:       ticker.Get("instrument_name").String(),
		Perpetual:    isPerpetual(name),
		Bid:          ticker.Get("best_bid_price"),
		BidSize:      ticker.Get("best_bid_amount"),
		Ask:          ticker.Get("best_ask_price"),
		AskSize:      ticker.Get("best_ask_amount"),
		Last:         ticker.Get("last_price"),
		Mark:         ticker.Get("mark_price"),
		Index:        ticker.Get("index_price"),
		High:         ticker.Get("stats.high"),
		Low:          ticker.Get("stats.low"),
		BaseVolume:   ticker.Get("stats.volume"),
		QuoteVolume:  ticker.Get("stats.volume_usd"),
		ChangePct:    ticker.Get("stats.price_change"),
		OpenInterest: ticker.Get("open_interest"),
	}
	if quote.Native == "" {
		quote.Native = name
	}
	if quote.Perpetual {
		quote.FundingRate = ticker.Get("funding_8h")
	}
	return quote, nil
}

// FetchFunding implements market.Adapter.
func (a *Adapter) FetchFunding(ctx context.Context, symbol string) (*market.RawFunding, error) {
	name, err := NativeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if !isPerpetual(name) {
		return nil, fmt.Errorf("deribit: funding for %s: %w", name, market.ErrUnsupported)
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ticker, err := a.client.Get(ctx, "/api/v2/public/ticker", url.Values{"instrument_name": {name}})
	if err != nil {
		return nil, err
	}
	return &market.RawFunding{Rate: ticker.Get("funding_8h")}, nil
}

// ListMarkets implements market.Adapter over every currency's futures.
func (a *Adapter) ListMarkets(ctx context.Context) ([]market.MarketDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	rows, err := a.client.Get(ctx, "/api/v2/public/get_instruments", url.Values{
		"currency": {"any"},
		"kind":     {"future"},
		"expired":  {"false"},
	})
	if err != nil {
		return nil, err
	}
	markets := make([]market.MarketDescriptor, 0, len(rows.Array()))
	rows.ForEach(func(_, inst gjson.Result) bool {
		base := inst.Get("base_currency").String()
		quote := inst.Get("quote_currency").String()
		settle := inst.Get("settlement_currency").String()
		desc := market.MarketDescriptor{
			ID:     inst.Get("instrument_name").String(),
			Symbol: market.UnifiedSymbol(base, quote, settle),
			Base:   base,
			Quote:  quote,
			Settle: settle,
			Kind:   market.KindPerpetual,
			Active: inst.Get("is_active").Bool(),
		}
		if inst.Get("settlement_period").String() != "perpetual" {
			desc.Kind = market.KindFuture
			if ms := inst.Get("expiration_timestamp").Int(); ms > 0 {
				expiry := time.UnixMilli(ms).UTC()
				desc.Expiry = &expiry
			}
		}
		markets = append(markets, desc)
		return true
	})
	sort.Slice(markets, func(i, j int) bool {
		return markets[i].ID < markets[j].ID
	})
	return markets, nil
}

// FetchFundingHistory implements market.FundingHistorian. Rows are hourly
// samples of the trailing 8h rate, fetched in fundingWindow slices.
func (a *Adapter) FetchFundingHistory(ctx context.Context, symbol string, since time.Time) ([]market.FundingEntry, error) {
	name, err := NativeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	end := a.now()
	entries := make([]market.FundingEntry, 0)
	for start := since; start.Before(end); start = start.Add(fundingWindow) {
		stop := start.Add(fundingWindow)
		if stop.After(end) {
			stop = end
		}
		rows, err := a.client.Get(ctx, "/api/v2/public/get_funding_rate_history", url.Values{
			"instrument_name": {name},
			"start_timestamp": {strconv.FormatInt(start.UnixMilli(), 10)},
			"end_timestamp":   {strconv.FormatInt(stop.UnixMilli(), 10)},
		})
		if err != nil {
			return nil, err
		}
		rows.ForEach(func(_, row gjson.Result) bool {
			entries = append(entries, market.FundingEntry{
				Symbol:      name,
				FundingRate: market.SafeFloatOr(row.Get("interest_8h"), 0),
				Timestamp:   row.Get("timestamp").Int(),
			})
			return true
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp < entries[j].Timestamp
	})
	return dedupe(entries), nil
}

// FetchCandles implements market.CandleSource.
func (a *Adapter) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	name, err := NativeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	res, ok := resolutions[interval]
	if !ok {
		return nil, fmt.Errorf("deribit: interval %q: %w", interval, market.ErrUnsupported)
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	end := a.now()
	start := end.Add(-time.Duration(limit) * res.step)
	chart, err := a.client.Get(ctx, "/api/v2/public/get_tradingview_chart_data", url.Values{
		"instrument_name": {name},
		"resolution":      {res.value},
		"start_timestamp": {strconv.FormatInt(start.UnixMilli(), 10)},
		"end_timestamp":   {strconv.FormatInt(end.UnixMilli(), 10)},
	})
	if err != nil {
		return nil, err
	}

	ticks := chart.Get("ticks").Array()
	opens, highs := chart.Get("open").Array(), chart.Get("high").Array()
	lows, closes := chart.Get("low").Array(), chart.Get("close").Array()
	volumes := chart.Get("volume").Array()
	candles := make([]market.Candle, 0, len(ticks))
	for i, tick := range ticks {
		if i >= len(opens) || i >= len(highs) || i >= len(lows) || i >= len(closes) {
			break
		}
		candle := market.Candle{
			OpenTime: tick.Int(),
			Open:     opens[i].Float(),
			High:     highs[i].Float(),
			Low:      lows[i].Float(),
			Close:    closes[i].Float(),
		}
		if i < len(volumes) {
			candle.Volume = volumes[i].Float()
		}
		candles = append(candles, candle)
	}
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

// Close releases pooled connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

// NativeSymbol renders a symbol as a Deribit instrument name. Names that
// already contain "-" pass through; a bare base or an inverse contract maps to
// "<BASE>-PERPETUAL" and a linear one to "<BASE>_USDC-PERPETUAL".
func NativeSymbol(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(trimmed, "-") {
		return trimmed, nil
	}
	sym, err := market.ParseSymbol(trimmed)
	if err != nil {
		return "", err
	}
	if !strings.ContainsAny(trimmed, "/:") || sym.Inverse() || sym.Quote == "USD" {
		return market.PerpetualInstrument(sym.Base), nil
	}
	return market.PerpetualInstrument(sym.Base + "_USDC"), nil
}

func isPerpetual(name string) bool {
	return strings.HasSuffix(name, "-PERPETUAL")
}

// dedupe drops rows repeated on window boundaries; entries must be sorted.
func dedupe(entries []market.FundingEntry) []market.FundingEntry {
	out := entries[:0]
	for _, e := range entries {
		if n := len(out); n > 0 && out[n-1].Timestamp == e.Timestamp {
			continue
		}
		out = append(out, e)
	}
	return out
}
