package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	bybit "github.com/bybit-exchange/bybit.go.api"
	"github.com/tidwall/gjson"

	"tradeboard-api/pkg/market"
)

const (
	defaultBaseURL  = "https://api.bybit.com"
	defaultTimeout  = 8 * time.Second
	category        = "linear"
	fundingPageSize = 200
	maxFundingPages = 20
	marketPageSize  = 1000

	// paramsErrorCode covers unknown symbols among other parameter errors.
	paramsErrorCode = 10001
)

var klineIntervals = map[string]string{
	"1m": "1", "3m": "3", "5m": "5", "15m": "15", "30m": "30",
	"1h": "60", "2h": "120", "4h": "240", "6h": "360", "12h": "720",
	"1d": "D", "1w": "W",
}

// Adapter serves Bybit v5 linear perpetuals and futures.
type Adapter struct {
	client     *bybit.Client
	timeout    time.Duration
	maxRetries int
}

// NewAdapter builds an adapter from exchange configuration.
func NewAdapter(cfg *market.ExchangeConfig) *Adapter {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := bybit.NewBybitHttpClient("", "", bybit.WithBaseURL(baseURL))
	if cfg.HTTPTimeout > 0 {
		client.HTTPClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Adapter{client: client, timeout: timeout, maxRetries: cfg.MaxRetries}
}

func init() {
	market.RegisterAdapter("bybit", func(name string, cfg *market.ExchangeConfig) (market.Adapter, error) {
		return NewAdapter(cfg), nil
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

// FetchQuote implements market.Adapter. One linear ticker carries prices,
// book top, volume, open interest and funding.
func (a *Adapter) FetchQuote(ctx context.Context, symbol string) (*market.RawQuote, error) {
	native, err := NativeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ticker, err := a.ticker(ctx, native)
	if err != nil {
		return nil, err
	}
	return quoteOf(ticker), nil
}

// FetchFunding implements market.Adapter.
func (a *Adapter) FetchFunding(ctx context.Context, symbol string) (*market.RawFunding, error) {
	native, err := NativeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	ticker, err := a.ticker(ctx, native)
	if err != nil {
		return nil, err
	}
	if ticker.Get("fundingRate").String() == "" {
		return nil, fmt.Errorf("bybit: funding for %s: %w", native, market.ErrUnsupported)
	}
	return &market.RawFunding{Rate: ticker.Get("fundingRate"), NextFundingTime: ticker.Get("nextFundingTime")}, nil
}

// ListMarkets implements market.Adapter, following nextPageCursor.
func (a *Adapter) ListMarkets(ctx context.Context) ([]market.MarketDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	markets := make([]market.MarketDescriptor, 0)
	cursor := ""
	for {
		params := map[string]interface{}{"category": category, "limit": marketPageSize}
		if cursor != "" {
			params["cursor"] = cursor
		}
		result, err := a.call(ctx, params, func(ctx context.Context, req map[string]interface{}) (*bybit.ServerResponse, error) {
			return a.client.NewUtaBybitServiceWithParams(req).GetInstrumentInfo(ctx)
		})
		if err != nil {
			return nil, err
		}
		result.Get("list").ForEach(func(_, inst gjson.Result) bool {
			markets = append(markets, descriptorOf(inst))
			return true
		})
		cursor = result.Get("nextPageCursor").String()
		if cursor == "" || len(result.Get("list").Array()) == 0 {
			break
		}
	}

	sort.Slice(markets, func(i, j int) bool {
		return markets[i].ID < markets[j].ID
	})
	return markets, nil
}

// FetchFundingHistory implements market.FundingHistorian. Bybit returns newest
// first; pages walk endTime backwards.
func (a *Adapter) FetchFundingHistory(ctx context.Context, symbol string, since time.Time) ([]market.FundingEntry, error) {
	native, err := NativeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	sinceMs := since.UnixMilli()
	entries := make([]market.FundingEntry, 0)
	var endTime int64
	for page := 0; page < maxFundingPages; page++ {
		params := map[string]interface{}{
			"category":  category,
			"symbol":    native,
			"startTime": sinceMs,
			"limit":     fundingPageSize,
		}
		if endTime > 0 {
			params["endTime"] = endTime
		}
		result, err := a.call(ctx, params, func(ctx context.Context, req map[string]interface{}) (*bybit.ServerResponse, error) {
			return a.client.NewUtaBybitServiceWithParams(req).GetFundingRateHistory(ctx)
		})
		if err != nil {
			return nil, err
		}
		rows := result.Get("list").Array()
		var oldest int64
		for _, row := range rows {
			ts := row.Get("fundingRateTimestamp").Int()
			oldest = ts
			if ts < sinceMs {
				continue
			}
			entries = append(entries, market.FundingEntry{
				Symbol:      native,
				FundingRate: market.SafeFloatOr(row.Get("fundingRate"), 0),
				Timestamp:   ts,
			})
		}
		if len(rows) < fundingPageSize || oldest <= sinceMs {
			break
		}
		endTime = oldest - 1
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp < entries[j].Timestamp
	})
	return entries, nil
}

// FetchCandles implements market.CandleSource.
func (a *Adapter) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	native, err := NativeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	bybitInterval, ok := klineIntervals[interval]
	if !ok {
		return nil, fmt.Errorf("bybit: interval %q: %w", interval, market.ErrUnsupported)
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	params := map[string]interface{}{
		"category": category,
		"symbol":   native,
		"interval": bybitInterval,
		"limit":    limit,
	}
	result, err := a.call(ctx, params, func(ctx context.Context, req map[string]interface{}) (*bybit.ServerResponse, error) {
		return a.client.NewUtaBybitServiceWithParams(req).GetMarketKline(ctx)
	})
	if err != nil {
		return nil, err
	}
	rows := result.Get("list").Array()
	candles := make([]market.Candle, 0, len(rows))
	for _, row := range rows {
		candles = append(candles, market.Candle{
			OpenTime: row.Get("0").Int(),
			Open:     market.SafeFloatOr(row.Get("1"), 0),
			High:     market.SafeFloatOr(row.Get("2"), 0),
			Low:      market.SafeFloatOr(row.Get("3"), 0),
			Close:    market.SafeFloatOr(row.Get("4"), 0),
			Volume:   market.SafeFloatOr(row.Get("5"), 0),
		})
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime < candles[j].OpenTime
	})
	return candles, nil
}

// Close releases pooled connections.
func (a *Adapter) Close() error {
	if a.client.HTTPClient != nil {
		a.client.HTTPClient.CloseIdleConnections()
	}
	return nil
}

func (a *Adapter) ticker(ctx context.Context, native string) (gjson.Result, error) {
	params := map[string]interface{}{"category": category, "symbol": native}
	result, err := a.call(ctx, params, func(ctx context.Context, req map[string]interface{}) (*bybit.ServerResponse, error) {
		return a.client.NewUtaBybitServiceWithParams(req).GetMarketTickers(ctx)
	})
	if err != nil {
		return gjson.Result{}, err
	}
	ticker := result.Get("list.0")
	if !ticker.Exists() {
		return gjson.Result{}, fmt.Errorf("bybit: ticker %s: %w", native, market.ErrSymbolNotFound)
	}
	return ticker, nil
}

// call issues one SDK request under the retry policy and returns its result
// re-read through gjson.
func (a *Adapter) call(ctx context.Context, params map[string]interface{}, fn func(context.Context, map[string]interface{}) (*bybit.ServerResponse, error)) (gjson.Result, error) {
	var result gjson.Result
	err := market.Retry(ctx, a.maxRetries, func(ctx context.Context) error {
		resp, err := fn(ctx, params)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("bybit: %w", err)
		}
		if resp == nil {
			return fmt.Errorf("bybit: empty response")
		}
		if resp.RetCode != 0 {
			if resp.RetCode == paramsErrorCode && strings.Contains(strings.ToLower(resp.RetMsg), "symbol") {
				return fmt.Errorf("bybit: %s: %w", resp.RetMsg, market.ErrSymbolNotFound)
			}
			return fmt.Errorf("bybit: code %d: %s", resp.RetCode, resp.RetMsg)
		}
		payload, err := json.Marshal(resp.Result)
		if err != nil {
			return fmt.Errorf("bybit: encode result: %w", err)
		}
		result = gjson.ParseBytes(payload)
		return nil
	})
	return result, err
}

// NativeSymbol renders a symbol as a Bybit linear id. Dated futures such as
// BTC-28MAR25 pass through.
func NativeSymbol(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(trimmed, "-") {
		return trimmed, nil
	}
	return market.ConcatSymbol(symbol)
}

func quoteOf(ticker gjson.Result) *market.RawQuote {
	quote := &market.RawQuote{
		Native:       ticker.Get("symbol").String(),
		Perpetual:    ticker.Get("deliveryTime").Int() == 0,
		Bid:          ticker.Get("bid1Price"),
		BidSize:      ticker.Get("bid1Size"),
		Ask:          ticker.Get("ask1Price"),
		AskSize:      ticker.Get("ask1Size"),
		Last:         ticker.Get("lastPrice"),
		Mark:         ticker.Get("markPrice"),
		Index:        ticker.Get("indexPrice"),
		High:         ticker.Get("highPrice24h"),
		Low:          ticker.Get("lowPrice24h"),
		BaseVolume:   ticker.Get("volume24h"),
		QuoteVolume:  ticker.Get("turnover24h"),
		OpenInterest: ticker.Get("openInterest"),
	}
	// price24hPcnt is a fraction
	if change, ok := market.SafeFloat(ticker.Get("price24hPcnt")); ok {
		quote.ChangePct = change * 100
	}
	if quote.Perpetual {
		quote.FundingRate = ticker.Get("fundingRate")
		quote.NextFundingTime = ticker.Get("nextFundingTime")
	} else if ms := ticker.Get("deliveryTime").Int(); ms > 0 {
		expiry := time.UnixMilli(ms).UTC()
		quote.Expiry = &expiry
	}
	return quote
}

func descriptorOf(inst gjson.Result) market.MarketDescriptor {
	base := inst.Get("baseCoin").String()
	quote := inst.Get("quoteCoin").String()
	settle := inst.Get("settleCoin").String()
	desc := market.MarketDescriptor{
		ID:     inst.Get("symbol").String(),
		Symbol: market.UnifiedSymbol(base, quote, settle),
		Base:   base,
		Quote:  quote,
		Settle: settle,
		Kind:   market.KindPerpetual,
		Active: inst.Get("status").String() == "Trading",
	}
	if inst.Get("contractType").String() == "LinearFutures" {
		desc.Kind = market.KindFuture
		if ms, err := strconv.ParseInt(inst.Get("deliveryTime").String(), 10, 64); err == nil && ms > 0 {
			expiry := time.UnixMilli(ms).UTC()
			desc.Expiry = &expiry
		}
	}
	return desc
}
