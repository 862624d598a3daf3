package okx

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/zeromicro/go-zero/core/mr"

	"tradeboard-api/pkg/market"
	"tradeboard-api/pkg/market/exchanges/internal/httpjson"
)

const (
	defaultBaseURL  = "https://www.okx.com"
	defaultTimeout  = 8 * time.Second
	fundingPageSize = 100
	maxFundingPages = 10

	instSwap    = "SWAP"
	instFutures = "FUTURES"
)

// notFoundCodes are OKX error codes for unknown instruments.
var notFoundCodes = map[string]bool{"51001": true, "51014": true}

// Adapter serves OKX perpetual swaps and futures over the v5 public REST API.
type Adapter struct {
	client  *httpjson.Client
	timeout time.Duration
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
		client:  httpjson.NewClient("okx", baseURL, cfg.HTTPTimeout, cfg.MaxRetries, decode),
		timeout: timeout,
	}
}

func init() {
	market.RegisterAdapter("okx", func(name string, cfg *market.ExchangeConfig) (market.Adapter, error) {
		return NewAdapter(cfg), nil
	})
}

// decode unwraps the {"code","msg","data"} envelope.
func decode(status int, body gjson.Result) (gjson.Result, error) {
	code := body.Get("code").String()
	if code == "0" {
		return body.Get("data"), nil
	}
	msg := body.Get("msg").String()
	if notFoundCodes[code] {
		return gjson.Result{}, fmt.Errorf("okx: %s: %w", msg, market.ErrSymbolNotFound)
	}
	if code == "" {
		return gjson.Result{}, fmt.Errorf("okx: http status %d: %s", status, body.Raw)
	}
	return gjson.Result{}, fmt.Errorf("okx: code %s: %s", code, msg)
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

// FetchQuote joins ticker, mark price, index and open interest. OKX tickers
// carry no funding, so the scheduler follows up with FetchFunding.
func (a *Adapter) FetchQuote(ctx context.Context, symbol string) (*market.RawQuote, error) {
	instID, err := NativeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	instType := instTypeOf(instID)
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var ticker, mark, index, oi gjson.Result
	err = mr.Finish(
		func() (err error) {
			ticker, err = a.first(ctx, "/api/v5/market/ticker", url.Values{"instId": {instID}})
			return err
		},
		func() (err error) {
			mark, err = a.first(ctx, "/api/v5/public/mark-price", url.Values{"instType": {instType}, "instId": {instID}})
			return err
		},
		func() (err error) {
			index, err = a.first(ctx, "/api/v5/market/index-tickers", url.Values{"instId": {underlyingOf(instID)}})
			return err
		},
		func() (err error) {
			oi, err = a.first(ctx, "/api/v5/public/open-interest", url.Values{"instType": {instType}, "instId": {instID}})
			return err
		},
	)
	if err != nil {
		return nil, err
	}

	quote := &market.RawQuote{
		Native:       instID,
		Perpetual:    instType == instSwap,
		Bid:          ticker.Get("bidPx"),
		BidSize:      ticker.Get("bidSz"),
		Ask:          ticker.Get("askPx"),
		AskSize:      ticker.Get("askSz"),
		Last:         ticker.Get("last"),
		Mark:         mark.Get("markPx"),
		Index:        index.Get("idxPx"),
		High:         ticker.Get("high24h"),
		Low:          ticker.Get("low24h"),
		BaseVolume:   ticker.Get("volCcy24h"),
		OpenInterest: oi.Get("oiCcy"),
	}
	if change, ok := market.PercentChange(ticker.Get("last"), ticker.Get("open24h")); ok {
		quote.ChangePct = change
	}
	return quote, nil
}

// FetchFunding implements market.Adapter.
func (a *Adapter) FetchFunding(ctx context.Context, symbol string) (*market.RawFunding, error) {
	instID, err := NativeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if instTypeOf(instID) != instSwap {
		return nil, fmt.Errorf("okx: funding for %s: %w", instID, market.ErrUnsupported)
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	row, err := a.first(ctx, "/api/v5/public/funding-rate", url.Values{"instId": {instID}})
	if err != nil {
		return nil, err
	}
	return &market.RawFunding{Rate: row.Get("fundingRate"), NextFundingTime: row.Get("fundingTime")}, nil
}

// ListMarkets implements market.Adapter over swaps and dated futures.
func (a *Adapter) ListMarkets(ctx context.Context) ([]market.MarketDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var swaps, futures gjson.Result
	err := mr.Finish(
		func() (err error) {
			swaps, err = a.client.Get(ctx, "/api/v5/public/instruments", url.Values{"instType": {instSwap}})
			return err
		},
		func() (err error) {
			futures, err = a.client.Get(ctx, "/api/v5/public/instruments", url.Values{"instType": {instFutures}})
			return err
		},
	)
	if err != nil {
		return nil, err
	}

	markets := make([]market.MarketDescriptor, 0)
	for _, set := range []gjson.Result{swaps, futures} {
		set.ForEach(func(_, inst gjson.Result) bool {
			markets = append(markets, descriptorOf(inst))
			return true
		})
	}
	sort.Slice(markets, func(i, j int) bool {
		return markets[i].ID < markets[j].ID
	})
	return markets, nil
}

// FetchFundingHistory walks funding-rate-history backwards until since.
func (a *Adapter) FetchFundingHistory(ctx context.Context, symbol string, since time.Time) ([]market.FundingEntry, error) {
	instID, err := NativeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	sinceMs := since.UnixMilli()
	entries := make([]market.FundingEntry, 0)
	query := url.Values{"instId": {instID}, "limit": {strconv.Itoa(fundingPageSize)}}
	for page := 0; page < maxFundingPages; page++ {
		rows, err := a.client.Get(ctx, "/api/v5/public/funding-rate-history", query)
		if err != nil {
			return nil, err
		}
		var oldest int64
		count := 0
		rows.ForEach(func(_, row gjson.Result) bool {
			count++
			ts := row.Get("fundingTime").Int()
			oldest = ts
			if ts >= sinceMs {
				entries = append(entries, market.FundingEntry{
					Symbol:      instID,
					FundingRate: market.SafeFloatOr(row.Get("realizedRate"), market.SafeFloatOr(row.Get("fundingRate"), 0)),
					Timestamp:   ts,
				})
			}
			return true
		})
		if count < fundingPageSize || oldest < sinceMs {
			break
		}
		query.Set("after", strconv.FormatInt(oldest, 10))
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp < entries[j].Timestamp
	})
	return entries, nil
}

// FetchCandles implements market.CandleSource. OKX returns newest first.
func (a *Adapter) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	instID, err := NativeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	rows, err := a.client.Get(ctx, "/api/v5/market/candles", url.Values{
		"instId": {instID},
		"bar":    {barOf(interval)},
		"limit":  {strconv.Itoa(limit)},
	})
	if err != nil {
		return nil, err
	}
	candles := make([]market.Candle, 0, len(rows.Array()))
	for _, row := range rows.Array() {
		candles = append(candles, market.Candle{
			OpenTime: row.Get("0").Int(),
			Open:     market.SafeFloatOr(row.Get("1"), 0),
			High:     market.SafeFloatOr(row.Get("2"), 0),
			Low:      market.SafeFloatOr(row.Get("3"), 0),
			Close:    market.SafeFloatOr(row.Get("4"), 0),
			Volume:   market.SafeFloatOr(row.Get("6"), 0),
		})
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime < candles[j].OpenTime
	})
	return candles, nil
}

// Close releases pooled connections.
func (a *Adapter) Close() error {
	a.client.CloseIdleConnections()
	return nil
}

// first fetches path and returns the first row of data.
func (a *Adapter) first(ctx context.Context, path string, query url.Values) (gjson.Result, error) {
	rows, err := a.client.Get(ctx, path, query)
	if err != nil {
		return gjson.Result{}, err
	}
	row := rows.Get("0")
	if !row.Exists() {
		return gjson.Result{}, fmt.Errorf("okx: %s %s: %w", path, query.Get("instId"), market.ErrSymbolNotFound)
	}
	return row, nil
}

// NativeSymbol renders a unified symbol as an OKX instId. Ids that already
// contain "-" pass through.
func NativeSymbol(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.Contains(trimmed, "-") {
		return trimmed, nil
	}
	sym, err := market.ParseSymbol(symbol)
	if err != nil {
		return "", err
	}
	return sym.Base + "-" + sym.Quote + "-" + instSwap, nil
}

func instTypeOf(instID string) string {
	if strings.HasSuffix(instID, "-"+instSwap) {
		return instSwap
	}
	return instFutures
}

// underlyingOf strips the contract suffix: BTC-USDT-SWAP -> BTC-USDT.
func underlyingOf(instID string) string {
	parts := strings.Split(instID, "-")
	if len(parts) < 2 {
		return instID
	}
	return parts[0] + "-" + parts[1]
}

func barOf(interval string) string {
	if n := len(interval); n > 1 {
		switch interval[n-1] {
		case 'h', 'd', 'w':
			return interval[:n-1] + strings.ToUpper(interval[n-1:])
		}
	}
	return interval
}

func descriptorOf(inst gjson.Result) market.MarketDescriptor {
	base, quote, _ := strings.Cut(inst.Get("uly").String(), "-")
	settle := inst.Get("settleCcy").String()
	desc := market.MarketDescriptor{
		ID:     inst.Get("instId").String(),
		Symbol: market.UnifiedSymbol(base, quote, settle),
		Base:   base,
		Quote:  quote,
		Settle: settle,
		Kind:   market.KindPerpetual,
		Active: inst.Get("state").String() == "live",
	}
	if inst.Get("instType").String() == instFutures {
		desc.Kind = market.KindFuture
		if ms := inst.Get("expTime").Int(); ms > 0 {
			expiry := time.UnixMilli(ms).UTC()
			desc.Expiry = &expiry
		}
	}
	return desc
}
