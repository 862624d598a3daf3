package kucoin

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	sdkapi "github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/api"
	futuresmarket "github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/generate/futures/market"
	sdktype "github.com/Kucoin/kucoin-universal-sdk/sdk/golang/pkg/types"
	"github.com/tidwall/gjson"
	"github.com/zeromicro/go-zero/core/mr"

	"tradeboard-api/pkg/market"
)

const (
	defaultBaseURL     = "https://api-futures.kucoin.com"
	defaultTimeout     = 8 * time.Second
	defaultHTTPTimeout = 10 * time.Second

	perpetualType = "FFWCSX"
	openStatus    = "Open"
)

// Adapter serves KuCoin futures contracts through the universal SDK. The
// public market API has no funding history or candles on the same service,
// so the adapter declares tickers, funding and markets only.
type Adapter struct {
	marketAPI  futuresmarket.MarketAPI
	timeout    time.Duration
	maxRetries int
	now        func() time.Time
}

// NewAdapter builds an adapter from exchange configuration.
func NewAdapter(cfg *market.ExchangeConfig) *Adapter {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpTimeout := cfg.HTTPTimeout
	if httpTimeout <= 0 {
		httpTimeout = defaultHTTPTimeout
	}
	transport := sdktype.NewTransportOptionBuilder().
		SetTimeout(httpTimeout).
		Build()
	option := sdktype.NewClientOptionBuilder().
		WithFuturesEndpoint(baseURL).
		WithTransportOption(transport).
		Build()
	client := sdkapi.NewClient(option)

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Adapter{
		marketAPI:  client.RestService().GetFuturesService().GetMarketAPI(),
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		now:        time.Now,
	}
}

func init() {
	market.RegisterAdapter("kucoin", func(name string, cfg *market.ExchangeConfig) (market.Adapter, error) {
		return NewAdapter(cfg), nil
	})
}

// Capabilities implements market.Adapter.
func (a *Adapter) Capabilities() market.CapabilitySet {
	return market.Capabilities(market.CapFetchTicker, market.CapFetchFunding, market.CapListMarkets)
}

// FetchQuote joins the contract detail with the level-1 ticker.
func (a *Adapter) FetchQuote(ctx context.Context, symbol string) (*market.RawQuote, error) {
	native, err := NativeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var contract, ticker gjson.Result
	err = mr.Finish(
		func() (err error) {
			contract, err = a.contract(ctx, native)
			return err
		},
		func() (err error) {
			ticker, err = a.call(ctx, func(ctx context.Context) (any, error) {
				req := futuresmarket.NewGetTickerReqBuilder().SetSymbol(native).Build()
				return a.marketAPI.GetTicker(req, ctx)
			})
			return err
		},
	)
	if err != nil {
		return nil, err
	}
	return quoteOf(contract, ticker, a.now()), nil
}

// FetchFunding implements market.Adapter.
func (a *Adapter) FetchFunding(ctx context.Context, symbol string) (*market.RawFunding, error) {
	native, err := NativeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	contract, err := a.contract(ctx, native)
	if err != nil {
		return nil, err
	}
	if contract.Get("type").String() != perpetualType {
		return nil, fmt.Errorf("kucoin: funding for %s: %w", native, market.ErrUnsupported)
	}
	return fundingOf(contract, a.now()), nil
}

// ListMarkets implements market.Adapter over the active contracts.
func (a *Adapter) ListMarkets(ctx context.Context) ([]market.MarketDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	doc, err := a.call(ctx, func(ctx context.Context) (any, error) {
		return a.marketAPI.GetAllSymbols(ctx)
	})
	if err != nil {
		return nil, err
	}
	return marketsOf(doc), nil
}

// Close implements market.Adapter. The SDK owns its transport.
func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) contract(ctx context.Context, native string) (gjson.Result, error) {
	contract, err := a.call(ctx, func(ctx context.Context) (any, error) {
		req := futuresmarket.NewGetSymbolReqBuilder().SetSymbol(native).Build()
		return a.marketAPI.GetSymbol(req, ctx)
	})
	if err != nil {
		return gjson.Result{}, err
	}
	if contract.Get("symbol").String() == "" {
		return gjson.Result{}, fmt.Errorf("kucoin: contract %s: %w", native, market.ErrSymbolNotFound)
	}
	return contract, nil
}

// call runs one SDK request under the retry policy and re-reads the typed
// response through gjson.
func (a *Adapter) call(ctx context.Context, fn func(context.Context) (any, error)) (gjson.Result, error) {
	var doc gjson.Result
	err := market.Retry(ctx, a.maxRetries, func(ctx context.Context) error {
		resp, err := fn(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return classify(err)
		}
		payload, err := json.Marshal(resp)
		if err != nil {
			return fmt.Errorf("kucoin: encode response: %w", err)
		}
		doc = gjson.ParseBytes(payload)
		return nil
	})
	return doc, err
}

func classify(err error) error {
	msg := strings.ToLower(err.Error())
	if (strings.Contains(msg, "contract") && strings.Contains(msg, "not exist")) || strings.Contains(msg, "404") {
		return fmt.Errorf("kucoin: %s: %w", err.Error(), market.ErrSymbolNotFound)
	}
	return fmt.Errorf("kucoin: %w", err)
}

// NativeSymbol renders a symbol as a KuCoin contract id. Linear contracts
// end in "M" (XBTUSDTM), inverse ones are BASEUSDM; BTC is XBT. Ids without
// a separator that already end in "M" pass through.
func NativeSymbol(symbol string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(symbol))
	if !strings.ContainsAny(trimmed, "/:") && len(trimmed) > 4 && strings.HasSuffix(trimmed, "M") {
		return trimmed, nil
	}
	sym, err := market.ParseSymbol(trimmed)
	if err != nil {
		return "", err
	}
	return toNativeAsset(sym.Base) + sym.Quote + "M", nil
}

func toNativeAsset(asset string) string {
	if asset == "BTC" {
		return "XBT"
	}
	return asset
}

func fromNativeAsset(asset string) string {
	if asset == "XBT" {
		return "BTC"
	}
	return asset
}

func quoteOf(contract, ticker gjson.Result, now time.Time) *market.RawQuote {
	quote := &market.RawQuote{
		Native:       contract.Get("symbol").String(),
		Perpetual:    contract.Get("type").String() == perpetualType,
		Bid:          ticker.Get("bestBidPrice"),
		BidSize:      ticker.Get("bestBidSize"),
		Ask:          ticker.Get("bestAskPrice"),
		AskSize:      ticker.Get("bestAskSize"),
		Last:         contract.Get("lastTradePrice"),
		Mark:         contract.Get("markPrice"),
		Index:        contract.Get("indexPrice"),
		High:         contract.Get("highPrice"),
		Low:          contract.Get("lowPrice"),
		BaseVolume:   contract.Get("volumeOf24h"),
		QuoteVolume:  contract.Get("turnoverOf24h"),
		OpenInterest: contract.Get("openInterest"),
	}
	if _, ok := market.SafeFloat(contract.Get("lastTradePrice")); !ok {
		quote.Last = ticker.Get("price")
	}
	// priceChgPct is a fraction
	if change, ok := market.SafeFloat(contract.Get("priceChgPct")); ok {
		quote.ChangePct = change * 100
	}
	if quote.Perpetual {
		funding := fundingOf(contract, now)
		quote.FundingRate = funding.Rate
		quote.NextFundingTime = funding.NextFundingTime
	} else if ms := contract.Get("expireDate").Int(); ms > 0 {
		expiry := time.UnixMilli(ms).UTC()
		quote.Expiry = &expiry
	}
	return quote
}

// fundingOf reads the current rate. nextFundingRateTime counts milliseconds
// until the next settlement, not an epoch.
func fundingOf(contract gjson.Result, now time.Time) *market.RawFunding {
	funding := &market.RawFunding{Rate: contract.Get("fundingFeeRate")}
	if remaining := contract.Get("nextFundingRateTime").Int(); remaining > 0 {
		funding.NextFundingTime = now.UnixMilli() + remaining
	}
	return funding
}

func marketsOf(doc gjson.Result) []market.MarketDescriptor {
	rows := doc.Get("data")
	if !rows.Exists() && doc.IsArray() {
		rows = doc
	}
	markets := make([]market.MarketDescriptor, 0, len(rows.Array()))
	rows.ForEach(func(_, c gjson.Result) bool {
		base := fromNativeAsset(c.Get("baseCurrency").String())
		quote := c.Get("quoteCurrency").String()
		settle := fromNativeAsset(c.Get("settleCurrency").String())
		desc := market.MarketDescriptor{
			ID:     c.Get("symbol").String(),
			Symbol: market.UnifiedSymbol(base, quote, settle),
			Base:   base,
			Quote:  quote,
			Settle: settle,
			Kind:   market.KindPerpetual,
			Active: c.Get("status").String() == openStatus,
		}
		if c.Get("type").String() != perpetualType {
			desc.Kind = market.KindFuture
			if ms := c.Get("expireDate").Int(); ms > 0 {
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
	return markets
}
