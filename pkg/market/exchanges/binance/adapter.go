package binance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/zeromicro/go-zero/core/mr"

	"tradeboard-api/pkg/market"
)

const (
	defaultTimeout  = 8 * time.Second
	fundingPageSize = 1000

	// invalidSymbolCode is returned by the futures API for unlisted symbols.
	invalidSymbolCode = -1121
)

// Adapter serves USDⓈ-M futures through the go-binance futures client.
type Adapter struct {
	client     *futures.Client
	timeout    time.Duration
	maxRetries int
}

// NewAdapter builds an adapter from exchange configuration.
func NewAdapter(cfg *market.ExchangeConfig) *Adapter {
	client := futures.NewClient("", "")
	if cfg.BaseURL != "" {
		client.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
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
	market.RegisterAdapter("binance", func(name string, cfg *market.ExchangeConfig) (market.Adapter, error) {
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

// FetchQuote joins the premium index, 24h stats, book ticker and open
// interest of one contract. The four calls run concurrently.
func (a *Adapter) FetchQuote(ctx context.Context, symbol string) (*market.RawQuote, error) {
	native, err := market.ConcatSymbol(symbol)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		premium *futures.PremiumIndex
		stats   *futures.PriceChangeStats
		book    *futures.BookTicker
		oi      *futures.OpenInterest
	)
	err = mr.Finish(
		func() error {
			return a.call(ctx, func(ctx context.Context) error {
				res, err := a.client.NewPremiumIndexService().Symbol(native).Do(ctx)
				if err == nil && len(res) > 0 {
					premium = res[0]
				}
				return err
			})
		},
		func() error {
			return a.call(ctx, func(ctx context.Context) error {
				res, err := a.client.NewListPriceChangeStatsService().Symbol(native).Do(ctx)
				if err == nil && len(res) > 0 {
					stats = res[0]
				}
				return err
			})
		},
		func() error {
			return a.call(ctx, func(ctx context.Context) error {
				res, err := a.client.NewListBookTickersService().Symbol(native).Do(ctx)
				if err == nil && len(res) > 0 {
					book = res[0]
				}
				return err
			})
		},
		func() error {
			return a.call(ctx, func(ctx context.Context) error {
				res, err := a.client.NewGetOpenInterestService().Symbol(native).Do(ctx)
				oi = res
				return err
			})
		},
	)
	if err != nil {
		return nil, err
	}
	if premium == nil {
		return nil, fmt.Errorf("binance: %s: %w", native, market.ErrSymbolNotFound)
	}

	quote := &market.RawQuote{
		Native:          native,
		Perpetual:       !strings.Contains(native, "_"),
		Mark:            premium.MarkPrice,
		Index:           premium.IndexPrice,
		FundingRate:     premium.LastFundingRate,
		NextFundingTime: premium.NextFundingTime,
	}
	if stats != nil {
		quote.Last = stats.LastPrice
		quote.High = stats.HighPrice
		quote.Low = stats.LowPrice
		quote.BaseVolume = stats.Volume
		quote.QuoteVolume = stats.QuoteVolume
		quote.ChangePct = stats.PriceChangePercent
	}
	if book != nil {
		quote.Bid = book.BidPrice
		quote.BidSize = book.BidQuantity
		quote.Ask = book.AskPrice
		quote.AskSize = book.AskQuantity
	}
	if oi != nil {
		quote.OpenInterest = oi.OpenInterest
	}
	return quote, nil
}

// FetchFunding implements market.Adapter from the premium index.
func (a *Adapter) FetchFunding(ctx context.Context, symbol string) (*market.RawFunding, error) {
	native, err := market.ConcatSymbol(symbol)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var premium []*futures.PremiumIndex
	err = a.call(ctx, func(ctx context.Context) (err error) {
		premium, err = a.client.NewPremiumIndexService().Symbol(native).Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(premium) == 0 {
		return nil, fmt.Errorf("binance: %s: %w", native, market.ErrSymbolNotFound)
	}
	return &market.RawFunding{Rate: premium[0].LastFundingRate, NextFundingTime: premium[0].NextFundingTime}, nil
}

// ListMarkets implements market.Adapter from exchangeInfo.
func (a *Adapter) ListMarkets(ctx context.Context) ([]market.MarketDescriptor, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var info *futures.ExchangeInfo
	err := a.call(ctx, func(ctx context.Context) (err error) {
		info, err = a.client.NewExchangeInfoService().Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	markets := make([]market.MarketDescriptor, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		desc := market.MarketDescriptor{
			ID:     s.Symbol,
			Symbol: market.UnifiedSymbol(s.BaseAsset, s.QuoteAsset, s.MarginAsset),
			Base:   s.BaseAsset,
			Quote:  s.QuoteAsset,
			Settle: s.MarginAsset,
			Kind:   market.KindPerpetual,
			Active: s.Status == "TRADING",
		}
		if s.ContractType != futures.ContractTypePerpetual {
			desc.Kind = market.KindFuture
			if s.DeliveryDate > 0 {
				expiry := time.UnixMilli(s.DeliveryDate).UTC()
				desc.Expiry = &expiry
			}
		}
		markets = append(markets, desc)
	}
	sort.Slice(markets, func(i, j int) bool {
		return markets[i].ID < markets[j].ID
	})
	return markets, nil
}

// FetchFundingHistory implements market.FundingHistorian. Binance exposes no
// premium in its funding history, so Premium is left at 0.
func (a *Adapter) FetchFundingHistory(ctx context.Context, symbol string, since time.Time) ([]market.FundingEntry, error) {
	native, err := market.ConcatSymbol(symbol)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var rates []*futures.FundingRate
	err = a.call(ctx, func(ctx context.Context) (err error) {
		rates, err = a.client.NewFundingRateService().
			Symbol(native).
			StartTime(since.UnixMilli()).
			Limit(fundingPageSize).
			Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	entries := make([]market.FundingEntry, 0, len(rates))
	for _, r := range rates {
		entries = append(entries, market.FundingEntry{
			Symbol:      r.Symbol,
			FundingRate: market.SafeFloatOr(r.FundingRate, 0),
			Timestamp:   r.FundingTime,
		})
	}
	return entries, nil
}

// FetchCandles implements market.CandleSource.
func (a *Adapter) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	native, err := market.ConcatSymbol(symbol)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var klines []*futures.Kline
	err = a.call(ctx, func(ctx context.Context) (err error) {
		klines, err = a.client.NewKlinesService().Symbol(native).Interval(interval).Limit(limit).Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	candles := make([]market.Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, market.Candle{
			OpenTime: k.OpenTime,
			Open:     market.SafeFloatOr(k.Open, 0),
			High:     market.SafeFloatOr(k.High, 0),
			Low:      market.SafeFloatOr(k.Low, 0),
			Close:    market.SafeFloatOr(k.Close, 0),
			Volume:   market.SafeFloatOr(k.Volume, 0),
		})
	}
	return candles, nil
}

// Close releases pooled connections.
func (a *Adapter) Close() error {
	if a.client.HTTPClient != nil {
		a.client.HTTPClient.CloseIdleConnections()
	}
	return nil
}

// call runs fn with the configured retry budget and maps API errors.
func (a *Adapter) call(ctx context.Context, fn func(context.Context) error) error {
	return market.Retry(ctx, a.maxRetries, func(ctx context.Context) error {
		return classify(fn(ctx))
	})
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == invalidSymbolCode {
			return fmt.Errorf("binance: %s: %w", apiErr.Message, market.ErrSymbolNotFound)
		}
		return fmt.Errorf("binance: api error %d: %s", apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("binance: %w", err)
}
