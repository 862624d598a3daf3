package market

import (
	"context"
	"errors"
	"strings"
	"time"
)

// FundingHistory returns historical funding for symbol on exchange over the
// lookback period. The exchange must declare CapFundingHistory.
func (s *Scheduler) FundingHistory(ctx context.Context, exchange, symbol string, lookback time.Duration) ([]FundingEntry, error) {
	adapter, err := s.capable(ctx, exchange, symbol, CapFundingHistory)
	if err != nil {
		return nil, err
	}
	historian, ok := adapter.(FundingHistorian)
	if !ok {
		return nil, &CapabilityError{Exchange: exchange, Capability: CapFundingHistory}
	}
	entries, err := historian.FetchFundingHistory(ctx, symbol, s.now().Add(-lookback))
	if err != nil {
		return nil, s.classifyLookup(exchange, symbol, "fetchFundingRateHistory", err)
	}
	return entries, nil
}

// Candles returns OHLCV bars for symbol on exchange.
func (s *Scheduler) Candles(ctx context.Context, exchange, symbol, interval string, limit int) ([]Candle, error) {
	if limit <= 0 {
		return nil, NewValidationError("limit must be positive")
	}
	adapter, err := s.capable(ctx, exchange, symbol, CapCandles)
	if err != nil {
		return nil, err
	}
	source, ok := adapter.(CandleSource)
	if !ok {
		return nil, &CapabilityError{Exchange: exchange, Capability: CapCandles}
	}
	candles, err := source.FetchCandles(ctx, symbol, interval, limit)
	if err != nil {
		return nil, s.classifyLookup(exchange, symbol, "fetchOHLCV", err)
	}
	return candles, nil
}

// ListMarkets returns the active markets of exchange.
func (s *Scheduler) ListMarkets(ctx context.Context, exchange string) ([]MarketDescriptor, error) {
	adapter, err := s.capable(ctx, exchange, "", CapListMarkets)
	if err != nil {
		return nil, err
	}
	markets, err := adapter.ListMarkets(ctx)
	if err != nil {
		return nil, &TransientFetchError{Instrument: InstrumentID{Exchange: exchange}, Op: "fetchMarkets", Err: err}
	}
	active := make([]MarketDescriptor, 0, len(markets))
	for _, m := range markets {
		if m.Active {
			active = append(active, m)
		}
	}
	return active, nil
}

func (s *Scheduler) capable(ctx context.Context, exchange, symbol string, c Capability) (Adapter, error) {
	if strings.TrimSpace(exchange) == "" {
		return nil, NewValidationError("exchange is required")
	}
	if !s.registry.Has(exchange) {
		return nil, NewValidationError("exchange %q is not configured", exchange)
	}
	adapter, err := s.registry.Acquire(ctx, exchange)
	if err != nil {
		return nil, &TransientFetchError{Instrument: InstrumentID{Exchange: exchange, Symbol: symbol}, Op: "acquire", Err: err}
	}
	if err := Require(exchange, adapter, c); err != nil {
		return nil, err
	}
	return adapter, nil
}

func (s *Scheduler) classifyLookup(exchange, symbol, op string, err error) error {
	if errors.Is(err, ErrSymbolNotFound) {
		return NewValidationError("unknown symbol %q on %s", symbol, exchange)
	}
	return &TransientFetchError{Instrument: InstrumentID{Exchange: exchange, Symbol: symbol}, Op: op, Err: err}
}
