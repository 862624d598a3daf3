package market

import (
	"context"
	"errors"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"
)

// PerpetualInstrument returns the perpetual instrument id of an underlying on
// venues that name instruments "<UNDERLYING>-PERPETUAL".
func PerpetualInstrument(underlying string) string {
	return strings.ToUpper(strings.TrimSpace(underlying)) + "-PERPETUAL"
}

// DatedFuturesOf selects the dated futures of underlying from a market list:
// futures (never options) whose id starts with "<UNDERLYING>-", excluding the
// perpetual and "FS" calendar spreads.
func DatedFuturesOf(markets []MarketDescriptor, underlying string) []MarketDescriptor {
	prefix := strings.ToUpper(strings.TrimSpace(underlying)) + "-"
	out := make([]MarketDescriptor, 0)
	for _, m := range markets {
		id := strings.ToUpper(m.ID)
		if m.Kind != KindFuture || !strings.HasPrefix(id, prefix) {
			continue
		}
		if strings.Contains(id, "PERPETUAL") || strings.Contains(id, "FS") {
			continue
		}
		out = append(out, m)
	}
	return out
}

// FuturesCurve builds the term structure of underlying on exchange: the
// perpetual first, then each dated future measured against the perpetual mark.
// A dated future that fails is logged and left out; a failing perpetual fails
// the whole curve.
func (s *Scheduler) FuturesCurve(ctx context.Context, exchange, underlying string) ([]Entry, error) {
	underlying = strings.ToUpper(strings.TrimSpace(underlying))
	if underlying == "" {
		return nil, NewValidationError("symbol is required")
	}
	if !s.registry.Has(exchange) {
		return nil, NewValidationError("exchange %q is not configured", exchange)
	}

	adapter, err := s.registry.Acquire(ctx, exchange)
	if err != nil {
		return nil, &InternalError{Msg: "acquire exchange", Err: err}
	}
	if err := Require(exchange, adapter, CapListMarkets); err != nil {
		return nil, err
	}

	perpID := InstrumentID{Exchange: exchange, Symbol: PerpetualInstrument(underlying)}
	perp := s.FetchQuotes(ctx, []InstrumentID{perpID})[0]
	if !perp.OK() {
		if errors.Is(perp.Err, ErrSymbolNotFound) {
			return nil, NewValidationError("unknown symbol %q on %s", underlying, exchange)
		}
		return nil, perp.Err
	}
	perpQuote := *perp.Quote
	perpQuote.Perpetual = true

	markets, err := adapter.ListMarkets(ctx)
	if err != nil {
		return nil, &TransientFetchError{Instrument: perpID, Op: "fetchMarkets", Err: err}
	}
	dated := DatedFuturesOf(markets, underlying)

	pairs := make([]InstrumentID, 0, len(dated))
	for _, m := range dated {
		pairs = append(pairs, InstrumentID{Exchange: exchange, Symbol: m.ID})
	}
	quotes := s.FetchQuotes(ctx, pairs)

	now := s.now()
	results := make([]TaskResult, 0, len(quotes)+1)
	results = append(results, TaskResult{
		Instrument: perpID,
		Entry:      &Entry{Quote: perpQuote, Metrics: Compute(perpQuote, nil, now)},
	})
	for i, qr := range quotes {
		res := TaskResult{Instrument: qr.Instrument, Err: qr.Err}
		if qr.OK() {
			quote := *qr.Quote
			quote.Perpetual = false
			if quote.Expiry == nil {
				quote.Expiry = dated[i].Expiry
			}
			res.Entry = &Entry{Quote: quote, Metrics: Compute(quote, &perpQuote, now)}
		}
		results = append(results, res)
	}
	entries := Assemble(ctx, results)
	logx.WithContext(ctx).Infof("futures curve %s %s: %d of %d dated futures", exchange, underlying, len(entries)-1, len(dated))
	return entries, nil
}
