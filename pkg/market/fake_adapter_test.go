package market

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type fakeAdapter struct {
	caps       CapabilitySet
	quotes     map[string]*RawQuote
	funding    *RawFunding
	fundingErr error
	quoteErr   error
	markets    []MarketDescriptor
	history    []FundingEntry
	candles    []Candle
	delay      time.Duration
	ignoreCtx  bool
	panicOn    string

	quoteCalls   atomic.Int32
	fundingCalls atomic.Int32
	closeCalls   atomic.Int32

	mu       sync.Mutex
	lastFrom time.Time
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		caps:   Capabilities(CapFetchTicker, CapFetchFunding, CapListMarkets, CapFundingHistory, CapCandles),
		quotes: make(map[string]*RawQuote),
	}
}

func (f *fakeAdapter) Capabilities() CapabilitySet { return f.caps }

func (f *fakeAdapter) FetchQuote(ctx context.Context, symbol string) (*RawQuote, error) {
	f.quoteCalls.Add(1)
	if symbol == f.panicOn && symbol != "" {
		panic("boom")
	}
	if f.delay > 0 {
		if f.ignoreCtx {
			time.Sleep(f.delay)
		} else {
			select {
			case <-time.After(f.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	q, ok := f.quotes[symbol]
	if !ok {
		return nil, ErrSymbolNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *fakeAdapter) FetchFunding(ctx context.Context, symbol string) (*RawFunding, error) {
	f.fundingCalls.Add(1)
	if f.fundingErr != nil {
		return nil, f.fundingErr
	}
	return f.funding, nil
}

func (f *fakeAdapter) ListMarkets(ctx context.Context) ([]MarketDescriptor, error) {
	return f.markets, nil
}

func (f *fakeAdapter) FetchFundingHistory(ctx context.Context, symbol string, since time.Time) ([]FundingEntry, error) {
	f.mu.Lock()
	f.lastFrom = since
	f.mu.Unlock()
	if _, ok := f.quotes[symbol]; !ok {
		return nil, ErrSymbolNotFound
	}
	return f.history, nil
}

func (f *fakeAdapter) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	return f.candles, nil
}

func (f *fakeAdapter) Close() error {
	f.closeCalls.Add(1)
	return nil
}

func registryWith(adapters map[string]*fakeAdapter) *Registry {
	r := NewRegistry()
	for name, adapter := range adapters {
		adapter := adapter
		r.Register(name, func() (Adapter, error) { return adapter, nil })
	}
	return r
}

func perpQuote(mark, index any) *RawQuote {
	return &RawQuote{
		Perpetual:   true,
		Mark:        mark,
		Index:       index,
		Last:        mark,
		QuoteVolume: "1000000",
	}
}
