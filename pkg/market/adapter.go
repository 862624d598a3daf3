package market

import (
	"context"
	"strings"
	"time"
)

// Capability names one capability-gated upstream operation.
type Capability uint8

const (
	CapFetchTicker Capability = 1 << iota
	CapFetchFunding
	CapListMarkets
	CapFundingHistory
	CapCandles
)

var capabilityNames = []struct {
	cap  Capability
	name string
}{
	{CapFetchTicker, "fetchTicker"},
	{CapFetchFunding, "fetchFundingRate"},
	{CapListMarkets, "fetchMarkets"},
	{CapFundingHistory, "fetchFundingRateHistory"},
	{CapCandles, "fetchOHLCV"},
}

func (c Capability) String() string {
	for _, item := range capabilityNames {
		if item.cap == c {
			return item.name
		}
	}
	return "unknown"
}

// CapabilitySet is the explicit capability descriptor an adapter declares.
type CapabilitySet uint8

// Capabilities builds a descriptor from individual capabilities.
func Capabilities(caps ...Capability) CapabilitySet {
	var set CapabilitySet
	for _, c := range caps {
		set |= CapabilitySet(c)
	}
	return set
}

// Has reports whether c is declared.
func (s CapabilitySet) Has(c Capability) bool {
	return s&CapabilitySet(c) != 0
}

func (s CapabilitySet) String() string {
	names := make([]string, 0, len(capabilityNames))
	for _, item := range capabilityNames {
		if s.Has(item.cap) {
			names = append(names, item.name)
		}
	}
	return strings.Join(names, ",")
}

// Adapter encapsulates one exchange: its connection, capabilities and payload quirks.
type Adapter interface {
	// Capabilities returns the operations this adapter supports.
	Capabilities() CapabilitySet
	// FetchQuote returns the raw ticker for a symbol. Requires CapFetchTicker.
	FetchQuote(ctx context.Context, symbol string) (*RawQuote, error)
	// FetchFunding returns the current funding of a perpetual. Requires CapFetchFunding.
	FetchFunding(ctx context.Context, symbol string) (*RawFunding, error)
	// ListMarkets returns listed instruments. Requires CapListMarkets.
	ListMarkets(ctx context.Context) ([]MarketDescriptor, error)
	// Close releases the adapter's resources. Safe to call more than once.
	Close() error
}

// FundingHistorian is implemented by adapters declaring CapFundingHistory.
type FundingHistorian interface {
	FetchFundingHistory(ctx context.Context, symbol string, since time.Time) ([]FundingEntry, error)
}

// CandleSource is implemented by adapters declaring CapCandles.
type CandleSource interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}

// Require returns a CapabilityError unless adapter declares c.
func Require(exchange string, adapter Adapter, c Capability) error {
	if adapter == nil || !adapter.Capabilities().Has(c) {
		return &CapabilityError{Exchange: exchange, Capability: c}
	}
	return nil
}
