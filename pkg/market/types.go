package market

import (
	"fmt"
	"strings"
	"time"
)

// InstrumentID identifies one unit of fan-out work.
type InstrumentID struct {
	Exchange string
	Symbol   string
}

func (id InstrumentID) String() string {
	return fmt.Sprintf("%s:%s", id.Exchange, id.Symbol)
}

// Pairs expands exchanges × symbols into instrument ids, exchange-major.
func Pairs(exchanges, symbols []string) []InstrumentID {
	pairs := make([]InstrumentID, 0, len(exchanges)*len(symbols))
	for _, exchange := range exchanges {
		for _, symbol := range symbols {
			pairs = append(pairs, InstrumentID{Exchange: exchange, Symbol: symbol})
		}
	}
	return pairs
}

// RawQuote carries upstream values as received (string, number or nil).
// Adapters only rename fields; coercion happens in Normalize.
type RawQuote struct {
	Instrument InstrumentID
	Native     string // exchange-native instrument id
	Perpetual  bool

	Bid          any
	BidSize      any
	Ask          any
	AskSize      any
	Last         any
	Mark         any
	Index        any
	High         any
	Low          any
	BaseVolume   any
	QuoteVolume  any
	ChangePct    any // 24h change, already in percent
	OpenInterest any

	// Funding fields are filled when the ticker payload already carries them.
	FundingRate     any
	NextFundingTime any // ms epoch

	Expiry *time.Time
}

// RawFunding is the optional funding payload of a perpetual.
type RawFunding struct {
	Rate            any
	NextFundingTime any // ms epoch
}

// MarketKind classifies a listed instrument.
type MarketKind string

const (
	KindPerpetual MarketKind = "swap"
	KindFuture    MarketKind = "future"
	KindOption    MarketKind = "option"
	KindSpot      MarketKind = "spot"
)

// MarketDescriptor describes a listed instrument.
type MarketDescriptor struct {
	ID     string // exchange-native id
	Symbol string // unified BASE/QUOTE:SETTLE
	Base   string
	Quote  string
	Settle string
	Kind   MarketKind
	Active bool
	Expiry *time.Time
}

// IsDatedFuture reports whether the market is an expiring future.
func (m MarketDescriptor) IsDatedFuture() bool {
	return m.Kind == KindFuture && m.Expiry != nil
}

// NormalizedQuote is the exchange-independent quote shape.
type NormalizedQuote struct {
	Instrument InstrumentID
	Native     string
	Perpetual  bool

	MarkPrice    float64
	IndexPrice   float64
	LastPrice    float64
	Bid          float64
	BidSize      float64
	Ask          float64
	AskSize      float64
	High24h      float64
	Low24h       float64
	Volume24h    float64
	Change24hPct float64
	OpenInterest float64

	FundingRate     *float64
	NextFundingTime *string
	Expiry          *time.Time

	// Coerced lists fields that fell back to 0 in the safe-numeric step.
	Coerced []string
}

// DerivedMetrics are computed from a quote and its optional perpetual anchor.
type DerivedMetrics struct {
	PremiumAbs   float64
	PremiumPct   float64
	DaysToExpiry *float64
	Tenor        string
	APR          float64
}

// Entry is one row of an aggregate result.
type Entry struct {
	Quote   NormalizedQuote
	Metrics DerivedMetrics
}

// IsPerpetual reports whether the entry sorts ahead of dated futures.
func (e Entry) IsPerpetual() bool {
	return e.Quote.Perpetual || strings.HasSuffix(strings.ToUpper(e.Quote.Native), "PERPETUAL")
}

// TaskResult is the outcome of one fan-out task: exactly one of Entry or Err is set.
type TaskResult struct {
	Instrument InstrumentID
	Entry      *Entry
	Err        error
}

// OK reports whether the task succeeded.
func (r TaskResult) OK() bool {
	return r.Err == nil && r.Entry != nil
}

// QuoteResult is the outcome of a normalize-only task.
type QuoteResult struct {
	Instrument InstrumentID
	Quote      *NormalizedQuote
	Err        error
}

// OK reports whether the task succeeded.
func (r QuoteResult) OK() bool {
	return r.Err == nil && r.Quote != nil
}

// FundingEntry is one historical funding observation.
type FundingEntry struct {
	Symbol      string
	FundingRate float64
	Premium     float64
	Timestamp   int64 // ms epoch
}

// Candle is one OHLCV bar.
type Candle struct {
	OpenTime int64 // ms epoch
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}
