package market

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

const fundingTimeLayout = "15:04:05"

// Normalize converts an adapter's raw payload into the common quote shape.
// Every numeric field goes through SafeFloat; failures become 0 and are logged.
// IndexPrice falls back to MarkPrice, and MarkPrice to the last trade.
func Normalize(ctx context.Context, raw *RawQuote, funding *RawFunding) NormalizedQuote {
	if raw == nil {
		raw = &RawQuote{}
	}
	c := coercer{ctx: ctx, id: raw.Instrument}

	q := NormalizedQuote{
		Instrument: raw.Instrument,
		Native:     raw.Native,
		Perpetual:  raw.Perpetual,
		Expiry:     raw.Expiry,
	}

	q.LastPrice = c.float("last", raw.Last)
	if isAbsent(raw.Mark) {
		q.MarkPrice = q.LastPrice
	} else {
		q.MarkPrice = c.float("mark", raw.Mark)
	}
	index, ok := SafeFloat(raw.Index)
	if !ok && !isAbsent(raw.Index) {
		c.coerced("index", raw.Index)
	}
	if ok && index > 0 {
		q.IndexPrice = index
	} else {
		q.IndexPrice = q.MarkPrice
	}

	q.Bid = c.float("bid", raw.Bid)
	q.BidSize = c.float("bidSize", raw.BidSize)
	q.Ask = c.float("ask", raw.Ask)
	q.AskSize = c.float("askSize", raw.AskSize)
	q.High24h = c.float("high", raw.High)
	q.Low24h = c.float("low", raw.Low)
	q.Change24hPct = c.float("change", raw.ChangePct)
	q.OpenInterest = c.float("openInterest", raw.OpenInterest)
	if isAbsent(raw.QuoteVolume) {
		q.Volume24h = c.float("baseVolume", raw.BaseVolume)
	} else {
		q.Volume24h = c.float("quoteVolume", raw.QuoteVolume)
	}

	rate, next := raw.FundingRate, raw.NextFundingTime
	if funding != nil {
		if !isAbsent(funding.Rate) {
			rate = funding.Rate
		}
		if !isAbsent(funding.NextFundingTime) {
			next = funding.NextFundingTime
		}
	}
	if !isAbsent(rate) {
		if f, ok := SafeFloat(rate); ok {
			q.FundingRate = &f
		} else {
			c.coerced("fundingRate", rate)
		}
	}
	q.NextFundingTime = FormatFundingTime(next)

	q.Coerced = c.fields
	return q
}

// FormatFundingTime renders a millisecond epoch as a fixed-width UTC "HH:MM:SS".
// Any failure, including non-positive input, yields nil.
func FormatFundingTime(ms any) (formatted *string) {
	defer func() {
		if recover() != nil {
			formatted = nil
		}
	}()
	f, ok := SafeFloat(ms)
	if !ok || f <= 0 {
		return nil
	}
	s := time.UnixMilli(int64(f)).UTC().Format(fundingTimeLayout)
	return &s
}

type coercer struct {
	ctx    context.Context
	id     InstrumentID
	fields []string
}

func (c *coercer) float(field string, v any) float64 {
	if f, ok := SafeFloat(v); ok {
		return f
	}
	if isAbsent(v) {
		logx.WithContext(c.ctx).Debugf("safe-numeric: %s field=%s absent, using 0", c.id, field)
		c.fields = append(c.fields, field)
		return 0
	}
	c.coerced(field, v)
	return 0
}

func (c *coercer) coerced(field string, v any) {
	logx.WithContext(c.ctx).Slowf("safe-numeric: %s field=%s value=%v not numeric, using default", c.id, field, v)
	c.fields = append(c.fields, field)
}
