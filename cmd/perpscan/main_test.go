package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tradeboard-api/pkg/market"
)

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"BTC", "ETH"}, split(" BTC, ,ETH "))
	assert.Empty(t, split(""))
}

func TestToRow(t *testing.T) {
	rate := 0.0001
	next := "08:00:00"
	e := market.Entry{
		Quote: market.NormalizedQuote{
			Instrument:      market.InstrumentID{Exchange: "okx", Symbol: "BTC"},
			Native:          "BTC-USDT-SWAP",
			MarkPrice:       50050.6,
			IndexPrice:      50000,
			FundingRate:     &rate,
			NextFundingTime: &next,
		},
		Metrics: market.Compute(market.NormalizedQuote{MarkPrice: 50050.6, IndexPrice: 50000}, nil, time.Now()),
	}
	r := toRow("2024-01-01T00:00:00Z", e)
	assert.Equal(t, "okx", r.Exchange)
	assert.Equal(t, "BTC-USDT-SWAP", r.Native)
	assert.Equal(t, "+0.10%", r.Premium)
	assert.Equal(t, &next, r.NextFundingTime)
}
