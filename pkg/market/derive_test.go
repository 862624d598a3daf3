package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPremiumAgainstIndex(t *testing.T) {
	q := NormalizedQuote{MarkPrice: 50050.6, IndexPrice: 50000}
	m := Compute(q, nil, time.Now())

	assert.InDelta(t, 50.6, m.PremiumAbs, 1e-9)
	assert.InDelta(t, 0.1012, m.PremiumPct, 1e-9)
	assert.Equal(t, "+0.10%", FormatSignedPercent(m.PremiumPct))
	assert.Equal(t, "-", m.Tenor)
	assert.Nil(t, m.DaysToExpiry)
	assert.Zero(t, m.APR)
}

func TestPremiumGuardsDenominator(t *testing.T) {
	for _, ref := range []float64{0, -1, -50000} {
		assert.Zero(t, PremiumPct(50000, ref), "ref=%v", ref)
		assert.Zero(t, PremiumAbs(50000, ref), "ref=%v", ref)
	}
}

func TestAPR(t *testing.T) {
	assert.InDelta(t, 12.1666, APR(50000, 50500, 30), 1e-3)
	assert.Equal(t, "+12.17%", FormatSignedPercent(APR(50000, 50500, 30)))

	tests := []struct {
		name string
		perp float64
		days float64
	}{
		{name: "zero days", perp: 50000, days: 0},
		{name: "negative days", perp: 50000, days: -3},
		{name: "zero perp", perp: 0, days: 30},
		{name: "negative perp", perp: -1, days: 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Zero(t, APR(tt.perp, 50500, tt.days))
		})
	}
}

func TestComputeDatedFuture(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	expiry := now.Add(30 * 24 * time.Hour)
	perp := NormalizedQuote{MarkPrice: 50000, IndexPrice: 49990, Perpetual: true}
	future := NormalizedQuote{MarkPrice: 50500, Expiry: &expiry}

	m := Compute(future, &perp, now)
	require.NotNil(t, m.DaysToExpiry)
	assert.InDelta(t, 30, *m.DaysToExpiry, 1e-9)
	assert.Equal(t, "30d 0h 0m", m.Tenor)
	assert.InDelta(t, 500, m.PremiumAbs, 1e-9)
	assert.InDelta(t, 1.0, m.PremiumPct, 1e-9)
	assert.InDelta(t, 12.1666, m.APR, 1e-3)

	expired := now.Add(-time.Hour)
	future.Expiry = &expired
	m = Compute(future, &perp, now)
	assert.Equal(t, "0m", m.Tenor)
	assert.Zero(t, m.APR)
}

func TestFormatTenor(t *testing.T) {
	tests := []struct {
		days float64
		want string
	}{
		{days: 5 + 2.0/24, want: "5d 2h 0m"},
		{days: 1, want: "1d 0h 0m"},
		{days: 3.0/24 + 15.0/(24*60), want: "3h 15m"},
		{days: 42.0 / (24 * 60), want: "42m"},
		{days: 0, want: "0m"},
		{days: -1, want: "0m"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTenor(tt.days))
		})
	}
}

func TestAssembleSortsPerpetualFirst(t *testing.T) {
	entry := func(native, tenor string, perp bool) *Entry {
		return &Entry{
			Quote:   NormalizedQuote{Native: native, Perpetual: perp},
			Metrics: DerivedMetrics{Tenor: tenor},
		}
	}
	results := []TaskResult{
		{Entry: entry("BTC-PERPETUAL", "-", true)},
		{Entry: entry("BTC-7MAR25", "5d 2h 0m", false)},
		{Entry: entry("BTC-3MAR25", "1d 0h 0m", false)},
	}

	got := Assemble(context.Background(), results)
	require.Len(t, got, 3)
	assert.Equal(t, "BTC-PERPETUAL", got[0].Quote.Native)
	assert.Equal(t, "1d 0h 0m", got[1].Metrics.Tenor)
	assert.Equal(t, "5d 2h 0m", got[2].Metrics.Tenor)
}

func TestAssembleDropsFailures(t *testing.T) {
	ok := &Entry{Quote: NormalizedQuote{Instrument: InstrumentID{Exchange: "a", Symbol: "X"}}}
	results := []TaskResult{
		{Instrument: InstrumentID{Exchange: "b", Symbol: "X"}, Err: &TransientFetchError{Op: "fetchTicker", Err: ErrSymbolNotFound}},
		{Instrument: InstrumentID{Exchange: "a", Symbol: "X"}, Entry: ok},
		{Instrument: InstrumentID{Exchange: "c", Symbol: "X"}},
	}

	got := Assemble(context.Background(), results)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Quote.Instrument.Exchange)
}

func TestTenorDays(t *testing.T) {
	assert.Zero(t, TenorDays("-"))
	assert.Zero(t, TenorDays("3h 15m"))
	assert.Zero(t, TenorDays(""))
	assert.Equal(t, 12.0, TenorDays("12d 0h 1m"))
}
