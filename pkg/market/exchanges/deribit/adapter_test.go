package deribit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeboard-api/pkg/market"
)

var fixedNow = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

type mockDeribit struct {
	server       *httptest.Server
	fundingCalls atomic.Int32
}

func newMockDeribit(t *testing.T) (*mockDeribit, *Adapter) {
	t.Helper()
	m := &mockDeribit{}
	mux := http.NewServeMux()
	result := func(w http.ResponseWriter, payload any) {
		writeJSON(w, map[string]any{"jsonrpc": "2.0", "result": payload, "usIn": 1, "usOut": 2})
	}

	mux.HandleFunc("/api/v2/public/ticker", func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("instrument_name")
		ticker := map[string]any{
			"instrument_name": name,
			"best_bid_price":  49990.0,
			"best_bid_amount": 12000.0,
			"best_ask_price":  50010.0,
			"best_ask_amount": 8000.0,
			"last_price":      50005.0,
			"index_price":     49950.0,
			"open_interest":   750000000.0,
			"stats": map[string]any{
				"high":         50500.0,
				"low":          49000.0,
				"volume":       4321.5,
				"volume_usd":   216000000.0,
				"price_change": -1.25,
			},
		}
		switch name {
		case "BTC-PERPETUAL":
			ticker["mark_price"] = 50000.0
			ticker["funding_8h"] = 0.00012
			ticker["current_funding"] = 0.0
		case "BTC-28MAR25":
			ticker["mark_price"] = 51000.0
		case "BTC-25APR25":
			w.WriteHeader(http.StatusInternalServerError)
			writeJSON(w, map[string]any{"jsonrpc": "2.0", "error": map[string]any{"code": 11044, "message": "not_open"}})
			return
		default:
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(w, map[string]any{"jsonrpc": "2.0", "error": map[string]any{"code": 13020, "message": "not_found"}})
			return
		}
		result(w, ticker)
	})
	mux.HandleFunc("/api/v2/public/get_instruments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "future", r.URL.Query().Get("kind"))
		result(w, []map[string]any{
			{"instrument_name": "BTC-PERPETUAL", "base_currency": "BTC", "quote_currency": "USD", "settlement_currency": "BTC", "settlement_period": "perpetual", "kind": "future", "is_active": true, "expiration_timestamp": 32503708800000},
			{"instrument_name": "BTC-28MAR25", "base_currency": "BTC", "quote_currency": "USD", "settlement_currency": "BTC", "settlement_period": "quarter", "kind": "future", "is_active": true, "expiration_timestamp": 1743148800000},
			{"instrument_name": "BTC-25APR25", "base_currency": "BTC", "quote_currency": "USD", "settlement_currency": "BTC", "settlement_period": "month", "kind": "future", "is_active": true, "expiration_timestamp": 1745568000000},
			{"instrument_name": "ETH-28MAR25", "base_currency": "ETH", "quote_currency": "USD", "settlement_currency": "ETH", "settlement_period": "quarter", "kind": "future", "is_active": true, "expiration_timestamp": 1743148800000},
		})
	})
	mux.HandleFunc("/api/v2/public/get_funding_rate_history", func(w http.ResponseWriter, r *http.Request) {
		m.fundingCalls.Add(1)
		start, _ := strconv.ParseInt(r.URL.Query().Get("start_timestamp"), 10, 64)
		end, _ := strconv.ParseInt(r.URL.Query().Get("end_timestamp"), 10, 64)
		// one sample per day, boundaries inclusive
		rows := make([]map[string]any, 0)
		day := int64(24 * time.Hour / time.Millisecond)
		for ts := start - start%day; ts <= end; ts += day {
			if ts < start {
				continue
			}
			rows = append(rows, map[string]any{"timestamp": ts, "interest_8h": 0.0001, "interest_1h": 0.0000125, "index_price": 50000.0})
		}
		result(w, rows)
	})
	mux.HandleFunc("/api/v2/public/get_tradingview_chart_data", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "60", r.URL.Query().Get("resolution"))
		result(w, map[string]any{
			"status": "ok",
			"ticks":  []int64{1740805200000, 1740808800000, 1740812400000},
			"open":   []float64{100, 105, 111},
			"high":   []float64{110, 112, 115},
			"low":    []float64{90, 101, 109},
			"close":  []float64{105, 111, 113},
			"volume": []float64{12.5, 8, 3},
		})
	})

	m.server = httptest.NewServer(mux)
	adapter := NewAdapter(&market.ExchangeConfig{BaseURL: m.server.URL, Timeout: 2 * time.Second})
	adapter.client.SetHTTPClient(m.server.Client())
	adapter.now = func() time.Time { return fixedNow }
	return m, adapter
}

func TestNativeSymbol(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"btc", "BTC-PERPETUAL"},
		{"BTC/USD:BTC", "BTC-PERPETUAL"},
		{"ETH/USDC:USDC", "ETH_USDC-PERPETUAL"},
		{"btc-28mar25", "BTC-28MAR25"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := NativeSymbol(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFetchQuote(t *testing.T) {
	m, adapter := newMockDeribit(t)
	defer m.server.Close()
	ctx := context.Background()

	raw, err := adapter.FetchQuote(ctx, "BTC")
	require.NoError(t, err)
	assert.Equal(t, "BTC-PERPETUAL", raw.Native)
	assert.True(t, raw.Perpetual)

	quote := market.Normalize(ctx, raw, nil)
	assert.InDelta(t, 50000, quote.MarkPrice, 1e-9)
	assert.InDelta(t, 49950, quote.IndexPrice, 1e-9)
	assert.InDelta(t, 12000, quote.BidSize, 1e-9)
	assert.InDelta(t, 216000000, quote.Volume24h, 1e-6)
	assert.InDelta(t, -1.25, quote.Change24hPct, 1e-9)
	require.NotNil(t, quote.FundingRate)
	assert.InDelta(t, 0.00012, *quote.FundingRate, 1e-12)
	assert.Empty(t, quote.Coerced)

	raw, err = adapter.FetchQuote(ctx, "BTC-28MAR25")
	require.NoError(t, err)
	assert.False(t, raw.Perpetual)
	assert.Nil(t, raw.FundingRate)

	_, err = adapter.FetchQuote(ctx, "NOPE")
	assert.ErrorIs(t, err, market.ErrSymbolNotFound)
}

func TestFetchFunding(t *testing.T) {
	m, adapter := newMockDeribit(t)
	defer m.server.Close()

	funding, err := adapter.FetchFunding(context.Background(), "BTC-PERPETUAL")
	require.NoError(t, err)
	assert.InDelta(t, 0.00012, market.SafeFloatOr(funding.Rate, 0), 1e-12)

	_, err = adapter.FetchFunding(context.Background(), "BTC-28MAR25")
	assert.ErrorIs(t, err, market.ErrUnsupported)
}

func TestListMarkets(t *testing.T) {
	m, adapter := newMockDeribit(t)
	defer m.server.Close()

	markets, err := adapter.ListMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 4)

	assert.Equal(t, "BTC-25APR25", markets[0].ID)
	assert.Equal(t, "BTC-PERPETUAL", markets[2].ID)
	assert.Equal(t, market.KindPerpetual, markets[2].Kind)
	assert.Nil(t, markets[2].Expiry)
	assert.Equal(t, "BTC/USD:BTC", markets[1].Symbol)
	assert.Equal(t, time.Date(2025, 3, 28, 8, 0, 0, 0, time.UTC), *markets[1].Expiry)

	dated := market.DatedFuturesOf(markets, "BTC")
	require.Len(t, dated, 2)
}

func TestFundingHistoryWindows(t *testing.T) {
	m, adapter := newMockDeribit(t)
	defer m.server.Close()

	since := fixedNow.Add(-45 * 24 * time.Hour)
	history, err := adapter.FetchFundingHistory(context.Background(), "BTC", since)
	require.NoError(t, err)
	assert.Equal(t, int32(2), m.fundingCalls.Load())
	require.NotEmpty(t, history)
	for i := 1; i < len(history); i++ {
		assert.Greater(t, history[i].Timestamp, history[i-1].Timestamp)
	}
	assert.Len(t, history, 45)
	assert.InDelta(t, 0.0001, history[0].FundingRate, 1e-12)
}

func TestFetchCandles(t *testing.T) {
	m, adapter := newMockDeribit(t)
	defer m.server.Close()
	ctx := context.Background()

	candles, err := adapter.FetchCandles(ctx, "BTC", "1h", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1740808800000), candles[0].OpenTime)
	assert.InDelta(t, 113, candles[1].Close, 1e-9)

	_, err = adapter.FetchCandles(ctx, "BTC", "4h", 2)
	assert.ErrorIs(t, err, market.ErrUnsupported)
}

func TestFuturesCurveThroughScheduler(t *testing.T) {
	m, adapter := newMockDeribit(t)
	defer m.server.Close()

	registry := market.NewRegistry()
	registry.Register("deribit", func() (market.Adapter, error) { return adapter, nil })
	scheduler := market.NewScheduler(registry, market.WithClock(func() time.Time { return fixedNow }))

	entries, err := scheduler.FuturesCurve(context.Background(), "deribit", "BTC")
	require.NoError(t, err)
	// BTC-25APR25 fails upstream and is left out.
	require.Len(t, entries, 2)

	assert.Equal(t, "BTC-PERPETUAL", entries[0].Quote.Native)
	assert.Equal(t, "-", entries[0].Metrics.Tenor)
	assert.InDelta(t, 50, entries[0].Metrics.PremiumAbs, 1e-9)

	assert.Equal(t, "BTC-28MAR25", entries[1].Quote.Native)
	assert.Equal(t, "27d 0h 0m", entries[1].Metrics.Tenor)
	assert.InDelta(t, 2, entries[1].Metrics.PremiumPct, 1e-9)
	assert.InDelta(t, 2*365.0/27, entries[1].Metrics.APR, 1e-6)

	_, err = scheduler.FuturesCurve(context.Background(), "deribit", "NOPE")
	var validation *market.ValidationError
	assert.ErrorAs(t, err, &validation)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
