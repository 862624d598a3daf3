package okx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeboard-api/pkg/market"
)

func newMockOKX(t *testing.T) (*httptest.Server, *Adapter) {
	t.Helper()
	mux := http.NewServeMux()
	ok := func(w http.ResponseWriter, data any) {
		writeJSON(w, map[string]any{"code": "0", "msg": "", "data": data})
	}
	known := func(w http.ResponseWriter, r *http.Request, ids ...string) bool {
		id := r.URL.Query().Get("instId")
		for _, want := range ids {
			if id == want {
				return true
			}
		}
		w.WriteHeader(http.StatusBadRequest)
		writeJSON(w, map[string]any{"code": "51001", "msg": "Instrument ID does not exist", "data": []any{}})
		return false
	}

	mux.HandleFunc("/api/v5/market/ticker", func(w http.ResponseWriter, r *http.Request) {
		if !known(w, r, "BTC-USDT-SWAP", "BTC-USDT-250328") {
			return
		}
		ok(w, []map[string]any{{
			"instId": r.URL.Query().Get("instId"), "last": "50500", "open24h": "50000",
			"bidPx": "50499.9", "bidSz": "12", "askPx": "50500.1", "askSz": "7",
			"high24h": "51000", "low24h": "49500", "volCcy24h": "1234.5", "vol24h": "123450",
		}})
	})
	mux.HandleFunc("/api/v5/public/mark-price", func(w http.ResponseWriter, r *http.Request) {
		if !known(w, r, "BTC-USDT-SWAP", "BTC-USDT-250328") {
			return
		}
		mark := "50505"
		if r.URL.Query().Get("instType") == instFutures {
			mark = "51000"
		}
		ok(w, []map[string]any{{"instId": r.URL.Query().Get("instId"), "markPx": mark}})
	})
	mux.HandleFunc("/api/v5/market/index-tickers", func(w http.ResponseWriter, r *http.Request) {
		if !known(w, r, "BTC-USDT") {
			return
		}
		ok(w, []map[string]any{{"instId": "BTC-USDT", "idxPx": "50000"}})
	})
	mux.HandleFunc("/api/v5/public/open-interest", func(w http.ResponseWriter, r *http.Request) {
		if !known(w, r, "BTC-USDT-SWAP", "BTC-USDT-250328") {
			return
		}
		ok(w, []map[string]any{{"instId": r.URL.Query().Get("instId"), "oi": "2000", "oiCcy": "20"}})
	})
	mux.HandleFunc("/api/v5/public/funding-rate", func(w http.ResponseWriter, r *http.Request) {
		if !known(w, r, "BTC-USDT-SWAP") {
			return
		}
		ok(w, []map[string]any{{"instId": "BTC-USDT-SWAP", "fundingRate": "0.0002", "fundingTime": "1704096000000"}})
	})
	mux.HandleFunc("/api/v5/public/instruments", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("instType") == instSwap {
			ok(w, []map[string]any{
				{"instType": "SWAP", "instId": "ETH-USDT-SWAP", "uly": "ETH-USDT", "settleCcy": "USDT", "state": "live", "expTime": ""},
				{"instType": "SWAP", "instId": "BTC-USD-SWAP", "uly": "BTC-USD", "settleCcy": "BTC", "state": "live", "expTime": ""},
			})
			return
		}
		ok(w, []map[string]any{
			{"instType": "FUTURES", "instId": "BTC-USDT-250328", "uly": "BTC-USDT", "settleCcy": "USDT", "state": "live", "expTime": "1743148800000"},
			{"instType": "FUTURES", "instId": "BTC-USDT-240329", "uly": "BTC-USDT", "settleCcy": "USDT", "state": "suspend", "expTime": "1711699200000"},
		})
	})
	mux.HandleFunc("/api/v5/public/funding-rate-history", func(w http.ResponseWriter, r *http.Request) {
		// Newest first, pages of fundingPageSize walking back in 8h steps.
		newest := int64(1704096000000)
		if after := r.URL.Query().Get("after"); after != "" {
			parsed, _ := strconv.ParseInt(after, 10, 64)
			newest = parsed - 8*3600*1000
		}
		rows := make([]map[string]any, 0, fundingPageSize)
		for i := 0; i < fundingPageSize; i++ {
			ts := newest - int64(i)*8*3600*1000
			rows = append(rows, map[string]any{
				"instId":       "BTC-USDT-SWAP",
				"fundingRate":  "0.0001",
				"realizedRate": "0.00009",
				"fundingTime":  strconv.FormatInt(ts, 10),
			})
		}
		ok(w, rows)
	})
	mux.HandleFunc("/api/v5/market/candles", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1H", r.URL.Query().Get("bar"))
		ok(w, [][]string{
			{"1704070800000", "105", "112", "101", "111", "80", "8", "880", "1"},
			{"1704067200000", "100", "110", "90", "105", "125", "12.5", "1300", "1"},
		})
	})

	server := httptest.NewServer(mux)
	adapter := NewAdapter(&market.ExchangeConfig{BaseURL: server.URL, Timeout: 2 * time.Second})
	adapter.client.SetHTTPClient(server.Client())
	return server, adapter
}

func TestNativeSymbol(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"BTC/USDT:USDT", "BTC-USDT-SWAP"},
		{"eth", "ETH-USDT-SWAP"},
		{"BTC/USD:BTC", "BTC-USD-SWAP"},
		{"btc-usdt-250328", "BTC-USDT-250328"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := NativeSymbol(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
	assert.Equal(t, "BTC-USDT", underlyingOf("BTC-USDT-SWAP"))
	assert.Equal(t, "4H", barOf("4h"))
	assert.Equal(t, "15m", barOf("15m"))
}

func TestFetchQuote(t *testing.T) {
	server, adapter := newMockOKX(t)
	defer server.Close()

	raw, err := adapter.FetchQuote(context.Background(), "BTC/USDT:USDT")
	require.NoError(t, err)
	assert.Equal(t, "BTC-USDT-SWAP", raw.Native)
	assert.True(t, raw.Perpetual)
	assert.Nil(t, raw.FundingRate)

	quote := market.Normalize(context.Background(), raw, nil)
	assert.InDelta(t, 50505, quote.MarkPrice, 1e-9)
	assert.InDelta(t, 50000, quote.IndexPrice, 1e-9)
	assert.InDelta(t, 50499.9, quote.Bid, 1e-9)
	assert.InDelta(t, 7, quote.AskSize, 1e-9)
	assert.InDelta(t, 20, quote.OpenInterest, 1e-9)
	assert.InDelta(t, 1.0, quote.Change24hPct, 1e-9)
}

func TestFetchQuoteDatedFuture(t *testing.T) {
	server, adapter := newMockOKX(t)
	defer server.Close()

	raw, err := adapter.FetchQuote(context.Background(), "BTC-USDT-250328")
	require.NoError(t, err)
	assert.False(t, raw.Perpetual)
	assert.InDelta(t, 51000, market.SafeFloatOr(raw.Mark, 0), 1e-9)

	_, err = adapter.FetchFunding(context.Background(), "BTC-USDT-250328")
	assert.ErrorIs(t, err, market.ErrUnsupported)
}

func TestFetchQuoteUnknownSymbol(t *testing.T) {
	server, adapter := newMockOKX(t)
	defer server.Close()

	_, err := adapter.FetchQuote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, market.ErrSymbolNotFound)
}

func TestFetchFunding(t *testing.T) {
	server, adapter := newMockOKX(t)
	defer server.Close()

	funding, err := adapter.FetchFunding(context.Background(), "BTC")
	require.NoError(t, err)
	assert.InDelta(t, 0.0002, market.SafeFloatOr(funding.Rate, 0), 1e-12)
	assert.InDelta(t, 1704096000000, market.SafeFloatOr(funding.NextFundingTime, 0), 0)
}

func TestListMarkets(t *testing.T) {
	server, adapter := newMockOKX(t)
	defer server.Close()

	markets, err := adapter.ListMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 4)

	assert.Equal(t, "BTC-USD-SWAP", markets[0].ID)
	assert.Equal(t, "BTC/USD:BTC", markets[0].Symbol)
	assert.Equal(t, market.KindPerpetual, markets[0].Kind)

	assert.Equal(t, "BTC-USDT-240329", markets[1].ID)
	assert.False(t, markets[1].Active)

	assert.Equal(t, "BTC-USDT-250328", markets[2].ID)
	assert.True(t, markets[2].IsDatedFuture())
	assert.Equal(t, time.Date(2025, 3, 28, 8, 0, 0, 0, time.UTC), *markets[2].Expiry)
}

func TestFundingHistoryPaginates(t *testing.T) {
	server, adapter := newMockOKX(t)
	defer server.Close()

	// 150 funding periods back from the newest row spans two pages.
	since := time.UnixMilli(1704096000000 - 149*8*3600*1000)
	history, err := adapter.FetchFundingHistory(context.Background(), "BTC", since)
	require.NoError(t, err)
	require.Len(t, history, 150)
	assert.Equal(t, since.UnixMilli(), history[0].Timestamp)
	assert.Equal(t, int64(1704096000000), history[149].Timestamp)
	assert.InDelta(t, 0.00009, history[0].FundingRate, 1e-12)
}

func TestFetchCandles(t *testing.T) {
	server, adapter := newMockOKX(t)
	defer server.Close()

	candles, err := adapter.FetchCandles(context.Background(), "BTC", "1h", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1704067200000), candles[0].OpenTime)
	assert.InDelta(t, 111, candles[1].Close, 1e-9)
	assert.InDelta(t, 12.5, candles[0].Volume, 1e-9)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
