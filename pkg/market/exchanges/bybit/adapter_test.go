package bybit

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

type mockBybit struct {
	server      *httptest.Server
	tickerCalls atomic.Int32
	failFirst   atomic.Bool
}

func newMockBybit(t *testing.T) (*mockBybit, *Adapter) {
	t.Helper()
	m := &mockBybit{}
	mux := http.NewServeMux()
	ok := func(w http.ResponseWriter, result any) {
		writeJSON(w, map[string]any{"retCode": 0, "retMsg": "OK", "result": result, "retExtInfo": map[string]any{}, "time": 1704081600000})
	}

	mux.HandleFunc("/v5/market/tickers", func(w http.ResponseWriter, r *http.Request) {
		m.tickerCalls.Add(1)
		if m.failFirst.CompareAndSwap(true, false) {
			writeJSON(w, map[string]any{"retCode": 10016, "retMsg": "Server error", "result": map[string]any{}})
			return
		}
		assert.Equal(t, "linear", r.URL.Query().Get("category"))
		switch r.URL.Query().Get("symbol") {
		case "BTCUSDT":
			ok(w, map[string]any{"category": "linear", "list": []map[string]any{{
				"symbol": "BTCUSDT", "lastPrice": "50040", "indexPrice": "50000", "markPrice": "50050",
				"price24hPcnt": "-0.0125", "highPrice24h": "51000", "lowPrice24h": "49000",
				"openInterest": "55000.5", "turnover24h": "2750000000", "volume24h": "55000",
				"fundingRate": "0.0001", "nextFundingTime": "1704096000000",
				"bid1Price": "50039.9", "bid1Size": "4.2", "ask1Price": "50040.1", "ask1Size": "3.1",
				"deliveryTime": "0",
			}}})
		case "BTC-28MAR25":
			ok(w, map[string]any{"category": "linear", "list": []map[string]any{{
				"symbol": "BTC-28MAR25", "lastPrice": "51000", "indexPrice": "50000", "markPrice": "51010",
				"price24hPcnt": "0.01", "fundingRate": "", "nextFundingTime": "0",
				"deliveryTime": "1743148800000",
			}}})
		default:
			writeJSON(w, map[string]any{"retCode": 10001, "retMsg": "params error: symbol invalid", "result": map[string]any{}})
		}
	})
	mux.HandleFunc("/v5/market/instruments-info", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cursor") == "" {
			ok(w, map[string]any{"category": "linear", "nextPageCursor": "page2", "list": []map[string]any{
				{"symbol": "ETHUSDT", "contractType": "LinearPerpetual", "status": "Trading", "baseCoin": "ETH", "quoteCoin": "USDT", "settleCoin": "USDT", "deliveryTime": "0"},
				{"symbol": "BTCUSDT", "contractType": "LinearPerpetual", "status": "Trading", "baseCoin": "BTC", "quoteCoin": "USDT", "settleCoin": "USDT", "deliveryTime": "0"},
			}})
			return
		}
		ok(w, map[string]any{"category": "linear", "nextPageCursor": "", "list": []map[string]any{
			{"symbol": "BTC-28MAR25", "contractType": "LinearFutures", "status": "Trading", "baseCoin": "BTC", "quoteCoin": "USDC", "settleCoin": "USDC", "deliveryTime": "1743148800000"},
			{"symbol": "OLDUSDT", "contractType": "LinearPerpetual", "status": "Closed", "baseCoin": "OLD", "quoteCoin": "USDT", "settleCoin": "USDT", "deliveryTime": "0"},
		}})
	})
	mux.HandleFunc("/v5/market/funding/history", func(w http.ResponseWriter, r *http.Request) {
		newest := int64(1704096000000)
		if end := r.URL.Query().Get("endTime"); end != "" {
			parsed, _ := strconv.ParseInt(end, 10, 64)
			newest = parsed + 1 - 8*3600*1000
		}
		rows := make([]map[string]any, 0, fundingPageSize)
		for i := 0; i < fundingPageSize; i++ {
			ts := newest - int64(i)*8*3600*1000
			rows = append(rows, map[string]any{
				"symbol":               "BTCUSDT",
				"fundingRate":          "0.0001",
				"fundingRateTimestamp": strconv.FormatInt(ts, 10),
			})
		}
		ok(w, map[string]any{"category": "linear", "list": rows})
	})
	mux.HandleFunc("/v5/market/kline", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "240", r.URL.Query().Get("interval"))
		ok(w, map[string]any{"category": "linear", "symbol": "BTCUSDT", "list": [][]string{
			{"1704081600000", "105", "112", "101", "111", "8", "880"},
			{"1704067200000", "100", "110", "90", "105", "12.5", "1300"},
		}})
	})

	m.server = httptest.NewServer(mux)
	adapter := NewAdapter(&market.ExchangeConfig{BaseURL: m.server.URL, Timeout: 2 * time.Second})
	adapter.client.HTTPClient = m.server.Client()
	return m, adapter
}

func TestFetchQuote(t *testing.T) {
	m, adapter := newMockBybit(t)
	defer m.server.Close()
	ctx := context.Background()

	raw, err := adapter.FetchQuote(ctx, "BTC/USDT:USDT")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", raw.Native)
	assert.True(t, raw.Perpetual)

	quote := market.Normalize(ctx, raw, nil)
	assert.InDelta(t, 50050, quote.MarkPrice, 1e-9)
	assert.InDelta(t, 50000, quote.IndexPrice, 1e-9)
	assert.InDelta(t, -1.25, quote.Change24hPct, 1e-9)
	assert.InDelta(t, 2750000000, quote.Volume24h, 1e-6)
	assert.InDelta(t, 4.2, quote.BidSize, 1e-9)
	require.NotNil(t, quote.FundingRate)
	assert.InDelta(t, 0.0001, *quote.FundingRate, 1e-12)
	require.NotNil(t, quote.NextFundingTime)
	assert.Equal(t, "08:00:00", *quote.NextFundingTime)
	assert.Empty(t, quote.Coerced)
}

func TestFetchQuoteDatedFuture(t *testing.T) {
	m, adapter := newMockBybit(t)
	defer m.server.Close()

	raw, err := adapter.FetchQuote(context.Background(), "btc-28mar25")
	require.NoError(t, err)
	assert.False(t, raw.Perpetual)
	require.NotNil(t, raw.Expiry)
	assert.Equal(t, time.Date(2025, 3, 28, 8, 0, 0, 0, time.UTC), *raw.Expiry)
	assert.Nil(t, raw.FundingRate)

	_, err = adapter.FetchFunding(context.Background(), "BTC-28MAR25")
	assert.ErrorIs(t, err, market.ErrUnsupported)
}

func TestFetchQuoteUnknownSymbol(t *testing.T) {
	m, adapter := newMockBybit(t)
	defer m.server.Close()

	_, err := adapter.FetchQuote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, market.ErrSymbolNotFound)
}

func TestRetriesServerErrors(t *testing.T) {
	m, _ := newMockBybit(t)
	defer m.server.Close()
	m.failFirst.Store(true)

	adapter := NewAdapter(&market.ExchangeConfig{BaseURL: m.server.URL, MaxRetries: 1})
	adapter.client.HTTPClient = m.server.Client()

	funding, err := adapter.FetchFunding(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.InDelta(t, 0.0001, market.SafeFloatOr(funding.Rate, 0), 1e-12)
	assert.Equal(t, int32(2), m.tickerCalls.Load())
}

func TestListMarketsFollowsCursor(t *testing.T) {
	m, adapter := newMockBybit(t)
	defer m.server.Close()

	markets, err := adapter.ListMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 4)

	assert.Equal(t, "BTC-28MAR25", markets[0].ID)
	assert.Equal(t, "BTC/USDC:USDC", markets[0].Symbol)
	assert.True(t, markets[0].IsDatedFuture())
	assert.Equal(t, "BTCUSDT", markets[1].ID)
	assert.Equal(t, "OLDUSDT", markets[3].ID)
	assert.False(t, markets[3].Active)
}

func TestFundingHistoryPaginates(t *testing.T) {
	m, adapter := newMockBybit(t)
	defer m.server.Close()

	since := time.UnixMilli(1704096000000 - 299*8*3600*1000)
	history, err := adapter.FetchFundingHistory(context.Background(), "BTC", since)
	require.NoError(t, err)
	require.Len(t, history, 300)
	assert.Equal(t, since.UnixMilli(), history[0].Timestamp)
	assert.Equal(t, int64(1704096000000), history[299].Timestamp)
}

func TestFetchCandles(t *testing.T) {
	m, adapter := newMockBybit(t)
	defer m.server.Close()
	ctx := context.Background()

	candles, err := adapter.FetchCandles(ctx, "BTC", "4h", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, int64(1704067200000), candles[0].OpenTime)
	assert.InDelta(t, 111, candles[1].Close, 1e-9)

	_, err = adapter.FetchCandles(ctx, "BTC", "7m", 2)
	assert.ErrorIs(t, err, market.ErrUnsupported)
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
