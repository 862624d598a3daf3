package hyperliquid

import (
	"context"
	"fmt"
	"sort"
	"time"

	"tradeboard-api/pkg/market"
)

var intervalDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"8h":  8 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  3 * 24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
}

// GetCandles fetches the most recent limit OHLCV bars, oldest first.
func (c *Client) GetCandles(ctx context.Context, symbol string, interval string, limit int) ([]market.Candle, error) {
	duration, ok := intervalDurations[interval]
	if !ok {
		return nil, fmt.Errorf("hyperliquid: unsupported interval %q", interval)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("hyperliquid: limit must be positive")
	}

	canonical, err := c.canonicalSymbolFor(ctx, symbol)
	if err != nil {
		return nil, err
	}
	endTime := c.now().UTC()
	startTime := endTime.Add(-duration * time.Duration(limit+10))

	var response CandleResponse
	request := InfoRequest{
		Type: "candleSnapshot",
		Req: CandleSnapshotRequest{
			Coin:      canonical,
			Interval:  interval,
			StartTime: startTime.UnixMilli(),
			EndTime:   endTime.UnixMilli(),
		},
	}
	if err := c.doRequest(ctx, request, &response); err != nil {
		return nil, err
	}

	candles := make([]market.Candle, 0, len(response))
	for _, item := range response {
		candles = append(candles, market.Candle{
			OpenTime: item.T,
			Open:     item.O,
			High:     item.H,
			Low:      item.L,
			Close:    item.C,
			Volume:   item.V,
		})
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime < candles[j].OpenTime
	})
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}
