package hyperliquid

import (
	"context"
	"time"

	"tradeboard-api/pkg/market"
)

const (
	// fundingPageSize is the most rows fundingHistory returns per call.
	fundingPageSize = 500
	maxFundingPages = 20
)

// GetFundingHistory returns hourly funding observations from since until now.
func (c *Client) GetFundingHistory(ctx context.Context, symbol string, since time.Time) ([]market.FundingEntry, error) {
	canonical, err := c.canonicalSymbolFor(ctx, symbol)
	if err != nil {
		return nil, err
	}

	entries := make([]market.FundingEntry, 0)
	start := since.UnixMilli()
	for page := 0; page < maxFundingPages; page++ {
		var response FundingHistoryResponse
		req := InfoRequest{Type: "fundingHistory", Coin: canonical, StartTime: start}
		if err := c.doRequest(ctx, req, &response); err != nil {
			return nil, err
		}
		for _, item := range response {
			entries = append(entries, market.FundingEntry{
				Symbol:      canonical,
				FundingRate: market.SafeFloatOr(item.FundingRate, 0),
				Premium:     market.SafeFloatOr(item.Premium, 0),
				Timestamp:   item.Time,
			})
		}
		if len(response) < fundingPageSize {
			break
		}
		start = response[len(response)-1].Time + 1
	}
	return entries, nil
}

// nextFundingTime returns the next hourly settlement after now, in ms.
func nextFundingTime(now time.Time) int64 {
	return now.UTC().Truncate(time.Hour).Add(time.Hour).UnixMilli()
}
