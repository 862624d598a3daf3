package hyperliquid

import (
	"context"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	cachekeys "tradeboard-api/internal/cache"
	"tradeboard-api/internal/svc"
	"tradeboard-api/internal/types"
	"tradeboard-api/pkg/market"
)

const (
	defaultDays    = 30
	maxDays        = 365
	datetimeLayout = "2006-01-02T15:04:05.000Z07:00"
)

type FundingRatesLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewFundingRatesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *FundingRatesLogic {
	return &FundingRatesLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// FundingRates returns the funding history of symbol over the last days.
func (l *FundingRatesLogic) FundingRates(req *types.FundingRatesRequest) ([]types.FundingRate, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, market.NewValidationError("symbol is required")
	}
	days := req.Days
	if days == 0 {
		days = defaultDays
	}
	if days < 0 || days > maxDays {
		return nil, market.NewValidationError("days must be between 1 and %d", maxDays)
	}
	exchange := strings.ToLower(strings.TrimSpace(req.Exchange))

	key := cachekeys.FundingHistoryKey(exchange, symbol, days)
	ttl := cachekeys.FundingHistoryTTL(l.svcCtx.TTL)
	return cachekeys.Fetch(l.ctx, l.svcCtx.Cache, key, ttl, func() ([]types.FundingRate, error) {
		lookback := time.Duration(days) * 24 * time.Hour
		history, err := l.svcCtx.Scheduler.FundingHistory(l.ctx, exchange, symbol, lookback)
		if err != nil {
			return nil, err
		}
		l.Infof("funding history %s %s: %d entries over %dd", exchange, symbol, len(history), days)
		return toFundingRates(history), nil
	})
}

func toFundingRates(in []market.FundingEntry) []types.FundingRate {
	out := make([]types.FundingRate, 0, len(in))
	for _, e := range in {
		out = append(out, types.FundingRate{
			Symbol:      e.Symbol,
			FundingRate: e.FundingRate,
			Premium:     e.Premium,
			Timestamp:   e.Timestamp,
			Datetime:    time.UnixMilli(e.Timestamp).UTC().Format(datetimeLayout),
		})
	}
	return out
}
