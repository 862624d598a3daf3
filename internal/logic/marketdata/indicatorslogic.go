package marketdata

import (
	"context"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"tradeboard-api/internal/svc"
	"tradeboard-api/internal/types"
	"tradeboard-api/pkg/market"
	"tradeboard-api/pkg/market/indicators"
)

const maxCandles = 5000

type IndicatorsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewIndicatorsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *IndicatorsLogic {
	return &IndicatorsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Indicators computes the standard indicator set over recent candle closes.
func (l *IndicatorsLogic) Indicators(req *types.IndicatorsRequest) (*types.IndicatorsResponse, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, market.NewValidationError("symbol is required")
	}
	if req.Limit <= 0 || req.Limit > maxCandles {
		return nil, market.NewValidationError("limit must be between 1 and %d", maxCandles)
	}
	exchange := strings.ToLower(strings.TrimSpace(req.Exchange))

	candles, err := l.svcCtx.Scheduler.Candles(l.ctx, exchange, symbol, req.Interval, req.Limit)
	if err != nil {
		return nil, err
	}
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	set := indicators.Compute(closes)
	l.Debugf("indicators %s %s %s: %d closes", exchange, symbol, req.Interval, len(closes))

	return &types.IndicatorsResponse{Indicators: types.Indicators{
		SMA20: indicators.Nullable(set.SMA20),
		SMA50: indicators.Nullable(set.SMA50),
		RSI:   indicators.Nullable(set.RSI14),
		EMA20: indicators.Nullable(set.EMA20),
		MACD:  indicators.Nullable(set.MACD),
	}}, nil
}
