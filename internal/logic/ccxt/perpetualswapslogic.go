package ccxt

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"

	"tradeboard-api/internal/svc"
	"tradeboard-api/internal/types"
	"tradeboard-api/pkg/market"
)

const perpetualSwapsEndpoint = "perpetual_swaps"

type PerpetualSwapsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewPerpetualSwapsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *PerpetualSwapsLogic {
	return &PerpetualSwapsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// PerpetualSwaps fans out one task per (exchange, symbol) pair and returns the
// successful quotes. It fails only when every task failed.
func (l *PerpetualSwapsLogic) PerpetualSwaps(req *types.PerpetualSwapsRequest) (resp *types.PerpetualSwapsResponse, err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		l.svcCtx.Metrics.ObserveRequest(perpetualSwapsEndpoint, result)
	}()

	exchanges := SplitList(req.Exchanges, true)
	symbols := SplitList(req.Symbols, false)
	if len(exchanges) == 0 || len(symbols) == 0 {
		return nil, market.NewValidationError("exchanges and symbols must be provided")
	}
	pairs := market.Pairs(exchanges, symbols)
	if limit := l.svcCtx.MaxPairs(); limit > 0 && len(pairs) > limit {
		return nil, market.NewValidationError("too many instruments: %d exceeds the limit of %d", len(pairs), limit)
	}

	ctx := logx.ContextWithFields(l.ctx, logx.Field("fanout", uuid.NewString()))
	results := l.svcCtx.Scheduler.FanOut(ctx, pairs)
	entries := market.Assemble(ctx, results)
	if len(entries) == 0 {
		return nil, &market.InternalError{Msg: "failed to fetch data from all exchanges", Err: firstError(results)}
	}
	l.Infof("perpetual swaps: %d of %d instruments", len(entries), len(pairs))

	resp = &types.PerpetualSwapsResponse{Data: make([]types.PerpetualSwap, 0, len(entries))}
	for _, e := range entries {
		q := e.Quote
		resp.Data = append(resp.Data, types.PerpetualSwap{
			Exchange:        q.Instrument.Exchange,
			Symbol:          q.Instrument.Symbol,
			MarkPrice:       q.MarkPrice,
			IndexPrice:      q.IndexPrice,
			FundingRate:     q.FundingRate,
			NextFundingTime: q.NextFundingTime,
			Volume24h:       q.Volume24h,
			OpenInterest:    q.OpenInterest,
		})
	}
	return resp, nil
}

// SplitList splits a comma-separated query value, dropping blanks and
// duplicates. Exchange ids are lower-cased.
func SplitList(raw string, lower bool) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if lower {
			p = strings.ToLower(p)
		}
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func firstError(results []market.TaskResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
