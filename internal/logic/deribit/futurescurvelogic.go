package deribit

import (
	"context"
	"errors"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"tradeboard-api/internal/svc"
	"tradeboard-api/internal/types"
	"tradeboard-api/pkg/market"
)

const perpetualAPR = "0.00%"

type FuturesCurveLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewFuturesCurveLogic(ctx context.Context, svcCtx *svc.ServiceContext) *FuturesCurveLogic {
	return &FuturesCurveLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// FuturesCurve returns the perpetual and dated futures of one underlying,
// nearest expiry first.
func (l *FuturesCurveLogic) FuturesCurve(req *types.FuturesCurveRequest) ([]types.FuturesCurveEntry, error) {
	exchange := strings.ToLower(strings.TrimSpace(req.Exchange))
	entries, err := l.svcCtx.Scheduler.FuturesCurve(l.ctx, exchange, req.Symbol)
	if err != nil {
		var validation *market.ValidationError
		if errors.As(err, &validation) {
			return nil, err
		}
		return nil, &market.InternalError{Msg: "Error fetching futures data", Err: err}
	}

	out := make([]types.FuturesCurveEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, curveEntry(e))
	}
	return out, nil
}

func curveEntry(e market.Entry) types.FuturesCurveEntry {
	q, m := e.Quote, e.Metrics
	entry := types.FuturesCurveEntry{
		Instrument:    q.Native,
		Bid:           q.Bid,
		BidAmount:     q.BidSize,
		Mark:          q.MarkPrice,
		Ask:           q.Ask,
		AskAmount:     q.AskSize,
		Low24h:        q.Low24h,
		High24h:       q.High24h,
		Change24h:     market.FormatPercent(q.Change24hPct),
		Volume24h:     q.Volume24h,
		OpenInterest:  q.OpenInterest,
		Premium:       market.FormatSignedPercent(m.PremiumPct),
		PremiumAmount: m.PremiumAbs,
		Tenor:         m.Tenor,
		APR:           market.FormatSignedPercent(m.APR),
	}
	if entry.Instrument == "" {
		entry.Instrument = q.Instrument.Symbol
	}
	if e.IsPerpetual() {
		entry.APR = perpetualAPR
	}
	return entry
}
