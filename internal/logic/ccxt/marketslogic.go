package ccxt

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

type MarketsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewMarketsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *MarketsLogic {
	return &MarketsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Markets lists the active markets of one exchange.
func (l *MarketsLogic) Markets(req *types.MarketsRequest) ([]types.Market, error) {
	exchange := strings.ToLower(strings.TrimSpace(req.Exchange))
	key := cachekeys.MarketsKey(exchange)
	ttl := cachekeys.MarketsTTL(l.svcCtx.TTL)

	return cachekeys.Fetch(l.ctx, l.svcCtx.Cache, key, ttl, func() ([]types.Market, error) {
		markets, err := l.svcCtx.Scheduler.ListMarkets(l.ctx, exchange)
		if err != nil {
			return nil, err
		}
		l.Infof("markets %s: %d active", exchange, len(markets))
		return toMarkets(markets), nil
	})
}

func toMarkets(in []market.MarketDescriptor) []types.Market {
	out := make([]types.Market, 0, len(in))
	for _, m := range in {
		item := types.Market{
			ID:     m.ID,
			Symbol: m.Symbol,
			Base:   m.Base,
			Quote:  m.Quote,
			Settle: m.Settle,
			Type:   string(m.Kind),
			Active: m.Active,
		}
		if m.Expiry != nil {
			expiry := m.Expiry.UTC().Format(time.RFC3339)
			item.Expiry = &expiry
		}
		out = append(out, item)
	}
	return out
}
