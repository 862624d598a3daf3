package ccxt

import (
	"context"
	"sort"

	"github.com/zeromicro/go-zero/core/logx"

	"tradeboard-api/internal/svc"
)

type ExchangesLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewExchangesLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ExchangesLogic {
	return &ExchangesLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ExchangesLogic) Exchanges() ([]string, error) {
	names := l.svcCtx.Registry.Exchanges()
	sort.Strings(names)
	return names, nil
}
