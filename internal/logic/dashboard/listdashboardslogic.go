package dashboard

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"tradeboard-api/internal/svc"
	"tradeboard-api/internal/types"
)

type ListDashboardsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewListDashboardsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *ListDashboardsLogic {
	return &ListDashboardsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *ListDashboardsLogic) ListDashboards() (*types.ListDashboardsResponse, error) {
	names, err := l.svcCtx.Dashboards.ListNames(l.ctx)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return &types.ListDashboardsResponse{Dashboards: names}, nil
}
