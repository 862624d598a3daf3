package dashboard

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"tradeboard-api/internal/svc"
	"tradeboard-api/internal/types"
)

type GetDashboardLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetDashboardLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetDashboardLogic {
	return &GetDashboardLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetDashboardLogic) GetDashboard(req *types.GetDashboardRequest) (*types.DashboardResponse, error) {
	d, err := l.svcCtx.Dashboards.Get(l.ctx, req.Name)
	if err != nil {
		return nil, err
	}
	resp := &types.DashboardResponse{Name: d.Name, Components: make([]types.DashboardComponent, 0, len(d.Components))}
	for _, c := range d.Components {
		resp.Components = append(resp.Components, types.DashboardComponent{Type: c.Type, Config: c.Config})
	}
	return resp, nil
}
