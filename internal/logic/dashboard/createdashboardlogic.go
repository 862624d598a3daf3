package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"tradeboard-api/internal/repo"
	"tradeboard-api/internal/svc"
	"tradeboard-api/internal/types"
	"tradeboard-api/pkg/market"
)

type CreateDashboardLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewCreateDashboardLogic(ctx context.Context, svcCtx *svc.ServiceContext) *CreateDashboardLogic {
	return &CreateDashboardLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// CreateDashboard stores the dashboard, replacing any with the same name.
func (l *CreateDashboardLogic) CreateDashboard(req *types.CreateDashboardRequest) (*types.MessageResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, market.NewValidationError("dashboard name is required")
	}
	d := repo.Dashboard{Name: req.Name, Components: make([]repo.Component, 0, len(req.Components))}
	for i, c := range req.Components {
		if strings.TrimSpace(c.Type) == "" {
			return nil, market.NewValidationError("component %d: type is required", i)
		}
		d.Components = append(d.Components, repo.Component{Type: c.Type, Config: c.Config})
	}
	if err := l.svcCtx.Dashboards.Save(l.ctx, d); err != nil {
		return nil, err
	}
	l.Infof("dashboard %q saved with %d components", d.Name, len(d.Components))
	return &types.MessageResponse{Message: fmt.Sprintf("Dashboard %s created successfully", d.Name)}, nil
}
