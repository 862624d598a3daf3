package model

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

var _ DashboardsModel = (*customDashboardsModel)(nil)

type (
	// DashboardsModel is an interface to be customized, add more methods here,
	// and implement the added methods in customDashboardsModel.
	DashboardsModel interface {
		dashboardsModel
		Upsert(ctx context.Context, name, components string) error
		ListNames(ctx context.Context) ([]string, error)
	}

	customDashboardsModel struct {
		*defaultDashboardsModel
	}
)

// NewDashboardsModel returns a model for the database table.
func NewDashboardsModel(conn sqlx.SqlConn) DashboardsModel {
	return &customDashboardsModel{
		defaultDashboardsModel: newDashboardsModel(conn),
	}
}

// Upsert replaces the components of an existing dashboard with the same name.
func (m *customDashboardsModel) Upsert(ctx context.Context, name, components string) error {
	query := fmt.Sprintf(`insert into %s (name, components) values ($1, $2)
on conflict (name) do update set components = excluded.components, updated_at = now()`, m.tableName())
	_, err := m.conn.ExecCtx(ctx, query, name, components)
	return err
}

// ListNames returns dashboard names in creation order.
func (m *customDashboardsModel) ListNames(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("select name from %s order by id", m.tableName())
	var names []string
	if err := m.conn.QueryRowsCtx(ctx, &names, query); err != nil {
		return nil, err
	}
	return names, nil
}
