package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/cache"

	cachekeys "tradeboard-api/internal/cache"
	"tradeboard-api/internal/model"
)

// ErrNotFound is returned when no dashboard has the requested name.
var ErrNotFound = errors.New("dashboard not found")

// Component is one widget of a dashboard.
type Component struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config"`
}

// Dashboard is a named, ordered widget list.
type Dashboard struct {
	Name       string      `json:"name"`
	Components []Component `json:"components"`
}

// DashboardStore persists dashboards by name. Save replaces an existing
// dashboard of the same name.
type DashboardStore interface {
	Save(ctx context.Context, d Dashboard) error
	Get(ctx context.Context, name string) (*Dashboard, error)
	ListNames(ctx context.Context) ([]string, error)
}

// --- In-memory --------------------------------------------------------------

type memoryDashboards struct {
	mu    sync.RWMutex
	order []string
	items map[string]Dashboard
}

// NewMemoryDashboards returns a process-local store used when no DSN is set.
func NewMemoryDashboards() DashboardStore {
	return &memoryDashboards{items: make(map[string]Dashboard)}
}

func (m *memoryDashboards) Save(_ context.Context, d Dashboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[d.Name]; !ok {
		m.order = append(m.order, d.Name)
	}
	m.items[d.Name] = cloneDashboard(d)
	return nil
}

func (m *memoryDashboards) Get(_ context.Context, name string) (*Dashboard, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.items[name]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneDashboard(d)
	return &out, nil
}

func (m *memoryDashboards) ListNames(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string{}, m.order...), nil
}

func cloneDashboard(d Dashboard) Dashboard {
	out := Dashboard{Name: d.Name, Components: make([]Component, len(d.Components))}
	copy(out.Components, d.Components)
	return out
}

// --- Postgres ---------------------------------------------------------------

type sqlDashboards struct {
	model model.DashboardsModel
	cache cache.Cache
	ttl   time.Duration
}

// NewSQLDashboards stores dashboards in Postgres. c may be nil, in which
// case every read goes to the database.
func NewSQLDashboards(m model.DashboardsModel, c cache.Cache, ttl cachekeys.TTLSet) DashboardStore {
	return &sqlDashboards{model: m, cache: c, ttl: cachekeys.DashboardTTL(ttl)}
}

func (s *sqlDashboards) Save(ctx context.Context, d Dashboard) error {
	payload, err := json.Marshal(d.Components)
	if err != nil {
		return fmt.Errorf("encode dashboard %s: %w", d.Name, err)
	}
	if err := s.model.Upsert(ctx, d.Name, string(payload)); err != nil {
		return fmt.Errorf("save dashboard %s: %w", d.Name, err)
	}
	s.invalidate(ctx, cachekeys.DashboardKey(d.Name), cachekeys.DashboardNamesKey())
	return nil
}

func (s *sqlDashboards) Get(ctx context.Context, name string) (*Dashboard, error) {
	key := cachekeys.DashboardKey(name)
	var cached Dashboard
	if s.getCache(ctx, key, &cached) {
		return &cached, nil
	}

	row, err := s.model.FindOneByName(ctx, name)
	if errors.Is(err, model.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load dashboard %s: %w", name, err)
	}
	d := Dashboard{Name: row.Name}
	if body := strings.TrimSpace(row.Components); body != "" {
		if err := json.Unmarshal([]byte(body), &d.Components); err != nil {
			return nil, fmt.Errorf("decode dashboard %s: %w", name, err)
		}
	}
	if d.Components == nil {
		d.Components = []Component{}
	}
	s.setCache(ctx, key, d)
	return &d, nil
}

func (s *sqlDashboards) ListNames(ctx context.Context) ([]string, error) {
	key := cachekeys.DashboardNamesKey()
	var names []string
	if s.getCache(ctx, key, &names) {
		return names, nil
	}
	names, err := s.model.ListNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list dashboards: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	s.setCache(ctx, key, names)
	return names, nil
}

func (s *sqlDashboards) getCache(ctx context.Context, key string, v any) bool {
	if s.cache == nil {
		return false
	}
	if err := s.cache.GetCtx(ctx, key, v); err != nil {
		if !s.cache.IsNotFound(err) {
			logx.WithContext(ctx).Errorf("get cache %s: %v", key, err)
		}
		return false
	}
	return true
}

func (s *sqlDashboards) setCache(ctx context.Context, key string, v any) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	if err := s.cache.SetWithExpireCtx(ctx, key, v, s.ttl); err != nil {
		logx.WithContext(ctx).Errorf("set cache %s: %v", key, err)
	}
}

func (s *sqlDashboards) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DelCtx(ctx, keys...); err != nil {
		logx.WithContext(ctx).Errorf("del cache %v: %v", keys, err)
	}
}
