package svc

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	"github.com/zeromicro/go-zero/core/syncx"

	cachekeys "tradeboard-api/internal/cache"
	"tradeboard-api/internal/config"
	"tradeboard-api/internal/dashboard"
	"tradeboard-api/internal/metrics"
	"tradeboard-api/internal/model"
	"tradeboard-api/internal/repo"
	llmpkg "tradeboard-api/pkg/llm"
	marketpkg "tradeboard-api/pkg/market"
	_ "tradeboard-api/pkg/market/exchanges/binance"
	_ "tradeboard-api/pkg/market/exchanges/bybit"
	_ "tradeboard-api/pkg/market/exchanges/deribit"
	_ "tradeboard-api/pkg/market/exchanges/hyperliquid"
	_ "tradeboard-api/pkg/market/exchanges/kucoin"
	_ "tradeboard-api/pkg/market/exchanges/okx"
)

type ServiceContext struct {
	Config config.Config

	Registry  *marketpkg.Registry
	Scheduler *marketpkg.Scheduler
	Metrics   *metrics.Collector

	// Cache is nil when Redis is not configured.
	Cache cache.Cache
	TTL   cachekeys.TTLSet

	DBConn          sqlx.SqlConn
	DashboardsModel model.DashboardsModel
	Dashboards      repo.DashboardStore

	LLMClient llmpkg.ChatClient
	Generator *dashboard.Generator

	closers []func() error
}

// MustNewServiceContext is NewServiceContext for main.
func MustNewServiceContext(c config.Config) *ServiceContext {
	svc, err := NewServiceContext(c)
	if err != nil {
		log.Fatalf("failed to build service context: %v", err)
	}
	return svc
}

func NewServiceContext(c config.Config) (*ServiceContext, error) {
	if c.Market.Value == nil {
		return nil, errors.New("market config is required")
	}

	svc := &ServiceContext{
		Config:  c,
		Metrics: metrics.NewCollector(c.Name),
		TTL:     cachekeys.NewTTLSet(c.TTL),
	}

	registry, err := c.Market.Value.BuildRegistry()
	if err != nil {
		return nil, fmt.Errorf("build market registry: %w", err)
	}
	svc.Registry = registry
	svc.closers = append(svc.closers, registry.Close)
	svc.Scheduler = marketpkg.NewScheduler(registry,
		marketpkg.WithTaskTimeout(c.Market.Value.TaskTimeout),
		marketpkg.WithObserver(svc.Metrics),
	)

	if c.HasRedis() {
		svc.Cache = cache.New(cache.ClusterConf{{RedisConf: c.Redis, Weight: 100}},
			syncx.NewSingleFlight(), cache.NewStat(cachekeys.Namespace), model.ErrNotFound)
	}

	if c.HasPostgres() {
		db, err := sql.Open("pgx", c.Postgres.DSN)
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(c.Postgres.MaxOpen)
		db.SetMaxIdleConns(c.Postgres.MaxIdle)
		svc.closers = append(svc.closers, db.Close)
		svc.DBConn = sqlx.NewSqlConnFromDB(db)
		svc.DashboardsModel = model.NewDashboardsModel(svc.DBConn)
		svc.Dashboards = repo.NewSQLDashboards(svc.DashboardsModel, svc.Cache, svc.TTL)
	} else {
		svc.Dashboards = repo.NewMemoryDashboards()
	}

	var modelName string
	if llmCfg := c.LLM.Value; llmCfg != nil {
		client, err := llmpkg.NewClient(llmCfg, llmpkg.WithLogger(llmpkg.NewLogger(llmCfg.LogLevel)))
		if err != nil {
			svc.Close()
			return nil, fmt.Errorf("build llm client: %w", err)
		}
		svc.LLMClient = client
		svc.closers = append(svc.closers, client.Close)
		modelName = llmCfg.DefaultModel
	}
	generator, err := dashboard.NewGenerator(svc.LLMClient, modelName)
	if err != nil {
		svc.Close()
		return nil, err
	}
	svc.Generator = generator

	logx.Infof("service context ready: %d exchanges, postgres=%t, redis=%t, llm=%t",
		len(registry.Exchanges()), c.HasPostgres(), c.HasRedis(), svc.LLMClient != nil)
	return svc, nil
}

// MaxPairs is the fan-out cap of one aggregate request.
func (s *ServiceContext) MaxPairs() int {
	return s.Config.Fanout.MaxPairs
}

// Close releases pooled exchange handles, the database and the LLM transport.
func (s *ServiceContext) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
