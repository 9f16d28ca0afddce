// Package app wires configuration into the data source, the optional
// backends and the services shared by the server and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/andresuchdata/stockcast/internal/api"
	"github.com/andresuchdata/stockcast/internal/cache"
	"github.com/andresuchdata/stockcast/internal/config"
	"github.com/andresuchdata/stockcast/internal/datasource"
	"github.com/andresuchdata/stockcast/internal/messaging"
	"github.com/andresuchdata/stockcast/internal/normalize"
	"github.com/andresuchdata/stockcast/internal/repository"
	"github.com/andresuchdata/stockcast/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/internal/service"
	"github.com/andresuchdata/stockcast/internal/storage"
	"github.com/rs/zerolog/log"
)

type App struct {
	Config    *config.Config
	DB        *postgres.DB
	Publisher messaging.Publisher

	Inventory *service.InventoryService
	Dashboard *service.DashboardService
	Forecasts *service.ForecastService
	Orders    *service.OrderService
	Alerts    *service.AlertService
	Snapshots *service.SnapshotService
}

// New builds every service. Postgres and object storage are only connected
// when configured; the cache and publisher fall back to no-ops.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	rules, err := config.LoadColumnRules(cfg.DataSource.ColumnsFile)
	if err != nil {
		return nil, err
	}

	source, err := datasource.New(ctx, datasource.Options{
		Kind:            cfg.DataSource.Kind,
		SpreadsheetID:   cfg.DataSource.SpreadsheetID,
		CredentialsJSON: cfg.DataSource.CredentialsJSON,
		WorkbookPath:    cfg.DataSource.WorkbookPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init data source: %w", err)
	}

	stockCache, err := cache.New(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("cache unavailable, continuing without cache")
		stockCache = cache.NewNoop()
	}

	a := &App{Config: cfg, Publisher: messaging.New(cfg.Messaging)}

	var snapshots postgres.SnapshotRepository
	if cfg.Database.Enabled {
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.DB = db
		snapshots = postgres.NewSnapshotRepository(db)
	}

	var store storage.ObjectStorage
	if cfg.Storage.Endpoint != "" {
		s3, err := storage.NewS3Client(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("init object storage: %w", err)
		}
		store = s3
	}

	repo := repository.NewStockRepository(source, normalize.New(rules), cfg.DataSource.Tabs)
	a.Inventory = service.NewInventoryService(repo, stockCache)
	a.Dashboard = service.NewDashboardService(a.Inventory)
	a.Forecasts = service.NewForecastService(a.Inventory, stockCache)
	a.Orders = service.NewOrderService(repo, a.Inventory, a.Publisher)
	a.Alerts = service.NewAlertService(a.Forecasts, a.Publisher)
	a.Snapshots = service.NewSnapshotService(a.Forecasts, snapshots, store, cfg.Storage.Prefix)

	log.Info().
		Str("source", cfg.DataSource.Kind).
		Bool("cache", cfg.Cache.Enabled).
		Bool("kafka", cfg.Messaging.Enabled).
		Bool("database", a.DB != nil).
		Bool("storage", store != nil).
		Msg("app initialized")
	return a, nil
}

// APIServices exposes the services the HTTP router needs.
func (a *App) APIServices() *api.Services {
	return &api.Services{
		Inventory: a.Inventory,
		Dashboard: a.Dashboard,
		Forecasts: a.Forecasts,
		Orders:    a.Orders,
		Snapshots: a.Snapshots,
	}
}

func (a *App) Close() {
	if err := a.Publisher.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close publisher")
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}
}
