package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dfcarvalho/patrimonio-backend/api/routes"
	"github.com/dfcarvalho/patrimonio-backend/internal/assets"
	"github.com/dfcarvalho/patrimonio-backend/internal/audit"
	"github.com/dfcarvalho/patrimonio-backend/internal/catalog"
	"github.com/dfcarvalho/patrimonio-backend/internal/importer"
	"github.com/dfcarvalho/patrimonio-backend/internal/inventory"
	"github.com/dfcarvalho/patrimonio-backend/internal/movements"
	"github.com/dfcarvalho/patrimonio-backend/pkg/config"
	"github.com/dfcarvalho/patrimonio-backend/pkg/db"
	"github.com/dfcarvalho/patrimonio-backend/pkg/logger"
	"github.com/dfcarvalho/patrimonio-backend/pkg/metrics"
	"github.com/dfcarvalho/patrimonio-backend/pkg/migrate"
	"github.com/dfcarvalho/patrimonio-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	caps := db.DetectCapabilities(context.Background(), gormDB)
	assetsRepo := assets.NewRepository(gormDB)
	movementsRepo := movements.NewRepository(gormDB)

	importService, err := importer.NewService(importer.ServiceParams{
		Audit:        audit.NewRepository(gormDB),
		Catalog:      catalog.NewRepository(gormDB),
		Tx:           dbClient,
		Logger:       logg,
		Metrics:      metrics.NewImportMetrics(prometheus.DefaultRegisterer),
		Capabilities: caps,
		ChunkSize:    cfg.Import.ChunkSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create import service", err)
		os.Exit(1)
	}

	movementService, err := movements.NewService(movements.ServiceParams{
		Assets:  assetsRepo,
		Repo:    movementsRepo,
		Tx:      dbClient,
		Logger:  logg,
		Metrics: metrics.NewMovementMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create movement service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(inventory.ServiceParams{
		Repo:           inventory.NewRepository(gormDB),
		Assets:         assetsRepo,
		Movements:      movementsRepo,
		Tx:             dbClient,
		Logger:         logg,
		SyncBatchLimit: cfg.Inventory.SyncBatchLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:    cfg,
			Logger:    logg,
			DB:        dbClient,
			Redis:     redisClient,
			Assets:    assetsRepo,
			Imports:   importService,
			Movements: movementService,
			Inventory: inventoryService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
