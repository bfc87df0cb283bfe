// Package main is the entry point for the aquaops API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/klauspost/compress/gzhttp"

	"aquaops/internal/core/tx"
	"aquaops/internal/domain/catalog"
	"aquaops/internal/domain/inventory"
	"aquaops/internal/domain/maintenance"
	"aquaops/internal/domain/projection"
	"aquaops/internal/domain/workorder"
	v1 "aquaops/internal/infrastructure/http/v1"
	"aquaops/internal/infrastructure/http/v1/handlers"
	"aquaops/internal/infrastructure/storage/memory"
	"aquaops/internal/infrastructure/storage/postgres"
	"aquaops/internal/infrastructure/storage/postgres/catalog_repo"
	"aquaops/internal/infrastructure/storage/postgres/inventory_repo"
	"aquaops/internal/infrastructure/storage/postgres/maintenance_repo"
	"aquaops/internal/infrastructure/storage/postgres/workorder_repo"
	"aquaops/migrations"
	"aquaops/pkg/logger"
)

// repositories is one storage backend.
type repositories struct {
	txManager    tx.Manager
	pinger       handlers.Pinger
	catalog      catalog.Repository
	inventory    inventory.Repository
	maintenances maintenance.Repository
	workOrders   workorder.Repository
	close        func()
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting aquaops server", "storage", cfg.Storage, "location", cfg.WarehouseLocation)

	repos, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer repos.close()

	// --- Domain services ---
	catalogService := catalog.NewService(repos.catalog, repos.txManager)
	inventoryService := inventory.NewService(repos.inventory, catalogService, repos.txManager, cfg.WarehouseLocation)
	maintenanceService := maintenance.NewService(repos.maintenances, catalogService, inventoryService, repos.txManager)
	workOrderService := workorder.NewService(repos.workOrders, repos.maintenances, catalogService, repos.txManager, cfg.WorkOrderTimezone)
	projectionService := projection.NewService(catalogService, inventoryService, repos.maintenances, projection.Config{
		HorizonMonths:  cfg.HorizonMonths,
		CriticalMonths: cfg.CriticalMonths,
		Location:       cfg.WorkOrderTimezone,
	})

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:      log,
		Store:       repos.pinger,
		StorageName: cfg.Storage,
		Release:     !cfg.development(),
		Catalog:     catalogService,
		Inventory:   inventoryService,
		Maintenance: maintenanceService,
		WorkOrders:  workOrderService,
		Projection:  projectionService,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      gzhttp.GzipHandler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func openStorage(ctx context.Context, cfg Config) (*repositories, error) {
	if cfg.Storage == StorageMemory {
		store := memory.New()
		if err := memory.Seed(ctx, store, cfg.WarehouseLocation, time.Now().In(cfg.WorkOrderTimezone)); err != nil {
			return nil, fmt.Errorf("seed memory store: %w", err)
		}
		logger.Info(ctx, "memory store seeded", "plan", memory.DemoPlan)
		return &repositories{
			txManager:    store,
			pinger:       store,
			catalog:      store.Catalog(),
			inventory:    store.Inventory(),
			maintenances: store.Maintenances(),
			workOrders:   store.WorkOrders(),
			close:        func() {},
		}, nil
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = int32(cfg.DBMaxConns)
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	if cfg.DBAutoMigrate {
		if err := migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	txOpts := postgres.DefaultTxOptions()
	txOpts.StatementTimeout = cfg.DBStatementTimeout
	txm := postgres.NewTxManager(pool, txOpts)

	return &repositories{
		txManager:    txm,
		pinger:       txm,
		catalog:      catalog_repo.New(txm),
		inventory:    inventory_repo.New(txm),
		maintenances: maintenance_repo.New(txm),
		workOrders:   workorder_repo.New(txm),
		close: func() {
			postgres.LogPoolStats(ctx, pool)
			pool.Close()
		},
	}, nil
}

// migrate runs the goose migrations over a database/sql view of the pool.
func migrate(ctx context.Context, pool *postgres.Pool) error {
	db := stdlib.OpenDBFromPool(pool.Pool)
	defer db.Close()

	if err := migrations.Up(ctx, db); err != nil {
		return err
	}
	version, err := migrations.Version(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info(ctx, "migrations applied", "version", version)
	return nil
}
