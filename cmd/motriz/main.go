package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/motriz-erp/motriz-erp/internal/app"
	"github.com/motriz-erp/motriz-erp/internal/cashbox"
	"github.com/motriz-erp/motriz-erp/internal/fleet"
	"github.com/motriz-erp/motriz-erp/internal/inventory"
	"github.com/motriz-erp/motriz-erp/internal/payables"
	"github.com/motriz-erp/motriz-erp/internal/platform/cache"
	"github.com/motriz-erp/motriz-erp/internal/platform/db"
	"github.com/motriz-erp/motriz-erp/internal/rental"
	"github.com/motriz-erp/motriz-erp/internal/sales"
	"github.com/motriz-erp/motriz-erp/internal/shared"
	"github.com/motriz-erp/motriz-erp/internal/workshop"
	"github.com/motriz-erp/motriz-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis connect", slog.Any("error", err))
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	cashboxRepo := cashbox.NewRepository(dbpool)
	cashboxService := cashbox.NewService(cashboxRepo)
	cashboxHandler := cashbox.NewHandler(logger, cashboxService)

	salesRepo := sales.NewRepository(dbpool)
	salesService := sales.NewService(salesRepo, auditLogger, idempotencyStore)
	salesHandler := sales.NewHandler(logger, salesService)

	var viewCache workshop.ViewCachePort
	if redisClient != nil {
		viewCache = workshop.NewViewCache(redisClient, cfg.PublicViewTTL)
	}
	workshopRepo := workshop.NewRepository(dbpool)
	workshopService := workshop.NewService(workshopRepo, auditLogger, viewCache)
	workshopHandler := workshop.NewHandler(logger, workshopService)

	payablesRepo := payables.NewRepository(dbpool)
	payablesService := payables.NewService(payablesRepo, auditLogger)
	payablesHandler := payables.NewHandler(logger, payablesService)

	fleetRepo := fleet.NewRepository(dbpool)
	fleetService := fleet.NewService(fleetRepo, auditLogger)
	fleetHandler := fleet.NewHandler(logger, fleetService)

	rentalRepo := rental.NewRepository(dbpool)
	rentalService := rental.NewService(rentalRepo, fleetRepo, auditLogger)
	rentalHandler := rental.NewHandler(logger, rentalService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SalesHandler:     salesHandler,
		WorkshopHandler:  workshopHandler,
		PayablesHandler:  payablesHandler,
		RentalHandler:    rentalHandler,
		FleetHandler:     fleetHandler,
		InventoryHandler: inventoryHandler,
		CashboxHandler:   cashboxHandler,
		JobHandler:       jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
