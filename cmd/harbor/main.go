package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harbor-books/harbor-books/internal/app"
	"github.com/harbor-books/harbor-books/internal/integration"
	"github.com/harbor-books/harbor-books/internal/ledger"
	"github.com/harbor-books/harbor-books/internal/ledger/reports"
	"github.com/harbor-books/harbor-books/internal/numbering"
	"github.com/harbor-books/harbor-books/internal/observability"
	"github.com/harbor-books/harbor-books/internal/platform/cache"
	"github.com/harbor-books/harbor-books/internal/platform/db"
	"github.com/harbor-books/harbor-books/internal/shared"
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)
	metrics := observability.NewMetrics()

	ledgerRepo := ledger.NewRepository(pool)
	numberService := numbering.NewService(redisClient, ledgerRepo)
	ledgerService := ledger.NewService(ledgerRepo, numberService, auditLogger)
	if cfg.GatewayURL != "" {
		ledgerService.WithGateway(ledger.NewGatewayClient(cfg.GatewayURL, cfg.GatewayAPIKey, cfg.GatewayTimeout))
	}
	ledgerHandler := ledger.NewHandler(logger, ledgerService)
	ledgerHandler.WithMetrics(metrics)

	reportService := reports.NewService(ledgerRepo)
	ledgerService.WithCommitHook(reportService.Bust)
	reportHandler := reports.NewHandler(logger, reportService, reports.NewFormatter(cfg.StatementLocale))

	hooks := integration.NewHooks(ledgerService, ledgerService)
	integrationHandler := integration.NewHandler(logger, hooks)

	numberingHandler := numbering.NewHandler(logger, numberService)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		LedgerHandler:      ledgerHandler,
		ReportsHandler:     reportHandler,
		IntegrationHandler: integrationHandler,
		NumberingHandler:   numberingHandler,
		Metrics:            metrics,
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
