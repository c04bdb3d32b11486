/**
 * @description
 * Entry point for the compte service. Wires the primary database pool, the
 * optional archival mirror pool, the RabbitMQ audit publisher, the HTTP API
 * and the cron-driven archiving sweep, then runs until a shutdown signal.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/lynx20042010/apiFinance/internal/api"
	"github.com/lynx20042010/apiFinance/internal/app"
	"github.com/lynx20042010/apiFinance/internal/config"
	"github.com/lynx20042010/apiFinance/internal/store"
	"github.com/lynx20042010/apiFinance/pkg/rabbitmq"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load .env during local development; the file is absent in production.
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, relying on environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	dbpool, err := newPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	var mirror store.ArchiveMirror = store.NoopArchiveMirror{}
	if cfg.ArchiveDatabaseURL != "" {
		archivePool, err := newPool(ctx, cfg.ArchiveDatabaseURL)
		if err != nil {
			logger.Warn("unable to connect to archive database, mirroring disabled", "error", err)
		} else {
			defer archivePool.Close()
			mirror = store.NewPostgresArchiveMirror(archivePool)
			logger.Info("archive database connection established")
		}
	}

	var publisher rabbitmq.Publisher = &rabbitmq.EventProducerFallback{}
	if cfg.RabbitMQURL != "" {
		if producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL); err == nil {
			publisher = producer
			defer producer.Close()
		} else {
			logger.Warn("failed to connect to RabbitMQ, using fallback publisher", "error", err)
		}
	}

	repository := store.NewPostgresAccountRepository(dbpool)
	audit := app.NewEventAuditLogger(publisher, logger)
	service := app.NewAccountService(repository, mirror, audit, logger)
	sweeper := app.NewSweeper(service, repository, logger, time.Duration(cfg.SweepBudgetSeconds)*time.Second)

	scheduler := app.NewScheduler(sweeper, logger, cfg.ArchivingJobSchedule)
	scheduler.Start()

	handler := api.NewCompteHandler(service, sweeper)
	router := api.NewRouter(handler, cfg.InternalAPIKey)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	stopCtx := scheduler.Stop()
	<-stopCtx.Done() // Wait for any in-flight sweep to finish
	logger.Info("server stopped")
}

func newPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pgConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	pgConfig.MaxConns = 100
	pgConfig.MinConns = 20
	pgConfig.MaxConnLifetime = 30 * time.Minute
	pgConfig.MaxConnIdleTime = 5 * time.Minute
	pgConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	return pgxpool.NewWithConfig(ctx, pgConfig)
}
