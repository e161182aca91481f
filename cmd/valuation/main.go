package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"valuation-backend/internal/config"
	"valuation-backend/internal/eventbus"
	authservice "valuation-backend/internal/service/auth"
	"valuation-backend/internal/service/export"
	"valuation-backend/internal/service/files"
	"valuation-backend/internal/service/reference"
	"valuation-backend/internal/service/report"
	"valuation-backend/internal/service/resolver"
	"valuation-backend/internal/service/templatelint"
	"valuation-backend/internal/storage/mongo"
	"valuation-backend/internal/storage/mysql"
	"valuation-backend/internal/storage/s3"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustConfig()

	log := setupLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlStorage, err := mysql.New(cfg.MySQL)
	if err != nil {
		log.Error("failed to open mysql", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer sqlStorage.Close()

	startCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := sqlStorage.Ping(startCtx); err != nil {
		log.Error("mysql unreachable", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := sqlStorage.Migrate(startCtx); err != nil {
		log.Error("failed to migrate mysql", slog.String("error", err.Error()))
		os.Exit(1)
	}

	docStorage, err := mongo.New(startCtx, cfg.Mongo)
	if err != nil {
		log.Error("failed to connect mongo", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer docStorage.Close(context.Background())

	if err := docStorage.EnsureIndexes(startCtx); err != nil {
		log.Error("failed to create mongo indexes", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// a nil interface disables uploads
	var objects files.ObjectStore
	if cfg.S3.Enabled() {
		store, err := s3.New(startCtx, cfg.S3)
		if err != nil {
			log.Error("failed to configure s3", slog.String("error", err.Error()))
			os.Exit(1)
		}
		objects = store
	} else {
		log.Warn("s3 is not configured, file uploads are disabled")
	}

	linter, err := templatelint.New()
	if err != nil {
		log.Error("failed to compile template schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	bus := eventbus.New(log, 1024)
	bus.Subscribe("activity", eventbus.NewActivityConsumer(sqlStorage))
	bus.Start(context.Background())

	templates := resolver.NewService(log, docStorage)
	references := reference.NewService(sqlStorage)
	reports := report.NewService(log, docStorage, templates, references, bus)

	deps := dependencies{
		sql:        sqlStorage,
		docs:       docStorage,
		auth:       authservice.NewService(log, sqlStorage, cfg.JWT.Secret, cfg.JWT.TTL),
		templates:  templates,
		references: references,
		reports:    reports,
		exports:    export.NewService(reports),
		files:      files.NewService(log, objects, bus, cfg.S3.MaxUploadMB),
		linter:     linter,
		events:     bus,
	}

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      routes(*cfg, log, deps),
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: 3 * cfg.HTTPServer.RequestTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("server started", slog.String("address", cfg.Address), slog.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.String("error", err.Error()))
	}
	bus.Stop()

	log.Info("server stopped")
}
