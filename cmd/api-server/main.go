package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cinestream/cinestream/internal/server"
	"github.com/cinestream/cinestream/internal/upload"
	"github.com/cinestream/cinestream/pkg/config"
	"github.com/cinestream/cinestream/pkg/database"
	"github.com/cinestream/cinestream/pkg/logger"
	"github.com/cinestream/cinestream/pkg/telemetry"
	"github.com/gin-gonic/gin"
)

var version = "dev"

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.GetLogger().Error("failed_to_load_config", "error", err.Error())
		os.Exit(1)
	}

	logger.Init(logger.LogLevel(cfg.Logging.Level), cfg.Logging.Format == "json", os.Stdout)
	log := logger.WithContext("component", "api_server")
	log.Info("starting_api_server", "version", version, "environment", cfg.Environment)

	if err := telemetry.Init(cfg.SentryDSN, cfg.Environment, version); err != nil {
		log.Warn("sentry_disabled", "error", err.Error())
	}
	defer telemetry.Flush(2 * time.Second)

	if err := database.InitDatabase(cfg.Database.Driver, cfg.Database.DSN); err != nil {
		log.Error("failed_to_initialize_database", "error", err.Error(), "driver", cfg.Database.Driver)
		os.Exit(1)
	}
	defer database.Close()

	if cfg.UsingDefaultSecret() {
		log.Warn("using_default_jwt_secret", "message", "Set JWT_SECRET environment variable in production!")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := server.New(server.Deps{
		Config: cfg,
		DB:     database.Default,
		Media:  upload.NewFFmpeg(cfg.Media.FFmpegPath, cfg.Media.FFprobePath, cfg.Media.ThumbnailOffset),
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", "signal", sig.String())
	case err := <-errCh:
		log.Error("failed_to_start_api_server", "error", err.Error())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn("http_shutdown_incomplete", "error", err.Error())
	}
	if err := srv.Stream.Drain(ctx); err != nil {
		log.Warn("progress_writes_not_drained", "error", err.Error())
	}
	log.Info("api_server_stopped")
}
