package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/pv-forecast-dashboard/internal/adapter/forecastapi"
	httpadapter "github.com/couchcryptid/pv-forecast-dashboard/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/pv-forecast-dashboard/internal/adapter/kafka"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/config"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/dashboard"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/export"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/forecast"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/monitor"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/observability"
	"github.com/couchcryptid/pv-forecast-dashboard/internal/session"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if envErr != nil {
		logger.Debug("no .env file loaded", "error", envErr)
	}
	metrics := observability.NewMetrics()

	client := forecastapi.NewClient(cfg.ForecastAPIURL, cfg.ForecastAPITimeout, metrics, logger)
	svc := forecast.NewService(client, metrics, logger)

	// Remote location checks are cached when LOCATION_CACHE_SIZE > 0.
	var locations forecast.LocationValidator = svc
	if cfg.LocationCacheSize > 0 {
		locations = forecast.NewCachedLocationValidator(svc, cfg.LocationCacheSize, metrics)
		logger.Info("location cache enabled", "size", cfg.LocationCacheSize)
	}

	// Run events are feature-flagged via RUN_EVENTS_ENABLED.
	var (
		recorder  dashboard.RunRecorder
		publisher *kafkaadapter.RunPublisher
	)
	if cfg.RunEventsEnabled {
		publisher = kafkaadapter.NewRunPublisher(cfg, logger)
		recorder = publisher
		logger.Info("run events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaRunTopic)
	}

	store := session.NewStore(metrics)
	exporter := export.NewExporter(svc, store, export.DirSaver{Dir: cfg.ExportDir}, cfg.ExportDefaultFilename, metrics, logger)
	ctrl := dashboard.NewController(svc, locations, store, exporter, recorder, metrics, logger)

	health := monitor.NewHealthMonitor(svc, cfg.HealthPollInterval, metrics, logger)
	srv := httpadapter.NewServer(cfg.HTTPAddr, ctrl, health, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("forecast service configured", "url", client.BaseURL(), "timeout", cfg.ForecastAPITimeout)

	if err := health.Start(); err != nil {
		logger.Error("health monitor error", "error", err)
		os.Exit(1)
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	health.Stop()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
