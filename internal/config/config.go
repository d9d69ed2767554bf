package config

import (
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all dashboard settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Forecast service.
	ForecastAPIURL     string
	ForecastAPITimeout time.Duration // 0 leaves requests unbounded
	HealthPollInterval time.Duration
	LocationCacheSize  int // 0 disables the cache

	// Export round trip.
	ExportDir             string
	ExportDefaultFilename string

	// Optional run events.
	RunEventsEnabled bool
	KafkaBrokers     []string
	KafkaRunTopic    string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	apiURL := strings.TrimRight(sharedcfg.EnvOrDefault("FORECAST_API_URL", "http://localhost:5000"), "/")
	if u, err := url.Parse(apiURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.New("invalid FORECAST_API_URL: must be an absolute http(s) URL")
	}

	apiTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("FORECAST_API_TIMEOUT", "0s"))
	if err != nil || apiTimeout < 0 {
		return nil, errors.New("invalid FORECAST_API_TIMEOUT")
	}

	pollInterval, err := time.ParseDuration(sharedcfg.EnvOrDefault("HEALTH_POLL_INTERVAL", "30s"))
	if err != nil || pollInterval <= 0 {
		return nil, errors.New("invalid HEALTH_POLL_INTERVAL")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ForecastAPIURL:     apiURL,
		ForecastAPITimeout: apiTimeout,
		HealthPollInterval: pollInterval,
		LocationCacheSize:  parseLocationCacheSize(),

		ExportDir:             sharedcfg.EnvOrDefault("EXPORT_DIR", "exports"),
		ExportDefaultFilename: sharedcfg.EnvOrDefault("EXPORT_DEFAULT_FILENAME", "pv_predictions.xlsx"),

		RunEventsEnabled: os.Getenv("RUN_EVENTS_ENABLED") == "true",
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaRunTopic:    sharedcfg.EnvOrDefault("KAFKA_RUN_TOPIC", "pv-forecast-runs"),
	}

	if strings.ContainsAny(cfg.ExportDefaultFilename, `/\`) {
		return nil, errors.New("EXPORT_DEFAULT_FILENAME must be a bare file name")
	}
	if cfg.RunEventsEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("RUN_EVENTS_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.RunEventsEnabled && cfg.KafkaRunTopic == "" {
		return nil, errors.New("KAFKA_RUN_TOPIC is required when RUN_EVENTS_ENABLED is true")
	}

	return cfg, nil
}

func parseLocationCacheSize() int {
	if s := os.Getenv("LOCATION_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
