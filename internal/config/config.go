package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// App holds runtime settings beyond the database connection. Everything is
// read from the environment with sensible defaults so a bare `go run` works
// against local services.
type App struct {
	ListenAddr string

	// TripStoreDir is where the in-progress trip is cached across restarts.
	TripStoreDir string

	// NATSURL enables check-in/trip event fan-out when non-empty.
	NATSURL string

	// MetricsEnabled exposes /metrics on the main listener.
	MetricsEnabled bool

	// StreamMinInterval throttles per-viewer location updates.
	StreamMinInterval time.Duration
	// StreamHistoryCap bounds per-viewer history retention.
	StreamHistoryCap int

	// TrackingTokenTTL is how long a shared tracking link stays valid.
	TrackingTokenTTL time.Duration
}

// LoadApp reads the application config from the environment.
func LoadApp() (*App, error) {
	cfg := &App{
		ListenAddr:        getEnv("LISTEN_ADDR", "0.0.0.0:8080"),
		TripStoreDir:      getEnv("TRIP_STORE_DIR", "./data"),
		NATSURL:           os.Getenv("NATS_URL"),
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", true),
		StreamMinInterval: time.Second,
		StreamHistoryCap:  500,
		TrackingTokenTTL:  12 * time.Hour,
	}

	if v := os.Getenv("STREAM_MIN_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid STREAM_MIN_INTERVAL_MS: %q", v)
		}
		cfg.StreamMinInterval = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("STREAM_HISTORY_CAP"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid STREAM_HISTORY_CAP: %q", v)
		}
		cfg.StreamHistoryCap = n
	}
	if v := os.Getenv("TRACKING_TOKEN_TTL_HOURS"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil || h <= 0 {
			return nil, fmt.Errorf("invalid TRACKING_TOKEN_TTL_HOURS: %q", v)
		}
		cfg.TrackingTokenTTL = time.Duration(h) * time.Hour
	}

	return cfg, nil
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
