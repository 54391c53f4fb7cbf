/*
Package configs is responsible for loading and parsing the application's configuration settings.

Every setting comes from an environment variable with a default: the running environment,
listen port, CORS origins, HTTP rate limit, delivery timeout, per-connection flood limit,
and the optional message log database.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int
	LogLevel    string

	// Security Settings
	AllowedOrigins  []string
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Relay Settings
	DeliveryTimeout time.Duration
	MessageRate     float64
	MessageBurst    int

	// Message Log Settings
	DatabaseDSN   string
	HistoryBuffer int
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// PersistenceEnabled reports whether messages should be appended to the database log.
func (c *AppConfig) PersistenceEnabled() bool {
	return c.DatabaseDSN != ""
}

// LoadConfig reads and parses the application configuration from environment variables.
// It applies defaults, converts types and validates ranges, returning the first error found.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	// --- General Server Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	if cfg.Port, err = intEnv("PORT", 5000); err != nil {
		return nil, err
	}
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))

	// --- Security Settings ---
	cfg.AllowedOrigins = []string{}
	if originsStr := os.Getenv("ALLOWED_ORIGINS"); originsStr != "" {
		for _, origin := range strings.Split(originsStr, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	}

	if cfg.RateLimitMax, err = intEnv("RATE_LIMIT_MAX", 100); err != nil {
		return nil, err
	}
	if cfg.RateLimitMax < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX must be positive, got %d", cfg.RateLimitMax)
	}

	if cfg.RateLimitWindow, err = durationEnv("RATE_LIMIT_WINDOW", 15*time.Minute); err != nil {
		return nil, err
	}

	// --- Relay Settings ---
	if cfg.DeliveryTimeout, err = durationEnv("DELIVERY_TIMEOUT", 2*time.Second); err != nil {
		return nil, err
	}

	rateStr := os.Getenv("MESSAGE_RATE")
	if rateStr == "" {
		rateStr = "5"
	}
	cfg.MessageRate, err = strconv.ParseFloat(rateStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid MESSAGE_RATE environment variable: %w", err)
	}
	if cfg.MessageRate <= 0 {
		return nil, fmt.Errorf("MESSAGE_RATE must be positive, got %v", cfg.MessageRate)
	}

	if cfg.MessageBurst, err = intEnv("MESSAGE_BURST", 10); err != nil {
		return nil, err
	}
	if cfg.MessageBurst < 1 {
		return nil, fmt.Errorf("MESSAGE_BURST must be positive, got %d", cfg.MessageBurst)
	}

	// --- Message Log Settings ---
	// An empty DATABASE_URL leaves persistence off; messages stay ephemeral.
	cfg.DatabaseDSN = strings.TrimSpace(os.Getenv("DATABASE_URL"))

	if cfg.HistoryBuffer, err = intEnv("HISTORY_BUFFER", 256); err != nil {
		return nil, err
	}
	if cfg.HistoryBuffer < 1 {
		return nil, fmt.Errorf("HISTORY_BUFFER must be positive, got %d", cfg.HistoryBuffer)
	}

	return cfg, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, v)
	}
	return v, nil
}
