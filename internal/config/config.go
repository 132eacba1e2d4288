package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings, read from the environment once at
// startup.
type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	JWTIssuer   string

	// Sync tuning
	MaxEventAge    time.Duration
	MaxFutureDrift time.Duration
	SyncPageSize   int
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	maxEventAge, err := getEnvDuration("SYNC_MAX_EVENT_AGE", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}

	maxFutureDrift, err := getEnvDuration("SYNC_MAX_FUTURE_DRIFT", 60*time.Second)
	if err != nil {
		return nil, err
	}

	syncPageSize, err := getEnvInt("SYNC_PAGE_SIZE", 100)
	if err != nil {
		return nil, err
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    databaseURL,
		JWTSecret:      jwtSecret,
		JWTIssuer:      getEnv("JWT_ISSUER", "stifle"),
		MaxEventAge:    maxEventAge,
		MaxFutureDrift: maxFutureDrift,
		SyncPageSize:   syncPageSize,
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
