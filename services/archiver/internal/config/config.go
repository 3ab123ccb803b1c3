package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultRequestTimeout = 60 * time.Second
	defaultStartDate      = "1900-01-01"
)

// Config holds runtime configuration for the archiver service.
type Config struct {
	DatabaseURL    string
	StageBaseURL   string
	RequestTimeout time.Duration
	StartDate      string
	EndDate        string
	DryRun         bool
	LogLevel       string
	LogFormat      string
}

// Load reads configuration from environment variables (optionally .env).
func Load() (Config, error) {
	_ = godotenv.Load(".env")

	cfg := Config{
		RequestTimeout: defaultRequestTimeout,
		StartDate:      defaultStartDate,
		LogLevel:       "info",
		LogFormat:      "json",
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	cfg.StageBaseURL = strings.TrimSpace(os.Getenv("STAGE_BASE_URL"))

	if v := strings.TrimSpace(os.Getenv("ARCHIVER_REQUEST_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid ARCHIVER_REQUEST_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}

	if v := strings.TrimSpace(os.Getenv("ARCHIVER_START_DATE")); v != "" {
		cfg.StartDate = v
	}
	cfg.EndDate = strings.TrimSpace(os.Getenv("ARCHIVER_END_DATE"))
	if cfg.EndDate == "" {
		cfg.EndDate = time.Now().UTC().Format("2006-01-02")
	}

	dryRun := strings.TrimSpace(os.Getenv("DRY_RUN"))
	cfg.DryRun = dryRun == "1" || strings.EqualFold(dryRun, "true")

	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("LOG_FORMAT")); v != "" {
		cfg.LogFormat = v
	}

	return cfg, nil
}
