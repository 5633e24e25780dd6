package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN          string
	Environment    string
	MigrationsPath string
	SweepInterval  time.Duration
	VideoAPIURL    string
	VideoAPIToken  string
	NotifyURL      string
	NotifyToken    string
}

func Load() (*Config, error) {
	// Load .env if present; ignore the error when the file is absent.
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		Environment:    os.Getenv("ENV"),
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		VideoAPIURL:    os.Getenv("VIDEO_API_URL"),
		VideoAPIToken:  os.Getenv("VIDEO_API_TOKEN"),
		NotifyURL:      os.Getenv("NOTIFY_URL"),
		NotifyToken:    os.Getenv("NOTIFY_TOKEN"),
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "migrations"
	}

	cfg.SweepInterval = time.Minute
	if v := os.Getenv("SWEEP_INTERVAL_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil || seconds <= 0 {
			return nil, fmt.Errorf("invalid SWEEP_INTERVAL_SECONDS %q", v)
		}
		cfg.SweepInterval = time.Duration(seconds) * time.Second
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	return cfg, nil
}
