/*
config.go - Service configuration

SOURCES (lowest to highest precedence):
  1. Defaults in struct tags
  2. .env file in the working directory (optional)
  3. Process environment
  4. Command-line flags in cmd/server (-port, -db)

EXAMPLE:
  DB_DRIVER=postgres POSTGRES_DSN=postgres://localhost/availability ./server
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config defines every configurable parameter of the server.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Port        int    `envconfig:"PORT" default:"8080"`

	// Storage
	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	DBPath      string `envconfig:"DB_PATH" default:"data/availability.db"`
	PostgresDSN string `envconfig:"POSTGRES_DSN"`

	DefaultResource string   `envconfig:"DEFAULT_RESOURCE" default:"santa-maria"`
	AllowedOrigins  []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:8080"`

	// Month report cache; disabled when RedisURL is empty.
	RedisURL       string        `envconfig:"REDIS_URL"`
	ReportCacheTTL time.Duration `envconfig:"REPORT_CACHE_TTL" default:"10m"`

	Snapshot SnapshotConfig
}

// SnapshotConfig locates the availability snapshot imported at startup.
// Either a local path or an S3 object; S3 wins when both are set.
type SnapshotConfig struct {
	Path         string        `envconfig:"SNAPSHOT_PATH"`
	S3Bucket     string        `envconfig:"SNAPSHOT_S3_BUCKET"`
	S3Key        string        `envconfig:"SNAPSHOT_S3_KEY" default:"availability.json"`
	S3Region     string        `envconfig:"SNAPSHOT_S3_REGION" default:"us-east-1"`
	S3Endpoint   string        `envconfig:"SNAPSHOT_S3_ENDPOINT"`
	SyncInterval time.Duration `envconfig:"SNAPSHOT_SYNC_INTERVAL" default:"0"`
	// Timeout bounds each import, the one at startup included. 0 disables it.
	Timeout      time.Duration `envconfig:"SNAPSHOT_TIMEOUT" default:"30s"`
}

// Configured reports whether any snapshot source is set.
func (s SnapshotConfig) Configured() bool {
	return s.Path != "" || s.S3Bucket != ""
}

// Load reads .env (if present) and the environment.
func Load() (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return Config{}, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process environment config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects inconsistent settings.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite driver")
		}
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres driver")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown DB_DRIVER %q (use sqlite, postgres or memory)", c.DBDriver)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	if c.Snapshot.SyncInterval < 0 {
		return fmt.Errorf("SNAPSHOT_SYNC_INTERVAL must not be negative")
	}
	if c.Snapshot.Timeout < 0 {
		return fmt.Errorf("SNAPSHOT_TIMEOUT must not be negative")
	}
	return nil
}
