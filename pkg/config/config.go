// Package config holds runtime configuration for the plang engine,
// loaded from environment variables with an optional YAML profile
// overlay.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds engine configuration.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	BundleDir string `yaml:"bundle_dir"`
	TenantID  string `yaml:"tenant_id"`

	// Executor limits.
	MaxSteps      int     `yaml:"max_steps"`
	LookupRate    float64 `yaml:"lookup_rate"` // lookups per second, 0 = unlimited
	LookupBurst   int     `yaml:"lookup_burst"`

	// Precedence store backend: memory, sqlite or postgres.
	StoreDriver string `yaml:"store_driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`

	// Redis precedence cache, empty address disables caching.
	RedisAddr     string        `yaml:"redis_addr"`
	RedisCacheTTL time.Duration `yaml:"redis_cache_ttl"`

	// OTLP collector endpoint, empty disables export.
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Evidence archive (S3-compatible), empty bucket disables archiving.
	ArchiveBucket   string `yaml:"archive_bucket"`
	ArchiveRegion   string `yaml:"archive_region"`
	ArchiveEndpoint string `yaml:"archive_endpoint"`
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	cfg := &Config{
		LogLevel:      envOr("PLANG_LOG_LEVEL", "INFO"),
		BundleDir:     envOr("PLANG_BUNDLE_DIR", "./policies"),
		TenantID:      envOr("PLANG_TENANT_ID", "default"),
		MaxSteps:      envInt("PLANG_MAX_STEPS", 1000),
		LookupRate:    envFloat("PLANG_LOOKUP_RATE", 0),
		LookupBurst:   envInt("PLANG_LOOKUP_BURST", 1),
		StoreDriver:   envOr("PLANG_STORE_DRIVER", "memory"),
		SQLitePath:    envOr("PLANG_SQLITE_PATH", "plang.db"),
		PostgresDSN:   os.Getenv("PLANG_POSTGRES_DSN"),
		RedisAddr:     os.Getenv("PLANG_REDIS_ADDR"),
		RedisCacheTTL: envDuration("PLANG_REDIS_CACHE_TTL", 30*time.Second),
		OTLPEndpoint:  os.Getenv("PLANG_OTLP_ENDPOINT"),
		ArchiveBucket: os.Getenv("PLANG_ARCHIVE_BUCKET"),
		ArchiveRegion: envOr("PLANG_ARCHIVE_REGION", "us-east-1"),
		ArchiveEndpoint: os.Getenv("PLANG_ARCHIVE_ENDPOINT"),
	}
	return cfg
}

// LoadFile loads environment configuration, then overlays the YAML
// profile at path. Fields present in the profile win.
func LoadFile(path string) (*Config, error) {
	cfg := Load()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read profile %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse profile %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations that cannot start an engine.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unknown store driver %q", c.StoreDriver)
	}
	if c.StoreDriver == "postgres" && c.PostgresDSN == "" {
		return fmt.Errorf("config: postgres store driver requires PLANG_POSTGRES_DSN")
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("config: max_steps must be positive, got %d", c.MaxSteps)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
