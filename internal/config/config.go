package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Feed     FeedConfig
	Ingest   IngestConfig
	Cache    CacheConfig
	Identity IdentityConfig
}

// ServerConfig holds API server configuration.
type ServerConfig struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8420"`
}

// StorageConfig holds store configuration.
type StorageConfig struct {
	Path             string `env:"STORAGE_PATH" envDefault:"./data"`
	CompressionLevel int    `env:"SNAPSHOT_COMPRESSION_LEVEL" envDefault:"2"`
}

// FeedConfig holds market data provider configuration.
type FeedConfig struct {
	BaseURL string        `env:"FEED_BASE_URL" envDefault:"http://localhost:9320"`
	Timeout time.Duration `env:"FEED_TIMEOUT" envDefault:"15s"`
}

// IngestConfig holds collection cycle configuration.
type IngestConfig struct {
	Interval       time.Duration `env:"COLLECT_INTERVAL" envDefault:"5m"`
	TopInstruments int           `env:"TOP_INSTRUMENTS" envDefault:"10"`
	Pacing         time.Duration `env:"FEED_PACING" envDefault:"200ms"`
}

// CacheConfig selects and tunes the latest-record cache.
type CacheConfig struct {
	Backend  string        `env:"CACHE_BACKEND" envDefault:"memory"` // memory | redis
	Capacity int           `env:"CACHE_CAPACITY" envDefault:"256"`
	TTL      time.Duration `env:"CACHE_TTL" envDefault:"30s"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// IdentityConfig holds node identity configuration.
type IdentityConfig struct {
	Dir string `env:"IDENTITY_DIR" envDefault:"./data/identity"`
}

// Load reads configuration from the environment, with an optional .env
// file in the working directory.
func Load() (*Config, error) {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server listen address is required")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}
	if c.Storage.CompressionLevel < 1 || c.Storage.CompressionLevel > 4 {
		return fmt.Errorf("snapshot compression level must be between 1 and 4")
	}
	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed base URL is required")
	}
	if c.Ingest.Interval < time.Second {
		return fmt.Errorf("collect interval must be at least 1s")
	}
	if c.Ingest.TopInstruments < 1 {
		return fmt.Errorf("top instruments must be at least 1")
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("cache backend must be memory or redis, got %q", c.Cache.Backend)
	}
	return nil
}
