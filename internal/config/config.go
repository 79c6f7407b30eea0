// Package config defines the wager engine configuration and loads it
// from a TOML file with WAGER_* environment variable overrides.
package config

import (
	"errors"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is the root configuration. Fields are populated from a TOML
// file and then optionally overridden by WAGER_* environment variables.
type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Engine EngineConfig `toml:"engine"`
	Roles  RolesConfig  `toml:"roles"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Port string `toml:"port"`
}

// StoreConfig selects the persistence backend. An empty DatabaseURL
// means in-memory (dev only); RedisURL adds the read-through cache on
// top of PostgreSQL.
type StoreConfig struct {
	DatabaseURL string `toml:"database_url"`
	RedisURL    string `toml:"redis_url"`
	CacheTTLSec int    `toml:"cache_ttl_sec"`
}

// EngineConfig holds the economic parameters.
type EngineConfig struct {
	// FeeRate is the initial global house fee percentage, snapshotted
	// into each condition at creation.
	FeeRate decimal.Decimal `toml:"fee_rate"`
}

// RolesConfig assigns the privileged capabilities.
type RolesConfig struct {
	Oracles []string `toml:"oracles"`
	Owners  []string `toml:"owners"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Server: ServerConfig{Port: "8080"},
		Store:  StoreConfig{CacheTTLSec: 30},
		Engine: EngineConfig{FeeRate: decimal.NewFromInt(5)},
	}
}

// Load reads the TOML file at path (skipped when path is empty or the
// file is absent), merges it over the defaults, then applies WAGER_*
// environment overrides. A .env file is honored when present.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	setStr(&cfg.Server.Port, "WAGER_PORT")
	setStr(&cfg.Store.DatabaseURL, "WAGER_DATABASE_URL")
	setStr(&cfg.Store.DatabaseURL, "DATABASE_URL")
	setStr(&cfg.Store.RedisURL, "WAGER_REDIS_URL")
	setStr(&cfg.Store.RedisURL, "REDIS_URL")
	if v := os.Getenv("WAGER_FEE_RATE"); v != "" {
		rate, err := decimal.NewFromString(v)
		if err != nil {
			return nil, err
		}
		cfg.Engine.FeeRate = rate
	}

	return &cfg, nil
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
