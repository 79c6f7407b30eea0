package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %s, want 8080", cfg.Server.Port)
	}
	if !cfg.Engine.FeeRate.Equal(decimal.NewFromInt(5)) {
		t.Errorf("fee rate = %s, want 5", cfg.Engine.FeeRate)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wager.toml")
	data := `
[server]
port = "9090"

[engine]
fee_rate = "7"

[roles]
oracles = ["o1", "o2"]
owners = ["boss"]
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %s, want 9090", cfg.Server.Port)
	}
	if !cfg.Engine.FeeRate.Equal(decimal.NewFromInt(7)) {
		t.Errorf("fee rate = %s, want 7", cfg.Engine.FeeRate)
	}
	if len(cfg.Roles.Oracles) != 2 || cfg.Roles.Owners[0] != "boss" {
		t.Errorf("roles = %+v", cfg.Roles)
	}
	// Untouched sections keep their defaults.
	if cfg.Store.CacheTTLSec != 30 {
		t.Errorf("cache ttl = %d, want 30", cfg.Store.CacheTTLSec)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WAGER_PORT", "7070")
	t.Setenv("WAGER_FEE_RATE", "3")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("port = %s, want 7070", cfg.Server.Port)
	}
	if !cfg.Engine.FeeRate.Equal(decimal.NewFromInt(3)) {
		t.Errorf("fee rate = %s, want 3", cfg.Engine.FeeRate)
	}
}
