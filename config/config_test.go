package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Listen != ":8443" || cfg.Store != StoreFile || cfg.DataDir != "data" {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.StaleThreshold() != 10*time.Minute {
		t.Errorf("StaleThreshold = %v, want 10m", cfg.StaleThreshold())
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roostd.toml")
	body := `
listen = ":9000"
store = "nats"
nats_bucket = "fleet"
stale_after = "1h"
`
	if err := os.WriteFile(path, []byte(body), 0o640); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Listen != ":9000" || cfg.Store != StoreNATS || cfg.NATSBucket != "fleet" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.StaleThreshold() != time.Hour {
		t.Errorf("StaleThreshold = %v, want 1h", cfg.StaleThreshold())
	}
	// Untouched keys keep their defaults.
	if cfg.DataDir != "data" || cfg.LogLevel != "info" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roostd.toml")
	os.WriteFile(path, []byte(`store = "etcd"`), 0o640)

	if _, err := Load(path); !errors.Is(err, ErrUnknownStore) {
		t.Errorf("Load error = %v, want ErrUnknownStore", err)
	}
}
