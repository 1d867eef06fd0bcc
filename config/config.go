// Package config loads the coordinator's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Store backend names accepted in the config file.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreNATS   = "nats"
)

// ErrUnknownStore indicates an unrecognized store backend name.
var ErrUnknownStore = errors.New("unknown store backend")

// Config holds the roostd server configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `toml:"listen"`

	// Store selects the record backend: memory, file or nats.
	Store string `toml:"store"`

	// DataDir is the record directory for the file backend.
	DataDir string `toml:"data_dir"`

	// NATSURL and NATSBucket configure the nats backend.
	NATSURL    string `toml:"nats_url"`
	NATSBucket string `toml:"nats_bucket"`

	// LogLevel is a zerolog level name (trace..error).
	LogLevel string `toml:"log_level"`

	// StaleAfter marks endpoints stale in fleet listings once their
	// last_seen is older than this (e.g. "10m"). Zero disables it.
	StaleAfter duration `toml:"stale_after"`
}

// duration lets time.Duration values be written as TOML strings.
type duration time.Duration

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

// StaleThreshold returns StaleAfter as a time.Duration.
func (c Config) StaleThreshold() time.Duration {
	return time.Duration(c.StaleAfter)
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:     ":8443",
		Store:      StoreFile,
		DataDir:    "data",
		NATSURL:    "nats://127.0.0.1:4222",
		NATSBucket: "roost-endpoints",
		LogLevel:   "info",
		StaleAfter: duration(10 * time.Minute),
	}
}

// Load reads a TOML config file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Store {
	case StoreMemory, StoreFile, StoreNATS:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStore, c.Store)
	}
}
