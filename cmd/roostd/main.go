// Command roostd runs the endpoint coordinator: an HTTP server where a
// fleet of remote agents registers, checks in for queued tasks, and posts
// execution results.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/perchsec/roost/config"
	"github.com/perchsec/roost/fleet"
	"github.com/perchsec/roost/server"
	"github.com/perchsec/roost/store"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	listen := flag.String("listen", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	logger := newLogger(cfg.LogLevel)

	st, cleanup, err := openStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.Store).Msg("open store")
	}
	defer cleanup()

	coord := fleet.New(fleet.Config{
		Store:      st,
		Logger:     logger,
		StaleAfter: cfg.StaleThreshold(),
	})
	srv := server.New(coord, logger)

	logger.Info().
		Str("listen", cfg.Listen).
		Str("store", cfg.Store).
		Msg("roostd listening")
	if err := http.ListenAndServe(cfg.Listen, srv.Handler()); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// openStore builds the configured record backend. The returned cleanup
// closes whatever the backend owns.
func openStore(cfg config.Config) (store.Store, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		s := store.NewMemoryStore()
		return s, func() { s.Close() }, nil

	case config.StoreFile:
		s, err := store.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	case config.StoreNATS:
		conn, err := nats.Connect(cfg.NATSURL, nats.Name("roostd"))
		if err != nil {
			return nil, nil, fmt.Errorf("connect nats: %w", err)
		}
		s, err := store.NewNATSStore(store.NATSStoreConfig{
			Conn:   conn,
			Bucket: cfg.NATSBucket,
		})
		if err != nil {
			conn.Close()
			return nil, nil, err
		}
		return s, func() { s.Close(); conn.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownStore, cfg.Store)
	}
}
