package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const natsOpTimeout = 5 * time.Second

// NATSStore keeps endpoint documents in a NATS JetStream KV bucket, one
// JSON-encoded document per endpoint id. Useful when the coordinator runs
// next to an existing NATS deployment; it is shared storage, not a
// multi-writer consistency layer — a single coordinator process is still
// assumed.
type NATSStore struct {
	conn   *nats.Conn
	kv     jetstream.KeyValue
	closed atomic.Bool
}

// NATSStoreConfig holds NATS KV store configuration.
type NATSStoreConfig struct {
	// Conn is the NATS connection to use.
	Conn *nats.Conn

	// Bucket is the KV bucket name. Default: "roost-endpoints".
	Bucket string

	// MaxValueSize is the maximum document size in bytes. Default: 1MB.
	MaxValueSize int32
}

// NewNATSStore creates or binds the KV bucket and returns the store.
func NewNATSStore(cfg NATSStoreConfig) (*NATSStore, error) {
	if cfg.Conn == nil {
		return nil, errors.New("nats connection required")
	}
	if cfg.Bucket == "" {
		cfg.Bucket = "roost-endpoints"
	}
	if cfg.MaxValueSize <= 0 {
		cfg.MaxValueSize = 1024 * 1024
	}

	js, err := jetstream.New(cfg.Conn)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:       cfg.Bucket,
		History:      1,
		MaxValueSize: cfg.MaxValueSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create kv bucket: %w", err)
	}

	return &NATSStore{conn: cfg.Conn, kv: kv}, nil
}

// Get retrieves the document for an id.
func (s *NATSStore) Get(id string) (map[string]any, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), natsOpTimeout)
	defer cancel()

	entry, err := s.kv.Get(ctx, id)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("kv get: %w", err)
	}

	doc := make(map[string]any)
	if err := json.Unmarshal(entry.Value(), &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	return doc, nil
}

// Put stores the document for an id.
func (s *NATSStore) Put(id string, doc map[string]any) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if s.closed.Load() {
		return ErrClosed
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), natsOpTimeout)
	defer cancel()

	if _, err := s.kv.Put(ctx, id, data); err != nil {
		return fmt.Errorf("kv put: %w", err)
	}
	return nil
}

// Exists reports whether a document exists for the id.
func (s *NATSStore) Exists(id string) (bool, error) {
	_, err := s.Get(id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

// ListIDs returns every stored endpoint id.
func (s *NATSStore) ListIDs() ([]string, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	lister, err := s.kv.ListKeys(ctx, jetstream.MetaOnly())
	if err != nil {
		return nil, fmt.Errorf("kv list keys: %w", err)
	}

	var ids []string
	for id := range lister.Keys() {
		ids = append(ids, id)
	}
	return ids, nil
}

// Close shuts down the store. The NATS connection is owned by the caller
// and stays open.
func (s *NATSStore) Close() error {
	s.closed.Store(true)
	return nil
}
