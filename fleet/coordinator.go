package fleet

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/perchsec/roost/record"
	"github.com/perchsec/roost/store"
)

// Common errors.
var (
	ErrUnknownEndpoint   = errors.New("unknown endpoint")
	ErrUnknownTask       = errors.New("unknown task")
	ErrDuplicateIdentity = errors.New("duplicate endpoint identity")
)

// Config configures a Coordinator.
type Config struct {
	// Store holds the endpoint records. Required.
	Store store.Store

	// Logger receives coordination events.
	Logger zerolog.Logger

	// Now supplies timestamps for last_seen updates.
	// Defaults to record.Timestamp.
	Now func() string

	// StaleAfter marks endpoints stale in fleet listings once last_seen is
	// older than this. Zero disables staleness.
	StaleAfter time.Duration
}

// Coordinator implements the endpoint/task lifecycle on top of a Store.
type Coordinator struct {
	store      store.Store
	logger     zerolog.Logger
	now        func() string
	staleAfter time.Duration

	// regMu serializes registrations so two concurrent registrations of the
	// same (hostname, ip_address) pair cannot both pass the duplicate scan.
	regMu sync.Mutex

	// locks holds one mutex per endpoint id, guarding the whole
	// load-mutate-persist sequence. Entries are never removed; the map is
	// bounded by fleet size.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Coordinator.
func New(cfg Config) *Coordinator {
	now := cfg.Now
	if now == nil {
		now = record.Timestamp
	}
	return &Coordinator{
		store:      cfg.Store,
		logger:     cfg.Logger.With().Str("component", "fleet").Logger(),
		now:        now,
		staleAfter: cfg.StaleAfter,
		locks:      make(map[string]*sync.Mutex),
	}
}

// lockEndpoint acquires the per-id mutex and returns its release func.
func (c *Coordinator) lockEndpoint(id string) func() {
	c.mu.Lock()
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	c.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// load fetches and normalizes the record for an id.
func (c *Coordinator) load(id string) (*record.Endpoint, error) {
	doc, err := c.store.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
			return nil, ErrUnknownEndpoint
		}
		return nil, fmt.Errorf("load %s: %w", id, err)
	}
	return record.FromDoc(id, doc), nil
}

// persist writes the record back as a full overwrite.
func (c *Coordinator) persist(e *record.Endpoint) error {
	if err := c.store.Put(e.ID, e.Doc()); err != nil {
		return fmt.Errorf("persist %s: %w", e.ID, err)
	}
	return nil
}

// docString reads a string field from a raw document.
func docString(doc map[string]any, key string) string {
	s, _ := doc[key].(string)
	return s
}
