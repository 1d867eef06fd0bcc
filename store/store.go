// Package store provides durable persistence of endpoint records, one
// document per endpoint id.
//
// Records cross this boundary as loose mappings so that legacy document
// shapes survive the round trip untouched; normalization into typed records
// happens above the store, in the record package. Every Put is a full
// overwrite of the document for that id — higher layers read-modify-write.
//
// Three backends are provided: MemoryStore for tests and ephemeral fleets,
// FileStore persisting one TOML file per endpoint, and NATSStore on a
// JetStream key-value bucket for deployments that already run NATS.
package store

import "errors"

// Common errors.
var (
	ErrNotFound  = errors.New("endpoint not found")
	ErrInvalidID = errors.New("invalid endpoint id")
	ErrClosed    = errors.New("store closed")
)

// Store is a persistent mapping from endpoint id to endpoint document.
type Store interface {
	// Get retrieves the document for an id.
	// Returns ErrNotFound if the id does not exist.
	Get(id string) (map[string]any, error)

	// Put stores the document for an id, overwriting any previous one.
	Put(id string, doc map[string]any) error

	// Exists reports whether a document exists for the id.
	Exists(id string) (bool, error)

	// ListIDs returns every stored endpoint id.
	ListIDs() ([]string, error)

	// Close releases the store's resources.
	Close() error
}

// ValidateID checks that an id is usable as a store key.
func ValidateID(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return ErrInvalidID
		}
	}
	return nil
}
