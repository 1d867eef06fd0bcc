package store

import (
	"sync"
)

// MemoryStore is an in-memory Store for tests and throwaway fleets.
type MemoryStore struct {
	mu     sync.RWMutex
	docs   map[string]map[string]any
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]map[string]any)}
}

// Get retrieves the document for an id.
func (s *MemoryStore) Get(id string) (map[string]any, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	// Copies in both directions so callers cannot alias stored state.
	return copyDoc(doc), nil
}

// Put stores the document for an id.
func (s *MemoryStore) Put(id string, doc map[string]any) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.docs[id] = copyDoc(doc)
	return nil
}

// Exists reports whether a document exists for the id.
func (s *MemoryStore) Exists(id string) (bool, error) {
	if err := ValidateID(id); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, ErrClosed
	}
	_, ok := s.docs[id]
	return ok, nil
}

// ListIDs returns every stored endpoint id.
func (s *MemoryStore) ListIDs() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	return ids, nil
}

// Close shuts down the store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.docs = nil
	return nil
}

// copyDoc deep-copies the mapping shapes the decoders produce.
func copyDoc(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyDoc(val)
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = copyValue(e)
		}
		return out
	case []map[string]any:
		out := make([]map[string]any, len(val))
		for i, m := range val {
			out[i] = copyDoc(m)
		}
		return out
	default:
		return v
	}
}
