package store

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const fileExt = ".toml"

// FileStore persists one TOML file per endpoint under a base directory.
// This is the coordinator's native on-disk format.
type FileStore struct {
	dir string
}

// NewFileStore creates the base directory if needed and returns the store.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("data directory required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

// Get retrieves the document for an id.
func (s *FileStore) Get(id string) (map[string]any, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	doc := make(map[string]any)
	if _, err := toml.DecodeFile(s.path(id), &doc); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("decode %s: %w", s.path(id), err)
	}
	return doc, nil
}

// Put stores the document for an id. The file is written to a temporary
// name and renamed into place so readers never see a partial record.
func (s *FileStore) Put(id string, doc map[string]any) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return fmt.Errorf("encode %s: %w", id, err)
	}

	tmp := s.path(id) + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o640); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path(id)); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// Exists reports whether a document exists for the id.
func (s *FileStore) Exists(id string) (bool, error) {
	if err := ValidateID(id); err != nil {
		return false, err
	}

	_, err := os.Stat(s.path(id))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", s.path(id), err)
}

// ListIDs returns every stored endpoint id.
func (s *FileStore) ListIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, fileExt))
	}
	return ids, nil
}

// Close is a no-op; files are synced on every Put.
func (s *FileStore) Close() error { return nil }
