package store

import (
	"errors"
	"sort"
	"testing"
)

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	doc := map[string]any{
		"hostname": "h1",
		"tasks":    []map[string]any{{"task_id": "t1"}},
	}
	if err := s.Put("ep-1", doc); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, err := s.Get("ep-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got["hostname"] != "h1" {
		t.Errorf("hostname = %v, want h1", got["hostname"])
	}
}

func TestMemoryStore_GetNotFound(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_PutIsFullOverwrite(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	s.Put("ep-1", map[string]any{"hostname": "h1", "os_family": "linux"})
	s.Put("ep-1", map[string]any{"hostname": "h2"})

	got, _ := s.Get("ep-1")
	if got["hostname"] != "h2" {
		t.Errorf("hostname = %v, want h2", got["hostname"])
	}
	if _, ok := got["os_family"]; ok {
		t.Error("Put must replace the whole document, os_family survived")
	}
}

func TestMemoryStore_NoAliasing(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	doc := map[string]any{"hostname": "h1"}
	s.Put("ep-1", doc)
	doc["hostname"] = "mutated"

	got, _ := s.Get("ep-1")
	if got["hostname"] != "h1" {
		t.Error("stored document aliased the caller's map")
	}

	got["hostname"] = "mutated again"
	again, _ := s.Get("ep-1")
	if again["hostname"] != "h1" {
		t.Error("returned document aliased stored state")
	}
}

func TestMemoryStore_ExistsAndListIDs(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	s.Put("ep-1", map[string]any{})
	s.Put("ep-2", map[string]any{})

	ok, err := s.Exists("ep-1")
	if err != nil || !ok {
		t.Errorf("Exists(ep-1) = %v, %v, want true", ok, err)
	}
	ok, _ = s.Exists("ep-3")
	if ok {
		t.Error("Exists(ep-3) = true, want false")
	}

	ids, err := s.ListIDs()
	if err != nil {
		t.Fatalf("ListIDs error: %v", err)
	}
	sort.Strings(ids)
	if len(ids) != 2 || ids[0] != "ep-1" || ids[1] != "ep-2" {
		t.Errorf("ListIDs = %v, want [ep-1 ep-2]", ids)
	}
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	s.Close()

	if err := s.Put("ep-1", map[string]any{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Put after Close = %v, want ErrClosed", err)
	}
	if _, err := s.Get("ep-1"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get after Close = %v, want ErrClosed", err)
	}
}

func TestValidateID(t *testing.T) {
	good := []string{"a", "ep-1", "550e8400-e29b-41d4-a716-446655440000", "a.b_c"}
	for _, id := range good {
		if err := ValidateID(id); err != nil {
			t.Errorf("ValidateID(%q) = %v, want nil", id, err)
		}
	}

	bad := []string{"", "../escape", "a b", "a/b", "id\x00"}
	for _, id := range bad {
		if err := ValidateID(id); !errors.Is(err, ErrInvalidID) {
			t.Errorf("ValidateID(%q) = %v, want ErrInvalidID", id, err)
		}
	}
}
