package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/felixgeelhaar/waypoint/internal/storage"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if _, err := s.Load(ctx, "u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}

	data := []byte(`{"userId":"u1"}`)
	if err := s.Save(ctx, "u1", data); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	data[0] = 'X'

	got, err := s.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != `{"userId":"u1"}` {
		t.Errorf("Load() = %s, caller mutation leaked into store", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}

	if err := s.Delete(ctx, "u1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, "u1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}
