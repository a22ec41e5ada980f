package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/felixgeelhaar/waypoint/internal/storage"
)

func TestNewStore_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	newDir := filepath.Join(tmpDir, "subdir", "nested")

	store, err := NewStore(newDir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if store.basePath != newDir {
		t.Errorf("basePath = %v, want %v", store.basePath, newDir)
	}

	info, err := os.Stat(filepath.Join(newDir, collectionProgress))
	if err != nil {
		t.Fatalf("directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("expected directory, got file")
	}
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(t.TempDir())

	original := []byte(`{"userId":"learner-1","weeks":[]}`)
	if err := store.Save(ctx, "learner-1", original); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load(ctx, "learner-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(loaded) != string(original) {
		t.Errorf("Load() = %s, want %s", loaded, original)
	}

	updated := []byte(`{"userId":"learner-1","weeks":[{"number":1}]}`)
	if err := store.Save(ctx, "learner-1", updated); err != nil {
		t.Fatalf("Save() overwrite error = %v", err)
	}
	loaded, _ = store.Load(ctx, "learner-1")
	if string(loaded) != string(updated) {
		t.Errorf("Load() after overwrite = %s", loaded)
	}

	matches, _ := filepath.Glob(filepath.Join(store.basePath, collectionProgress, "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("temp files left behind: %v", matches)
	}
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(t.TempDir())

	if _, err := store.Load(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestStore_InvalidKey(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(t.TempDir())

	if err := store.Save(ctx, "../escape", []byte("{}")); err == nil {
		t.Error("Save() should reject a path-traversal key")
	}
	if _, err := store.Load(ctx, "a/b"); err == nil {
		t.Error("Load() should reject a key with a separator")
	}
}

func TestStore_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(t.TempDir())

	for _, id := range []string{"b", "a", "c"} {
		if err := store.Save(ctx, id, []byte("{}")); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	ids, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if fmt.Sprint(ids) != "[a b c]" {
		t.Errorf("List() = %v, want [a b c]", ids)
	}

	if err := store.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	ids, _ = store.List()
	if fmt.Sprint(ids) != "[a c]" {
		t.Errorf("List() after delete = %v, want [a c]", ids)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(t.TempDir())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := fmt.Sprintf("learner-%d", n)
			if err := store.Save(ctx, key, []byte(fmt.Sprintf(`{"n":%d}`, n))); err != nil {
				t.Errorf("Save() error = %v", err)
				return
			}
			if _, err := store.Load(ctx, key); err != nil {
				t.Errorf("Load() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	ids, _ := store.List()
	if len(ids) != 10 {
		t.Errorf("List() returned %d ids, want 10", len(ids))
	}
}
