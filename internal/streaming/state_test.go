package streaming

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStateStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := &FileStateStore{Path: filepath.Join(t.TempDir(), "state", "last_synced_block.txt")}

	if _, ok, err := store.Load(ctx); err != nil || ok {
		t.Fatalf("expected empty state, got ok=%v err=%v", ok, err)
	}
	if err := store.Save(ctx, 12345); err != nil {
		t.Fatalf("save: %v", err)
	}
	block, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if block != 12345 {
		t.Fatalf("block mismatch: %d", block)
	}

	data, err := os.ReadFile(store.Path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "12345\n" {
		t.Fatalf("unexpected file contents %q", data)
	}
}

func TestFileStateStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_synced_block.txt")
	if err := os.WriteFile(path, []byte("not a number"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := (&FileStateStore{Path: path}).Load(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestNilStateStoresAreNoops(t *testing.T) {
	var file *FileStateStore
	if err := file.Save(context.Background(), 1); err != nil {
		t.Fatalf("save: %v", err)
	}
	var db *DBStateStore
	if _, ok, err := db.Load(context.Background()); ok || err != nil {
		t.Fatalf("unexpected state ok=%v err=%v", ok, err)
	}
}
