package postgres

import (
	"context"
	"os"
	"testing"

	"solanaetl/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("SOLANAETL_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("SOLANAETL_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	store, err := NewStore(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.pool.Exec(ctx, "TRUNCATE TABLE etl_items, etl_state"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return store
}

func TestExportItems(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	items := []model.Item{
		{"type": model.TypeBlock, "number": uint64(1), "item_id": "block_H1"},
		{"type": model.TypeBlock, "number": uint64(2)},
	}
	if err := store.ExportItems(ctx, items); err != nil {
		t.Fatalf("export: %v", err)
	}

	var count int
	if err := store.pool.QueryRow(ctx, `SELECT count(*) FROM etl_items WHERE item_type = 'block'`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}
}

func TestState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := store.LoadState(ctx, "stream"); err != nil || ok {
		t.Fatalf("expected no state, got ok=%v err=%v", ok, err)
	}
	if err := store.SaveState(ctx, "stream", 100); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.SaveState(ctx, "stream", 120); err != nil {
		t.Fatalf("save: %v", err)
	}
	block, ok, err := store.LoadState(ctx, "stream")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if block != 120 {
		t.Fatalf("expected 120, got %d", block)
	}
	if _, _, err := store.LoadState(ctx, ""); err == nil {
		t.Fatalf("expected error for empty name")
	}
}
