package storage

import (
	"context"
	"sync"

	"solanaetl/internal/model"
)

// MemoryExporter keeps items in memory grouped by type.
type MemoryExporter struct {
	mu    sync.Mutex
	items map[string][]model.Item
}

func NewMemoryExporter() *MemoryExporter {
	return &MemoryExporter{items: make(map[string][]model.Item)}
}

func (e *MemoryExporter) Open(ctx context.Context) error { return nil }

func (e *MemoryExporter) ExportItems(ctx context.Context, items []model.Item) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, item := range items {
		e.items[item.Type()] = append(e.items[item.Type()], item)
	}
	return nil
}

func (e *MemoryExporter) Close() error { return nil }

// Items returns the items exported with type typ.
func (e *MemoryExporter) Items(typ string) []model.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.Item, len(e.items[typ]))
	copy(out, e.items[typ])
	return out
}
