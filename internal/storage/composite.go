package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"solanaetl/internal/metrics"
	"solanaetl/internal/model"
)

// CompositeExporter routes each item by its type tag to the exporter
// registered for that type.
type CompositeExporter struct {
	byType  map[string]Exporter
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu     sync.Mutex
	counts map[string]int
}

// NewCompositeExporter builds a router over byType. Several types may share one exporter.
func NewCompositeExporter(byType map[string]Exporter, logger *zap.Logger, m *metrics.Metrics) *CompositeExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompositeExporter{
		byType:  byType,
		logger:  logger,
		metrics: m,
		counts:  make(map[string]int),
	}
}

// NewFileExporters maps each type to a file exporter; JSON lines for .json
// and .jsonl paths, CSV otherwise. Types with an empty path are left out.
func NewFileExporters(paths map[string]string) (map[string]Exporter, error) {
	out := make(map[string]Exporter, len(paths))
	for typ, path := range paths {
		if path == "" {
			continue
		}
		e, err := NewFileExporter(path, typ)
		if err != nil {
			return nil, err
		}
		out[typ] = e
	}
	return out, nil
}

func (c *CompositeExporter) distinct() []Exporter {
	seen := make(map[Exporter]bool)
	types := make([]string, 0, len(c.byType))
	for typ := range c.byType {
		types = append(types, typ)
	}
	sort.Strings(types)
	var out []Exporter
	for _, typ := range types {
		e := c.byType[typ]
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// Open opens every underlying exporter.
func (c *CompositeExporter) Open(ctx context.Context) error {
	for _, e := range c.distinct() {
		if err := e.Open(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ExportItems routes items; an item whose type has no exporter is an error.
func (c *CompositeExporter) ExportItems(ctx context.Context, items []model.Item) error {
	groups := make(map[Exporter][]model.Item)
	var order []Exporter
	for _, item := range items {
		e, ok := c.byType[item.Type()]
		if !ok {
			return fmt.Errorf("exporter for item type %q not found", item.Type())
		}
		if _, ok := groups[e]; !ok {
			order = append(order, e)
		}
		groups[e] = append(groups[e], item)
	}
	for _, e := range order {
		if err := e.ExportItems(ctx, groups[e]); err != nil {
			return err
		}
	}

	c.mu.Lock()
	for _, item := range items {
		c.counts[item.Type()]++
		c.metrics.RecordItemExported(item.Type())
	}
	c.mu.Unlock()
	return nil
}

// Close closes every underlying exporter and logs per-type counts.
func (c *CompositeExporter) Close() error {
	var errs []error
	for _, e := range c.distinct() {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.mu.Lock()
	for typ, n := range c.counts {
		c.logger.Info("items exported", zap.String("type", typ), zap.Int("count", n))
	}
	c.mu.Unlock()
	return errors.Join(errs...)
}

// Counts returns the number of exported items per type.
func (c *CompositeExporter) Counts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// MultiExporter fans every item out to all of its exporters.
type MultiExporter struct {
	exporters []Exporter
}

func NewMultiExporter(exporters ...Exporter) *MultiExporter {
	return &MultiExporter{exporters: exporters}
}

func (m *MultiExporter) Open(ctx context.Context) error {
	for _, e := range m.exporters {
		if err := e.Open(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiExporter) ExportItems(ctx context.Context, items []model.Item) error {
	for _, e := range m.exporters {
		if err := e.ExportItems(ctx, items); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiExporter) Close() error {
	var errs []error
	for _, e := range m.exporters {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
