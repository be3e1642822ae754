package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"solanaetl/internal/model"
)

// CSVExporter writes items of one entity type to a CSV file with a header
// row in a fixed column order.
type CSVExporter struct {
	path    string
	columns []string
	mu      sync.Mutex
	file    *os.File
	writer  *csv.Writer
}

// NewCSVExporter builds an exporter for items of type typ.
func NewCSVExporter(path, typ string) (*CSVExporter, error) {
	columns, ok := model.Columns[typ]
	if !ok {
		return nil, fmt.Errorf("no csv columns for item type %q", typ)
	}
	return &CSVExporter{path: path, columns: columns}, nil
}

// Open creates the file and writes the header.
func (e *CSVExporter) Open(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ensureDir(e.path); err != nil {
		return err
	}
	file, err := os.Create(e.path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	e.file = file
	e.writer = csv.NewWriter(file)
	if err := e.writer.Write(e.columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	return nil
}

// ExportItems appends one row per item.
func (e *CSVExporter) ExportItems(ctx context.Context, items []model.Item) error {
	if len(items) == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.writer == nil {
		return fmt.Errorf("csv exporter for %s is not open", e.path)
	}
	row := make([]string, len(e.columns))
	for _, item := range items {
		for i, col := range e.columns {
			row[i] = FormatValue(item[col])
		}
		if err := e.writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	return nil
}

// Close flushes and closes the file.
func (e *CSVExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.file == nil {
		return nil
	}
	e.writer.Flush()
	flushErr := e.writer.Error()
	closeErr := e.file.Close()
	e.file, e.writer = nil, nil
	if flushErr != nil {
		return fmt.Errorf("flush csv: %w", flushErr)
	}
	return closeErr
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	return nil
}
