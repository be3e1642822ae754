package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"solanaetl/internal/model"
)

// JSONLExporter writes items as JSON lines, either to a file or to a writer.
type JSONLExporter struct {
	path   string
	out    io.Writer
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

// NewJSONLExporter writes to the file at path.
func NewJSONLExporter(path string) *JSONLExporter {
	return &JSONLExporter{path: path}
}

// NewConsoleExporter writes JSON lines to out, or stdout when out is nil.
func NewConsoleExporter(out io.Writer) *JSONLExporter {
	if out == nil {
		out = os.Stdout
	}
	return &JSONLExporter{out: out}
}

// Open creates the output file, if any.
func (e *JSONLExporter) Open(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.out
	if e.path != "" {
		if err := ensureDir(e.path); err != nil {
			return err
		}
		file, err := os.Create(e.path)
		if err != nil {
			return fmt.Errorf("open output file: %w", err)
		}
		e.file = file
		out = file
	}
	e.writer = bufio.NewWriter(out)
	return nil
}

// ExportItems appends a batch of items as JSON lines.
func (e *JSONLExporter) ExportItems(ctx context.Context, items []model.Item) error {
	if len(items) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.writer == nil {
		return fmt.Errorf("jsonl exporter is not open")
	}
	for _, item := range items {
		line, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal item: %w", err)
		}
		if _, err := e.writer.Write(line); err != nil {
			return fmt.Errorf("write item: %w", err)
		}
		if err := e.writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}
	if e.file == nil {
		return e.writer.Flush()
	}
	return nil
}

// Close flushes buffered lines and closes the file.
func (e *JSONLExporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.writer == nil {
		return nil
	}
	err := e.writer.Flush()
	e.writer = nil
	if e.file != nil {
		if closeErr := e.file.Close(); err == nil {
			err = closeErr
		}
		e.file = nil
	}
	if err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}
