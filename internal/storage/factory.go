package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"solanaetl/internal/storage/postgres"
)

// ErrUnsupportedOutput is returned for output kinds this build cannot write to.
var ErrUnsupportedOutput = errors.New("unsupported output")

// NewFileExporter picks JSON lines for .json and .jsonl paths and CSV otherwise.
func NewFileExporter(path, typ string) (Exporter, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonl":
		return NewJSONLExporter(path), nil
	default:
		e, err := NewCSVExporter(path, typ)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

// NewOutputExporter builds the sink named by output. A comma-separated list
// fans out to every entry. Entries are selected by prefix: "console", "-" or
// empty writes JSON lines to stdout, "nats://" publishes to JetStream,
// "postgres://" appends to Postgres, and anything else is a JSON-lines file.
func NewOutputExporter(ctx context.Context, output string, logger *zap.Logger) (Exporter, error) {
	parts := strings.Split(output, ",")
	exporters := make([]Exporter, 0, len(parts))
	for _, part := range parts {
		e, err := newSingleExporter(ctx, strings.TrimSpace(part), logger)
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, e)
	}
	if len(exporters) == 1 {
		return exporters[0], nil
	}
	return NewMultiExporter(exporters...), nil
}

func newSingleExporter(ctx context.Context, output string, logger *zap.Logger) (Exporter, error) {
	switch {
	case output == "" || output == "-" || output == "console":
		return NewConsoleExporter(nil), nil
	case strings.HasPrefix(output, "gs://"):
		return nil, fmt.Errorf("%w: object storage output %s", ErrUnsupportedOutput, output)
	case strings.HasPrefix(output, "projects/"):
		return nil, fmt.Errorf("%w: pubsub output %s, use nats://host:port/prefix", ErrUnsupportedOutput, output)
	case strings.HasPrefix(output, "nats://"):
		e, err := NewNATSExporter(output, logger)
		if err != nil {
			return nil, err
		}
		return e, nil
	case strings.HasPrefix(output, "postgres://"), strings.HasPrefix(output, "postgresql://"):
		store, err := postgres.NewStore(ctx, output)
		if err != nil {
			return nil, fmt.Errorf("postgres output: %w", err)
		}
		return store, nil
	case strings.HasSuffix(output, ".csv"):
		return nil, fmt.Errorf("%w: csv output %s needs one file per entity type", ErrUnsupportedOutput, output)
	default:
		return NewJSONLExporter(output), nil
	}
}
