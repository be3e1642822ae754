package storage

import (
	"context"

	"solanaetl/internal/model"
)

// Exporter is a sink for flat items. ExportItems must be safe for concurrent use.
type Exporter interface {
	Open(ctx context.Context) error
	ExportItems(ctx context.Context, items []model.Item) error
	Close() error
}
