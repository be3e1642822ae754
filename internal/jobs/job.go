package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solanaetl/internal/chain"
	"solanaetl/internal/executor"
	"solanaetl/internal/model"
	"solanaetl/internal/storage"
)

// Job is a single extraction run: open the exporter, export, close.
type Job interface {
	Run(ctx context.Context) error
}

// Deps are the collaborators shared by every job. Clients holds one RPC
// client per executor worker; jobs that make no RPC calls may leave it empty.
type Deps struct {
	Executor *executor.Executor
	Clients  []*chain.Client
	Exporter storage.Exporter
	Logger   *zap.Logger
}

func (d Deps) validate(needsRPC bool) (Deps, error) {
	if d.Executor == nil {
		return d, fmt.Errorf("executor is nil")
	}
	if d.Exporter == nil {
		return d, fmt.Errorf("exporter is nil")
	}
	if needsRPC && len(d.Clients) == 0 {
		return d, fmt.Errorf("at least one rpc client is required")
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d, nil
}

// client returns the RPC client owned by worker.
func (d Deps) client(worker int) *chain.Client {
	return d.Clients[worker%len(d.Clients)]
}

// run opens exporter, calls export and closes exporter even when export fails.
func run(ctx context.Context, exporter storage.Exporter, export func(ctx context.Context) error) (err error) {
	if err := exporter.Open(ctx); err != nil {
		return fmt.Errorf("open exporter: %w", err)
	}
	defer func() {
		if cerr := exporter.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close exporter: %w", cerr)
		}
	}()
	return export(ctx)
}

func exportItems(ctx context.Context, exporter storage.Exporter, items []model.Item) error {
	if len(items) == 0 {
		return nil
	}
	if err := exporter.ExportItems(ctx, items); err != nil {
		return fmt.Errorf("export items: %w", err)
	}
	return nil
}
