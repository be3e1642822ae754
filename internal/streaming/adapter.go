package streaming

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solanaetl/internal/chain"
	"solanaetl/internal/decoder"
	"solanaetl/internal/executor"
	"solanaetl/internal/jobs"
	"solanaetl/internal/model"
	"solanaetl/internal/storage"
)

// Adapter runs the extraction jobs for one block range in memory and
// publishes the selected entity types, tagged with item ids, to its exporter.
type Adapter struct {
	entities EntitySet
	encoding string
	exec     *executor.Executor
	clients  []*chain.Client
	parser   *decoder.Parser
	exporter storage.Exporter
	logger   *zap.Logger
}

// AdapterConfig wires an Adapter.
type AdapterConfig struct {
	Entities EntitySet
	Encoding string
	Executor *executor.Executor
	Clients  []*chain.Client
	Parser   *decoder.Parser
	Exporter storage.Exporter
	Logger   *zap.Logger
}

func NewAdapter(cfg AdapterConfig) (*Adapter, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is nil")
	}
	if len(cfg.Clients) == 0 {
		return nil, fmt.Errorf("at least one rpc client is required")
	}
	if cfg.Exporter == nil {
		return nil, fmt.Errorf("exporter is nil")
	}
	if len(cfg.Entities) == 0 {
		all, _ := ParseEntityTypes("")
		cfg.Entities = all
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Adapter{
		entities: cfg.Entities,
		encoding: cfg.Encoding,
		exec:     cfg.Executor,
		clients:  cfg.Clients,
		parser:   cfg.Parser,
		exporter: cfg.Exporter,
		logger:   cfg.Logger,
	}, nil
}

func (a *Adapter) Open(ctx context.Context) error { return a.exporter.Open(ctx) }

func (a *Adapter) Close() error { return a.exporter.Close() }

// CurrentBlock returns the node's current slot.
func (a *Adapter) CurrentBlock(ctx context.Context) (uint64, error) {
	return a.clients[0].LatestSlot(ctx)
}

// ExportAll exports the inclusive range [start, end].
func (a *Adapter) ExportAll(ctx context.Context, start, end uint64) error {
	blocks := storage.NewMemoryExporter()
	job, err := jobs.NewExportBlocksJob(jobs.ExportBlocksConfig{
		StartBlock:         start,
		EndBlock:           end,
		ExportBlocks:       true,
		ExportTransactions: a.entities.Needs(model.TypeTransaction),
		ExportInstructions: a.entities.Needs(model.TypeInstruction),
		Encoding:           a.encoding,
	}, a.deps(blocks), a.parser)
	if err != nil {
		return err
	}
	if err := job.Run(ctx); err != nil {
		return fmt.Errorf("export blocks: %w", err)
	}
	instructions := blocks.Items(model.TypeInstruction)

	var accounts []model.Item
	if a.entities.Needs(model.TypeAccount) {
		accounts, err = a.collect(ctx, model.TypeAccount, func(d jobs.Deps) (jobs.Job, error) {
			return jobs.NewExtractAccountsJob(instructions, d)
		})
		if err != nil {
			return err
		}
	}

	var transfers []model.Item
	if a.entities.Needs(model.TypeTokenTransfer) {
		transfers, err = a.collect(ctx, model.TypeTokenTransfer, func(d jobs.Deps) (jobs.Job, error) {
			return jobs.NewExtractTokenTransfersJob(instructions, d)
		})
		if err != nil {
			return err
		}
	}

	var tokens []model.Item
	if a.entities.Needs(model.TypeToken) {
		tokens, err = a.collect(ctx, model.TypeToken, func(d jobs.Deps) (jobs.Job, error) {
			return jobs.NewExtractTokensJob(accounts, d)
		})
		if err != nil {
			return err
		}
	}

	var items []model.Item
	for _, group := range [][]model.Item{
		blocks.Items(model.TypeBlock),
		blocks.Items(model.TypeTransaction),
		instructions,
		transfers,
		accounts,
		tokens,
	} {
		for _, item := range group {
			if !a.entities.Emits(item.Type()) {
				continue
			}
			if id, ok := ItemID(item); ok {
				item["item_id"] = id
			} else {
				a.logger.Warn("item id not computed", zap.String("type", item.Type()))
			}
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil
	}
	return a.exporter.ExportItems(ctx, items)
}

func (a *Adapter) collect(ctx context.Context, typ string, build func(jobs.Deps) (jobs.Job, error)) ([]model.Item, error) {
	out := storage.NewMemoryExporter()
	job, err := build(a.deps(out))
	if err != nil {
		return nil, err
	}
	if err := job.Run(ctx); err != nil {
		return nil, fmt.Errorf("extract %ss: %w", typ, err)
	}
	return out.Items(typ), nil
}

func (a *Adapter) deps(exporter storage.Exporter) jobs.Deps {
	return jobs.Deps{Executor: a.exec, Clients: a.clients, Exporter: exporter, Logger: a.logger}
}
