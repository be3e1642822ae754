package jobs

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"solanaetl/internal/chain"
	"solanaetl/internal/decoder"
	"solanaetl/internal/executor"
	"solanaetl/internal/metrics"
	"solanaetl/internal/model"
	"solanaetl/internal/storage"
)

// ExportAllConfig describes a partitioned export to hive-style CSV files.
type ExportAllConfig struct {
	StartBlock         uint64
	EndBlock           uint64
	PartitionBatchSize uint64
	OutputDir          string
	Encoding           string
}

// ExportAll exports every entity type for a block range, one partition at a
// time. Within a partition blocks run first; accounts and token transfers are
// then extracted from the instructions file, and tokens from the accounts file.
type ExportAll struct {
	cfg        ExportAllConfig
	partitions []BlockRange
	exec       *executor.Executor
	clients    []*chain.Client
	parser     *decoder.Parser
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewExportAll(cfg ExportAllConfig, exec *executor.Executor, clients []*chain.Client, parser *decoder.Parser, m *metrics.Metrics, logger *zap.Logger) (*ExportAll, error) {
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("output dir is required")
	}
	partitions, err := SplitRange(cfg.StartBlock, cfg.EndBlock, cfg.PartitionBatchSize)
	if err != nil {
		return nil, err
	}
	if exec == nil {
		return nil, fmt.Errorf("executor is nil")
	}
	if len(clients) == 0 {
		return nil, fmt.Errorf("at least one rpc client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportAll{
		cfg:        cfg,
		partitions: partitions,
		exec:       exec,
		clients:    clients,
		parser:     parser,
		metrics:    m,
		logger:     logger,
	}, nil
}

// PartitionFile returns the CSV path of entity type typ for partition r.
func PartitionFile(outputDir, typ string, r BlockRange) string {
	return filepath.Join(outputDir, typ+"s", filepath.FromSlash(r.PartitionDir()), fmt.Sprintf("%ss_%s.csv", typ, r.FileSuffix()))
}

func (e *ExportAll) Run(ctx context.Context) error {
	for _, r := range e.partitions {
		if err := ctx.Err(); err != nil {
			return err
		}
		started := time.Now()
		if err := e.exportPartition(ctx, r); err != nil {
			return fmt.Errorf("partition %d-%d: %w", r.From, r.To, err)
		}
		e.logger.Info("partition exported",
			zap.Uint64("from", r.From),
			zap.Uint64("to", r.To),
			zap.Duration("took", time.Since(started)),
		)
	}
	return nil
}

func (e *ExportAll) exportPartition(ctx context.Context, r BlockRange) error {
	file := func(typ string) string { return PartitionFile(e.cfg.OutputDir, typ, r) }

	blocksOut, err := e.csvExporter(file, model.TypeBlock, model.TypeTransaction, model.TypeInstruction)
	if err != nil {
		return err
	}
	blocks, err := NewExportBlocksJob(ExportBlocksConfig{
		StartBlock:         r.From,
		EndBlock:           r.To,
		ExportBlocks:       true,
		ExportTransactions: true,
		ExportInstructions: true,
		Encoding:           e.cfg.Encoding,
	}, e.deps(blocksOut), e.parser)
	if err != nil {
		return err
	}
	if err := blocks.Run(ctx); err != nil {
		return fmt.Errorf("export blocks: %w", err)
	}

	instructions, err := storage.ReadItems(file(model.TypeInstruction))
	if err != nil {
		return err
	}

	accountsOut, err := e.csvExporter(file, model.TypeAccount)
	if err != nil {
		return err
	}
	accounts, err := NewExtractAccountsJob(instructions, e.deps(accountsOut))
	if err != nil {
		return err
	}
	if err := accounts.Run(ctx); err != nil {
		return fmt.Errorf("extract accounts: %w", err)
	}

	transfersOut, err := e.csvExporter(file, model.TypeTokenTransfer)
	if err != nil {
		return err
	}
	transfers, err := NewExtractTokenTransfersJob(instructions, e.deps(transfersOut))
	if err != nil {
		return err
	}
	if err := transfers.Run(ctx); err != nil {
		return fmt.Errorf("extract token transfers: %w", err)
	}

	accountItems, err := storage.ReadItems(file(model.TypeAccount))
	if err != nil {
		return err
	}
	tokensOut, err := e.csvExporter(file, model.TypeToken)
	if err != nil {
		return err
	}
	tokens, err := NewExtractTokensJob(accountItems, e.deps(tokensOut))
	if err != nil {
		return err
	}
	if err := tokens.Run(ctx); err != nil {
		return fmt.Errorf("extract tokens: %w", err)
	}
	return nil
}

// csvExporter builds a composite exporter writing each of types to its partition file.
func (e *ExportAll) csvExporter(file func(typ string) string, types ...string) (storage.Exporter, error) {
	paths := make(map[string]string, len(types))
	for _, typ := range types {
		paths[typ] = file(typ)
	}
	byType, err := storage.NewFileExporters(paths)
	if err != nil {
		return nil, err
	}
	return storage.NewCompositeExporter(byType, e.logger, e.metrics), nil
}

func (e *ExportAll) deps(exporter storage.Exporter) Deps {
	return Deps{Executor: e.exec, Clients: e.clients, Exporter: exporter, Logger: e.logger}
}
