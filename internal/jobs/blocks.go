package jobs

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"solanaetl/internal/chain"
	"solanaetl/internal/decoder"
	"solanaetl/internal/executor"
	"solanaetl/internal/mapper"
	"solanaetl/internal/model"
)

// ExportBlocksConfig selects the block range and the entities to emit.
type ExportBlocksConfig struct {
	StartBlock         uint64
	EndBlock           uint64
	ExportBlocks       bool
	ExportTransactions bool
	ExportInstructions bool
	Encoding           string
}

// ExportBlocksJob exports blocks, their transactions and their parsed
// instructions for an inclusive slot range.
type ExportBlocksJob struct {
	cfg    ExportBlocksConfig
	deps   Deps
	parser *decoder.Parser
}

// NewExportBlocksJob validates cfg before any RPC work is done.
func NewExportBlocksJob(cfg ExportBlocksConfig, deps Deps, parser *decoder.Parser) (*ExportBlocksJob, error) {
	if cfg.EndBlock < cfg.StartBlock {
		return nil, fmt.Errorf("end block %d is before start block %d", cfg.EndBlock, cfg.StartBlock)
	}
	if !cfg.ExportBlocks && !cfg.ExportTransactions {
		return nil, fmt.Errorf("at least one of blocks or transactions must be exported")
	}
	if cfg.ExportInstructions && !cfg.ExportTransactions {
		return nil, fmt.Errorf("exporting instructions requires exporting transactions")
	}
	switch cfg.Encoding {
	case "":
		cfg.Encoding = chain.EncodingJSONParsed
	case chain.EncodingJSONParsed, chain.EncodingJSON:
	default:
		return nil, fmt.Errorf("unsupported block encoding %q", cfg.Encoding)
	}
	deps, err := deps.validate(true)
	if err != nil {
		return nil, err
	}
	if parser == nil {
		parser = decoder.NewParser(nil, deps.Logger)
	}
	return &ExportBlocksJob{cfg: cfg, deps: deps, parser: parser}, nil
}

func (j *ExportBlocksJob) Run(ctx context.Context) error {
	slots := BlockRange{From: j.cfg.StartBlock, To: j.cfg.EndBlock}.Slots()
	j.deps.Logger.Info("export blocks",
		zap.Uint64("from", j.cfg.StartBlock),
		zap.Uint64("to", j.cfg.EndBlock),
		zap.Int("batch", j.deps.Executor.BatchSize()),
	)
	return run(ctx, j.deps.Exporter, func(ctx context.Context) error {
		return executor.Execute(ctx, j.deps.Executor, slots, j.exportBatch)
	})
}

func (j *ExportBlocksJob) exportBatch(ctx context.Context, worker int, slots []uint64) error {
	reqs := make([]chain.Request, len(slots))
	for i, slot := range slots {
		reqs[i] = chain.GetBlock(slot, j.cfg.Encoding, j.cfg.ExportTransactions)
	}
	resps, err := j.deps.client(worker).BatchCall(ctx, reqs)
	if err != nil {
		return err
	}

	var items []model.Item
	for i, resp := range resps {
		slot := slots[i]
		raw, ok, err := resp.Value()
		if err != nil {
			return fmt.Errorf("get block %d: %w", slot, err)
		}
		if !ok {
			j.deps.Logger.Warn("slot skipped", zap.Uint64("slot", slot))
			continue
		}
		block, skipped, err := mapper.BlockFromJSON(raw, &slot)
		if err != nil {
			j.deps.Logger.Warn("block not mapped", zap.Uint64("slot", slot), zap.Error(err))
			continue
		}
		for _, serr := range skipped {
			j.deps.Logger.Warn("transaction not mapped", zap.Uint64("slot", slot), zap.Error(serr))
		}
		items = append(items, j.blockItems(block)...)
	}
	return exportItems(ctx, j.deps.Exporter, items)
}

func (j *ExportBlocksJob) blockItems(block model.Block) []model.Item {
	var items []model.Item
	if j.cfg.ExportBlocks {
		items = append(items, mapper.BlockItem(block))
	}
	if !j.cfg.ExportTransactions {
		return items
	}
	for _, tx := range block.Transactions {
		items = append(items, mapper.TransactionItem(tx))
		if !j.cfg.ExportInstructions {
			continue
		}
		for _, ix := range tx.Instructions {
			items = append(items, mapper.InstructionItem(j.parser.Parse(ix)))
		}
	}
	return items
}
