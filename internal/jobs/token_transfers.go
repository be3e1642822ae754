package jobs

import (
	"context"

	"go.uber.org/zap"

	"solanaetl/internal/executor"
	"solanaetl/internal/mapper"
	"solanaetl/internal/model"
)

// ExtractTokenTransfersJob derives token transfers from instruction items.
// It makes no RPC calls.
type ExtractTokenTransfersJob struct {
	instructions []model.Item
	deps         Deps
}

func NewExtractTokenTransfersJob(instructions []model.Item, deps Deps) (*ExtractTokenTransfersJob, error) {
	deps, err := deps.validate(false)
	if err != nil {
		return nil, err
	}
	return &ExtractTokenTransfersJob{instructions: instructions, deps: deps}, nil
}

func (j *ExtractTokenTransfersJob) Run(ctx context.Context) error {
	j.deps.Logger.Info("extract token transfers", zap.Int("instructions", len(j.instructions)))
	return run(ctx, j.deps.Exporter, func(ctx context.Context) error {
		return executor.Execute(ctx, j.deps.Executor, j.instructions, j.exportBatch)
	})
}

func (j *ExtractTokenTransfersJob) exportBatch(ctx context.Context, _ int, batch []model.Item) error {
	var items []model.Item
	for _, item := range batch {
		if item.Type() != "" && item.Type() != model.TypeInstruction {
			continue
		}
		ix, err := mapper.InstructionFromItem(item)
		if err != nil {
			j.deps.Logger.Warn("instruction not mapped", zap.Error(err))
			continue
		}
		if transfer, ok := mapper.TokenTransferFromInstruction(ix); ok {
			items = append(items, mapper.TokenTransferItem(transfer))
		}
	}
	return exportItems(ctx, j.deps.Exporter, items)
}
