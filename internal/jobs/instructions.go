package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"solanaetl/internal/chain"
	"solanaetl/internal/decoder"
	"solanaetl/internal/executor"
	"solanaetl/internal/mapper"
	"solanaetl/internal/model"
)

// ExportInstructionsJob fetches transactions by signature and exports their
// parsed instructions.
type ExportInstructionsJob struct {
	signatures []string
	encoding   string
	deps       Deps
	parser     *decoder.Parser
}

type transactionEnvelope struct {
	Slot      *uint64 `json:"slot"`
	BlockTime *int64  `json:"blockTime"`
}

func NewExportInstructionsJob(signatures []string, encoding string, deps Deps, parser *decoder.Parser) (*ExportInstructionsJob, error) {
	switch encoding {
	case "":
		encoding = chain.EncodingJSONParsed
	case chain.EncodingJSONParsed, chain.EncodingJSON:
	default:
		return nil, fmt.Errorf("unsupported transaction encoding %q", encoding)
	}
	deps, err := deps.validate(true)
	if err != nil {
		return nil, err
	}
	if parser == nil {
		parser = decoder.NewParser(nil, deps.Logger)
	}
	sigs := make([]string, 0, len(signatures))
	for _, s := range signatures {
		if s != "" {
			sigs = append(sigs, s)
		}
	}
	return &ExportInstructionsJob{signatures: sigs, encoding: encoding, deps: deps, parser: parser}, nil
}

func (j *ExportInstructionsJob) Run(ctx context.Context) error {
	j.deps.Logger.Info("export instructions", zap.Int("transactions", len(j.signatures)))
	return run(ctx, j.deps.Exporter, func(ctx context.Context) error {
		return executor.Execute(ctx, j.deps.Executor, j.signatures, j.exportBatch)
	})
}

func (j *ExportInstructionsJob) exportBatch(ctx context.Context, worker int, sigs []string) error {
	reqs := make([]chain.Request, len(sigs))
	for i, sig := range sigs {
		reqs[i] = chain.GetTransaction(sig, j.encoding)
	}
	resps, err := j.deps.client(worker).BatchCall(ctx, reqs)
	if err != nil {
		return err
	}

	var items []model.Item
	for i, resp := range resps {
		raw, ok, err := resp.Value()
		if err != nil {
			return fmt.Errorf("get transaction %s: %w", sigs[i], err)
		}
		if !ok {
			j.deps.Logger.Warn("transaction skipped", zap.String("signature", sigs[i]))
			continue
		}
		var env transactionEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			j.deps.Logger.Warn("transaction not mapped", zap.String("signature", sigs[i]), zap.Error(err))
			continue
		}
		tx, err := mapper.TransactionFromJSON(raw, mapper.BlockContext{Number: env.Slot, Timestamp: env.BlockTime})
		if err != nil {
			j.deps.Logger.Warn("transaction not mapped", zap.String("signature", sigs[i]), zap.Error(err))
			continue
		}
		for _, ix := range tx.Instructions {
			items = append(items, mapper.InstructionItem(j.parser.Parse(ix)))
		}
	}
	return exportItems(ctx, j.deps.Exporter, items)
}
