package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"solanaetl/internal/chain"
	"solanaetl/internal/executor"
	"solanaetl/internal/mapper"
	"solanaetl/internal/metaplex"
	"solanaetl/internal/model"
)

type mintTarget struct {
	mint        string
	metadata    string
	decimals    int
	txSignature *string
}

// ExtractTokensJob joins mint accounts with their metaplex metadata accounts.
// Only accounts typed as mint with known decimals are considered.
type ExtractTokensJob struct {
	mints []mintTarget
	deps  Deps
}

func NewExtractTokensJob(accounts []model.Item, deps Deps) (*ExtractTokensJob, error) {
	deps, err := deps.validate(true)
	if err != nil {
		return nil, err
	}
	return &ExtractTokensJob{mints: mintTargets(accounts, deps.Logger), deps: deps}, nil
}

func mintTargets(accounts []model.Item, logger *zap.Logger) []mintTarget {
	var out []mintTarget
	for _, item := range accounts {
		if item.Type() != "" && item.Type() != model.TypeAccount {
			continue
		}
		acc, err := mapper.AccountFromItem(item)
		if err != nil {
			logger.Warn("account not mapped", zap.Error(err))
			continue
		}
		if acc.Mint == nil || acc.Mint.Decimals == nil {
			continue
		}
		addr, err := metaplex.MetadataAddress(acc.Pubkey)
		if err != nil {
			logger.Warn("metadata address not derived", zap.String("mint", acc.Pubkey), zap.Error(err))
			continue
		}
		out = append(out, mintTarget{
			mint:        acc.Pubkey,
			metadata:    addr,
			decimals:    *acc.Mint.Decimals,
			txSignature: acc.TxSignature,
		})
	}
	return out
}

func (j *ExtractTokensJob) Run(ctx context.Context) error {
	j.deps.Logger.Info("extract tokens", zap.Int("mints", len(j.mints)))
	return run(ctx, j.deps.Exporter, func(ctx context.Context) error {
		return executor.Execute(ctx, j.deps.Executor, j.mints, j.exportBatch)
	})
}

func (j *ExtractTokensJob) exportBatch(ctx context.Context, worker int, mints []mintTarget) error {
	keys := make([]string, len(mints))
	for i, m := range mints {
		keys[i] = m.metadata
	}
	chunks := chain.Chunk(keys, chain.MaxAccountsPerRequest)
	reqs := make([]chain.Request, len(chunks))
	for i, chunk := range chunks {
		reqs[i] = chain.GetMultipleAccounts(chunk, chain.EncodingBase64)
	}
	resps, err := j.deps.client(worker).BatchCall(ctx, reqs)
	if err != nil {
		return err
	}

	var items []model.Item
	offset := 0
	for i, resp := range resps {
		chunk := mints[offset : offset+len(chunks[i])]
		offset += len(chunks[i])
		values, ok, err := accountValues(resp, len(chunk))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		for k, raw := range values {
			if len(raw) == 0 || string(raw) == "null" {
				continue
			}
			md, err := unpackMetadataAccount(raw)
			if err != nil {
				j.deps.Logger.Warn("metadata not decoded",
					zap.String("mint", chunk[k].mint),
					zap.String("metadata", chunk[k].metadata),
					zap.Error(err),
				)
				continue
			}
			token := mapper.TokenFromMetadata(md, mapper.TokenType(chunk[k].decimals), chunk[k].txSignature)
			items = append(items, mapper.TokenItem(token))
		}
	}
	return exportItems(ctx, j.deps.Exporter, items)
}

// unpackMetadataAccount decodes a base64-encoded getMultipleAccounts value.
func unpackMetadataAccount(raw json.RawMessage) (metaplex.Metadata, error) {
	var acc struct {
		Data []string `json:"data"`
	}
	if err := json.Unmarshal(raw, &acc); err != nil {
		return metaplex.Metadata{}, fmt.Errorf("decode metadata account: %w", err)
	}
	if len(acc.Data) == 0 {
		return metaplex.Metadata{}, fmt.Errorf("metadata account has no data")
	}
	return metaplex.UnpackBase64(acc.Data[0])
}
