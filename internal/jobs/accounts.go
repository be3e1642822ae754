package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"solanaetl/internal/chain"
	"solanaetl/internal/executor"
	"solanaetl/internal/mapper"
	"solanaetl/internal/model"
)

// accountTarget is an account to fetch, with the signature of the
// transaction that created it when known.
type accountTarget struct {
	pubkey      string
	txSignature *string
}

type multipleAccounts struct {
	Value []json.RawMessage `json:"value"`
}

// ExtractAccountsJob fetches the current state of accounts referenced by
// instruction or transaction items. Instructions contribute the accounts they
// create; transactions contribute every account they touch.
type ExtractAccountsJob struct {
	targets []accountTarget
	deps    Deps
}

func NewExtractAccountsJob(items []model.Item, deps Deps) (*ExtractAccountsJob, error) {
	deps, err := deps.validate(true)
	if err != nil {
		return nil, err
	}
	return &ExtractAccountsJob{targets: accountTargets(items, deps.Logger), deps: deps}, nil
}

// accountTargets collects distinct pubkeys in first-seen order. A creating
// instruction's signature wins over a bare transaction reference.
func accountTargets(items []model.Item, logger *zap.Logger) []accountTarget {
	index := make(map[string]int)
	var targets []accountTarget
	add := func(pubkey string, sig *string) {
		if pubkey == "" {
			return
		}
		if i, ok := index[pubkey]; ok {
			if targets[i].txSignature == nil && sig != nil {
				targets[i].txSignature = sig
			}
			return
		}
		index[pubkey] = len(targets)
		targets = append(targets, accountTarget{pubkey: pubkey, txSignature: sig})
	}

	for _, item := range items {
		switch item.Type() {
		case model.TypeInstruction:
			ix, err := mapper.InstructionFromItem(item)
			if err != nil {
				logger.Warn("instruction not mapped", zap.Error(err))
				continue
			}
			if pubkey, ok := mapper.CreatedAccount(ix); ok {
				sig := ix.TxSignature
				add(pubkey, &sig)
			}
		case model.TypeTransaction:
			tx, err := mapper.TransactionFromItem(item)
			if err != nil {
				logger.Warn("transaction not mapped", zap.Error(err))
				continue
			}
			for _, acc := range tx.Accounts {
				add(acc.Pubkey, nil)
			}
		}
	}
	return targets
}

func (j *ExtractAccountsJob) Run(ctx context.Context) error {
	j.deps.Logger.Info("extract accounts", zap.Int("accounts", len(j.targets)))
	return run(ctx, j.deps.Exporter, func(ctx context.Context) error {
		return executor.Execute(ctx, j.deps.Executor, j.targets, j.exportBatch)
	})
}

func (j *ExtractAccountsJob) exportBatch(ctx context.Context, worker int, targets []accountTarget) error {
	keys := make([]string, len(targets))
	for i, t := range targets {
		keys[i] = t.pubkey
	}
	chunks := chain.Chunk(keys, chain.MaxAccountsPerRequest)
	reqs := make([]chain.Request, len(chunks))
	for i, chunk := range chunks {
		reqs[i] = chain.GetMultipleAccounts(chunk, chain.EncodingJSONParsed)
	}
	resps, err := j.deps.client(worker).BatchCall(ctx, reqs)
	if err != nil {
		return err
	}

	var items []model.Item
	offset := 0
	for i, resp := range resps {
		chunk := targets[offset : offset+len(chunks[i])]
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
			acc, err := mapper.AccountFromJSON(chunk[k].pubkey, raw, chunk[k].txSignature)
			if err != nil {
				j.deps.Logger.Warn("account not mapped", zap.String("pubkey", chunk[k].pubkey), zap.Error(err))
				continue
			}
			items = append(items, mapper.AccountItem(acc))
		}
	}
	return exportItems(ctx, j.deps.Exporter, items)
}

// accountValues unwraps a getMultipleAccounts result; values line up with
// the requested keys.
func accountValues(resp chain.Response, want int) ([]json.RawMessage, bool, error) {
	raw, ok, err := resp.Value()
	if err != nil || !ok {
		return nil, ok, err
	}
	var result multipleAccounts
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("decode getMultipleAccounts: %w", err)
	}
	if len(result.Value) != want {
		return nil, false, chain.Retriable(fmt.Errorf("getMultipleAccounts returned %d values for %d keys", len(result.Value), want))
	}
	return result.Value, true, nil
}
