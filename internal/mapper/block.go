package mapper

import (
	"encoding/json"
	"fmt"

	"solanaetl/internal/model"
)

// BlockFromJSON maps a getBlock result. slot is the requested slot; when nil the
// number falls back to parentSlot+1. Transactions that cannot be mapped are
// dropped and returned as skipped errors.
func BlockFromJSON(raw json.RawMessage, slot *uint64) (model.Block, []error, error) {
	var rb rpcBlock
	if err := json.Unmarshal(raw, &rb); err != nil {
		return model.Block{}, nil, fmt.Errorf("decode block: %w", err)
	}

	var b model.Block
	switch {
	case slot != nil:
		b.Number = *slot
	case rb.ParentSlot != nil:
		b.Number = *rb.ParentSlot + 1
	default:
		return model.Block{}, nil, missing("parentSlot")
	}
	b.Hash = rb.Blockhash
	b.PreviousBlockHash = rb.PreviousBlockhash
	b.Timestamp = rb.BlockTime
	b.Height = rb.BlockHeight

	if rb.Rewards != nil {
		b.Rewards = *rb.Rewards
		if b.Rewards == nil {
			b.Rewards = []model.Reward{}
		}
		for _, r := range b.Rewards {
			if r.RewardType != nil && *r.RewardType == model.RewardTypeFee {
				b.LeaderReward = ptr(r.Lamports)
				b.Leader = ptr(r.Pubkey)
				break
			}
		}
	}

	var skipped []error
	switch {
	case rb.Transactions != nil:
		b.TransactionCount = len(rb.Transactions)
		bctx := BlockContext{Hash: b.Hash, Number: ptr(b.Number), Timestamp: b.Timestamp}
		for i, rawTx := range rb.Transactions {
			tx, err := TransactionFromJSON(rawTx, bctx)
			if err != nil {
				skipped = append(skipped, fmt.Errorf("block %d transaction %d: %w", b.Number, i, err))
				continue
			}
			b.Transactions = append(b.Transactions, tx)
		}
	case rb.Signatures != nil:
		b.TransactionCount = len(rb.Signatures)
	}
	return b, skipped, nil
}

// BlockItem flattens b for export.
func BlockItem(b model.Block) model.Item {
	var rewards interface{}
	if b.Rewards != nil {
		rewards = toJSON(b.Rewards)
	}
	return model.Item{
		"type":                model.TypeBlock,
		"number":              b.Number,
		"height":              val(b.Height),
		"hash":                val(b.Hash),
		"previous_block_hash": val(b.PreviousBlockHash),
		"timestamp":           val(b.Timestamp),
		"transaction_count":   b.TransactionCount,
		"rewards":             rewards,
		"leader_reward":       val(b.LeaderReward),
		"leader":              val(b.Leader),
	}
}

// BlockFromItem rebuilds a block from its exported form.
func BlockFromItem(item model.Item) (model.Block, error) {
	r := fieldReader{item: item}
	number := r.u64("number")
	if number == nil {
		return model.Block{}, missing("number")
	}
	b := model.Block{
		Number:            *number,
		Height:            r.u64("height"),
		Hash:              r.str("hash"),
		PreviousBlockHash: r.str("previous_block_hash"),
		Timestamp:         r.i64("timestamp"),
		LeaderReward:      r.i64("leader_reward"),
		Leader:            r.str("leader"),
	}
	if n := r.integer("transaction_count"); n != nil {
		b.TransactionCount = *n
	}
	r.decode("rewards", &b.Rewards)
	if r.err != nil {
		return model.Block{}, r.err
	}
	return b, nil
}
