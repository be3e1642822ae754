package mapper

import (
	"encoding/json"
	"fmt"
	"strconv"

	"solanaetl/internal/model"
)

// BlockContext is the parent block linkage denormalized onto transactions.
type BlockContext struct {
	Hash      *string
	Number    *uint64
	Timestamp *int64
}

const (
	accountSourceTransaction = "transaction"
	accountSourceLookupTable = "lookupTable"
)

// TransactionFromJSON maps one transaction-with-meta object from getBlock or
// getTransaction. Both jsonParsed and json encodings are accepted.
func TransactionFromJSON(raw json.RawMessage, bctx BlockContext) (model.Transaction, error) {
	var rt rpcTransactionWithMeta
	if err := json.Unmarshal(raw, &rt); err != nil {
		return model.Transaction{}, fmt.Errorf("decode transaction: %w", err)
	}
	if isNull(rt.Transaction) {
		return model.Transaction{}, missing("transaction")
	}
	var body rpcTransaction
	if err := json.Unmarshal(rt.Transaction, &body); err != nil {
		return model.Transaction{}, fmt.Errorf("decode transaction body: %w", err)
	}
	if len(body.Signatures) == 0 || body.Signatures[0] == "" {
		return model.Transaction{}, missing("signatures")
	}

	tx := model.Transaction{
		Signature:         body.Signatures[0],
		BlockHash:         bctx.Hash,
		BlockNumber:       bctx.Number,
		BlockTimestamp:    bctx.Timestamp,
		PreviousBlockHash: body.Message.RecentBlockhash,
	}

	accounts, err := transactionAccounts(body.Message, rt.Meta)
	if err != nil {
		return model.Transaction{}, err
	}
	tx.Accounts = accounts
	keys := make([]string, len(accounts))
	for i, a := range accounts {
		keys[i] = a.Pubkey
	}

	for i, rawIx := range body.Message.Instructions {
		ix, err := InstructionFromJSON(rawIx, tx.Signature, i, nil, keys)
		if err != nil {
			return model.Transaction{}, fmt.Errorf("instruction %d: %w", i, err)
		}
		tx.Instructions = append(tx.Instructions, ix)
	}

	meta := rt.Meta
	if meta == nil {
		return tx, nil
	}
	tx.Fee = meta.Fee
	if isNull(meta.Err) {
		tx.Status = ptr(model.StatusSuccess)
	} else {
		tx.Status = ptr(model.StatusFail)
		tx.Err = append(json.RawMessage(nil), meta.Err...)
	}

	for _, inner := range meta.InnerInstructions {
		parent := inner.Index
		for i, rawIx := range inner.Instructions {
			ix, err := InstructionFromJSON(rawIx, tx.Signature, i, ptr(parent), keys)
			if err != nil {
				return model.Transaction{}, fmt.Errorf("inner instruction %d.%d: %w", parent, i, err)
			}
			tx.Instructions = append(tx.Instructions, ix)
		}
	}

	tx.LogMessages = meta.LogMessages
	tx.PreTokenBalances = meta.PreTokenBalances
	tx.PostTokenBalances = meta.PostTokenBalances

	if meta.PreBalances != nil && meta.PostBalances != nil {
		tx.BalanceChanges = balanceChanges(keys, meta.PreBalances, meta.PostBalances)
	}
	if meta.PreTokenBalances != nil && meta.PostTokenBalances != nil {
		changes, err := tokenBalanceChanges(keys, meta.PreTokenBalances, meta.PostTokenBalances)
		if err != nil {
			return model.Transaction{}, err
		}
		tx.TokenBalanceChanges = changes
	}
	return tx, nil
}

// transactionAccounts returns the account list. Parsed encodings carry the flags
// inline; raw encodings derive them from the message header and append
// addresses loaded from lookup tables.
func transactionAccounts(msg rpcMessage, meta *rpcMeta) ([]model.TxAccount, error) {
	out := make([]model.TxAccount, 0, len(msg.AccountKeys))
	parsed := false
	for i, rawKey := range msg.AccountKeys {
		var key string
		if err := json.Unmarshal(rawKey, &key); err == nil {
			out = append(out, rawAccount(key, i, len(msg.AccountKeys), msg.Header))
			continue
		}
		var acc model.TxAccount
		if err := json.Unmarshal(rawKey, &acc); err != nil {
			return nil, fmt.Errorf("decode account key %d: %w", i, err)
		}
		if acc.Pubkey == "" {
			return nil, missing("accountKeys.pubkey")
		}
		parsed = true
		out = append(out, acc)
	}

	if meta != nil && meta.LoadedAddresses != nil && !parsed {
		for _, k := range meta.LoadedAddresses.Writable {
			out = append(out, model.TxAccount{Pubkey: k, Writable: true, Source: accountSourceLookupTable})
		}
		for _, k := range meta.LoadedAddresses.Readonly {
			out = append(out, model.TxAccount{Pubkey: k, Source: accountSourceLookupTable})
		}
	}
	return out, nil
}

func rawAccount(key string, i, total int, h *rpcHeader) model.TxAccount {
	acc := model.TxAccount{Pubkey: key, Source: accountSourceTransaction}
	if h == nil {
		return acc
	}
	if i < h.NumRequiredSignatures {
		acc.Signer = true
		acc.Writable = i < h.NumRequiredSignatures-h.NumReadonlySignedAccounts
		return acc
	}
	acc.Writable = i < total-h.NumReadonlyUnsignedAccounts
	return acc
}

// balanceChanges pairs pre and post lamport balances by position.
func balanceChanges(keys []string, pre, post []uint64) []model.BalanceChange {
	out := make([]model.BalanceChange, 0, len(post))
	for i, after := range post {
		if i >= len(pre) || i >= len(keys) {
			break
		}
		out = append(out, model.BalanceChange{Account: keys[i], Before: pre[i], After: after})
	}
	return out
}

// tokenBalanceChanges pairs token balances by account index. Accounts only present
// after execution start from zero with the post decimals.
func tokenBalanceChanges(keys []string, pre, post []model.TokenBalance) ([]model.TokenBalanceChange, error) {
	before := make(map[int]model.TokenBalance, len(pre))
	for _, b := range pre {
		before[b.AccountIndex] = b
	}
	out := make([]model.TokenBalanceChange, 0, len(post))
	for _, p := range post {
		if p.AccountIndex < 0 || p.AccountIndex >= len(keys) {
			return nil, fmt.Errorf("token balance account index %d out of range", p.AccountIndex)
		}
		after, err := parseAmount(p.UITokenAmount.Amount)
		if err != nil {
			return nil, err
		}
		change := model.TokenBalanceChange{
			Account:       keys[p.AccountIndex],
			Owner:         p.Owner,
			Mint:          p.Mint,
			After:         after,
			AfterDecimals: p.UITokenAmount.Decimals,
		}
		if b, ok := before[p.AccountIndex]; ok {
			amount, err := parseAmount(b.UITokenAmount.Amount)
			if err != nil {
				return nil, err
			}
			change.Before = amount
			change.BeforeDecimals = b.UITokenAmount.Decimals
		} else {
			change.Before = 0
			change.BeforeDecimals = change.AfterDecimals
		}
		out = append(out, change)
	}
	return out, nil
}

func parseAmount(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("token amount %q: %w", s, err)
	}
	return n, nil
}

// TransactionItem flattens tx for export.
func TransactionItem(tx model.Transaction) model.Item {
	return model.Item{
		"type":                  model.TypeTransaction,
		"signature":             tx.Signature,
		"block_hash":            val(tx.BlockHash),
		"previous_block_hash":   val(tx.PreviousBlockHash),
		"block_number":          val(tx.BlockNumber),
		"block_timestamp":       val(tx.BlockTimestamp),
		"fee":                   val(tx.Fee),
		"status":                val(tx.Status),
		"err":                   rawOrNil(tx.Err),
		"accounts":              toJSON(tx.Accounts),
		"log_messages":          toJSON(tx.LogMessages),
		"balance_changes":       toJSON(tx.BalanceChanges),
		"token_balance_changes": toJSON(tx.TokenBalanceChanges),
		"pre_token_balances":    toJSON(tx.PreTokenBalances),
		"post_token_balances":   toJSON(tx.PostTokenBalances),
	}
}

// TransactionFromItem rebuilds a transaction (without instructions) from its exported form.
func TransactionFromItem(item model.Item) (model.Transaction, error) {
	r := fieldReader{item: item}
	sig := r.str("signature")
	if sig == nil {
		return model.Transaction{}, missing("signature")
	}
	tx := model.Transaction{
		Signature:         *sig,
		BlockHash:         r.str("block_hash"),
		PreviousBlockHash: r.str("previous_block_hash"),
		BlockNumber:       r.u64("block_number"),
		BlockTimestamp:    r.i64("block_timestamp"),
		Fee:               r.u64("fee"),
		Status:            r.str("status"),
		Err:               r.raw("err"),
	}
	r.decode("accounts", &tx.Accounts)
	r.decode("log_messages", &tx.LogMessages)
	r.decode("balance_changes", &tx.BalanceChanges)
	r.decode("token_balance_changes", &tx.TokenBalanceChanges)
	r.decode("pre_token_balances", &tx.PreTokenBalances)
	r.decode("post_token_balances", &tx.PostTokenBalances)
	if r.err != nil {
		return model.Transaction{}, r.err
	}
	return tx, nil
}
