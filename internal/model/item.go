package model

// Entity type tags carried in the "type" field of every exported item.
const (
	TypeBlock         = "block"
	TypeTransaction   = "transaction"
	TypeInstruction   = "instruction"
	TypeAccount       = "account"
	TypeTokenTransfer = "token_transfer"
	TypeToken         = "token"
)

// EntityTypes lists every item type in dependency order.
var EntityTypes = []string{
	TypeBlock,
	TypeTransaction,
	TypeInstruction,
	TypeAccount,
	TypeTokenTransfer,
	TypeToken,
}

// Item is a flat export record. Values are scalars, nil, or JSON text.
type Item map[string]interface{}

// Type returns the item's type tag, or "" when absent.
func (i Item) Type() string {
	s, _ := i["type"].(string)
	return s
}

// Columns holds the fixed export column order per entity type.
var Columns = map[string][]string{
	TypeBlock: {
		"number", "height", "hash", "previous_block_hash", "timestamp",
		"transaction_count", "rewards", "leader_reward", "leader",
	},
	TypeTransaction: {
		"signature", "block_hash", "previous_block_hash", "block_number",
		"block_timestamp", "fee", "status", "err", "accounts", "log_messages",
		"balance_changes", "token_balance_changes", "pre_token_balances",
		"post_token_balances",
	},
	TypeInstruction: {
		"tx_signature", "index", "parent_index", "accounts", "data", "program",
		"program_id", "instruction_type", "params",
	},
	TypeAccount: {
		"pubkey", "tx_signature", "executable", "lamports", "owner", "rent_epoch",
		"program", "space", "account_type", "is_native", "mint", "token_owner",
		"state", "token_amount", "token_amount_decimals", "mint_authority",
		"supply", "program_data", "authorized_voters", "authorized_withdrawer",
		"prior_voters", "node_pubkey", "commission", "epoch_credits", "votes",
		"root_slot", "last_timestamp", "data",
	},
	TypeTokenTransfer: {
		"source", "destination", "authority", "value", "decimals", "mint",
		"mint_authority", "transfer_type", "tx_signature",
	},
	TypeToken: {
		"tx_signature", "token_type", "mint", "update_authority", "name", "symbol",
		"uri", "seller_fee_basis_points", "creators", "primary_sale_happened",
		"is_mutable",
	},
}
