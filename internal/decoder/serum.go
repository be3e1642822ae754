package decoder

import (
	"solanaetl/internal/layout"
)

const (
	// SerumDexV3ProgramID is the mainnet address of the Serum DEX v3 program.
	SerumDexV3ProgramID = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	// SerumDexV3Name is the program name assigned to decoded instructions.
	SerumDexV3Name = "serum-dex-v3"
)

// newOrderV3Len is the payload length (after the version byte) when max_ts is present.
const newOrderV3Len = 58

// NewSerumDexV3 returns the decoder for the Serum DEX v3 instruction set.
// Payloads carry a leading version byte and a u32 discriminant.
func NewSerumDexV3() *Program {
	return NewProgram(SerumDexV3Name, 1, discriminantU32, serumVariants())
}

func serumVariants() []Variant {
	newOrderAccounts := Plan{
		Account("market", 0),
		Account("open_orders", 1),
		Account("request_queue", 2),
		Account("paying", 3),
		Account("open_orders_owner", 4),
		Account("coin_vault", 5),
		Account("pc_vault", 6),
		Account("token_program", 7),
		Account("rent_sysvar", 8),
		Account("srm", 9),
	}
	cancelV2Accounts := Plan{
		Account("market", 0),
		Account("bids", 1),
		Account("asks", 2),
		Account("open_orders", 3),
		Account("owner", 4),
		Account("event_queue", 5),
	}
	replaceAccounts := Plan{
		Account("market", 0),
		Account("open_orders", 1),
		Account("request_queue", 2),
		Account("event_queue", 3),
		Account("bids", 4),
		Account("asks", 5),
		Account("paying", 6),
		Account("open_orders_owner", 7),
		Account("coin_vault", 8),
		Account("pc_vault", 9),
		Account("token_program", 10),
		Account("rent_sysvar", 11),
		Account("srm", 12),
	}
	pruneAccounts := Plan{
		Account("market", 0),
		Account("bids", 1),
		Account("asks", 2),
		Account("prune_authority", 3),
		Account("open_orders", 4),
		Account("open_orders_owner", 5),
		Account("event_queue", 6),
	}

	return []Variant{
		{0, "initializeMarket", Plan{
			Buffer("coin_lot_size", readU64),
			Buffer("pc_lot_size", readU64),
			Buffer("fee_rate_bps", readU16),
			Buffer("vault_signer_nonce", readU64),
			Buffer("pc_dust_threshold", readU64),
			Account("market", 0),
			Account("request_queue", 1),
			Account("event_queue", 2),
			Account("bids", 3),
			Account("asks", 4),
			Account("coin_currency", 5),
			Account("price_currency", 6),
			Account("coin_currency_mint", 7),
			Account("price_currency_mint", 8),
			Account("rent_sysvar", 9),
			Account("open_orders_market_authority", 10),
			Account("prune_authority", 11),
			Account("crank_authority", 12),
		}},
		{1, "newOrder", concat(Plan{
			Buffer("side", readU32),
			Buffer("limit_price", readU64),
			Buffer("max_qty", readU64),
			Buffer("order_type", readU32),
			Buffer("client_id", readU64),
		}, newOrderAccounts)},
		{2, "matchOrders", Plan{
			Buffer("limit", readU16),
			Account("market", 0),
			Account("request_queue", 1),
			Account("event_queue", 2),
			Account("bids", 3),
			Account("asks", 4),
		}},
		{3, "consumeEvents", Plan{
			Buffer("limit", readU16),
			Accounts("open_orders", SortedUnique),
			AccountFromEnd("market", 4),
			AccountFromEnd("event_queue", 3),
		}},
		{4, "cancelOrder", Plan{
			Buffer("side", readU32),
			Buffer("order_id", readU128),
			Buffer("owner", readU64),
			Buffer("owner_slot", readU8),
			Account("market", 0),
			Account("open_orders", 1),
			Account("request_queue", 2),
			Account("open_orders_owner", 3),
		}},
		{5, "settleFunds", Plan{
			Account("market", 0),
			Account("open_orders", 1),
			Account("open_orders_owner", 2),
			Account("coin_vault", 3),
			Account("pc_vault", 4),
			Account("coin_wallet", 5),
			Account("pc_wallet", 6),
			Account("vault_signer", 7),
			Account("token_program", 8),
			Account("ref_pc_wallet", 9),
		}},
		{6, "cancelOrderByClientId", Plan{
			Buffer("client_id", readU64),
			Account("market", 0),
			Account("open_orders", 1),
			Account("request_queue", 2),
			Account("open_orders_owner", 3),
		}},
		{7, "disableMarket", Plan{
			Account("market", 0),
			Account("disable_authority", 1),
		}},
		{8, "sweepFees", Plan{
			Account("market", 0),
			Account("pc_vault", 1),
			Account("fee_sweeping_authority", 2),
			Account("fee_receivable", 3),
			Account("vault_signer", 4),
			Account("token_program", 5),
		}},
		{9, "newOrderV2", concat(Plan{
			Buffer("side", readU32),
			Buffer("limit_price", readU64),
			Buffer("max_qty", readU64),
			Buffer("order_type", readU32),
			Buffer("client_id", readU64),
			Buffer("self_trade_behavior", readU32),
		}, newOrderAccounts)},
		{10, "newOrderV3", concat(Plan{
			Buffer("side", readU32),
			Buffer("limit_price", readU64),
			Buffer("max_coin_qty", readU64),
			Buffer("max_native_pc_qty_including_fees", readU64),
			Buffer("self_trade_behavior", readU32),
			Buffer("order_type", readU32),
			Buffer("client_id", readU64),
			Buffer("limit", readU16),
			Buffer("max_ts", readOptionalTimestamp(newOrderV3Len)),
		}, newOrderAccounts)},
		{11, "cancelOrderV2", concat(Plan{
			Buffer("side", readU32),
			Buffer("order_id", readU128),
		}, cancelV2Accounts)},
		{12, "cancelOrderByClientIdV2", concat(Plan{
			Buffer("client_id", readU64),
		}, cancelV2Accounts)},
		{13, "sendTake", Plan{
			Buffer("side", readU32),
			Buffer("limit_price", readU64),
			Buffer("max_coin_qty", readU64),
			Buffer("max_native_pc_qty_including_fees", readU64),
			Buffer("min_coin_qty", readU64),
			Buffer("min_native_pc_qty_including_fees", readU64),
			Buffer("limit", readU16),
			Account("market", 0),
			Account("request_queue", 1),
			Account("event_queue", 2),
			Account("bids", 3),
			Account("asks", 4),
			Account("coin_wallet", 5),
			Account("pc_wallet", 6),
			Account("signer", 7),
			Account("coin_vault", 8),
			Account("pc_vault", 9),
			Account("token_program", 10),
			Account("srm", 11),
		}},
		{14, "closeOpenOrders", Plan{
			Account("open_orders", 0),
			Account("open_orders_owner", 1),
			Account("market", 2),
		}},
		{15, "initOpenOrders", pruneAccounts},
		{16, "prune", concat(Plan{
			Buffer("limit", readU16),
		}, pruneAccounts)},
		{17, "consumeEventsPermissioned", Plan{
			Buffer("limit", readU16),
			Accounts("open_orders", SortedUnique),
			AccountFromEnd("market", 3),
			AccountFromEnd("event_queue", 2),
			AccountFromEnd("crank_authority", 1),
		}},
		{18, "cancelOrdersByClientIds", concat(Plan{
			Buffer("client_ids", readClientIDs),
		}, cancelV2AccountsWithOwner())},
		{19, "replaceOrderByClientId", concat(Plan{
			Buffer("side", readU32),
			Buffer("limit_price", readU64),
			Buffer("max_coin_qty", readU64),
			Buffer("max_native_pc_qty_including_fees", readU64),
			Buffer("self_trade_behavior", readU32),
			Buffer("order_type", readU32),
			Buffer("client_id", readU64),
			Buffer("limit", readU16),
			Buffer("max_ts", readSint(8)),
		}, replaceAccounts)},
		{20, "replaceOrdersByClientIds", replaceAccounts},
	}
}

func cancelV2AccountsWithOwner() Plan {
	return Plan{
		Account("market", 0),
		Account("bids", 1),
		Account("asks", 2),
		Account("open_orders", 3),
		Account("open_orders_owner", 4),
		Account("event_queue", 5),
	}
}

// readOptionalTimestamp reads an i64 only when the payload is exactly wantLen bytes long.
func readOptionalTimestamp(wantLen int) layout.Reader {
	return func(data []byte, offset int) (interface{}, int, error) {
		v, next, err := layout.OptionalSint(data, 8, offset, wantLen)
		if err != nil {
			return nil, offset, err
		}
		return v, next, nil
	}
}

// readClientIDs consumes the rest of the payload as u64 client ids.
func readClientIDs(data []byte, offset int) (interface{}, int, error) {
	n := 0
	if len(data) > offset {
		n = (len(data) - offset) / 8
	}
	ids, next, err := layout.Repeat(data, n, offset, layout.U64)
	if err != nil {
		return nil, offset, err
	}
	return ids, next, nil
}

func concat(plans ...Plan) Plan {
	var n int
	for _, p := range plans {
		n += len(p)
	}
	out := make(Plan, 0, n)
	for _, p := range plans {
		out = append(out, p...)
	}
	return out
}
