package model

import "encoding/json"

// Transaction status values.
const (
	StatusSuccess = "Success"
	StatusFail    = "Fail"
)

// Transaction is a signed message with its execution metadata.
type Transaction struct {
	Signature           string
	BlockHash           *string
	PreviousBlockHash   *string
	BlockNumber         *uint64
	BlockTimestamp      *int64
	Fee                 *uint64
	Status              *string
	Err                 json.RawMessage
	Accounts            []TxAccount
	LogMessages         []string
	BalanceChanges      []BalanceChange
	TokenBalanceChanges []TokenBalanceChange
	PreTokenBalances    []TokenBalance
	PostTokenBalances   []TokenBalance
	Instructions        []Instruction
}

// TxAccount is one entry of the transaction's account list.
type TxAccount struct {
	Pubkey   string `json:"pubkey"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
	Source   string `json:"source,omitempty"`
}

// BalanceChange is the lamport balance of one account before and after execution.
type BalanceChange struct {
	Account string `json:"account"`
	Before  uint64 `json:"before"`
	After   uint64 `json:"after"`
}

// TokenBalanceChange is the token balance of one token account before and after execution.
type TokenBalanceChange struct {
	Account        string `json:"account"`
	Owner          string `json:"owner"`
	Mint           string `json:"mint"`
	Before         uint64 `json:"before"`
	BeforeDecimals int    `json:"before_decimals"`
	After          uint64 `json:"after"`
	AfterDecimals  int    `json:"after_decimals"`
}

// TokenBalance is a pre or post token balance snapshot as returned by the node.
type TokenBalance struct {
	AccountIndex  int         `json:"accountIndex"`
	Mint          string      `json:"mint"`
	Owner         string      `json:"owner,omitempty"`
	ProgramID     string      `json:"programId,omitempty"`
	UITokenAmount TokenAmount `json:"uiTokenAmount"`
}

// TokenAmount is a raw token amount with its decimals.
type TokenAmount struct {
	Amount         string `json:"amount"`
	Decimals       int    `json:"decimals"`
	UIAmountString string `json:"uiAmountString,omitempty"`
}
