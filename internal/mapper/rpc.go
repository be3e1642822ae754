package mapper

import (
	"encoding/json"

	"solanaetl/internal/model"
)

// Wire shapes of getBlock / getTransaction / getMultipleAccounts results.
// Polymorphic members stay raw and are resolved per encoding.

type rpcBlock struct {
	BlockHeight       *uint64           `json:"blockHeight"`
	BlockTime         *int64            `json:"blockTime"`
	Blockhash         *string           `json:"blockhash"`
	ParentSlot        *uint64           `json:"parentSlot"`
	PreviousBlockhash *string           `json:"previousBlockhash"`
	Rewards           *[]model.Reward   `json:"rewards"`
	Transactions      []json.RawMessage `json:"transactions"`
	Signatures        []string          `json:"signatures"`
}

type rpcTransactionWithMeta struct {
	Transaction json.RawMessage `json:"transaction"`
	Meta        *rpcMeta        `json:"meta"`
}

type rpcTransaction struct {
	Signatures []string   `json:"signatures"`
	Message    rpcMessage `json:"message"`
}

type rpcMessage struct {
	AccountKeys     []json.RawMessage `json:"accountKeys"`
	Header          *rpcHeader        `json:"header"`
	RecentBlockhash *string           `json:"recentBlockhash"`
	Instructions    []json.RawMessage `json:"instructions"`
}

type rpcHeader struct {
	NumRequiredSignatures       int `json:"numRequiredSignatures"`
	NumReadonlySignedAccounts   int `json:"numReadonlySignedAccounts"`
	NumReadonlyUnsignedAccounts int `json:"numReadonlyUnsignedAccounts"`
}

type rpcMeta struct {
	Err               json.RawMessage       `json:"err"`
	Fee               *uint64               `json:"fee"`
	PreBalances       []uint64              `json:"preBalances"`
	PostBalances      []uint64              `json:"postBalances"`
	PreTokenBalances  []model.TokenBalance  `json:"preTokenBalances"`
	PostTokenBalances []model.TokenBalance  `json:"postTokenBalances"`
	InnerInstructions []rpcInnerInstruction `json:"innerInstructions"`
	LogMessages       []string              `json:"logMessages"`
	LoadedAddresses   *rpcLoadedAddresses   `json:"loadedAddresses"`
}

type rpcInnerInstruction struct {
	Index        int               `json:"index"`
	Instructions []json.RawMessage `json:"instructions"`
}

type rpcLoadedAddresses struct {
	Writable []string `json:"writable"`
	Readonly []string `json:"readonly"`
}

type rpcInstruction struct {
	ProgramID      *string           `json:"programId"`
	ProgramIDIndex *int              `json:"programIdIndex"`
	Program        *string           `json:"program"`
	Accounts       []json.RawMessage `json:"accounts"`
	Data           *string           `json:"data"`
	Parsed         json.RawMessage   `json:"parsed"`
}

type rpcParsed struct {
	Type *string         `json:"type"`
	Info json.RawMessage `json:"info"`
}

type rpcAccount struct {
	Data       json.RawMessage `json:"data"`
	Executable *bool           `json:"executable"`
	Lamports   *uint64         `json:"lamports"`
	Owner      *string         `json:"owner"`
	RentEpoch  *uint64         `json:"rentEpoch"`
	Space      *uint64         `json:"space"`
}

type rpcParsedAccountData struct {
	Program *string         `json:"program"`
	Parsed  json.RawMessage `json:"parsed"`
	Space   *uint64         `json:"space"`
}
