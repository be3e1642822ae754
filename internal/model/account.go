package model

import "encoding/json"

// AccountType tags which type-specific field set an Account carries.
type AccountType string

const (
	AccountTypeProgram AccountType = "program"
	AccountTypeToken   AccountType = "account"
	AccountTypeVote    AccountType = "vote"
	AccountTypeMint    AccountType = "mint"
	AccountTypeOther   AccountType = "other"
)

// Account is an on-chain account state. Exactly one of Token, Mint, Vote,
// ProgramInfo or Data is set, matching AccountType.
type Account struct {
	Pubkey      string
	TxSignature *string
	Executable  *bool
	Lamports    *uint64
	Owner       *string
	RentEpoch   *uint64
	Program     *string
	Space       *uint64
	AccountType *AccountType

	Token       *TokenAccountInfo
	Mint        *MintInfo
	Vote        *VoteInfo
	ProgramInfo *ProgramInfo
	Data        *string
}

// TokenAccountInfo is the parsed state of an spl-token account.
type TokenAccountInfo struct {
	IsNative *bool
	Mint     *string
	Owner    *string
	State    *string
	Amount   *uint64
	Decimals *int
}

// MintInfo is the parsed state of an spl-token mint.
type MintInfo struct {
	MintAuthority *string
	Supply        *uint64
	Decimals      *int
}

// VoteInfo is the parsed state of a vote account. Nested collections are kept as JSON.
type VoteInfo struct {
	AuthorizedVoters     json.RawMessage
	AuthorizedWithdrawer *string
	PriorVoters          json.RawMessage
	NodePubkey           *string
	Commission           *int
	EpochCredits         json.RawMessage
	Votes                json.RawMessage
	RootSlot             *uint64
	LastTimestamp        json.RawMessage
}

// ProgramInfo is the parsed state of an upgradeable program account.
type ProgramInfo struct {
	ProgramData *string
}
