package model

// Token types.
const (
	TokenTypeNFT = "nft"
	TokenTypeSPL = "spl-token"
)

// Token is a mint joined with its metadata account.
type Token struct {
	TxSignature          *string
	TokenType            string
	Mint                 string
	UpdateAuthority      string
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
	PrimarySaleHappened  bool
	IsMutable            bool
}

// Creator is one metadata creator entry.
type Creator struct {
	Address  string `json:"address"`
	Verified bool   `json:"verified"`
	Share    uint8  `json:"share"`
}

// TransferType tags a token transfer's shape.
type TransferType string

const (
	TransferSPL    TransferType = "spl-transfer"
	TransferBurn   TransferType = "burn"
	TransferMintTo TransferType = "mintTo"
	TransferNative TransferType = "transfer"
)

// TokenTransfer is derived from a transfer-shaped instruction.
type TokenTransfer struct {
	Source        *string
	Destination   *string
	Authority     *string
	Value         *uint64
	Decimals      *int
	Mint          *string
	MintAuthority *string
	TransferType  TransferType
	TxSignature   string
}
