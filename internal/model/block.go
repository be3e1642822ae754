package model

// Block is a confirmed slot with its transactions.
type Block struct {
	Number            uint64
	Height            *uint64
	Hash              *string
	PreviousBlockHash *string
	Timestamp         *int64
	TransactionCount  int
	Rewards           []Reward
	LeaderReward      *int64
	Leader            *string
	Transactions      []Transaction
}

// Reward mirrors one entry of the getBlock rewards array.
type Reward struct {
	Pubkey      string  `json:"pubkey"`
	Lamports    int64   `json:"lamports"`
	PostBalance uint64  `json:"postBalance"`
	RewardType  *string `json:"rewardType"`
	Commission  *int    `json:"commission"`
}

// RewardTypeFee marks the slot leader's fee reward.
const RewardTypeFee = "Fee"
