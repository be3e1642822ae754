package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solanaetl/internal/model"
)

func TestParseEntityTypes(t *testing.T) {
	all, err := ParseEntityTypes("")
	require.NoError(t, err)
	assert.Equal(t, "block,transaction,instruction,account,token_transfer,token", all.String())

	set, err := ParseEntityTypes(" token , block")
	require.NoError(t, err)
	assert.Equal(t, "block,token", set.String())

	_, err = ParseEntityTypes("block,log")
	assert.Error(t, err)
}

func TestEntityDependencyClosure(t *testing.T) {
	tokens := EntitySet{model.TypeToken: true}
	assert.True(t, tokens.Needs(model.TypeBlock))
	assert.True(t, tokens.Needs(model.TypeTransaction))
	assert.True(t, tokens.Needs(model.TypeInstruction))
	assert.True(t, tokens.Needs(model.TypeAccount))
	assert.False(t, tokens.Needs(model.TypeTokenTransfer))
	assert.False(t, tokens.Emits(model.TypeAccount))

	transfers := EntitySet{model.TypeTokenTransfer: true}
	assert.True(t, transfers.Needs(model.TypeInstruction))
	assert.False(t, transfers.Needs(model.TypeAccount))

	blocks := EntitySet{model.TypeBlock: true}
	assert.False(t, blocks.Needs(model.TypeTransaction))
}

func TestItemID(t *testing.T) {
	cases := []struct {
		item model.Item
		want string
	}{
		{model.Item{"type": "block", "hash": "H"}, "block_H"},
		{model.Item{"type": "transaction", "signature": "S", "block_hash": "H"}, "transaction_S"},
		{model.Item{"type": "instruction", "tx_signature": "S", "index": 2, "parent_index": nil}, "instruction_S_2"},
		{model.Item{"type": "instruction", "tx_signature": "S", "index": 0, "parent_index": 1}, "instruction_S_1_0"},
		{model.Item{"type": "account", "pubkey": "P", "tx_signature": "S"}, "account_P"},
		{model.Item{"type": "token_transfer", "tx_signature": "S", "source": "A", "destination": nil, "value": uint64(5)}, "token_transfer_S_A__5"},
		{model.Item{"type": "token", "mint": "M", "tx_signature": "S"}, "token_M"},
	}
	for _, tc := range cases {
		got, ok := ItemID(tc.item)
		assert.True(t, ok, tc.want)
		assert.Equal(t, tc.want, got)
	}

	_, ok := ItemID(model.Item{"type": "block"})
	assert.False(t, ok)
	_, ok = ItemID(model.Item{"type": "unknown", "hash": "H"})
	assert.False(t, ok)
}
