package mapper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solanaetl/internal/model"
)

// viaJSON simulates a JSONL sink and reader.
func viaJSON(t *testing.T, item model.Item) model.Item {
	t.Helper()
	b, err := json.Marshal(item)
	require.NoError(t, err)
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out model.Item
	require.NoError(t, dec.Decode(&out))
	return out
}

// viaText simulates a CSV sink and reader: every value becomes text, nil becomes "".
func viaText(item model.Item) model.Item {
	out := make(model.Item, len(item))
	for k, v := range item {
		if v == nil {
			out[k] = ""
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}

func assertStable(t *testing.T, first model.Item, rebuild func(model.Item) (model.Item, error)) {
	t.Helper()
	for name, transport := range map[string]func(model.Item) model.Item{
		"memory": func(i model.Item) model.Item { return i },
		"json":   func(i model.Item) model.Item { return viaJSON(t, i) },
		"text":   viaText,
	} {
		second, err := rebuild(transport(first))
		require.NoError(t, err, name)
		assert.Equal(t, first, second, name)
	}
}

func TestBlockRoundTrip(t *testing.T) {
	b, _, err := BlockFromJSON(json.RawMessage(blockFixture), nil)
	require.NoError(t, err)
	assertStable(t, BlockItem(b), func(i model.Item) (model.Item, error) {
		b, err := BlockFromItem(i)
		return BlockItem(b), err
	})
}

func TestTransactionRoundTrip(t *testing.T) {
	tx, err := TransactionFromJSON(json.RawMessage(parsedTxFixture), BlockContext{Hash: ptr("H"), Number: ptr(uint64(3)), Timestamp: ptr(int64(9))})
	require.NoError(t, err)
	assertStable(t, TransactionItem(tx), func(i model.Item) (model.Item, error) {
		tx, err := TransactionFromItem(i)
		return TransactionItem(tx), err
	})
}

func TestInstructionRoundTrip(t *testing.T) {
	tx, err := TransactionFromJSON(json.RawMessage(parsedTxFixture), BlockContext{})
	require.NoError(t, err)
	for _, ix := range tx.Instructions {
		assertStable(t, InstructionItem(ix), func(i model.Item) (model.Item, error) {
			ix, err := InstructionFromItem(i)
			return InstructionItem(ix), err
		})
	}
}

func TestAccountRoundTrip(t *testing.T) {
	for _, fixture := range []string{tokenAccountFixture, mintFixture, voteFixture, programFixture, rawFixture} {
		acc, err := AccountFromJSON("KEY", json.RawMessage(fixture), ptr("SIG"))
		require.NoError(t, err)
		assertStable(t, AccountItem(acc), func(i model.Item) (model.Item, error) {
			acc, err := AccountFromItem(i)
			return AccountItem(acc), err
		})
	}
}

func TestTokenTransferRoundTrip(t *testing.T) {
	transfer, ok := TokenTransferFromInstruction(parsedInstruction("spl-token", "transferChecked", map[string]interface{}{
		"source": "A", "destination": "B", "authority": "C", "mint": "M",
		"tokenAmount": map[string]interface{}{"amount": "1000", "decimals": json.Number("3")},
	}))
	require.True(t, ok)
	assertStable(t, TokenTransferItem(transfer), func(i model.Item) (model.Item, error) {
		got, err := TokenTransferFromItem(i)
		return TokenTransferItem(got), err
	})
}

func TestTokenRoundTrip(t *testing.T) {
	token := model.Token{
		TxSignature:          ptr("SIG"),
		TokenType:            model.TokenTypeNFT,
		Mint:                 "M",
		UpdateAuthority:      "U",
		Name:                 "Name",
		Symbol:               "SYM",
		URI:                  "https://example.org",
		SellerFeeBasisPoints: 500,
		Creators:             []model.Creator{{Address: "C1", Verified: true, Share: 100}},
		PrimarySaleHappened:  true,
		IsMutable:            true,
	}
	assertStable(t, TokenItem(token), func(i model.Item) (model.Item, error) {
		got, err := TokenFromItem(i)
		return TokenItem(got), err
	})
}
