package mapper

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solanaetl/internal/model"
)

const (
	tokenAccountFixture = `{"data": {"program": "spl-token", "parsed": {"type": "account", "info": {
	  "isNative": false, "mint": "MINT", "owner": "HOLDER", "state": "initialized",
	  "tokenAmount": {"amount": "1500", "decimals": 2, "uiAmount": 15.0, "uiAmountString": "15"}}}, "space": 165},
	  "executable": false, "lamports": 2039280, "owner": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", "rentEpoch": 361}`
	mintFixture = `{"data": {"program": "spl-token", "parsed": {"type": "mint", "info": {
	  "decimals": 0, "freezeAuthority": null, "isInitialized": true, "mintAuthority": "AUTH", "supply": "1"}}, "space": 82},
	  "executable": false, "lamports": 1461600, "owner": "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", "rentEpoch": 361}`
	voteFixture = `{"data": {"program": "vote", "parsed": {"type": "vote", "info": {
	  "authorizedVoters": [{"authorizedVoter": "V", "epoch": 300}], "authorizedWithdrawer": "W",
	  "commission": 10, "epochCredits": [{"credits": "5", "epoch": 299, "previousCredits": "1"}],
	  "lastTimestamp": {"slot": 12, "timestamp": 1660000000}, "nodePubkey": "NODE", "priorVoters": [],
	  "rootSlot": 11, "votes": [{"confirmationCount": 1, "slot": 12}]}}, "space": 3731},
	  "executable": false, "lamports": 1, "owner": "Vote111111111111111111111111111111111111111", "rentEpoch": 361}`
	programFixture = `{"data": {"program": "bpf-upgradeable-loader", "parsed": {"type": "program", "info": {"programData": "PDATA"}}, "space": 36},
	  "executable": true, "lamports": 1, "owner": "BPFLoaderUpgradeab1e11111111111111111111111", "rentEpoch": 361}`
	rawFixture = `{"data": ["AAEC", "base64"], "executable": false, "lamports": 1, "owner": "11111111111111111111111111111111", "rentEpoch": 18446744073709551615}`
)

func TestAccountTypes(t *testing.T) {
	sig := "CREATOR"
	tok, err := AccountFromJSON("TA", json.RawMessage(tokenAccountFixture), &sig)
	require.NoError(t, err)
	assert.Equal(t, model.AccountTypeToken, *tok.AccountType)
	require.NotNil(t, tok.Token)
	assert.Equal(t, uint64(1500), *tok.Token.Amount)
	assert.Equal(t, 2, *tok.Token.Decimals)
	assert.Equal(t, "HOLDER", *tok.Token.Owner)
	assert.Equal(t, "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", *tok.Owner)
	assert.Equal(t, uint64(165), *tok.Space)
	assert.Nil(t, tok.Mint)
	assert.Nil(t, tok.Vote)
	assert.Nil(t, tok.Data)

	mint, err := AccountFromJSON("M", json.RawMessage(mintFixture), nil)
	require.NoError(t, err)
	assert.Equal(t, model.AccountTypeMint, *mint.AccountType)
	assert.Equal(t, 0, *mint.Mint.Decimals)
	assert.Equal(t, uint64(1), *mint.Mint.Supply)
	assert.Nil(t, mint.Token)

	item := AccountItem(mint)
	assert.Equal(t, "mint", item["account_type"])
	assert.Equal(t, 0, item["token_amount_decimals"])
	assert.Nil(t, item["token_owner"])

	vote, err := AccountFromJSON("VA", json.RawMessage(voteFixture), nil)
	require.NoError(t, err)
	assert.Equal(t, model.AccountTypeVote, *vote.AccountType)
	assert.Equal(t, "NODE", *vote.Vote.NodePubkey)
	assert.Equal(t, `[{"authorizedVoter":"V","epoch":300}]`, string(vote.Vote.AuthorizedVoters))
	assert.Equal(t, uint64(11), *vote.Vote.RootSlot)

	prog, err := AccountFromJSON("P", json.RawMessage(programFixture), nil)
	require.NoError(t, err)
	assert.Equal(t, model.AccountTypeProgram, *prog.AccountType)
	assert.Equal(t, "PDATA", *prog.ProgramInfo.ProgramData)
	assert.True(t, *prog.Executable)

	other, err := AccountFromJSON("R", json.RawMessage(rawFixture), nil)
	require.NoError(t, err)
	assert.Equal(t, model.AccountTypeOther, *other.AccountType)
	assert.Equal(t, "AAEC", *other.Data)
	assert.Equal(t, uint64(18446744073709551615), *other.RentEpoch)
}

func TestAccountUnknownParsedTypeIsOther(t *testing.T) {
	raw := `{"data": {"program": "bpf-upgradeable-loader", "parsed": {"type": "programData", "info": {"slot": 1}}, "space": 10}, "lamports": 1}`
	acc, err := AccountFromJSON("X", json.RawMessage(raw), nil)
	require.NoError(t, err)
	assert.Equal(t, model.AccountTypeOther, *acc.AccountType)
	require.NotNil(t, acc.Data)
	assert.Contains(t, *acc.Data, "programData")
	assert.Nil(t, acc.ProgramInfo)
}

func TestAccountRequiresPubkey(t *testing.T) {
	_, err := AccountFromJSON("", json.RawMessage(rawFixture), nil)
	assert.ErrorIs(t, err, ErrMissingField)
}
