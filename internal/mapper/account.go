package mapper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"solanaetl/internal/model"
)

const (
	programSPLToken      = "spl-token"
	programVote          = "vote"
	programBPFUpgradable = "bpf-upgradeable-loader"
)

type tokenAccountInfo struct {
	IsNative    *bool   `json:"isNative"`
	Mint        *string `json:"mint"`
	Owner       *string `json:"owner"`
	State       *string `json:"state"`
	TokenAmount *struct {
		Amount   string `json:"amount"`
		Decimals *int   `json:"decimals"`
	} `json:"tokenAmount"`
}

type mintInfo struct {
	MintAuthority *string `json:"mintAuthority"`
	Supply        *string `json:"supply"`
	Decimals      *int    `json:"decimals"`
}

type voteInfo struct {
	AuthorizedVoters     json.RawMessage `json:"authorizedVoters"`
	AuthorizedWithdrawer *string         `json:"authorizedWithdrawer"`
	PriorVoters          json.RawMessage `json:"priorVoters"`
	NodePubkey           *string         `json:"nodePubkey"`
	Commission           *int            `json:"commission"`
	EpochCredits         json.RawMessage `json:"epochCredits"`
	Votes                json.RawMessage `json:"votes"`
	RootSlot             *uint64         `json:"rootSlot"`
	LastTimestamp        json.RawMessage `json:"lastTimestamp"`
}

type programInfo struct {
	ProgramData *string `json:"programData"`
}

// AccountFromJSON maps one getMultipleAccounts value for pubkey.
func AccountFromJSON(pubkey string, raw json.RawMessage, txSignature *string) (model.Account, error) {
	if pubkey == "" {
		return model.Account{}, missing("pubkey")
	}
	var ra rpcAccount
	if err := json.Unmarshal(raw, &ra); err != nil {
		return model.Account{}, fmt.Errorf("decode account %s: %w", pubkey, err)
	}
	acc := model.Account{
		Pubkey:      pubkey,
		TxSignature: txSignature,
		Executable:  ra.Executable,
		Lamports:    ra.Lamports,
		Owner:       ra.Owner,
		RentEpoch:   ra.RentEpoch,
		Space:       ra.Space,
	}

	data := bytes.TrimSpace(ra.Data)
	if isNull(data) {
		return acc, nil
	}
	if data[0] != '{' {
		acc.AccountType = ptr(model.AccountTypeOther)
		acc.Data = ptr(rawAccountData(data))
		return acc, nil
	}

	var pd rpcParsedAccountData
	if err := json.Unmarshal(data, &pd); err != nil {
		return model.Account{}, fmt.Errorf("decode account %s data: %w", pubkey, err)
	}
	acc.Program = pd.Program
	if pd.Space != nil {
		acc.Space = pd.Space
	}
	var parsed rpcParsed
	if !isNull(pd.Parsed) {
		if err := json.Unmarshal(pd.Parsed, &parsed); err != nil {
			return model.Account{}, fmt.Errorf("decode account %s parsed: %w", pubkey, err)
		}
	}
	if err := applyParsed(&acc, parsed); err != nil {
		return model.Account{}, fmt.Errorf("account %s: %w", pubkey, err)
	}
	if acc.AccountType == nil {
		acc.AccountType = ptr(model.AccountTypeOther)
		acc.Data = ptr(string(data))
	}
	return acc, nil
}

func applyParsed(acc *model.Account, parsed rpcParsed) error {
	if acc.Program == nil || parsed.Type == nil {
		return nil
	}
	program, typ := *acc.Program, *parsed.Type
	switch {
	case strings.HasPrefix(program, programSPLToken) && typ == string(model.AccountTypeToken):
		var info tokenAccountInfo
		if err := unmarshalInfo(parsed.Info, &info); err != nil {
			return fmt.Errorf("token account info: %w", err)
		}
		t := &model.TokenAccountInfo{IsNative: info.IsNative, Mint: info.Mint, Owner: info.Owner, State: info.State}
		if info.TokenAmount != nil {
			amount, err := optUint64(info.TokenAmount.Amount)
			if err != nil {
				return fmt.Errorf("token amount: %w", err)
			}
			t.Amount = amount
			t.Decimals = info.TokenAmount.Decimals
		}
		acc.AccountType = ptr(model.AccountTypeToken)
		acc.Token = t
	case strings.HasPrefix(program, programSPLToken) && typ == string(model.AccountTypeMint):
		var info mintInfo
		if err := unmarshalInfo(parsed.Info, &info); err != nil {
			return fmt.Errorf("mint info: %w", err)
		}
		supply, err := optUint64(val(info.Supply))
		if err != nil {
			return fmt.Errorf("mint supply: %w", err)
		}
		acc.AccountType = ptr(model.AccountTypeMint)
		acc.Mint = &model.MintInfo{MintAuthority: info.MintAuthority, Supply: supply, Decimals: info.Decimals}
	case program == programVote && typ == string(model.AccountTypeVote):
		var info voteInfo
		if err := unmarshalInfo(parsed.Info, &info); err != nil {
			return fmt.Errorf("vote info: %w", err)
		}
		acc.AccountType = ptr(model.AccountTypeVote)
		acc.Vote = &model.VoteInfo{
			AuthorizedVoters:     compact(info.AuthorizedVoters),
			AuthorizedWithdrawer: info.AuthorizedWithdrawer,
			PriorVoters:          compact(info.PriorVoters),
			NodePubkey:           info.NodePubkey,
			Commission:           info.Commission,
			EpochCredits:         compact(info.EpochCredits),
			Votes:                compact(info.Votes),
			RootSlot:             info.RootSlot,
			LastTimestamp:        compact(info.LastTimestamp),
		}
	case program == programBPFUpgradable && typ == string(model.AccountTypeProgram):
		var info programInfo
		if err := unmarshalInfo(parsed.Info, &info); err != nil {
			return fmt.Errorf("program info: %w", err)
		}
		acc.AccountType = ptr(model.AccountTypeProgram)
		acc.ProgramInfo = &model.ProgramInfo{ProgramData: info.ProgramData}
	}
	return nil
}

func unmarshalInfo(raw json.RawMessage, dst interface{}) error {
	if isNull(raw) {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// rawAccountData returns the encoded payload of a ["<data>", "<encoding>"] pair,
// or the JSON text itself for any other shape.
func rawAccountData(data json.RawMessage) string {
	var pair []string
	if err := json.Unmarshal(data, &pair); err == nil && len(pair) > 0 {
		return pair[0]
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return string(data)
}

func compact(raw json.RawMessage) json.RawMessage {
	if isNull(raw) {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}

// AccountItem flattens acc for export. Columns outside the account's type are nil.
func AccountItem(acc model.Account) model.Item {
	item := model.Item{
		"type":                  model.TypeAccount,
		"pubkey":                acc.Pubkey,
		"tx_signature":          val(acc.TxSignature),
		"executable":            val(acc.Executable),
		"lamports":              val(acc.Lamports),
		"owner":                 val(acc.Owner),
		"rent_epoch":            val(acc.RentEpoch),
		"program":               val(acc.Program),
		"space":                 val(acc.Space),
		"account_type":          nil,
		"is_native":             nil,
		"mint":                  nil,
		"token_owner":           nil,
		"state":                 nil,
		"token_amount":          nil,
		"token_amount_decimals": nil,
		"mint_authority":        nil,
		"supply":                nil,
		"program_data":          nil,
		"authorized_voters":     nil,
		"authorized_withdrawer": nil,
		"prior_voters":          nil,
		"node_pubkey":           nil,
		"commission":            nil,
		"epoch_credits":         nil,
		"votes":                 nil,
		"root_slot":             nil,
		"last_timestamp":        nil,
		"data":                  val(acc.Data),
	}
	if acc.AccountType != nil {
		item["account_type"] = string(*acc.AccountType)
	}
	if t := acc.Token; t != nil {
		item["is_native"] = val(t.IsNative)
		item["mint"] = val(t.Mint)
		item["token_owner"] = val(t.Owner)
		item["state"] = val(t.State)
		item["token_amount"] = val(t.Amount)
		item["token_amount_decimals"] = val(t.Decimals)
	}
	if m := acc.Mint; m != nil {
		item["mint_authority"] = val(m.MintAuthority)
		item["supply"] = val(m.Supply)
		item["token_amount_decimals"] = val(m.Decimals)
	}
	if v := acc.Vote; v != nil {
		item["authorized_voters"] = rawOrNil(v.AuthorizedVoters)
		item["authorized_withdrawer"] = val(v.AuthorizedWithdrawer)
		item["prior_voters"] = rawOrNil(v.PriorVoters)
		item["node_pubkey"] = val(v.NodePubkey)
		item["commission"] = val(v.Commission)
		item["epoch_credits"] = rawOrNil(v.EpochCredits)
		item["votes"] = rawOrNil(v.Votes)
		item["root_slot"] = val(v.RootSlot)
		item["last_timestamp"] = rawOrNil(v.LastTimestamp)
	}
	if p := acc.ProgramInfo; p != nil {
		item["program_data"] = val(p.ProgramData)
	}
	return item
}

// AccountFromItem rebuilds an account from its exported form.
func AccountFromItem(item model.Item) (model.Account, error) {
	r := fieldReader{item: item}
	pubkey := r.str("pubkey")
	if pubkey == nil {
		return model.Account{}, missing("pubkey")
	}
	acc := model.Account{
		Pubkey:      *pubkey,
		TxSignature: r.str("tx_signature"),
		Executable:  r.boolean("executable"),
		Lamports:    r.u64("lamports"),
		Owner:       r.str("owner"),
		RentEpoch:   r.u64("rent_epoch"),
		Program:     r.str("program"),
		Space:       r.u64("space"),
		Data:        r.str("data"),
	}
	if typ := r.str("account_type"); typ != nil {
		at := model.AccountType(*typ)
		acc.AccountType = &at
		switch at {
		case model.AccountTypeToken:
			acc.Token = &model.TokenAccountInfo{
				IsNative: r.boolean("is_native"),
				Mint:     r.str("mint"),
				Owner:    r.str("token_owner"),
				State:    r.str("state"),
				Amount:   r.u64("token_amount"),
				Decimals: r.integer("token_amount_decimals"),
			}
		case model.AccountTypeMint:
			acc.Mint = &model.MintInfo{
				MintAuthority: r.str("mint_authority"),
				Supply:        r.u64("supply"),
				Decimals:      r.integer("token_amount_decimals"),
			}
		case model.AccountTypeVote:
			acc.Vote = &model.VoteInfo{
				AuthorizedVoters:     r.raw("authorized_voters"),
				AuthorizedWithdrawer: r.str("authorized_withdrawer"),
				PriorVoters:          r.raw("prior_voters"),
				NodePubkey:           r.str("node_pubkey"),
				Commission:           r.integer("commission"),
				EpochCredits:         r.raw("epoch_credits"),
				Votes:                r.raw("votes"),
				RootSlot:             r.u64("root_slot"),
				LastTimestamp:        r.raw("last_timestamp"),
			}
		case model.AccountTypeProgram:
			acc.ProgramInfo = &model.ProgramInfo{ProgramData: r.str("program_data")}
		}
	}
	if r.err != nil {
		return model.Account{}, r.err
	}
	return acc, nil
}
