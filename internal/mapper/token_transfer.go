package mapper

import (
	"solanaetl/internal/model"
)

const (
	programSystem = "system"
	programATA    = "spl-associated-token-account"
)

// TokenTransferFromInstruction derives a transfer from a decoded instruction.
// It returns false when the instruction is not transfer-shaped.
func TokenTransferFromInstruction(ix model.Instruction) (model.TokenTransfer, bool) {
	if ix.Program == nil || ix.InstructionType == nil || ix.Params == nil {
		return model.TokenTransfer{}, false
	}
	p := ix.Params
	t := model.TokenTransfer{TxSignature: ix.TxSignature}

	switch *ix.Program {
	case programSPLToken:
		switch *ix.InstructionType {
		case "transfer":
			t.TransferType = model.TransferSPL
			t.Source = paramString(p, "source")
			t.Destination = paramString(p, "destination")
			t.Authority = paramAuthority(p)
			t.Value = paramUint(p, "amount")
		case "transferChecked":
			t.TransferType = model.TransferSPL
			t.Source = paramString(p, "source")
			t.Destination = paramString(p, "destination")
			t.Authority = paramAuthority(p)
			t.Mint = paramString(p, "mint")
			t.Value, t.Decimals = checkedAmount(p)
		case "burn", "burnChecked":
			t.TransferType = model.TransferBurn
			t.Source = paramString(p, "account")
			t.Authority = paramAuthority(p)
			t.Mint = paramString(p, "mint")
			if *ix.InstructionType == "burnChecked" {
				t.Value, t.Decimals = checkedAmount(p)
			} else {
				t.Value = paramUint(p, "amount")
			}
		case "mintTo", "mintToChecked":
			t.TransferType = model.TransferMintTo
			t.Destination = paramString(p, "account")
			t.Mint = paramString(p, "mint")
			t.MintAuthority = paramString(p, "mintAuthority")
			if *ix.InstructionType == "mintToChecked" {
				t.Value, t.Decimals = checkedAmount(p)
			} else {
				t.Value = paramUint(p, "amount")
			}
		default:
			return model.TokenTransfer{}, false
		}
	case programSystem:
		if *ix.InstructionType != "transfer" {
			return model.TokenTransfer{}, false
		}
		t.TransferType = model.TransferNative
		t.Source = paramString(p, "source")
		t.Destination = paramString(p, "destination")
		t.Value = paramUint(p, "lamports")
	default:
		return model.TokenTransfer{}, false
	}
	return t, true
}

// checkedAmount reads amount and decimals from either a nested tokenAmount
// object (node parsed) or flat fields (binary decoded).
func checkedAmount(p map[string]interface{}) (*uint64, *int) {
	if nested, ok := p["tokenAmount"].(map[string]interface{}); ok {
		return paramUint(nested, "amount"), paramInt(nested, "decimals")
	}
	return paramUint(p, "amount"), paramInt(p, "decimals")
}

// paramAuthority prefers the single authority and falls back to a multisig authority.
func paramAuthority(p map[string]interface{}) *string {
	if a := paramString(p, "authority"); a != nil {
		return a
	}
	return paramString(p, "multisigAuthority")
}

func paramString(p map[string]interface{}, key string) *string {
	s, ok := p[key].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func paramUint(p map[string]interface{}, key string) *uint64 {
	v, err := optUint64(p[key])
	if err != nil {
		return nil
	}
	return v
}

func paramInt(p map[string]interface{}, key string) *int {
	v, err := optInt(p[key])
	if err != nil {
		return nil
	}
	return v
}

// CreatedAccount returns the account an instruction creates or initializes.
func CreatedAccount(ix model.Instruction) (string, bool) {
	if ix.Program == nil || ix.InstructionType == nil || ix.Params == nil {
		return "", false
	}
	var key string
	switch *ix.Program {
	case programSystem:
		switch *ix.InstructionType {
		case "createAccount", "createAccountWithSeed":
			key = "newAccount"
		}
	case programSPLToken:
		switch *ix.InstructionType {
		case "initializeMint", "initializeMint2":
			key = "mint"
		case "initializeAccount", "initializeAccount2", "initializeAccount3":
			key = "account"
		}
	case programATA:
		switch *ix.InstructionType {
		case "create", "createIdempotent":
			key = "account"
		}
	}
	if key == "" {
		return "", false
	}
	s := paramString(ix.Params, key)
	if s == nil {
		return "", false
	}
	return *s, true
}

// TokenTransferItem flattens t for export.
func TokenTransferItem(t model.TokenTransfer) model.Item {
	return model.Item{
		"type":           model.TypeTokenTransfer,
		"source":         val(t.Source),
		"destination":    val(t.Destination),
		"authority":      val(t.Authority),
		"value":          val(t.Value),
		"decimals":       val(t.Decimals),
		"mint":           val(t.Mint),
		"mint_authority": val(t.MintAuthority),
		"transfer_type":  string(t.TransferType),
		"tx_signature":   t.TxSignature,
	}
}

// TokenTransferFromItem rebuilds a transfer from its exported form.
func TokenTransferFromItem(item model.Item) (model.TokenTransfer, error) {
	r := fieldReader{item: item}
	typ := r.str("transfer_type")
	if typ == nil {
		return model.TokenTransfer{}, missing("transfer_type")
	}
	t := model.TokenTransfer{
		Source:        r.str("source"),
		Destination:   r.str("destination"),
		Authority:     r.str("authority"),
		Value:         r.u64("value"),
		Decimals:      r.integer("decimals"),
		Mint:          r.str("mint"),
		MintAuthority: r.str("mint_authority"),
		TransferType:  model.TransferType(*typ),
		TxSignature:   deref(r.str("tx_signature")),
	}
	if r.err != nil {
		return model.TokenTransfer{}, r.err
	}
	return t, nil
}
