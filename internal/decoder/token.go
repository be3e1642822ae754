package decoder

import (
	"fmt"

	"solanaetl/internal/layout"
)

const (
	TokenProgramID   = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	TokenProgramName = "spl-token"
)

// NewTokenProgram returns the decoder for the spl-token program.
// Field names follow the node's jsonParsed output.
func NewTokenProgram() *Program {
	return NewProgram(TokenProgramName, 0, discriminantU8, []Variant{
		{0, "initializeMint", Plan{
			Buffer("decimals", readU8),
			Buffer("mintAuthority", readPublicKey),
			Buffer("freezeAuthority", readOptionalPublicKey),
			Account("mint", 0),
			Account("rentSysvar", 1),
		}},
		{1, "initializeAccount", Plan{
			Account("account", 0),
			Account("mint", 1),
			Account("owner", 2),
			Account("rentSysvar", 3),
		}},
		{2, "initializeMultisig", Plan{
			Buffer("m", readU8),
			Account("multisig", 0),
			Account("rentSysvar", 1),
		}},
		{3, "transfer", Plan{
			Buffer("amount", readU64),
			Account("source", 0),
			Account("destination", 1),
			Account("authority", 2),
		}},
		{4, "approve", Plan{
			Buffer("amount", readU64),
			Account("source", 0),
			Account("delegate", 1),
			Account("owner", 2),
		}},
		{5, "revoke", Plan{
			Account("source", 0),
			Account("owner", 1),
		}},
		{6, "setAuthority", Plan{
			Buffer("authorityType", readU8),
			Buffer("newAuthority", readOptionalPublicKey),
			Account("account", 0),
			Account("authority", 1),
		}},
		{7, "mintTo", Plan{
			Buffer("amount", readU64),
			Account("mint", 0),
			Account("account", 1),
			Account("mintAuthority", 2),
		}},
		{8, "burn", Plan{
			Buffer("amount", readU64),
			Account("account", 0),
			Account("mint", 1),
			Account("authority", 2),
		}},
		{9, "closeAccount", Plan{
			Account("account", 0),
			Account("destination", 1),
			Account("owner", 2),
		}},
		{10, "freezeAccount", Plan{
			Account("account", 0),
			Account("mint", 1),
			Account("freezeAuthority", 2),
		}},
		{11, "thawAccount", Plan{
			Account("account", 0),
			Account("mint", 1),
			Account("freezeAuthority", 2),
		}},
		{12, "transferChecked", Plan{
			Buffer("amount", readU64),
			Buffer("decimals", readU8),
			Account("source", 0),
			Account("mint", 1),
			Account("destination", 2),
			Account("authority", 3),
		}},
		{13, "approveChecked", Plan{
			Buffer("amount", readU64),
			Buffer("decimals", readU8),
			Account("source", 0),
			Account("mint", 1),
			Account("delegate", 2),
			Account("owner", 3),
		}},
		{14, "mintToChecked", Plan{
			Buffer("amount", readU64),
			Buffer("decimals", readU8),
			Account("mint", 0),
			Account("account", 1),
			Account("mintAuthority", 2),
		}},
		{15, "burnChecked", Plan{
			Buffer("amount", readU64),
			Buffer("decimals", readU8),
			Account("account", 0),
			Account("mint", 1),
			Account("authority", 2),
		}},
		{16, "initializeAccount2", Plan{
			Buffer("owner", readPublicKey),
			Account("account", 0),
			Account("mint", 1),
			Account("rentSysvar", 2),
		}},
		{17, "syncNative", Plan{
			Account("account", 0),
		}},
		{18, "initializeAccount3", Plan{
			Buffer("owner", readPublicKey),
			Account("account", 0),
			Account("mint", 1),
		}},
		{20, "initializeMint2", Plan{
			Buffer("decimals", readU8),
			Buffer("mintAuthority", readPublicKey),
			Buffer("freezeAuthority", readOptionalPublicKey),
			Account("mint", 0),
		}},
	})
}

// readOptionalPublicKey reads a one byte presence tag followed by a key when set.
// A missing tag byte is treated as absent.
func readOptionalPublicKey(data []byte, offset int) (interface{}, int, error) {
	if offset >= len(data) {
		return nil, offset, nil
	}
	tag, next, err := layout.U8(data, offset)
	if err != nil {
		return nil, offset, err
	}
	switch tag {
	case 0:
		return nil, next, nil
	case 1:
		key, after, err := layout.PublicKey(data, next)
		if err != nil {
			return nil, offset, err
		}
		return key, after, nil
	default:
		return nil, offset, fmt.Errorf("invalid option tag %d at offset %d", tag, offset)
	}
}
