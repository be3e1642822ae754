package decoder

import (
	"fmt"

	"solanaetl/internal/layout"
)

const (
	SystemProgramID   = "11111111111111111111111111111111"
	SystemProgramName = "system"
)

// NewSystemProgram returns the decoder for the native system program.
// Field names follow the node's jsonParsed output.
func NewSystemProgram() *Program {
	return NewProgram(SystemProgramName, 0, discriminantU32, []Variant{
		{0, "createAccount", Plan{
			Buffer("lamports", readSplit64),
			Buffer("space", readSplit64),
			Buffer("owner", readPublicKey),
			Account("source", 0),
			Account("newAccount", 1),
		}},
		{1, "assign", Plan{
			Buffer("owner", readPublicKey),
			Account("account", 0),
		}},
		{2, "transfer", Plan{
			Buffer("lamports", readU64),
			Account("source", 0),
			Account("destination", 1),
		}},
		{3, "createAccountWithSeed", Plan{
			Buffer("base", readPublicKey),
			Buffer("seed", readSeed),
			Buffer("lamports", readU64),
			Buffer("space", readU64),
			Buffer("owner", readPublicKey),
			Account("source", 0),
			Account("newAccount", 1),
		}},
		{4, "advanceNonce", Plan{
			Account("nonceAccount", 0),
			Account("recentBlockhashesSysvar", 1),
			Account("nonceAuthority", 2),
		}},
		{5, "withdrawFromNonce", Plan{
			Buffer("lamports", readU64),
			Account("nonceAccount", 0),
			Account("destination", 1),
			Account("recentBlockhashesSysvar", 2),
			Account("rentSysvar", 3),
			Account("nonceAuthority", 4),
		}},
		{6, "initializeNonce", Plan{
			Buffer("nonceAuthority", readPublicKey),
			Account("nonceAccount", 0),
			Account("recentBlockhashesSysvar", 1),
			Account("rentSysvar", 2),
		}},
		{7, "authorizeNonce", Plan{
			Buffer("newAuthorized", readPublicKey),
			Account("nonceAccount", 0),
			Account("nonceAuthority", 1),
		}},
		{8, "allocate", Plan{
			Buffer("space", readU64),
			Account("account", 0),
		}},
		{9, "allocateWithSeed", Plan{
			Buffer("base", readPublicKey),
			Buffer("seed", readSeed),
			Buffer("space", readU64),
			Buffer("owner", readPublicKey),
			Account("account", 0),
		}},
		{10, "assignWithSeed", Plan{
			Buffer("base", readPublicKey),
			Buffer("seed", readSeed),
			Buffer("owner", readPublicKey),
			Account("account", 0),
		}},
		{11, "transferWithSeed", Plan{
			Buffer("lamports", readU64),
			Buffer("sourceSeed", readSeed),
			Buffer("sourceOwner", readPublicKey),
			Account("source", 0),
			Account("sourceBase", 1),
			Account("destination", 2),
		}},
		{12, "upgradeNonce", Plan{
			Account("nonceAccount", 0),
		}},
	})
}

// readSeed reads a u64 length-prefixed UTF-8 string.
func readSeed(data []byte, offset int) (interface{}, int, error) {
	n, next, err := layout.U64(data, offset)
	if err != nil {
		return nil, offset, err
	}
	if n > uint64(len(data)) {
		return nil, offset, fmt.Errorf("seed length %d: %w", n, layout.ErrTruncated)
	}
	b, next, err := layout.Blob(data, int(n), next)
	if err != nil {
		return nil, offset, err
	}
	return string(b), next, nil
}
