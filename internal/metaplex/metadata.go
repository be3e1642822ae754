package metaplex

import (
	"encoding/base64"
	"fmt"
	"strings"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// ProgramID is the token metadata program.
var ProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

const metadataSeed = "metadata"

// Metadata is the borsh layout of a token metadata account, up to is_mutable.
type Metadata struct {
	Key                 uint8
	UpdateAuthority     solana.PublicKey
	Mint                solana.PublicKey
	Data                Data
	PrimarySaleHappened bool
	IsMutable           bool
}

type Data struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             *[]Creator `bin:"optional"`
}

type Creator struct {
	Address  solana.PublicKey
	Verified bool
	Share    uint8
}

// MetadataAddress derives the metadata account address of mint.
func MetadataAddress(mint string) (string, error) {
	key, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return "", fmt.Errorf("mint %q: %w", mint, err)
	}
	addr, _, err := solana.FindProgramAddress([][]byte{
		[]byte(metadataSeed),
		ProgramID.Bytes(),
		key.Bytes(),
	}, ProgramID)
	if err != nil {
		return "", fmt.Errorf("derive metadata address for %s: %w", mint, err)
	}
	return addr.String(), nil
}

// Unpack decodes a metadata account. String fields have their zero padding removed.
func Unpack(data []byte) (Metadata, error) {
	var md Metadata
	if err := bin.NewBorshDecoder(data).Decode(&md); err != nil {
		return Metadata{}, fmt.Errorf("unpack metadata: %w", err)
	}
	md.Data.Name = trimPadding(md.Data.Name)
	md.Data.Symbol = trimPadding(md.Data.Symbol)
	md.Data.URI = trimPadding(md.Data.URI)
	return md, nil
}

// UnpackBase64 decodes the base64 data field of a getMultipleAccounts value.
func UnpackBase64(encoded string) (Metadata, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Metadata{}, fmt.Errorf("decode metadata base64: %w", err)
	}
	return Unpack(data)
}

func trimPadding(s string) string {
	return strings.TrimRight(s, "\x00")
}
