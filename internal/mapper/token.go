package mapper

import (
	"solanaetl/internal/metaplex"
	"solanaetl/internal/model"
)

// TokenType classifies a mint by its decimals.
func TokenType(decimals int) string {
	if decimals == 0 {
		return model.TokenTypeNFT
	}
	return model.TokenTypeSPL
}

// TokenFromMetadata joins a mint's metadata account into a token record.
func TokenFromMetadata(md metaplex.Metadata, tokenType string, txSignature *string) model.Token {
	t := model.Token{
		TxSignature:          txSignature,
		TokenType:            tokenType,
		Mint:                 md.Mint.String(),
		UpdateAuthority:      md.UpdateAuthority.String(),
		Name:                 md.Data.Name,
		Symbol:               md.Data.Symbol,
		URI:                  md.Data.URI,
		SellerFeeBasisPoints: md.Data.SellerFeeBasisPoints,
		Creators:             []model.Creator{},
		PrimarySaleHappened:  md.PrimarySaleHappened,
		IsMutable:            md.IsMutable,
	}
	if md.Data.Creators != nil {
		for _, c := range *md.Data.Creators {
			t.Creators = append(t.Creators, model.Creator{
				Address:  c.Address.String(),
				Verified: c.Verified,
				Share:    c.Share,
			})
		}
	}
	return t
}

// TokenItem flattens t for export.
func TokenItem(t model.Token) model.Item {
	return model.Item{
		"type":                    model.TypeToken,
		"tx_signature":            val(t.TxSignature),
		"token_type":              t.TokenType,
		"mint":                    t.Mint,
		"update_authority":        t.UpdateAuthority,
		"name":                    t.Name,
		"symbol":                  t.Symbol,
		"uri":                     t.URI,
		"seller_fee_basis_points": t.SellerFeeBasisPoints,
		"creators":                toJSON(t.Creators),
		"primary_sale_happened":   t.PrimarySaleHappened,
		"is_mutable":              t.IsMutable,
	}
}

// TokenFromItem rebuilds a token from its exported form.
func TokenFromItem(item model.Item) (model.Token, error) {
	r := fieldReader{item: item}
	mint := r.str("mint")
	if mint == nil {
		return model.Token{}, missing("mint")
	}
	t := model.Token{
		TxSignature:     r.str("tx_signature"),
		Mint:            *mint,
		TokenType:       deref(r.str("token_type")),
		UpdateAuthority: deref(r.str("update_authority")),
		Name:            deref(r.str("name")),
		Symbol:          deref(r.str("symbol")),
		URI:             deref(r.str("uri")),
	}
	if fee := r.u64("seller_fee_basis_points"); fee != nil {
		t.SellerFeeBasisPoints = uint16(*fee)
	}
	if b := r.boolean("primary_sale_happened"); b != nil {
		t.PrimarySaleHappened = *b
	}
	if b := r.boolean("is_mutable"); b != nil {
		t.IsMutable = *b
	}
	r.decode("creators", &t.Creators)
	if r.err != nil {
		return model.Token{}, r.err
	}
	return t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
