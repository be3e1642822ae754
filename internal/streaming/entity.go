package streaming

import (
	"fmt"
	"strings"

	"solanaetl/internal/model"
)

// EntitySet is the set of entity types a stream emits.
type EntitySet map[string]bool

// ParseEntityTypes parses a comma-separated list of entity types. An empty
// list selects every type.
func ParseEntityTypes(raw string) (EntitySet, error) {
	set := make(EntitySet)
	for _, part := range strings.Split(raw, ",") {
		typ := strings.TrimSpace(part)
		if typ == "" {
			continue
		}
		if _, ok := model.Columns[typ]; !ok {
			return nil, fmt.Errorf("%s is not an available entity type, supply a comma separated list of types from %s",
				typ, strings.Join(model.EntityTypes, ","))
		}
		set[typ] = true
	}
	if len(set) == 0 {
		for _, typ := range model.EntityTypes {
			set[typ] = true
		}
	}
	return set, nil
}

// Emits reports whether items of typ are part of the output.
func (s EntitySet) Emits(typ string) bool { return s[typ] }

// Needs reports whether typ must be computed, either because it is emitted
// or because an emitted type is derived from it. Tokens come from accounts,
// accounts and token transfers from instructions, instructions from blocks.
func (s EntitySet) Needs(typ string) bool {
	switch typ {
	case model.TypeBlock:
		return true
	case model.TypeTransaction:
		return s[typ] || s.Needs(model.TypeInstruction)
	case model.TypeInstruction:
		return s[typ] || s.Needs(model.TypeAccount) || s[model.TypeTokenTransfer]
	case model.TypeAccount:
		return s[typ] || s[model.TypeToken]
	default:
		return s[typ]
	}
}

// String lists the set in dependency order.
func (s EntitySet) String() string {
	var out []string
	for _, typ := range model.EntityTypes {
		if s[typ] {
			out = append(out, typ)
		}
	}
	return strings.Join(out, ",")
}
