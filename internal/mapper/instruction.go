package mapper

import (
	"bytes"
	"encoding/json"
	"fmt"

	"solanaetl/internal/model"
)

// InstructionFromJSON maps one instruction object. keys is the transaction's
// account list, used to resolve index references of the raw encoding.
func InstructionFromJSON(raw json.RawMessage, signature string, index int, parent *int, keys []string) (model.Instruction, error) {
	var ri rpcInstruction
	if err := json.Unmarshal(raw, &ri); err != nil {
		return model.Instruction{}, fmt.Errorf("decode instruction: %w", err)
	}

	ix := model.Instruction{
		TxSignature: signature,
		Index:       index,
		ParentIndex: parent,
		Data:        ri.Data,
		Program:     ri.Program,
		ProgramID:   ri.ProgramID,
	}

	if ix.ProgramID == nil && ri.ProgramIDIndex != nil {
		key, err := resolveKey(keys, *ri.ProgramIDIndex)
		if err != nil {
			return model.Instruction{}, fmt.Errorf("programIdIndex: %w", err)
		}
		ix.ProgramID = &key
	}

	if ri.Accounts != nil {
		ix.Accounts = make([]string, 0, len(ri.Accounts))
		for i, rawAcc := range ri.Accounts {
			var key string
			if err := json.Unmarshal(rawAcc, &key); err == nil {
				ix.Accounts = append(ix.Accounts, key)
				continue
			}
			var idx int
			if err := json.Unmarshal(rawAcc, &idx); err != nil {
				return model.Instruction{}, fmt.Errorf("account %d: %w", i, err)
			}
			key, err := resolveKey(keys, idx)
			if err != nil {
				return model.Instruction{}, fmt.Errorf("account %d: %w", i, err)
			}
			ix.Accounts = append(ix.Accounts, key)
		}
	}

	if !isNull(ri.Parsed) && bytes.HasPrefix(bytes.TrimSpace(ri.Parsed), []byte("{")) {
		var p rpcParsed
		if err := json.Unmarshal(ri.Parsed, &p); err != nil {
			return model.Instruction{}, fmt.Errorf("decode parsed: %w", err)
		}
		ix.InstructionType = p.Type
		if !isNull(p.Info) {
			if err := decodeJSON(json.RawMessage(p.Info), &ix.Params); err != nil {
				return model.Instruction{}, fmt.Errorf("decode parsed info: %w", err)
			}
		}
	}
	return ix, nil
}

func resolveKey(keys []string, idx int) (string, error) {
	if idx < 0 || idx >= len(keys) {
		return "", fmt.Errorf("account index %d out of range (%d accounts)", idx, len(keys))
	}
	return keys[idx], nil
}

// InstructionItem flattens ix for export.
func InstructionItem(ix model.Instruction) model.Item {
	return model.Item{
		"type":             model.TypeInstruction,
		"tx_signature":     ix.TxSignature,
		"index":            ix.Index,
		"parent_index":     val(ix.ParentIndex),
		"accounts":         toJSON(ix.Accounts),
		"data":             val(ix.Data),
		"program":          val(ix.Program),
		"program_id":       val(ix.ProgramID),
		"instruction_type": val(ix.InstructionType),
		"params":           toJSON(ix.Params),
	}
}

// InstructionFromItem rebuilds an instruction from its exported form.
func InstructionFromItem(item model.Item) (model.Instruction, error) {
	r := fieldReader{item: item}
	sig := r.str("tx_signature")
	if sig == nil {
		return model.Instruction{}, missing("tx_signature")
	}
	ix := model.Instruction{
		TxSignature:     *sig,
		ParentIndex:     r.integer("parent_index"),
		Data:            r.str("data"),
		Program:         r.str("program"),
		ProgramID:       r.str("program_id"),
		InstructionType: r.str("instruction_type"),
	}
	if idx := r.integer("index"); idx != nil {
		ix.Index = *idx
	}
	r.decode("accounts", &ix.Accounts)
	r.decode("params", &ix.Params)
	if r.err != nil {
		return model.Instruction{}, r.err
	}
	return ix, nil
}
