package decoder

import (
	"fmt"

	"github.com/mr-tron/base58"

	"solanaetl/internal/layout"
	"solanaetl/internal/model"
)

// Unspecified is the instruction type assigned to discriminants without a plan.
const Unspecified = "unspecified"

// Decoder decodes the binary payload of one program's instructions.
type Decoder interface {
	Name() string
	Discriminant(data []byte, offset int) (uint64, int, error)
	InstructionName(discriminant uint64) (string, bool)
	Plan(discriminant uint64) (Plan, bool)
	Decode(ix model.Instruction) (Result, error)
}

// Result is a decoded instruction type with its params. Remaining counts payload
// bytes left unread after the last buffer field.
type Result struct {
	InstructionType string
	Params          map[string]interface{}
	Remaining       int
}

// DecodeError records where a decode stopped.
type DecodeError struct {
	Signature   string
	Program     string
	Instruction string
	Field       string
	Offset      int
	Err         error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("decode %s.%s field %s at offset %d (tx %s): %v", e.Program, e.Instruction, e.Field, e.Offset, e.Signature, e.Err)
	}
	return fmt.Sprintf("decode %s instruction (tx %s): %v", e.Program, e.Signature, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Variant binds a discriminant to an instruction name and its field plan.
type Variant struct {
	Discriminant uint64
	Name         string
	Plan         Plan
}

// Program is a table-driven Decoder.
type Program struct {
	name          string
	initialOffset int
	discriminant  func(data []byte, offset int) (uint64, int, error)
	variants      map[uint64]Variant
}

// NewProgram builds a decoder that skips initialOffset bytes, reads the
// discriminant, then runs the matching variant's plan.
func NewProgram(name string, initialOffset int, discriminant func(data []byte, offset int) (uint64, int, error), variants []Variant) *Program {
	byID := make(map[uint64]Variant, len(variants))
	for _, v := range variants {
		byID[v.Discriminant] = v
	}
	return &Program{
		name:          name,
		initialOffset: initialOffset,
		discriminant:  discriminant,
		variants:      byID,
	}
}

func (p *Program) Name() string { return p.name }

func (p *Program) Discriminant(data []byte, offset int) (uint64, int, error) {
	return p.discriminant(data, offset)
}

func (p *Program) InstructionName(discriminant uint64) (string, bool) {
	v, ok := p.variants[discriminant]
	if !ok {
		return "", false
	}
	return v.Name, true
}

func (p *Program) Plan(discriminant uint64) (Plan, bool) {
	v, ok := p.variants[discriminant]
	if !ok {
		return nil, false
	}
	return v.Plan, true
}

// Decode runs the plan for ix. A failed base58 decode or discriminant read returns
// an empty Result. A failed field read returns the params decoded so far.
func (p *Program) Decode(ix model.Instruction) (Result, error) {
	if ix.Data == nil {
		return unspecified(), nil
	}
	raw, err := base58.Decode(*ix.Data)
	if err != nil {
		return Result{}, &DecodeError{Signature: ix.TxSignature, Program: p.name, Err: fmt.Errorf("base58: %w", err)}
	}
	if len(raw) < p.initialOffset {
		return Result{}, &DecodeError{Signature: ix.TxSignature, Program: p.name, Err: layout.ErrTruncated}
	}
	data := raw[p.initialOffset:]

	discriminant, offset, err := p.discriminant(data, 0)
	if err != nil {
		return Result{}, &DecodeError{Signature: ix.TxSignature, Program: p.name, Err: fmt.Errorf("discriminant: %w", err)}
	}
	variant, ok := p.variants[discriminant]
	if !ok {
		return unspecified(), nil
	}

	params := make(map[string]interface{}, len(variant.Plan))
	for _, f := range variant.Plan {
		switch f.Kind {
		case BufferField:
			v, next, err := f.Read(data, offset)
			if err != nil {
				res := Result{InstructionType: variant.Name, Params: params, Remaining: len(data) - offset}
				return res, &DecodeError{
					Signature:   ix.TxSignature,
					Program:     p.name,
					Instruction: variant.Name,
					Field:       f.Name,
					Offset:      offset,
					Err:         err,
				}
			}
			params[f.Name] = v
			offset = next
		case AccountField:
			params[f.Name] = f.Resolve(ix.Accounts)
		case ConstantField:
			params[f.Name] = f.Value
		}
	}
	return Result{InstructionType: variant.Name, Params: params, Remaining: len(data) - offset}, nil
}

func unspecified() Result {
	return Result{InstructionType: Unspecified, Params: map[string]interface{}{}}
}

func discriminantU8(data []byte, offset int) (uint64, int, error) {
	v, next, err := layout.U8(data, offset)
	return uint64(v), next, err
}

func discriminantU32(data []byte, offset int) (uint64, int, error) {
	v, next, err := layout.U32(data, offset)
	return uint64(v), next, err
}
