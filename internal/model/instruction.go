package model

// Instruction is a top-level or inner instruction of a transaction.
// ParentIndex is nil for top-level instructions.
type Instruction struct {
	TxSignature     string
	Index           int
	ParentIndex     *int
	Accounts        []string
	Data            *string
	Program         *string
	ProgramID       *string
	InstructionType *string
	Params          map[string]interface{}
}

// Clone returns a copy that shares no mutable state with i.
func (i Instruction) Clone() Instruction {
	out := i
	if i.Accounts != nil {
		out.Accounts = append([]string(nil), i.Accounts...)
	}
	if i.Params != nil {
		out.Params = make(map[string]interface{}, len(i.Params))
		for k, v := range i.Params {
			out.Params[k] = v
		}
	}
	return out
}
