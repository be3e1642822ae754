package decoder

import (
	"sort"

	"solanaetl/internal/layout"
)

// FieldKind selects how a plan entry produces its value.
type FieldKind int

const (
	// BufferField consumes bytes from the instruction data cursor.
	BufferField FieldKind = iota
	// AccountField resolves a value from the instruction's account list.
	AccountField
	// ConstantField supplies a fixed value.
	ConstantField
)

func (k FieldKind) String() string {
	switch k {
	case BufferField:
		return "buffer"
	case AccountField:
		return "account"
	case ConstantField:
		return "constant"
	default:
		return "unknown"
	}
}

// Field is one named entry of a decoding plan.
type Field struct {
	Name    string
	Kind    FieldKind
	Read    layout.Reader
	Resolve func(accounts []string) interface{}
	Value   interface{}
}

// Plan is an ordered list of fields. Buffer fields are read in declaration order.
type Plan []Field

// Buffer declares a field read from the data cursor.
func Buffer(name string, read layout.Reader) Field {
	return Field{Name: name, Kind: BufferField, Read: read}
}

// Account declares a field taken from the account at a fixed position.
func Account(name string, index int) Field {
	return Accounts(name, func(accounts []string) interface{} {
		return accountAt(accounts, index)
	})
}

// AccountFromEnd declares a field taken from the account back positions from the end.
func AccountFromEnd(name string, back int) Field {
	return Accounts(name, func(accounts []string) interface{} {
		return accountAt(accounts, len(accounts)-back)
	})
}

// Accounts declares a field computed from the whole account list.
func Accounts(name string, resolve func(accounts []string) interface{}) Field {
	return Field{Name: name, Kind: AccountField, Resolve: resolve}
}

// Constant declares a field with a fixed value.
func Constant(name string, v interface{}) Field {
	return Field{Name: name, Kind: ConstantField, Value: v}
}

// SortedUnique returns the distinct accounts in lexical order.
func SortedUnique(accounts []string) interface{} {
	seen := make(map[string]struct{}, len(accounts))
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func accountAt(accounts []string, index int) interface{} {
	if index < 0 || index >= len(accounts) {
		return nil
	}
	return accounts[index]
}

// Shared buffer readers.
var (
	readU8        = layout.As(layout.U8)
	readU16       = layout.As(layout.U16)
	readU32       = layout.As(layout.U32)
	readU64       = layout.As(layout.U64)
	readU128      = layout.As(layout.U128)
	readSplit64   = layout.As(layout.Split64)
	readBool      = layout.As(layout.Bool)
	readPublicKey = layout.As(layout.PublicKey)
)

func readSint(n int) layout.Reader {
	return func(data []byte, offset int) (interface{}, int, error) {
		v, next, err := layout.Sint(data, n, offset)
		if err != nil {
			return nil, offset, err
		}
		return v, next, nil
	}
}
