package mapper

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrMissingField is returned when a structurally required key is absent.
var ErrMissingField = errors.New("missing required field")

func missing(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func rawOrNil(raw json.RawMessage) interface{} {
	if isNull(raw) {
		return nil
	}
	return string(raw)
}

func val[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func ptr[T any](v T) *T { return &v }

// toJSON encodes v as JSON text. Values passed here are plain data and always encode.
func toJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// decodeJSON unmarshals a JSON column. Strings and byte slices are parsed as JSON
// text; any other non-nil value is re-encoded first.
func decodeJSON(v interface{}, dst interface{}) error {
	var raw []byte
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		raw = []byte(t)
	case []byte:
		raw = t
	case json.RawMessage:
		raw = t
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		raw = b
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dst)
}

func rawColumn(v interface{}) (json.RawMessage, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		if t == "" || t == "null" {
			return nil, nil
		}
		if !json.Valid([]byte(t)) {
			return nil, fmt.Errorf("invalid json %q", t)
		}
		return json.RawMessage(t), nil
	case json.RawMessage:
		if isNull(t) {
			return nil, nil
		}
		return t, nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return rawColumn(string(b))
	}
}

func optString(v interface{}) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return &t
	case *string:
		return t
	default:
		s := fmt.Sprint(t)
		return &s
	}
}

func optUint64(v interface{}) (*uint64, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case uint64:
		return &t, nil
	case uint32:
		return ptr(uint64(t)), nil
	case uint16:
		return ptr(uint64(t)), nil
	case uint8:
		return ptr(uint64(t)), nil
	case int:
		if t < 0 {
			return nil, fmt.Errorf("negative value %d", t)
		}
		return ptr(uint64(t)), nil
	case int64:
		if t < 0 {
			return nil, fmt.Errorf("negative value %d", t)
		}
		return ptr(uint64(t)), nil
	case float64:
		if t < 0 || t != math.Trunc(t) || t > math.MaxUint64 {
			return nil, fmt.Errorf("not an unsigned integer: %v", t)
		}
		return ptr(uint64(t)), nil
	case json.Number:
		return optUint64(string(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, err
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("unsupported unsigned value %T", v)
	}
}

func optInt64(v interface{}) (*int64, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case int64:
		return &t, nil
	case int:
		return ptr(int64(t)), nil
	case int32:
		return ptr(int64(t)), nil
	case uint8:
		return ptr(int64(t)), nil
	case uint16:
		return ptr(int64(t)), nil
	case uint32:
		return ptr(int64(t)), nil
	case uint64:
		if t > math.MaxInt64 {
			return nil, fmt.Errorf("value %d overflows int64", t)
		}
		return ptr(int64(t)), nil
	case float64:
		if t != math.Trunc(t) {
			return nil, fmt.Errorf("not an integer: %v", t)
		}
		return ptr(int64(t)), nil
	case json.Number:
		return optInt64(string(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}
		return &n, nil
	default:
		return nil, fmt.Errorf("unsupported integer value %T", v)
	}
}

func optInt(v interface{}) (*int, error) {
	n, err := optInt64(v)
	if err != nil || n == nil {
		return nil, err
	}
	if *n > math.MaxInt32 || *n < math.MinInt32 {
		return nil, fmt.Errorf("value %d out of range", *n)
	}
	return ptr(int(*n)), nil
}

func optBool(v interface{}) (*bool, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return &t, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, err
		}
		return &b, nil
	default:
		return nil, fmt.Errorf("unsupported bool value %T", v)
	}
}

// fieldReader collects the first conversion error while reading item columns.
type fieldReader struct {
	item map[string]interface{}
	err  error
}

func (r *fieldReader) fail(key string, err error) {
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("column %s: %w", key, err)
	}
}

func (r *fieldReader) str(key string) *string { return optString(r.item[key]) }

func (r *fieldReader) u64(key string) *uint64 {
	v, err := optUint64(r.item[key])
	r.fail(key, err)
	return v
}

func (r *fieldReader) i64(key string) *int64 {
	v, err := optInt64(r.item[key])
	r.fail(key, err)
	return v
}

func (r *fieldReader) integer(key string) *int {
	v, err := optInt(r.item[key])
	r.fail(key, err)
	return v
}

func (r *fieldReader) boolean(key string) *bool {
	v, err := optBool(r.item[key])
	r.fail(key, err)
	return v
}

func (r *fieldReader) decode(key string, dst interface{}) {
	r.fail(key, decodeJSON(r.item[key], dst))
}

func (r *fieldReader) raw(key string) json.RawMessage {
	v, err := rawColumn(r.item[key])
	r.fail(key, err)
	return v
}
