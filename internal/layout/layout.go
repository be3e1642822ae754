package layout

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// ErrTruncated is returned when a read would run past the end of the buffer.
var ErrTruncated = errors.New("truncated data")

// PublicKeyLength is the byte width of an encoded public key.
const PublicKeyLength = 32

// MissingTimestamp is substituted for optional trailing timestamps that are absent.
const MissingTimestamp = int64(math.MaxInt64)

// Reader consumes one value from data at offset and returns the next offset.
type Reader func(data []byte, offset int) (interface{}, int, error)

// As adapts a typed read function into a Reader.
func As[T any](fn func(data []byte, offset int) (T, int, error)) Reader {
	return func(data []byte, offset int) (interface{}, int, error) {
		v, next, err := fn(data, offset)
		if err != nil {
			return nil, offset, err
		}
		return v, next, nil
	}
}

// Blob returns n bytes starting at offset.
func Blob(data []byte, n int, offset int) ([]byte, int, error) {
	if n < 0 || offset < 0 {
		return nil, offset, fmt.Errorf("invalid blob read n=%d offset=%d", n, offset)
	}
	end := offset + n
	if end > len(data) {
		return nil, offset, fmt.Errorf("read %d bytes at offset %d of %d: %w", n, offset, len(data), ErrTruncated)
	}
	return data[offset:end], end, nil
}

// Uint reads an unsigned little-endian integer of n bytes (1..8).
func Uint(data []byte, n int, offset int) (uint64, int, error) {
	if n < 1 || n > 8 {
		return 0, offset, fmt.Errorf("unsupported uint width %d", n)
	}
	b, next, err := Blob(data, n, offset)
	if err != nil {
		return 0, offset, err
	}
	var buf [8]byte
	copy(buf[:], b)
	return binary.LittleEndian.Uint64(buf[:]), next, nil
}

// Sint reads a two's complement little-endian integer of n bytes (1..8).
func Sint(data []byte, n int, offset int) (int64, int, error) {
	v, next, err := Uint(data, n, offset)
	if err != nil {
		return 0, offset, err
	}
	shift := uint(64 - 8*n)
	return int64(v<<shift) >> shift, next, nil
}

// OptionalSint reads a signed integer only when the payload has exactly wantLen bytes,
// otherwise it returns MissingTimestamp without advancing.
func OptionalSint(data []byte, n int, offset int, wantLen int) (int64, int, error) {
	if len(data) != wantLen {
		return MissingTimestamp, offset, nil
	}
	return Sint(data, n, offset)
}

func U8(data []byte, offset int) (uint8, int, error) {
	v, next, err := Uint(data, 1, offset)
	return uint8(v), next, err
}

func U16(data []byte, offset int) (uint16, int, error) {
	v, next, err := Uint(data, 2, offset)
	return uint16(v), next, err
}

func U32(data []byte, offset int) (uint32, int, error) {
	v, next, err := Uint(data, 4, offset)
	return uint32(v), next, err
}

func U64(data []byte, offset int) (uint64, int, error) {
	return Uint(data, 8, offset)
}

// U128 reads a 16 byte little-endian unsigned integer.
func U128(data []byte, offset int) (*big.Int, int, error) {
	b, next, err := Blob(data, 16, offset)
	if err != nil {
		return nil, offset, err
	}
	be := make([]byte, len(b))
	for i := range b {
		be[len(b)-1-i] = b[i]
	}
	return new(big.Int).SetBytes(be), next, nil
}

// Split64 reads a 64-bit value stored as a low and a high 32-bit little-endian half.
func Split64(data []byte, offset int) (uint64, int, error) {
	lo, next, err := U32(data, offset)
	if err != nil {
		return 0, offset, err
	}
	hi, next, err := U32(data, next)
	if err != nil {
		return 0, offset, err
	}
	return uint64(hi)<<32 | uint64(lo), next, nil
}

func Bool(data []byte, offset int) (bool, int, error) {
	v, next, err := U8(data, offset)
	return v != 0, next, err
}

// PublicKey reads 32 bytes and returns their base58 text form.
func PublicKey(data []byte, offset int) (string, int, error) {
	b, next, err := Blob(data, PublicKeyLength, offset)
	if err != nil {
		return "", offset, err
	}
	return solana.PublicKeyFromBytes(b).String(), next, nil
}

// Repeat reads n consecutive items, folding the cursor through each call.
func Repeat[T any](data []byte, n int, offset int, item func(data []byte, offset int) (T, int, error)) ([]T, int, error) {
	if n < 0 {
		return nil, offset, fmt.Errorf("invalid repeat count %d", n)
	}
	out := make([]T, 0, n)
	next := offset
	for i := 0; i < n; i++ {
		v, after, err := item(data, next)
		if err != nil {
			return out, offset, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, v)
		next = after
	}
	return out, next, nil
}
