package layout

import (
	"encoding/binary"
	"errors"
	"math"
	"math/big"
	"testing"
	"testing/quick"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnsignedRoundTrip(t *testing.T) {
	check := func(prefix []byte, x uint64) bool {
		buf := append([]byte{}, prefix...)
		buf = binary.LittleEndian.AppendUint64(buf, x)
		got, next, err := U64(buf, len(prefix))
		return err == nil && got == x && next == len(prefix)+8
	}
	require.NoError(t, quick.Check(check, nil))

	check32 := func(x uint32) bool {
		buf := binary.LittleEndian.AppendUint32(nil, x)
		got, next, err := U32(buf, 0)
		return err == nil && got == x && next == 4
	}
	require.NoError(t, quick.Check(check32, nil))

	check16 := func(x uint16) bool {
		buf := binary.LittleEndian.AppendUint16(nil, x)
		got, next, err := U16(buf, 0)
		return err == nil && got == x && next == 2
	}
	require.NoError(t, quick.Check(check16, nil))

	check8 := func(x uint8) bool {
		got, next, err := U8([]byte{x}, 0)
		return err == nil && got == x && next == 1
	}
	require.NoError(t, quick.Check(check8, nil))
}

func TestSignedRoundTrip(t *testing.T) {
	check := func(x int64) bool {
		buf := binary.LittleEndian.AppendUint64(nil, uint64(x))
		got, next, err := Sint(buf, 8, 0)
		return err == nil && got == x && next == 8
	}
	require.NoError(t, quick.Check(check, nil))

	got, next, err := Sint([]byte{0xfe, 0xff}, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), got)
	assert.Equal(t, 2, next)
}

func TestU128(t *testing.T) {
	want, _ := new(big.Int).SetString("170141183460469231731687303715884105727", 10)
	buf := make([]byte, 16)
	for i := 0; i < 15; i++ {
		buf[i] = 0xff
	}
	buf[15] = 0x7f

	got, next, err := U128(append([]byte{0x01}, buf...), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, want.Cmp(got))
	assert.Equal(t, 17, next)
}

func TestSplit64MatchesU64(t *testing.T) {
	check := func(x uint64) bool {
		buf := binary.LittleEndian.AppendUint64(nil, x)
		split, n1, err1 := Split64(buf, 0)
		plain, n2, err2 := U64(buf, 0)
		return err1 == nil && err2 == nil && split == plain && n1 == n2
	}
	require.NoError(t, quick.Check(check, nil))
}

func TestTruncated(t *testing.T) {
	_, next, err := U64([]byte{1, 2, 3}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTruncated))
	assert.Equal(t, 0, next)

	_, _, err = U32([]byte{1, 2, 3, 4}, 1)
	assert.ErrorIs(t, err, ErrTruncated)

	_, _, err = PublicKey(make([]byte, 31), 0)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestOptionalSint(t *testing.T) {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint64(buf[4:], uint64(1700000000))

	got, next, err := OptionalSint(buf, 8, 4, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), got)
	assert.Equal(t, 12, next)

	got, next, err = OptionalSint(buf[:4], 8, 4, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got)
	assert.Equal(t, 4, next)
}

func TestPublicKey(t *testing.T) {
	key := solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	buf := append([]byte{9}, key.Bytes()...)

	got, next, err := PublicKey(buf, 1)
	require.NoError(t, err)
	assert.Equal(t, key.String(), got)
	assert.Equal(t, 33, next)
}

func TestRepeat(t *testing.T) {
	buf := []byte{0xaa}
	for i := uint64(1); i <= 3; i++ {
		buf = binary.LittleEndian.AppendUint64(buf, i*10)
	}

	got, next, err := Repeat(buf, 3, 1, U64)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 20, 30}, got)
	assert.Equal(t, 25, next)

	_, _, err = Repeat(buf, 4, 1, U64)
	assert.ErrorIs(t, err, ErrTruncated)
}
