package publicvalues

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLayout(t *testing.T) {
	got := Encode(Outputs{Icr: 333_333, CollateralAmountUsd: 60_000})

	// 333_333 = 0x00051615, 60_000 = 0x0000ea60
	assert.Equal(t, []byte{0x15, 0x16, 0x05, 0x00, 0x60, 0xea, 0x00, 0x00}, got)
}

func TestRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 255, 256, 65_535, 333_333, 1 << 31, math.MaxUint32}

	for _, icr := range values {
		for _, usd := range values {
			in := Outputs{Icr: icr, CollateralAmountUsd: usd}
			out, err := Decode(Encode(in))
			require.NoError(t, err)
			assert.Equal(t, in, out)
		}
	}
}

func TestDecodeRejectsShortInput(t *testing.T) {
	full := Encode(Outputs{Icr: 7, CollateralAmountUsd: 9})

	for n := 0; n < Size; n++ {
		_, err := Decode(full[:n])
		assert.ErrorIs(t, err, ErrInvalidPublicValues, "length %d", n)
	}
	_, err := Decode(nil)
	assert.ErrorIs(t, err, ErrInvalidPublicValues)
}

func TestDecodeIgnoresBytesPastLayout(t *testing.T) {
	want := Outputs{Icr: 150, CollateralAmountUsd: 42}
	extended := append(Encode(want), 0xde, 0xad, 0xbe, 0xef)

	got, err := Decode(extended)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// changing trailing bytes never changes the result
	extended[9] = 0x00
	got, err = Decode(extended)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeDoesNotAliasInput(t *testing.T) {
	b := Encode(Outputs{Icr: 1, CollateralAmountUsd: 2})
	got, err := Decode(b)
	require.NoError(t, err)

	b[0] = 0xff
	assert.Equal(t, uint32(1), got.Icr)
}

func TestABIEncoding(t *testing.T) {
	in := Outputs{Icr: 333_333, CollateralAmountUsd: 60_000}

	packed, err := EncodeABI(in)
	require.NoError(t, err)
	require.Len(t, packed, 64)

	// right-aligned big endian words
	assert.Equal(t, []byte{0x00, 0x05, 0x16, 0x15}, packed[28:32])
	assert.Equal(t, []byte{0x00, 0x00, 0xea, 0x60}, packed[60:64])

	out, err := DecodeABI(packed)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeABIRejectsGarbage(t *testing.T) {
	_, err := DecodeABI([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidPublicValues)
}
