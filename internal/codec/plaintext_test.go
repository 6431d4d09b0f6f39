package codec

import (
	"encoding/hex"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/thermoship/internal/domain"
)

func TestEncodeSample_PinnedLayout(t *testing.T) {
	b := EncodeSample(domain.Sample{TemperatureCelsius: 23.5, TimestampMS: 1000})
	assert.Equal(t, "0000000000803740e803000000000000", hex.EncodeToString(b))
}

func TestEncodeSample_BlockMultiple(t *testing.T) {
	samples := []domain.Sample{
		{},
		{TemperatureCelsius: -40, TimestampMS: -1},
		{TemperatureCelsius: 125.0625, TimestampMS: math.MaxInt64},
		{TemperatureCelsius: math.NaN(), TimestampMS: 1},
		{TemperatureCelsius: math.Inf(-1), TimestampMS: 1700000000000},
	}
	for _, s := range samples {
		b := EncodeSample(s)
		require.NotEmpty(t, b)
		assert.Zero(t, len(b)%domain.BlockSize, "len=%d", len(b))
	}
}

func TestDecodeSample(t *testing.T) {
	in := domain.Sample{TemperatureCelsius: -12.25, TimestampMS: 1712345678901}
	out, err := DecodeSample(EncodeSample(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeSample(make([]byte, 15))
	assert.Error(t, err)
}

func TestPad(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{0, 16},
		{1, 16},
		{15, 16},
		{16, 16},
		{17, 32},
		{33, 48},
	}
	for _, tt := range tests {
		in := make([]byte, tt.in)
		for i := range in {
			in[i] = 0xff
		}
		got := Pad(in)
		require.Len(t, got, tt.want)
		assert.Equal(t, in, got[:tt.in])
		for _, c := range got[tt.in:] {
			assert.Zero(t, c)
		}
	}
}
