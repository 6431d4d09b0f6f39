package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/bft-labs/thermoship/internal/domain"
)

const sampleSize = 16

// EncodeSample serializes s into a plaintext block.
func EncodeSample(s domain.Sample) []byte {
	b := make([]byte, sampleSize)
	binary.LittleEndian.PutUint64(b[0:8], math.Float64bits(s.TemperatureCelsius))
	binary.LittleEndian.PutUint64(b[8:16], uint64(s.TimestampMS))
	return Pad(b)
}

// DecodeSample reverses EncodeSample. Padding after the first 16 bytes is ignored.
func DecodeSample(b []byte) (domain.Sample, error) {
	if len(b) < sampleSize {
		return domain.Sample{}, fmt.Errorf("codec: sample needs %d bytes, got %d", sampleSize, len(b))
	}
	return domain.Sample{
		TemperatureCelsius: math.Float64frombits(binary.LittleEndian.Uint64(b[0:8])),
		TimestampMS:        int64(binary.LittleEndian.Uint64(b[8:16])),
	}, nil
}

// Pad zero-pads b to the next multiple of the cipher block size.
// An empty input becomes one zero block.
func Pad(b []byte) []byte {
	n := len(b)
	if n > 0 && n%domain.BlockSize == 0 {
		return b
	}
	padded := make([]byte, (n/domain.BlockSize+1)*domain.BlockSize)
	copy(padded, b)
	return padded
}
