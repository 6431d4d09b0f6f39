package domain

import (
	"errors"
	"fmt"
)

// Transport limits for one advertising payload.
const (
	// MaxFrameSize is the hard payload ceiling of the advertising channel.
	MaxFrameSize = 20

	// FrameHeaderSize is the (index, total) header.
	FrameHeaderSize = 2

	// MaxFramePayload is the number of ciphertext bytes one frame can carry.
	MaxFramePayload = MaxFrameSize - FrameHeaderSize
)

// ErrFrameInvalid is returned when bytes do not form a valid frame.
var ErrFrameInvalid = errors.New("frame: invalid")

// Frame is one fragment of a sample's ciphertext.
// Wire format: byte 0 index (0-based), byte 1 total, bytes 2..N payload.
type Frame struct {
	// Index is the position of this frame within its set.
	Index uint8

	// Total is the number of frames in the set.
	Total uint8

	// Payload is the ciphertext slice carried by this frame.
	Payload []byte
}

// Size returns the on-air size in bytes.
func (f Frame) Size() int {
	return FrameHeaderSize + len(f.Payload)
}

// MarshalBinary encodes the frame in wire format.
func (f Frame) MarshalBinary() ([]byte, error) {
	if len(f.Payload) == 0 || len(f.Payload) > MaxFramePayload {
		return nil, fmt.Errorf("%w: payload %d bytes", ErrFrameInvalid, len(f.Payload))
	}
	if f.Total == 0 || f.Index >= f.Total {
		return nil, fmt.Errorf("%w: index %d total %d", ErrFrameInvalid, f.Index, f.Total)
	}
	b := make([]byte, 0, f.Size())
	b = append(b, f.Index, f.Total)
	return append(b, f.Payload...), nil
}

// UnmarshalFrame decodes a frame from wire format. The payload is copied.
func UnmarshalFrame(b []byte) (Frame, error) {
	if len(b) <= FrameHeaderSize || len(b) > MaxFrameSize {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrFrameInvalid, len(b))
	}
	f := Frame{Index: b[0], Total: b[1]}
	if f.Total == 0 || f.Index >= f.Total {
		return Frame{}, fmt.Errorf("%w: index %d total %d", ErrFrameInvalid, f.Index, f.Total)
	}
	f.Payload = append([]byte(nil), b[FrameHeaderSize:]...)
	return f, nil
}

func (f Frame) String() string {
	return fmt.Sprintf("frame %d/%d %x", f.Index, f.Total, f.Payload)
}
