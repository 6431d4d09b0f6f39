package codec

import (
	"errors"
	"fmt"
	"math"

	"github.com/bft-labs/thermoship/internal/domain"
)

var (
	ErrEmptyMessage    = errors.New("codec: empty message")
	ErrPayloadSize     = errors.New("codec: max payload out of range")
	ErrTooManyFrames   = errors.New("codec: message needs more than 255 frames")
	ErrIncompleteSet   = errors.New("codec: incomplete frame set")
	ErrInconsistentSet = errors.New("codec: inconsistent frame set")
)

// FrameSet is the lazy, restartable frame sequence of one message.
// Frames are cut on demand from the message; Reset replays the same set
// without touching the cipher again.
type FrameSet struct {
	msg        []byte
	maxPayload int
	total      int
	next       int
}

// Fragment splits msg into frames carrying at most maxPayload bytes each.
// maxPayload must be within 1..domain.MaxFramePayload.
func Fragment(msg []byte, maxPayload int) (*FrameSet, error) {
	if len(msg) == 0 {
		return nil, ErrEmptyMessage
	}
	if maxPayload < 1 || maxPayload > domain.MaxFramePayload {
		return nil, fmt.Errorf("%w: %d", ErrPayloadSize, maxPayload)
	}
	total := (len(msg) + maxPayload - 1) / maxPayload
	if total > math.MaxUint8 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooManyFrames, len(msg))
	}
	return &FrameSet{
		msg:        append([]byte(nil), msg...),
		maxPayload: maxPayload,
		total:      total,
	}, nil
}

// Len returns the number of frames in the set.
func (fs *FrameSet) Len() int { return fs.total }

// Bytes returns the total payload size.
func (fs *FrameSet) Bytes() int { return len(fs.msg) }

// Next returns the next frame in ascending index order.
// It returns false once the set is exhausted.
func (fs *FrameSet) Next() (domain.Frame, bool) {
	if fs.next >= fs.total {
		return domain.Frame{}, false
	}
	f := fs.frame(fs.next)
	fs.next++
	return f, true
}

// Reset restarts the sequence from index 0.
func (fs *FrameSet) Reset() { fs.next = 0 }

// All returns every frame of the set. It does not move the Next cursor.
func (fs *FrameSet) All() []domain.Frame {
	out := make([]domain.Frame, fs.total)
	for i := range out {
		out[i] = fs.frame(i)
	}
	return out
}

func (fs *FrameSet) frame(i int) domain.Frame {
	start := i * fs.maxPayload
	end := start + fs.maxPayload
	if end > len(fs.msg) {
		end = len(fs.msg)
	}
	return domain.Frame{
		Index:   uint8(i),
		Total:   uint8(fs.total),
		Payload: fs.msg[start:end:end],
	}
}

// Reassemble joins a complete frame set received in any order.
func Reassemble(frames []domain.Frame) ([]byte, error) {
	if len(frames) == 0 {
		return nil, ErrIncompleteSet
	}
	total := int(frames[0].Total)
	if total == 0 {
		return nil, fmt.Errorf("%w: zero total", ErrInconsistentSet)
	}
	slots := make([][]byte, total)
	for _, f := range frames {
		switch {
		case int(f.Total) != total:
			return nil, fmt.Errorf("%w: total %d != %d", ErrInconsistentSet, f.Total, total)
		case int(f.Index) >= total:
			return nil, fmt.Errorf("%w: index %d of %d", ErrInconsistentSet, f.Index, total)
		case slots[f.Index] != nil:
			return nil, fmt.Errorf("%w: duplicate index %d", ErrInconsistentSet, f.Index)
		}
		slots[f.Index] = f.Payload
	}
	var msg []byte
	for i, p := range slots {
		if p == nil {
			return nil, fmt.Errorf("%w: missing index %d", ErrIncompleteSet, i)
		}
		msg = append(msg, p...)
	}
	return msg, nil
}
