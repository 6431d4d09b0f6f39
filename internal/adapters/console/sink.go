// Package console is a dry-run transport sink that prints frames instead of
// broadcasting them.
package console

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"github.com/bft-labs/thermoship/internal/domain"
	"github.com/bft-labs/thermoship/internal/ports"
)

// Sink writes one line per frame: "<index>/<total> <wire hex>".
type Sink struct {
	w      io.Writer
	logger ports.Logger

	mu      sync.Mutex
	started bool
	sent    int
}

// NewSink creates a console sink writing to w.
func NewSink(w io.Writer, logger ports.Logger) *Sink {
	return &Sink{w: w, logger: logger}
}

func (s *Sink) Init(ctx context.Context) error { return nil }

func (s *Sink) StartAdvertising(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	return nil
}

func (s *Sink) Send(ctx context.Context, frame domain.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return domain.NewSinkError(domain.SinkNotAdvertising, nil)
	}
	data, err := frame.MarshalBinary()
	if err != nil {
		return domain.NewSinkError(domain.SinkHardwareFault, err)
	}
	if _, err := fmt.Fprintf(s.w, "%d/%d %s\n", frame.Index, frame.Total, hex.EncodeToString(data)); err != nil {
		return domain.NewSinkError(domain.SinkHardwareFault, err)
	}
	s.sent++
	s.logger.Debug("frame written", ports.Int("index", int(frame.Index)), ports.Int("size", len(data)))
	return nil
}

// Sent returns the number of frames written.
func (s *Sink) Sent() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	return nil
}
