package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/thermoship/internal/domain"
	"github.com/bft-labs/thermoship/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// fakeSensor returns scripted errors, then fixed or increasing samples.
type fakeSensor struct {
	mu       sync.Mutex
	errs     []error // consumed one per Read
	fixed    *domain.Sample
	reads    int
	delay    time.Duration
	initErr  error
	initN    int
	closed   bool
	closes   int
	inFlight int32
	overlap  int32
}

func (s *fakeSensor) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initN++
	return s.initErr
}

func (s *fakeSensor) Read(ctx context.Context) (domain.Sample, error) {
	if atomic.AddInt32(&s.inFlight, 1) > 1 {
		atomic.StoreInt32(&s.overlap, 1)
	}
	defer atomic.AddInt32(&s.inFlight, -1)

	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return domain.Sample{}, ctx.Err()
		case <-time.After(s.delay):
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return domain.Sample{}, err
		}
	}
	if s.fixed != nil {
		return *s.fixed, nil
	}
	return domain.Sample{
		TemperatureCelsius: 20 + float64(s.reads)/4,
		TimestampMS:        int64(1000 * s.reads),
	}, nil
}

func (s *fakeSensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closes++
	return nil
}

func (s *fakeSensor) Overlapped() bool {
	return atomic.LoadInt32(&s.overlap) != 0
}

func (s *fakeSensor) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// blockingSensor never returns until ctx is done.
type blockingSensor struct{ fakeSensor }

func (s *blockingSensor) Read(ctx context.Context) (domain.Sample, error) {
	<-ctx.Done()
	return domain.Sample{}, ctx.Err()
}

// fakeSink records accepted frames. failures maps the 1-based Send call
// number to the error returned for it.
type fakeSink struct {
	mu       sync.Mutex
	calls    int
	frames   []domain.Frame
	failures map[int]error
	initErr  error
	advErr   error
	initN    int
	advN     int
	closed   bool
	closes   int
}

func (s *fakeSink) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initN++
	return s.initErr
}

func (s *fakeSink) StartAdvertising(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advN++
	return s.advErr
}

func (s *fakeSink) Send(ctx context.Context, f domain.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err := s.failures[s.calls]; err != nil {
		return err
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.closes++
	return nil
}

func (s *fakeSink) Frames() []domain.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Frame{}, s.frames...)
}

// recordingHandler records reported codes.
type recordingHandler struct {
	mu    sync.Mutex
	codes []domain.ErrorCode
}

func (h *recordingHandler) Report(code domain.ErrorCode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.codes = append(h.codes, code)
}

func (h *recordingHandler) Codes() []domain.ErrorCode {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.ErrorCode{}, h.codes...)
}

// fakeCipher records counters and can fail.
type fakeCipher struct {
	initErr  error
	sealErr  error
	initN    int
	counters []uint32
}

func (c *fakeCipher) Init(key, iv []byte) error {
	c.initN++
	return c.initErr
}

func (c *fakeCipher) Seal(plaintext []byte, counter uint32) ([]byte, error) {
	c.counters = append(c.counters, counter)
	if c.sealErr != nil {
		return nil, c.sealErr
	}
	return append([]byte{}, plaintext...), nil
}

// memStateRepo keeps state in memory.
type memStateRepo struct {
	mu      sync.Mutex
	state   domain.State
	saves   []domain.State
	saveErr error
}

func (r *memStateRepo) Load(ctx context.Context) (domain.State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, nil
}

func (r *memStateRepo) Save(ctx context.Context, st domain.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.state = st
	r.saves = append(r.saves, st)
	return nil
}

func (r *memStateRepo) Saved() []domain.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.State{}, r.saves...)
}
