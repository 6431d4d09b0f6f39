package thermoship_test

import (
	"context"
	"sync"

	"github.com/bft-labs/thermoship/pkg/thermoship"
)

type fakeSensor struct {
	mu      sync.Mutex
	sample  thermoship.Sample
	readErr error
	initErr error
	reads   int
	closed  bool
}

func (s *fakeSensor) Init(ctx context.Context) error { return s.initErr }

func (s *fakeSensor) Read(ctx context.Context) (thermoship.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.readErr != nil {
		return thermoship.Sample{}, s.readErr
	}
	return s.sample, nil
}

func (s *fakeSensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSensor) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeSink struct {
	mu      sync.Mutex
	initErr error
	frames  []thermoship.Frame
	closed  bool
}

func (s *fakeSink) Init(ctx context.Context) error             { return s.initErr }
func (s *fakeSink) StartAdvertising(ctx context.Context) error { return nil }

func (s *fakeSink) Send(ctx context.Context, f thermoship.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) Frames() []thermoship.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]thermoship.Frame(nil), s.frames...)
}

type memRepo struct {
	mu    sync.Mutex
	state thermoship.DeviceState
	saves int
}

func (r *memRepo) Load(ctx context.Context) (thermoship.DeviceState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, nil
}

func (r *memRepo) Save(ctx context.Context, st thermoship.DeviceState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = st
	r.saves++
	return nil
}

func (r *memRepo) Saved() (thermoship.DeviceState, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state, r.saves
}

type recordingHandler struct {
	mu      sync.Mutex
	states  []thermoship.State
	changes []thermoship.StateChangeEvent
	cycles  []thermoship.CycleEvent
}

func (h *recordingHandler) OnStateChange(e thermoship.StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, e.Current)
	h.changes = append(h.changes, e)
}

func (h *recordingHandler) LastChange() thermoship.StateChangeEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.changes[len(h.changes)-1]
}

func (h *recordingHandler) OnCycle(e thermoship.CycleEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cycles = append(h.cycles, e)
}

func (h *recordingHandler) States() []thermoship.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]thermoship.State(nil), h.states...)
}

func (h *recordingHandler) Cycles() []thermoship.CycleEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]thermoship.CycleEvent(nil), h.cycles...)
}

// trackingPlugin records initialization and shutdown order.
type trackingPlugin struct {
	name          string
	mu            *sync.Mutex
	initOrder     *[]string
	shutdownOrder *[]string
	initErr       error
	onInit        func(cfg thermoship.PluginConfig)
}

func (p *trackingPlugin) Name() string { return p.name }

func (p *trackingPlugin) Initialize(ctx context.Context, cfg thermoship.PluginConfig) error {
	if p.initErr != nil {
		return p.initErr
	}
	if p.onInit != nil {
		p.onInit(cfg)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.initOrder = append(*p.initOrder, p.name)
	return nil
}

func (p *trackingPlugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.shutdownOrder = append(*p.shutdownOrder, p.name)
	return nil
}

type panicPlugin struct {
	thermoship.BasePlugin
}

func (panicPlugin) Initialize(ctx context.Context, cfg thermoship.PluginConfig) error {
	panic("intentional panic during initialization")
}
