package sensor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/bft-labs/thermoship/internal/domain"
)

// SimConfig shapes the simulated temperature curve.
type SimConfig struct {
	BaseCelsius float64
	Amplitude   float64
	Period      int // reads per full sine period
	FailEvery   int // every Nth read is SensorNotReady, 0 disables
}

// DefaultSimConfig returns a room-temperature curve with no failures.
func DefaultSimConfig() SimConfig {
	return SimConfig{BaseCelsius: 21.5, Amplitude: 1.5, Period: 60}
}

// Sim is a deterministic sensor for benches and tests.
type Sim struct {
	cfg SimConfig
	now func() time.Time

	mu    sync.Mutex
	reads int
	ready bool
}

// NewSim creates a simulated sensor.
func NewSim(cfg SimConfig) *Sim {
	if cfg.Period <= 0 {
		cfg.Period = 60
	}
	return &Sim{cfg: cfg, now: time.Now}
}

func (s *Sim) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	return nil
}

func (s *Sim) Read(ctx context.Context) (domain.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return domain.Sample{}, domain.NewSensorError(domain.SensorHardwareFault, fmt.Errorf("sim not initialized"))
	}
	s.reads++
	if s.cfg.FailEvery > 0 && s.reads%s.cfg.FailEvery == 0 {
		return domain.Sample{}, domain.NewSensorError(domain.SensorNotReady, fmt.Errorf("simulated warm-up on read %d", s.reads))
	}

	phase := 2 * math.Pi * float64(s.reads-1) / float64(s.cfg.Period)
	return domain.Sample{
		TemperatureCelsius: s.cfg.BaseCelsius + s.cfg.Amplitude*math.Sin(phase),
		TimestampMS:        s.now().UnixMilli(),
	}, nil
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
	return nil
}
