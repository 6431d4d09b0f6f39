package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/thermoship/internal/codec"
	"github.com/bft-labs/thermoship/internal/domain"
	"github.com/bft-labs/thermoship/internal/ports"
)

// Default scheduler configuration values.
const (
	DefaultInterval       = time.Second
	DefaultMaxAttempts    = 3
	DefaultSensorTimeout  = 500 * time.Millisecond
	DefaultRebroadcasts   = 1
	DefaultCounterReserve = 64
)

// SchedulerConfig contains configuration for the telemetry loop.
type SchedulerConfig struct {
	// Interval is the tick period. A tick that fires while a cycle is still
	// in flight is dropped.
	Interval time.Duration

	// RetryDelay is the fixed pause before a retried attempt.
	RetryDelay time.Duration

	// MaxAttempts caps attempts per logical cycle, the first one included.
	MaxAttempts int

	// SensorTimeout bounds a single sensor read. An overrun is a hardware fault.
	SensorTimeout time.Duration

	// MaxPayload is the frame payload size used for fragmentation.
	MaxPayload int

	// Rebroadcasts is how many times each frame set is sent per cycle.
	Rebroadcasts int

	// CounterReserve is how many message counters one state save covers.
	CounterReserve uint32
}

// DefaultSchedulerConfig returns the default configuration.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:       DefaultInterval,
		RetryDelay:     DefaultRetryDelay,
		MaxAttempts:    DefaultMaxAttempts,
		SensorTimeout:  DefaultSensorTimeout,
		MaxPayload:     domain.MaxFramePayload,
		Rebroadcasts:   DefaultRebroadcasts,
		CounterReserve: DefaultCounterReserve,
	}
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	d := DefaultSchedulerConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.SensorTimeout <= 0 {
		c.SensorTimeout = d.SensorTimeout
	}
	if c.MaxPayload <= 0 || c.MaxPayload > domain.MaxFramePayload {
		c.MaxPayload = d.MaxPayload
	}
	if c.Rebroadcasts <= 0 {
		c.Rebroadcasts = d.Rebroadcasts
	}
	if c.CounterReserve == 0 {
		c.CounterReserve = d.CounterReserve
	}
	return c
}

// Pipeline groups the components one cycle runs through.
type Pipeline struct {
	Sensor  ports.SensorSource
	Cipher  ports.Cipher
	Sink    ports.TransportSink
	Handler ports.ErrorHandler

	// State is optional. Without it the message counter restarts at zero.
	State ports.StateRepository
}

// Outcome is the terminal result of a cycle.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFatal
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFatal:
		return "fatal"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CycleResult describes one finished cycle.
type CycleResult struct {
	Outcome  Outcome
	Code     domain.ErrorCode
	Err      error
	Attempts int
	Sample   domain.Sample
	Counter  uint32
	Frames   int // frames in the set
	Sent     int // frames accepted by the sink, rebroadcasts included
	Bytes    int // sealed message length
	Duration time.Duration
}

// Stats is a snapshot of scheduler counters.
type Stats struct {
	Cycles         uint64
	Successes      uint64
	Fatals         uint64
	Retries        uint64
	DroppedTicks   uint64
	FramesSent     uint64
	MessageCounter uint32
	Stage          Stage
	Attempt        int
	LastCode       domain.ErrorCode
}

// CycleObserver is called after every cycle.
type CycleObserver func(CycleResult)

// Scheduler drives sample, encode, encrypt and transmit on a fixed cadence.
// At most one cycle is in flight at any time.
type Scheduler struct {
	cfg      SchedulerConfig
	p        Pipeline
	logger   ports.Logger
	retry    *backoff
	observer CycleObserver

	intervalCh chan time.Duration

	mu       sync.Mutex
	interval time.Duration
	cycle    cycleState
	stats    Stats
	state    domain.State
	counter  uint32 // next message counter
	reserved uint32 // counters below this are covered by the saved state
}

// NewScheduler creates a scheduler. Zero config fields take defaults.
func NewScheduler(cfg SchedulerConfig, p Pipeline, logger ports.Logger) *Scheduler {
	cfg = cfg.withDefaults()
	return &Scheduler{
		cfg:        cfg,
		p:          p,
		logger:     logger,
		retry:      newBackoff(cfg.RetryDelay),
		intervalCh: make(chan time.Duration, 1),
		interval:   cfg.Interval,
	}
}

// SetObserver registers fn to be called after every cycle.
// Must be called before Run.
func (s *Scheduler) SetObserver(fn CycleObserver) {
	s.observer = fn
}

// Restore loads persisted device state, including the message counter.
func (s *Scheduler) Restore(ctx context.Context) error {
	if s.p.State == nil {
		return nil
	}
	st, err := s.p.State.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	s.mu.Lock()
	s.state = st
	s.counter = st.MessageCounter
	s.reserved = st.MessageCounter
	s.mu.Unlock()

	s.logger.Debug("state restored",
		ports.Uint64("message_counter", uint64(st.MessageCounter)),
		ports.Uint64("cycles", st.Cycles),
	)
	return nil
}

// Flush persists the exact next message counter and cycle totals.
func (s *Scheduler) Flush(ctx context.Context) error {
	if s.p.State == nil {
		return nil
	}
	s.mu.Lock()
	st := s.state
	st.MessageCounter = s.counter
	s.reserved = s.counter
	s.mu.Unlock()

	return s.p.State.Save(ctx, st)
}

// Interval returns the current tick period.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval changes the tick period from the next tick on.
func (s *Scheduler) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: interval must be positive, got %s", domain.ErrInvalidConfig, d)
	}
	s.mu.Lock()
	s.interval = d
	s.mu.Unlock()

	// Keep only the latest value for the loop.
	for {
		select {
		case s.intervalCh <- d:
			return nil
		default:
		}
		select {
		case <-s.intervalCh:
		default:
		}
	}
}

// Stats returns a snapshot of the counters.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Stage = s.cycle.stage
	st.Attempt = s.cycle.attempt
	st.MessageCounter = s.counter
	return st
}

// Run starts a cycle on every tick until ctx is cancelled. The first cycle
// starts immediately. On cancellation Run waits for the in-flight cycle,
// flushes state and returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval())
	defer ticker.Stop()

	done := make(chan struct{}, 1)
	inFlight := false
	dispatch := func() {
		inFlight = true
		go func() {
			s.RunCycle(ctx)
			done <- struct{}{}
		}()
	}

	dispatch()
	for {
		select {
		case <-ctx.Done():
			if inFlight {
				<-done
			}
			if err := s.Flush(context.WithoutCancel(ctx)); err != nil {
				s.logger.Error("failed to save state", ports.Err(err))
			}
			return nil

		case <-done:
			inFlight = false

		case d := <-s.intervalCh:
			ticker.Reset(d)
			s.logger.Info("interval changed", ports.Duration("interval", d))

		case <-ticker.C:
			if inFlight {
				s.mu.Lock()
				s.stats.DroppedTicks++
				dropped := s.stats.DroppedTicks
				s.mu.Unlock()
				s.logger.Warn("tick dropped, cycle still in flight",
					ports.Uint64("dropped_ticks", dropped),
				)
				continue
			}
			dispatch()
		}
	}
}

// RunCycle runs one cycle synchronously and returns its terminal outcome.
func (s *Scheduler) RunCycle(ctx context.Context) CycleResult {
	start := time.Now()

	s.mu.Lock()
	s.cycle = cycleState{}
	s.stats.Cycles++
	s.mu.Unlock()

	res := s.runAttempts(ctx)
	res.Duration = time.Since(start)

	s.finish(res)
	if s.observer != nil {
		s.observer(res)
	}
	return res
}

func (s *Scheduler) runAttempts(ctx context.Context) CycleResult {
	for attempt := 1; ; attempt++ {
		res := CycleResult{Attempts: attempt}

		s.mu.Lock()
		s.cycle.attempt = attempt
		s.mu.Unlock()
		s.enter(StageSampling)

		err := s.attempt(ctx, &res)
		if err == nil {
			s.enter(StageCycleComplete)
			s.enter(StageIdle)
			res.Outcome = OutcomeSuccess
			return res
		}

		s.enter(StageError)
		if isCancellation(ctx, err) {
			s.enter(StageIdle)
			res.Outcome = OutcomeCancelled
			res.Err = err
			return res
		}

		if retryable(err) {
			if attempt < s.cfg.MaxAttempts {
				s.mu.Lock()
				s.stats.Retries++
				s.mu.Unlock()
				s.logger.Warn("cycle attempt failed, retrying",
					ports.Err(err),
					ports.Int("attempt", attempt),
					ports.Duration("delay", s.retry.Current()),
				)
				if werr := s.retry.Wait(ctx); werr != nil {
					s.enter(StageIdle)
					res.Outcome = OutcomeCancelled
					res.Err = werr
					return res
				}
				continue
			}
			err = fmt.Errorf("retries exhausted after %d attempts: %w", attempt, err)
		}

		res.Outcome = OutcomeFatal
		res.Err = err
		res.Code = domain.CodeOf(err)
		s.logger.Error("cycle failed",
			ports.Err(err),
			ports.String("code", res.Code.String()),
			ports.Int("attempts", attempt),
		)
		s.p.Handler.Report(res.Code)
		s.enter(StageIdle)
		return res
	}
}

// attempt runs the stages once. Failures carry their ErrorCode.
func (s *Scheduler) attempt(ctx context.Context, res *CycleResult) error {
	sample, err := s.sample(ctx)
	if err != nil {
		return &domain.CodeError{Code: domain.CodeSensorRead, Err: err}
	}
	res.Sample = sample

	s.enter(StageFraming)
	plaintext := codec.EncodeSample(sample)

	s.enter(StageEncrypting)
	counter, err := s.nextCounter(ctx)
	if err != nil {
		return &domain.CodeError{Code: domain.CodeEncryptionProcess, Err: err}
	}
	msg, err := s.p.Cipher.Seal(plaintext, counter)
	if err != nil {
		return &domain.CodeError{Code: domain.CodeEncryptionProcess, Err: err}
	}
	res.Counter = counter
	res.Bytes = len(msg)

	s.enter(StageTransmitting)
	frames, err := codec.Fragment(msg, s.cfg.MaxPayload)
	if err != nil {
		return &domain.CodeError{Code: domain.CodeTransportSend, Err: err}
	}
	res.Frames = frames.Len()

	if err := s.transmit(ctx, frames, res); err != nil {
		return &domain.CodeError{Code: domain.CodeTransportSend, Err: err}
	}

	s.logger.Info("cycle complete",
		ports.Float64("temperature_c", sample.TemperatureCelsius),
		ports.Int("frames", res.Frames),
		ports.Int("bytes", res.Bytes),
		ports.Int("attempt", res.Attempts),
	)
	return nil
}

// sample reads the sensor, bounded by SensorTimeout.
func (s *Scheduler) sample(ctx context.Context) (domain.Sample, error) {
	readCtx, cancel := context.WithTimeout(ctx, s.cfg.SensorTimeout)
	defer cancel()

	type result struct {
		sample domain.Sample
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		smp, err := s.p.Sensor.Read(readCtx)
		ch <- result{smp, err}
	}()

	var r result
	select {
	case r = <-ch:
		if r.err == nil || readCtx.Err() == nil {
			return r.sample, r.err
		}
	case <-readCtx.Done():
	}

	// The read deadline or the parent context expired.
	if err := ctx.Err(); err != nil {
		return domain.Sample{}, err
	}
	return domain.Sample{}, domain.NewSensorError(domain.SensorHardwareFault,
		fmt.Errorf("read timed out after %s", s.cfg.SensorTimeout))
}

// transmit sends the frame set Rebroadcasts times in ascending index order.
func (s *Scheduler) transmit(ctx context.Context, frames *codec.FrameSet, res *CycleResult) error {
	for round := 0; round < s.cfg.Rebroadcasts; round++ {
		frames.Reset()
		for f, ok := frames.Next(); ok; f, ok = frames.Next() {
			if err := s.p.Sink.Send(ctx, f); err != nil {
				s.logger.Debug("frame rejected",
					ports.Int("index", int(f.Index)),
					ports.Int("total", int(f.Total)),
					ports.Err(err),
				)
				return err
			}
			res.Sent++
			s.mu.Lock()
			s.stats.FramesSent++
			s.mu.Unlock()
		}
	}
	return nil
}

// nextCounter hands out the next message counter. Every call returns a new
// value, retries included. When the saved reservation is used up a new block
// is persisted before the counter is handed out. If that save fails and the
// cipher derives IVs from the counter, no counter is handed out: a counter
// above the durable reservation would be issued again after a restart.
func (s *Scheduler) nextCounter(ctx context.Context) (uint32, error) {
	s.mu.Lock()
	c := s.counter
	reserve := s.p.State != nil && c >= s.reserved
	if !reserve {
		s.counter++
		s.mu.Unlock()
		return c, nil
	}
	snapshot := s.state
	snapshot.MessageCounter = c + s.cfg.CounterReserve
	s.mu.Unlock()

	if err := s.p.State.Save(ctx, snapshot); err != nil {
		if counterBound(s.p.Cipher) {
			return 0, fmt.Errorf("reserve message counters: %w", err)
		}
		s.logger.Warn("failed to save message counter", ports.Err(err))
	} else {
		s.mu.Lock()
		s.reserved = snapshot.MessageCounter
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.counter++
	s.mu.Unlock()
	return c, nil
}

// counterBound reports whether c derives its IV from the message counter.
// Ciphers that do not say are assumed to.
func counterBound(c ports.Cipher) bool {
	if u, ok := c.(interface{ UsesCounter() bool }); ok {
		return u.UsesCounter()
	}
	return true
}

func (s *Scheduler) finish(res CycleResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch res.Outcome {
	case OutcomeSuccess:
		s.stats.Successes++
		s.state.UpdateAfterCycle(true, time.Now())
	case OutcomeFatal:
		s.stats.Fatals++
		s.stats.LastCode = res.Code
		s.state.UpdateAfterCycle(false, time.Now())
	}
}

func (s *Scheduler) enter(next Stage) {
	s.mu.Lock()
	prev := s.cycle.stage
	err := s.cycle.transitionTo(next)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("stage transition rejected", ports.Err(err))
		return
	}
	s.logger.Debug("stage",
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
	)
}

// retryable reports whether err is a transient sensor or sink failure.
func retryable(err error) bool {
	var se *domain.SensorError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var ke *domain.SinkError
	if errors.As(err, &ke) {
		return ke.Retryable()
	}
	return false
}

func isCancellation(ctx context.Context, err error) bool {
	cerr := ctx.Err()
	return cerr != nil && errors.Is(err, cerr)
}
