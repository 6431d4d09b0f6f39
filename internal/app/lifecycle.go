package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/thermoship/internal/domain"
	"github.com/bft-labs/thermoship/internal/ports"
)

// ShutdownTimeout is the maximum time to wait for the pipeline to drain.
const ShutdownTimeout = 10 * time.Second

// State is the service state of a beacon, as opposed to the Stage of a
// single telemetry cycle.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// Stopping is reachable from Starting so Stop can interrupt a slow boot.
var serviceTransitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

// CanTransition reports whether next may follow s.
func (s State) CanTransition(next State) bool {
	for _, allowed := range serviceTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Boot steps, in the order a beacon runs them.
const (
	StepPlugins      = "initialize plugins"
	StepInitHardware = "initialize hardware"
	StepRestoreState = "restore state"
	StepAdvertise    = "start advertising"
)

// Transition describes one service state change.
type Transition struct {
	From   State
	To     State
	Reason string

	// Step is the boot step in progress, empty once running.
	Step string

	// Code and Err are set on transitions into StateCrashed.
	Code domain.ErrorCode
	Err  error
}

// EventEmitter is called after every state change.
type EventEmitter interface {
	OnTransition(t Transition)
}

// Lifecycle owns the service state of a beacon, the context its workers run
// under and the workers themselves.
type Lifecycle struct {
	mu      sync.RWMutex
	state   State
	step    string
	err     error
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  ports.Logger
	emitter EventEmitter
}

// NewLifecycle returns a lifecycle in StateStopped. emitter may be nil.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:   StateStopped,
		logger:  logger,
		emitter: emitter,
	}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Err returns the failure recorded by the last Crash since Begin.
func (l *Lifecycle) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Step returns the boot step in progress.
func (l *Lifecycle) Step() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.step
}

// CanStart reports whether Begin would succeed.
func (l *Lifecycle) CanStart() bool {
	return l.State().CanTransition(StateStarting)
}

// CanStop reports whether Stop would succeed.
func (l *Lifecycle) CanStop() bool {
	return l.State().CanTransition(StateStopping)
}

// Begin moves to StateStarting and returns the context workers run under.
// Stop and Crash cancel it.
func (l *Lifecycle) Begin(parent context.Context, reason string) (context.Context, error) {
	l.mu.Lock()
	if !l.state.CanTransition(StateStarting) {
		l.mu.Unlock()
		return nil, domain.ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(parent)
	l.cancel = cancel
	l.err = nil
	l.step = ""
	t, _ := l.commit(StateStarting, reason, nil)
	l.mu.Unlock()

	l.emit(t)
	return ctx, nil
}

// Enter records the boot step about to run.
func (l *Lifecycle) Enter(step string) {
	l.mu.Lock()
	l.step = step
	l.mu.Unlock()
	l.logger.Debug("boot step", ports.String("step", step))
}

// Ready moves from StateStarting to StateRunning. It fails when Stop got
// there first.
func (l *Lifecycle) Ready() error {
	return l.transition(StateRunning, "device ready", nil)
}

// Crash moves to StateCrashed, records err with its ErrorCode and cancels
// the workers' context. During boot the reason names the failed step.
func (l *Lifecycle) Crash(err error) error {
	l.mu.RLock()
	reason := err.Error()
	if l.state == StateStarting && l.step != "" {
		reason = l.step + ": " + reason
	}
	l.mu.RUnlock()

	if terr := l.transition(StateCrashed, reason, err); terr != nil {
		return terr
	}
	l.cancelWorkers()
	return nil
}

// Stop moves to StateStopping and cancels the workers' context.
func (l *Lifecycle) Stop(reason string) error {
	if err := l.transition(StateStopping, reason, nil); err != nil {
		return err
	}
	l.cancelWorkers()
	return nil
}

// Finish waits up to timeout for the workers, runs cleanup and settles in
// StateStopped, or in StateCrashed with ErrShutdownTimeout if the workers
// did not exit.
func (l *Lifecycle) Finish(timeout time.Duration, cleanup func()) error {
	err := l.WaitWithTimeout(timeout)
	if cleanup != nil {
		cleanup()
	}
	if err != nil {
		_ = l.transition(StateCrashed, "shutdown timeout", err)
		return err
	}
	_ = l.transition(StateStopped, "graceful shutdown", nil)
	return nil
}

// Go runs fn on a tracked worker goroutine.
func (l *Lifecycle) Go(fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
}

// WaitWithTimeout waits for all workers to finish.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, forcing exit",
			ports.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}

func (l *Lifecycle) transition(next State, reason string, err error) error {
	l.mu.Lock()
	t, terr := l.commit(next, reason, err)
	l.mu.Unlock()
	if terr != nil {
		return terr
	}
	l.emit(t)
	return nil
}

// commit applies a validated transition. Must hold l.mu.
func (l *Lifecycle) commit(next State, reason string, err error) (Transition, error) {
	prev := l.state
	if !prev.CanTransition(next) {
		if prev == StateStopped || prev == StateCrashed {
			return Transition{}, domain.ErrNotRunning
		}
		return Transition{}, domain.ErrAlreadyRunning
	}

	t := Transition{From: prev, To: next, Reason: reason, Step: l.step}
	if next == StateCrashed {
		t.Err = err
		t.Code = domain.CodeOf(err)
		l.err = err
	}
	if next == StateRunning {
		l.step = ""
	}
	l.state = next
	return t, nil
}

func (l *Lifecycle) cancelWorkers() {
	l.mu.RLock()
	cancel := l.cancel
	l.mu.RUnlock()
	if cancel != nil {
		cancel()
	}
}

// emit runs outside of l.mu.
func (l *Lifecycle) emit(t Transition) {
	if l.emitter != nil {
		l.emitter.OnTransition(t)
	}

	fields := []ports.Field{
		ports.String("from", t.From.String()),
		ports.String("to", t.To.String()),
		ports.String("reason", t.Reason),
	}
	if t.To == StateCrashed {
		fields = append(fields, ports.String("code", t.Code.String()))
		l.logger.Error("state transition", fields...)
		return
	}
	l.logger.Info("state transition", fields...)
}
