package thermoship

import (
	"time"

	"github.com/bft-labs/thermoship/internal/app"
)

// State is the lifecycle state of a Thermoship instance.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

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

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State

	// Reason says what caused the transition. A crash during startup is
	// prefixed with the boot step that failed, e.g.
	// "initialize hardware: transport init: no adapter".
	Reason string

	// Code and Err are set when Current is StateCrashed. Code is CodeNone
	// for failures outside the pipeline, such as a plugin or a shutdown
	// timeout.
	Code ErrorCode
	Err  error
}

// CycleEvent describes one finished telemetry cycle.
type CycleEvent struct {
	// Success is true when every frame was accepted by the sink.
	Success bool

	// Cancelled is true when the cycle was interrupted by shutdown.
	Cancelled bool

	// Code is the reported ErrorCode of a fatal cycle, CodeNone otherwise.
	Code ErrorCode

	// Err is the failure of a fatal cycle.
	Err error

	Attempts int
	Sample   Sample
	Counter  uint32
	Frames   int
	Sent     int
	Bytes    int
	Duration time.Duration
}

// EventHandler receives notifications from a running instance.
// Methods are called synchronously from pipeline goroutines and must return
// quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnCycle(event CycleEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent) {}
func (BaseEventHandler) OnCycle(CycleEvent)             {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnTransition(t app.Transition) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(t.From),
		Current:  convertState(t.To),
		Reason:   t.Reason,
		Code:     t.Code,
		Err:      t.Err,
	})
}

func (e *eventEmitterWrapper) onCycle(res app.CycleResult) {
	if e.handler == nil {
		return
	}
	e.handler.OnCycle(convertCycle(res))
}

func convertCycle(res app.CycleResult) CycleEvent {
	return CycleEvent{
		Success:   res.Outcome == app.OutcomeSuccess,
		Cancelled: res.Outcome == app.OutcomeCancelled,
		Code:      res.Code,
		Err:       res.Err,
		Attempts:  res.Attempts,
		Sample:    res.Sample,
		Counter:   res.Counter,
		Frames:    res.Frames,
		Sent:      res.Sent,
		Bytes:     res.Bytes,
		Duration:  res.Duration,
	}
}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
