package app

import (
	"fmt"

	"github.com/bft-labs/thermoship/internal/domain"
)

// Stage is the position of the pipeline inside one telemetry cycle.
type Stage int

const (
	StageIdle Stage = iota
	StageSampling
	StageFraming
	StageEncrypting
	StageTransmitting
	StageCycleComplete
	StageError
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "Idle"
	case StageSampling:
		return "Sampling"
	case StageFraming:
		return "Framing"
	case StageEncrypting:
		return "Encrypting"
	case StageTransmitting:
		return "Transmitting"
	case StageCycleComplete:
		return "CycleComplete"
	case StageError:
		return "Error"
	default:
		return "Unknown"
	}
}

// CanTransition reports whether the cycle may move from s to next.
func (s Stage) CanTransition(next Stage) bool {
	switch s {
	case StageIdle:
		return next == StageSampling
	case StageSampling:
		return next == StageFraming || next == StageError
	case StageFraming:
		return next == StageEncrypting || next == StageError
	case StageEncrypting:
		return next == StageTransmitting || next == StageError
	case StageTransmitting:
		return next == StageCycleComplete || next == StageError
	case StageCycleComplete:
		return next == StageIdle
	case StageError:
		// Sampling on retry, Idle after a fatal outcome.
		return next == StageSampling || next == StageIdle
	default:
		return false
	}
}

// cycleState is the per-cycle stage and attempt count. It is reset at every
// cycle start.
type cycleState struct {
	stage   Stage
	attempt int
}

func (c *cycleState) transitionTo(next Stage) error {
	if !c.stage.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, c.stage, next)
	}
	c.stage = next
	return nil
}
