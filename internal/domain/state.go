package domain

import "time"

// State is the device state persisted between restarts. It never holds
// samples, only the IV message counter and cycle totals.
type State struct {
	// MessageCounter is the next per-message IV counter.
	MessageCounter uint32 `json:"message_counter"`

	// Cycles is the total number of cycles started.
	Cycles uint64 `json:"cycles"`

	// Failures is the total number of cycles that ended fatally.
	Failures uint64 `json:"failures"`

	// LastSuccessAt is the time of the last fully transmitted cycle.
	LastSuccessAt time.Time `json:"last_success_at"`
}

// IsEmpty returns true if the state has not been initialized.
func (s State) IsEmpty() bool {
	return s.MessageCounter == 0 && s.Cycles == 0
}

// UpdateAfterCycle records the outcome of one cycle.
func (s *State) UpdateAfterCycle(success bool, at time.Time) {
	s.Cycles++
	if success {
		s.LastSuccessAt = at
		return
	}
	s.Failures++
}
