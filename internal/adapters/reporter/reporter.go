// Package reporter provides the process-wide error handler.
package reporter

import (
	"sync"

	"github.com/bft-labs/thermoship/internal/domain"
	"github.com/bft-labs/thermoship/internal/ports"
)

// Reporter logs every reported code and keeps per-code counts.
type Reporter struct {
	logger ports.Logger
	hook   func(domain.ErrorCode)

	mu     sync.Mutex
	counts map[domain.ErrorCode]uint64
}

// New creates a reporter. hook, if non-nil, is called after logging.
func New(logger ports.Logger, hook func(domain.ErrorCode)) *Reporter {
	return &Reporter{
		logger: logger,
		hook:   hook,
		counts: make(map[domain.ErrorCode]uint64),
	}
}

// Report implements ports.ErrorHandler.
func (r *Reporter) Report(code domain.ErrorCode) {
	r.mu.Lock()
	r.counts[code]++
	n := r.counts[code]
	r.mu.Unlock()

	r.logger.Error("fatal error reported",
		ports.Int("code", int(code)),
		ports.String("name", code.String()),
		ports.Uint64("occurrences", n),
	)
	if r.hook != nil {
		r.hook(code)
	}
}

// Count returns how often code was reported.
func (r *Reporter) Count(code domain.ErrorCode) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[code]
}

// Counts returns a copy of all counts.
func (r *Reporter) Counts() map[domain.ErrorCode]uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[domain.ErrorCode]uint64, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}
