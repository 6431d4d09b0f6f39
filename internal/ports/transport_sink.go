package ports

import (
	"context"

	"github.com/bft-labs/thermoship/internal/domain"
)

// TransportSink broadcasts frames over the advertising channel.
// Failures are *domain.SinkError.
type TransportSink interface {
	// Init brings the radio up. Called once by InitAll.
	Init(ctx context.Context) error

	// StartAdvertising starts broadcasting. Called once before the first cycle.
	StartAdvertising(ctx context.Context) error

	// Send broadcasts a single frame. It must return in bounded time.
	Send(ctx context.Context, frame domain.Frame) error

	// Close stops advertising and releases the radio.
	Close() error
}
