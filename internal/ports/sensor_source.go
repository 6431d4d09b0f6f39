package ports

import (
	"context"

	"github.com/bft-labs/thermoship/internal/domain"
)

// SensorSource produces temperature samples.
// Implementations talk to a serial thermometer, an I2C sensor or a simulator.
type SensorSource interface {
	// Init prepares the device. Called once by InitAll.
	Init(ctx context.Context) error

	// Read takes one sample. Failures are *domain.SensorError:
	// SensorNotReady is transient, SensorHardwareFault is persistent.
	// Read does not enforce its own deadline; the scheduler does.
	Read(ctx context.Context) (domain.Sample, error)

	// Close releases the device.
	Close() error
}
