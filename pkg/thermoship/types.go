package thermoship

import (
	"github.com/bft-labs/thermoship/internal/domain"
	"github.com/bft-labs/thermoship/internal/ports"
	"github.com/bft-labs/thermoship/pkg/log"
)

// Types shared with the pipeline, re-exported so embedders can implement
// their own sensors, radios and state stores.
type (
	// Sample is one temperature reading.
	Sample = domain.Sample

	// Frame is one fragment of a sealed message.
	Frame = domain.Frame

	// KeyMaterial is the AES-128 key and IV.
	KeyMaterial = domain.KeyMaterial

	// DeviceState is what a StateRepository persists.
	DeviceState = domain.State

	// ErrorCode is the numeric code passed to the ErrorHandler.
	ErrorCode = domain.ErrorCode

	// CodeError carries the ErrorCode of a fatal failure.
	CodeError = domain.CodeError

	// SensorSource produces temperature samples.
	SensorSource = ports.SensorSource

	// TransportSink broadcasts frames.
	TransportSink = ports.TransportSink

	// StateRepository persists device state across restarts.
	StateRepository = ports.StateRepository

	// ErrorHandler receives fatal error codes.
	ErrorHandler = ports.ErrorHandler

	// ErrorHandlerFunc adapts a function to ErrorHandler.
	ErrorHandlerFunc = ports.ErrorHandlerFunc

	// Logger is the structured logging interface.
	Logger = log.Logger

	// LogField is a structured log field.
	LogField = log.Field
)

// Error codes reported to the ErrorHandler.
const (
	CodeNone                    = domain.CodeNone
	CodeSensorInit              = domain.CodeSensorInit
	CodeSensorRead              = domain.CodeSensorRead
	CodeEncryptionInit          = domain.CodeEncryptionInit
	CodeEncryptionProcess       = domain.CodeEncryptionProcess
	CodeTransportInit           = domain.CodeTransportInit
	CodeTransportAdvertiseStart = domain.CodeTransportAdvertiseStart
	CodeTransportSend           = domain.CodeTransportSend
)

// Lifecycle errors.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrClosed          = domain.ErrClosed
)

// ParseKeyMaterial decodes a hex key and IV of 16 bytes each.
func ParseKeyMaterial(keyHex, ivHex string) (KeyMaterial, error) {
	return domain.ParseKeyMaterial(keyHex, ivHex)
}
