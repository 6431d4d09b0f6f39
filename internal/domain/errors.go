package domain

import "errors"

// Domain errors represent error conditions in the thermoship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("thermoship: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("thermoship: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("thermoship: shutdown timeout")

	// ErrClosed is returned once the hardware has been released.
	ErrClosed = errors.New("thermoship: closed")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("thermoship: invalid configuration")

	// ErrAlreadyInitialized is returned by a second InitAll or engine Init.
	// Nothing is re-keyed and no counter is reset.
	ErrAlreadyInitialized = errors.New("thermoship: already initialized")

	// ErrNotInitialized is returned when a cycle runs before InitAll succeeded.
	ErrNotInitialized = errors.New("thermoship: not initialized")

	// ErrInvalidTransition is returned for a cycle stage change the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("thermoship: invalid stage transition")
)

// EncryptionErrorKind tags a cipher engine failure.
type EncryptionErrorKind int

const (
	EncryptionInvalidKeyMaterial EncryptionErrorKind = iota + 1
	EncryptionNotInitialized
	EncryptionInvalidLength
	EncryptionProcess
)

func (k EncryptionErrorKind) String() string {
	switch k {
	case EncryptionInvalidKeyMaterial:
		return "invalid key material"
	case EncryptionNotInitialized:
		return "not initialized"
	case EncryptionInvalidLength:
		return "invalid length"
	case EncryptionProcess:
		return "process failure"
	default:
		return "unknown"
	}
}

// EncryptionError is returned by the cipher engine. Every kind is fatal for
// the cycle that hits it.
type EncryptionError struct {
	Kind EncryptionErrorKind
}

func (e *EncryptionError) Error() string { return "encryption: " + e.Kind.String() }

// Is matches any EncryptionError of the same kind.
func (e *EncryptionError) Is(target error) bool {
	t, ok := target.(*EncryptionError)
	return ok && t.Kind == e.Kind
}

// Cipher engine sentinels, usable with errors.Is.
var (
	ErrInvalidKeyMaterial = &EncryptionError{Kind: EncryptionInvalidKeyMaterial}
	ErrCipherNotReady     = &EncryptionError{Kind: EncryptionNotInitialized}
	ErrInvalidLength      = &EncryptionError{Kind: EncryptionInvalidLength}
	ErrEncryptionProcess  = &EncryptionError{Kind: EncryptionProcess}
)

// SensorErrorKind tags a sensor failure.
type SensorErrorKind int

const (
	// SensorNotReady means the device is busy or warming up. Retryable.
	SensorNotReady SensorErrorKind = iota + 1
	// SensorHardwareFault is persistent. Never retried.
	SensorHardwareFault
)

func (k SensorErrorKind) String() string {
	switch k {
	case SensorNotReady:
		return "not ready"
	case SensorHardwareFault:
		return "hardware fault"
	default:
		return "unknown"
	}
}

// SensorError is returned by every SensorSource implementation.
type SensorError struct {
	Kind SensorErrorKind
	Err  error
}

// NewSensorError wraps cause (may be nil) with the given kind.
func NewSensorError(kind SensorErrorKind, cause error) *SensorError {
	return &SensorError{Kind: kind, Err: cause}
}

func (e *SensorError) Error() string {
	if e.Err == nil {
		return "sensor: " + e.Kind.String()
	}
	return "sensor: " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *SensorError) Unwrap() error { return e.Err }

// Retryable reports whether the scheduler may take a fresh sample.
func (e *SensorError) Retryable() bool { return e.Kind == SensorNotReady }

// SinkErrorKind tags a transport failure.
type SinkErrorKind int

const (
	// SinkBusy means the radio could not take the frame right now. Retryable.
	SinkBusy SinkErrorKind = iota + 1
	// SinkNotAdvertising means advertising is stopped. Retryable.
	SinkNotAdvertising
	// SinkHardwareFault is persistent. Never retried.
	SinkHardwareFault
)

func (k SinkErrorKind) String() string {
	switch k {
	case SinkBusy:
		return "busy"
	case SinkNotAdvertising:
		return "not advertising"
	case SinkHardwareFault:
		return "hardware fault"
	default:
		return "unknown"
	}
}

// SinkError is returned by every TransportSink implementation.
type SinkError struct {
	Kind SinkErrorKind
	Err  error
}

// NewSinkError wraps cause (may be nil) with the given kind.
func NewSinkError(kind SinkErrorKind, cause error) *SinkError {
	return &SinkError{Kind: kind, Err: cause}
}

func (e *SinkError) Error() string {
	if e.Err == nil {
		return "sink: " + e.Kind.String()
	}
	return "sink: " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *SinkError) Unwrap() error { return e.Err }

// Retryable reports whether the scheduler may restart the cycle.
func (e *SinkError) Retryable() bool {
	return e.Kind == SinkBusy || e.Kind == SinkNotAdvertising
}
