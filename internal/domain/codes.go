package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is what the process-wide error handler receives. The numeric
// values match the firmware's error table so other components can keep
// comparing raw integers.
type ErrorCode int

const (
	CodeNone                    ErrorCode = 0
	CodeSensorInit              ErrorCode = -1
	CodeSensorRead              ErrorCode = -2
	CodeEncryptionInit          ErrorCode = -3
	CodeEncryptionProcess       ErrorCode = -4
	CodeTransportInit           ErrorCode = -5
	CodeTransportAdvertiseStart ErrorCode = -6
	CodeTransportSend           ErrorCode = -7
)

// String returns a human-readable representation of the code.
func (c ErrorCode) String() string {
	switch c {
	case CodeNone:
		return "none"
	case CodeSensorInit:
		return "sensor-init-failure"
	case CodeSensorRead:
		return "sensor-read-failure"
	case CodeEncryptionInit:
		return "encryption-init-failure"
	case CodeEncryptionProcess:
		return "encryption-process-failure"
	case CodeTransportInit:
		return "transport-init-failure"
	case CodeTransportAdvertiseStart:
		return "transport-advertise-start-failure"
	case CodeTransportSend:
		return "transport-send-failure"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// CodeError carries an ErrorCode together with the failure that caused it.
type CodeError struct {
	Code ErrorCode
	Err  error
}

func (e *CodeError) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Err.Error()
}

func (e *CodeError) Unwrap() error { return e.Err }

// CodeOf extracts the ErrorCode from err, or CodeNone if err carries none.
func CodeOf(err error) ErrorCode {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeNone
}
