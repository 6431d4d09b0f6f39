package ports

import "github.com/bft-labs/thermoship/internal/domain"

// ErrorHandler is the process-wide error handler.
// The scheduler calls Report exactly once per fatal transition and never for
// retryable errors.
type ErrorHandler interface {
	Report(code domain.ErrorCode)
}

// ErrorHandlerFunc adapts a function to ErrorHandler.
type ErrorHandlerFunc func(code domain.ErrorCode)

// Report calls f(code).
func (f ErrorHandlerFunc) Report(code domain.ErrorCode) { f(code) }
