package log

// NoopLogger discards every message and field. A thermoship instance built
// without WithLogger logs through one, as does a plugin initialized without
// a logger, so neither has to nil-check before logging.
type NoopLogger struct{}

// Discard is the shared NoopLogger.
var Discard Logger = NoopLogger{}

// NewNoopLogger returns a NoopLogger.
func NewNoopLogger() *NoopLogger {
	return &NoopLogger{}
}

func (NoopLogger) Debug(string, ...Field) {}
func (NoopLogger) Info(string, ...Field)  {}
func (NoopLogger) Warn(string, ...Field)  {}
func (NoopLogger) Error(string, ...Field) {}
