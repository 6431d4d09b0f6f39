// Package log is the structured logging surface shared by thermoship
// components.
//
// Components log through the Logger interface so embedders can route
// telemetry logs into their own infrastructure. The default implementation
// wraps zerolog:
//
//	logger, err := log.NewZerologAdapter(log.Options{Level: "debug"})
//
// Tests and silent embedders use Discard or NewNoopLogger.
//
// Byte slices passed with Hex are rendered as lowercase hex, which is how
// frames and ciphertext show up in debug output.
package log
