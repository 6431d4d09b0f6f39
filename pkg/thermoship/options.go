package thermoship

import "github.com/bft-labs/thermoship/pkg/log"

// Option configures optional behavior of Thermoship.
type Option func(*options)

// options holds the optional configuration for a Thermoship instance.
type options struct {
	logger       Logger
	sensor       SensorSource
	sink         TransportSink
	errorHandler ErrorHandler
	eventHandler EventHandler
	stateRepo    StateRepository
	plugins      []Plugin
}

func defaultOptions() options {
	return options{
		logger: log.Discard,
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSensor sets the temperature source.
// If not provided, a simulated sensor is used.
func WithSensor(s SensorSource) Option {
	return func(o *options) {
		o.sensor = s
	}
}

// WithSink sets the frame transport.
// If not provided, frames are written to stdout as hex.
func WithSink(s TransportSink) Option {
	return func(o *options) {
		o.sink = s
	}
}

// WithErrorHandler sets the process-wide error handler. It is called once
// for every fatal failure, after the failure has been logged.
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		o.errorHandler = h
	}
}

// WithEventHandler sets a handler for lifecycle and cycle events.
func WithEventHandler(h EventHandler) Option {
	return func(o *options) {
		o.eventHandler = h
	}
}

// WithStateRepository sets where the message counter and cycle totals are
// persisted. It takes precedence over Config.StateDir.
func WithStateRepository(r StateRepository) Option {
	return func(o *options) {
		o.stateRepo = r
	}
}

// WithPlugin registers a plugin to be initialized when Thermoship starts.
// Plugins are initialized in registration order and shut down in reverse
// order.
func WithPlugin(p Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, p)
	}
}
