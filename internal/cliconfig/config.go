package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/thermoship/internal/app"
	"github.com/bft-labs/thermoship/internal/crypto"
	"github.com/bft-labs/thermoship/internal/domain"
)

// Sensor and sink kinds.
const (
	SensorSim    = "sim"
	SensorSerial = "serial"
	SensorBME280 = "bme280"

	SinkBLE     = "ble"
	SinkConsole = "console"
)

// Config holds CLI configuration for thermoship.
type Config struct {
	Sensor      string
	SerialPort  string
	SerialBaud  int
	SerialQuery string
	I2CBus      string
	I2CAddr     int

	Sink        string
	LocalName   string
	CompanyID   int
	AdvInterval time.Duration
	FrameDwell  time.Duration

	KeyHex  string
	IVHex   string
	KeyFile string
	IVMode  string

	Interval      time.Duration
	RetryDelay    time.Duration
	MaxAttempts   int
	SensorTimeout time.Duration
	MaxPayload    int
	Rebroadcasts  int

	StateDir string
	LogLevel string
	Once     bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Sensor:        SensorSim,
		SerialBaud:    9600,
		I2CAddr:       0x76,
		Sink:          SinkConsole,
		LocalName:     "thermoship",
		CompanyID:     0xFFFF,
		AdvInterval:   100 * time.Millisecond,
		FrameDwell:    300 * time.Millisecond,
		IVMode:        crypto.IVFixed.String(),
		Interval:      app.DefaultInterval,
		RetryDelay:    app.DefaultRetryDelay,
		MaxAttempts:   app.DefaultMaxAttempts,
		SensorTimeout: app.DefaultSensorTimeout,
		MaxPayload:    domain.MaxFramePayload,
		Rebroadcasts:  app.DefaultRebroadcasts,
		StateDir:      "", // Derived during Validate
		LogLevel:      "info",
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	c.Sensor = strings.ToLower(strings.TrimSpace(c.Sensor))
	switch c.Sensor {
	case SensorSim, SensorBME280:
	case SensorSerial:
		if c.SerialPort == "" {
			return invalid("serial-port is required for the serial sensor")
		}
	default:
		return invalid("unknown sensor %q (want sim, serial or bme280)", c.Sensor)
	}
	if c.I2CAddr < 0 || c.I2CAddr > 0x7f {
		return invalid("i2c-addr %#x out of range", c.I2CAddr)
	}

	c.Sink = strings.ToLower(strings.TrimSpace(c.Sink))
	if c.Sink != SinkBLE && c.Sink != SinkConsole {
		return invalid("unknown sink %q (want ble or console)", c.Sink)
	}
	if c.CompanyID < 0 || c.CompanyID > 0xffff {
		return invalid("company-id %#x out of range", c.CompanyID)
	}

	if _, err := crypto.ParseIVMode(c.IVMode); err != nil {
		return invalid("%v", err)
	}

	if c.Interval <= 0 {
		return invalid("interval must be positive")
	}
	if c.RetryDelay < 0 {
		return invalid("retry-delay must not be negative")
	}
	if c.MaxAttempts < 1 {
		return invalid("max-attempts must be at least 1")
	}
	if c.SensorTimeout <= 0 {
		return invalid("sensor-timeout must be positive")
	}
	if c.MaxPayload < 1 || c.MaxPayload > domain.MaxFramePayload {
		return invalid("max-payload must be between 1 and %d", domain.MaxFramePayload)
	}
	if c.Rebroadcasts < 1 {
		return invalid("rebroadcasts must be at least 1")
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return invalid("log-level: %v", err)
	}

	if c.StateDir == "" {
		c.StateDir = DefaultStateDir()
	}
	return nil
}

// SchedulerConfig returns the telemetry loop settings.
func (c Config) SchedulerConfig() app.SchedulerConfig {
	return app.SchedulerConfig{
		Interval:      c.Interval,
		RetryDelay:    c.RetryDelay,
		MaxAttempts:   c.MaxAttempts,
		SensorTimeout: c.SensorTimeout,
		MaxPayload:    c.MaxPayload,
		Rebroadcasts:  c.Rebroadcasts,
	}
}

// DefaultStateDir returns ~/.thermoship, or .thermoship when there is no home.
func DefaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".thermoship")
	}
	return ".thermoship"
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Accepts decimal and 0x-prefixed hex. Used for environment variables.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.ParseInt(value, 0, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = int(i)
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
