package thermoship

import (
	"fmt"
	"time"

	"github.com/bft-labs/thermoship/internal/app"
	"github.com/bft-labs/thermoship/internal/crypto"
	"github.com/bft-labs/thermoship/internal/domain"
)

// Config holds the settings of one Thermoship instance.
// Zero values take defaults in SetDefaults.
type Config struct {
	// Key is the AES-128 key and IV. Required.
	Key KeyMaterial

	// IVMode is "fixed" (default) or "counter".
	IVMode string

	// Interval is the cycle cadence. Default: 1s.
	Interval time.Duration

	// RetryDelay is the pause before a retryable failure is retried.
	// Default: 100ms.
	RetryDelay time.Duration

	// MaxAttempts caps the attempts of one cycle. Default: 3.
	MaxAttempts int

	// SensorTimeout bounds one sensor read. Default: 500ms.
	SensorTimeout time.Duration

	// MaxPayload is the ciphertext carried per frame, at most 18 bytes.
	MaxPayload int

	// Rebroadcasts is how many times each frame set is sent. Default: 1.
	Rebroadcasts int

	// StateDir holds state.json when no StateRepository option is given.
	// Empty disables persistence.
	StateDir string

	// ConfigPath is the file the instance was configured from, if any.
	// It is passed to plugins.
	ConfigPath string

	// Once runs a single cycle and then idles until Stop.
	Once bool
}

// SetDefaults fills zero fields with default values.
func (c *Config) SetDefaults() {
	d := app.DefaultSchedulerConfig()
	if c.IVMode == "" {
		c.IVMode = crypto.IVFixed.String()
	}
	if c.Interval == 0 {
		c.Interval = d.Interval
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = d.RetryDelay
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.SensorTimeout == 0 {
		c.SensorTimeout = d.SensorTimeout
	}
	if c.MaxPayload == 0 {
		c.MaxPayload = d.MaxPayload
	}
	if c.Rebroadcasts == 0 {
		c.Rebroadcasts = d.Rebroadcasts
	}
}

// Validate checks the configuration. Call SetDefaults first.
func (c Config) Validate() error {
	if c.Key.IsZero() {
		return fmt.Errorf("%w: key material is required", domain.ErrInvalidConfig)
	}
	if _, err := crypto.ParseIVMode(c.IVMode); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", domain.ErrInvalidConfig)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay must not be negative", domain.ErrInvalidConfig)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1", domain.ErrInvalidConfig)
	}
	if c.SensorTimeout <= 0 {
		return fmt.Errorf("%w: sensor timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.MaxPayload < 1 || c.MaxPayload > domain.MaxFramePayload {
		return fmt.Errorf("%w: max payload must be between 1 and %d", domain.ErrInvalidConfig, domain.MaxFramePayload)
	}
	if c.Rebroadcasts < 1 {
		return fmt.Errorf("%w: rebroadcasts must be at least 1", domain.ErrInvalidConfig)
	}
	return nil
}

func (c Config) schedulerConfig() app.SchedulerConfig {
	return app.SchedulerConfig{
		Interval:      c.Interval,
		RetryDelay:    c.RetryDelay,
		MaxAttempts:   c.MaxAttempts,
		SensorTimeout: c.SensorTimeout,
		MaxPayload:    c.MaxPayload,
		Rebroadcasts:  c.Rebroadcasts,
	}
}
