// Package thermoship provides a blocking entry point for the secure
// temperature beacon.
//
// Example usage:
//
//	key, err := thermoship.ParseKeyMaterial(keyHex, ivHex)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cfg := thermoship.Config{Key: key, StateDir: "/var/lib/thermoship"}
//	if err := thermoship.Run(ctx, cfg, thermoship.WithSensor(s), thermoship.WithSink(radio)); err != nil {
//	    log.Fatal(err)
//	}
//
// Use the pkg/thermoship package for non-blocking Start/Stop control.
package thermoship

import (
	"context"
	"errors"
	"fmt"

	"github.com/bft-labs/thermoship/pkg/thermoship"
)

// Config holds the settings of the beacon.
type Config = thermoship.Config

// Option configures optional behavior.
type Option = thermoship.Option

// Re-exported options and helpers.
var (
	WithLogger          = thermoship.WithLogger
	WithSensor          = thermoship.WithSensor
	WithSink            = thermoship.WithSink
	WithErrorHandler    = thermoship.WithErrorHandler
	WithEventHandler    = thermoship.WithEventHandler
	WithStateRepository = thermoship.WithStateRepository
	WithPlugin          = thermoship.WithPlugin
	ParseKeyMaterial    = thermoship.ParseKeyMaterial
)

// Run starts the beacon and blocks until ctx is cancelled, the pipeline
// crashes, or, with cfg.Once, the single cycle has finished. The hardware
// is released before Run returns.
func Run(ctx context.Context, cfg Config, opts ...Option) error {
	t, err := thermoship.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := t.Start(ctx); err != nil {
		return errors.Join(err, t.Close())
	}

	select {
	case <-ctx.Done():
	case <-t.Done():
	}

	var runErr error
	if t.Status() == thermoship.StateCrashed {
		runErr = fmt.Errorf("thermoship crashed: %w", t.Err())
	}
	return errors.Join(runErr, t.Close())
}
