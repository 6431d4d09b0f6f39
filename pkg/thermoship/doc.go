// Package thermoship provides an embeddable secure temperature beacon.
//
// A Thermoship instance samples a temperature sensor on a fixed cadence,
// encrypts each reading with AES-128-CBC and broadcasts the ciphertext as
// frames of at most 20 bytes over a non-connectable advertising channel.
//
// # Basic Usage
//
//	key, _ := thermoship.ParseKeyMaterial(keyHex, ivHex)
//
//	t, err := thermoship.New(thermoship.Config{Key: key},
//	    thermoship.WithSensor(mySensor),
//	    thermoship.WithSink(myRadio),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := t.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Close()
//
// Without WithSensor the simulated sensor is used; without WithSink frames
// are printed to stdout as hex.
//
// # Errors
//
// Fatal pipeline failures are reported through the [ErrorHandler] given to
// [WithErrorHandler] as numeric [ErrorCode] values. Retryable failures (sensor
// not ready, radio busy) are retried inside a cycle and never reported.
//
// # Lifecycle States
//
// An instance is in one of [StateStopped], [StateStarting], [StateRunning],
// [StateStopping] or [StateCrashed]. It crashes when the device cannot be
// brought up, or in once mode when the single cycle fails. Stop may be called
// from any state except Stopped; Close additionally releases the hardware.
// The [StateChangeEvent] into StateCrashed carries the failure, its
// [ErrorCode], and in its Reason the boot step that failed.
//
// # Plugins
//
// Plugins are initialized in registration order on Start and shut down in
// reverse order on Stop. They receive a [Control] to adjust the running
// pipeline, for example:
//
//	import "github.com/bft-labs/thermoship/plugins/configwatcher"
//
//	t, err := thermoship.New(cfg, configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()))
package thermoship
