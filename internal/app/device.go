package app

import (
	"context"
	"errors"
	"sync"

	"github.com/bft-labs/thermoship/internal/domain"
	"github.com/bft-labs/thermoship/internal/ports"
)

// Device owns the pipeline components and their one-time initialization.
type Device struct {
	p         Pipeline
	logger    ports.Logger
	scheduler *Scheduler

	mu          sync.Mutex
	key         domain.KeyMaterial
	cipherReady bool
	sensorReady bool
	sinkReady   bool
	initialized bool
	advertising bool
	closed      bool
}

// NewDevice creates a device. key is handed to the cipher by InitAll and
// then cleared.
func NewDevice(key domain.KeyMaterial, cfg SchedulerConfig, p Pipeline, logger ports.Logger) *Device {
	return &Device{
		p:         p,
		logger:    logger,
		key:       key,
		scheduler: NewScheduler(cfg, p, logger),
	}
}

// Scheduler returns the telemetry scheduler.
func (d *Device) Scheduler() *Scheduler { return d.scheduler }

// Initialized reports whether InitAll succeeded.
func (d *Device) Initialized() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.initialized
}

// InitAll initializes the cipher, the sensor and the sink in that order.
// The first failure is reported and returned as *domain.CodeError; a later
// call resumes at the component that failed. Once InitAll has succeeded,
// further calls return domain.ErrAlreadyInitialized and change nothing.
func (d *Device) InitAll(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return domain.ErrClosed
	}
	if d.initialized {
		return domain.ErrAlreadyInitialized
	}

	if !d.cipherReady {
		if err := d.p.Cipher.Init(d.key.Key[:], d.key.IV[:]); err != nil {
			return d.fail(domain.CodeEncryptionInit, err)
		}
		d.cipherReady = true
		d.key = domain.KeyMaterial{}
	}

	if !d.sensorReady {
		if err := d.p.Sensor.Init(ctx); err != nil {
			return d.fail(domain.CodeSensorInit, err)
		}
		d.sensorReady = true
	}

	if !d.sinkReady {
		if err := d.p.Sink.Init(ctx); err != nil {
			return d.fail(domain.CodeTransportInit, err)
		}
		d.sinkReady = true
	}

	d.initialized = true
	d.logger.Info("device initialized")
	return nil
}

// StartAdvertising starts the sink broadcasting. It is a no-op once
// advertising has started.
func (d *Device) StartAdvertising(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.usableLocked(); err != nil {
		return err
	}
	if d.advertising {
		return nil
	}
	if err := d.p.Sink.StartAdvertising(ctx); err != nil {
		return d.fail(domain.CodeTransportAdvertiseStart, err)
	}
	d.advertising = true
	return nil
}

// RunCycle runs one telemetry cycle.
func (d *Device) RunCycle(ctx context.Context) (CycleResult, error) {
	if err := d.usable(); err != nil {
		return CycleResult{}, err
	}
	return d.scheduler.RunCycle(ctx), nil
}

// Run drives cycles until ctx is cancelled.
func (d *Device) Run(ctx context.Context) error {
	if err := d.usable(); err != nil {
		return err
	}
	return d.scheduler.Run(ctx)
}

func (d *Device) usable() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.usableLocked()
}

func (d *Device) usableLocked() error {
	if d.closed {
		return domain.ErrClosed
	}
	if !d.initialized {
		return domain.ErrNotInitialized
	}
	return nil
}

// Close releases the sensor and the sink. After Close the device cannot be
// initialized or run again; further calls to Close do nothing.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	var errs []error
	if d.sinkReady {
		if err := d.p.Sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if d.sensorReady {
		if err := d.p.Sensor.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.sinkReady = false
	d.sensorReady = false
	d.initialized = false
	d.advertising = false
	return errors.Join(errs...)
}

func (d *Device) fail(code domain.ErrorCode, err error) error {
	d.logger.Error("initialization failed",
		ports.String("code", code.String()),
		ports.Err(err),
	)
	d.p.Handler.Report(code)
	return &domain.CodeError{Code: code, Err: err}
}
