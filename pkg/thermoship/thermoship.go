package thermoship

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/bft-labs/thermoship/internal/adapters/console"
	"github.com/bft-labs/thermoship/internal/adapters/fs"
	"github.com/bft-labs/thermoship/internal/adapters/reporter"
	"github.com/bft-labs/thermoship/internal/adapters/sensor"
	"github.com/bft-labs/thermoship/internal/app"
	"github.com/bft-labs/thermoship/internal/crypto"
	"github.com/bft-labs/thermoship/internal/domain"
	"github.com/bft-labs/thermoship/internal/ports"
)

// Thermoship is a temperature beacon that can be embedded in other
// applications. Use New() to create an instance, then Start() to begin
// broadcasting.
type Thermoship struct {
	config    Config
	lifecycle *app.Lifecycle
	device    *app.Device
	reporter  *reporter.Reporter
	logger    ports.Logger
	plugins   []Plugin
	stateDir  string

	mu        sync.Mutex
	done      chan struct{}
	pluginsUp bool
	closed    bool
}

// New creates a new Thermoship instance with the given configuration.
// The instance is created in StateStopped; call Start() to begin.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Thermoship, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, _ := crypto.ParseIVMode(cfg.IVMode)

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	src := o.sensor
	if src == nil {
		src = sensor.NewSim(sensor.DefaultSimConfig())
	}
	sink := o.sink
	if sink == nil {
		sink = console.NewSink(os.Stdout, logger)
	}
	stateRepo := o.stateRepo
	if stateRepo == nil && cfg.StateDir != "" {
		stateRepo = fs.NewStateFileRepository(cfg.StateDir)
	}
	if mode == crypto.IVCounter && stateRepo == nil {
		logger.Warn("counter IV mode without state persistence: message counters restart at zero on every launch")
	}
	if mode == crypto.IVFixed {
		logger.Warn("fixed IV mode: identical readings produce identical ciphertext")
	}

	var hook func(ErrorCode)
	if o.errorHandler != nil {
		hook = o.errorHandler.Report
	}
	rep := reporter.New(logger, hook)

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	lifecycle := app.NewLifecycle(logger, emitter)

	device := app.NewDevice(cfg.Key, cfg.schedulerConfig(), app.Pipeline{
		Sensor:  src,
		Cipher:  crypto.NewEngine(mode),
		Sink:    sink,
		Handler: rep,
		State:   stateRepo,
	}, logger)
	device.Scheduler().SetObserver(emitter.onCycle)

	// The device owns the key from here on.
	cfg.Key = KeyMaterial{}

	return &Thermoship{
		config:    cfg,
		lifecycle: lifecycle,
		device:    device,
		reporter:  rep,
		logger:    logger,
		plugins:   o.plugins,
		stateDir:  cfg.StateDir,
	}, nil
}

// Start brings the device up and begins broadcasting in the background.
// It returns once plugins are initialized; hardware initialization happens
// on the worker goroutine and a failure there moves the instance to
// StateCrashed (see Err).
func (t *Thermoship) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return domain.ErrClosed
	}
	if !t.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}

	// Plugins left running by a crash are restarted from scratch.
	if t.pluginsUp {
		t.shutdownPlugins(t.plugins)
		t.pluginsUp = false
	}

	runCtx, err := t.lifecycle.Begin(ctx, "Start() called")
	if err != nil {
		return err
	}
	done := make(chan struct{})
	t.done = done

	pluginCfg := PluginConfig{
		ConfigPath: t.config.ConfigPath,
		StateDir:   t.stateDir,
		Logger:     t.logger,
		Control:    t,
	}
	if len(t.plugins) > 0 {
		t.lifecycle.Enter(app.StepPlugins)
	}
	for i, p := range t.plugins {
		if err := initializePlugin(runCtx, p, pluginCfg); err != nil {
			t.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			_ = t.lifecycle.Crash(fmt.Errorf("plugin %s: %w", p.Name(), err))
			t.shutdownPlugins(t.plugins[:i])
			close(done)
			return err
		}
		t.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}
	t.pluginsUp = true

	t.lifecycle.Go(func() {
		defer close(done)
		t.run(runCtx)
	})
	return nil
}

func (t *Thermoship) run(ctx context.Context) {
	if err := t.boot(ctx); err != nil {
		t.crash(ctx, err)
		return
	}
	if err := t.lifecycle.Ready(); err != nil {
		// Stop got there first.
		return
	}

	if !t.config.Once {
		if err := t.device.Run(ctx); err != nil {
			t.crash(ctx, err)
		}
		return
	}

	res, err := t.device.RunCycle(ctx)
	if ferr := t.device.Scheduler().Flush(context.WithoutCancel(ctx)); ferr != nil {
		t.logger.Error("failed to save state", ports.Err(ferr))
	}
	if err == nil && res.Outcome == app.OutcomeFatal {
		err = &domain.CodeError{Code: res.Code, Err: res.Err}
	}
	if err != nil {
		t.crash(ctx, err)
	}
}

// boot initializes the hardware once, restores the persisted counter and
// starts advertising. Each step is recorded so a crash names it.
func (t *Thermoship) boot(ctx context.Context) error {
	t.lifecycle.Enter(app.StepInitHardware)
	if err := t.device.InitAll(ctx); err != nil && !errors.Is(err, domain.ErrAlreadyInitialized) {
		return err
	}
	t.lifecycle.Enter(app.StepRestoreState)
	if err := t.device.Scheduler().Restore(ctx); err != nil {
		return err
	}
	t.lifecycle.Enter(app.StepAdvertise)
	return t.device.StartAdvertising(ctx)
}

func (t *Thermoship) crash(ctx context.Context, err error) {
	if ctx.Err() != nil {
		return
	}
	t.logger.Error("pipeline stopped", ports.Err(err))
	_ = t.lifecycle.Crash(err)
}

// Stop cancels the pipeline, waits for the in-flight cycle, persists state
// and shuts plugins down. Waits up to app.ShutdownTimeout before giving up.
// Returns nil on graceful shutdown, ErrShutdownTimeout if forced and
// ErrNotRunning if the instance is already stopped.
func (t *Thermoship) Stop() error {
	t.mu.Lock()

	if t.lifecycle.State() == app.StateCrashed {
		plugins := t.takePlugins()
		t.mu.Unlock()
		_ = t.lifecycle.WaitWithTimeout(app.ShutdownTimeout)
		t.shutdownPlugins(plugins)
		return nil
	}

	if !t.lifecycle.CanStop() {
		t.mu.Unlock()
		return domain.ErrNotRunning
	}

	if err := t.lifecycle.Stop("Stop() called"); err != nil {
		t.mu.Unlock()
		return err
	}
	plugins := t.takePlugins()

	t.mu.Unlock()

	return t.lifecycle.Finish(app.ShutdownTimeout, func() {
		t.shutdownPlugins(plugins)
	})
}

// Close stops the instance if needed and releases the sensor and the radio.
// A closed instance cannot be started again.
func (t *Thermoship) Close() error {
	stopErr := t.Stop()
	if errors.Is(stopErr, domain.ErrNotRunning) {
		stopErr = nil
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return stopErr
	}
	t.closed = true
	t.mu.Unlock()

	return errors.Join(stopErr, t.device.Close())
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (t *Thermoship) Status() State {
	return convertState(t.lifecycle.State())
}

// Done is closed when the worker started by the last Start exits: after
// the single cycle in once mode, on a crash, or on Stop. It is nil before
// the first Start.
func (t *Thermoship) Done() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Err returns the failure that crashed the instance, if any.
func (t *Thermoship) Err() error {
	return t.lifecycle.Err()
}

// ErrorCounts returns how often each error code has been reported.
func (t *Thermoship) ErrorCounts() map[ErrorCode]uint64 {
	return t.reporter.Counts()
}

// Interval returns the current cycle cadence.
func (t *Thermoship) Interval() time.Duration {
	return t.device.Scheduler().Interval()
}

// SetInterval changes the cycle cadence from the next tick on.
func (t *Thermoship) SetInterval(d time.Duration) error {
	return t.device.Scheduler().SetInterval(d)
}

// Stats returns a snapshot of the pipeline counters.
func (t *Thermoship) Stats() Stats {
	s := t.device.Scheduler().Stats()
	return Stats{
		Cycles:         s.Cycles,
		Successes:      s.Successes,
		Fatals:         s.Fatals,
		Retries:        s.Retries,
		DroppedTicks:   s.DroppedTicks,
		FramesSent:     s.FramesSent,
		MessageCounter: s.MessageCounter,
		Stage:          s.Stage.String(),
		LastCode:       s.LastCode,
	}
}

// takePlugins hands the running plugins to the caller for shutdown.
// Must hold t.mu.
func (t *Thermoship) takePlugins() []Plugin {
	if !t.pluginsUp {
		return nil
	}
	t.pluginsUp = false
	return t.plugins
}

// shutdownPlugins shuts plugins down in reverse order.
func (t *Thermoship) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := shutdownPlugin(ctx, p); err != nil {
			t.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
		} else {
			t.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}
}

var _ Control = (*Thermoship)(nil)
