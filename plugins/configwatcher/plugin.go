// Package configwatcher provides config file hot reload for thermoship.
// When enabled, it watches the TOML config file the instance was started
// from and applies interval and log_level changes without a restart.
package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/thermoship/internal/cliconfig"
	"github.com/bft-labs/thermoship/pkg/log"
	"github.com/bft-labs/thermoship/pkg/thermoship"
)

// Error codes for config file issues.
const (
	ErrCodeFileNotFound     = "FILE_NOT_FOUND"
	ErrCodePermissionDenied = "PERMISSION_DENIED"
	ErrCodeReadError        = "READ_ERROR"
)

// Plugin implements config watching functionality.
// Only fields that changed in the file since the last read are applied, so
// values set by flags or the environment stay in force until the file
// itself changes them.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	debounceDelay time.Duration

	// Runtime state
	path     string
	logger   thermoship.Logger
	control  thermoship.Control
	last     cliconfig.FileConfig
	reloads  int
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize records the current file contents and starts the watcher.
func (p *Plugin) Initialize(ctx context.Context, cfg thermoship.PluginConfig) error {
	p.mu.Lock()
	p.path = cfg.ConfigPath
	p.logger = cfg.Logger
	p.control = cfg.Control
	p.mu.Unlock()

	if p.logger == nil {
		p.logger = log.Discard
	}
	if p.path == "" || p.control == nil {
		p.logger.Warn("Config watcher disabled: no config file")
		return nil
	}

	if fc, err := cliconfig.LoadFileConfig(p.path); err == nil {
		p.last = fc
	} else {
		p.logger.Warn("Config watcher: initial read failed",
			log.String("path", p.path),
			log.String("reason", p.errorToCode(err)))
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory so editors that replace the file are seen.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("Config watcher plugin initialized", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Reloads returns how many times the file has been re-read.
func (p *Plugin) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

// watchLoop watches for config file changes.
func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.debounceReload(ctx, p.debounceDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("Config watcher: watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context, delay time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

// reload re-reads the file and applies what changed since the last read.
func (p *Plugin) reload() {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		p.logger.Error("Config watcher: reload failed",
			log.String("path", p.path),
			log.String("reason", p.errorToCode(err)),
			log.Err(err))
		return
	}

	p.mu.Lock()
	prev := p.last
	p.last = fc
	p.reloads++
	p.mu.Unlock()

	if fc.Interval != prev.Interval && fc.Interval != "" {
		d, err := time.ParseDuration(fc.Interval)
		if err == nil {
			err = p.control.SetInterval(d)
		}
		if err != nil {
			p.logger.Error("Config watcher: interval not applied", log.String("interval", fc.Interval), log.Err(err))
		} else {
			p.logger.Info("Config watcher: interval applied", log.Duration("interval", d))
		}
	}

	if fc.LogLevel != prev.LogLevel && fc.LogLevel != "" {
		if err := log.SetGlobalLevel(fc.LogLevel); err != nil {
			p.logger.Error("Config watcher: log level not applied", log.String("log_level", fc.LogLevel), log.Err(err))
		} else {
			p.logger.Info("Config watcher: log level applied", log.String("log_level", fc.LogLevel))
		}
	}

	if keyChanged(prev, fc) {
		p.logger.Warn("Config watcher: key settings changed; restart to apply")
	}
	if fields := restartFields(prev, fc); len(fields) > 0 {
		p.logger.Warn("Config watcher: settings need a restart",
			log.String("fields", strings.Join(fields, ",")))
	}
}

func keyChanged(a, b cliconfig.FileConfig) bool {
	return a.KeyHex != b.KeyHex || a.IVHex != b.IVHex || a.KeyFile != b.KeyFile || a.IVMode != b.IVMode
}

// restartFields lists changed settings that only take effect on restart.
func restartFields(a, b cliconfig.FileConfig) []string {
	var out []string
	check := func(name string, changed bool) {
		if changed {
			out = append(out, name)
		}
	}
	check("sensor", a.Sensor != b.Sensor)
	check("serial_port", a.SerialPort != b.SerialPort)
	check("serial_baud", a.SerialBaud != b.SerialBaud)
	check("serial_query", a.SerialQuery != b.SerialQuery)
	check("i2c_bus", a.I2CBus != b.I2CBus)
	check("i2c_addr", a.I2CAddr != b.I2CAddr)
	check("sink", a.Sink != b.Sink)
	check("local_name", a.LocalName != b.LocalName)
	check("company_id", a.CompanyID != b.CompanyID)
	check("adv_interval", a.AdvInterval != b.AdvInterval)
	check("frame_dwell", a.FrameDwell != b.FrameDwell)
	check("retry_delay", a.RetryDelay != b.RetryDelay)
	check("max_attempts", a.MaxAttempts != b.MaxAttempts)
	check("max_payload", a.MaxPayload != b.MaxPayload)
	check("sensor_timeout", a.SensorTimeout != b.SensorTimeout)
	check("rebroadcasts", a.Rebroadcasts != b.Rebroadcasts)
	check("state_dir", a.StateDir != b.StateDir)
	return out
}

func (p *Plugin) errorToCode(err error) string {
	if os.IsNotExist(err) {
		return ErrCodeFileNotFound
	}
	if os.IsPermission(err) {
		return ErrCodePermissionDenied
	}
	if strings.Contains(err.Error(), "permission denied") {
		return ErrCodePermissionDenied
	}
	return ErrCodeReadError
}

// Ensure Plugin implements thermoship.Plugin.
var _ thermoship.Plugin = (*Plugin)(nil)
