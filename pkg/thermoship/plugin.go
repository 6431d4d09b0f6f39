package thermoship

import (
	"context"
	"fmt"
	"time"
)

// Plugin extends a Thermoship instance with optional behavior.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize is called by Start before the pipeline runs. ctx is
	// cancelled when the instance stops. An error aborts Start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called by Stop in reverse registration order.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to Plugin.Initialize.
type PluginConfig struct {
	ConfigPath string
	StateDir   string
	Logger     Logger
	Control    Control
}

// Control adjusts a running pipeline.
type Control interface {
	Interval() time.Duration
	SetInterval(d time.Duration) error
	Stats() Stats
}

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Cycles         uint64
	Successes      uint64
	Fatals         uint64
	Retries        uint64
	DroppedTicks   uint64
	FramesSent     uint64
	MessageCounter uint32
	Stage          string
	LastCode       ErrorCode
}

// BasePlugin implements Plugin with no-ops. Embed it and override what the
// plugin needs.
type BasePlugin struct{}

func (BasePlugin) Name() string                                           { return "plugin" }
func (BasePlugin) Initialize(ctx context.Context, cfg PluginConfig) error { return nil }
func (BasePlugin) Shutdown(ctx context.Context) error                     { return nil }

// initializePlugin calls p.Initialize, turning a panic into an error.
func initializePlugin(ctx context.Context, p Plugin, cfg PluginConfig) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked during initialization: %v", p.Name(), r)
		}
	}()
	return p.Initialize(ctx, cfg)
}

// shutdownPlugin calls p.Shutdown, turning a panic into an error.
func shutdownPlugin(ctx context.Context, p Plugin) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin %s panicked during shutdown: %v", p.Name(), r)
		}
	}()
	return p.Shutdown(ctx)
}
