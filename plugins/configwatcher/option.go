package configwatcher

import "github.com/bft-labs/thermoship/pkg/thermoship"

// WithConfigWatcher returns a thermoship Option that enables config file
// hot reload. The watched file is thermoship.Config.ConfigPath.
//
// Usage:
//
//	t, err := thermoship.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) thermoship.Option {
	plugin := New(cfg)
	return thermoship.WithPlugin(plugin)
}

// WithDefaultConfigWatcher returns a thermoship Option that enables config
// watching with default settings (debounce 100ms).
func WithDefaultConfigWatcher() thermoship.Option {
	return WithConfigWatcher(DefaultConfig())
}
