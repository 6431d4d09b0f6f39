package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/thermoship/internal/cliconfig"
	"github.com/bft-labs/thermoship/pkg/log"
	"github.com/bft-labs/thermoship/pkg/thermoship"
	"github.com/bft-labs/thermoship/plugins/configwatcher"
)

const helpDescription = `
Broadcast encrypted temperature readings as BLE advertisements.

Every interval the agent samples the sensor, encrypts the reading with
AES-128-CBC and broadcasts the ciphertext as frames of at most 20 bytes.
Transient failures are retried; persistent ones are reported by code.

Configure via file ($HOME/.thermoship/config.toml), THERMOSHIP_* env or flags.
`

var exampleUsage = strings.TrimSpace(`
  thermoship --key-file /etc/thermoship/key --sensor bme280 --sink ble
  thermoship --config $HOME/.thermoship/config.toml --once
  thermoship decode --key-file /etc/thermoship/key 0002<hex> 0102<hex>
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	bootLog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	root := &cobra.Command{
		Use:          "thermoship",
		Short:        "Broadcast encrypted temperature readings over BLE",
		Long:         strings.TrimSpace(helpDescription),
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := loadConfig(cmd, cfgPath, &cfg)
			if err != nil {
				return err
			}
			return run(cfg, cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.thermoship/config.toml)")
	root.PersistentFlags().StringVar(&cfg.KeyHex, "key-hex", cfg.KeyHex, "AES-128 key as 32 hex digits")
	root.PersistentFlags().StringVar(&cfg.IVHex, "iv-hex", cfg.IVHex, "CBC IV as 32 hex digits")
	root.PersistentFlags().StringVar(&cfg.KeyFile, "key-file", cfg.KeyFile, "file holding the key and IV as two hex lines")
	root.PersistentFlags().StringVar(&cfg.IVMode, "iv-mode", cfg.IVMode, "IV policy: fixed or counter")
	root.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (trace, debug, info, warn, error)")

	root.Flags().StringVar(&cfg.Sensor, "sensor", cfg.Sensor, "sensor: sim, serial or bme280")
	root.Flags().StringVar(&cfg.SerialPort, "serial-port", cfg.SerialPort, "serial device of the thermometer")
	root.Flags().IntVar(&cfg.SerialBaud, "serial-baud", cfg.SerialBaud, "serial baud rate")
	root.Flags().StringVar(&cfg.SerialQuery, "serial-query", cfg.SerialQuery, "command written before each serial read")
	root.Flags().StringVar(&cfg.I2CBus, "i2c-bus", cfg.I2CBus, "I2C bus of the BME280 (default: first bus)")
	root.Flags().IntVar(&cfg.I2CAddr, "i2c-addr", cfg.I2CAddr, "I2C address of the BME280")

	root.Flags().StringVar(&cfg.Sink, "sink", cfg.Sink, "frame sink: ble or console")
	root.Flags().StringVar(&cfg.LocalName, "local-name", cfg.LocalName, "BLE local name")
	root.Flags().IntVar(&cfg.CompanyID, "company-id", cfg.CompanyID, "BLE manufacturer company id")
	root.Flags().DurationVar(&cfg.AdvInterval, "adv-interval", cfg.AdvInterval, "BLE advertising interval")
	root.Flags().DurationVar(&cfg.FrameDwell, "frame-dwell", cfg.FrameDwell, "time each frame stays on air")

	root.Flags().DurationVar(&cfg.Interval, "interval", cfg.Interval, "cycle interval")
	root.Flags().DurationVar(&cfg.RetryDelay, "retry-delay", cfg.RetryDelay, "pause before retrying a failed attempt")
	root.Flags().IntVar(&cfg.MaxAttempts, "max-attempts", cfg.MaxAttempts, "attempts per cycle")
	root.Flags().DurationVar(&cfg.SensorTimeout, "sensor-timeout", cfg.SensorTimeout, "sensor read timeout")
	root.Flags().IntVar(&cfg.MaxPayload, "max-payload", cfg.MaxPayload, "ciphertext bytes per frame (max 18)")
	root.Flags().IntVar(&cfg.Rebroadcasts, "rebroadcasts", cfg.Rebroadcasts, "times each frame set is sent")

	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory for state.json (default: $HOME/.thermoship)")
	root.Flags().BoolVar(&cfg.Once, "once", cfg.Once, "run one cycle and exit")

	root.AddCommand(newSelfTestCmd(&cfg, &cfgPath), newDecodeCmd(&cfg, &cfgPath))

	if err := root.Execute(); err != nil {
		bootLog.Error().Err(err).Msg("thermoship")
		os.Exit(1)
	}
}

// loadConfig layers file and environment values under explicitly set flags
// and validates the result. It returns the config file that was read, if any.
func loadConfig(cmd *cobra.Command, cfgPath string, cfg *cliconfig.Config) (string, error) {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	// Build set of changed flags
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return "", err
		}
	} else {
		cfgFile = ""
	}

	// THERMOSHIP_* override file config but not flags.
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return "", err
	}

	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return cfgFile, nil
}

func newLogger(cfg cliconfig.Config) (*log.ZerologAdapter, error) {
	return log.NewZerologAdapter(log.Options{
		Level:  cfg.LogLevel,
		BootID: uuid.NewString(),
	})
}

func run(cfg cliconfig.Config, cfgFile string) error {
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	zl := logger.Logger()

	// Log configuration (masking key material)
	logCfg := cfg
	if logCfg.KeyHex != "" {
		logCfg.KeyHex = "*****"
	}
	if logCfg.IVHex != "" {
		logCfg.IVHex = "*****"
	}
	zl.Info().Interface("config", logCfg).Str("config_file", cfgFile).Msg("configuration")

	key, err := cliconfig.LoadKeyMaterial(cfg)
	if err != nil {
		return err
	}

	t, err := thermoship.New(thermoship.Config{
		Key:           key,
		IVMode:        cfg.IVMode,
		Interval:      cfg.Interval,
		RetryDelay:    cfg.RetryDelay,
		MaxAttempts:   cfg.MaxAttempts,
		SensorTimeout: cfg.SensorTimeout,
		MaxPayload:    cfg.MaxPayload,
		Rebroadcasts:  cfg.Rebroadcasts,
		StateDir:      cfg.StateDir,
		ConfigPath:    cfgFile,
		Once:          cfg.Once,
	},
		thermoship.WithLogger(logger),
		thermoship.WithSensor(buildSensor(cfg)),
		thermoship.WithSink(buildSink(cfg, logger)),
		configwatcher.WithConfigWatcher(configwatcher.DefaultConfig()),
	)
	if err != nil {
		return fmt.Errorf("create thermoship: %w", err)
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := t.Start(ctx); err != nil {
		_ = t.Close()
		return fmt.Errorf("start thermoship: %w", err)
	}

	// Wait for signal or completion (once mode or crash)
	select {
	case <-sigCh:
		zl.Info().Msg("received signal, stopping...")
	case <-t.Done():
	}

	var runErr error
	if t.Status() == thermoship.StateCrashed {
		runErr = fmt.Errorf("thermoship crashed: %w", t.Err())
	}

	stats := t.Stats()
	zl.Info().
		Uint64("cycles", stats.Cycles).
		Uint64("successes", stats.Successes).
		Uint64("fatals", stats.Fatals).
		Uint64("dropped_ticks", stats.DroppedTicks).
		Msg("shutting down")

	if err := t.Close(); err != nil && !errors.Is(err, thermoship.ErrNotRunning) {
		runErr = errors.Join(runErr, fmt.Errorf("stop thermoship: %w", err))
	}
	return runErr
}
