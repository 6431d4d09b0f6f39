package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Sensor      string `toml:"sensor"`
	SerialPort  string `toml:"serial_port"`
	SerialBaud  int    `toml:"serial_baud"`
	SerialQuery string `toml:"serial_query"`
	I2CBus      string `toml:"i2c_bus"`
	I2CAddr     int    `toml:"i2c_addr"`

	Sink        string `toml:"sink"`
	LocalName   string `toml:"local_name"`
	CompanyID   int    `toml:"company_id"`
	AdvInterval string `toml:"adv_interval"`
	FrameDwell  string `toml:"frame_dwell"`

	KeyHex  string `toml:"key_hex"`
	IVHex   string `toml:"iv_hex"`
	KeyFile string `toml:"key_file"`
	IVMode  string `toml:"iv_mode"`

	Interval      string `toml:"interval"`
	RetryDelay    string `toml:"retry_delay"`
	MaxAttempts   int    `toml:"max_attempts"`
	SensorTimeout string `toml:"sensor_timeout"`
	MaxPayload    int    `toml:"max_payload"`
	Rebroadcasts  int    `toml:"rebroadcasts"`

	StateDir string `toml:"state_dir"`
	LogLevel string `toml:"log_level"`
	Once     *bool  `toml:"once"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.thermoship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".thermoship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("sensor", fc.Sensor, &cfg.Sensor)
	s.setString("serial-port", fc.SerialPort, &cfg.SerialPort)
	s.setString("serial-query", fc.SerialQuery, &cfg.SerialQuery)
	s.setString("i2c-bus", fc.I2CBus, &cfg.I2CBus)
	s.setString("sink", fc.Sink, &cfg.Sink)
	s.setString("local-name", fc.LocalName, &cfg.LocalName)
	s.setString("key-hex", fc.KeyHex, &cfg.KeyHex)
	s.setString("iv-hex", fc.IVHex, &cfg.IVHex)
	s.setString("key-file", fc.KeyFile, &cfg.KeyFile)
	s.setString("iv-mode", fc.IVMode, &cfg.IVMode)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"adv-interval", fc.AdvInterval, &cfg.AdvInterval},
		{"frame-dwell", fc.FrameDwell, &cfg.FrameDwell},
		{"interval", fc.Interval, &cfg.Interval},
		{"retry-delay", fc.RetryDelay, &cfg.RetryDelay},
		{"sensor-timeout", fc.SensorTimeout, &cfg.SensorTimeout},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("serial-baud", fc.SerialBaud, &cfg.SerialBaud)
	s.setInt("i2c-addr", fc.I2CAddr, &cfg.I2CAddr)
	s.setInt("company-id", fc.CompanyID, &cfg.CompanyID)
	s.setInt("max-attempts", fc.MaxAttempts, &cfg.MaxAttempts)
	s.setInt("max-payload", fc.MaxPayload, &cfg.MaxPayload)
	s.setInt("rebroadcasts", fc.Rebroadcasts, &cfg.Rebroadcasts)

	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
