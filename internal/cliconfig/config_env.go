package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "THERMOSHIP_"

// ApplyEnvConfig applies THERMOSHIP_* environment variables to cfg.
// Flags that have been explicitly set (changed map) are left alone.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("sensor", env("SENSOR"), &cfg.Sensor)
	s.setString("serial-port", env("SERIAL_PORT"), &cfg.SerialPort)
	s.setString("serial-query", env("SERIAL_QUERY"), &cfg.SerialQuery)
	s.setString("i2c-bus", env("I2C_BUS"), &cfg.I2CBus)
	s.setString("sink", env("SINK"), &cfg.Sink)
	s.setString("local-name", env("LOCAL_NAME"), &cfg.LocalName)
	s.setString("key-hex", env("KEY_HEX"), &cfg.KeyHex)
	s.setString("iv-hex", env("IV_HEX"), &cfg.IVHex)
	s.setString("key-file", env("KEY_FILE"), &cfg.KeyFile)
	s.setString("iv-mode", env("IV_MODE"), &cfg.IVMode)
	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("adv-interval", env("ADV_INTERVAL"), &cfg.AdvInterval); err != nil {
		return err
	}
	if err := s.setDuration("frame-dwell", env("FRAME_DWELL"), &cfg.FrameDwell); err != nil {
		return err
	}
	if err := s.setDuration("interval", env("INTERVAL"), &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("retry-delay", env("RETRY_DELAY"), &cfg.RetryDelay); err != nil {
		return err
	}
	if err := s.setDuration("sensor-timeout", env("SENSOR_TIMEOUT"), &cfg.SensorTimeout); err != nil {
		return err
	}

	if err := s.setIntFromString("serial-baud", env("SERIAL_BAUD"), &cfg.SerialBaud); err != nil {
		return err
	}
	if err := s.setIntFromString("i2c-addr", env("I2C_ADDR"), &cfg.I2CAddr); err != nil {
		return err
	}
	if err := s.setIntFromString("company-id", env("COMPANY_ID"), &cfg.CompanyID); err != nil {
		return err
	}
	if err := s.setIntFromString("max-attempts", env("MAX_ATTEMPTS"), &cfg.MaxAttempts); err != nil {
		return err
	}
	if err := s.setIntFromString("max-payload", env("MAX_PAYLOAD"), &cfg.MaxPayload); err != nil {
		return err
	}
	if err := s.setIntFromString("rebroadcasts", env("REBROADCASTS"), &cfg.Rebroadcasts); err != nil {
		return err
	}

	s.setBoolFromString("once", env("ONCE"), &cfg.Once)

	return nil
}
