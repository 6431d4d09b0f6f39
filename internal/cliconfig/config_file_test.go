package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Sensor:      "serial",
				SerialPort:  "/dev/ttyACM0",
				SerialBaud:  115200,
				Interval:    "5s",
				RetryDelay:  "50ms",
				MaxAttempts: 5,
				CompanyID:   0x0059,
				IVMode:      "counter",
				Once:        &trueVal,
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				Sensor:      "serial",
				SerialPort:  "/dev/ttyACM0",
				SerialBaud:  115200,
				Interval:    5 * time.Second,
				RetryDelay:  50 * time.Millisecond,
				MaxAttempts: 5,
				CompanyID:   0x0059,
				IVMode:      "counter",
				Once:        true,
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				Sensor:   "bme280",
				Sink:     "ble",
				Interval: "10s",
			},
			changed: map[string]bool{"sensor": true, "interval": true},
			initial: Config{
				Sensor:   "sim",
				Interval: time.Second,
			},
			expected: Config{
				Sensor:   "sim", // unchanged because flag was set
				Sink:     "ble",
				Interval: time.Second,
			},
		},
		{
			name:       "returns error for invalid duration",
			fileConfig: FileConfig{SensorTimeout: "soon"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
		{
			name: "zero values leave defaults alone",
			fileConfig: FileConfig{
				MaxPayload: 0,
				LogLevel:   "",
			},
			changed:  map[string]bool{},
			initial:  Config{MaxPayload: 18, LogLevel: "info"},
			expected: Config{MaxPayload: 18, LogLevel: "info"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr && err == nil {
				t.Error("ApplyFileConfig() expected error but got nil")
				return
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ApplyFileConfig() unexpected error: %v", err)
				return
			}

			if !tt.wantErr && cfg != tt.expected {
				t.Errorf("ApplyFileConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	tomlContent := `
sensor = "bme280"
i2c_bus = "1"
i2c_addr = 0x77
sink = "ble"
local_name = "greenhouse-3"
interval = "2s"
key_file = "/etc/thermoship/key"
iv_mode = "counter"
once = true
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.Sensor != "bme280" {
		t.Errorf("Sensor = %v, want bme280", fc.Sensor)
	}
	if fc.I2CAddr != 0x77 {
		t.Errorf("I2CAddr = %#x, want 0x77", fc.I2CAddr)
	}
	if fc.LocalName != "greenhouse-3" {
		t.Errorf("LocalName = %v, want greenhouse-3", fc.LocalName)
	}
	if fc.Interval != "2s" {
		t.Errorf("Interval = %v, want 2s", fc.Interval)
	}
	if fc.IVMode != "counter" {
		t.Errorf("IVMode = %v, want counter", fc.IVMode)
	}
	if fc.Once == nil || *fc.Once != true {
		t.Errorf("Once = %v, want true", fc.Once)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
sensor = "sim"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.Contains(path, ".thermoship") {
		t.Errorf("DefaultConfigPath() = %v, should contain .thermoship", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")
	if err := os.WriteFile(existingFile, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false for existing file")
	}
	if FileExists(filepath.Join(tmpDir, "missing.txt")) {
		t.Error("FileExists() = true for missing file")
	}
}
