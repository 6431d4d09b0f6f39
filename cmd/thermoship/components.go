package main

import (
	"os"

	"github.com/bft-labs/thermoship/internal/adapters/ble"
	"github.com/bft-labs/thermoship/internal/adapters/console"
	"github.com/bft-labs/thermoship/internal/adapters/sensor"
	"github.com/bft-labs/thermoship/internal/cliconfig"
	"github.com/bft-labs/thermoship/pkg/thermoship"
)

// buildSensor returns the sensor named by cfg.Sensor. cfg must be validated.
func buildSensor(cfg cliconfig.Config) thermoship.SensorSource {
	switch cfg.Sensor {
	case cliconfig.SensorSerial:
		return sensor.NewSerial(sensor.SerialConfig{
			Port:     cfg.SerialPort,
			BaudRate: cfg.SerialBaud,
			Query:    cfg.SerialQuery,
		})
	case cliconfig.SensorBME280:
		return sensor.NewBME280(sensor.BME280Config{
			Bus:  cfg.I2CBus,
			Addr: uint16(cfg.I2CAddr),
		})
	default:
		return sensor.NewSim(sensor.DefaultSimConfig())
	}
}

// buildSink returns the frame sink named by cfg.Sink. cfg must be validated.
func buildSink(cfg cliconfig.Config, logger thermoship.Logger) thermoship.TransportSink {
	if cfg.Sink == cliconfig.SinkBLE {
		return ble.NewAdvertiser(ble.Config{
			LocalName: cfg.LocalName,
			CompanyID: uint16(cfg.CompanyID),
			Interval:  cfg.AdvInterval,
			Dwell:     cfg.FrameDwell,
		}, logger)
	}
	return console.NewSink(os.Stdout, logger)
}
