// Package sensor implements ports.SensorSource for the supported thermometers:
// a line-oriented serial device, a Bosch BME280/BMP280 on I2C and a simulator.
//
// Every Read failure is a *domain.SensorError. Driver errors are annotated
// and kept as the cause.
package sensor
