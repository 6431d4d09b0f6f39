// Package domain contains the core domain entities and value objects for thermoship.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (radio, sensors, file system,
// logging) and contains only pure business logic.
//
// # Entities
//
//   - [Sample]: A single temperature reading with its timestamp
//   - [KeyMaterial]: The AES key and IV handed to the cipher engine at startup
//   - [Frame]: One transport frame of at most 20 bytes on the wire
//   - [State]: Persistent device state (IV message counter, cycle totals)
//
// # Errors
//
// Component failures are tagged error types ([SensorError], [SinkError]) and
// cipher sentinels. They are folded into an [ErrorCode] only at the error
// handler boundary, where the firmware's numeric codes are preserved.
package domain
