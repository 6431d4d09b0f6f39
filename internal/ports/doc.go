// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// In Clean Architecture / Hexagonal Architecture, ports are the boundaries
// between the application core and the outside world. They define what the
// application needs from external systems without specifying how those needs
// are fulfilled.
//
// # Port Interfaces
//
//   - [SensorSource]: Produces one temperature sample per cycle
//   - [TransportSink]: Broadcasts frames of at most 20 bytes
//   - [ErrorHandler]: Process-wide fatal error reporting
//   - [StateRepository]: Persists and loads device state
//   - [Cipher]: Encrypts plaintext for broadcast
//   - [Logger]: Structured logging
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement these interfaces
// with concrete implementations (serial port, I2C, BLE radio, console, etc.).
package ports
