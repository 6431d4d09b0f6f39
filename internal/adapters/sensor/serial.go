package sensor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"
	"go.bug.st/serial"

	"github.com/bft-labs/thermoship/internal/domain"
)

// SerialPorter is the part of serial.Port the thermometer needs.
type SerialPorter interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// PortOpener opens a serial port. Tests replace it.
type PortOpener func(name string, mode *serial.Mode) (SerialPorter, error)

func openSerial(name string, mode *serial.Mode) (SerialPorter, error) {
	return serial.Open(name, mode)
}

// SerialConfig describes a serial thermometer that answers Query with one
// line holding a Celsius value, e.g. "23.50", "T=23.50" or "23.50C".
type SerialConfig struct {
	Port        string
	BaudRate    int
	Query       string // written before each read, empty for free-running devices
	ReadTimeout time.Duration
}

// Serial reads temperature lines from a serial device.
type Serial struct {
	cfg  SerialConfig
	open PortOpener
	now  func() time.Time

	mu      sync.Mutex
	port    SerialPorter
	pending []byte
}

// NewSerial creates a serial thermometer source.
func NewSerial(cfg SerialConfig) *Serial {
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 9600
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 200 * time.Millisecond
	}
	return &Serial{cfg: cfg, open: openSerial, now: time.Now}
}

// Init opens the port.
func (s *Serial) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode := &serial.Mode{
		BaudRate: s.cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := s.open(s.cfg.Port, mode)
	if err != nil {
		return domain.NewSensorError(domain.SensorHardwareFault,
			errors.Annotatef(err, "serial open port=%s", s.cfg.Port))
	}
	if err := port.SetReadTimeout(s.cfg.ReadTimeout); err != nil {
		port.Close()
		return domain.NewSensorError(domain.SensorHardwareFault,
			errors.Annotate(err, "serial set read timeout"))
	}
	s.port = port
	return nil
}

// Read queries the device and parses one line.
// A silent device or a garbled line is SensorNotReady; an I/O failure is a
// hardware fault.
func (s *Serial) Read(ctx context.Context) (domain.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port == nil {
		return domain.Sample{}, domain.NewSensorError(domain.SensorHardwareFault, errors.New("serial port not open"))
	}

	if s.cfg.Query != "" {
		s.pending = s.pending[:0]
		if err := s.port.ResetInputBuffer(); err != nil {
			return domain.Sample{}, domain.NewSensorError(domain.SensorHardwareFault,
				errors.Annotate(err, "serial reset input"))
		}
		if _, err := s.port.Write([]byte(s.cfg.Query)); err != nil {
			return domain.Sample{}, domain.NewSensorError(domain.SensorHardwareFault,
				errors.Annotate(err, "serial write query"))
		}
	}

	line, err := s.readLine(ctx)
	if err != nil {
		return domain.Sample{}, err
	}
	celsius, err := ParseCelsius(line)
	if err != nil {
		return domain.Sample{}, domain.NewSensorError(domain.SensorNotReady, err)
	}
	return domain.Sample{TemperatureCelsius: celsius, TimestampMS: s.now().UnixMilli()}, nil
}

// readLine returns the next non-empty line. Bytes after the newline are kept
// for the next call.
func (s *Serial) readLine(ctx context.Context) (string, error) {
	buf := make([]byte, 64)
	for {
		if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
			line := strings.TrimSpace(string(s.pending[:i]))
			s.pending = append(s.pending[:0], s.pending[i+1:]...)
			if line == "" {
				continue
			}
			return line, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}

		n, err := s.port.Read(buf)
		if err != nil {
			return "", domain.NewSensorError(domain.SensorHardwareFault, errors.Annotate(err, "serial read"))
		}
		if n == 0 {
			// Read timeout with no data.
			return "", domain.NewSensorError(domain.SensorNotReady, errors.New("serial device silent"))
		}
		s.pending = append(s.pending, buf[:n]...)
	}
}

// Close closes the port.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

// ParseCelsius parses a thermometer line such as "23.5", "T=23.5" or "23.5C".
func ParseCelsius(line string) (float64, error) {
	v := strings.TrimSpace(line)
	if i := strings.IndexAny(v, "=:"); i >= 0 {
		v = v[i+1:]
	}
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, "C")
	v = strings.TrimSuffix(v, "°")
	v = strings.TrimSpace(v)
	c, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("unparsable temperature line %q", line)
	}
	return c, nil
}
