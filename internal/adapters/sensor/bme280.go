package sensor

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/juju/errors"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/devices/bmxx80"
	"periph.io/x/periph/host"

	"github.com/bft-labs/thermoship/internal/domain"
)

// DefaultBME280Addr is the chip address with SDO pulled low.
const DefaultBME280Addr = 0x76

// Measurable range of the BME280 temperature channel.
const (
	bme280MinCelsius = -40.0
	bme280MaxCelsius = 85.0
)

// BME280Config selects the I2C bus and address.
type BME280Config struct {
	Bus  string // i2creg bus name, empty for the first bus
	Addr uint16
}

// environmentSensor is the part of *bmxx80.Dev used here.
type environmentSensor interface {
	Sense(e *physic.Env) error
	Halt() error
}

// bme280Hardware is what Init opens. Tests inject it directly.
type bme280Hardware struct {
	dev environmentSensor
	bus io.Closer
}

// BME280 reads a Bosch BME280/BMP280 over I2C through periph.
type BME280 struct {
	cfg    BME280Config
	testhw *bme280Hardware
	now    func() time.Time

	mu sync.Mutex
	hw *bme280Hardware
}

// NewBME280 creates an I2C sensor source.
func NewBME280(cfg BME280Config) *BME280 {
	if cfg.Addr == 0 {
		cfg.Addr = DefaultBME280Addr
	}
	return &BME280{cfg: cfg, now: time.Now}
}

// Init brings up the periph host drivers, opens the bus and probes the chip.
func (b *BME280) Init(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.testhw != nil {
		b.hw = b.testhw
		return nil
	}

	if _, err := host.Init(); err != nil {
		return domain.NewSensorError(domain.SensorHardwareFault, errors.Annotate(err, "periph/init"))
	}
	bus, err := i2creg.Open(b.cfg.Bus)
	if err != nil {
		return domain.NewSensorError(domain.SensorHardwareFault,
			errors.Annotatef(err, "I2C open bus=%s", b.cfg.Bus))
	}
	dev, err := bmxx80.NewI2C(bus, b.cfg.Addr, &bmxx80.DefaultOpts)
	if err != nil {
		bus.Close()
		return domain.NewSensorError(domain.SensorHardwareFault,
			errors.Annotatef(err, "bmxx80 probe addr=%#x", b.cfg.Addr))
	}
	b.hw = &bme280Hardware{dev: dev, bus: bus}
	return nil
}

// Read takes one forced measurement. A failed bus transfer is SensorNotReady;
// a value outside the chip's range is a hardware fault.
func (b *BME280) Read(ctx context.Context) (domain.Sample, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hw == nil {
		return domain.Sample{}, domain.NewSensorError(domain.SensorHardwareFault, errors.New("bme280 not initialized"))
	}

	var env physic.Env
	if err := b.hw.dev.Sense(&env); err != nil {
		return domain.Sample{}, domain.NewSensorError(domain.SensorNotReady, errors.Annotate(err, "bmxx80 sense"))
	}

	c := celsius(env.Temperature)
	if c < bme280MinCelsius || c > bme280MaxCelsius {
		return domain.Sample{}, domain.NewSensorError(domain.SensorHardwareFault,
			errors.Errorf("temperature %.2fC out of range", c))
	}
	return domain.Sample{TemperatureCelsius: c, TimestampMS: b.now().UnixMilli()}, nil
}

// Close halts the chip and closes the bus.
func (b *BME280) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.hw == nil {
		return nil
	}
	hw := b.hw
	b.hw = nil

	err := hw.dev.Halt()
	if hw.bus != nil {
		if cerr := hw.bus.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func celsius(t physic.Temperature) float64 {
	return float64(t-physic.ZeroCelsius) / float64(physic.Kelvin)
}
