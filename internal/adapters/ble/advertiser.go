// Package ble broadcasts frames as BLE non-connectable advertisements.
//
// Each frame is carried whole in the manufacturer specific data of one
// advertisement and kept on air for the configured dwell time before the
// next frame replaces it. The frame advertisement carries no local name so
// flags, manufacturer header and a 20-byte frame fit the 31-byte legacy
// advertising payload.
package ble

import (
	"context"
	"sync"
	"time"

	"github.com/juju/errors"
	"tinygo.org/x/bluetooth"

	"github.com/bft-labs/thermoship/internal/domain"
	"github.com/bft-labs/thermoship/internal/ports"
)

// Defaults for the advertising parameters.
const (
	DefaultCompanyID = 0xFFFF // reserved for testing by the Bluetooth SIG
	DefaultInterval  = 100 * time.Millisecond
	DefaultDwell     = 300 * time.Millisecond
)

// Config holds the advertising parameters.
type Config struct {
	LocalName string
	CompanyID uint16
	Interval  time.Duration // advertising interval
	Dwell     time.Duration // time each frame stays on air
}

// radio is the part of the bluetooth stack the advertiser drives.
type radio interface {
	Enable() error
	Configure(opts bluetooth.AdvertisementOptions) error
	Start() error
	Stop() error
}

// stackRadio drives the default adapter of tinygo bluetooth.
type stackRadio struct {
	adapter *bluetooth.Adapter
	adv     *bluetooth.Advertisement
}

func (r *stackRadio) Enable() error {
	if err := r.adapter.Enable(); err != nil {
		return err
	}
	r.adv = r.adapter.DefaultAdvertisement()
	return nil
}

func (r *stackRadio) Configure(opts bluetooth.AdvertisementOptions) error {
	return r.adv.Configure(opts)
}

func (r *stackRadio) Start() error { return r.adv.Start() }
func (r *stackRadio) Stop() error  { return r.adv.Stop() }

// Advertiser implements ports.TransportSink over BLE advertising.
type Advertiser struct {
	cfg    Config
	radio  radio
	logger ports.Logger

	// send serializes Send; a concurrent Send gets SinkBusy.
	send sync.Mutex

	mu      sync.Mutex
	enabled bool
	started bool
	onAir   bool
}

// NewAdvertiser creates an advertiser on the default adapter.
func NewAdvertiser(cfg Config, logger ports.Logger) *Advertiser {
	return newAdvertiser(cfg, &stackRadio{adapter: bluetooth.DefaultAdapter}, logger)
}

func newAdvertiser(cfg Config, r radio, logger ports.Logger) *Advertiser {
	if cfg.CompanyID == 0 {
		cfg.CompanyID = DefaultCompanyID
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Dwell < 0 {
		cfg.Dwell = 0
	}
	return &Advertiser{cfg: cfg, radio: r, logger: logger}
}

// Init enables the adapter.
func (a *Advertiser) Init(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.radio.Enable(); err != nil {
		return domain.NewSinkError(domain.SinkHardwareFault, errors.Annotate(err, "ble adapter enable"))
	}
	a.enabled = true
	return nil
}

// StartAdvertising puts the idle advertisement (local name, no data) on air.
func (a *Advertiser) StartAdvertising(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.enabled {
		return domain.NewSinkError(domain.SinkHardwareFault, errors.New("ble adapter not enabled"))
	}
	err := a.radio.Configure(bluetooth.AdvertisementOptions{
		AdvertisementType: bluetooth.AdvertisingTypeNonConnInd,
		LocalName:         a.cfg.LocalName,
		Interval:          bluetooth.NewDuration(a.cfg.Interval),
	})
	if err != nil {
		return domain.NewSinkError(domain.SinkHardwareFault, errors.Annotate(err, "ble configure idle advertisement"))
	}
	if err := a.radio.Start(); err != nil {
		return domain.NewSinkError(domain.SinkHardwareFault, errors.Annotate(err, "ble start advertising"))
	}
	a.started = true
	a.onAir = true
	a.logger.Info("advertising started",
		ports.String("local_name", a.cfg.LocalName),
		ports.Duration("interval", a.cfg.Interval),
	)
	return nil
}

// Send replaces the advertisement payload with frame and keeps it on air for
// the dwell time.
func (a *Advertiser) Send(ctx context.Context, frame domain.Frame) error {
	if !a.send.TryLock() {
		return domain.NewSinkError(domain.SinkBusy, errors.New("previous frame still on air"))
	}
	defer a.send.Unlock()

	data, err := frame.MarshalBinary()
	if err != nil {
		return domain.NewSinkError(domain.SinkHardwareFault, err)
	}

	if err := a.swap(data); err != nil {
		return err
	}

	if a.cfg.Dwell == 0 {
		return nil
	}
	t := time.NewTimer(a.cfg.Dwell)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// swap reconfigures the advertisement with data.
func (a *Advertiser) swap(data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return domain.NewSinkError(domain.SinkNotAdvertising, errors.New("advertising not started"))
	}

	if a.onAir {
		if err := a.radio.Stop(); err != nil {
			return domain.NewSinkError(domain.SinkBusy, errors.Annotate(err, "ble stop advertising"))
		}
		a.onAir = false
	}
	err := a.radio.Configure(bluetooth.AdvertisementOptions{
		AdvertisementType: bluetooth.AdvertisingTypeNonConnInd,
		Interval:          bluetooth.NewDuration(a.cfg.Interval),
		ManufacturerData: []bluetooth.ManufacturerDataElement{
			{CompanyID: a.cfg.CompanyID, Data: data},
		},
	})
	if err != nil {
		return domain.NewSinkError(domain.SinkBusy, errors.Annotate(err, "ble configure frame"))
	}
	if err := a.radio.Start(); err != nil {
		return domain.NewSinkError(domain.SinkNotAdvertising, errors.Annotate(err, "ble restart advertising"))
	}
	a.onAir = true
	return nil
}

// Close stops advertising.
func (a *Advertiser) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.started = false
	if !a.onAir {
		return nil
	}
	a.onAir = false
	if err := a.radio.Stop(); err != nil {
		return errors.Annotate(err, "ble stop advertising")
	}
	return nil
}
