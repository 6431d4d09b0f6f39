package thermoship_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/thermoship"
	"github.com/bft-labs/thermoship/internal/domain"
)

type stubSensor struct{ err error }

func (s stubSensor) Init(ctx context.Context) error { return nil }
func (s stubSensor) Close() error                   { return nil }
func (s stubSensor) Read(ctx context.Context) (domain.Sample, error) {
	return domain.Sample{TemperatureCelsius: 23.5, TimestampMS: 1000}, s.err
}

type bufSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *bufSink) Init(ctx context.Context) error             { return nil }
func (s *bufSink) StartAdvertising(ctx context.Context) error { return nil }
func (s *bufSink) Close() error                               { return nil }
func (s *bufSink) Send(ctx context.Context, f domain.Frame) error {
	b, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.Write(b)
	return nil
}

func (s *bufSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

func key(t *testing.T) domain.KeyMaterial {
	t.Helper()
	km, err := thermoship.ParseKeyMaterial("000102030405060708090a0b0c0d0e0f", "000102030405060708090a0b0c0d0e0f")
	require.NoError(t, err)
	return km
}

func TestRun_Once(t *testing.T) {
	sink := &bufSink{}
	err := thermoship.Run(context.Background(), thermoship.Config{Key: key(t), Once: true},
		thermoship.WithSensor(stubSensor{}),
		thermoship.WithSink(sink),
	)
	require.NoError(t, err)
	assert.Equal(t, 18, sink.Len())
}

func TestRun_OnceFatal(t *testing.T) {
	err := thermoship.Run(context.Background(), thermoship.Config{Key: key(t), Once: true},
		thermoship.WithSensor(stubSensor{err: domain.NewSensorError(domain.SensorHardwareFault, errors.New("gone"))}),
		thermoship.WithSink(&bufSink{}),
	)
	var ce *domain.CodeError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, domain.CodeSensorRead, ce.Code)
}

func TestRun_Cancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	sink := &bufSink{}
	err := thermoship.Run(ctx, thermoship.Config{Key: key(t), Interval: 10 * time.Millisecond},
		thermoship.WithSensor(stubSensor{}),
		thermoship.WithSink(sink),
	)
	require.NoError(t, err)
	assert.Positive(t, sink.Len())
}

func TestRun_InvalidConfig(t *testing.T) {
	err := thermoship.Run(context.Background(), thermoship.Config{})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
