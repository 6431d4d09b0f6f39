package thermoship_test

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/thermoship/internal/domain"
	"github.com/bft-labs/thermoship/pkg/thermoship"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f"

func testKey(t *testing.T) thermoship.KeyMaterial {
	t.Helper()
	km, err := thermoship.ParseKeyMaterial(testKeyHex, testKeyHex)
	require.NoError(t, err)
	return km
}

func waitDone(t *testing.T, ts *thermoship.Thermoship) {
	t.Helper()
	select {
	case <-ts.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not finish")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := thermoship.New(thermoship.Config{})
	assert.ErrorIs(t, err, thermoship.ErrInvalidConfig)

	_, err = thermoship.New(thermoship.Config{Key: testKey(t), MaxPayload: 19})
	assert.ErrorIs(t, err, thermoship.ErrInvalidConfig)

	_, err = thermoship.New(thermoship.Config{Key: testKey(t), IVMode: "random"})
	assert.ErrorIs(t, err, thermoship.ErrInvalidConfig)
}

func TestOnce_GoldenFrame(t *testing.T) {
	sensor := &fakeSensor{sample: thermoship.Sample{TemperatureCelsius: 23.5, TimestampMS: 1000}}
	sink := &fakeSink{}
	events := &recordingHandler{}
	repo := &memRepo{}

	ts, err := thermoship.New(thermoship.Config{Key: testKey(t), Once: true},
		thermoship.WithSensor(sensor),
		thermoship.WithSink(sink),
		thermoship.WithEventHandler(events),
		thermoship.WithStateRepository(repo),
	)
	require.NoError(t, err)

	require.NoError(t, ts.Start(context.Background()))
	waitDone(t, ts)
	assert.Equal(t, thermoship.StateRunning, ts.Status())
	assert.NoError(t, ts.Err())

	frames := sink.Frames()
	require.Len(t, frames, 1)
	assert.Equal(t, uint8(0), frames[0].Index)
	assert.Equal(t, uint8(1), frames[0].Total)
	assert.Equal(t, "ffbeacd17bf0dc6f326c6e557c37bd18", hex.EncodeToString(frames[0].Payload))

	cycles := events.Cycles()
	require.Len(t, cycles, 1)
	assert.True(t, cycles[0].Success)
	assert.Equal(t, 1, cycles[0].Attempts)

	_, saves := repo.Saved()
	assert.Positive(t, saves)

	require.NoError(t, ts.Stop())
	assert.Equal(t, thermoship.StateStopped, ts.Status())
	assert.Equal(t, []thermoship.State{
		thermoship.StateStarting,
		thermoship.StateRunning,
		thermoship.StateStopping,
		thermoship.StateStopped,
	}, events.States())
}

func TestOnce_FatalCycleCrashes(t *testing.T) {
	var reported []thermoship.ErrorCode
	var mu sync.Mutex
	sensor := &fakeSensor{readErr: domain.NewSensorError(domain.SensorHardwareFault, errors.New("bus stuck"))}

	ts, err := thermoship.New(thermoship.Config{Key: testKey(t), Once: true},
		thermoship.WithSensor(sensor),
		thermoship.WithSink(&fakeSink{}),
		thermoship.WithErrorHandler(thermoship.ErrorHandlerFunc(func(c thermoship.ErrorCode) {
			mu.Lock()
			defer mu.Unlock()
			reported = append(reported, c)
		})),
	)
	require.NoError(t, err)

	require.NoError(t, ts.Start(context.Background()))
	waitDone(t, ts)

	assert.Equal(t, thermoship.StateCrashed, ts.Status())
	var ce *thermoship.CodeError
	require.ErrorAs(t, ts.Err(), &ce)
	assert.Equal(t, thermoship.CodeSensorRead, ce.Code)

	mu.Lock()
	assert.Equal(t, []thermoship.ErrorCode{thermoship.CodeSensorRead}, reported)
	mu.Unlock()
	assert.Equal(t, uint64(1), ts.ErrorCounts()[thermoship.CodeSensorRead])

	assert.NoError(t, ts.Stop())
}

func TestStart_BootFailureCrashes(t *testing.T) {
	sink := &fakeSink{initErr: errors.New("no adapter")}
	events := &recordingHandler{}
	ts, err := thermoship.New(thermoship.Config{Key: testKey(t)},
		thermoship.WithSensor(&fakeSensor{}),
		thermoship.WithSink(sink),
		thermoship.WithEventHandler(events),
	)
	require.NoError(t, err)

	require.NoError(t, ts.Start(context.Background()))
	waitDone(t, ts)

	assert.Equal(t, thermoship.StateCrashed, ts.Status())
	var ce *thermoship.CodeError
	require.ErrorAs(t, ts.Err(), &ce)
	assert.Equal(t, thermoship.CodeTransportInit, ce.Code)
	assert.Empty(t, sink.Frames())

	crash := events.LastChange()
	assert.Equal(t, thermoship.StateCrashed, crash.Current)
	assert.Equal(t, thermoship.CodeTransportInit, crash.Code)
	assert.ErrorIs(t, crash.Err, ts.Err())
	assert.True(t, strings.HasPrefix(crash.Reason, "initialize hardware: "), crash.Reason)

	assert.NoError(t, ts.Stop())
}

func TestStartStop_Errors(t *testing.T) {
	ts, err := thermoship.New(thermoship.Config{Key: testKey(t), Interval: time.Hour},
		thermoship.WithSensor(&fakeSensor{}),
		thermoship.WithSink(&fakeSink{}),
	)
	require.NoError(t, err)

	assert.ErrorIs(t, ts.Stop(), thermoship.ErrNotRunning)

	require.NoError(t, ts.Start(context.Background()))
	assert.ErrorIs(t, ts.Start(context.Background()), thermoship.ErrAlreadyRunning)

	require.NoError(t, ts.Stop())
	assert.ErrorIs(t, ts.Stop(), thermoship.ErrNotRunning)

	// Restart reuses the initialized device.
	require.NoError(t, ts.Start(context.Background()))
	require.NoError(t, ts.Stop())
}

func TestRun_CounterModePersists(t *testing.T) {
	sensor := &fakeSensor{sample: thermoship.Sample{TemperatureCelsius: 19.25, TimestampMS: 5}}
	sink := &fakeSink{}
	repo := &memRepo{}

	ts, err := thermoship.New(thermoship.Config{
		Key:      testKey(t),
		IVMode:   "counter",
		Interval: 10 * time.Millisecond,
	},
		thermoship.WithSensor(sensor),
		thermoship.WithSink(sink),
		thermoship.WithStateRepository(repo),
	)
	require.NoError(t, err)

	require.NoError(t, ts.Start(context.Background()))
	require.Eventually(t, func() bool { return ts.Stats().Successes >= 3 },
		2*time.Second, 5*time.Millisecond)
	require.NoError(t, ts.Stop())

	stats := ts.Stats()
	saved, _ := repo.Saved()
	assert.Equal(t, stats.MessageCounter, saved.MessageCounter)
	assert.Equal(t, "Idle", stats.Stage)

	// 4-byte counter prefix plus one block needs two frames.
	frames := sink.Frames()
	assert.Equal(t, int(stats.FramesSent), len(frames))
	assert.Equal(t, 2*int(stats.Successes), len(frames))
	for _, f := range frames {
		assert.Equal(t, uint8(2), f.Total)
	}
}

func TestPlugins_Order(t *testing.T) {
	var mu sync.Mutex
	var initOrder, shutdownOrder []string
	newPlugin := func(name string) *trackingPlugin {
		return &trackingPlugin{name: name, mu: &mu, initOrder: &initOrder, shutdownOrder: &shutdownOrder}
	}

	ts, err := thermoship.New(thermoship.Config{Key: testKey(t), Interval: time.Hour},
		thermoship.WithSensor(&fakeSensor{}),
		thermoship.WithSink(&fakeSink{}),
		thermoship.WithPlugin(newPlugin("a")),
		thermoship.WithPlugin(newPlugin("b")),
	)
	require.NoError(t, err)

	require.NoError(t, ts.Start(context.Background()))
	require.NoError(t, ts.Stop())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b"}, initOrder)
	assert.Equal(t, []string{"b", "a"}, shutdownOrder)
}

func TestPlugins_InitFailure(t *testing.T) {
	var mu sync.Mutex
	var initOrder, shutdownOrder []string
	good := &trackingPlugin{name: "good", mu: &mu, initOrder: &initOrder, shutdownOrder: &shutdownOrder}
	bad := &trackingPlugin{name: "bad", mu: &mu, initOrder: &initOrder, shutdownOrder: &shutdownOrder,
		initErr: errors.New("boom")}

	sensor := &fakeSensor{}
	ts, err := thermoship.New(thermoship.Config{Key: testKey(t)},
		thermoship.WithSensor(sensor),
		thermoship.WithSink(&fakeSink{}),
		thermoship.WithPlugin(good),
		thermoship.WithPlugin(bad),
	)
	require.NoError(t, err)

	assert.Error(t, ts.Start(context.Background()))
	assert.Equal(t, thermoship.StateCrashed, ts.Status())

	mu.Lock()
	assert.Equal(t, []string{"good"}, initOrder)
	assert.Equal(t, []string{"good"}, shutdownOrder)
	mu.Unlock()

	sensor.mu.Lock()
	assert.Zero(t, sensor.reads)
	sensor.mu.Unlock()
	assert.NoError(t, ts.Stop())
}

func TestPlugins_PanicRecovered(t *testing.T) {
	ts, err := thermoship.New(thermoship.Config{Key: testKey(t)},
		thermoship.WithSensor(&fakeSensor{}),
		thermoship.WithSink(&fakeSink{}),
		thermoship.WithPlugin(panicPlugin{}),
	)
	require.NoError(t, err)

	err = ts.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestPlugins_Control(t *testing.T) {
	var mu sync.Mutex
	var initOrder, shutdownOrder []string
	p := &trackingPlugin{name: "tuner", mu: &mu, initOrder: &initOrder, shutdownOrder: &shutdownOrder,
		onInit: func(cfg thermoship.PluginConfig) {
			_ = cfg.Control.SetInterval(250 * time.Millisecond)
		}}

	ts, err := thermoship.New(thermoship.Config{Key: testKey(t), Interval: time.Hour, ConfigPath: "/etc/thermoship.toml"},
		thermoship.WithSensor(&fakeSensor{}),
		thermoship.WithSink(&fakeSink{}),
		thermoship.WithPlugin(p),
	)
	require.NoError(t, err)

	require.NoError(t, ts.Start(context.Background()))
	assert.Equal(t, 250*time.Millisecond, ts.Interval())
	assert.ErrorIs(t, ts.SetInterval(0), thermoship.ErrInvalidConfig)
	require.NoError(t, ts.Stop())
}

func TestClose(t *testing.T) {
	sensor := &fakeSensor{}
	sink := &fakeSink{}
	ts, err := thermoship.New(thermoship.Config{Key: testKey(t), Interval: time.Hour},
		thermoship.WithSensor(sensor),
		thermoship.WithSink(sink),
	)
	require.NoError(t, err)

	require.NoError(t, ts.Start(context.Background()))
	require.Eventually(t, func() bool { return ts.Status() == thermoship.StateRunning },
		time.Second, 5*time.Millisecond)

	require.NoError(t, ts.Close())
	assert.True(t, sensor.Closed())
	assert.Equal(t, thermoship.StateStopped, ts.Status())
	assert.ErrorIs(t, ts.Start(context.Background()), thermoship.ErrClosed)
	assert.NoError(t, ts.Close())
}
