package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorCode_FirmwareValues(t *testing.T) {
	tests := []struct {
		code ErrorCode
		num  int
		name string
	}{
		{CodeNone, 0, "none"},
		{CodeSensorInit, -1, "sensor-init-failure"},
		{CodeSensorRead, -2, "sensor-read-failure"},
		{CodeEncryptionInit, -3, "encryption-init-failure"},
		{CodeEncryptionProcess, -4, "encryption-process-failure"},
		{CodeTransportInit, -5, "transport-init-failure"},
		{CodeTransportAdvertiseStart, -6, "transport-advertise-start-failure"},
		{CodeTransportSend, -7, "transport-send-failure"},
		{ErrorCode(-42), -42, "unknown(-42)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.num, int(tt.code))
		assert.Equal(t, tt.name, tt.code.String())
	}
}

func TestCodeOf(t *testing.T) {
	err := fmt.Errorf("init: %w", &CodeError{Code: CodeTransportInit, Err: errors.New("no radio")})
	assert.Equal(t, CodeTransportInit, CodeOf(err))
	assert.Equal(t, CodeNone, CodeOf(errors.New("plain")))
	assert.EqualError(t, err, "init: transport-init-failure: no radio")
}

func TestSensorError_Retryable(t *testing.T) {
	cause := errors.New("conversion pending")
	err := fmt.Errorf("read: %w", NewSensorError(SensorNotReady, cause))

	var se *SensorError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.Retryable())
	assert.ErrorIs(t, err, cause)
	assert.False(t, NewSensorError(SensorHardwareFault, nil).Retryable())
	assert.Equal(t, "sensor: hardware fault", NewSensorError(SensorHardwareFault, nil).Error())
}

func TestSinkError_Retryable(t *testing.T) {
	assert.True(t, NewSinkError(SinkBusy, nil).Retryable())
	assert.True(t, NewSinkError(SinkNotAdvertising, nil).Retryable())
	assert.False(t, NewSinkError(SinkHardwareFault, nil).Retryable())
}

func TestEncryptionError_Is(t *testing.T) {
	err := fmt.Errorf("%w: 15 bytes", ErrInvalidLength)
	assert.ErrorIs(t, err, ErrInvalidLength)
	assert.NotErrorIs(t, err, ErrCipherNotReady)

	var ee *EncryptionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, EncryptionInvalidLength, ee.Kind)
}

func TestNewKeyMaterial(t *testing.T) {
	_, err := NewKeyMaterial(make([]byte, 16), make([]byte, 15))
	assert.ErrorIs(t, err, ErrInvalidKeyMaterial)

	_, err = NewKeyMaterial(make([]byte, 32), make([]byte, 16))
	assert.ErrorIs(t, err, ErrInvalidKeyMaterial)

	km, err := ParseKeyMaterial("000102030405060708090a0b0c0d0e0f", "0f0e0d0c0b0a09080706050403020100")
	require.NoError(t, err)
	assert.Equal(t, byte(0x0f), km.Key[15])
	assert.Equal(t, byte(0x0f), km.IV[0])
	assert.False(t, km.IsZero())
	assert.NotContains(t, km.String(), "0f")

	_, err = ParseKeyMaterial("zz", "00")
	assert.ErrorIs(t, err, ErrInvalidKeyMaterial)
}

func TestFrame_WireFormat(t *testing.T) {
	f := Frame{Index: 1, Total: 3, Payload: []byte{0xaa, 0xbb}}
	b, err := f.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x03, 0xaa, 0xbb}, b)

	got, err := UnmarshalFrame(b)
	require.NoError(t, err)
	assert.Equal(t, f, got)

	b[2] = 0x00
	assert.Equal(t, byte(0xaa), got.Payload[0], "payload must be copied")
}

func TestFrame_Invalid(t *testing.T) {
	tests := []struct {
		name string
		b    []byte
	}{
		{"header only", []byte{0, 1}},
		{"too long", make([]byte, MaxFrameSize+1)},
		{"zero total", []byte{0, 0, 1}},
		{"index past total", []byte{2, 2, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalFrame(tt.b)
			assert.ErrorIs(t, err, ErrFrameInvalid)
		})
	}

	_, err := Frame{Index: 0, Total: 1, Payload: make([]byte, MaxFramePayload+1)}.MarshalBinary()
	assert.ErrorIs(t, err, ErrFrameInvalid)
}

func TestState_UpdateAfterCycle(t *testing.T) {
	var st State
	assert.True(t, st.IsEmpty())
	st.UpdateAfterCycle(false, time.Time{})
	assert.Equal(t, uint64(1), st.Cycles)
	assert.Equal(t, uint64(1), st.Failures)
	assert.True(t, st.LastSuccessAt.IsZero())
}
