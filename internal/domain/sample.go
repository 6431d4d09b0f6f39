package domain

import (
	"encoding/hex"
	"fmt"
)

// Sample is one temperature reading. It lives for a single cycle and is never
// persisted.
type Sample struct {
	// TemperatureCelsius is the measured temperature.
	TemperatureCelsius float64

	// TimestampMS is the read time in unix milliseconds.
	TimestampMS int64
}

func (s Sample) String() string {
	return fmt.Sprintf("%.2fC@%d", s.TemperatureCelsius, s.TimestampMS)
}

// Cipher geometry.
const (
	KeySize   = 16
	IVSize    = 16
	BlockSize = 16
)

// KeyMaterial is the AES-128 key and IV. It is built once at startup and
// handed by value to the cipher engine.
type KeyMaterial struct {
	Key [KeySize]byte
	IV  [IVSize]byte
}

// NewKeyMaterial validates the lengths and copies key and iv.
func NewKeyMaterial(key, iv []byte) (KeyMaterial, error) {
	var km KeyMaterial
	if len(key) != KeySize || len(iv) != IVSize {
		return km, fmt.Errorf("%w: key=%d iv=%d bytes", ErrInvalidKeyMaterial, len(key), len(iv))
	}
	copy(km.Key[:], key)
	copy(km.IV[:], iv)
	return km, nil
}

// ParseKeyMaterial decodes hex-encoded key and iv.
func ParseKeyMaterial(keyHex, ivHex string) (KeyMaterial, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return KeyMaterial{}, fmt.Errorf("%w: key: %v", ErrInvalidKeyMaterial, err)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return KeyMaterial{}, fmt.Errorf("%w: iv: %v", ErrInvalidKeyMaterial, err)
	}
	return NewKeyMaterial(key, iv)
}

// IsZero reports whether no key material was set.
func (k KeyMaterial) IsZero() bool {
	return k == KeyMaterial{}
}

// String never prints key bytes.
func (k KeyMaterial) String() string {
	return "KeyMaterial{*****}"
}
