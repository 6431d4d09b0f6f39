package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/bft-labs/thermoship/internal/domain"
)

// IVMode selects how the CBC IV is chosen per message.
type IVMode int

const (
	// IVFixed reuses the configured IV for every message. Identical samples
	// produce identical ciphertext. Kept as the default for compatibility
	// with existing receivers.
	IVFixed IVMode = iota

	// IVCounter derives a fresh IV per message from a 32-bit counter and
	// prefixes the counter to the ciphertext.
	IVCounter
)

// CounterSize is the counter prefix length in IVCounter mode.
const CounterSize = 4

func (m IVMode) String() string {
	switch m {
	case IVFixed:
		return "fixed"
	case IVCounter:
		return "counter"
	default:
		return "unknown"
	}
}

// ParseIVMode parses "fixed" or "counter".
func ParseIVMode(s string) (IVMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fixed":
		return IVFixed, nil
	case "counter":
		return IVCounter, nil
	default:
		return IVFixed, fmt.Errorf("unknown iv mode %q", s)
	}
}

// Engine is the cipher engine. Init must succeed exactly once before any
// other call. It is used from the single pipeline goroutine.
type Engine struct {
	mode  IVMode
	block cipher.Block
	key   [domain.KeySize]byte
	iv    [domain.IVSize]byte
	ready bool
}

// NewEngine returns an uninitialized engine.
func NewEngine(mode IVMode) *Engine {
	return &Engine{mode: mode}
}

// Mode returns the IV policy.
func (e *Engine) Mode() IVMode { return e.mode }

// UsesCounter reports whether the IV depends on the message counter.
func (e *Engine) UsesCounter() bool { return e.mode == IVCounter }

// Ready reports whether Init succeeded.
func (e *Engine) Ready() bool { return e.ready }

// Init validates and installs key and iv (16 bytes each).
func (e *Engine) Init(key, iv []byte) error {
	if e.ready {
		return fmt.Errorf("encryption: %w", domain.ErrAlreadyInitialized)
	}
	km, err := domain.NewKeyMaterial(key, iv)
	if err != nil {
		return err
	}
	block, err := aes.NewCipher(km.Key[:])
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidKeyMaterial, err)
	}
	e.block = block
	e.key = km.Key
	e.iv = km.IV
	e.ready = true
	return nil
}

// Encrypt encrypts plaintext with the configured IV.
// Plaintext length must be a positive multiple of 16; the output has the
// same length.
func (e *Engine) Encrypt(plaintext []byte) ([]byte, error) {
	if err := e.check(plaintext); err != nil {
		return nil, err
	}
	return e.cbcEncrypt(e.iv[:], plaintext), nil
}

// Decrypt reverses Encrypt.
func (e *Engine) Decrypt(ciphertext []byte) ([]byte, error) {
	if err := e.check(ciphertext); err != nil {
		return nil, err
	}
	return e.cbcDecrypt(e.iv[:], ciphertext), nil
}

// Seal produces the broadcast message for plaintext.
// In IVFixed mode it is Encrypt and counter is ignored. In IVCounter mode
// it is counter (big-endian) followed by the ciphertext under the derived IV.
func (e *Engine) Seal(plaintext []byte, counter uint32) ([]byte, error) {
	if e.mode == IVFixed {
		return e.Encrypt(plaintext)
	}
	if err := e.check(plaintext); err != nil {
		return nil, err
	}
	iv, err := e.messageIV(counter)
	if err != nil {
		return nil, err
	}
	out := make([]byte, CounterSize, CounterSize+len(plaintext))
	binary.BigEndian.PutUint32(out, counter)
	return append(out, e.cbcEncrypt(iv, plaintext)...), nil
}

// Open reverses Seal and returns the plaintext and the message counter
// (always 0 in IVFixed mode).
func (e *Engine) Open(msg []byte) ([]byte, uint32, error) {
	if e.mode == IVFixed {
		pt, err := e.Decrypt(msg)
		return pt, 0, err
	}
	if len(msg) < CounterSize {
		return nil, 0, fmt.Errorf("%w: %d bytes", domain.ErrInvalidLength, len(msg))
	}
	counter := binary.BigEndian.Uint32(msg)
	ct := msg[CounterSize:]
	if err := e.check(ct); err != nil {
		return nil, 0, err
	}
	iv, err := e.messageIV(counter)
	if err != nil {
		return nil, 0, err
	}
	return e.cbcDecrypt(iv, ct), counter, nil
}

// SelfTest runs an encrypt/decrypt round trip on a probe block.
func (e *Engine) SelfTest() error {
	probe := []byte("thermoship-probe")
	ct, err := e.Encrypt(probe)
	if err != nil {
		return err
	}
	pt, err := e.Decrypt(ct)
	if err != nil {
		return err
	}
	if string(pt) != string(probe) {
		return fmt.Errorf("%w: self-test round trip mismatch", domain.ErrEncryptionProcess)
	}
	return nil
}

func (e *Engine) check(b []byte) error {
	if !e.ready {
		return domain.ErrCipherNotReady
	}
	if len(b) == 0 || len(b)%domain.BlockSize != 0 {
		return fmt.Errorf("%w: %d bytes", domain.ErrInvalidLength, len(b))
	}
	return nil
}

func (e *Engine) cbcEncrypt(iv, plaintext []byte) []byte {
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(e.block, iv).CryptBlocks(out, plaintext)
	return out
}

func (e *Engine) cbcDecrypt(iv, ciphertext []byte) []byte {
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(e.block, iv).CryptBlocks(out, ciphertext)
	return out
}
