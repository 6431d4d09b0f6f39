package crypto

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/bft-labs/thermoship/internal/domain"
)

// ivInfo prefixes the counter in the HKDF info parameter.
var ivInfo = []byte("thermoship/iv")

// messageIV derives the CBC IV for one message:
//
//	IV = HKDF-SHA256(IKM = key, salt = base IV, info = "thermoship/iv" || counter BE32)
func (e *Engine) messageIV(counter uint32) ([]byte, error) {
	info := make([]byte, len(ivInfo)+4)
	copy(info, ivInfo)
	binary.BigEndian.PutUint32(info[len(ivInfo):], counter)

	iv, err := hkdfSHA256(e.key[:], e.iv[:], info, domain.IVSize)
	if err != nil {
		return nil, fmt.Errorf("%w: derive iv: %v", domain.ErrEncryptionProcess, err)
	}
	return iv, nil
}

// hkdfSHA256 derives length bytes using HKDF-SHA256 (RFC 5869).
func hkdfSHA256(inputKey, salt, info []byte, length int) ([]byte, error) {
	reader := hkdf.New(sha256.New, inputKey, salt, info)
	result := make([]byte, length)
	if _, err := io.ReadFull(reader, result); err != nil {
		return nil, err
	}
	return result, nil
}
