package ports

// Cipher encrypts plaintext blocks for broadcast.
// *crypto.Engine is the production implementation.
type Cipher interface {
	// Init installs the key and IV. It succeeds at most once.
	Init(key, iv []byte) error

	// Seal returns the broadcast message for one plaintext block sequence.
	// counter is the per-message counter; policies that do not use it ignore it.
	Seal(plaintext []byte, counter uint32) ([]byte, error)
}
