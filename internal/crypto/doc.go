// Package crypto implements the AES-128-CBC engine that encrypts samples
// before broadcast.
//
// The engine owns the key and IV after Init; nothing else holds raw key
// bytes. In IVFixed mode every message uses the configured IV. In IVCounter
// mode the IV of each message is derived with HKDF-SHA256 from the key, the
// configured IV and a 32-bit message counter, and the counter travels in
// front of the ciphertext.
package crypto
