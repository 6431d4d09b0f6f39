// Package codec turns samples into cipher blocks and ciphertext into
// transport frames.
//
// Plaintext layout (one 16-byte block, little-endian):
//
//	0..7   temperature, IEEE-754 float64
//	8..15  timestamp, int64 unix milliseconds
//
// Fragmentation splits a message into frames of at most 18 payload bytes,
// each prefixed with (index, total). Receivers concatenate payloads by
// ascending index.
package codec
