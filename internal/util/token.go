// Package util holds small helpers shared across layers.
package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// DefaultTokenBytes is the entropy of tokens created without an explicit size.
const DefaultTokenBytes = 32

// CreateTokenValue returns byteLength random bytes from crypto/rand as lowercase
// hex, so the result is 2*byteLength characters. byteLength <= 0 means DefaultTokenBytes.
func CreateTokenValue(byteLength int) string {
	if byteLength <= 0 {
		byteLength = DefaultTokenBytes
	}

	buf := make([]byte, byteLength)
	// crypto/rand.Read never returns an error and always fills buf.
	_, _ = rand.Read(buf)

	return hex.EncodeToString(buf)
}

// HashTokenValue returns the hex SHA-256 of token. Only this value is stored;
// a candidate is verified by hashing it and comparing.
func HashTokenValue(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}
