package signer

import (
	"crypto/rand"
	"encoding/base64"
)

// SessionIDBytes is the entropy of a generated session id.
// 32 bytes encode to 43 Base64 RawURL characters.
const SessionIDBytes = 32

// SessionIDLength is the encoded length of a generated session id.
const SessionIDLength = 43

// NewSessionID generates a high-entropy opaque session id.
func NewSessionID() (string, error) {
	return GenerateWithLength(SessionIDBytes)
}

// GenerateWithLength generates a random Base64 RawURL token with the
// specified byte length.
func GenerateWithLength(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
