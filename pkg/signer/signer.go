// Package signer implements the keyed codec for session tokens.
//
// A wire token is a fixed-length HMAC-SHA256 digest, base64 encoded,
// followed immediately by the opaque session id it covers. The digest
// is computed over user_id || session_id, so a token is only valid for
// the user it was issued to. Tokens are tamper-evident, not encrypted.
package signer

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
)

// DigestLength is the base64 encoded length of the HMAC-SHA256 digest.
const DigestLength = 44

// MinKeyLength is the minimum accepted signing key length in bytes.
const MinKeyLength = 32

// ErrInvalidToken is returned for every verification failure. The cause
// (short token, bad encoding, digest mismatch) is deliberately not
// distinguished.
var ErrInvalidToken = errors.New("signer: invalid token")

// ErrShortKey is returned by New when the signing key is too short.
var ErrShortKey = errors.New("signer: key shorter than 32 bytes")

// Codec signs and verifies session tokens with a process-wide key.
type Codec struct {
	key []byte
}

// New creates a Codec with the given signing key.
func New(key []byte) (*Codec, error) {
	if len(key) < MinKeyLength {
		return nil, ErrShortKey
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Codec{key: k}, nil
}

// Sign computes the digest for a (user id, session id) pair.
// The result is always DigestLength characters.
func (c *Codec) Sign(userID, sessionID string) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(userID))
	mac.Write([]byte(sessionID))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

// Token builds the wire token: digest followed by the session id.
func (c *Codec) Token(userID, sessionID string) string {
	return c.Sign(userID, sessionID) + sessionID
}

// Verify checks a wire token for the given user and returns the session
// id it carries. Verification is fail-closed: any token shorter than the
// digest, any encoding problem, and any digest mismatch all return
// ErrInvalidToken. The digest comparison is constant time.
func (c *Codec) Verify(userID, token string) (string, error) {
	if len(token) <= DigestLength {
		return "", ErrInvalidToken
	}

	digest := token[:DigestLength]
	sessionID := token[DigestLength:]

	expected := c.Sign(userID, sessionID)
	if subtle.ConstantTimeCompare([]byte(digest), []byte(expected)) != 1 {
		return "", ErrInvalidToken
	}

	return sessionID, nil
}
