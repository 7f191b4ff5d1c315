// Package otp issues and verifies short-lived numeric one-time codes
// for second-factor login challenges. Codes are derived from a
// per-issuance random secret with a time-stepped keyed MAC, so a code
// is only guessable by brute force within its validity window, and the
// redis-backed service bounds how many guesses a caller gets.
package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/voralek/sessguard/internal/core/domain"
)

const (
	// SecretLength is the raw size of a per-issuance code secret.
	SecretLength = 20

	// Digits is the length of a generated code.
	Digits = 6

	// Period is the time step width. A code stays verifiable for one
	// step on either side of the issuing step.
	Period = 30 * time.Second

	// Skew is how many adjacent steps Verify accepts around now.
	Skew = 1
)

// NewSecret returns a fresh random code secret.
func NewSecret() ([]byte, error) {
	raw := make([]byte, SecretLength)
	if _, err := rand.Read(raw); err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}
	return raw, nil
}

// CodeAt derives the code for the time step containing t.
func CodeAt(secret []byte, t time.Time) string {
	return codeForStep(secret, t.Unix()/int64(Period/time.Second))
}

// Verify reports whether code matches the secret within the skew
// window around now. Comparison is constant time per candidate step.
func Verify(secret []byte, code string, now time.Time) bool {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != Digits || !isDigits(trimmed) {
		return false
	}
	if len(secret) == 0 {
		return false
	}

	base := now.Unix() / int64(Period/time.Second)
	for step := -int64(Skew); step <= int64(Skew); step++ {
		counter := base + step
		if counter < 0 {
			continue
		}
		want := codeForStep(secret, counter)
		if subtle.ConstantTimeCompare([]byte(want), []byte(trimmed)) == 1 {
			return true
		}
	}
	return false
}

func codeForStep(secret []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	// Dynamic truncation: low nibble of the last byte selects a
	// 31-bit window of the digest.
	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < Digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", Digits, bin%mod)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
