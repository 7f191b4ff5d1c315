package domain

import (
	"strings"
	"time"
)

// Session constraints.
const (
	MaxUserIDLength    = 128
	MaxIPAddressLength = 45 // IPv6 max length
	MaxUserAgentLength = 512

	// SessionLifetime is the fixed lifetime of a new or refreshed session.
	SessionLifetime = 37 * 24 * time.Hour
)

// SessionRecord is a persisted session row. The unsigned id is opaque,
// high-entropy, and unique per user; it never reaches a client except
// embedded inside a signed token.
type SessionRecord struct {
	// UnsignedID is the opaque session identifier.
	UnsignedID string

	// UserID identifies the user who owns this session.
	UserID string

	// UserAgent is the client user agent at session creation (immutable).
	UserAgent string

	// IPAddress is the client IP at session creation (optional).
	IPAddress string

	// CreatedAt is the session creation timestamp.
	CreatedAt time.Time

	// LastUsed is the last authenticated-use timestamp.
	LastUsed time.Time

	// ExpiresAt is the absolute expiration timestamp.
	ExpiresAt time.Time
}

// NewSessionRecord creates a session record for a user with the fixed
// 37-day lifetime. The caller supplies the generated unsigned id.
func NewSessionRecord(unsignedID, userID, userAgent, ip string, now time.Time) *SessionRecord {
	return &SessionRecord{
		UnsignedID: unsignedID,
		UserID:     userID,
		UserAgent:  truncate(userAgent, MaxUserAgentLength),
		IPAddress:  truncate(ip, MaxIPAddressLength),
		CreatedAt:  now,
		LastUsed:   now,
		ExpiresAt:  now.Add(SessionLifetime),
	}
}

// Status returns the lifecycle state of this record at the given instant.
func (s *SessionRecord) Status(now time.Time) SessionState {
	return Status(s.ExpiresAt, now)
}

// Touch updates the LastUsed timestamp.
func (s *SessionRecord) Touch(now time.Time) {
	s.LastUsed = now
}

// Clone returns a copy of the record.
func (s *SessionRecord) Clone() *SessionRecord {
	clone := *s
	return &clone
}

// Validate validates the record fields against constraints.
func (s *SessionRecord) Validate() error {
	var violations []string

	if s.UnsignedID == "" {
		violations = append(violations, "unsigned_id is required")
	}
	if s.UserID == "" {
		violations = append(violations, "user_id is required")
	}
	if len(s.UserID) > MaxUserIDLength {
		violations = append(violations, "user_id exceeds 128 characters")
	}
	if len(s.UserAgent) > MaxUserAgentLength {
		violations = append(violations, "user_agent exceeds 512 characters")
	}
	if len(s.IPAddress) > MaxIPAddressLength {
		violations = append(violations, "ip_address exceeds 45 characters")
	}

	if len(violations) > 0 {
		return ErrSessionValidation.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
