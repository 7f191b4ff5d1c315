package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewSessionRecordLifetime(t *testing.T) {
	now := time.Now()
	rec := NewSessionRecord("sid-1", "sgus-user", "test-agent", "10.0.0.1", now)

	if got := rec.ExpiresAt.Sub(now); got != SessionLifetime {
		t.Errorf("lifetime = %v; want %v", got, SessionLifetime)
	}
	if !rec.CreatedAt.Equal(now) || !rec.LastUsed.Equal(now) {
		t.Error("created_at and last_used should both equal the creation instant")
	}
}

func TestNewSessionRecordTruncatesOversizedFields(t *testing.T) {
	now := time.Now()
	longUA := strings.Repeat("x", MaxUserAgentLength+100)
	rec := NewSessionRecord("sid-1", "sgus-user", longUA, "10.0.0.1", now)

	if len(rec.UserAgent) != MaxUserAgentLength {
		t.Errorf("len(UserAgent) = %d; want %d", len(rec.UserAgent), MaxUserAgentLength)
	}
	if err := rec.Validate(); err != nil {
		t.Errorf("Validate after truncation: %v", err)
	}
}

func TestSessionRecordValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		mutate  func(*SessionRecord)
		wantErr bool
	}{
		{"valid", func(*SessionRecord) {}, false},
		{"missing id", func(r *SessionRecord) { r.UnsignedID = "" }, true},
		{"missing user", func(r *SessionRecord) { r.UserID = "" }, true},
		{"oversized user id", func(r *SessionRecord) { r.UserID = strings.Repeat("u", MaxUserIDLength+1) }, true},
		{"oversized ip", func(r *SessionRecord) { r.IPAddress = strings.Repeat("1", MaxIPAddressLength+1) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewSessionRecord("sid", "sgus-user", "ua", "::1", now)
			tt.mutate(rec)
			err := rec.Validate()
			if tt.wantErr && !errors.Is(err, ErrSessionValidation) {
				t.Errorf("Validate() = %v; want ErrSessionValidation", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate() = %v; want nil", err)
			}
		})
	}
}

func TestCloneIsIndependent(t *testing.T) {
	rec := NewSessionRecord("sid", "sgus-user", "ua", "::1", time.Now())
	clone := rec.Clone()
	clone.UnsignedID = "other"

	if rec.UnsignedID != "sid" {
		t.Error("mutating the clone changed the original")
	}
}

func TestUserIDGeneration(t *testing.T) {
	id, err := NewUserID()
	if err != nil {
		t.Fatalf("NewUserID: %v", err)
	}
	if !IsValidUserID(id) {
		t.Errorf("generated id %q failed validation", id)
	}
	if len(id) != 31 {
		t.Errorf("len(id) = %d; want 31", len(id))
	}
}

func TestIsValidUserID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"", false},
		{"sgus-", false},
		{"nope-01hx3v9zb8w4r6p2q0k5m7t1sj", false},
		{"sgus-01hx3v9zb8w4r6p2q0k5m7t1sj", true},
		{"sgus-01hx3v9zb8w4r6p2q0k5m7t1s", false}, // too short
	}
	for _, tt := range tests {
		if got := IsValidUserID(tt.id); got != tt.want {
			t.Errorf("IsValidUserID(%q) = %v; want %v", tt.id, got, tt.want)
		}
	}
}

func TestUserSnapshotStripsCredential(t *testing.T) {
	u := &User{ID: "sgus-x", Username: "ada", Email: "ada@example.com", PasswordHash: "hash"}
	s := u.Snapshot()
	if s.PasswordHash != "" {
		t.Error("snapshot kept the password hash")
	}
	if u.PasswordHash != "hash" {
		t.Error("snapshot mutated the source user")
	}
}

func TestDomainErrorWrapping(t *testing.T) {
	cause := errors.New("underlying")
	err := ErrStorageError.WithCause(cause)

	if !errors.Is(err, ErrStorageError) {
		t.Error("errors.Is failed on same code")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is failed on unwrapped cause")
	}
	if GetErrorCode(err) != "SG-SYS-5001" {
		t.Errorf("GetErrorCode = %q; want SG-SYS-5001", GetErrorCode(err))
	}
	if !IsDomainError(err, "") {
		t.Error("IsDomainError with empty code should match any DomainError")
	}
}
