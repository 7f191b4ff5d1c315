package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// UserIDPrefix is the prefix for user ids.
const UserIDPrefix = "sgus-"

// User is the account snapshot the session subsystem works with. The
// full profile schema lives elsewhere; only identity fields and the
// credential hash are carried here.
type User struct {
	// ID is the unique identifier for the user.
	// Format: sgus-{ulid_lowercase}, 31 characters total.
	ID string

	// Username is the unique handle chosen at registration.
	Username string

	// Email is the verified contact address.
	Email string

	// PasswordHash is the bcrypt hash of the password. Never serialized
	// to clients.
	PasswordHash string

	// AvatarKey is the object-store key of the profile image, if any.
	AvatarKey string

	// CreatedAt is the account creation timestamp.
	CreatedAt time.Time
}

// NewUserID generates a new user id using ULID.
func NewUserID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", ErrInternalServer.WithCause(err)
	}
	return UserIDPrefix + strings.ToLower(id.String()), nil
}

// IsValidUserID checks if a string is a valid user id format.
func IsValidUserID(id string) bool {
	if !strings.HasPrefix(id, UserIDPrefix) {
		return false
	}
	// sgus- (5) + ULID (26) = 31 characters
	if len(id) != 31 {
		return false
	}
	_, err := ulid.Parse(strings.ToUpper(id[len(UserIDPrefix):]))
	return err == nil
}

// Snapshot returns a copy of the user without the credential hash,
// suitable for attaching to a request context.
func (u *User) Snapshot() *User {
	s := *u
	s.PasswordHash = ""
	return &s
}
