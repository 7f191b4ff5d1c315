package service

import (
	"context"
	"time"

	"github.com/voralek/sessguard/internal/core/domain"
)

// SessionRepository defines the durable storage interface for session rows.
//
// Every mutation is a single atomic statement against the store; rows are
// independently addressable by unsigned id, so no multi-statement
// transaction is ever required.
type SessionRepository interface {
	// Create persists a new session row.
	Create(ctx context.Context, rec *domain.SessionRecord) error

	// Find retrieves a session row by its unsigned id.
	Find(ctx context.Context, unsignedID string) (*domain.SessionRecord, error)

	// List retrieves all session rows for a user.
	List(ctx context.Context, userID string) ([]*domain.SessionRecord, error)

	// Delete removes a session row by its unsigned id.
	Delete(ctx context.Context, unsignedID string) error

	// DeleteAllExcept removes every session of a user except keepID.
	// Returns the number of rows removed.
	DeleteAllExcept(ctx context.Context, userID, keepID string) (int, error)

	// DeleteSelected removes the given session ids belonging to a user.
	// Returns the number of rows removed.
	DeleteSelected(ctx context.Context, userID string, ids []string) (int, error)

	// DeleteExpired removes the user's sessions whose expiry is past the
	// refresh window. Returns the number of rows removed.
	DeleteExpired(ctx context.Context, userID string, now time.Time) (int, error)

	// Touch updates the last_used timestamp of a session row.
	Touch(ctx context.Context, unsignedID string, lastUsed time.Time) error
}

// UserRepository defines the durable storage interface for user accounts.
type UserRepository interface {
	// Create persists a new user.
	Create(ctx context.Context, u *domain.User) error

	// FindByID retrieves a user by id.
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// FindByUsername retrieves a user by username.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindByEmail retrieves a user by email.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdateAvatarKey records the object-store key of a user's avatar.
	UpdateAvatarKey(ctx context.Context, id, key string) error
}
