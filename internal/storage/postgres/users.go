package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voralek/sessguard/internal/core/domain"
)

const userColumns = "id, username, email, password_hash, avatar_key, created_at"

// UserStore is the PostgreSQL user repository.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a user store on the given pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// Create persists a new user. Uniqueness violations on username or
// email surface as ErrUserConflict.
func (s *UserStore) Create(ctx context.Context, u *domain.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, strings.ToLower(u.Username), strings.ToLower(u.Email),
		u.PasswordHash, u.AvatarKey, u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return domain.ErrUserConflict
		}
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// FindByID retrieves a user by id.
func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findBy(ctx, "id", id)
}

// FindByUsername retrieves a user by username.
func (s *UserStore) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findBy(ctx, "username", strings.ToLower(username))
}

// FindByEmail retrieves a user by email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findBy(ctx, "email", strings.ToLower(email))
}

// UpdateAvatarKey records the object-store key of a user's avatar.
func (s *UserStore) UpdateAvatarKey(ctx context.Context, id, key string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET avatar_key = $2 WHERE id = $1`, id, key)
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *UserStore) findBy(ctx context.Context, column, value string) (*domain.User, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value)

	var u domain.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.AvatarKey, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return &u, nil
}
