package service

import (
	"context"
	"time"

	"github.com/voralek/sessguard/internal/cache"
	"github.com/voralek/sessguard/internal/core/domain"
	"github.com/voralek/sessguard/pkg/signer"
)

// AuthService is the authentication gate. Every request on a protected
// surface passes through Authenticate, which checks the signed token,
// resolves the session through cache and store, applies the lifecycle
// rules, and rotates the session when it has entered the refresh
// window. All failures collapse into 401-family domain errors; the
// gate never reveals which check rejected the token.
type AuthService struct {
	sessions SessionRepository
	users    UserRepository
	active   *cache.Cache
	codec    *signer.Codec
	now      func() time.Time
}

// NewAuthService creates an AuthService.
func NewAuthService(sessions SessionRepository, users UserRepository, active *cache.Cache, codec *signer.Codec) *AuthService {
	return &AuthService{
		sessions: sessions,
		users:    users,
		active:   active,
		codec:    codec,
		now:      time.Now,
	}
}

// AuthRequest carries the credentials extracted from the request.
type AuthRequest struct {
	UserID    string // From the user id cookie
	Token     string // From the session cookie
	UserAgent string // For audit on refresh rotation
	IPAddress string
}

// AuthResponse is the result of a successful authentication.
type AuthResponse struct {
	User    *domain.User          // Credential-free account snapshot
	Session *domain.SessionRecord // The authenticated session

	// State is the lifecycle state observed during this authentication,
	// before any rotation.
	State domain.SessionState

	// Refreshed is set when the session was rotated. Session and Token
	// then describe the replacement; the caller must reissue cookies.
	Refreshed bool

	// Token is the fresh wire token, set only when Refreshed.
	Token string

	// CacheHit reports whether the session resolved from the cache.
	CacheHit bool
}

// Authenticate runs the full gate for one request.
func (s *AuthService) Authenticate(ctx context.Context, req *AuthRequest) (*AuthResponse, error) {
	if req.Token == "" || req.UserID == "" {
		return nil, domain.ErrNoCookie
	}
	if !domain.IsValidUserID(req.UserID) {
		return nil, domain.ErrCookieParse
	}

	sessionID, err := s.codec.Verify(req.UserID, req.Token)
	if err != nil {
		return nil, domain.ErrBadSignature
	}

	now := s.now()
	user, rec, cacheHit, err := s.resolve(ctx, req.UserID, sessionID)
	if err != nil {
		return nil, err
	}

	state := rec.Status(now)
	switch state {
	case domain.StateValid, domain.StateExpiring:
		s.touch(ctx, user, rec, now)
		return &AuthResponse{
			User:     user.Snapshot(),
			Session:  rec,
			State:    state,
			CacheHit: cacheHit,
		}, nil

	case domain.StateRefreshable:
		return s.refresh(ctx, user, rec, req, state, cacheHit)

	default:
		// Past the refresh window. Drop the carcass and reject.
		_ = s.sessions.Delete(ctx, rec.UnsignedID)
		s.active.Remove(user.ID, rec.UnsignedID)
		return nil, domain.ErrSessionExpired
	}
}

// resolve finds the session and its owner, preferring the cache and
// falling back to the stores. A cache miss that resolves from the
// store repopulates the cache.
func (s *AuthService) resolve(ctx context.Context, userID, sessionID string) (*domain.User, *domain.SessionRecord, bool, error) {
	if entry, found := s.active.Lookup(userID, sessionID); found {
		if rec, ok := entry.Get(sessionID); ok {
			return entry.User(), rec, true, nil
		}
	}

	rec, err := s.sessions.Find(ctx, sessionID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrSessionNotFound.Code) {
			return nil, nil, false, domain.ErrSessionExpired
		}
		return nil, nil, false, err
	}
	// The digest binds the user id, so a mismatch here means the row
	// was reassigned or the token is stale. Reject without detail.
	if rec.UserID != userID {
		return nil, nil, false, domain.ErrBadSignature
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrUserNotFound.Code) {
			return nil, nil, false, domain.ErrSessionExpired
		}
		return nil, nil, false, err
	}

	s.active.MakeActive(user.Snapshot(), rec)
	return user, rec, false, nil
}

// touch records authenticated use. The cache copy is updated in place;
// the store write is best effort, a missed touch only ages the row's
// last_used display.
func (s *AuthService) touch(ctx context.Context, user *domain.User, rec *domain.SessionRecord, now time.Time) {
	rec.Touch(now)
	s.active.MakeActive(user.Snapshot(), rec)
	_ = s.sessions.Touch(ctx, rec.UnsignedID, now)
}

// refresh rotates a refreshable session: a replacement row is created
// first, then the old row is retired. The store is always equal to or
// ahead of the cache, so a crash between the two writes leaves at
// worst an extra row that ages out.
func (s *AuthService) refresh(ctx context.Context, user *domain.User, old *domain.SessionRecord, req *AuthRequest, state domain.SessionState, cacheHit bool) (*AuthResponse, error) {
	unsignedID, err := signer.NewSessionID()
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	fresh := domain.NewSessionRecord(unsignedID, user.ID, req.UserAgent, req.IPAddress, s.now())
	if err := s.sessions.Create(ctx, fresh); err != nil {
		return nil, err
	}
	// Retiring the old row must stick before any cookies go out: a
	// surviving in-window row stays redeemable for further rotations.
	// Failing here strands the fresh row, which only ages out.
	if err := s.sessions.Delete(ctx, old.UnsignedID); err != nil &&
		!domain.IsDomainError(err, domain.ErrSessionNotFound.Code) {
		return nil, err
	}

	if !s.active.Replace(user.ID, old.UnsignedID, fresh) {
		s.active.MakeActive(user.Snapshot(), fresh)
	}

	// Opportunistic sweep of rows that aged past the refresh window.
	_, _ = s.sessions.DeleteExpired(ctx, user.ID, s.now())

	return &AuthResponse{
		User:      user.Snapshot(),
		Session:   fresh.Clone(),
		State:     state,
		Refreshed: true,
		Token:     s.codec.Token(user.ID, unsignedID),
		CacheHit:  cacheHit,
	}, nil
}
