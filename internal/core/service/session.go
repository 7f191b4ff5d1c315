package service

import (
	"context"
	"time"

	"github.com/voralek/sessguard/internal/cache"
	"github.com/voralek/sessguard/internal/core/domain"
	"github.com/voralek/sessguard/pkg/signer"
)

// SessionService owns session issuance and teardown. It keeps the
// durable store and the active-session cache in agreement: the store
// is written first on creation and deleted first on teardown, so at
// every instant the store is equal to or ahead of the cache.
type SessionService struct {
	sessions SessionRepository
	active   *cache.Cache
	codec    *signer.Codec
	now      func() time.Time
}

// NewSessionService creates a SessionService.
func NewSessionService(sessions SessionRepository, active *cache.Cache, codec *signer.Codec) *SessionService {
	return &SessionService{
		sessions: sessions,
		active:   active,
		codec:    codec,
		now:      time.Now,
	}
}

// CreateSessionRequest contains parameters for session issuance.
type CreateSessionRequest struct {
	User      *domain.User // Required, the authenticated account
	UserAgent string       // Client User-Agent at login
	IPAddress string       // Client IP at login (optional)
}

// CreateSessionResponse contains the result of session issuance.
type CreateSessionResponse struct {
	Token   string // The signed wire token, only returned once
	Session *domain.SessionRecord
}

/// Create mints a session for an already-authenticated user: generates
// the opaque id, persists the row, caches it as active, and signs the
// wire token.
func (s *SessionService) Create(ctx context.Context, req *CreateSessionRequest) (*CreateSessionResponse, error) {
	if req.User == nil {
		return nil, domain.ErrMissingArgument.WithDetails("user is required")
	}

	unsignedID, err := signer.NewSessionID()
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	rec := domain.NewSessionRecord(unsignedID, req.User.ID, req.UserAgent, req.IPAddress, s.now())
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, rec); err != nil {
		return nil, err
	}
	s.active.MakeActive(req.User.Snapshot(), rec)

	return &CreateSessionResponse{
		Token:   s.codec.Token(req.User.ID, unsignedID),
		Session: rec.Clone(),
	}, nil
}

// List returns the user's sessions, newest first, with their lifecycle
// state evaluated at the time of the call.
func (s *SessionService) List(ctx context.Context, userID string) ([]*SessionInfo, error) {
	if userID == "" {
		return nil, domain.ErrMissingArgument.WithDetails("user_id is required")
	}

	recs, err := s.sessions.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	infos := make([]*SessionInfo, 0, len(recs))
	for _, rec := range recs {
		state := rec.Status(now)
		if state == domain.StateInvalid {
			continue
		}
		infos = append(infos, &SessionInfo{
			UnsignedID: rec.UnsignedID,
			UserAgent:  rec.UserAgent,
			IPAddress:  rec.IPAddress,
			CreatedAt:  rec.CreatedAt,
			LastUsed:   rec.LastUsed,
			ExpiresAt:  rec.ExpiresAt,
			State:      state.String(),
		})
	}
	return infos, nil
}

// SessionInfo is the client-facing view of one session row.
type SessionInfo struct {
	UnsignedID string
	UserAgent  string
	IPAddress  string
	CreatedAt  time.Time
	LastUsed   time.Time
	ExpiresAt  time.Time
	State      string
}

// Logout tears down a single session. Store first, then cache.
// Unknown ids are treated as already logged out.
func (s *SessionService) Logout(ctx context.Context, userID, unsignedID string) error {
	if userID == "" || unsignedID == "" {
		return domain.ErrMissingArgument.WithDetails("user_id and session id are required")
	}

	if err := s.sessions.Delete(ctx, unsignedID); err != nil {
		if domain.IsDomainError(err, domain.ErrSessionNotFound.Code) {
			s.active.Remove(userID, unsignedID)
			return nil
		}
		return err
	}
	s.active.Remove(userID, unsignedID)
	return nil
}

// LogoutOthers tears down every session of the user except keepID.
// Returns the number of sessions removed.
func (s *SessionService) LogoutOthers(ctx context.Context, userID, keepID string) (int, error) {
	if userID == "" || keepID == "" {
		return 0, domain.ErrMissingArgument.WithDetails("user_id and session id are required")
	}

	removed, err := s.sessions.DeleteAllExcept(ctx, userID, keepID)
	if err != nil {
		return 0, err
	}
	s.active.RemoveAllExcept(userID, keepID)
	return removed, nil
}

// LogoutSelected tears down the listed sessions of the user. Ids that
// do not exist or belong to someone else are skipped, not errors.
// Returns the number of sessions removed.
func (s *SessionService) LogoutSelected(ctx context.Context, userID string, ids []string) (int, error) {
	if userID == "" {
		return 0, domain.ErrMissingArgument.WithDetails("user_id is required")
	}
	if len(ids) == 0 {
		return 0, nil
	}

	removed, err := s.sessions.DeleteSelected(ctx, userID, ids)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.active.Remove(userID, id)
	}
	return removed, nil
}

// PurgeExpired removes the user's sessions that have aged past the
// refresh window. Called opportunistically from the auth gate; failures
// are reported but never block authentication.
func (s *SessionService) PurgeExpired(ctx context.Context, userID string) (int, error) {
	return s.sessions.DeleteExpired(ctx, userID, s.now())
}

// RefreshUser pushes an updated user snapshot into the active-session
// cache so subsequent cache hits see the new profile fields.
func (s *SessionService) RefreshUser(user *domain.User) {
	s.active.UpdateUser(user)
}
