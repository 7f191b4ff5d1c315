package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voralek/sessguard/internal/cache"
	"github.com/voralek/sessguard/internal/core/domain"
	"github.com/voralek/sessguard/internal/storage/memory"
	"github.com/voralek/sessguard/pkg/signer"
)

type authFixture struct {
	repo     *memory.SessionStore
	users    *memory.UserStore
	active   *cache.Cache
	codec    *signer.Codec
	sessions *SessionService
	gate     *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	repo := memory.NewSessionStore()
	users := memory.NewUserStore()
	active := cache.New()
	codec := newTestCodec(t)
	return &authFixture{
		repo:     repo,
		users:    users,
		active:   active,
		codec:    codec,
		sessions: NewSessionService(repo, active, codec),
		gate:     NewAuthService(repo, users, active, codec),
	}
}

// login registers the user in the stores and mints a live session.
func (fx *authFixture) login(t *testing.T, user *domain.User) *CreateSessionResponse {
	t.Helper()
	if _, err := fx.users.FindByID(context.Background(), user.ID); err != nil {
		if err := fx.users.Create(context.Background(), user); err != nil {
			t.Fatalf("users.Create: %v", err)
		}
	}
	resp, err := fx.sessions.Create(context.Background(), &CreateSessionRequest{
		User:      user,
		UserAgent: "go-test/1.0",
		IPAddress: "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("sessions.Create: %v", err)
	}
	return resp
}

// plant stores a session row with a chosen expiry, bypassing the cache.
func (fx *authFixture) plant(t *testing.T, user *domain.User, expiresAt time.Time) (string, string) {
	t.Helper()
	ctx := context.Background()
	if _, err := fx.users.FindByID(ctx, user.ID); err != nil {
		if err := fx.users.Create(ctx, user); err != nil {
			t.Fatalf("users.Create: %v", err)
		}
	}
	id, err := signer.NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}
	rec := domain.NewSessionRecord(id, user.ID, "go-test/1.0", "127.0.0.1", time.Now())
	rec.ExpiresAt = expiresAt
	if err := fx.repo.Create(ctx, rec); err != nil {
		t.Fatalf("repo.Create: %v", err)
	}
	return id, fx.codec.Token(user.ID, id)
}

func TestAuthenticateMissingCredentials(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *AuthRequest
	}{
		{"no token", &AuthRequest{UserID: "sgus-01h455vb4pex5vsknk084sn02q"}},
		{"no user id", &AuthRequest{Token: "whatever"}},
		{"neither", &AuthRequest{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := fx.gate.Authenticate(ctx, tc.req); !errors.Is(err, domain.ErrNoCookie) {
				t.Errorf("Authenticate = %v, want ErrNoCookie", err)
			}
		})
	}
}

func TestAuthenticateMalformedUserID(t *testing.T) {
	fx := newAuthFixture(t)
	_, err := fx.gate.Authenticate(context.Background(), &AuthRequest{
		UserID: "not-a-user-id",
		Token:  "some-token-value-that-is-long-enough-to-not-matter-here",
	})
	if !errors.Is(err, domain.ErrCookieParse) {
		t.Errorf("Authenticate = %v, want ErrCookieParse", err)
	}
}

func TestAuthenticateTamperedToken(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "ada")
	resp := fx.login(t, user)

	// Flip one byte of the digest.
	raw := []byte(resp.Token)
	if raw[0] == 'A' {
		raw[0] = 'B'
	} else {
		raw[0] = 'A'
	}

	_, err := fx.gate.Authenticate(ctx, &AuthRequest{UserID: user.ID, Token: string(raw)})
	if !errors.Is(err, domain.ErrBadSignature) {
		t.Errorf("Authenticate tampered = %v, want ErrBadSignature", err)
	}
}

func TestAuthenticateWrongUserBinding(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	owner := newTestUser(t, "ada")
	imposter := newTestUser(t, "eve")
	resp := fx.login(t, owner)
	fx.login(t, imposter)

	// A token signed for the imposter but carrying the owner's session
	// id passes signature verification yet must still be refused.
	forged := fx.codec.Token(imposter.ID, resp.Session.UnsignedID)
	_, err := fx.gate.Authenticate(ctx, &AuthRequest{UserID: imposter.ID, Token: forged})
	if !errors.Is(err, domain.ErrBadSignature) {
		t.Errorf("Authenticate cross-user = %v, want ErrBadSignature", err)
	}
}

func TestAuthenticateCacheHit(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "ada")
	resp := fx.login(t, user)

	got, err := fx.gate.Authenticate(ctx, &AuthRequest{UserID: user.ID, Token: resp.Token})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !got.CacheHit {
		t.Error("expected a cache hit right after login")
	}
	if got.State != domain.StateValid {
		t.Errorf("state = %v, want StateValid", got.State)
	}
	if got.Refreshed {
		t.Error("fresh session must not be rotated")
	}
	if got.User.ID != user.ID {
		t.Errorf("user id = %q, want %q", got.User.ID, user.ID)
	}
	if got.User.PasswordHash != "" {
		t.Error("credential hash leaked into the auth response")
	}
}

func TestAuthenticateStoreFallback(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "ada")
	resp := fx.login(t, user)

	// Simulate a process restart: the cache is empty, the store is not.
	fx.active.Evict(user.ID)

	got, err := fx.gate.Authenticate(ctx, &AuthRequest{UserID: user.ID, Token: resp.Token})
	if err != nil {
		t.Fatalf("Authenticate after eviction: %v", err)
	}
	if got.CacheHit {
		t.Error("expected a store fallback, got a cache hit")
	}

	// The fallback repopulates the cache.
	if _, found := fx.active.Lookup(user.ID, resp.Session.UnsignedID); !found {
		t.Error("cache not repopulated after store fallback")
	}
}

func TestAuthenticateUnknownSession(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "ada")
	resp := fx.login(t, user)

	if err := fx.sessions.Logout(ctx, user.ID, resp.Session.UnsignedID); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	_, err := fx.gate.Authenticate(ctx, &AuthRequest{UserID: user.ID, Token: resp.Token})
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("Authenticate revoked session = %v, want ErrSessionExpired", err)
	}
}

func TestAuthenticateExpiringServes(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "ada")

	_, token := fx.plant(t, user, time.Now().Add(domain.MemCacheDuration/2))

	got, err := fx.gate.Authenticate(ctx, &AuthRequest{UserID: user.ID, Token: token})
	if err != nil {
		t.Fatalf("Authenticate expiring = %v", err)
	}
	if got.State != domain.StateExpiring {
		t.Errorf("state = %v, want StateExpiring", got.State)
	}
	if got.Refreshed {
		t.Error("expiring session must serve without rotation")
	}
}

func TestAuthenticateRefreshRotation(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "ada")

	oldID, token := fx.plant(t, user, time.Now().Add(-time.Hour))

	got, err := fx.gate.Authenticate(ctx, &AuthRequest{
		UserID:    user.ID,
		Token:     token,
		UserAgent: "go-test/2.0",
	})
	if err != nil {
		t.Fatalf("Authenticate refreshable = %v", err)
	}
	if !got.Refreshed {
		t.Fatal("refreshable session was not rotated")
	}
	if got.Token == "" || got.Token == token {
		t.Error("rotation must mint a fresh token")
	}

	newID, err := fx.codec.Verify(user.ID, got.Token)
	if err != nil {
		t.Fatalf("Verify rotated token: %v", err)
	}
	if newID == oldID {
		t.Error("rotation reused the old session id")
	}

	// The old row is gone, the new row is live with a full lifetime.
	if _, err := fx.repo.Find(ctx, oldID); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("old row still present: %v", err)
	}
	fresh, err := fx.repo.Find(ctx, newID)
	if err != nil {
		t.Fatalf("new row missing: %v", err)
	}
	if fresh.Status(time.Now()) != domain.StateValid {
		t.Errorf("rotated session state = %v, want StateValid", fresh.Status(time.Now()))
	}

	// And the rotated token authenticates normally.
	again, err := fx.gate.Authenticate(ctx, &AuthRequest{UserID: user.ID, Token: got.Token})
	if err != nil {
		t.Fatalf("Authenticate with rotated token: %v", err)
	}
	if again.Refreshed {
		t.Error("second authentication rotated again")
	}
}

func TestAuthenticateInvalidSession(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "ada")

	id, token := fx.plant(t, user, time.Now().Add(-domain.MaxRefreshDuration-time.Hour))

	_, err := fx.gate.Authenticate(ctx, &AuthRequest{UserID: user.ID, Token: token})
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Fatalf("Authenticate dead session = %v, want ErrSessionExpired", err)
	}

	// The carcass is removed on rejection.
	if _, err := fx.repo.Find(ctx, id); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("dead row still present: %v", err)
	}
}

func TestAuthenticateTouchesLastUsed(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "ada")
	resp := fx.login(t, user)

	before := resp.Session.LastUsed
	time.Sleep(5 * time.Millisecond)

	if _, err := fx.gate.Authenticate(ctx, &AuthRequest{UserID: user.ID, Token: resp.Token}); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	rec, err := fx.repo.Find(ctx, resp.Session.UnsignedID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if !rec.LastUsed.After(before) {
		t.Errorf("LastUsed not advanced: %v <= %v", rec.LastUsed, before)
	}
}

func TestAuthenticateDeletedAccount(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()
	user := newTestUser(t, "ada")

	// Session row exists but the account does not.
	id, err := signer.NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}
	rec := domain.NewSessionRecord(id, user.ID, "ua", "", time.Now())
	if err := fx.repo.Create(ctx, rec); err != nil {
		t.Fatalf("repo.Create: %v", err)
	}

	_, err = fx.gate.Authenticate(ctx, &AuthRequest{
		UserID: user.ID,
		Token:  fx.codec.Token(user.ID, id),
	})
	if !errors.Is(err, domain.ErrSessionExpired) {
		t.Errorf("Authenticate orphan session = %v, want ErrSessionExpired", err)
	}
}

// failingDeleteStore refuses row deletion, simulating a store outage
// mid-mutation.
type failingDeleteStore struct {
	*memory.SessionStore
}

func (s *failingDeleteStore) Delete(context.Context, string) error {
	return domain.ErrStorageError.WithDetails("delete refused")
}

func TestAuthenticateRefreshFailsClosedOnRetireError(t *testing.T) {
	repo := &failingDeleteStore{SessionStore: memory.NewSessionStore()}
	users := memory.NewUserStore()
	active := cache.New()
	codec := newTestCodec(t)
	gate := NewAuthService(repo, users, active, codec)

	ctx := context.Background()
	user := newTestUser(t, "ada")
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("users.Create: %v", err)
	}

	oldID, err := signer.NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}
	rec := domain.NewSessionRecord(oldID, user.ID, "go-test/1.0", "127.0.0.1", time.Now())
	rec.ExpiresAt = time.Now().Add(-time.Second)
	if err := repo.SessionStore.Create(ctx, rec); err != nil {
		t.Fatalf("repo.Create: %v", err)
	}

	resp, err := gate.Authenticate(ctx, &AuthRequest{
		UserID: user.ID,
		Token:  codec.Token(user.ID, oldID),
	})
	if !errors.Is(err, domain.ErrStorageError) {
		t.Fatalf("Authenticate = %v, want ErrStorageError", err)
	}
	if resp != nil {
		t.Fatal("no token may be issued while the old row cannot be retired")
	}

	// The old row survives uncontested.
	if _, err := repo.SessionStore.Find(ctx, oldID); err != nil {
		t.Errorf("old row must survive a failed retirement: %v", err)
	}

	// The cache still lists only the old session, no rotated record.
	entry, found := active.Lookup(user.ID, oldID)
	if !found {
		t.Fatal("old session dropped from cache on failed rotation")
	}
	if entry.Len() != 1 {
		t.Errorf("cached sessions = %d, want only the old one", entry.Len())
	}
}
