package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/voralek/sessguard/internal/cache"
	"github.com/voralek/sessguard/internal/collab"
	"github.com/voralek/sessguard/internal/core/domain"
	"github.com/voralek/sessguard/internal/otp"
	"github.com/voralek/sessguard/internal/storage/memory"
)

// captureMailer records outbound messages instead of sending them.
type captureMailer struct {
	codes    []string
	welcomes []string
}

func (m *captureMailer) SendCode(_ context.Context, _, email, code string) error {
	m.codes = append(m.codes, code)
	return nil
}

func (m *captureMailer) SendWelcome(_ context.Context, _, email string) error {
	m.welcomes = append(m.welcomes, email)
	return nil
}

type accountFixture struct {
	users    *memory.UserStore
	repo     *memory.SessionStore
	active   *cache.Cache
	mailer   *captureMailer
	objects  *collab.MemObjectStore
	sessions *SessionService
	service  *AccountService
}

// newAccountFixture builds an AccountService. withCodes attaches a
// miniredis-backed one-time code service.
func newAccountFixture(t *testing.T, withCodes bool) *accountFixture {
	t.Helper()

	users := memory.NewUserStore()
	repo := memory.NewSessionStore()
	active := cache.New()
	mailer := &captureMailer{}
	objects := collab.NewMemObjectStore()
	sessions := NewSessionService(repo, active, newTestCodec(t))

	var codes *otp.Service
	if withCodes {
		mr := miniredis.RunT(t)
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		codes = otp.NewService(rdb, otp.Config{})
	}

	return &accountFixture{
		users:    users,
		repo:     repo,
		active:   active,
		mailer:   mailer,
		objects:  objects,
		sessions: sessions,
		service:  NewAccountService(users, sessions, codes, mailer, nil, objects),
	}
}

func TestRegister(t *testing.T) {
	fx := newAccountFixture(t, false)
	ctx := context.Background()

	resp, err := fx.service.Register(ctx, &RegisterRequest{
		Username:  "ada",
		Email:     "ada@example.com",
		Password:  "correct horse 1",
		UserAgent: "go-test/1.0",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if !domain.IsValidUserID(resp.User.ID) {
		t.Errorf("user id %q is not valid", resp.User.ID)
	}
	if resp.User.PasswordHash != "" {
		t.Error("credential hash leaked into the register response")
	}
	if resp.Token == "" || resp.Session == nil {
		t.Error("registration did not log the user in")
	}

	// The stored hash must verify against the original password.
	stored, err := fx.users.FindByUsername(ctx, "ada")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("correct horse 1")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}

	if len(fx.mailer.welcomes) != 1 {
		t.Errorf("welcome mails sent = %d, want 1", len(fx.mailer.welcomes))
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	fx := newAccountFixture(t, false)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *RegisterRequest
	}{
		{"short username", &RegisterRequest{Username: "ab", Email: "a@b.co", Password: "correct horse 1"}},
		{"bad email", &RegisterRequest{Username: "ada", Email: "not-an-email", Password: "correct horse 1"}},
		{"weak password", &RegisterRequest{Username: "ada", Email: "ada@example.com", Password: "short1"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := fx.service.Register(ctx, tc.req); !errors.Is(err, domain.ErrUserValidation) {
				t.Errorf("Register = %v, want ErrUserValidation", err)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	fx := newAccountFixture(t, false)
	ctx := context.Background()

	req := &RegisterRequest{Username: "ada", Email: "ada@example.com", Password: "correct horse 1"}
	if _, err := fx.service.Register(ctx, req); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := fx.service.Register(ctx, req); !errors.Is(err, domain.ErrUserConflict) {
		t.Errorf("second Register = %v, want ErrUserConflict", err)
	}
}

func TestLoginSingleFactor(t *testing.T) {
	fx := newAccountFixture(t, false)
	ctx := context.Background()

	if _, err := fx.service.Register(ctx, &RegisterRequest{
		Username: "ada", Email: "ada@example.com", Password: "correct horse 1",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		name   string
		handle string
	}{
		{"by username", "ada"},
		{"by email", "ada@example.com"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := fx.service.Login(ctx, &LoginRequest{Handle: tc.handle, Password: "correct horse 1"})
			if err != nil {
				t.Fatalf("Login: %v", err)
			}
			if resp.CodeRequired {
				t.Error("single-factor login demanded a code")
			}
			if resp.Token == "" {
				t.Error("login issued no token")
			}
		})
	}
}

func TestLoginRejections(t *testing.T) {
	fx := newAccountFixture(t, false)
	ctx := context.Background()

	if _, err := fx.service.Register(ctx, &RegisterRequest{
		Username: "ada", Email: "ada@example.com", Password: "correct horse 1",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		name     string
		handle   string
		password string
	}{
		{"wrong password", "ada", "wrong horse 1"},
		{"unknown username", "ghost", "correct horse 1"},
		{"unknown email", "ghost@example.com", "correct horse 1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.service.Login(ctx, &LoginRequest{Handle: tc.handle, Password: tc.password})
			if !errors.Is(err, domain.ErrInvalidCredentials) {
				t.Errorf("Login = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestLoginWithCode(t *testing.T) {
	fx := newAccountFixture(t, true)
	ctx := context.Background()

	reg, err := fx.service.Register(ctx, &RegisterRequest{
		Username: "ada", Email: "ada@example.com", Password: "correct horse 1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	resp, err := fx.service.Login(ctx, &LoginRequest{Handle: "ada", Password: "correct horse 1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !resp.CodeRequired {
		t.Fatal("two-factor login issued a session without a code")
	}
	if resp.Token != "" {
		t.Fatal("challenge response carries a token")
	}
	if len(fx.mailer.codes) != 1 {
		t.Fatalf("code mails sent = %d, want 1", len(fx.mailer.codes))
	}

	// Wrong code first; the right one must still work afterwards.
	code := fx.mailer.codes[0]
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if _, err := fx.service.LoginWithCode(ctx, &LoginWithCodeRequest{
		UserID: reg.User.ID, Code: wrong,
	}); !errors.Is(err, domain.ErrOTPInvalid) {
		t.Fatalf("LoginWithCode wrong = %v, want ErrOTPInvalid", err)
	}

	done, err := fx.service.LoginWithCode(ctx, &LoginWithCodeRequest{
		UserID: reg.User.ID, Code: code, UserAgent: "go-test/1.0",
	})
	if err != nil {
		t.Fatalf("LoginWithCode: %v", err)
	}
	if done.Token == "" || done.Session == nil {
		t.Error("code redemption issued no session")
	}
}

func TestLoginWithIdentity(t *testing.T) {
	fx := newAccountFixture(t, false)
	ctx := context.Background()

	ident := &collab.Identity{
		Provider:       "google",
		ProviderUserID: "sub-123",
		Email:          "Ada.Lovelace@example.com",
		EmailVerified:  true,
		DisplayName:    "Ada Lovelace",
	}

	first, err := fx.service.LoginWithIdentity(ctx, ident, "go-test/1.0", "127.0.0.1")
	if err != nil {
		t.Fatalf("LoginWithIdentity: %v", err)
	}
	if first.Token == "" {
		t.Error("identity login issued no token")
	}
	if !strings.HasPrefix(first.User.Username, "ada.lovelace") {
		t.Errorf("derived username = %q, want ada.lovelace prefix", first.User.Username)
	}

	// A second sign-in resolves to the same account.
	second, err := fx.service.LoginWithIdentity(ctx, ident, "go-test/1.0", "127.0.0.1")
	if err != nil {
		t.Fatalf("second LoginWithIdentity: %v", err)
	}
	if second.User.ID != first.User.ID {
		t.Errorf("second sign-in provisioned a new account: %q vs %q", second.User.ID, first.User.ID)
	}
}

func TestLoginWithIdentityUnverified(t *testing.T) {
	fx := newAccountFixture(t, false)
	_, err := fx.service.LoginWithIdentity(context.Background(), &collab.Identity{
		Provider: "google", Email: "ada@example.com", EmailVerified: false,
	}, "", "")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("unverified identity = %v, want ErrInvalidCredentials", err)
	}
}

func TestUploadAvatar(t *testing.T) {
	fx := newAccountFixture(t, false)
	ctx := context.Background()

	reg, err := fx.service.Register(ctx, &RegisterRequest{
		Username: "ada", Email: "ada@example.com", Password: "correct horse 1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	key, err := fx.service.UploadAvatar(ctx, reg.User.ID, "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("UploadAvatar: %v", err)
	}

	body, contentType, err := fx.objects.Get(ctx, key)
	if err != nil {
		t.Fatalf("objects.Get: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "png-bytes" || contentType != "image/png" {
		t.Errorf("stored object = (%q, %q)", data, contentType)
	}

	stored, err := fx.users.FindByID(ctx, reg.User.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.AvatarKey != key {
		t.Errorf("avatar key = %q, want %q", stored.AvatarKey, key)
	}

	if _, err := fx.service.UploadAvatar(ctx, "sgus-00000000000000000000000000", "image/png", strings.NewReader("x")); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("UploadAvatar unknown user = %v, want ErrUserNotFound", err)
	}
}

func TestUploadAvatarRefreshesCachedUser(t *testing.T) {
	fx := newAccountFixture(t, false)
	ctx := context.Background()

	// Registration logs the user in, so the snapshot is cached.
	reg, err := fx.service.Register(ctx, &RegisterRequest{
		Username: "ada", Email: "ada@example.com", Password: "correct horse 1",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	key, err := fx.service.UploadAvatar(ctx, reg.User.ID, "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("UploadAvatar: %v", err)
	}

	entry, found := fx.active.Lookup(reg.User.ID, reg.Session.UnsignedID)
	if !found {
		t.Fatal("session fell out of the cache")
	}
	if got := entry.User().AvatarKey; got != key {
		t.Errorf("cached avatar key = %q, want %q", got, key)
	}
}
