package service

import (
	"context"
	"io"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/voralek/sessguard/internal/collab"
	"github.com/voralek/sessguard/internal/core/domain"
	"github.com/voralek/sessguard/internal/otp"
	"github.com/voralek/sessguard/pkg/signer"
)

// AccountService handles registration and the login flows that end in
// session issuance: password, password plus one-time code, and
// external identity providers.
type AccountService struct {
	users    UserRepository
	sessions *SessionService
	codes    *otp.Service // nil disables the second factor
	mailer   collab.Mailer
	policy   collab.Validator
	objects  collab.ObjectStore
	now      func() time.Time
}

// NewAccountService creates an AccountService. codes may be nil, which
// turns password logins into single-factor logins.
func NewAccountService(users UserRepository, sessions *SessionService, codes *otp.Service, mailer collab.Mailer, policy collab.Validator, objects collab.ObjectStore) *AccountService {
	if mailer == nil {
		mailer = collab.NopMailer{}
	}
	if policy == nil {
		policy = collab.NewCredentialPolicy()
	}
	return &AccountService{
		users:    users,
		sessions: sessions,
		codes:    codes,
		mailer:   mailer,
		policy:   policy,
		objects:  objects,
		now:      time.Now,
	}
}

// RegisterRequest contains parameters for account creation.
type RegisterRequest struct {
	Username  string
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

// RegisterResponse contains the created account and its first session.
type RegisterResponse struct {
	User    *domain.User
	Token   string
	Session *domain.SessionRecord
}

// Register validates the credentials, creates the account, and logs
// the new user straight in.
func (s *AccountService) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	if err := s.policy.ValidateUsername(req.Username); err != nil {
		return nil, err
	}
	if err := s.policy.ValidateEmail(req.Email); err != nil {
		return nil, err
	}
	if err := s.policy.ValidatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}
	id, err := domain.NewUserID()
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           id,
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := withRetry(ctx, func() error { return s.users.Create(ctx, user) }); err != nil {
		return nil, err
	}

	// Delivery failures never roll back a created account.
	_ = s.mailer.SendWelcome(ctx, user.Username, user.Email)

	created, err := s.sessions.Create(ctx, &CreateSessionRequest{
		User:      user,
		UserAgent: req.UserAgent,
		IPAddress: req.IPAddress,
	})
	if err != nil {
		return nil, err
	}

	return &RegisterResponse{
		User:    user.Snapshot(),
		Token:   created.Token,
		Session: created.Session,
	}, nil
}

// LoginRequest contains password login parameters. Handle may be a
// username or an email address.
type LoginRequest struct {
	Handle    string
	Password  string
	UserAgent string
	IPAddress string
}

// LoginResponse contains the outcome of a password login. When
// CodeRequired is set, no session was issued yet: the user must
// present the mailed one-time code via LoginWithCode.
type LoginResponse struct {
	User         *domain.User
	Token        string
	Session      *domain.SessionRecord
	CodeRequired bool
}

// Login checks the password and either issues a session or, when the
// second factor is enabled, mails a one-time code.
func (s *AccountService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	user, err := s.findByHandle(ctx, req.Handle)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	if s.codes != nil {
		code, err := s.codes.Issue(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if err := s.mailer.SendCode(ctx, user.Username, user.Email, code); err != nil {
			return nil, err
		}
		return &LoginResponse{User: user.Snapshot(), CodeRequired: true}, nil
	}

	return s.issue(ctx, user, req.UserAgent, req.IPAddress)
}

// LoginWithCodeRequest contains second-factor completion parameters.
type LoginWithCodeRequest struct {
	UserID    string
	Code      string
	UserAgent string
	IPAddress string
}

// LoginWithCode redeems a one-time code and issues the session.
func (s *AccountService) LoginWithCode(ctx context.Context, req *LoginWithCodeRequest) (*LoginResponse, error) {
	if s.codes == nil {
		return nil, domain.ErrBadRequest.WithDetails("one-time codes are not enabled")
	}
	user, err := s.users.FindByID(ctx, req.UserID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrUserNotFound.Code) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.codes.Consume(ctx, user.ID, req.Code); err != nil {
		return nil, err
	}
	return s.issue(ctx, user, req.UserAgent, req.IPAddress)
}

// LoginWithIdentity signs in (or provisions) an account for a verified
// external identity and issues the session. Providers must have
// verified the email; unverified identities are refused.
func (s *AccountService) LoginWithIdentity(ctx context.Context, ident *collab.Identity, userAgent, ip string) (*LoginResponse, error) {
	if ident == nil || ident.Email == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if !ident.EmailVerified {
		return nil, domain.ErrInvalidCredentials.WithDetails("email not verified by provider")
	}

	user, err := s.users.FindByEmail(ctx, ident.Email)
	if err != nil {
		if !domain.IsDomainError(err, domain.ErrUserNotFound.Code) {
			return nil, err
		}
		user, err = s.provision(ctx, ident)
		if err != nil {
			return nil, err
		}
	}
	return s.issue(ctx, user, userAgent, ip)
}

// UploadAvatar stores the image and records its key on the account.
func (s *AccountService) UploadAvatar(ctx context.Context, userID, contentType string, body io.Reader) (string, error) {
	if s.objects == nil {
		return "", domain.ErrBadRequest.WithDetails("avatar storage is not enabled")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}

	key := "avatars/" + userID
	if err := s.objects.Put(ctx, key, contentType, body); err != nil {
		return "", err
	}
	if err := withRetry(ctx, func() error { return s.users.UpdateAvatarKey(ctx, userID, key) }); err != nil {
		return "", err
	}

	// Keep the cached snapshot in step with the store, or cache hits
	// would keep serving the pre-upload profile.
	user.AvatarKey = key
	s.sessions.RefreshUser(user)
	return key, nil
}

func (s *AccountService) issue(ctx context.Context, user *domain.User, userAgent, ip string) (*LoginResponse, error) {
	created, err := s.sessions.Create(ctx, &CreateSessionRequest{
		User:      user,
		UserAgent: userAgent,
		IPAddress: ip,
	})
	if err != nil {
		return nil, err
	}
	return &LoginResponse{
		User:    user.Snapshot(),
		Token:   created.Token,
		Session: created.Session,
	}, nil
}

// findByHandle resolves a username or email to an account. Both miss
// paths collapse into the credentials error so the endpoint cannot be
// used to probe which handles exist.
func (s *AccountService) findByHandle(ctx context.Context, handle string) (*domain.User, error) {
	if handle == "" {
		return nil, domain.ErrMissingArgument.WithDetails("handle is required")
	}

	var (
		user *domain.User
		err  error
	)
	if strings.ContainsRune(handle, '@') {
		user, err = s.users.FindByEmail(ctx, handle)
	} else {
		user, err = s.users.FindByUsername(ctx, handle)
	}
	if err != nil {
		if domain.IsDomainError(err, domain.ErrUserNotFound.Code) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	return user, nil
}

// provision creates an account for a first-time external identity.
// The username is derived from the email local part, suffixed until it
// is free. No password is set; password login stays disabled until the
// user sets one elsewhere.
func (s *AccountService) provision(ctx context.Context, ident *collab.Identity) (*domain.User, error) {
	id, err := domain.NewUserID()
	if err != nil {
		return nil, err
	}

	base := strings.ToLower(strings.SplitN(ident.Email, "@", 2)[0])
	base = sanitizeUsername(base)

	user := &domain.User{
		ID:        id,
		Email:     ident.Email,
		CreatedAt: s.now(),
	}

	candidate := base
	for attempt := 0; attempt < 5; attempt++ {
		user.Username = candidate
		err = s.users.Create(ctx, user)
		if err == nil {
			_ = s.mailer.SendWelcome(ctx, user.Username, user.Email)
			return user, nil
		}
		if !domain.IsDomainError(err, domain.ErrUserConflict.Code) {
			return nil, err
		}
		suffix, serr := signer.GenerateWithLength(3)
		if serr != nil {
			return nil, domain.ErrInternalServer.WithCause(serr)
		}
		candidate = base + "-" + strings.ToLower(suffix)
	}
	return nil, err
}

// sanitizeUsername strips characters the credential policy would
// reject from a derived username.
func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			if b.Len() > 0 {
				b.WriteRune(r)
			}
		}
	}
	if b.Len() < 3 {
		return "user" + b.String()
	}
	return b.String()
}
