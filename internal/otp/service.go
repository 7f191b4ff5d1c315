package otp

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/voralek/sessguard/internal/core/domain"
)

const (
	secretKeyPrefix  = "sgotp:sec:"
	attemptKeyPrefix = "sgotp:att:"
	requestKeyPrefix = "sgotp:req:"

	// CodeTTL is how long an issued code stays redeemable.
	CodeTTL = 5 * time.Minute

	defaultMaxAttempts = 5
	defaultMaxRequests = 3
	defaultCooldown    = time.Minute
)

// Config holds tunable thresholds for the code service. Zero values
// fall back to defaults.
type Config struct {
	// MaxAttempts is how many wrong guesses a user gets per cooldown.
	MaxAttempts int

	// MaxRequests is how many codes a user may request per cooldown.
	MaxRequests int

	// Cooldown is the window for both counters.
	Cooldown time.Duration

	// IssueRate caps process-wide issuance, protecting the mail path.
	// Zero means 10 codes per second with a burst of 20.
	IssueRate rate.Limit
}

// Service issues and redeems one-time codes against redis. Secrets,
// guess counters and request counters are all keyed per user with
// TTLs, so the state is self-expiring and shared across replicas.
type Service struct {
	rdb         redis.UniversalClient
	maxAttempts int64
	maxRequests int64
	cooldown    time.Duration
	issuance    *rate.Limiter
	now         func() time.Time
}

// NewService creates a code service on the given redis client.
func NewService(rdb redis.UniversalClient, cfg Config) *Service {
	attempts := int64(cfg.MaxAttempts)
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	requests := int64(cfg.MaxRequests)
	if requests <= 0 {
		requests = defaultMaxRequests
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	issueRate := cfg.IssueRate
	if issueRate <= 0 {
		issueRate = rate.Limit(10)
	}

	return &Service{
		rdb:         rdb,
		maxAttempts: attempts,
		maxRequests: requests,
		cooldown:    cooldown,
		issuance:    rate.NewLimiter(issueRate, int(2*issueRate)),
		now:         time.Now,
	}
}

// Issue mints a fresh code for the user and returns it for delivery.
// A new issuance replaces any outstanding code for the same user.
func (s *Service) Issue(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", domain.ErrMissingArgument.WithDetails("user id")
	}
	if !s.issuance.Allow() {
		return "", domain.ErrOTPRateLimited
	}
	if err := s.bump(ctx, requestKeyPrefix+userID, s.maxRequests); err != nil {
		return "", err
	}

	secret, err := NewSecret()
	if err != nil {
		return "", err
	}
	if err := s.rdb.Set(ctx, secretKeyPrefix+userID, secret, CodeTTL).Err(); err != nil {
		return "", domain.ErrStorageError.WithCause(err)
	}
	// A fresh issuance wipes guesses spent on the previous code.
	if err := s.rdb.Del(ctx, attemptKeyPrefix+userID).Err(); err != nil {
		return "", domain.ErrStorageError.WithCause(err)
	}

	return CodeAt(secret, s.now()), nil
}

// Consume redeems a code for the user. A correct code is single-use:
// the secret is deleted before Consume returns. A wrong code spends
// one guess; exhausting the guesses rate-limits the user until the
// cooldown lapses.
func (s *Service) Consume(ctx context.Context, userID, code string) error {
	if userID == "" {
		return domain.ErrMissingArgument.WithDetails("user id")
	}

	attemptKey := attemptKeyPrefix + userID
	count, err := s.rdb.Get(ctx, attemptKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.ErrStorageError.WithCause(err)
	}
	if count >= s.maxAttempts {
		return domain.ErrOTPRateLimited
	}

	secret, err := s.rdb.Get(ctx, secretKeyPrefix+userID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrOTPInvalid
		}
		return domain.ErrStorageError.WithCause(err)
	}

	if !Verify(secret, code, s.now()) {
		if err := s.bump(ctx, attemptKey, s.maxAttempts); err != nil {
			return err
		}
		return domain.ErrOTPInvalid
	}

	if err := s.rdb.Del(ctx, secretKeyPrefix+userID, attemptKey).Err(); err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// bump increments a windowed counter and maps overflow to the
// rate-limit error. The first increment arms the window TTL.
func (s *Service) bump(ctx context.Context, key string, limit int64) error {
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	if count == 1 {
		if err := s.rdb.Expire(ctx, key, s.cooldown).Err(); err != nil {
			return domain.ErrStorageError.WithCause(err)
		}
	}
	if count > limit {
		return domain.ErrOTPRateLimited
	}
	return nil
}
