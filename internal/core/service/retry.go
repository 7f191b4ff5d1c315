package service

import (
	"context"
	"time"

	"github.com/voralek/sessguard/internal/core/domain"
)

const (
	retryAttempts = 3
	retryBackoff  = 50 * time.Millisecond
)

// withRetry runs fn up to retryAttempts times, backing off between
// tries. Only storage errors are retried; domain rejections (conflict,
// validation) surface immediately.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.ErrStorageError.WithCause(ctx.Err())
			case <-time.After(retryBackoff << (attempt - 1)):
			}
		}

		err = fn()
		if err == nil {
			return nil
		}
		if !domain.IsDomainError(err, domain.ErrStorageError.Code) {
			return err
		}
	}
	return err
}
