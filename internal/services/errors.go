package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sarf14/onboarding-tool-sub001/internal/storage"
	"github.com/sarf14/onboarding-tool-sub001/internal/store"
	"github.com/sethvargo/go-retry"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrSequenceViolation  = errors.New("sequence violation")
	ErrInvalidScore       = errors.New("invalid score")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrTraineeNotReady    = errors.New("trainee not ready")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// readRetryDelay is the pause before the single retry of an idempotent read.
var readRetryDelay = 50 * time.Millisecond

// storageErr translates repository errors into service errors. Anything the
// repositories do not classify is reported as StorageUnavailable.
func storageErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, storage.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrConflict
	default:
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
}

// readWithRetry runs an idempotent read, retrying once on failures other than
// not-found and context cancellation. Writes never go through here.
func readWithRetry[T any](ctx context.Context, read func(ctx context.Context) (T, error)) (T, error) {
	var out T
	backoff := retry.WithMaxRetries(1, retry.NewConstant(readRetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		value, err := read(ctx)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) ||
				errors.Is(err, storage.ErrNotFound) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return retry.RetryableError(err)
		}
		out = value
		return nil
	})
	if err != nil {
		return out, storageErr(err)
	}
	return out, nil
}
