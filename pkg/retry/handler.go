package retry

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/rohmanhakim/linkmeta/pkg/failure"
	"github.com/rohmanhakim/linkmeta/pkg/timeutil"
)

// Retry executes fn up to MaxAttempts times, applying exponential backoff
// with jitter between attempts. Only retryable errors trigger another attempt;
// a non-retryable error is returned as-is. Cancelling ctx stops the backoff wait.
func Retry[T any](ctx context.Context, retryParam RetryParam, fn func() (T, failure.ClassifiedError)) Result[T] {
	if retryParam.MaxAttempts < 1 {
		return Result[T]{
			err: &RetryError{
				Message:   "max attempt cannot be 0",
				Cause:     ErrZeroAttempt,
				Retryable: false,
			},
		}
	}

	rng := rand.New(rand.NewSource(retryParam.RandomSeed))

	var lastErr failure.ClassifiedError
	for attempt := 1; attempt <= retryParam.MaxAttempts; attempt++ {
		value, err := fn()
		if err == nil {
			return Result[T]{value: value, attempts: attempt}
		}
		lastErr = err

		if !isErrorRetryable(err) {
			return Result[T]{err: err, attempts: attempt}
		}
		if attempt == retryParam.MaxAttempts {
			break
		}

		delay := timeutil.ExponentialBackoffDelay(attempt, retryParam.Jitter, rng, retryParam.BackoffParam)
		if sleepErr := timeutil.Sleep(ctx, delay); sleepErr != nil {
			return Result[T]{
				err: &RetryError{
					Message:   fmt.Sprintf("cancelled after %d attempts: %v", attempt, sleepErr),
					Cause:     ErrCancelled,
					Retryable: false,
					Last:      lastErr,
				},
				attempts: attempt,
			}
		}
	}

	// a single attempt is not a retry; surface the task error untouched
	if retryParam.MaxAttempts == 1 {
		return Result[T]{err: lastErr, attempts: 1}
	}

	return Result[T]{
		err: &RetryError{
			Message:   fmt.Sprintf("exhausted %d attempts. Last error: %v", retryParam.MaxAttempts, lastErr),
			Cause:     ErrExhaustedAttempts,
			Retryable: true,
			Last:      lastErr,
		},
		attempts: retryParam.MaxAttempts,
	}
}

// isErrorRetryable defaults to true for errors that do not report retryability.
func isErrorRetryable(err failure.ClassifiedError) bool {
	type hasRetryable interface {
		IsRetryable() bool
	}

	if r, ok := err.(hasRetryable); ok {
		return r.IsRetryable()
	}
	return true
}
