package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
)

// ErrMaxRetries indicates that all retry attempts have been exhausted.
var ErrMaxRetries = errors.New("max retries exceeded")

// RetryOptions configures WithRetry. Zero values fall back to defaults.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// RetryableError wraps an error with retry-specific metadata.
type RetryableError struct {
	Err       error
	Retryable bool
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Permanent marks err so that WithRetry stops immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err, Retryable: false}
}

func (opts RetryOptions) withDefaults() RetryOptions {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 100 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.MaxDelay < opts.InitialDelay {
		opts.MaxDelay = opts.InitialDelay
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}
	return opts
}

// WithRetry runs operation until it succeeds, returns a permanent error, the
// context ends or the attempts are used up. It returns the number of attempts
// made. Exhaustion is reported as ErrMaxRetries wrapping the last error.
func WithRetry(ctx context.Context, logger logging.Logger, opts RetryOptions, operation func(ctx context.Context) error) (int, error) {
	opts = opts.withDefaults()
	logger = logging.OrNop(logger)
	delay := opts.InitialDelay

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		err := operation(ctx)
		if err == nil {
			return attempt, nil
		}

		var retryableErr *RetryableError
		if errors.As(err, &retryableErr) && !retryableErr.Retryable {
			return attempt, retryableErr.Err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return attempt, fmt.Errorf("%w: %w", ctxErr, err)
		}

		if attempt == opts.MaxAttempts {
			return attempt, fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, opts.MaxAttempts, err)
		}

		logger.WithError(err).Warn("Operation failed, retrying",
			logging.Field{Key: logging.FieldAttempt, Value: attempt},
			logging.Field{Key: "max_attempts", Value: opts.MaxAttempts},
			logging.Field{Key: "delay", Value: delay.String()})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, fmt.Errorf("%w: %w", ctx.Err(), err)
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * opts.Multiplier)
		if delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}

	return opts.MaxAttempts, ErrMaxRetries
}
