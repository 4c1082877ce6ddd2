// Package retry runs operations repeatedly while they fail with a temporary
// error.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/diuerr"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/logfields"
)

const (
	DefAttempts = 5
	DefDelay    = 5 * time.Second
)

// ErrRetriesExhausted is returned by Run when the operation still failed
// with a retryable error after the last attempt.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Retryer executes a function repeatedly with a fixed delay between
// attempts, until it was successful, a cancel condition happened or the
// maximum number of attempts was reached.
type Retryer struct {
	logger   *zap.Logger
	attempts uint
	delay    time.Duration
}

// New returns a Retryer that runs an operation at most attempts times and
// waits delay between them. attempts smaller than 1 are treated as 1.
func New(attempts uint, delay time.Duration) *Retryer {
	if attempts == 0 {
		attempts = 1
	}

	return &Retryer{
		logger:   zap.L().Named("retryer"),
		attempts: attempts,
		delay:    delay,
	}
}

// Attempts returns the maximum number of times an operation is run.
func (r *Retryer) Attempts() uint {
	return r.attempts
}

// Run executes fn until it was successful, it returned an error that does
// not wrap diuerr.RetryableError, the attempts are exhausted or the context
// is cancelled.
// If the RetryableError specifies a retry time that is later than the fixed
// delay, Run waits until then.
func (r *Retryer) Run(ctx context.Context, fn func(context.Context) error, logF []zap.Field) error {
	var tryCnt uint

	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(r.delay), uint64(r.attempts-1))

	retryTimer := time.NewTimer(0)
	defer retryTimer.Stop()

	logger := r.logger.With(logF...)

	for {
		select {
		case <-ctx.Done():
			logger.Debug(
				"operation cancelled",
				logfields.Event("retry_cancelled"),
				zap.Uint("try_count", tryCnt),
			)

			return ctx.Err()

		case <-retryTimer.C:
		}

		tryCnt++

		err := fn(ctx)
		if err == nil {
			return nil
		}

		logger := logger.With(zap.Uint("try_count", tryCnt), zap.Error(err))

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var retryError *diuerr.RetryableError
		if !errors.As(err, &retryError) {
			logger.Debug("operation failed, not retryable", logfields.Event("retry_not_retryable"))
			return err
		}

		retryIn := bo.NextBackOff()
		if retryIn == backoff.Stop {
			logger.Info(
				"giving up, operation failed on every attempt",
				logfields.Event("retry_attempts_exhausted"),
				zap.Uint("max_attempts", r.attempts),
			)

			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, tryCnt, err)
		}

		if !retryError.After.IsZero() {
			if d := time.Until(retryError.After); d > retryIn {
				retryIn = d
			}
		}

		if deadline, ok := ctx.Deadline(); ok && time.Now().Add(retryIn).After(deadline) {
			logger.Info(
				"giving up, next possible retry time is after the context deadline",
				logfields.Event("retry_after_deadline"),
				zap.Time("deadline", deadline),
				zap.Duration("retry_in", retryIn),
			)

			return err
		}

		logger.Debug(
			"operation failed, retry scheduled",
			logfields.Event("retry_scheduled"),
			zap.Duration("retry_in", retryIn),
		)

		retryTimer.Reset(retryIn)
	}
}
