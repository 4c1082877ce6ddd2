// Package ratelimit throttles the creation of pull requests.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/logfields"
)

const (
	DefLimit           = 30
	DefPeriod          = time.Hour
	DefTokenAddingRate = 2 * time.Minute
)

// RateLimiter is a token bucket composed of 2 limits: up to limit tokens are
// available per period, additionally at most 1 token is added every
// tokenAddingRate to spread bursts over the period.
// A nil *RateLimiter does not limit.
type RateLimiter struct {
	window *rate.Limiter
	smooth *rate.Limiter
	logger *zap.Logger
}

// New returns a RateLimiter that allows limit operations per period and
// refills at most 1 token every tokenAddingRate.
func New(limit int, period, tokenAddingRate time.Duration) (*RateLimiter, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit is %d, must be >0", limit)
	}

	if period <= 0 {
		return nil, fmt.Errorf("period is %s, must be >0", period)
	}

	if tokenAddingRate <= 0 {
		return nil, fmt.Errorf("token adding rate is %s, must be >0", tokenAddingRate)
	}

	return &RateLimiter{
		window: rate.NewLimiter(rate.Every(period/time.Duration(limit)), limit),
		smooth: rate.NewLimiter(rate.Every(tokenAddingRate), 1),
		logger: zap.L().Named("rate_limiter"),
	}, nil
}

// Default returns a RateLimiter with the default limits.
func Default() *RateLimiter {
	rl, err := New(DefLimit, DefPeriod, DefTokenAddingRate)
	if err != nil {
		panic(err)
	}

	return rl
}

// Consume blocks until a token is available from both limits.
// It only returns an error when ctx is cancelled or its deadline expires
// before a token becomes available.
func (r *RateLimiter) Consume(ctx context.Context) error {
	if r == nil {
		return nil
	}

	start := time.Now()

	if err := r.window.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limit token failed: %w", err)
	}

	if err := r.smooth.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limit token failed: %w", err)
	}

	if waited := time.Since(start); waited > time.Second {
		r.logger.Debug(
			"rate limit token acquired",
			logfields.Event("rate_limit_token_acquired"),
			zap.Duration("waited", waited),
		)
	}

	return nil
}

var errInvalidFormat = errors.New("invalid format, expecting <number>-per-<duration>, e.g. 30-per-1h")

// Parse parses a rate limit definition of the form "<limit>-per-<duration>",
// e.g. "30-per-1h".
func Parse(s string) (limit int, period time.Duration, err error) {
	limitStr, periodStr, found := strings.Cut(strings.TrimSpace(s), "-per-")
	if !found {
		return 0, 0, errInvalidFormat
	}

	limit, err = strconv.Atoi(limitStr)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: parsing limit failed: %w", errInvalidFormat, err)
	}

	period, err = time.ParseDuration(periodStr)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: parsing duration failed: %w", errInvalidFormat, err)
	}

	if limit <= 0 || period <= 0 {
		return 0, 0, fmt.Errorf("%w: limit and duration must be positive", errInvalidFormat)
	}

	return limit, period, nil
}
