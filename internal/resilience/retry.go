package resilience

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
)

// IsTransient reports whether err is worth retrying: a retryable AppError,
// or a gRPC status the server may recover from. Context errors never are.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return apperr.IsRetryable(err)
	}
	s, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return true
	default:
		return false
	}
}

// Retry runs fn until it succeeds, fails permanently, or the retries run
// out, and returns the last error.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := Do(ctx, cfg, func(context.Context) (struct{}, error) { return struct{}{}, fn() })
	return err
}

// Do is Retry for calls that produce a value. fn receives ctx so a capture
// can be abandoned mid-attempt.
func Do[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()
	var zero T

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt == cfg.MaxRetries || !cfg.IsRetryable(err) {
			return zero, err
		}

		delay := backoffDelay(cfg, attempt)
		cfg.OnRetry(attempt+1, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

func logRetry(attempt int, delay time.Duration, err error) {
	slog.Debug("retrying after error", "attempt", attempt, "delay", delay, "error", err)
}

// backoffDelay doubles BaseDelay per attempt up to MaxDelay, then spreads it
// by JitterFactor in either direction.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := min(cfg.BaseDelay<<min(attempt, 6), cfg.MaxDelay)
	jitter := float64(delay) * cfg.JitterFactor * (rand.Float64() - 0.5)
	return time.Duration(float64(delay) + jitter)
}
