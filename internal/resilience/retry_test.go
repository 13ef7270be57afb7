package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperr "github.com/GriffinCanCode/camera-overlay/internal/errors"
)

func fastRetry(max int) RetryConfig {
	return RetryConfig{MaxRetries: max, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetryFirstAttempt(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(3), func() error {
		calls++
		return nil
	})

	if err != nil || calls != 1 {
		t.Errorf("Retry() = %v after %d calls, want nil after 1", err, calls)
	}
}

func TestRetryRecoversFromTransient(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(3), func() error {
		calls++
		if calls < 3 {
			return apperr.New(apperr.CodeUnavailable, "device busy")
		}
		return nil
	})

	if err != nil {
		t.Errorf("Retry() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryGivesUp(t *testing.T) {
	calls := 0
	unavailable := status.Error(codes.Unavailable, "detector down")

	err := Retry(context.Background(), fastRetry(2), func() error {
		calls++
		return unavailable
	})

	if !errors.Is(err, unavailable) {
		t.Errorf("Retry() = %v, want %v", err, unavailable)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	bad := apperr.New(apperr.CodeInvalidArgument, "bad frame")

	err := Retry(context.Background(), fastRetry(5), func() error {
		calls++
		return bad
	})

	if !errors.Is(err, bad) || calls != 1 {
		t.Errorf("Retry() = %v after %d calls, want %v after 1", err, calls, bad)
	}
}

func TestRetryCustomClassifier(t *testing.T) {
	flaky := errors.New("flaky")
	cfg := CaptureRetryConfig(func(err error) bool { return errors.Is(err, flaky) })
	cfg.BaseDelay, cfg.MaxDelay = time.Millisecond, time.Millisecond

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return fmt.Errorf("capture: %w", flaky)
	})

	if !errors.Is(err, flaky) {
		t.Errorf("Retry() = %v, want %v", err, flaky)
	}
	if calls != CaptureMaxRetries+1 {
		t.Errorf("calls = %d, want %d", calls, CaptureMaxRetries+1)
	}
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxRetries: 10, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	time.AfterFunc(20*time.Millisecond, cancel)
	err := Retry(ctx, cfg, func() error {
		return status.Error(codes.Unavailable, "still down")
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() = %v, want context.Canceled", err)
	}
}

func TestDoReturnsValue(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fastRetry(3), func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "partial", apperr.New(apperr.CodeTimeout, "slow capture")
		}
		return "frame", nil
	})

	if err != nil || v != "frame" {
		t.Errorf("Do() = %q, %v, want frame, nil", v, err)
	}
}

func TestDoZeroValueOnFailure(t *testing.T) {
	v, err := Do(context.Background(), fastRetry(1), func(context.Context) (int, error) {
		return 42, errors.New("permanent")
	})
	if err == nil || v != 0 {
		t.Errorf("Do() = %d, %v, want 0 and an error", v, err)
	}
}

func TestOnRetryHook(t *testing.T) {
	var attempts []int
	cfg := fastRetry(2)
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		if delay <= 0 || err == nil {
			t.Errorf("OnRetry(%d, %v, %v), want a delay and an error", attempt, delay, err)
		}
		attempts = append(attempts, attempt)
	}

	_ = Retry(context.Background(), cfg, func() error {
		return apperr.New(apperr.CodeUnavailable, "busy")
	})

	if fmt.Sprint(attempts) != "[1 2]" {
		t.Errorf("attempts = %v, want [1 2]", attempts)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("x"), false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("pass: %w", context.DeadlineExceeded), false},
		{"grpc unavailable", status.Error(codes.Unavailable, "x"), true},
		{"grpc deadline", status.Error(codes.DeadlineExceeded, "x"), true},
		{"grpc exhausted", status.Error(codes.ResourceExhausted, "x"), true},
		{"grpc invalid", status.Error(codes.InvalidArgument, "x"), false},
		{"grpc internal", status.Error(codes.Internal, "x"), false},
		{"app unavailable", apperr.New(apperr.CodeUnavailable, "x"), true},
		{"app timeout", apperr.New(apperr.CodeTimeout, "x"), true},
		{"app detection", apperr.New(apperr.CodeDetectionFailure, "x"), false},
	}

	for _, tt := range tests {
		if got := IsTransient(tt.err); got != tt.want {
			t.Errorf("IsTransient(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 50 * time.Millisecond, MaxDelay: 300 * time.Millisecond}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 50 * time.Millisecond},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 300 * time.Millisecond},
		{40, 300 * time.Millisecond},
	}

	for _, tt := range tests {
		if got := backoffDelay(cfg, tt.attempt); got != tt.want {
			t.Errorf("backoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
