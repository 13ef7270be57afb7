// Package resilience provides the circuit breaker guarding remote detectors
// and the backoff retry used by frame sources.
package resilience

import "time"

// Breaker defaults.
const (
	DefaultThreshold         = 5
	DefaultResetTimeout      = 30 * time.Second
	DefaultHalfOpenSuccesses = 3

	// A remote detector is on the frame path: trip early, probe often.
	DetectorThreshold         = 3
	DetectorResetTimeout      = 5 * time.Second
	DetectorHalfOpenSuccesses = 2
)

// Retry defaults.
const (
	DefaultMaxRetries   = 3
	DefaultBaseDelay    = 500 * time.Millisecond
	DefaultMaxDelay     = 10 * time.Second
	DefaultJitterFactor = 0.2

	// Capture devices recover in tens of milliseconds or not at all.
	CaptureMaxRetries = 3
	CaptureBaseDelay  = 50 * time.Millisecond
	CaptureMaxDelay   = time.Second
)

// Config holds circuit breaker settings.
type Config struct {
	Name              string        // logged with state changes
	Threshold         int           // failures before opening
	ResetTimeout      time.Duration // wait before half-open attempt
	HalfOpenSuccesses int           // successes needed to close

	// Counts reports whether a failed call says anything about the remote
	// side. Defaults to CountsAsFailure.
	Counts func(error) bool
}

// DefaultConfig returns general-purpose breaker settings.
func DefaultConfig() Config {
	return Config{
		Name:              "default",
		Threshold:         DefaultThreshold,
		ResetTimeout:      DefaultResetTimeout,
		HalfOpenSuccesses: DefaultHalfOpenSuccesses,
	}
}

// DetectorConfig returns settings for a remote detector.
func DetectorConfig() Config {
	return Config{
		Name:              "detector",
		Threshold:         DetectorThreshold,
		ResetTimeout:      DetectorResetTimeout,
		HalfOpenSuccesses: DetectorHalfOpenSuccesses,
	}
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = DefaultHalfOpenSuccesses
	}
	if c.Counts == nil {
		c.Counts = CountsAsFailure
	}
	return c
}

// RetryConfig holds retry settings.
type RetryConfig struct {
	MaxRetries   int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
	IsRetryable  func(error) bool

	// OnRetry runs before each backoff sleep. attempt counts from 1.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetryConfig returns standard retry settings.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   DefaultMaxRetries,
		BaseDelay:    DefaultBaseDelay,
		MaxDelay:     DefaultMaxDelay,
		JitterFactor: DefaultJitterFactor,
		IsRetryable:  IsTransient,
	}
}

// CaptureRetryConfig returns settings for frame acquisition, retrying only
// errors retryable says are transient.
func CaptureRetryConfig(retryable func(error) bool) RetryConfig {
	return RetryConfig{
		MaxRetries:   CaptureMaxRetries,
		BaseDelay:    CaptureBaseDelay,
		MaxDelay:     CaptureMaxDelay,
		JitterFactor: DefaultJitterFactor,
		IsRetryable:  retryable,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.JitterFactor <= 0 {
		c.JitterFactor = DefaultJitterFactor
	}
	if c.IsRetryable == nil {
		c.IsRetryable = IsTransient
	}
	if c.OnRetry == nil {
		c.OnRetry = logRetry
	}
	return c
}
