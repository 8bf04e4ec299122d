package resilience

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the knobs of the call pipeline.
type Config struct {
	// Timeout bounds a single attempt, limiter wait included.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
	// MaxAttempts includes the initial attempt. Values below 1 mean 1.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`

	// PermitLimit calls are admitted within any Window.
	PermitLimit int           `yaml:"permit_limit" json:"permit_limit"`
	Window      time.Duration `yaml:"window" json:"window"`
	// QueueLimit is how many callers may wait for a permit. Zero rejects
	// immediately when the window is full.
	QueueLimit int `yaml:"queue_limit" json:"queue_limit"`

	BaseDelay time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay" json:"max_delay"`
	Jitter    float64       `yaml:"jitter" json:"jitter"`
	// MaxRateLimitDelay caps the delay taken from vendor reset hints.
	MaxRateLimitDelay time.Duration `yaml:"max_rate_limit_delay" json:"max_rate_limit_delay"`

	Breaker BreakerConfig `yaml:"breaker" json:"breaker"`
}

// BreakerConfig configures the optional circuit breaker.
type BreakerConfig struct {
	Enabled          bool          `yaml:"enabled" json:"enabled"`
	FailureThreshold uint32        `yaml:"failure_threshold" json:"failure_threshold"`
	Timeout          time.Duration `yaml:"timeout" json:"timeout"`
	MaxRequests      uint32        `yaml:"max_requests" json:"max_requests"`
}

// DefaultConfig allows 10000 calls per minute, 60s per attempt and 3 attempts.
func DefaultConfig() Config {
	return Config{
		Timeout:           60 * time.Second,
		MaxAttempts:       3,
		PermitLimit:       10000,
		Window:            time.Minute,
		BaseDelay:         200 * time.Millisecond,
		MaxDelay:          3 * time.Second,
		Jitter:            0.2,
		MaxRateLimitDelay: time.Minute,
		Breaker:           DefaultBreakerConfig(),
	}
}

// DefaultBreakerConfig opens after 5 consecutive transient failures for 60s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Timeout:          60 * time.Second,
		MaxRequests:      1,
	}
}

// Validate joins the errors of every out of range setting.
func (c Config) Validate() error {
	var errs []error
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.PermitLimit <= 0 {
		errs = append(errs, fmt.Errorf("permit_limit must be positive, got %d", c.PermitLimit))
	}
	if c.Window <= 0 {
		errs = append(errs, fmt.Errorf("window must be positive, got %s", c.Window))
	}
	if c.QueueLimit < 0 {
		errs = append(errs, fmt.Errorf("queue_limit must not be negative, got %d", c.QueueLimit))
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		errs = append(errs, fmt.Errorf("jitter must be within [0, 1], got %g", c.Jitter))
	}
	if c.Breaker.Enabled && c.Breaker.FailureThreshold == 0 {
		errs = append(errs, errors.New("breaker.failure_threshold must be positive when the breaker is enabled"))
	}
	return errors.Join(errs...)
}

func (c Config) attempts() int {
	if c.MaxAttempts < 1 {
		return 1
	}
	return c.MaxAttempts
}
