package action

import (
	"math"
	"time"
)

// BackoffStrategy determines how delays grow between delivery attempts.
type BackoffStrategy string

const (
	BackoffConstant    BackoffStrategy = "constant"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryPolicy defines the retry behavior for action delivery.
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts after the
	// initial delivery (so total attempts = MaxRetries + 1)
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// BackoffStrategy determines how delays are calculated between retries
	BackoffStrategy BackoffStrategy `json:"backoff_strategy" yaml:"backoff_strategy"`

	// InitialDelay is the delay before the first retry attempt
	InitialDelay time.Duration `json:"initial_delay" yaml:"initial_delay"`

	// MaxDelay is the maximum delay between retry attempts (used for exponential backoff)
	MaxDelay time.Duration `json:"max_delay,omitempty" yaml:"max_delay,omitempty"`

	// Multiplier is the factor by which the delay increases (used for exponential backoff)
	Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// DefaultRetryPolicy is a bounded exponential backoff suitable for
// webhook and notification delivery.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      4,
		BackoffStrategy: BackoffExponential,
		InitialDelay:    500 * time.Millisecond,
		MaxDelay:        30 * time.Second,
		Multiplier:      2.0,
	}
}

// CalculateDelay calculates the delay duration for a given retry attempt
// based on the configured backoff strategy.
func (rp *RetryPolicy) CalculateDelay(attempt int) time.Duration {
	switch rp.BackoffStrategy {
	case BackoffConstant:
		return rp.InitialDelay
	case BackoffLinear:
		return rp.InitialDelay + (rp.InitialDelay * time.Duration(attempt))
	case BackoffExponential:
		delay := time.Duration(float64(rp.InitialDelay) * math.Pow(rp.Multiplier, float64(attempt)))
		if delay > rp.MaxDelay {
			return rp.MaxDelay
		}
		return delay
	default:
		return rp.InitialDelay
	}
}
