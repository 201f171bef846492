package errors

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxRetries   int           // Maximum number of retries (0 = no retries)
	InitialDelay time.Duration // Delay before the first retry
	MaxDelay     time.Duration // Cap on the delay between retries
	Multiplier   float64       // Backoff multiplier
	Jitter       float64       // Random jitter factor (0-1)
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

// Retrier retries transient failures with exponential backoff. Which errors
// count as transient is decided by IsRetryable, so only network, timeout,
// rate-limit and 5xx failures are attempted again.
type Retrier struct {
	config RetryConfig
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewRetrier creates a new retrier.
func NewRetrier(config RetryConfig) *Retrier {
	return &Retrier{
		config: config,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewDefaultRetrier creates a retrier with default configuration.
func NewDefaultRetrier() *Retrier {
	return NewRetrier(DefaultRetryConfig())
}

// Do executes fn, retrying transient failures. It returns nil on the first
// success, the last error once retries are exhausted, and a Cancelled error
// as soon as the context is done.
func (r *Retrier) Do(ctx context.Context, operation, url string, fn func(ctx context.Context) error) error {
	delay := r.config.InitialDelay

	var lastErr error
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if err := fn(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if ctx.Err() != nil {
			return NewCancelledError(url, operation)
		}
		if attempt >= r.config.MaxRetries || !IsRetryable(lastErr) {
			break
		}

		select {
		case <-ctx.Done():
			return NewCancelledError(url, operation)
		case <-time.After(r.jittered(delay)):
		}

		delay = time.Duration(float64(delay) * r.config.Multiplier)
		if delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
	}

	return lastErr
}

// jittered spreads a delay by the configured jitter factor.
func (r *Retrier) jittered(base time.Duration) time.Duration {
	if r.config.Jitter <= 0 {
		return base
	}
	jitter := r.config.Jitter * float64(base)
	r.mu.Lock()
	offset := (r.rng.Float64() * 2 * jitter) - jitter
	r.mu.Unlock()
	return time.Duration(float64(base) + offset)
}
