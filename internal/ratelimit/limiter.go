// Package ratelimit provides rate limiting functionality for the crawler.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter caps the aggregate rate of take-then-fetch cycles across all
// workers. The frontier holds no rate state; every worker makes exactly one
// acquire per fetched URL, after taking it and before fetching it.
type Limiter struct {
	mu           sync.Mutex
	global       *rate.Limiter
	perHost      map[string]*rate.Limiter
	hostRate     rate.Limit
	hostBurst    int
	limitPerHost bool
}

// NewLimiter creates a limiter allowing opsPerSecond operations per second
// globally, with the given burst.
func NewLimiter(opsPerSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		global:    rate.NewLimiter(rate.Limit(opsPerSecond), burst),
		perHost:   make(map[string]*rate.Limiter),
		hostRate:  rate.Limit(opsPerSecond),
		hostBurst: burst,
	}
}

// LimitPerHost additionally caps each host at opsPerSecond, on top of the
// global limit.
func (l *Limiter) LimitPerHost(opsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limitPerHost = true
	l.hostRate = rate.Limit(opsPerSecond)
	l.hostBurst = burst
	l.perHost = make(map[string]*rate.Limiter)
}

// Wait blocks until a global token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.global.Wait(ctx)
}

// WaitHost is the single acquire for one fetch: it takes one global token,
// plus the host's own token when per-host limiting is enabled. Callers must
// not pair it with a separate Wait for the same URL.
func (l *Limiter) WaitHost(ctx context.Context, host string) error {
	if err := l.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	if !l.limitPerHost || host == "" {
		l.mu.Unlock()
		return nil
	}
	hl, ok := l.perHost[host]
	if !ok {
		hl = rate.NewLimiter(l.hostRate, l.hostBurst)
		l.perHost[host] = hl
	}
	l.mu.Unlock()

	return hl.Wait(ctx)
}

// Allow reports whether an operation may proceed right now, without blocking.
func (l *Limiter) Allow() bool {
	return l.global.Allow()
}

// SetRate updates the global rate limit.
func (l *Limiter) SetRate(opsPerSecond float64, burst int) {
	l.global.SetLimit(rate.Limit(opsPerSecond))
	l.global.SetBurst(burst)
}

// Stats describes the limiter's configuration.
type Stats struct {
	Rate      float64 `json:"rate"`
	Burst     int     `json:"burst"`
	HostCount int     `json:"host_count"`
}

// Stats returns rate limiter statistics.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Rate:      float64(l.global.Limit()),
		Burst:     l.global.Burst(),
		HostCount: len(l.perHost),
	}
}
