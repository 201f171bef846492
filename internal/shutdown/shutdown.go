// Package shutdown handles interrupt signals and orderly teardown of a
// running crawl: drain the workers, flush the output writer, print the
// final summary.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Callback is a teardown step executed during shutdown.
type Callback func(ctx context.Context) error

// Handler listens for termination signals and runs registered teardown
// steps in reverse registration order.
type Handler struct {
	mu    sync.Mutex
	steps []step

	shuttingDown atomic.Bool
	done         chan struct{}
	timeout      time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	sigChan chan os.Signal

	onStart func()
	onDone  func(elapsed time.Duration, errs []error)
}

type step struct {
	name string
	fn   Callback
}

// Config holds shutdown configuration.
type Config struct {
	Timeout time.Duration
	Signals []os.Signal
	OnStart func()
	OnDone  func(elapsed time.Duration, errs []error)
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// New creates a shutdown handler and starts listening for signals.
func New(cfg Config) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if len(cfg.Signals) == 0 {
		cfg.Signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	ctx, cancel := context.WithCancel(context.Background())

	h := &Handler{
		done:    make(chan struct{}),
		timeout: cfg.Timeout,
		ctx:     ctx,
		cancel:  cancel,
		sigChan: make(chan os.Signal, 1),
		onStart: cfg.OnStart,
		onDone:  cfg.OnDone,
	}

	signal.Notify(h.sigChan, cfg.Signals...)

	return h
}

// NewDefault creates a handler with default configuration.
func NewDefault() *Handler {
	return New(DefaultConfig())
}

// Register adds a named teardown step.
func (h *Handler) Register(name string, fn Callback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.steps = append(h.steps, step{name: name, fn: fn})
}

// RegisterFunc adds a teardown step that cannot fail.
func (h *Handler) RegisterFunc(name string, fn func()) {
	h.Register(name, func(ctx context.Context) error {
		fn()
		return nil
	})
}

// Context returns a context that is cancelled when shutdown begins.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// IsShuttingDown reports whether shutdown has started.
func (h *Handler) IsShuttingDown() bool {
	return h.shuttingDown.Load()
}

// Done returns a channel closed when shutdown completes.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until a signal arrives, then runs shutdown.
func (h *Handler) Wait() {
	select {
	case <-h.sigChan:
		h.Shutdown()
	case <-h.ctx.Done():
		// Already shutting down
	}
}

// WaitWithContext waits for a signal or context cancellation.
func (h *Handler) WaitWithContext(ctx context.Context) {
	select {
	case <-h.sigChan:
		h.Shutdown()
	case <-ctx.Done():
		h.Shutdown()
	case <-h.ctx.Done():
		// Already shutting down
	}
}

// Listen starts waiting for signals in the background and returns the
// completion channel.
func (h *Handler) Listen() <-chan struct{} {
	go h.Wait()
	return h.done
}

// Shutdown runs the registered teardown steps in reverse order, each
// bounded by the configured timeout. Safe to call more than once.
func (h *Handler) Shutdown() {
	if !h.shuttingDown.CompareAndSwap(false, true) {
		return
	}

	start := time.Now()

	if h.onStart != nil {
		h.onStart()
	}

	// Cancel first so in-flight work stops before teardown runs.
	h.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	steps := make([]step, len(h.steps))
	copy(steps, h.steps)
	h.mu.Unlock()

	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		if err := h.runStep(ctx, steps[i]); err != nil {
			errs = append(errs, err)
		}
	}

	if h.onDone != nil {
		h.onDone(time.Since(start), errs)
	}

	close(h.done)
}

func (h *Handler) runStep(ctx context.Context, s step) error {
	done := make(chan error, 1)

	go func() {
		done <- s.fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return &TimeoutError{Step: s.name}
	}
}

// ShutdownNow cancels the context and completes without running
// teardown steps.
func (h *Handler) ShutdownNow() {
	if !h.shuttingDown.CompareAndSwap(false, true) {
		return
	}
	h.cancel()
	close(h.done)
}

// Trigger injects a termination signal programmatically.
func (h *Handler) Trigger() {
	select {
	case h.sigChan <- syscall.SIGTERM:
	default:
		// Signal already pending
	}
}

// TimeoutError is returned when a teardown step exceeds the timeout.
type TimeoutError struct {
	Step string
}

func (e *TimeoutError) Error() string {
	return "shutdown step timed out: " + e.Step
}
