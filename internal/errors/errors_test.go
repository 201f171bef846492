package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
)

func TestErrorType_String(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    string
	}{
		{Config, "config"},
		{Network, "network"},
		{Timeout, "timeout"},
		{RateLimit, "rate_limit"},
		{ServerError, "server_error"},
		{ClientError, "client_error"},
		{Parse, "parse"},
		{Cancelled, "cancelled"},
		{Unknown, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.errType.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorType_IsRetryable(t *testing.T) {
	retryable := []ErrorType{Network, Timeout, RateLimit, ServerError}
	notRetryable := []ErrorType{Config, ClientError, Parse, Cancelled, Unknown}

	for _, errType := range retryable {
		if !errType.IsRetryable() {
			t.Errorf("%v should be retryable", errType)
		}
	}
	for _, errType := range notRetryable {
		if errType.IsRetryable() {
			t.Errorf("%v should not be retryable", errType)
		}
	}
}

func TestCrawlError_Error(t *testing.T) {
	err := NewNetworkError("https://example.com", "fetch", errors.New("connection refused"))
	msg := err.Error()
	for _, want := range []string{"network", "fetch", "https://example.com", "connection refused"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestCrawlError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewParseError("https://example.com", "parse_html", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find the cause")
	}
}

func TestNewConfigError(t *testing.T) {
	err := NewConfigError("allow_urls", "there must be at least 1 allow url")
	if err.Type != Config {
		t.Errorf("Type = %v, want Config", err.Type)
	}
	if err.Retryable {
		t.Error("config errors must not be retryable")
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"context cancelled", context.Canceled, Cancelled},
		{"deadline exceeded", context.DeadlineExceeded, Timeout},
		{"dns error", &net.DNSError{Err: "no such host", Name: "bad.test"}, Network},
		{"already categorized", NewServerError("https://example.com", 503), ServerError},
		{"generic", errors.New("something odd"), Unknown},
	}

	if got := Categorize(nil, "https://example.com"); got != nil {
		t.Errorf("Categorize(nil) = %v, want nil", got)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Categorize(tt.err, "https://example.com")
			if got.Type != tt.want {
				t.Errorf("Categorize() type = %v, want %v", got.Type, tt.want)
			}
		})
	}
}

func TestCategorizeHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
		isNil  bool
	}{
		{200, Unknown, true},
		{301, Unknown, true},
		{404, ClientError, false},
		{429, RateLimit, false},
		{500, ServerError, false},
		{503, ServerError, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			got := CategorizeHTTPStatus(tt.status, "https://example.com")
			if tt.isNil {
				if got != nil {
					t.Errorf("CategorizeHTTPStatus(%d) = %v, want nil", tt.status, got)
				}
				return
			}
			if got == nil || got.Type != tt.want {
				t.Errorf("CategorizeHTTPStatus(%d) = %v, want type %v", tt.status, got, tt.want)
			}
		})
	}
}

// =============================================================================
// Retrier
// =============================================================================

func TestRetrier_SucceedsFirstTry(t *testing.T) {
	r := NewDefaultRetrier()

	calls := 0
	err := r.Do(context.Background(), "fetch", "https://example.com", func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("Do() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetrier_RetriesTransientThenSucceeds(t *testing.T) {
	r := NewRetrier(RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	})

	calls := 0
	err := r.Do(context.Background(), "fetch", "https://example.com", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return NewServerError("https://example.com", 503)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetrier_DoesNotRetryPermanent(t *testing.T) {
	r := NewRetrier(RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	})

	calls := 0
	err := r.Do(context.Background(), "fetch", "https://example.com", func(ctx context.Context) error {
		calls++
		return NewClientError("https://example.com", 404)
	})
	if err == nil {
		t.Fatal("Do() error = nil, want client error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retries for 4xx)", calls)
	}
}

func TestRetrier_StopsOnCancel(t *testing.T) {
	r := NewRetrier(RetryConfig{
		MaxRetries:   10,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
	})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := r.Do(ctx, "fetch", "https://example.com", func(ctx context.Context) error {
		calls++
		cancel()
		return NewTimeoutError("https://example.com", "fetch", nil)
	})

	var crawlErr *CrawlError
	if !errors.As(err, &crawlErr) || crawlErr.Type != Cancelled {
		t.Errorf("Do() error = %v, want cancelled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
