// Package errors provides error types and handling for the crawler.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrorType categorizes errors for handling decisions.
type ErrorType int

const (
	// Unknown is an uncategorized error.
	Unknown ErrorType = iota
	// Config represents invalid configuration, detected before crawl start.
	Config
	// Network represents network-related errors (DNS, connection).
	Network
	// Timeout represents timeout errors.
	Timeout
	// RateLimit represents rate limiting (429) errors.
	RateLimit
	// ServerError represents 5xx errors.
	ServerError
	// ClientError represents 4xx errors (except 429).
	ClientError
	// Parse represents parsing errors (HTML, config files).
	Parse
	// Cancelled represents context cancellation.
	Cancelled
)

// String returns the string representation of ErrorType.
func (t ErrorType) String() string {
	switch t {
	case Config:
		return "config"
	case Network:
		return "network"
	case Timeout:
		return "timeout"
	case RateLimit:
		return "rate_limit"
	case ServerError:
		return "server_error"
	case ClientError:
		return "client_error"
	case Parse:
		return "parse"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsRetryable returns whether errors of this type should be retried.
func (t ErrorType) IsRetryable() bool {
	switch t {
	case Network, Timeout, RateLimit, ServerError:
		return true
	default:
		return false
	}
}

// CrawlError represents a categorized crawl error.
type CrawlError struct {
	Type       ErrorType
	URL        string
	Operation  string
	Message    string
	Cause      error
	StatusCode int
	Retryable  bool
}

// Error implements the error interface.
func (e *CrawlError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error during %s on %s: %s (caused by: %v)",
			e.Type.String(), e.Operation, e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error during %s on %s: %s",
		e.Type.String(), e.Operation, e.URL, e.Message)
}

// Unwrap returns the underlying error.
func (e *CrawlError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches a target.
func (e *CrawlError) Is(target error) bool {
	t, ok := target.(*CrawlError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewCrawlError creates a new CrawlError.
func NewCrawlError(errType ErrorType, url, operation, message string, cause error) *CrawlError {
	return &CrawlError{
		Type:      errType,
		URL:       url,
		Operation: operation,
		Message:   message,
		Cause:     cause,
		Retryable: errType.IsRetryable(),
	}
}

// NewConfigError creates a configuration error. Configuration errors are
// reported before any worker starts and are never retried.
func NewConfigError(field, message string) *CrawlError {
	return NewCrawlError(Config, "", "configure", fmt.Sprintf("%s: %s", field, message), nil)
}

// NewNetworkError creates a network error.
func NewNetworkError(url, operation string, cause error) *CrawlError {
	return NewCrawlError(Network, url, operation, "network failure", cause)
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(url, operation string, cause error) *CrawlError {
	return NewCrawlError(Timeout, url, operation, "request timed out", cause)
}

// NewRateLimitError creates a rate limit error.
func NewRateLimitError(url string) *CrawlError {
	err := NewCrawlError(RateLimit, url, "request", "rate limited by server", nil)
	err.StatusCode = 429
	return err
}

// NewServerError creates a server error.
func NewServerError(url string, statusCode int) *CrawlError {
	err := NewCrawlError(ServerError, url, "request", fmt.Sprintf("server returned %d", statusCode), nil)
	err.StatusCode = statusCode
	return err
}

// NewClientError creates a client error.
func NewClientError(url string, statusCode int) *CrawlError {
	err := NewCrawlError(ClientError, url, "request", fmt.Sprintf("client error %d", statusCode), nil)
	err.StatusCode = statusCode
	err.Retryable = false
	return err
}

// NewParseError creates a parse error.
func NewParseError(url, operation string, cause error) *CrawlError {
	err := NewCrawlError(Parse, url, operation, "parsing failed", cause)
	err.Retryable = false
	return err
}

// NewCancelledError creates a cancelled error.
func NewCancelledError(url, operation string) *CrawlError {
	err := NewCrawlError(Cancelled, url, operation, "operation cancelled", nil)
	err.Retryable = false
	return err
}

// Categorize determines the error type from a generic error.
func Categorize(err error, url string) *CrawlError {
	if err == nil {
		return nil
	}

	var crawlErr *CrawlError
	if errors.As(err, &crawlErr) {
		return crawlErr
	}

	if errors.Is(err, context.Canceled) {
		return NewCancelledError(url, "request")
	}

	if isTimeout(err) {
		return NewTimeoutError(url, "request", err)
	}

	if isNetworkError(err) {
		return NewNetworkError(url, "request", err)
	}

	return NewCrawlError(Unknown, url, "request", err.Error(), err)
}

// CategorizeHTTPStatus creates an error from an HTTP status code, or nil for
// non-error statuses.
func CategorizeHTTPStatus(statusCode int, url string) *CrawlError {
	switch {
	case statusCode == 429:
		return NewRateLimitError(url)
	case statusCode >= 500:
		return NewServerError(url, statusCode)
	case statusCode >= 400:
		return NewClientError(url, statusCode)
	default:
		return nil
	}
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return Unknown
	}
	var crawlErr *CrawlError
	if errors.As(err, &crawlErr) {
		return crawlErr.Type
	}
	return Categorize(err, "").Type
}

// IsRetryable checks if an error should be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var crawlErr *CrawlError
	if errors.As(err, &crawlErr) {
		return crawlErr.Retryable
	}
	return GetErrorType(err).IsRetryable()
}

// isTimeout checks if an error is a timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// isNetworkError checks if an error is network-related.
func isNetworkError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "dial tcp")
}
