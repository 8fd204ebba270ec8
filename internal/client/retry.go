// Package client implements the typed HTTP clients for the two upstream
// price-feed APIs and the retry/error-classification policy they share.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	maxAttempts    = 3
	initialBackoff = 250 * time.Millisecond
	maxRetryAfter  = 30 * time.Second
)

// HTTPError is a non-2xx upstream response. 5xx and 429 are retryable;
// every other 4xx signals a caller error and must not be retried.
type HTTPError struct {
	Status     int
	Message    string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}

func (e *HTTPError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// ParseError is a response body that does not match the expected schema.
// It marks a contract break rather than a transient fault and is never
// retried.
type ParseError struct {
	Endpoint string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unexpected response shape from %s: %v", e.Endpoint, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// doWithRetry runs op up to maxAttempts times. Delays follow an exponential
// schedule with jitter unless the server supplied a Retry-After hint, which
// is honored after clamping. Exhausting all attempts returns the last error.
func doWithRetry[T any](ctx context.Context, logger *slog.Logger, op func() (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialBackoff
	bo.MaxElapsedTime = 0
	bo.Reset()

	var zero T
	for attempt := 1; ; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		if !retryable(err) || attempt >= maxAttempts {
			return zero, err
		}

		delay := bo.NextBackOff()
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
			delay = httpErr.RetryAfter
			if delay > maxRetryAfter {
				delay = maxRetryAfter
			}
		}

		logger.Warn("retrying upstream request",
			"attempt", attempt,
			"delay", delay.String(),
			"error", err.Error())

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
}

func retryable(err error) bool {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Retryable()
	}
	// Transport and timeout failures are transient.
	return true
}

// parseRetryAfter reads a Retry-After header given either as delta-seconds
// or as an HTTP-date. Absent or unparseable values yield 0.
func parseRetryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
