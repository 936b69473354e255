// Package httpx holds the retry policy shared by every upstream client:
// provider completions/embeddings and the vector store's HTTP calls all
// retry a single time, after a fixed backoff or the upstream's Retry-After,
// on transient failures.
package httpx

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/studyforge/studyforge/internal/platform/logger"
)

// HTTPStatusCoder is implemented by upstream errors that carry the response
// status code (see oaihttp.HTTPError and qdrant's equivalent).
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// RetryAfterCoder is implemented by upstream errors that observed a
// Retry-After response header. A present value of 0 is the upstream telling
// the caller explicitly not to retry.
type RetryAfterCoder interface {
	RetryAfterSeconds() (seconds int, ok bool)
}

func IsRetryableHTTPStatus(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

// IsRetryableError reports whether err looks like a transient upstream
// failure: a connection reset, a network timeout, or an HTTP 5xx/408/429.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var sc HTTPStatusCoder
	if errors.As(err, &sc) {
		return IsRetryableHTTPStatus(sc.HTTPStatusCode())
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if strings.Contains(strings.ToLower(err.Error()), "connection reset") {
		return true
	}
	return false
}

// RetryAfterDuration picks how long to wait before the single retry: it
// honors an explicit Retry-After header when err carries one (a value of 0
// means the upstream asked not to be retried at all, reported via ok=false),
// and otherwise falls back to backoff clamped to max.
func RetryAfterDuration(err error, backoff, max time.Duration) (wait time.Duration, ok bool) {
	var rac RetryAfterCoder
	if errors.As(err, &rac) {
		if secs, present := rac.RetryAfterSeconds(); present {
			if secs <= 0 {
				return 0, false
			}
			d := time.Duration(secs) * time.Second
			if max > 0 && d > max {
				d = max
			}
			return d, true
		}
	}
	if max > 0 && backoff > max {
		backoff = max
	}
	return backoff, true
}

// Once runs fn, and if it fails with a retryable error, waits once (for the
// Retry-After value when present, else backoff) and runs it a second time. This is the upstream
// recovery policy for transient failures; it is distinct from (and sits
// underneath) schema-repair retries, which resend a corrected prompt rather
// than replaying the same request.
func Once(ctx context.Context, log *logger.Logger, backoff time.Duration, fn func() error) error {
	err := fn()
	if err == nil || !IsRetryableError(err) {
		return err
	}

	wait, ok := RetryAfterDuration(err, backoff, 30*time.Second)
	if !ok {
		return err
	}

	if log != nil {
		log.Warn("retrying upstream call after transient failure", "wait", wait.String(), "error", err.Error())
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
	}

	return fn()
}
