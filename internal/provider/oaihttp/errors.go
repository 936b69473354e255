package oaihttp

import (
	"fmt"
)

type HTTPError struct {
	StatusCode int
	Body       string

	// RetryAfter is the parsed Retry-After header, in seconds, when the
	// upstream sent one. HasRetryAfter distinguishes "header absent" from
	// "header present with value 0", since the latter means don't retry.
	RetryAfter    int
	HasRetryAfter bool
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "upstream http error"
	}
	if e.Body == "" {
		return fmt.Sprintf("upstream http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("upstream http error: status=%d body=%s", e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (e *HTTPError) RetryAfterSeconds() (int, bool) {
	if e == nil {
		return 0, false
	}
	return e.RetryAfter, e.HasRetryAfter
}
