package vectorstore

import (
	"errors"

	"github.com/studyforge/studyforge/internal/platform/apierr"
)

// classifiable is implemented by adapter-specific operation errors that know
// whether they represent a timeout.
type classifiable interface {
	error
	Timeout() bool
}

// Wrap maps an adapter error into the apierr taxonomy so callers never need
// to import a specific adapter's error type.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if apiErr, ok := apierr.As(err); ok {
		return apiErr
	}
	var c classifiable
	if errors.As(err, &c) && c.Timeout() {
		return apierr.UpstreamTimeoutf(err, "vector store %s timed out", op)
	}
	return apierr.UpstreamErrorf(err, "vector store %s failed", op)
}
