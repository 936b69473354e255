// Package httpapi adapts studyforge's services to HTTP: one gin handler
// struct per concern, request binding/validation, and the shared error
// envelope. Handlers translate requests into service calls and service
// errors into status codes; they hold no business logic of their own.
package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/studyforge/studyforge/internal/platform/apierr"
)

// errorEnvelope is the wire shape of every non-2xx response: a single
// one-line message, never a stack trace or a raw provider error body.
type errorEnvelope struct {
	Detail string `json:"detail"`
}

func respondError(c *gin.Context, err error) {
	kind := apierr.KindOf(err)
	status := apierr.StatusFor(kind)
	msg := "internal error"
	if apiErr, ok := apierr.As(err); ok && apiErr.Message != "" {
		msg = apiErr.Message
	}
	c.AbortWithStatusJSON(status, errorEnvelope{Detail: msg})
}

func badRequest(c *gin.Context, format string, args ...any) {
	respondError(c, apierr.BadInputf(format, args...))
}
