package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/studyforge/studyforge/internal/platform/logger"
)

// accessLogMiddleware logs one line per completed request; document_id,
// session_id, and quiz_id in any structured fields are hashed by the
// logger's own redaction, never logged raw.
func accessLogMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// recoverMiddleware converts a panic in a handler into a 500 with the
// standard error envelope instead of tearing down the connection.
func recoverMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered", "path", c.FullPath(), "panic", r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorEnvelope{Detail: "internal error"})
			}
		}()
		c.Next()
	}
}

// maxRequestBytes rejects request bodies over the configured cap before a
// handler ever reads them.
func maxRequestBytes(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
