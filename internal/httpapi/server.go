package httpapi

import (
	"net/http"

	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/platform/logger"
)

// NewServer wraps the gin engine in a *http.Server configured from
// cfg.HTTP so the composition root can drive ListenAndServe/Shutdown
// without knowing gin is underneath.
func NewServer(cfg *config.Config, log *logger.Logger, h Handlers) *http.Server {
	router := New(cfg, log, h)
	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout.Duration,
		IdleTimeout:       cfg.HTTP.IdleTimeout.Duration,
	}
}
