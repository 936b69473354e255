// Package app is studyforge's composition root: it loads configuration,
// wires every service, builds the HTTP server, and runs it to graceful
// shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/studyforge/studyforge/internal/config"
	"github.com/studyforge/studyforge/internal/httpapi"
	"github.com/studyforge/studyforge/internal/platform/logger"
	"github.com/studyforge/studyforge/internal/platform/tracing"
)

type App struct {
	Log      *logger.Logger
	Config   *config.Config
	Services *Services

	server        *http.Server
	closer        func()
	traceShutdown func(context.Context) error
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	ctx := context.Background()
	traceShutdown := tracing.Init(ctx, log, "studyforge", otelEnabled())

	services, closer, err := BuildServices(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("build services: %w", err)
	}

	handlers := httpapi.Handlers{
		Documents:   httpapi.NewDocumentsHandler(log, services.Ingestion),
		Chat:        httpapi.NewChatHandler(log, services.QA),
		Generate:    httpapi.NewGenerateHandler(log, services.Generate),
		Competitive: httpapi.NewCompetitiveHandler(log, services.Generate, services.Adaptive),
	}
	srv := httpapi.NewServer(cfg, log, handlers)

	return &App{
		Log:           log,
		Config:        cfg,
		Services:      services,
		server:        srv,
		closer:        closer,
		traceShutdown: traceShutdown,
	}, nil
}

func otelEnabled() bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv("OTEL_ENABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

// Run serves until ctx is cancelled, then shuts down gracefully within the
// configured shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	defer a.closer()
	defer a.Log.Sync()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.traceShutdown(shutdownCtx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	a.Log.Info("studyforge listening", "addr", a.Config.HTTP.Addr, "env", a.Config.Env)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.HTTP.ShutdownTimeout.Duration)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
