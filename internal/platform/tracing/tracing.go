// Package tracing wires an OpenTelemetry TracerProvider for the HTTP
// server's otelgin middleware. Tracing is opt-in: when OTEL_ENABLED is not
// set, Init installs a no-op shutdown and otelgin's spans are
// recorded but never exported.
package tracing

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/studyforge/studyforge/internal/platform/logger"
)

var (
	once     sync.Once
	shutdown func(context.Context) error
)

// Init installs the process-wide TracerProvider named serviceName and
// returns a shutdown func that flushes and stops the exporter. Init is
// idempotent; only the first call takes effect.
func Init(ctx context.Context, log *logger.Logger, serviceName string, enabled bool) func(context.Context) error {
	once.Do(func() {
		if !enabled {
			shutdown = func(context.Context) error { return nil }
			return
		}

		name := strings.TrimSpace(serviceName)
		if name == "" {
			name = "studyforge"
		}

		res, err := resource.New(ctx, resource.WithAttributes(
			attribute.String("service.name", name),
		))
		if err != nil {
			log.Warn("otel resource init failed, tracing disabled", "error", err)
			shutdown = func(context.Context) error { return nil }
			return
		}

		exporter, err := stdouttrace.New(stdouttrace.WithoutTimestamps())
		if err != nil {
			log.Warn("otel exporter init failed, tracing disabled", "error", err)
			shutdown = func(context.Context) error { return nil }
			return
		}

		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(tp)
		shutdown = tp.Shutdown
		log.Info("otel tracing initialized", "service", name)
	})
	return shutdown
}
