// Package shutdown provides the process-level signal context used by
// cmd/server to trigger a graceful stop.
package shutdown

import (
	"context"
	"os/signal"
	"syscall"
)

func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
