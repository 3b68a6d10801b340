package cmd

import (
	"context"
	"log/slog"

	"github.com/dukex/chatflow/pkg/otelhelper"
)

// SetupTracing installs the OTLP tracer provider when enabled. The returned function
// flushes it and is safe to call when tracing is off.
func SetupTracing(ctx context.Context, logger *slog.Logger, enabled bool, serviceName string) func(context.Context) {
	if !enabled {
		return func(context.Context) {}
	}

	_, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize tracer, continuing without tracing", "error", err)

		return func(context.Context) {}
	}

	return func(ctx context.Context) {
		if err := shutdown(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
		}
	}
}
