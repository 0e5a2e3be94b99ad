// Package main is the entry point for the ToolHive transform registry.
package main

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/viper"
	"github.com/stacklok/toolhive-core/logging"
	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/toolhive-transform-registry/cmd/thv-transform-registry/app"
	"github.com/stacklok/toolhive-transform-registry/internal/config"
)

// getLogLevel parses THV_TRANSFORM_LOG_LEVEL, falling back to LOG_LEVEL.
// Defaults to slog.LevelInfo if neither is set or if the value is invalid.
func getLogLevel() slog.Level {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	levelStr := v.GetString("LOG_LEVEL")
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
	}

	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		slog.Warn("Invalid LOG_LEVEL, using INFO", "value", levelStr)
		return slog.LevelInfo
	}
}

// traceHandler wraps an slog.Handler to inject the OpenTelemetry trace_id and span_id
// into every log record.
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

func main() {
	// Structured JSON logging from the shared toolhive-core logging package, on stderr so
	// stdout stays clean for commands that print documents
	baseHandler := logging.NewHandler(logging.WithLevel(getLogLevel()))
	handler := &traceHandler{Handler: baseHandler}
	slog.SetDefault(slog.New(handler))

	// Aggregation code logs through the logr.Logger carried by the context
	ctx := logr.NewContext(context.Background(), logr.FromSlogHandler(handler))

	if err := app.NewRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
