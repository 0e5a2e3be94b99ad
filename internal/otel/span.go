// Package otel provides OpenTelemetry instrumentation utilities for the transform registry.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for business context used across the application.
// Using shared keys ensures consistent attribute naming in traces.
const (
	AttrRegistryName     = attribute.Key("registry.name")
	AttrRunID            = attribute.Key("aggregation.run_id")
	AttrEngineURL        = attribute.Key("engine.url")
	AttrRemoteType       = attribute.Key("engine.remote_type")
	AttrEngineCount      = attribute.Key("aggregation.engine_count")
	AttrDocumentCount    = attribute.Key("aggregation.document_count")
	AttrTransformerName  = attribute.Key("transformer.name")
	AttrTransformerCount = attribute.Key("transformer.count")
	AttrResultCount      = attribute.Key("result.count")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
// This provides graceful degradation when tracing is disabled.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError records an error on a span and sets the span status to error.
// It safely handles nil spans and nil errors.
// The status description stays generic so engine URLs with credentials or response
// bodies never end up in the span status; details remain available as span events.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
