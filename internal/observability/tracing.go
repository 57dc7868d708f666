// Package observability registers the process-wide tracing provider the
// reactor and scheduler's otel.Tracer calls need; without it otel hands out
// a no-op tracer and every span silently vanishes.
package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// slogExporter writes finished spans through the same slog.Logger as the
// rest of the tree, rather than pulling in a collector-bound exporter this
// exercise has nowhere to point.
type slogExporter struct {
	logger *slog.Logger
}

func (e *slogExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		e.logger.Debug("trace span",
			slog.String("name", s.Name()),
			slog.String("trace_id", s.SpanContext().TraceID().String()),
			slog.Duration("duration", s.EndTime().Sub(s.StartTime())))
	}
	return nil
}

func (e *slogExporter) Shutdown(context.Context) error { return nil }

// NewTracerProvider builds and globally registers a TracerProvider backed
// by slogExporter. The returned provider's Shutdown must be called on exit
// to flush the batcher.
func NewTracerProvider(logger *slog.Logger) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(&slogExporter{logger: logger}),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	return tp
}
