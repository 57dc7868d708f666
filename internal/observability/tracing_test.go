package observability

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel"
)

func TestNewTracerProviderRegistersGlobalTracer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tp := NewTracerProvider(logger)
	defer tp.Shutdown(context.Background())

	tracer := otel.Tracer("actorhub/test")
	_, span := tracer.Start(context.Background(), "unit-test-span")
	span.End()

	assert.True(t, span.SpanContext().IsValid(), "a real provider must hand back a sampled, valid span context")
}

func TestTracerProviderShutdownFlushesWithoutError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tp := NewTracerProvider(logger)

	tracer := otel.Tracer("actorhub/test")
	_, span := tracer.Start(context.Background(), "flush-me")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, tp.Shutdown(ctx))
}
