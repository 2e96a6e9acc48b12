package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Measure starts a span named op and returns a finish func that ends it and
// logs the elapsed time at debug level. A non-nil error passed to finish is
// recorded on the span.
func Measure(ctx context.Context, tracer trace.Tracer, logger *slog.Logger, op string, attrs ...attribute.KeyValue) (context.Context, func(error) time.Duration) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attrs...))
	return ctx, func(err error) time.Duration {
		elapsed := time.Since(start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		logger.LogAttrs(ctx, slog.LevelDebug, "measured", slog.String("op", op), slog.Duration("elapsed", elapsed))
		return elapsed
	}
}
