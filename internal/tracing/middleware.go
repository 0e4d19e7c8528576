package tracing

import (
	"context"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/datarocks/lwgs-searchindex-client/internal/amqp"
)

// WrapHandler surrounds a consumer handler with a span per delivery,
// recording the queue and correlation id.
func WrapHandler(tracer trace.Tracer, queue string, next amqp.HandlerFunc) amqp.HandlerFunc {
	return func(ctx context.Context, delivery amqp091.Delivery) error {
		ctx, span := tracer.Start(ctx, "consume "+queue,
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.destination", queue),
				attribute.String("messaging.correlation_id", delivery.CorrelationId),
			),
		)
		defer span.End()

		err := next(ctx, delivery)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}
}
