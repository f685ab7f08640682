package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// TracingNotifier wraps a domain.Notifier with OpenTelemetry tracing.
type TracingNotifier struct {
	next   domain.Notifier
	tracer trace.Tracer
}

var _ domain.Notifier = (*TracingNotifier)(nil)

func NewTracingNotifier(next domain.Notifier) *TracingNotifier {
	return &TracingNotifier{next: next, tracer: otel.Tracer(tracerName)}
}

func (n *TracingNotifier) Send(ctx context.Context, address, subject, body string) error {
	ctx, span := n.tracer.Start(ctx, "Notifier.Send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("notification.subject", subject)),
	)
	defer span.End()

	err := n.next.Send(ctx, address, subject, body)
	record(span, err)
	return err
}
