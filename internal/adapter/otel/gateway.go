package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// TracingGateway wraps one payment gateway with OpenTelemetry tracing.
// Amounts and references are recorded; secrets never reach the span.
type TracingGateway struct {
	method domain.PaymentMethod
	next   domain.Gateway
	tracer trace.Tracer
}

// Compile-time check: TracingGateway implements domain.Gateway.
var _ domain.Gateway = (*TracingGateway)(nil)

// NewTracingGateway creates a tracing decorator around the given gateway.
func NewTracingGateway(method domain.PaymentMethod, next domain.Gateway) *TracingGateway {
	return &TracingGateway{method: method, next: next, tracer: otel.Tracer(tracerName)}
}

// TraceGateways decorates every gateway in the set.
func TraceGateways(gateways domain.Gateways) domain.Gateways {
	out := make(domain.Gateways, len(gateways))
	for method, gw := range gateways {
		out[method] = NewTracingGateway(method, gw)
	}
	return out
}

func (g *TracingGateway) CreateLink(ctx context.Context, req domain.LinkRequest) (domain.Link, error) {
	ctx, span := g.tracer.Start(ctx, "Gateway.CreateLink",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("payment.method", string(g.method)),
			attribute.String("payment.reference", req.Reference),
			attribute.String("payment.amount", req.Amount.StringFixed(2)),
			attribute.String("payment.currency", req.Currency),
		),
	)
	defer span.End()

	link, err := g.next.CreateLink(ctx, req)
	record(span, err)
	if err == nil {
		span.SetAttributes(attribute.String("payment.link_id", link.ID))
	}
	return link, err
}

func (g *TracingGateway) Verify(ctx context.Context, confirmationID, linkID string) (bool, error) {
	ctx, span := g.tracer.Start(ctx, "Gateway.Verify",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("payment.method", string(g.method)),
			attribute.String("payment.link_id", linkID),
		),
	)
	defer span.End()

	ok, err := g.next.Verify(ctx, confirmationID, linkID)
	record(span, err)
	if err == nil {
		span.SetAttributes(attribute.Bool("payment.verified", ok))
	} else {
		span.SetAttributes(attribute.Bool("payment.transient", domain.IsTransient(err)))
	}
	return ok, err
}
