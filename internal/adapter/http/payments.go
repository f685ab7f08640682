package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/neomorfeo/tillpoint/internal/app"
	"github.com/neomorfeo/tillpoint/internal/domain"
)

var paymentConfirmations = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "tillpoint",
	Subsystem: "payments",
	Name:      "confirmations_total",
	Help:      "Payment confirmations by outcome.",
}, []string{"outcome"})

func init() {
	prometheus.MustRegister(paymentConfirmations)
}

func confirmationOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrVerificationFailed):
		return "failed"
	case domain.IsTransient(err):
		return "retry"
	default:
		return "error"
	}
}

type CreatePaymentLinkInput struct {
	Body struct {
		PlanID string `json:"plan_id" minLength:"1"`
		Method string `json:"method" enum:"razorpay,stripe"`
	}
}

type PaymentLinkOutput struct {
	Body PaymentLinkResponse
}

type ProceedInput struct {
	Body struct {
		ConfirmationID string `json:"confirmation_id" minLength:"1" doc:"Gateway payment or session ID"`
		LinkID         string `json:"link_id" minLength:"1" doc:"Link ID returned at creation"`
	}
}

type RazorpayCallbackInput struct {
	PaymentID   string `query:"razorpay_payment_id" required:"true"`
	LinkID      string `query:"razorpay_payment_link_id" required:"true"`
	ReferenceID string `query:"razorpay_payment_link_reference_id"`
	Status      string `query:"razorpay_payment_link_status"`
	Signature   string `query:"razorpay_signature" required:"true"`
}

type PaymentOrderOutput struct {
	Body PaymentOrderResponse
}

func registerPayments(api huma.API, svc *app.PaymentService, razorpay CallbackVerifier) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-payment-link",
		Method:        http.MethodPost,
		Path:          "/api/v1/payments/links",
		Summary:       "Issue a payment link for a plan",
		Tags:          []string{"Payments"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreatePaymentLinkInput) (*PaymentLinkOutput, error) {
		link, err := svc.CreatePaymentLink(ctx, principalFrom(ctx), input.Body.PlanID, domain.PaymentMethod(input.Body.Method))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &PaymentLinkOutput{Body: PaymentLinkResponse{
			OrderID: link.OrderID,
			LinkID:  link.LinkID,
			URL:     link.URL,
			Amount:  link.Amount.StringFixed(2),
			Method:  string(link.Method),
		}}, nil
	})

	respond := func(order domain.PaymentOrder, err error) (*PaymentOrderOutput, error) {
		paymentConfirmations.WithLabelValues(confirmationOutcome(err)).Inc()
		if err != nil {
			return nil, toHumaError(err)
		}
		return &PaymentOrderOutput{Body: toPaymentOrderResponse(order)}, nil
	}

	// Only the payer who issued the link may confirm it here.
	huma.Register(api, huma.Operation{
		OperationID: "proceed-payment",
		Method:      http.MethodPost,
		Path:        "/api/v1/payments/proceed",
		Summary:     "Confirm a payment and activate the plan",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *ProceedInput) (*PaymentOrderOutput, error) {
		return respond(svc.ProceedAs(ctx, principalFrom(ctx), input.Body.ConfirmationID, input.Body.LinkID))
	})

	if razorpay == nil {
		return
	}
	huma.Register(api, huma.Operation{
		OperationID: "razorpay-callback",
		Method:      http.MethodGet,
		Path:        "/api/v1/payments/razorpay/callback",
		Summary:     "Payer redirect after a Razorpay payment link",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *RazorpayCallbackInput) (*PaymentOrderOutput, error) {
		if !razorpay.ValidCallback(input.LinkID, input.ReferenceID, input.Status, input.PaymentID, input.Signature) {
			return nil, huma.Error400BadRequest("invalid callback signature")
		}
		// The gateway's redirect carries no credentials; its signature
		// stands in for them.
		return respond(svc.Proceed(ctx, input.PaymentID, input.LinkID))
	})
}
