// Package stripe is the international card gateway. A payment link is a
// Checkout Session; confirmation is the session or its payment intent.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	stripego "github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// Compile-time check: Client implements domain.Gateway.
var _ domain.Gateway = (*Client)(nil)

// Config holds the secret key and the Checkout return pages.
type Config struct {
	SecretKey  string
	BaseURL    string // empty selects the live API
	SuccessURL string
	CancelURL  string
	HTTPClient *http.Client
}

// Client issues Checkout Sessions through the official SDK.
type Client struct {
	api        *client.API
	successURL string
	cancelURL  string
}

// New creates a client. Retries are left to callers so that a timeout on
// Proceed surfaces as a transient error instead of a long stall.
func New(cfg Config) *Client {
	backendCfg := &stripego.BackendConfig{
		MaxNetworkRetries: stripego.Int64(0),
		LeveledLogger:     &stripego.LeveledLogger{Level: stripego.LevelError},
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripego.String(strings.TrimRight(cfg.BaseURL, "/"))
	}
	if cfg.HTTPClient != nil {
		backendCfg.HTTPClient = cfg.HTTPClient
	}

	backend := stripego.GetBackendWithConfig(stripego.APIBackend, backendCfg)
	api := client.New(cfg.SecretKey, &stripego.Backends{API: backend, Connect: backend, Uploads: backend})

	return &Client{api: api, successURL: cfg.SuccessURL, cancelURL: cfg.CancelURL}
}

// CreateLink opens a one-item payment-mode Checkout Session.
func (c *Client) CreateLink(ctx context.Context, req domain.LinkRequest) (domain.Link, error) {
	name := req.Description
	if name == "" {
		name = "Subscription"
	}

	params := &stripego.CheckoutSessionParams{
		Mode:              stripego.String(string(stripego.CheckoutSessionModePayment)),
		ClientReferenceID: stripego.String(req.Reference),
		SuccessURL:        stripego.String(c.successURL),
		CancelURL:         stripego.String(c.cancelURL),
		LineItems: []*stripego.CheckoutSessionLineItemParams{{
			Quantity: stripego.Int64(1),
			PriceData: &stripego.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripego.String(strings.ToLower(req.Currency)),
				UnitAmount: stripego.Int64(req.Amount.Shift(2).Round(0).IntPart()),
				ProductData: &stripego.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripego.String(name),
				},
			},
		}},
	}
	if req.PayerEmail != "" {
		params.CustomerEmail = stripego.String(req.PayerEmail)
	}
	params.Context = ctx
	params.AddMetadata("order_id", req.Reference)

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return domain.Link{}, classify("create link", err)
	}
	return domain.Link{ID: sess.ID, URL: sess.URL}, nil
}

// Verify reports whether the session is paid and confirmationID names either
// the session itself or its payment intent.
func (c *Client) Verify(ctx context.Context, confirmationID, linkID string) (bool, error) {
	params := &stripego.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("payment_intent")

	sess, err := c.api.CheckoutSessions.Get(linkID, params)
	if err != nil {
		return false, classify("verify", err)
	}
	if sess.PaymentStatus != stripego.CheckoutSessionPaymentStatusPaid {
		return false, nil
	}
	if confirmationID == sess.ID {
		return true, nil
	}
	return sess.PaymentIntent != nil && sess.PaymentIntent.ID == confirmationID, nil
}

// classify marks network failures, rate limits and 5xx responses as
// temporary. Anything the API rejected outright is not.
func classify(op string, err error) error {
	temporary := true
	var stripeErr *stripego.Error
	if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode != 0 {
		temporary = stripeErr.HTTPStatusCode >= 500 || stripeErr.HTTPStatusCode == http.StatusTooManyRequests
		err = fmt.Errorf("status %d: %s", stripeErr.HTTPStatusCode, stripeErr.Msg)
	}
	return &domain.GatewayError{Method: domain.MethodStripe, Op: op, Temporary: temporary, Err: err}
}
