package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod selects the gateway that collects a payment.
type PaymentMethod string

const (
	// MethodRazorpay is the domestic provider.
	MethodRazorpay PaymentMethod = "razorpay"
	// MethodStripe is the international card provider.
	MethodStripe PaymentMethod = "stripe"
)

// PaymentOrder is one attempt to pay for a plan. It leaves pending exactly once.
type PaymentOrder struct {
	ID             string
	Amount         decimal.Decimal
	Currency       string
	Method         PaymentMethod
	LinkID         string
	LinkURL        string
	Status         PaymentStatus
	PrincipalID    string
	TenantID       string
	PlanID         string
	SubscriptionID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Finalized reports whether the order has left the pending state.
func (o PaymentOrder) Finalized() bool {
	return o.Status != PaymentPending
}

// LinkRequest is what a gateway needs to issue a payable link.
type LinkRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	Description string
	PayerName   string
	PayerEmail  string
}

// Link is the opaque handle a gateway returns for a payable link.
type Link struct {
	ID  string
	URL string
}

// PaymentLink is returned to the payer after an order is created.
type PaymentLink struct {
	OrderID string
	LinkID  string
	URL     string
	Amount  decimal.Decimal
	Method  PaymentMethod
}
