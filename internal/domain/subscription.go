package domain

import "time"

// SubscriptionStatus is the billing state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Valid reports whether s is a known status.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionTrial, SubscriptionActive, SubscriptionExpired, SubscriptionCancelled:
		return true
	}
	return false
}

// PaymentStatus is the payment state of a subscription or payment order.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentSuccess || s == PaymentFailed
}

// SubscriptionEvent triggers a subscription state transition.
type SubscriptionEvent string

const (
	EventActivate SubscriptionEvent = "activate"
	EventCancel   SubscriptionEvent = "cancel"
	EventExpire   SubscriptionEvent = "expire"
)

// SubscriptionTransitions defines all valid subscription state changes.
// Self-loops make activate and cancel idempotent. Expired and cancelled
// records never become active again; a new subscription is created instead.
var SubscriptionTransitions = []Transition[SubscriptionStatus, SubscriptionEvent]{
	{Event: EventActivate, Src: SubscriptionTrial, Dst: SubscriptionActive},
	{Event: EventActivate, Src: SubscriptionActive, Dst: SubscriptionActive},
	{Event: EventCancel, Src: SubscriptionTrial, Dst: SubscriptionCancelled},
	{Event: EventCancel, Src: SubscriptionActive, Dst: SubscriptionCancelled},
	{Event: EventCancel, Src: SubscriptionExpired, Dst: SubscriptionCancelled},
	{Event: EventCancel, Src: SubscriptionCancelled, Dst: SubscriptionCancelled},
	{Event: EventExpire, Src: SubscriptionTrial, Dst: SubscriptionExpired},
	{Event: EventExpire, Src: SubscriptionActive, Dst: SubscriptionExpired},
	{Event: EventExpire, Src: SubscriptionCancelled, Dst: SubscriptionExpired},
}

// Subscription is one billing term of a tenant against a plan.
type Subscription struct {
	ID             string
	TenantID       string
	PlanID         string
	StartDate      time.Time
	EndDate        time.Time
	Status         SubscriptionStatus
	PaymentStatus  PaymentStatus
	Gateway        string
	TransactionRef string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewSubscription starts a term now for one billing cycle of the plan.
// The record is active but unpaid until the payment is confirmed.
func NewSubscription(id, tenantID string, plan Plan, gateway, transactionRef string, now time.Time) Subscription {
	now = now.UTC()
	return Subscription{
		ID:             id,
		TenantID:       tenantID,
		PlanID:         plan.ID,
		StartDate:      now,
		EndDate:        plan.Cycle.EndOf(now),
		Status:         SubscriptionActive,
		PaymentStatus:  PaymentPending,
		Gateway:        gateway,
		TransactionRef: transactionRef,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Entitled reports whether the subscription currently grants access:
// active, paid, and not past its end date.
func (s Subscription) Entitled(now time.Time) bool {
	return s.Status == SubscriptionActive &&
		s.PaymentStatus == PaymentSuccess &&
		!s.EndDate.Before(now)
}

// SubscriptionFilter holds optional criteria for listing subscriptions.
type SubscriptionFilter struct {
	TenantID string
	Status   *SubscriptionStatus
	Limit    int
	Offset   int
}
