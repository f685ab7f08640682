package domain

import (
	"context"
	"time"
)

// TenantRepository defines the persistence contract for stores.
type TenantRepository interface {
	Create(ctx context.Context, tenant Tenant) error
	GetByID(ctx context.Context, id string) (Tenant, error)
	GetByOwner(ctx context.Context, ownerID string) (Tenant, error)
	List(ctx context.Context, filter TenantFilter) ([]Tenant, error)
	Update(ctx context.Context, tenant Tenant) error
	Delete(ctx context.Context, id string) error
}

// TenantFilter holds optional criteria for listing stores.
type TenantFilter struct {
	Status *StoreStatus
	Limit  int
	Offset int
}

// BranchRepository defines the persistence contract for branches.
type BranchRepository interface {
	Create(ctx context.Context, branch Branch) error
	GetByID(ctx context.Context, id string) (Branch, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Branch, error)
	CountByTenant(ctx context.Context, tenantID string) (int, error)
	Update(ctx context.Context, branch Branch) error
	Delete(ctx context.Context, id string) error
	DeleteByTenant(ctx context.Context, tenantID string) error
}

// PrincipalRepository defines the persistence contract for users.
type PrincipalRepository interface {
	Create(ctx context.Context, p Principal) error
	GetByID(ctx context.Context, id string) (Principal, error)
	GetByEmail(ctx context.Context, email string) (Principal, error)
	Update(ctx context.Context, p Principal) error
	CountByTenant(ctx context.Context, tenantID string) (int, error)
}

// PlanRepository defines the persistence contract for the plan catalog.
type PlanRepository interface {
	Create(ctx context.Context, plan Plan) error
	GetByID(ctx context.Context, id string) (Plan, error)
	List(ctx context.Context) ([]Plan, error)
	Update(ctx context.Context, plan Plan) error
}

// SubscriptionRepository defines the persistence contract for subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub Subscription) error
	GetByID(ctx context.Context, id string) (Subscription, error)
	Update(ctx context.Context, sub Subscription) error
	// SetStatus moves one subscription from status from to status to. It
	// reports false when the row is no longer in from.
	SetStatus(ctx context.Context, id string, from, to SubscriptionStatus, now time.Time) (bool, error)
	// SetPaymentStatus changes only the payment status of one subscription.
	SetPaymentStatus(ctx context.Context, id string, status PaymentStatus, now time.Time) error
	List(ctx context.Context, filter SubscriptionFilter) ([]Subscription, error)
	// ListEndingBetween returns subscriptions whose end date lies in
	// [from, to], in any status unless status is set.
	ListEndingBetween(ctx context.Context, from, to time.Time, status *SubscriptionStatus) ([]Subscription, error)
	// ListExpirable returns up to limit subscriptions that ended before now
	// and are not expired yet.
	ListExpirable(ctx context.Context, now time.Time, limit int) ([]Subscription, error)
	// Expire moves one subscription to expired if it still qualifies.
	// It reports whether the row changed.
	Expire(ctx context.Context, id string, now time.Time) (bool, error)
	CountByStatus(ctx context.Context, status SubscriptionStatus) (int, error)
	// MarkReminded records the renewal reminder of one subscription. It
	// reports false when the reminder was already recorded.
	MarkReminded(ctx context.Context, id string, now time.Time) (bool, error)
	// ClearReminded forgets a recorded reminder so it can be sent again.
	ClearReminded(ctx context.Context, id string) error
}

// PaymentOrderRepository defines the persistence contract for payment orders.
type PaymentOrderRepository interface {
	Create(ctx context.Context, order PaymentOrder) error
	GetByID(ctx context.Context, id string) (PaymentOrder, error)
	GetByLinkID(ctx context.Context, linkID string) (PaymentOrder, error)
	// Finalize moves a pending order to status. It reports false, without
	// error, when the order had already left pending.
	Finalize(ctx context.Context, id string, status PaymentStatus, subscriptionID string) (bool, error)
}

// Repositories groups the repositories that share one transaction.
type Repositories interface {
	Tenants() TenantRepository
	Branches() BranchRepository
	Principals() PrincipalRepository
	Plans() PlanRepository
	Subscriptions() SubscriptionRepository
	PaymentOrders() PaymentOrderRepository
}

// Store is the persistence boundary. WithinTx runs fn atomically: either every
// write made through the given repositories commits, or none does.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}

// TransitionValidator checks a state machine event against the current state
// and returns the destination state.
type TransitionValidator[S ~string, E ~string] interface {
	Apply(ctx context.Context, current S, event E) (S, error)
}

// EventName identifies a domain event.
type EventName string

const (
	EventStoreCreated          EventName = "store.created"
	EventStoreModerated        EventName = "store.moderated"
	EventStoreDeleted          EventName = "store.deleted"
	EventSubscriptionCreated   EventName = "subscription.created"
	EventSubscriptionActivated EventName = "subscription.activated"
	EventSubscriptionCancelled EventName = "subscription.cancelled"
	EventSubscriptionExpired   EventName = "subscription.expired"
	EventPaymentSucceeded      EventName = "payment.succeeded"
	EventPaymentFailed         EventName = "payment.failed"
)

// DomainEvent is a snapshot of something that happened, published after commit.
type DomainEvent struct {
	Name      EventName
	TenantID  string
	SubjectID string
	Status    string
	At        time.Time
}

// EventPublisher defines the contract for emitting domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

// Gateway is one payment provider. Verification rules and secrets stay inside
// the implementation.
type Gateway interface {
	CreateLink(ctx context.Context, req LinkRequest) (Link, error)
	Verify(ctx context.Context, confirmationID, linkID string) (bool, error)
}

// Gateways selects a gateway by payment method.
type Gateways map[PaymentMethod]Gateway

// Notifier delivers a message to an address.
type Notifier interface {
	Send(ctx context.Context, address, subject, body string) error
}

// PasswordHasher hashes and checks secrets.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// TokenIssuer signs and parses bearer tokens that carry a principal ID.
type TokenIssuer interface {
	Issue(p Principal) (string, error)
	Parse(token string) (principalID string, err error)
}
