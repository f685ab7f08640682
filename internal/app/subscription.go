package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

const defaultSweepBatch = 100

// SubscriptionService drives the subscription lifecycle of stores.
type SubscriptionService struct {
	store      domain.Store
	guard      *Guard
	lifecycle  domain.TransitionValidator[domain.SubscriptionStatus, domain.SubscriptionEvent]
	events     events
	logger     *slog.Logger
	now        func() time.Time
	sweepBatch int
}

// NewSubscriptionService creates a subscription service with the given adapters.
func NewSubscriptionService(
	store domain.Store,
	lifecycle domain.TransitionValidator[domain.SubscriptionStatus, domain.SubscriptionEvent],
	publisher domain.EventPublisher,
	logger *slog.Logger,
) *SubscriptionService {
	logger = orDefault(logger)
	return &SubscriptionService{
		store:      store,
		guard:      NewGuard(store),
		lifecycle:  lifecycle,
		events:     events{publisher: publisher, logger: logger},
		logger:     logger,
		now:        time.Now,
		sweepBatch: defaultSweepBatch,
	}
}

// Create starts a term for a store that has no active subscription.
// The record is active with payment pending; use Upgrade to replace a term.
func (s *SubscriptionService) Create(ctx context.Context, p domain.Principal, tenantID, planID, gateway, transactionRef string) (domain.Subscription, error) {
	if err := s.guard.Check(ctx, p, domain.ActionManageBilling, Target{TenantID: tenantID}); err != nil {
		return domain.Subscription{}, err
	}

	var sub domain.Subscription
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		active, err := activeOf(ctx, repos, tenantID)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return &domain.ConflictError{Resource: "active subscription for store", Key: tenantID}
		}
		sub, err = s.start(ctx, repos, newID(), tenantID, planID, gateway, transactionRef)
		return err
	})
	if err != nil {
		return domain.Subscription{}, err
	}

	s.events.publish(ctx, subscriptionEvent(domain.EventSubscriptionCreated, sub))
	return sub, nil
}

// Upgrade cancels every active subscription of the store and starts a new
// term on planID, atomically.
func (s *SubscriptionService) Upgrade(ctx context.Context, p domain.Principal, tenantID, planID, gateway, transactionRef string) (domain.Subscription, error) {
	if err := s.guard.Check(ctx, p, domain.ActionManageBilling, Target{TenantID: tenantID}); err != nil {
		return domain.Subscription{}, err
	}

	var sub domain.Subscription
	var cancelled []domain.Subscription
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		var err error
		cancelled, err = s.cancelActive(ctx, repos, tenantID, "")
		if err != nil {
			return err
		}
		sub, err = s.start(ctx, repos, newID(), tenantID, planID, gateway, transactionRef)
		return err
	})
	if err != nil {
		return domain.Subscription{}, err
	}

	for _, c := range cancelled {
		s.events.publish(ctx, subscriptionEvent(domain.EventSubscriptionCancelled, c))
	}
	s.events.publish(ctx, subscriptionEvent(domain.EventSubscriptionCreated, sub))
	return sub, nil
}

// Activate marks a subscription active and paid, cancelling any other active
// subscription of the same store. Activating an active, paid record is a no-op.
func (s *SubscriptionService) Activate(ctx context.Context, p domain.Principal, id string) (domain.Subscription, error) {
	sub, err := s.store.Subscriptions().GetByID(ctx, id)
	if err != nil {
		return domain.Subscription{}, err
	}
	if err := s.guard.Check(ctx, p, domain.ActionAdminBilling, Target{TenantID: sub.TenantID}); err != nil {
		return domain.Subscription{}, err
	}

	var cancelled []domain.Subscription
	err = s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		var err error
		sub, err = repos.Subscriptions().GetByID(ctx, id)
		if err != nil {
			return err
		}
		cancelled, err = s.cancelActive(ctx, repos, sub.TenantID, sub.ID)
		if err != nil {
			return err
		}
		sub, err = s.activate(ctx, repos, sub)
		return err
	})
	if err != nil {
		return domain.Subscription{}, err
	}

	for _, c := range cancelled {
		s.events.publish(ctx, subscriptionEvent(domain.EventSubscriptionCancelled, c))
	}
	s.events.publish(ctx, subscriptionEvent(domain.EventSubscriptionActivated, sub))
	return sub, nil
}

// Cancel ends a subscription regardless of its payment status. The record is
// re-read inside the transaction and only its status column is written, so a
// concurrent sweep or activation is never rolled back.
func (s *SubscriptionService) Cancel(ctx context.Context, p domain.Principal, id string) (domain.Subscription, error) {
	sub, err := s.store.Subscriptions().GetByID(ctx, id)
	if err != nil {
		return domain.Subscription{}, err
	}
	if err := s.guard.Check(ctx, p, domain.ActionManageBilling, Target{TenantID: sub.TenantID}); err != nil {
		return domain.Subscription{}, err
	}

	changed := false
	err = s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		cur, err := repos.Subscriptions().GetByID(ctx, id)
		if err != nil {
			return err
		}
		next, err := s.lifecycle.Apply(ctx, cur.Status, domain.EventCancel)
		if err != nil {
			return err
		}
		if next == cur.Status {
			sub = cur
			return nil
		}

		ok, err := repos.Subscriptions().SetStatus(ctx, id, cur.Status, next, s.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return &domain.ConflictError{Resource: "subscription status", Key: id}
		}
		changed = true
		sub, err = repos.Subscriptions().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return domain.Subscription{}, err
	}

	if changed {
		s.events.publish(ctx, subscriptionEvent(domain.EventSubscriptionCancelled, sub))
	}
	return sub, nil
}

// UpdatePaymentStatus is a platform operator's correction of a payment
// outcome. It writes the payment status alone and leaves the lifecycle
// status to whoever owns it.
func (s *SubscriptionService) UpdatePaymentStatus(ctx context.Context, p domain.Principal, id string, status domain.PaymentStatus) (domain.Subscription, error) {
	if !status.Valid() {
		return domain.Subscription{}, &domain.ValidationError{Field: "payment_status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	sub, err := s.store.Subscriptions().GetByID(ctx, id)
	if err != nil {
		return domain.Subscription{}, err
	}
	if err := s.guard.Check(ctx, p, domain.ActionAdminBilling, Target{TenantID: sub.TenantID}); err != nil {
		return domain.Subscription{}, err
	}

	err = s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		if err := repos.Subscriptions().SetPaymentStatus(ctx, id, status, s.now().UTC()); err != nil {
			return err
		}
		var err error
		sub, err = repos.Subscriptions().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return domain.Subscription{}, err
	}
	return sub, nil
}

// ExpireSweep expires every subscription whose end date has passed. It works
// in batches and each record is expired by a guarded single-row update, so
// overlapping sweeps and concurrent traffic are harmless.
func (s *SubscriptionService) ExpireSweep(ctx context.Context, now time.Time) (int, error) {
	expired := 0
	for {
		batch, err := s.store.Subscriptions().ListExpirable(ctx, now, s.sweepBatch)
		if err != nil {
			return expired, fmt.Errorf("listing expirable subscriptions: %w", err)
		}
		if len(batch) == 0 {
			return expired, nil
		}

		progressed := 0
		for _, sub := range batch {
			if _, err := s.lifecycle.Apply(ctx, sub.Status, domain.EventExpire); err != nil {
				s.logger.WarnContext(ctx, "skipping subscription in sweep",
					"subscription_id", sub.ID,
					"status", sub.Status,
					"error", err,
				)
				continue
			}

			changed, err := s.store.Subscriptions().Expire(ctx, sub.ID, now)
			if err != nil {
				return expired, err
			}
			progressed++
			if !changed {
				continue
			}

			expired++
			sub.Status = domain.SubscriptionExpired
			s.events.publish(ctx, subscriptionEvent(domain.EventSubscriptionExpired, sub))
		}

		if progressed == 0 || len(batch) < s.sweepBatch {
			return expired, nil
		}
	}
}

// ListByTenant lists a store's subscriptions, newest first.
func (s *SubscriptionService) ListByTenant(ctx context.Context, p domain.Principal, tenantID string, status *domain.SubscriptionStatus) ([]domain.Subscription, error) {
	if err := s.guard.Check(ctx, p, domain.ActionViewBilling, Target{TenantID: tenantID}); err != nil {
		return nil, err
	}
	return s.store.Subscriptions().List(ctx, domain.SubscriptionFilter{TenantID: tenantID, Status: status})
}

// ListAll lists subscriptions across the platform.
func (s *SubscriptionService) ListAll(ctx context.Context, p domain.Principal, status *domain.SubscriptionStatus) ([]domain.Subscription, error) {
	if err := s.guard.Check(ctx, p, domain.ActionAdminBilling, Target{}); err != nil {
		return nil, err
	}
	return s.store.Subscriptions().List(ctx, domain.SubscriptionFilter{Status: status})
}

// ListExpiring lists subscriptions that end within the next days, in any
// status unless status is set.
func (s *SubscriptionService) ListExpiring(ctx context.Context, p domain.Principal, days int, status *domain.SubscriptionStatus) ([]domain.Subscription, error) {
	if err := s.guard.Check(ctx, p, domain.ActionReportBilling, Target{}); err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, &domain.ValidationError{Field: "days", Reason: "must be positive"}
	}
	now := s.now().UTC()
	return s.store.Subscriptions().ListEndingBetween(ctx, now, now.AddDate(0, 0, days), status)
}

// CountByStatus counts subscriptions in one status across the platform.
func (s *SubscriptionService) CountByStatus(ctx context.Context, p domain.Principal, status domain.SubscriptionStatus) (int, error) {
	if err := s.guard.Check(ctx, p, domain.ActionReportBilling, Target{}); err != nil {
		return 0, err
	}
	if !status.Valid() {
		return 0, &domain.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}
	return s.store.Subscriptions().CountByStatus(ctx, status)
}

// Current returns the store's active subscription.
func (s *SubscriptionService) Current(ctx context.Context, p domain.Principal, tenantID string) (domain.Subscription, error) {
	if err := s.guard.Check(ctx, p, domain.ActionViewBilling, Target{TenantID: tenantID}); err != nil {
		return domain.Subscription{}, err
	}
	active, err := activeOf(ctx, s.store, tenantID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if len(active) == 0 {
		return domain.Subscription{}, domain.ErrSubscriptionNotFound
	}
	return active[0], nil
}

// start creates a new active, unpaid term. It must run inside a transaction
// that has already cleared the store's active subscriptions.
func (s *SubscriptionService) start(ctx context.Context, repos domain.Repositories, id, tenantID, planID, gateway, transactionRef string) (domain.Subscription, error) {
	plan, err := repos.Plans().GetByID(ctx, planID)
	if err != nil {
		return domain.Subscription{}, err
	}
	sub := domain.NewSubscription(id, tenantID, plan, gateway, transactionRef, s.now())
	if err := repos.Subscriptions().Create(ctx, sub); err != nil {
		return domain.Subscription{}, err
	}
	return sub, nil
}

func (s *SubscriptionService) activate(ctx context.Context, repos domain.Repositories, sub domain.Subscription) (domain.Subscription, error) {
	next, err := s.lifecycle.Apply(ctx, sub.Status, domain.EventActivate)
	if err != nil {
		return domain.Subscription{}, err
	}
	if next == sub.Status && sub.PaymentStatus == domain.PaymentSuccess {
		return sub, nil
	}

	sub.Status = next
	sub.PaymentStatus = domain.PaymentSuccess
	sub.UpdatedAt = s.now().UTC()
	if err := repos.Subscriptions().Update(ctx, sub); err != nil {
		return domain.Subscription{}, fmt.Errorf("activating subscription: %w", err)
	}
	return sub, nil
}

// cancelActive cancels the store's active subscriptions except keepID and
// returns what it cancelled.
func (s *SubscriptionService) cancelActive(ctx context.Context, repos domain.Repositories, tenantID, keepID string) ([]domain.Subscription, error) {
	active, err := activeOf(ctx, repos, tenantID)
	if err != nil {
		return nil, err
	}

	var cancelled []domain.Subscription
	for _, sub := range active {
		if sub.ID == keepID {
			continue
		}
		next, err := s.lifecycle.Apply(ctx, sub.Status, domain.EventCancel)
		if err != nil {
			return nil, err
		}
		sub.Status = next
		sub.UpdatedAt = s.now().UTC()
		if err := repos.Subscriptions().Update(ctx, sub); err != nil {
			return nil, fmt.Errorf("cancelling subscription %s: %w", sub.ID, err)
		}
		cancelled = append(cancelled, sub)
	}
	return cancelled, nil
}

func activeOf(ctx context.Context, repos domain.Repositories, tenantID string) ([]domain.Subscription, error) {
	active := domain.SubscriptionActive
	subs, err := repos.Subscriptions().List(ctx, domain.SubscriptionFilter{TenantID: tenantID, Status: &active})
	if err != nil {
		return nil, fmt.Errorf("loading active subscriptions: %w", err)
	}
	return subs, nil
}

func subscriptionEvent(name domain.EventName, sub domain.Subscription) domain.DomainEvent {
	return domain.DomainEvent{
		Name:      name,
		TenantID:  sub.TenantID,
		SubjectID: sub.ID,
		Status:    string(sub.Status),
		At:        time.Now().UTC(),
	}
}
