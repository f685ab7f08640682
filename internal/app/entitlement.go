package app

import (
	"context"
	"fmt"
	"time"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// EntitlementService answers "may this store have one more X".
type EntitlementService struct {
	repos domain.Repositories
	now   func() time.Time
}

// NewEntitlementService creates an entitlement service reading through repos.
func NewEntitlementService(repos domain.Repositories) *EntitlementService {
	return &EntitlementService{repos: repos, now: time.Now}
}

// For returns the ceilings that apply to a store right now.
func (s *EntitlementService) For(ctx context.Context, tenantID string) (domain.Entitlements, error) {
	return entitlementsFor(ctx, s.repos, tenantID, s.now())
}

// CheckEntitlement fails with an *EntitlementError when current already
// reaches the store's ceiling for kind.
func (s *EntitlementService) CheckEntitlement(ctx context.Context, tenantID string, kind domain.EntitlementKind, current int) error {
	ent, err := s.For(ctx, tenantID)
	if err != nil {
		return err
	}
	return ent.Allow(kind, current)
}

// entitlementsFor is shared with services that check ceilings inside a
// transaction, so the count and the ceiling come from the same snapshot.
func entitlementsFor(ctx context.Context, repos domain.Repositories, tenantID string, now time.Time) (domain.Entitlements, error) {
	active := domain.SubscriptionActive
	subs, err := repos.Subscriptions().List(ctx, domain.SubscriptionFilter{TenantID: tenantID, Status: &active})
	if err != nil {
		return domain.Entitlements{}, fmt.Errorf("loading subscriptions: %w", err)
	}

	for _, sub := range subs {
		if !sub.Entitled(now) {
			continue
		}
		plan, err := repos.Plans().GetByID(ctx, sub.PlanID)
		if err != nil {
			return domain.Entitlements{}, fmt.Errorf("loading plan of subscription %s: %w", sub.ID, err)
		}
		return plan.Entitlements, nil
	}

	return domain.DefaultEntitlements, nil
}

func checkBranchCeiling(ctx context.Context, repos domain.Repositories, tenantID string, now time.Time) error {
	ent, err := entitlementsFor(ctx, repos, tenantID, now)
	if err != nil {
		return err
	}
	n, err := repos.Branches().CountByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	return ent.Allow(domain.EntitlementBranches, n)
}

func checkUserCeiling(ctx context.Context, repos domain.Repositories, tenantID string, now time.Time) error {
	ent, err := entitlementsFor(ctx, repos, tenantID, now)
	if err != nil {
		return err
	}
	n, err := repos.Principals().CountByTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	return ent.Allow(domain.EntitlementUsers, n)
}
