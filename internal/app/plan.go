package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// PlanInput describes a plan in the catalog.
type PlanInput struct {
	Name         string              `validate:"required,max=80"`
	Description  string              `validate:"max=1000"`
	Price        decimal.Decimal     `validate:"-"`
	Currency     string              `validate:"required,len=3,uppercase"`
	Cycle        domain.BillingCycle `validate:"required,oneof=monthly yearly"`
	Entitlements domain.Entitlements `validate:"-"`
	Features     map[string]bool     `validate:"-"`
}

// PlanService manages the plan catalog.
type PlanService struct {
	store domain.Store
	guard *Guard
	now   func() time.Time
}

// NewPlanService creates a plan service.
func NewPlanService(store domain.Store) *PlanService {
	return &PlanService{store: store, guard: NewGuard(store), now: time.Now}
}

// CreatePlan adds a plan to the catalog.
func (s *PlanService) CreatePlan(ctx context.Context, p domain.Principal, in PlanInput) (domain.Plan, error) {
	if err := s.guard.Check(ctx, p, domain.ActionManagePlans, Target{}); err != nil {
		return domain.Plan{}, err
	}
	if err := validatePlan(in); err != nil {
		return domain.Plan{}, err
	}

	now := s.now().UTC()
	plan := domain.Plan{
		ID:           newID(),
		Name:         in.Name,
		Description:  in.Description,
		Price:        in.Price,
		Currency:     in.Currency,
		Cycle:        in.Cycle,
		Entitlements: in.Entitlements,
		Features:     in.Features,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Plans().Create(ctx, plan); err != nil {
		return domain.Plan{}, err
	}
	return plan, nil
}

// UpdatePlan replaces a plan's terms. Running subscriptions keep their
// dates; new ceilings apply to them immediately.
func (s *PlanService) UpdatePlan(ctx context.Context, p domain.Principal, id string, in PlanInput) (domain.Plan, error) {
	if err := s.guard.Check(ctx, p, domain.ActionManagePlans, Target{}); err != nil {
		return domain.Plan{}, err
	}
	if err := validatePlan(in); err != nil {
		return domain.Plan{}, err
	}

	plan, err := s.store.Plans().GetByID(ctx, id)
	if err != nil {
		return domain.Plan{}, err
	}
	plan.Name = in.Name
	plan.Description = in.Description
	plan.Price = in.Price
	plan.Currency = in.Currency
	plan.Cycle = in.Cycle
	plan.Entitlements = in.Entitlements
	plan.Features = in.Features
	plan.UpdatedAt = s.now().UTC()

	if err := s.store.Plans().Update(ctx, plan); err != nil {
		return domain.Plan{}, err
	}
	return plan, nil
}

// ListPlans returns the public catalog.
func (s *PlanService) ListPlans(ctx context.Context) ([]domain.Plan, error) {
	return s.store.Plans().List(ctx)
}

// GetPlan returns one plan of the public catalog.
func (s *PlanService) GetPlan(ctx context.Context, id string) (domain.Plan, error) {
	return s.store.Plans().GetByID(ctx, id)
}

func validatePlan(in PlanInput) error {
	if err := validateInput(in); err != nil {
		return err
	}
	if !in.Price.IsPositive() {
		return &domain.ValidationError{Field: "price", Reason: "must be positive"}
	}
	e := in.Entitlements
	if e.MaxBranches < 0 || e.MaxUsers < 0 || e.MaxProducts < 0 {
		return &domain.ValidationError{Field: "entitlements", Reason: "ceilings cannot be negative"}
	}
	return nil
}
