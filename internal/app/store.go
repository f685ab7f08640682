package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// CreateStoreInput describes a new store.
type CreateStoreInput struct {
	Name        string `validate:"required,max=120"`
	Description string `validate:"max=1000"`
}

// CreateBranchInput describes a new branch.
type CreateBranchInput struct {
	Name    string `validate:"required,max=120"`
	Address string `validate:"max=500"`
}

// AddEmployeeInput describes a principal created inside a store.
// BranchID is required for branch roles and must be empty otherwise.
type AddEmployeeInput struct {
	Email    string      `validate:"required,email,max=254"`
	Password string      `validate:"required,min=8,max=72"`
	FullName string      `validate:"required,max=120"`
	Role     domain.Role `validate:"required"`
	TenantID string      `validate:"required"`
	BranchID string
}

// StoreService manages stores, their branches and their staff.
type StoreService struct {
	store      domain.Store
	guard      *Guard
	moderation domain.TransitionValidator[domain.StoreStatus, domain.ModerationEvent]
	hasher     domain.PasswordHasher
	events     events
	now        func() time.Time
}

// NewStoreService creates a store service with the given adapters.
func NewStoreService(
	store domain.Store,
	moderation domain.TransitionValidator[domain.StoreStatus, domain.ModerationEvent],
	hasher domain.PasswordHasher,
	publisher domain.EventPublisher,
	logger *slog.Logger,
) *StoreService {
	return &StoreService{
		store:      store,
		guard:      NewGuard(store),
		moderation: moderation,
		hasher:     hasher,
		events:     events{publisher: publisher, logger: orDefault(logger)},
		now:        time.Now,
	}
}

// CreateStore opens a store owned by p. The store waits for moderation and
// p becomes scoped to it.
func (s *StoreService) CreateStore(ctx context.Context, p domain.Principal, in CreateStoreInput) (domain.Tenant, error) {
	if err := s.guard.Check(ctx, p, domain.ActionCreateStore, Target{}); err != nil {
		return domain.Tenant{}, err
	}
	if err := validateInput(in); err != nil {
		return domain.Tenant{}, err
	}

	tenant := domain.NewTenant(newID(), in.Name, in.Description, p.ID)

	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		if err := repos.Tenants().Create(ctx, tenant); err != nil {
			return err
		}
		owner, err := repos.Principals().GetByID(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("loading owner: %w", err)
		}
		owner.TenantID = tenant.ID
		return repos.Principals().Update(ctx, owner)
	})
	if err != nil {
		return domain.Tenant{}, err
	}

	s.events.publish(ctx, tenantEvent(domain.EventStoreCreated, tenant))
	return tenant, nil
}

// GetStore returns a store visible to p.
func (s *StoreService) GetStore(ctx context.Context, p domain.Principal, id string) (domain.Tenant, error) {
	if err := s.guard.Check(ctx, p, domain.ActionViewStore, Target{TenantID: id}); err != nil {
		return domain.Tenant{}, err
	}
	return s.store.Tenants().GetByID(ctx, id)
}

// ListStores lists every store on the platform.
func (s *StoreService) ListStores(ctx context.Context, p domain.Principal, filter domain.TenantFilter) ([]domain.Tenant, error) {
	if err := s.guard.Check(ctx, p, domain.ActionListStores, Target{}); err != nil {
		return nil, err
	}
	return s.store.Tenants().List(ctx, filter)
}

// Moderate applies a platform operator's decision to a store.
func (s *StoreService) Moderate(ctx context.Context, p domain.Principal, id string, event domain.ModerationEvent) (domain.Tenant, error) {
	if err := s.guard.Check(ctx, p, domain.ActionModerateStore, Target{TenantID: id}); err != nil {
		return domain.Tenant{}, err
	}

	tenant, err := s.store.Tenants().GetByID(ctx, id)
	if err != nil {
		return domain.Tenant{}, err
	}

	next, err := s.moderation.Apply(ctx, tenant.Status, event)
	if err != nil {
		return domain.Tenant{}, err
	}
	tenant.Status = next
	tenant.UpdatedAt = s.now().UTC()

	if err := s.store.Tenants().Update(ctx, tenant); err != nil {
		return domain.Tenant{}, fmt.Errorf("updating store: %w", err)
	}

	s.events.publish(ctx, tenantEvent(domain.EventStoreModerated, tenant))
	return tenant, nil
}

// DeleteStore removes a store and its branches. Subscription history is kept.
func (s *StoreService) DeleteStore(ctx context.Context, p domain.Principal, id string) error {
	if err := s.guard.Check(ctx, p, domain.ActionDeleteStore, Target{TenantID: id}); err != nil {
		return err
	}

	var tenant domain.Tenant
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		var err error
		tenant, err = repos.Tenants().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := repos.Branches().DeleteByTenant(ctx, id); err != nil {
			return err
		}
		if err := repos.Tenants().Delete(ctx, id); err != nil {
			return err
		}

		owner, err := repos.Principals().GetByID(ctx, tenant.OwnerID)
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		owner.TenantID = ""
		return repos.Principals().Update(ctx, owner)
	})
	if err != nil {
		return err
	}

	s.events.publish(ctx, tenantEvent(domain.EventStoreDeleted, tenant))
	return nil
}

// CreateBranch adds a branch to a store, within the plan's branch ceiling.
func (s *StoreService) CreateBranch(ctx context.Context, p domain.Principal, tenantID string, in CreateBranchInput) (domain.Branch, error) {
	if err := s.guard.Check(ctx, p, domain.ActionCreateBranch, Target{TenantID: tenantID}); err != nil {
		return domain.Branch{}, err
	}
	if err := validateInput(in); err != nil {
		return domain.Branch{}, err
	}

	branch := domain.NewBranch(newID(), tenantID, in.Name, in.Address)

	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		if err := checkBranchCeiling(ctx, repos, tenantID, s.now()); err != nil {
			return err
		}
		return repos.Branches().Create(ctx, branch)
	})
	if err != nil {
		return domain.Branch{}, err
	}
	return branch, nil
}

// GetBranch returns a branch visible to p.
func (s *StoreService) GetBranch(ctx context.Context, p domain.Principal, id string) (domain.Branch, error) {
	if err := s.guard.Check(ctx, p, domain.ActionViewBranch, Target{BranchID: id}); err != nil {
		return domain.Branch{}, err
	}
	return s.store.Branches().GetByID(ctx, id)
}

// ListBranches lists the branches of a store.
func (s *StoreService) ListBranches(ctx context.Context, p domain.Principal, tenantID string) ([]domain.Branch, error) {
	if err := s.guard.Check(ctx, p, domain.ActionViewStore, Target{TenantID: tenantID}); err != nil {
		return nil, err
	}
	return s.store.Branches().ListByTenant(ctx, tenantID)
}

// DeleteBranch removes a branch.
func (s *StoreService) DeleteBranch(ctx context.Context, p domain.Principal, id string) error {
	if err := s.guard.Check(ctx, p, domain.ActionDeleteBranch, Target{BranchID: id}); err != nil {
		return err
	}
	return s.store.Branches().Delete(ctx, id)
}

// AddEmployee creates a staff principal inside a store. Store-level roles
// are added by the owner or a store manager, branch roles by whoever runs
// that branch, and nobody grants a role with wider reach than their own.
// A new branch manager takes over a branch that has none.
func (s *StoreService) AddEmployee(ctx context.Context, p domain.Principal, in AddEmployeeInput) (domain.Principal, error) {
	if err := validateInput(in); err != nil {
		return domain.Principal{}, err
	}

	action := domain.ActionAddEmployee
	switch {
	case in.Role == domain.RoleStoreManager:
		if in.BranchID != "" {
			return domain.Principal{}, &domain.ValidationError{Field: "branch_id", Reason: "must be empty for store roles"}
		}
	case in.Role.BranchScoped():
		if in.BranchID == "" {
			return domain.Principal{}, &domain.ValidationError{Field: "branch_id", Reason: "required for branch roles"}
		}
		action = domain.ActionAddBranchStaff
	default:
		return domain.Principal{}, &domain.ValidationError{Field: "role", Reason: fmt.Sprintf("%q cannot be added as staff", in.Role)}
	}

	if err := s.guard.Check(ctx, p, action, Target{TenantID: in.TenantID, BranchID: in.BranchID}); err != nil {
		return domain.Principal{}, err
	}
	if err := s.guard.CheckGrant(ctx, p, action, in.Role); err != nil {
		return domain.Principal{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("hashing password: %w", err)
	}

	employee := domain.NewPrincipal(newID(), in.Email, in.FullName, hash, in.Role)
	employee.TenantID = in.TenantID
	employee.BranchID = in.BranchID

	err = s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		if err := checkUserCeiling(ctx, repos, in.TenantID, s.now()); err != nil {
			return err
		}
		if err := repos.Principals().Create(ctx, employee); err != nil {
			return err
		}
		if in.Role != domain.RoleBranchManager {
			return nil
		}

		branch, err := repos.Branches().GetByID(ctx, in.BranchID)
		if err != nil {
			return err
		}
		if _, ok := domain.ManagerOf(branch); ok {
			return nil
		}
		branch.ManagerID = employee.ID
		return repos.Branches().Update(ctx, branch)
	})
	if err != nil {
		return domain.Principal{}, err
	}
	return employee, nil
}

func tenantEvent(name domain.EventName, t domain.Tenant) domain.DomainEvent {
	return domain.DomainEvent{
		Name:      name,
		TenantID:  t.ID,
		SubjectID: t.ID,
		Status:    string(t.Status),
		At:        time.Now().UTC(),
	}
}
