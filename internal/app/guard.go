package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// Target names what an action is aimed at. Either field may be empty;
// the zero value is a platform-level target.
type Target struct {
	TenantID string
	BranchID string
}

// Guard resolves principals and targets into the shapes the authorization
// engine decides on. It loads through the store's non-transactional
// repositories, so call it before opening a transaction.
type Guard struct {
	repos domain.Repositories
}

// NewGuard creates a guard reading through repos.
func NewGuard(repos domain.Repositories) *Guard {
	return &Guard{repos: repos}
}

// Actor derives the scope of p. A branch reference is followed to its
// tenant; an inconsistent reference leaves the actor without a tenant.
func (g *Guard) Actor(ctx context.Context, p domain.Principal) (domain.Actor, error) {
	actor := domain.Actor{ID: p.ID, Role: p.Role, BranchID: p.BranchID}
	if p.ID == "" {
		return actor, nil
	}

	var branch *domain.Branch
	if p.BranchID != "" {
		b, err := g.repos.Branches().GetByID(ctx, p.BranchID)
		if err != nil && !errors.Is(err, domain.ErrBranchNotFound) {
			return domain.Actor{}, fmt.Errorf("loading principal branch: %w", err)
		}
		if err == nil {
			branch = &b
		}
	}

	if tenantID, ok := domain.TenantOf(p, branch); ok {
		actor.TenantID = tenantID
	}
	return actor, nil
}

// Resource loads the target's store and branch. A branch that belongs to a
// different store than the one claimed is refused.
func (g *Guard) Resource(ctx context.Context, action domain.Action, target Target) (domain.Resource, error) {
	res := domain.Resource{TenantID: target.TenantID, BranchID: target.BranchID}

	if target.BranchID != "" {
		branch, err := g.repos.Branches().GetByID(ctx, target.BranchID)
		if err != nil {
			return domain.Resource{}, err
		}
		if res.TenantID == "" {
			res.TenantID = branch.TenantID
		}
		if branch.TenantID != res.TenantID {
			return domain.Resource{}, &domain.AuthError{
				Kind:   domain.Forbidden,
				Action: action,
				Reason: "branch belongs to another store",
			}
		}
	}

	if res.TenantID == "" {
		return res, nil
	}

	tenant, err := g.repos.Tenants().GetByID(ctx, res.TenantID)
	if err != nil {
		return domain.Resource{}, err
	}
	res.TenantOwnerID = domain.OwnerOf(tenant)
	res.TenantStatus = tenant.Status
	return res, nil
}

// Check authorizes p to perform action on target. An anonymous principal is
// rejected before any lookup, so unknown IDs reveal nothing.
func (g *Guard) Check(ctx context.Context, p domain.Principal, action domain.Action, target Target) error {
	actor, err := g.Actor(ctx, p)
	if err != nil {
		return err
	}
	if actor.ID == "" || !actor.Role.Valid() {
		return domain.Authorize(actor, action, domain.Resource{})
	}

	res, err := g.Resource(ctx, action, target)
	if err != nil {
		return err
	}
	return domain.Authorize(actor, action, res)
}

// CheckGrant authorizes p to create a principal holding role.
func (g *Guard) CheckGrant(ctx context.Context, p domain.Principal, action domain.Action, role domain.Role) error {
	actor, err := g.Actor(ctx, p)
	if err != nil {
		return err
	}
	return domain.AuthorizeGrant(actor, action, role)
}
