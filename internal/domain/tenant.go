package domain

import "time"

// StoreStatus is the moderation state of a tenant, set by a platform operator.
type StoreStatus string

const (
	StoreStatusPending StoreStatus = "pending"
	StoreStatusActive  StoreStatus = "active"
	StoreStatusBlocked StoreStatus = "blocked"
)

// ModerationEvent is a platform-operator action on a store.
type ModerationEvent string

const (
	EventApprove ModerationEvent = "approve"
	EventBlock   ModerationEvent = "block"
	EventUnblock ModerationEvent = "unblock"
)

// Transition defines a valid state change: an event moves a record from Src to Dst.
type Transition[S ~string, E ~string] struct {
	Event E
	Src   S
	Dst   S
}

// ModerationTransitions defines all valid moderation changes of a store.
// This is domain knowledge consumed by the FSM adapter.
var ModerationTransitions = []Transition[StoreStatus, ModerationEvent]{
	{Event: EventApprove, Src: StoreStatusPending, Dst: StoreStatusActive},
	{Event: EventBlock, Src: StoreStatusPending, Dst: StoreStatusBlocked},
	{Event: EventBlock, Src: StoreStatusActive, Dst: StoreStatusBlocked},
	{Event: EventUnblock, Src: StoreStatusBlocked, Dst: StoreStatusActive},
}

// Tenant is a store: the root of one authorization and billing scope.
type Tenant struct {
	ID          string
	Name        string
	Description string
	OwnerID     string
	Status      StoreStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTenant creates a store awaiting moderation.
func NewTenant(id, name, description, ownerID string) Tenant {
	now := time.Now().UTC()
	return Tenant{
		ID:          id,
		Name:        name,
		Description: description,
		OwnerID:     ownerID,
		Status:      StoreStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Branch is a physical location owned by a tenant.
type Branch struct {
	ID        string
	TenantID  string
	Name      string
	Address   string
	ManagerID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBranch creates a branch of the given tenant without a manager.
func NewBranch(id, tenantID, name, address string) Branch {
	now := time.Now().UTC()
	return Branch{
		ID:        id,
		TenantID:  tenantID,
		Name:      name,
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OwnerOf returns the owner principal of a tenant.
func OwnerOf(t Tenant) string {
	return t.OwnerID
}

// ManagerOf returns the designated manager of a branch, if any.
func ManagerOf(b Branch) (string, bool) {
	return b.ManagerID, b.ManagerID != ""
}

// TenantOf derives the tenant a principal is scoped to. A principal with a
// branch reference is scoped to that branch's tenant; the caller passes the
// loaded branch. A branch that disagrees with the principal's own tenant
// reference yields no tenant at all.
func TenantOf(p Principal, branch *Branch) (string, bool) {
	if p.BranchID != "" {
		if branch == nil || branch.ID != p.BranchID || branch.TenantID == "" {
			return "", false
		}
		if p.TenantID != "" && p.TenantID != branch.TenantID {
			return "", false
		}
		return branch.TenantID, true
	}
	return p.TenantID, p.TenantID != ""
}
