package domain

import "fmt"

// Action is an entry of the action catalog. Every mutating entry point of
// the system names one and routes it through Authorize.
type Action string

const (
	ActionCreateStore      Action = "store.create"
	ActionViewStore        Action = "store.view"
	ActionUpdateStore      Action = "store.update"
	ActionDeleteStore      Action = "store.delete"
	ActionModerateStore    Action = "store.moderate"
	ActionListStores       Action = "store.list"
	ActionCreateBranch     Action = "branch.create"
	ActionViewBranch       Action = "branch.view"
	ActionUpdateBranch     Action = "branch.update"
	ActionDeleteBranch     Action = "branch.delete"
	ActionAddEmployee      Action = "employee.add"
	ActionAddBranchStaff   Action = "branch_employee.add"
	ActionManageProduct    Action = "product.manage"
	ActionViewProduct      Action = "product.view"
	ActionManageCategory   Action = "category.manage"
	ActionManageInventory  Action = "inventory.manage"
	ActionCreateOrder      Action = "order.create"
	ActionViewOrders       Action = "order.view"
	ActionManagePlans      Action = "plan.manage"
	ActionManageBilling    Action = "subscription.manage"
	ActionViewBilling      Action = "subscription.view"
	ActionAdminBilling     Action = "subscription.admin"
	ActionReportBilling    Action = "subscription.report"
	ActionCreatePayment    Action = "payment.create"
	ActionConfirmPayment   Action = "payment.confirm"
)

// Actor is a principal with its scope already resolved: TenantID is the
// derived tenant (see TenantOf), not necessarily the stored reference.
type Actor struct {
	ID       string
	Role     Role
	TenantID string
	BranchID string
}

// Resource is the resolved scope of the target of an action. The zero value
// is a platform-level target.
type Resource struct {
	TenantID      string
	TenantOwnerID string
	TenantStatus  StoreStatus
	BranchID      string
}

type reach int

const (
	reachOwnBranch reach = iota + 1
	reachTenant
)

type rule struct {
	platform     bool // platform operators may perform it
	platformOnly bool // nobody else may
	storeless    bool // a store admin without a store may perform it
	ownerOnly    bool // store managers may not perform it
	readOnly     bool // allowed on pending or blocked stores
	inactiveOK   bool // mutation allowed on pending or blocked stores
	customer     bool // customers may perform it on active stores
	branchRoles  map[Role]reach
}

var (
	allBranchRolesTenantWide = map[Role]reach{
		RoleBranchAdmin:   reachTenant,
		RoleBranchManager: reachTenant,
		RoleBranchCashier: reachTenant,
	}
	branchOperators = map[Role]reach{
		RoleBranchAdmin:   reachTenant,
		RoleBranchManager: reachOwnBranch,
	}
)

var rules = map[Action]rule{
	ActionCreateStore:   {storeless: true},
	ActionViewStore:     {platform: true, readOnly: true, branchRoles: allBranchRolesTenantWide},
	ActionUpdateStore:   {},
	ActionDeleteStore:   {ownerOnly: true, inactiveOK: true},
	ActionModerateStore: {platformOnly: true},
	ActionListStores:    {platformOnly: true},

	ActionCreateBranch: {},
	ActionViewBranch: {platform: true, readOnly: true, branchRoles: map[Role]reach{
		RoleBranchAdmin:   reachTenant,
		RoleBranchManager: reachOwnBranch,
		RoleBranchCashier: reachOwnBranch,
	}},
	ActionUpdateBranch: {branchRoles: map[Role]reach{
		RoleBranchAdmin:   reachOwnBranch,
		RoleBranchManager: reachOwnBranch,
	}},
	ActionDeleteBranch: {platform: true, ownerOnly: true},

	ActionAddEmployee:    {},
	ActionAddBranchStaff: {branchRoles: branchOperators},

	ActionManageProduct:   {},
	ActionManageCategory:  {},
	ActionViewProduct:     {readOnly: true, customer: true, branchRoles: allBranchRolesTenantWide},
	ActionManageInventory: {branchRoles: branchOperators},
	ActionCreateOrder: {branchRoles: map[Role]reach{
		RoleBranchAdmin:   reachOwnBranch,
		RoleBranchManager: reachOwnBranch,
		RoleBranchCashier: reachOwnBranch,
	}},
	ActionViewOrders: {readOnly: true, branchRoles: map[Role]reach{
		RoleBranchAdmin:   reachTenant,
		RoleBranchManager: reachOwnBranch,
		RoleBranchCashier: reachOwnBranch,
	}},

	ActionManagePlans:   {platformOnly: true},
	ActionManageBilling: {platform: true, ownerOnly: true, inactiveOK: true},
	ActionViewBilling:   {platform: true, readOnly: true},
	ActionAdminBilling:  {platformOnly: true},
	ActionReportBilling: {platformOnly: true},
	ActionCreatePayment: {ownerOnly: true, inactiveOK: true},
}

// Authorize decides whether actor may perform action on res. It returns nil
// to allow, or an *AuthError. Rules are evaluated in precedence order and the
// first match wins; anything not matched is denied.
func Authorize(actor Actor, action Action, res Resource) error {
	r, ok := rules[action]
	if !ok {
		return forbid(action, "unknown action")
	}
	if actor.ID == "" || !actor.Role.Valid() {
		return &AuthError{Kind: Unauthorized, Action: action, Reason: "no authenticated principal"}
	}

	if actor.Role == RolePlatformAdmin {
		if r.platform || r.platformOnly {
			return nil
		}
		return forbid(action, "platform operators do not act on store resources")
	}
	if r.platformOnly {
		return forbid(action, "platform operators only")
	}
	if r.storeless {
		if actor.Role == RoleStoreAdmin && actor.TenantID == "" {
			return nil
		}
		return forbid(action, "only a store admin without a store may do this")
	}

	if res.TenantID == "" {
		return forbid(action, "target is not scoped to a store")
	}
	if !r.readOnly && !r.inactiveOK && res.TenantStatus != StoreStatusActive {
		return forbid(action, fmt.Sprintf("store is %s", res.TenantStatus))
	}

	switch actor.Role {
	case RoleStoreAdmin:
		if actor.TenantID == res.TenantID && res.TenantOwnerID == actor.ID {
			return nil
		}
		return forbid(action, "not the owner of this store")

	case RoleStoreManager:
		if actor.TenantID != res.TenantID {
			return forbid(action, "not a manager of this store")
		}
		if r.ownerOnly {
			return forbid(action, "store owner only")
		}
		return nil

	case RoleBranchAdmin, RoleBranchManager, RoleBranchCashier:
		rch, granted := r.branchRoles[actor.Role]
		if !granted {
			return forbid(action, fmt.Sprintf("not permitted for role %s", actor.Role))
		}
		if actor.TenantID != res.TenantID {
			return forbid(action, "branch belongs to another store")
		}
		if rch == reachTenant {
			return nil
		}
		if actor.BranchID != "" && actor.BranchID == res.BranchID {
			return nil
		}
		return forbid(action, "not this principal's branch")

	case RoleCustomer:
		if r.customer && res.TenantStatus == StoreStatusActive {
			return nil
		}
		return forbid(action, "not permitted for customers")
	}

	return forbid(action, "no rule grants this action")
}

// grantable lists the roles each role may hand to a new principal. Nobody
// grants a role that reaches further than their own: a branch manager's
// cashier stays in the branch, and only a branch admin or above can create
// a tenant-wide branch admin.
var grantable = map[Role]map[Role]bool{
	RoleStoreAdmin: {
		RoleStoreManager:  true,
		RoleBranchAdmin:   true,
		RoleBranchManager: true,
		RoleBranchCashier: true,
	},
	RoleStoreManager: {
		RoleBranchAdmin:   true,
		RoleBranchManager: true,
		RoleBranchCashier: true,
	},
	RoleBranchAdmin: {
		RoleBranchAdmin:   true,
		RoleBranchManager: true,
		RoleBranchCashier: true,
	},
	RoleBranchManager: {
		RoleBranchCashier: true,
	},
}

// AuthorizeGrant decides whether actor may create a principal holding role.
// It complements Authorize, which only checks where the new principal lands.
func AuthorizeGrant(actor Actor, action Action, role Role) error {
	if actor.ID == "" || !actor.Role.Valid() {
		return &AuthError{Kind: Unauthorized, Action: action, Reason: "no authenticated principal"}
	}
	if grantable[actor.Role][role] {
		return nil
	}
	return forbid(action, fmt.Sprintf("%s may not grant role %s", actor.Role, role))
}

// AuthorizePayer decides whether actor may confirm the payment of order.
// Only the principal who issued the link, or a platform operator, may.
func AuthorizePayer(actor Actor, order PaymentOrder) error {
	if actor.ID == "" || !actor.Role.Valid() {
		return &AuthError{Kind: Unauthorized, Action: ActionConfirmPayment, Reason: "no authenticated principal"}
	}
	if actor.Role == RolePlatformAdmin || actor.ID == order.PrincipalID {
		return nil
	}
	return forbid(ActionConfirmPayment, "not the payer of this order")
}

func forbid(action Action, reason string) error {
	return &AuthError{Kind: Forbidden, Action: action, Reason: reason}
}
