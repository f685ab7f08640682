package domain

import (
	"strings"
	"time"
)

// Role is the single role a principal holds. Its capabilities are implied by
// the rule table in policy.go, never by ad-hoc flags.
type Role string

const (
	RolePlatformAdmin Role = "platform_admin"
	RoleStoreAdmin    Role = "store_admin"
	RoleStoreManager  Role = "store_manager"
	RoleBranchAdmin   Role = "branch_admin"
	RoleBranchManager Role = "branch_manager"
	RoleBranchCashier Role = "branch_cashier"
	RoleCustomer      Role = "customer"
)

// Roles lists every known role.
var Roles = []Role{
	RolePlatformAdmin,
	RoleStoreAdmin,
	RoleStoreManager,
	RoleBranchAdmin,
	RoleBranchManager,
	RoleBranchCashier,
	RoleCustomer,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// BranchScoped reports whether the role must carry a branch reference.
func (r Role) BranchScoped() bool {
	switch r {
	case RoleBranchAdmin, RoleBranchManager, RoleBranchCashier:
		return true
	}
	return false
}

// Principal is an authenticated actor.
type Principal struct {
	ID           string
	Email        string
	FullName     string
	PasswordHash string
	Role         Role
	TenantID     string
	BranchID     string
	LastLoginAt  time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewPrincipal creates an unscoped principal with the given role.
func NewPrincipal(id, email, fullName, passwordHash string, role Role) Principal {
	now := time.Now().UTC()
	return Principal{
		ID:           id,
		Email:        NormalizeEmail(email),
		FullName:     fullName,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NormalizeEmail lower-cases and trims an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
