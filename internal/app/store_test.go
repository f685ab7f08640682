package app

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

func TestCreateStore_ScopesOwnerAndWaitsForModeration(t *testing.T) {
	f := newFixture(t)
	owner := f.principal("owner@shop.test", domain.RoleStoreAdmin)

	tenant, err := f.stores.CreateStore(f.ctx, owner, CreateStoreInput{Name: "Corner Shop"})
	require.NoError(t, err)
	assert.Equal(t, domain.StoreStatusPending, tenant.Status)
	assert.Equal(t, owner.ID, tenant.OwnerID)
	assert.Equal(t, tenant.ID, f.reload(owner).TenantID)

	// A pending store cannot grow yet.
	_, err = f.stores.CreateBranch(f.ctx, f.reload(owner), tenant.ID, CreateBranchInput{Name: "Main"})
	assert.True(t, domain.IsForbidden(err), "got %v", err)

	// And its owner cannot open a second one.
	_, err = f.stores.CreateStore(f.ctx, f.reload(owner), CreateStoreInput{Name: "Second"})
	assert.True(t, domain.IsForbidden(err), "got %v", err)
}

func TestCreateStore_Validation(t *testing.T) {
	f := newFixture(t)
	owner := f.principal("owner@shop.test", domain.RoleStoreAdmin)

	_, err := f.stores.CreateStore(f.ctx, owner, CreateStoreInput{})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "name", vErr.Field)
}

func TestModerate_OnlyPlatformOperators(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	branch, err := f.stores.CreateBranch(f.ctx, owner, tenant.ID, CreateBranchInput{Name: "Main"})
	require.NoError(t, err)

	cashier, err := f.stores.AddEmployee(f.ctx, owner, AddEmployeeInput{
		Email: "cashier@shop.test", Password: "secret123", FullName: "Cash",
		Role: domain.RoleBranchCashier, TenantID: tenant.ID, BranchID: branch.ID,
	})
	require.NoError(t, err)

	for _, p := range []domain.Principal{cashier, owner} {
		_, err := f.stores.Moderate(f.ctx, p, tenant.ID, domain.EventBlock)
		assert.True(t, domain.IsForbidden(err), "%s: got %v", p.Role, err)
	}

	blocked, err := f.stores.Moderate(f.ctx, f.admin, tenant.ID, domain.EventBlock)
	require.NoError(t, err)
	assert.Equal(t, domain.StoreStatusBlocked, blocked.Status)

	_, err = f.stores.Moderate(f.ctx, f.admin, tenant.ID, domain.EventApprove)
	var trErr *domain.TransitionError
	assert.ErrorAs(t, err, &trErr)
	assert.Len(t, f.pub.named(domain.EventStoreModerated), 2)
}

func TestCashier_DeniedOnForeignBranch(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	own, err := f.stores.CreateBranch(f.ctx, owner, tenant.ID, CreateBranchInput{Name: "Own"})
	require.NoError(t, err)

	paid := f.plan("Multi", "499")
	sub, err := f.subs.Create(f.ctx, owner, tenant.ID, paid.ID, "razorpay", "TXN0")
	require.NoError(t, err)
	_, err = f.subs.Activate(f.ctx, f.admin, sub.ID)
	require.NoError(t, err)

	foreign, err := f.stores.CreateBranch(f.ctx, owner, tenant.ID, CreateBranchInput{Name: "Foreign"})
	require.NoError(t, err)

	cashier, err := f.stores.AddEmployee(f.ctx, owner, AddEmployeeInput{
		Email: "cashier@shop.test", Password: "secret123", FullName: "Cash",
		Role: domain.RoleBranchCashier, TenantID: tenant.ID, BranchID: own.ID,
	})
	require.NoError(t, err)

	_, err = f.stores.GetBranch(f.ctx, cashier, own.ID)
	assert.NoError(t, err)

	_, err = f.stores.GetBranch(f.ctx, cashier, foreign.ID)
	assert.True(t, domain.IsForbidden(err), "got %v", err)

	err = f.stores.DeleteBranch(f.ctx, cashier, own.ID)
	assert.True(t, domain.IsForbidden(err), "got %v", err)
}

func TestOwner_CreatesBranchOnlyInOwnStore(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	other, _ := f.activeStore("other@shop.test")

	branch, err := f.stores.CreateBranch(f.ctx, owner, tenant.ID, CreateBranchInput{Name: "Main", Address: "1 High St"})
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, branch.TenantID)

	_, err = f.stores.CreateBranch(f.ctx, owner, other.ID, CreateBranchInput{Name: "Sneaky"})
	assert.True(t, domain.IsForbidden(err), "got %v", err)
}

func TestCreateBranch_EnforcesPlanCeiling(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")

	// Without a paid plan the default ceiling applies.
	_, err := f.stores.CreateBranch(f.ctx, owner, tenant.ID, CreateBranchInput{Name: "B1"})
	require.NoError(t, err)
	_, err = f.stores.CreateBranch(f.ctx, owner, tenant.ID, CreateBranchInput{Name: "B2"})
	var entErr *domain.EntitlementError
	require.ErrorAs(t, err, &entErr)
	assert.Equal(t, domain.EntitlementBranches, entErr.Kind)
	assert.Equal(t, domain.DefaultEntitlements.MaxBranches, entErr.Limit)

	// An unpaid term does not lift it.
	plan := f.plan("Multi", "499")
	sub, err := f.subs.Create(f.ctx, owner, tenant.ID, plan.ID, "razorpay", "TXN0")
	require.NoError(t, err)
	_, err = f.stores.CreateBranch(f.ctx, owner, tenant.ID, CreateBranchInput{Name: "B2"})
	require.ErrorAs(t, err, &entErr)

	_, err = f.subs.Activate(f.ctx, f.admin, sub.ID)
	require.NoError(t, err)
	for i := 2; i <= plan.Entitlements.MaxBranches; i++ {
		_, err = f.stores.CreateBranch(f.ctx, owner, tenant.ID, CreateBranchInput{Name: fmt.Sprintf("B%d", i)})
		require.NoError(t, err)
	}
	_, err = f.stores.CreateBranch(f.ctx, owner, tenant.ID, CreateBranchInput{Name: "one too many"})
	require.ErrorAs(t, err, &entErr)
	assert.Equal(t, plan.Entitlements.MaxBranches, entErr.Limit)
}

func TestAddEmployee_BranchManagerTakesOverBranch(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	branch, err := f.stores.CreateBranch(f.ctx, owner, tenant.ID, CreateBranchInput{Name: "Main"})
	require.NoError(t, err)

	mgr, err := f.stores.AddEmployee(f.ctx, owner, AddEmployeeInput{
		Email: "mgr@shop.test", Password: "secret123", FullName: "Manager",
		Role: domain.RoleBranchManager, TenantID: tenant.ID, BranchID: branch.ID,
	})
	require.NoError(t, err)

	got, err := f.store.Branches().GetByID(f.ctx, branch.ID)
	require.NoError(t, err)
	id, ok := domain.ManagerOf(got)
	assert.True(t, ok)
	assert.Equal(t, mgr.ID, id)

	// The manager may add a cashier to their own branch.
	_, err = f.stores.AddEmployee(f.ctx, mgr, AddEmployeeInput{
		Email: "cash@shop.test", Password: "secret123", FullName: "Cash",
		Role: domain.RoleBranchCashier, TenantID: tenant.ID, BranchID: branch.ID,
	})
	require.NoError(t, err)

	// But not a store-level manager.
	_, err = f.stores.AddEmployee(f.ctx, mgr, AddEmployeeInput{
		Email: "boss@shop.test", Password: "secret123", FullName: "Boss",
		Role: domain.RoleStoreManager, TenantID: tenant.ID,
	})
	assert.True(t, domain.IsForbidden(err), "got %v", err)
}

func TestAddEmployee_BranchManagerCannotCreateWiderRole(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.paidStore("owner@shop.test")
	own, err := f.stores.CreateBranch(f.ctx, owner, tenant.ID, CreateBranchInput{Name: "Own"})
	require.NoError(t, err)
	other, err := f.stores.CreateBranch(f.ctx, owner, tenant.ID, CreateBranchInput{Name: "Other"})
	require.NoError(t, err)

	mgr, err := f.stores.AddEmployee(f.ctx, owner, AddEmployeeInput{
		Email: "mgr@shop.test", Password: "secret123", FullName: "Manager",
		Role: domain.RoleBranchManager, TenantID: tenant.ID, BranchID: own.ID,
	})
	require.NoError(t, err)

	for _, role := range []domain.Role{domain.RoleBranchAdmin, domain.RoleBranchManager} {
		_, err = f.stores.AddEmployee(f.ctx, mgr, AddEmployeeInput{
			Email: string(role) + "@shop.test", Password: "secret123", FullName: "Sidekick",
			Role: role, TenantID: tenant.ID, BranchID: own.ID,
		})
		assert.True(t, domain.IsForbidden(err), "%s: got %v", role, err)
	}

	// No account was created that could reach the other branch.
	_, err = f.store.Principals().GetByEmail(f.ctx, "branch_admin@shop.test")
	assert.ErrorIs(t, err, domain.ErrPrincipalNotFound)

	_, err = f.stores.AddEmployee(f.ctx, mgr, AddEmployeeInput{
		Email: "cash@shop.test", Password: "secret123", FullName: "Cash",
		Role: domain.RoleBranchCashier, TenantID: tenant.ID, BranchID: other.ID,
	})
	assert.True(t, domain.IsForbidden(err), "got %v", err)
}

func TestAddEmployee_BranchAdminReachesWholeStore(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.paidStore("owner@shop.test")
	own, err := f.stores.CreateBranch(f.ctx, owner, tenant.ID, CreateBranchInput{Name: "Own"})
	require.NoError(t, err)
	other, err := f.stores.CreateBranch(f.ctx, owner, tenant.ID, CreateBranchInput{Name: "Other"})
	require.NoError(t, err)

	admin, err := f.stores.AddEmployee(f.ctx, owner, AddEmployeeInput{
		Email: "ba@shop.test", Password: "secret123", FullName: "Branch Admin",
		Role: domain.RoleBranchAdmin, TenantID: tenant.ID, BranchID: own.ID,
	})
	require.NoError(t, err)

	_, err = f.stores.AddEmployee(f.ctx, admin, AddEmployeeInput{
		Email: "ba2@shop.test", Password: "secret123", FullName: "Second Admin",
		Role: domain.RoleBranchAdmin, TenantID: tenant.ID, BranchID: other.ID,
	})
	require.NoError(t, err)
}

func TestAddEmployee_StoreManagerAddsStaffButNotPeers(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.paidStore("owner@shop.test")
	branch, err := f.stores.CreateBranch(f.ctx, owner, tenant.ID, CreateBranchInput{Name: "Main"})
	require.NoError(t, err)

	mgr, err := f.stores.AddEmployee(f.ctx, owner, AddEmployeeInput{
		Email: "sm@shop.test", Password: "secret123", FullName: "Store Manager",
		Role: domain.RoleStoreManager, TenantID: tenant.ID,
	})
	require.NoError(t, err)

	_, err = f.stores.AddEmployee(f.ctx, mgr, AddEmployeeInput{
		Email: "ba@shop.test", Password: "secret123", FullName: "Branch Admin",
		Role: domain.RoleBranchAdmin, TenantID: tenant.ID, BranchID: branch.ID,
	})
	require.NoError(t, err)

	_, err = f.stores.AddEmployee(f.ctx, mgr, AddEmployeeInput{
		Email: "sm2@shop.test", Password: "secret123", FullName: "Peer",
		Role: domain.RoleStoreManager, TenantID: tenant.ID,
	})
	assert.True(t, domain.IsForbidden(err), "got %v", err)
}

func TestAddEmployee_UserCeiling(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")

	// The owner counts against the default ceiling.
	for i := 1; i < domain.DefaultEntitlements.MaxUsers; i++ {
		_, err := f.stores.AddEmployee(f.ctx, owner, AddEmployeeInput{
			Email: fmt.Sprintf("m%d@shop.test", i), Password: "secret123", FullName: "M",
			Role: domain.RoleStoreManager, TenantID: tenant.ID,
		})
		require.NoError(t, err)
	}

	_, err := f.stores.AddEmployee(f.ctx, owner, AddEmployeeInput{
		Email: "late@shop.test", Password: "secret123", FullName: "Late",
		Role: domain.RoleStoreManager, TenantID: tenant.ID,
	})
	var entErr *domain.EntitlementError
	require.ErrorAs(t, err, &entErr)
	assert.Equal(t, domain.EntitlementUsers, entErr.Kind)
}

func TestAddEmployee_RejectsRolesOutsideStaff(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")

	for _, role := range []domain.Role{domain.RolePlatformAdmin, domain.RoleStoreAdmin, domain.RoleCustomer} {
		_, err := f.stores.AddEmployee(f.ctx, owner, AddEmployeeInput{
			Email: "x@shop.test", Password: "secret123", FullName: "X",
			Role: role, TenantID: tenant.ID,
		})
		var vErr *domain.ValidationError
		assert.ErrorAs(t, err, &vErr, "role %s", role)
	}
}

func TestDeleteStore_OwnerOnlyAndKeepsHistory(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	plan := f.plan("Basic", "499")
	sub, err := f.subs.Create(f.ctx, owner, tenant.ID, plan.ID, "razorpay", "TXN0")
	require.NoError(t, err)

	manager, err := f.stores.AddEmployee(f.ctx, owner, AddEmployeeInput{
		Email: "mgr@shop.test", Password: "secret123", FullName: "M",
		Role: domain.RoleStoreManager, TenantID: tenant.ID,
	})
	require.NoError(t, err)

	err = f.stores.DeleteStore(f.ctx, manager, tenant.ID)
	assert.True(t, domain.IsForbidden(err), "got %v", err)

	require.NoError(t, f.stores.DeleteStore(f.ctx, owner, tenant.ID))

	_, err = f.store.Tenants().GetByID(f.ctx, tenant.ID)
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
	assert.Empty(t, f.reload(owner).TenantID)

	_, err = f.store.Subscriptions().GetByID(f.ctx, sub.ID)
	assert.NoError(t, err)
}

func TestListStores_PlatformOnly(t *testing.T) {
	f := newFixture(t)
	_, owner := f.activeStore("owner@shop.test")
	f.activeStore("other@shop.test")

	_, err := f.stores.ListStores(f.ctx, owner, domain.TenantFilter{})
	assert.True(t, domain.IsForbidden(err), "got %v", err)

	all, err := f.stores.ListStores(f.ctx, f.admin, domain.TenantFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGuard_AnonymousIsUnauthorized(t *testing.T) {
	f := newFixture(t)
	tenant, _ := f.activeStore("owner@shop.test")

	_, err := f.stores.GetStore(f.ctx, domain.Principal{}, tenant.ID)
	assert.True(t, domain.IsUnauthorized(err), "got %v", err)
}

func TestGuard_BranchOfAnotherStoreIsRefused(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	other, otherOwner := f.activeStore("other@shop.test")
	foreign, err := f.stores.CreateBranch(f.ctx, otherOwner, other.ID, CreateBranchInput{Name: "Theirs"})
	require.NoError(t, err)

	// Claiming our own store while naming their branch.
	_, err = f.stores.AddEmployee(f.ctx, owner, AddEmployeeInput{
		Email: "x@shop.test", Password: "secret123", FullName: "X",
		Role: domain.RoleBranchCashier, TenantID: tenant.ID, BranchID: foreign.ID,
	})
	assert.True(t, domain.IsForbidden(err), "got %v", err)
}
