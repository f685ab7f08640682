package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

func TestCheckEntitlement_FollowsEntitledPlan(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	plan := f.plan("Unlimited products", "499")

	ents := NewEntitlementService(f.store)
	ents.now = func() time.Time { return f.now }

	err := ents.CheckEntitlement(f.ctx, tenant.ID, domain.EntitlementProducts, domain.DefaultEntitlements.MaxProducts)
	var entErr *domain.EntitlementError
	require.ErrorAs(t, err, &entErr)

	sub, err := f.subs.Create(f.ctx, owner, tenant.ID, plan.ID, "razorpay", "TXN0")
	require.NoError(t, err)
	_, err = f.subs.Activate(f.ctx, f.admin, sub.ID)
	require.NoError(t, err)

	// MaxProducts is zero on this plan: unlimited.
	assert.NoError(t, ents.CheckEntitlement(f.ctx, tenant.ID, domain.EntitlementProducts, 10_000))

	// Once the term is over the defaults apply again.
	f.now = sub.EndDate.Add(time.Second)
	err = ents.CheckEntitlement(f.ctx, tenant.ID, domain.EntitlementProducts, domain.DefaultEntitlements.MaxProducts)
	assert.ErrorAs(t, err, &entErr)
}
