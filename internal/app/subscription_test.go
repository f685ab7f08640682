package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neomorfeo/tillpoint/internal/adapter/fsm"
	"github.com/neomorfeo/tillpoint/internal/domain"
)

func TestCreate_StartsActiveUnpaidTerm(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	plan := f.plan("Basic", "499")

	sub, err := f.subs.Create(f.ctx, owner, tenant.ID, plan.ID, "razorpay", "TXN0")
	require.NoError(t, err)

	assert.Equal(t, domain.SubscriptionActive, sub.Status)
	assert.Equal(t, domain.PaymentPending, sub.PaymentStatus)
	assert.Equal(t, f.now, sub.StartDate)
	assert.Equal(t, f.now.AddDate(0, 1, 0), sub.EndDate)
	assert.False(t, sub.Entitled(f.now), "unpaid term must not grant access")
	assert.Len(t, f.pub.named(domain.EventSubscriptionCreated), 1)
}

func TestCreate_RefusesSecondActive(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	plan := f.plan("Basic", "499")

	_, err := f.subs.Create(f.ctx, owner, tenant.ID, plan.ID, "razorpay", "TXN0")
	require.NoError(t, err)

	_, err = f.subs.Create(f.ctx, owner, tenant.ID, plan.ID, "razorpay", "TXN1")
	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, 1, f.activeCount(tenant.ID))
}

func TestCreate_DeniedForOtherStore(t *testing.T) {
	f := newFixture(t)
	tenant, _ := f.activeStore("owner@shop.test")
	_, stranger := f.activeStore("other@shop.test")
	plan := f.plan("Basic", "499")

	_, err := f.subs.Create(f.ctx, stranger, tenant.ID, plan.ID, "razorpay", "TXN0")
	assert.True(t, domain.IsForbidden(err), "got %v", err)
}

func TestUpgrade_CancelsActiveAndStartsNewTerm(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	planA := f.plan("Plan A", "499")
	planB := f.plan("Plan B", "999")

	s1, err := f.subs.Create(f.ctx, owner, tenant.ID, planA.ID, "razorpay", "TXN0")
	require.NoError(t, err)
	s1, err = f.subs.Activate(f.ctx, f.admin, s1.ID)
	require.NoError(t, err)

	s2, err := f.subs.Upgrade(f.ctx, owner, tenant.ID, planB.ID, "GATEWAY_X", "TXN1")
	require.NoError(t, err)

	old, err := f.store.Subscriptions().GetByID(f.ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionCancelled, old.Status)

	assert.Equal(t, domain.SubscriptionActive, s2.Status)
	assert.Equal(t, planB.ID, s2.PlanID)
	assert.Equal(t, domain.PaymentPending, s2.PaymentStatus)
	assert.Equal(t, "GATEWAY_X", s2.Gateway)
	assert.Equal(t, "TXN1", s2.TransactionRef)
	assert.Equal(t, 1, f.activeCount(tenant.ID))
}

func TestUpgrade_UnknownPlanLeavesCurrentTermUntouched(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	plan := f.plan("Plan A", "499")

	s1, err := f.subs.Create(f.ctx, owner, tenant.ID, plan.ID, "razorpay", "TXN0")
	require.NoError(t, err)

	_, err = f.subs.Upgrade(f.ctx, owner, tenant.ID, "no-such-plan", "razorpay", "TXN1")
	require.ErrorIs(t, err, domain.ErrPlanNotFound)

	got, err := f.store.Subscriptions().GetByID(f.ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionActive, got.Status, "partial upgrade must roll back")
}

func TestActivate_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	plan := f.plan("Basic", "499")

	sub, err := f.subs.Create(f.ctx, owner, tenant.ID, plan.ID, "razorpay", "TXN0")
	require.NoError(t, err)

	first, err := f.subs.Activate(f.ctx, f.admin, sub.ID)
	require.NoError(t, err)
	second, err := f.subs.Activate(f.ctx, f.admin, sub.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.SubscriptionActive, second.Status)
	assert.Equal(t, domain.PaymentSuccess, second.PaymentStatus)
	assert.Equal(t, first.Status, second.Status)
	assert.True(t, second.Entitled(f.now))
}

func TestActivate_OwnerCannotSelfActivate(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	plan := f.plan("Basic", "499")

	sub, err := f.subs.Create(f.ctx, owner, tenant.ID, plan.ID, "razorpay", "TXN0")
	require.NoError(t, err)

	_, err = f.subs.Activate(f.ctx, owner, sub.ID)
	assert.True(t, domain.IsForbidden(err), "got %v", err)
}

func TestActivate_CancelledTermStaysCancelled(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	plan := f.plan("Basic", "499")

	sub, err := f.subs.Create(f.ctx, owner, tenant.ID, plan.ID, "razorpay", "TXN0")
	require.NoError(t, err)
	_, err = f.subs.Cancel(f.ctx, owner, sub.ID)
	require.NoError(t, err)

	_, err = f.subs.Activate(f.ctx, f.admin, sub.ID)
	var trErr *domain.TransitionError
	assert.ErrorAs(t, err, &trErr)
}

func TestActivate_ExpiredTermIsNotRevived(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	plan := f.plan("Basic", "499")

	sub, err := f.subs.Create(f.ctx, owner, tenant.ID, plan.ID, "razorpay", "TXN0")
	require.NoError(t, err)
	n, err := f.subs.ExpireSweep(f.ctx, sub.EndDate.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = f.subs.Activate(f.ctx, f.admin, sub.ID)
	var trErr *domain.TransitionError
	require.ErrorAs(t, err, &trErr)

	got, err := f.store.Subscriptions().GetByID(f.ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionExpired, got.Status)
	assert.Equal(t, domain.PaymentPending, got.PaymentStatus)
}

func TestCancel_RegardlessOfPaymentStatus(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	plan := f.plan("Basic", "499")

	sub, err := f.subs.Create(f.ctx, owner, tenant.ID, plan.ID, "razorpay", "TXN0")
	require.NoError(t, err)
	_, err = f.subs.Activate(f.ctx, f.admin, sub.ID)
	require.NoError(t, err)

	got, err := f.subs.Cancel(f.ctx, owner, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionCancelled, got.Status)
	assert.Equal(t, domain.PaymentSuccess, got.PaymentStatus)

	again, err := f.subs.Cancel(f.ctx, owner, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionCancelled, again.Status)
	assert.Len(t, f.pub.named(domain.EventSubscriptionCancelled), 1)
}

// interleaved returns a subscription service whose first subscription read
// is followed by hook.
func (f *fixture) interleaved(hook func()) *SubscriptionService {
	svc := NewSubscriptionService(&interleavingStore{Store: f.store, afterRead: hook}, fsm.NewSubscriptionValidator(), f.pub, nil)
	svc.now = func() time.Time { return f.now }
	return svc
}

func TestUpdatePaymentStatus_KeepsConcurrentExpiry(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	sub, err := f.subs.Create(f.ctx, owner, tenant.ID, f.plan("Basic", "499").ID, "razorpay", "TXN0")
	require.NoError(t, err)

	svc := f.interleaved(func() {
		n, err := f.subs.ExpireSweep(f.ctx, sub.EndDate.Add(time.Hour))
		require.NoError(t, err)
		require.Equal(t, 1, n)
	})

	got, err := svc.UpdatePaymentStatus(f.ctx, f.admin, sub.ID, domain.PaymentSuccess)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionExpired, got.Status)
	assert.Equal(t, domain.PaymentSuccess, got.PaymentStatus)

	stored, err := f.store.Subscriptions().GetByID(f.ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionExpired, stored.Status)
	assert.Equal(t, domain.PaymentSuccess, stored.PaymentStatus)
}

func TestCancel_KeepsConcurrentActivation(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	sub, err := f.subs.Create(f.ctx, owner, tenant.ID, f.plan("Basic", "499").ID, "razorpay", "TXN0")
	require.NoError(t, err)

	svc := f.interleaved(func() {
		_, err := f.subs.Activate(f.ctx, f.admin, sub.ID)
		require.NoError(t, err)
	})

	got, err := svc.Cancel(f.ctx, owner, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionCancelled, got.Status)
	assert.Equal(t, domain.PaymentSuccess, got.PaymentStatus)

	stored, err := f.store.Subscriptions().GetByID(f.ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSuccess, stored.PaymentStatus)
}

func TestCancel_AfterConcurrentExpiry(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	sub, err := f.subs.Create(f.ctx, owner, tenant.ID, f.plan("Basic", "499").ID, "razorpay", "TXN0")
	require.NoError(t, err)

	svc := f.interleaved(func() {
		_, err := f.subs.ExpireSweep(f.ctx, sub.EndDate.Add(time.Hour))
		require.NoError(t, err)
	})

	got, err := svc.Cancel(f.ctx, owner, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionCancelled, got.Status)
}

func TestExpireSweep_YesterdayExpiresTomorrowStays(t *testing.T) {
	f := newFixture(t)
	plan := f.plan("Basic", "499")

	ended := domain.NewSubscription("s-ended", "t-1", plan, "razorpay", "", f.now.AddDate(0, -1, -1))
	ended.EndDate = f.now.AddDate(0, 0, -1)
	running := domain.NewSubscription("s-running", "t-2", plan, "razorpay", "", f.now.AddDate(0, -1, 1))
	running.EndDate = f.now.AddDate(0, 0, 1)
	require.NoError(t, f.store.Subscriptions().Create(f.ctx, ended))
	require.NoError(t, f.store.Subscriptions().Create(f.ctx, running))

	n, err := f.subs.ExpireSweep(f.ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, _ := f.store.Subscriptions().GetByID(f.ctx, "s-ended")
	assert.Equal(t, domain.SubscriptionExpired, got.Status)
	got, _ = f.store.Subscriptions().GetByID(f.ctx, "s-running")
	assert.Equal(t, domain.SubscriptionActive, got.Status)
}

func TestExpireSweep_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	plan := f.plan("Basic", "499")
	f.subs.sweepBatch = 2

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		sub := domain.NewSubscription("s-"+id, "t-"+id, plan, "razorpay", "", f.now.AddDate(0, -2, 0))
		require.NoError(t, f.store.Subscriptions().Create(f.ctx, sub))
	}
	cancelled := domain.NewSubscription("s-x", "t-a", plan, "razorpay", "", f.now.AddDate(0, -2, 0))
	cancelled.Status = domain.SubscriptionCancelled
	require.NoError(t, f.store.Subscriptions().Create(f.ctx, cancelled))

	n, err := f.subs.ExpireSweep(f.ctx, f.now)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	before, err := f.store.Subscriptions().List(f.ctx, domain.SubscriptionFilter{})
	require.NoError(t, err)

	n, err = f.subs.ExpireSweep(f.ctx, f.now)
	require.NoError(t, err)
	assert.Zero(t, n)

	after, err := f.store.Subscriptions().List(f.ctx, domain.SubscriptionFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, f.pub.named(domain.EventSubscriptionExpired), 6)
}

func TestUpdatePaymentStatus_PlatformOnly(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	plan := f.plan("Basic", "499")

	sub, err := f.subs.Create(f.ctx, owner, tenant.ID, plan.ID, "razorpay", "TXN0")
	require.NoError(t, err)

	_, err = f.subs.UpdatePaymentStatus(f.ctx, owner, sub.ID, domain.PaymentSuccess)
	assert.True(t, domain.IsForbidden(err), "got %v", err)

	got, err := f.subs.UpdatePaymentStatus(f.ctx, f.admin, sub.ID, domain.PaymentFailed)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, got.PaymentStatus)

	_, err = f.subs.UpdatePaymentStatus(f.ctx, f.admin, sub.ID, "refunded")
	var vErr *domain.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestQueries(t *testing.T) {
	f := newFixture(t)
	tenant, owner := f.activeStore("owner@shop.test")
	other, otherOwner := f.activeStore("other@shop.test")
	plan := f.plan("Basic", "499")

	_, err := f.subs.Create(f.ctx, owner, tenant.ID, plan.ID, "razorpay", "TXN0")
	require.NoError(t, err)
	f.now = f.now.Add(time.Hour)
	_, err = f.subs.Upgrade(f.ctx, owner, tenant.ID, plan.ID, "razorpay", "TXN1")
	require.NoError(t, err)
	f.now = f.now.AddDate(0, 0, 20)
	_, err = f.subs.Create(f.ctx, otherOwner, other.ID, plan.ID, "razorpay", "TXN2")
	require.NoError(t, err)

	mine, err := f.subs.ListByTenant(f.ctx, owner, tenant.ID, nil)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	cancelled := domain.SubscriptionCancelled
	mine, err = f.subs.ListByTenant(f.ctx, owner, tenant.ID, &cancelled)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = f.subs.ListAll(f.ctx, owner, nil)
	assert.True(t, domain.IsForbidden(err), "got %v", err)

	all, err := f.subs.ListAll(f.ctx, f.admin, nil)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Only the first store's terms end within the next two weeks: the
	// cancelled one and its active replacement.
	expiring, err := f.subs.ListExpiring(f.ctx, f.admin, 14, nil)
	require.NoError(t, err)
	require.Len(t, expiring, 2)
	for _, sub := range expiring {
		assert.Equal(t, tenant.ID, sub.TenantID)
	}

	active := domain.SubscriptionActive
	expiring, err = f.subs.ListExpiring(f.ctx, f.admin, 14, &active)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, "TXN1", expiring[0].TransactionRef)

	n, err := f.subs.CountByStatus(f.ctx, f.admin, domain.SubscriptionActive)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	current, err := f.subs.Current(f.ctx, owner, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, "TXN1", current.TransactionRef)
}
