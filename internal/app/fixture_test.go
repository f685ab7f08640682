package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/neomorfeo/tillpoint/internal/adapter/fsm"
	"github.com/neomorfeo/tillpoint/internal/adapter/sqlite"
	"github.com/neomorfeo/tillpoint/internal/domain"
)

// --- Fakes ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) named(name domain.EventName) []domain.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.DomainEvent
	for _, ev := range p.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

type fakeGateway struct {
	mu          sync.Mutex
	verified    bool
	verifyErr   error
	createErr   error
	created     []domain.LinkRequest
	verifyCalls int
}

func (g *fakeGateway) CreateLink(_ context.Context, req domain.LinkRequest) (domain.Link, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return domain.Link{}, g.createErr
	}
	g.created = append(g.created, req)
	id := "plink_" + req.Reference
	return domain.Link{ID: id, URL: "https://pay.example/" + id}, nil
}

func (g *fakeGateway) Verify(_ context.Context, _, _ string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	return g.verified, g.verifyErr
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifyCalls
}

type plainHasher struct{}

func (plainHasher) Hash(pw string) (string, error) { return "hashed:" + pw, nil }
func (plainHasher) Verify(hash, pw string) bool     { return hash == "hashed:"+pw }

type plainTokens struct{}

func (plainTokens) Issue(p domain.Principal) (string, error) { return "token:" + p.ID, nil }

func (plainTokens) Parse(token string) (string, error) {
	id, ok := strings.CutPrefix(token, "token:")
	if !ok {
		return "", errors.New("malformed token")
	}
	return id, nil
}

type sentMail struct {
	to, subject, body string
}

type fakeNotifier struct {
	sent   []sentMail
	failTo string
}

func (n *fakeNotifier) Send(_ context.Context, to, subject, body string) error {
	if to == n.failTo {
		return errors.New("mailbox unavailable")
	}
	n.sent = append(n.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

// interleavingStore runs afterRead once, right after the first
// non-transactional subscription read, to land a concurrent write between a
// service's read and its own write.
type interleavingStore struct {
	domain.Store
	afterRead func()
}

func (s *interleavingStore) Subscriptions() domain.SubscriptionRepository {
	return &interleavingSubscriptions{SubscriptionRepository: s.Store.Subscriptions(), store: s}
}

type interleavingSubscriptions struct {
	domain.SubscriptionRepository
	store *interleavingStore
}

func (r *interleavingSubscriptions) GetByID(ctx context.Context, id string) (domain.Subscription, error) {
	sub, err := r.SubscriptionRepository.GetByID(ctx, id)
	if hook := r.store.afterRead; hook != nil {
		r.store.afterRead = nil
		hook()
	}
	return sub, err
}

// --- Fixture ---

type fixture struct {
	t        *testing.T
	ctx      context.Context
	now      time.Time
	store    *sqlite.Store
	pub      *recordingPublisher
	gateway  *fakeGateway
	accounts *AccountService
	stores   *StoreService
	plans    *PlanService
	subs     *SubscriptionService
	payments *PaymentService
	admin    domain.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		t:       t,
		ctx:     context.Background(),
		now:     time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC),
		store:   store,
		pub:     &recordingPublisher{},
		gateway: &fakeGateway{verified: true},
	}
	clock := func() time.Time { return f.now }

	f.accounts = NewAccountService(store.Principals(), plainHasher{}, plainTokens{})
	f.accounts.now = clock
	f.stores = NewStoreService(store, fsm.NewModerationValidator(), plainHasher{}, f.pub, nil)
	f.stores.now = clock
	f.plans = NewPlanService(store)
	f.plans.now = clock
	f.subs = NewSubscriptionService(store, fsm.NewSubscriptionValidator(), f.pub, nil)
	f.subs.now = clock
	f.payments = NewPaymentService(store, domain.Gateways{domain.MethodRazorpay: f.gateway}, f.subs, f.pub, nil, time.Second)
	f.payments.now = clock

	f.admin = f.principal("admin@platform.test", domain.RolePlatformAdmin)
	return f
}

// principal stores a principal directly, bypassing signup rules.
func (f *fixture) principal(email string, role domain.Role) domain.Principal {
	f.t.Helper()
	p := domain.NewPrincipal(newID(), email, "Test "+string(role), "hashed:secret123", role)
	require.NoError(f.t, f.store.Principals().Create(f.ctx, p))
	return p
}

// reload returns the current record of p.
func (f *fixture) reload(p domain.Principal) domain.Principal {
	f.t.Helper()
	got, err := f.store.Principals().GetByID(f.ctx, p.ID)
	require.NoError(f.t, err)
	return got
}

// activeStore creates an approved store and returns it with its owner.
func (f *fixture) activeStore(ownerEmail string) (domain.Tenant, domain.Principal) {
	f.t.Helper()
	owner := f.principal(ownerEmail, domain.RoleStoreAdmin)
	tenant, err := f.stores.CreateStore(f.ctx, owner, CreateStoreInput{Name: "Store of " + ownerEmail})
	require.NoError(f.t, err)
	tenant, err = f.stores.Moderate(f.ctx, f.admin, tenant.ID, domain.EventApprove)
	require.NoError(f.t, err)
	return tenant, f.reload(owner)
}

func (f *fixture) plan(name, price string) domain.Plan {
	f.t.Helper()
	plan, err := f.plans.CreatePlan(f.ctx, f.admin, PlanInput{
		Name:         name,
		Price:        decimal.RequireFromString(price),
		Currency:     "INR",
		Cycle:        domain.CycleMonthly,
		Entitlements: domain.Entitlements{MaxBranches: 5, MaxUsers: 20},
	})
	require.NoError(f.t, err)
	return plan
}

func (f *fixture) activeCount(tenantID string) int {
	f.t.Helper()
	active := domain.SubscriptionActive
	subs, err := f.store.Subscriptions().List(f.ctx, domain.SubscriptionFilter{TenantID: tenantID, Status: &active})
	require.NoError(f.t, err)
	return len(subs)
}

// paidStore is activeStore on an activated plan, so the default ceilings do
// not get in the way.
func (f *fixture) paidStore(ownerEmail string) (domain.Tenant, domain.Principal) {
	f.t.Helper()
	tenant, owner := f.activeStore(ownerEmail)
	sub, err := f.subs.Create(f.ctx, owner, tenant.ID, f.plan("Paid "+ownerEmail, "499").ID, "razorpay", "TXN-"+tenant.ID)
	require.NoError(f.t, err)
	_, err = f.subs.Activate(f.ctx, f.admin, sub.ID)
	require.NoError(f.t, err)
	return tenant, owner
}
