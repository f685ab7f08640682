package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

const defaultGatewayTimeout = 10 * time.Second

// errLatchLost aborts a transaction whose compare-and-set found the order
// already finalized by someone else.
var errLatchLost = errors.New("payment order already finalized")

// PaymentService issues payment links and reconciles confirmations.
type PaymentService struct {
	store         domain.Store
	guard         *Guard
	gateways      domain.Gateways
	subscriptions *SubscriptionService
	events        events
	logger        *slog.Logger
	timeout       time.Duration
	now           func() time.Time
}

// NewPaymentService creates a payment service. A zero timeout uses the default.
func NewPaymentService(
	store domain.Store,
	gateways domain.Gateways,
	subscriptions *SubscriptionService,
	publisher domain.EventPublisher,
	logger *slog.Logger,
	timeout time.Duration,
) *PaymentService {
	logger = orDefault(logger)
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &PaymentService{
		store:         store,
		guard:         NewGuard(store),
		gateways:      gateways,
		subscriptions: subscriptions,
		events:        events{publisher: publisher, logger: logger},
		logger:        logger,
		timeout:       timeout,
		now:           time.Now,
	}
}

// CreatePaymentLink asks the gateway for a payable link for planID on behalf
// of p's store and records a pending order keyed by the link. Nothing is
// stored when the gateway fails.
func (s *PaymentService) CreatePaymentLink(ctx context.Context, p domain.Principal, planID string, method domain.PaymentMethod) (domain.PaymentLink, error) {
	actor, err := s.guard.Actor(ctx, p)
	if err != nil {
		return domain.PaymentLink{}, err
	}
	if err := s.guard.Check(ctx, p, domain.ActionCreatePayment, Target{TenantID: actor.TenantID}); err != nil {
		return domain.PaymentLink{}, err
	}

	gw, ok := s.gateways[method]
	if !ok {
		return domain.PaymentLink{}, &domain.ValidationError{Field: "method", Reason: fmt.Sprintf("unsupported payment method %q", method)}
	}

	plan, err := s.store.Plans().GetByID(ctx, planID)
	if err != nil {
		return domain.PaymentLink{}, err
	}

	orderID := newID()
	gwCtx, cancel := context.WithTimeout(ctx, s.timeout)
	link, err := gw.CreateLink(gwCtx, domain.LinkRequest{
		Reference:   orderID,
		Amount:      plan.Price,
		Currency:    plan.Currency,
		Description: plan.Name,
		PayerName:   p.FullName,
		PayerEmail:  p.Email,
	})
	cancel()
	if err != nil {
		return domain.PaymentLink{}, asGatewayError(method, "create link", err)
	}

	now := s.now().UTC()
	order := domain.PaymentOrder{
		ID:          orderID,
		Amount:      plan.Price,
		Currency:    plan.Currency,
		Method:      method,
		LinkID:      link.ID,
		LinkURL:     link.URL,
		Status:      domain.PaymentPending,
		PrincipalID: p.ID,
		TenantID:    actor.TenantID,
		PlanID:      plan.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.PaymentOrders().Create(ctx, order); err != nil {
		return domain.PaymentLink{}, fmt.Errorf("recording payment order: %w", err)
	}

	s.logger.InfoContext(ctx, "payment link created",
		"order_id", order.ID,
		"tenant_id", order.TenantID,
		"plan_id", order.PlanID,
		"method", method,
	)

	return domain.PaymentLink{
		OrderID: order.ID,
		LinkID:  order.LinkID,
		URL:     order.LinkURL,
		Amount:  order.Amount,
		Method:  method,
	}, nil
}

// Proceed reconciles a payer's confirmation for linkID. It is idempotent: an
// order that already left pending returns its recorded outcome, and the
// subscription is activated at most once per link however many times, or
// however concurrently, this is called.
func (s *PaymentService) Proceed(ctx context.Context, confirmationID, linkID string) (domain.PaymentOrder, error) {
	order, err := s.store.PaymentOrders().GetByLinkID(ctx, linkID)
	if err != nil {
		return domain.PaymentOrder{}, err
	}
	return s.proceed(ctx, order, confirmationID)
}

// ProceedAs is Proceed on behalf of p, who must be the principal that issued
// the link. The caller is checked before the gateway is asked anything.
func (s *PaymentService) ProceedAs(ctx context.Context, p domain.Principal, confirmationID, linkID string) (domain.PaymentOrder, error) {
	actor := domain.Actor{ID: p.ID, Role: p.Role}
	if p.ID == "" {
		return domain.PaymentOrder{}, domain.AuthorizePayer(actor, domain.PaymentOrder{})
	}
	order, err := s.store.PaymentOrders().GetByLinkID(ctx, linkID)
	if err != nil {
		return domain.PaymentOrder{}, err
	}
	if err := domain.AuthorizePayer(actor, order); err != nil {
		return domain.PaymentOrder{}, err
	}
	return s.proceed(ctx, order, confirmationID)
}

func (s *PaymentService) proceed(ctx context.Context, order domain.PaymentOrder, confirmationID string) (domain.PaymentOrder, error) {
	if order.Finalized() {
		return outcome(order)
	}

	gw, ok := s.gateways[order.Method]
	if !ok {
		return domain.PaymentOrder{}, fmt.Errorf("no gateway configured for %q", order.Method)
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.timeout)
	verified, err := gw.Verify(gwCtx, confirmationID, order.LinkID)
	cancel()
	if err != nil {
		return domain.PaymentOrder{}, asGatewayError(order.Method, "verify", err)
	}

	if !verified {
		return s.fail(ctx, order)
	}
	return s.succeed(ctx, order, confirmationID)
}

func (s *PaymentService) fail(ctx context.Context, order domain.PaymentOrder) (domain.PaymentOrder, error) {
	won, err := s.store.PaymentOrders().Finalize(ctx, order.ID, domain.PaymentFailed, "")
	if err != nil {
		return domain.PaymentOrder{}, err
	}
	if !won {
		return s.recorded(ctx, order.ID)
	}

	order.Status = domain.PaymentFailed
	s.logger.WarnContext(ctx, "payment verification failed",
		"order_id", order.ID,
		"tenant_id", order.TenantID,
		"method", order.Method,
	)
	s.events.publish(ctx, paymentEvent(domain.EventPaymentFailed, order))
	return order, domain.ErrVerificationFailed
}

func (s *PaymentService) succeed(ctx context.Context, order domain.PaymentOrder, confirmationID string) (domain.PaymentOrder, error) {
	subs := s.subscriptions

	subID := newID()

	var sub domain.Subscription
	var cancelled []domain.Subscription
	err := s.store.WithinTx(ctx, func(repos domain.Repositories) error {
		won, err := repos.PaymentOrders().Finalize(ctx, order.ID, domain.PaymentSuccess, subID)
		if err != nil {
			return err
		}
		if !won {
			return errLatchLost
		}

		cancelled, err = subs.cancelActive(ctx, repos, order.TenantID, "")
		if err != nil {
			return err
		}
		sub, err = subs.start(ctx, repos, subID, order.TenantID, order.PlanID, string(order.Method), confirmationID)
		if err != nil {
			return err
		}
		sub, err = subs.activate(ctx, repos, sub)
		return err
	})
	if errors.Is(err, errLatchLost) {
		return s.recorded(ctx, order.ID)
	}
	if err != nil {
		return domain.PaymentOrder{}, err
	}

	order.Status = domain.PaymentSuccess
	order.SubscriptionID = sub.ID

	s.logger.InfoContext(ctx, "payment confirmed",
		"order_id", order.ID,
		"tenant_id", order.TenantID,
		"subscription_id", sub.ID,
		"method", order.Method,
	)
	for _, c := range cancelled {
		s.events.publish(ctx, subscriptionEvent(domain.EventSubscriptionCancelled, c))
	}
	s.events.publish(ctx,
		subscriptionEvent(domain.EventSubscriptionActivated, sub),
		paymentEvent(domain.EventPaymentSucceeded, order),
	)
	return order, nil
}

// recorded returns the outcome written by whoever finalized the order first.
func (s *PaymentService) recorded(ctx context.Context, id string) (domain.PaymentOrder, error) {
	order, err := s.store.PaymentOrders().GetByID(ctx, id)
	if err != nil {
		return domain.PaymentOrder{}, err
	}
	return outcome(order)
}

func outcome(order domain.PaymentOrder) (domain.PaymentOrder, error) {
	if order.Status == domain.PaymentFailed {
		return order, domain.ErrVerificationFailed
	}
	return order, nil
}

// asGatewayError keeps a gateway's own classification and treats anything
// unclassified (timeouts, cancelled contexts) as retryable.
func asGatewayError(method domain.PaymentMethod, op string, err error) error {
	var gwErr *domain.GatewayError
	if errors.As(err, &gwErr) {
		return err
	}
	return &domain.GatewayError{Method: method, Op: op, Temporary: true, Err: err}
}

func paymentEvent(name domain.EventName, order domain.PaymentOrder) domain.DomainEvent {
	return domain.DomainEvent{
		Name:      name,
		TenantID:  order.TenantID,
		SubjectID: order.ID,
		Status:    string(order.Status),
		At:        time.Now().UTC(),
	}
}
