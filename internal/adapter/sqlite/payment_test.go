package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

func newOrder(id, linkID string) domain.PaymentOrder {
	now := time.Now().UTC()
	return domain.PaymentOrder{
		ID:          id,
		Amount:      decimal.RequireFromString("1499.50"),
		Currency:    "INR",
		Method:      domain.MethodRazorpay,
		LinkID:      linkID,
		LinkURL:     "https://pay.example/" + linkID,
		Status:      domain.PaymentPending,
		PrincipalID: "u-1",
		TenantID:    "t-1",
		PlanID:      "p-1",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestPaymentOrder_CreateAndLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustCreatePlan(t, store, "p-1", domain.CycleMonthly)

	if err := store.PaymentOrders().Create(ctx, newOrder("o-1", "plink_1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.PaymentOrders().GetByLinkID(ctx, "plink_1")
	if err != nil {
		t.Fatalf("GetByLinkID failed: %v", err)
	}
	if got.ID != "o-1" {
		t.Errorf("ID = %q, want %q", got.ID, "o-1")
	}
	if !got.Amount.Equal(decimal.RequireFromString("1499.5")) {
		t.Errorf("Amount = %s, want 1499.5", got.Amount)
	}
	if got.Finalized() {
		t.Error("new order should be pending")
	}

	var conflict *domain.ConflictError
	if err := store.PaymentOrders().Create(ctx, newOrder("o-2", "plink_1")); !errors.As(err, &conflict) {
		t.Errorf("expected ConflictError for duplicate link, got %v", err)
	}

	if _, err := store.PaymentOrders().GetByLinkID(ctx, "nope"); !errors.Is(err, domain.ErrPaymentOrderNotFound) {
		t.Errorf("expected ErrPaymentOrderNotFound, got %v", err)
	}
}

func TestPaymentOrder_FinalizeOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustCreatePlan(t, store, "p-1", domain.CycleMonthly)

	if err := store.PaymentOrders().Create(ctx, newOrder("o-1", "plink_1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	won, err := store.PaymentOrders().Finalize(ctx, "o-1", domain.PaymentSuccess, "s-1")
	if err != nil || !won {
		t.Fatalf("Finalize = %v, %v; want true, nil", won, err)
	}

	won, err = store.PaymentOrders().Finalize(ctx, "o-1", domain.PaymentFailed, "")
	if err != nil || won {
		t.Fatalf("second Finalize = %v, %v; want false, nil", won, err)
	}

	got, _ := store.PaymentOrders().GetByID(ctx, "o-1")
	if got.Status != domain.PaymentSuccess {
		t.Errorf("Status = %q, want %q", got.Status, domain.PaymentSuccess)
	}
	if got.SubscriptionID != "s-1" {
		t.Errorf("SubscriptionID = %q, want %q", got.SubscriptionID, "s-1")
	}
}
