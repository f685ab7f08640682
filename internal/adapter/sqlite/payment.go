package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// PaymentOrderRepository implements domain.PaymentOrderRepository using SQLite.
type PaymentOrderRepository struct {
	q queryer
}

const paymentOrderColumns = `id, amount, currency, method, link_id, link_url, status, principal_id, tenant_id, plan_id, subscription_id, created_at, updated_at`

func (r *PaymentOrderRepository) Create(ctx context.Context, o domain.PaymentOrder) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO payment_orders (`+paymentOrderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.Amount.String(), o.Currency, string(o.Method), o.LinkID, o.LinkURL,
		string(o.Status), o.PrincipalID, o.TenantID, o.PlanID, o.SubscriptionID,
		formatTime(o.CreatedAt), formatTime(o.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{Resource: "payment link", Key: o.LinkID}
		}
		return fmt.Errorf("inserting payment order: %w", err)
	}
	return nil
}

func (r *PaymentOrderRepository) GetByID(ctx context.Context, id string) (domain.PaymentOrder, error) {
	return scanPaymentOrder(r.q.QueryRowContext(ctx,
		`SELECT `+paymentOrderColumns+` FROM payment_orders WHERE id = ?`, id,
	))
}

func (r *PaymentOrderRepository) GetByLinkID(ctx context.Context, linkID string) (domain.PaymentOrder, error) {
	return scanPaymentOrder(r.q.QueryRowContext(ctx,
		`SELECT `+paymentOrderColumns+` FROM payment_orders WHERE link_id = ?`, linkID,
	))
}

// Finalize is a compare-and-set on status: only a pending order moves.
func (r *PaymentOrderRepository) Finalize(ctx context.Context, id string, status domain.PaymentStatus, subscriptionID string) (bool, error) {
	err := execOne(ctx, r.q, domain.ErrPaymentOrderNotFound,
		`UPDATE payment_orders SET status = ?, subscription_id = ?, updated_at = ?
		 WHERE id = ? AND status = 'pending'`,
		string(status), subscriptionID, formatTime(time.Now()), id,
	)
	if errors.Is(err, domain.ErrPaymentOrderNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("finalizing payment order: %w", err)
	}
	return true, nil
}

func scanPaymentOrder(row rowScanner) (domain.PaymentOrder, error) {
	var o domain.PaymentOrder
	var amount, method, status, createdAt, updatedAt string

	err := row.Scan(&o.ID, &amount, &o.Currency, &method, &o.LinkID, &o.LinkURL,
		&status, &o.PrincipalID, &o.TenantID, &o.PlanID, &o.SubscriptionID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PaymentOrder{}, domain.ErrPaymentOrderNotFound
		}
		return domain.PaymentOrder{}, fmt.Errorf("scanning payment order: %w", err)
	}

	o.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return domain.PaymentOrder{}, fmt.Errorf("parsing payment amount %q: %w", amount, err)
	}
	o.Method = domain.PaymentMethod(method)
	o.Status = domain.PaymentStatus(status)
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)
	return o, nil
}
