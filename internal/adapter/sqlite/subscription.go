package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// SubscriptionRepository implements domain.SubscriptionRepository using SQLite.
type SubscriptionRepository struct {
	q queryer
}

const subscriptionColumns = `id, tenant_id, plan_id, start_date, end_date, status, payment_status, gateway, transaction_ref, created_at, updated_at`

// errActiveConflict is mapped from the one-active-per-store partial index.
func errActiveConflict(tenantID string) error {
	return &domain.ConflictError{Resource: "active subscription for store", Key: tenantID}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub domain.Subscription) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO subscriptions (`+subscriptionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.TenantID, sub.PlanID,
		formatTime(sub.StartDate), formatTime(sub.EndDate),
		string(sub.Status), string(sub.PaymentStatus),
		sub.Gateway, sub.TransactionRef,
		formatTime(sub.CreatedAt), formatTime(sub.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errActiveConflict(sub.TenantID)
		}
		return fmt.Errorf("inserting subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (domain.Subscription, error) {
	return scanSubscription(r.q.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ?`, id,
	))
}

func (r *SubscriptionRepository) Update(ctx context.Context, sub domain.Subscription) error {
	err := execOne(ctx, r.q, domain.ErrSubscriptionNotFound,
		`UPDATE subscriptions
		 SET plan_id = ?, start_date = ?, end_date = ?, status = ?, payment_status = ?,
		     gateway = ?, transaction_ref = ?, updated_at = ?
		 WHERE id = ?`,
		sub.PlanID, formatTime(sub.StartDate), formatTime(sub.EndDate),
		string(sub.Status), string(sub.PaymentStatus),
		sub.Gateway, sub.TransactionRef, formatTime(time.Now()), sub.ID,
	)
	switch {
	case err == nil, errors.Is(err, domain.ErrSubscriptionNotFound):
		return err
	case isUniqueViolation(err):
		return errActiveConflict(sub.TenantID)
	default:
		return fmt.Errorf("updating subscription: %w", err)
	}
}

func (r *SubscriptionRepository) SetStatus(ctx context.Context, id string, from, to domain.SubscriptionStatus, now time.Time) (bool, error) {
	err := execOne(ctx, r.q, domain.ErrSubscriptionNotFound,
		`UPDATE subscriptions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), formatTime(now), id, string(from),
	)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrSubscriptionNotFound):
		return false, nil
	case isUniqueViolation(err):
		return false, &domain.ConflictError{Resource: "active subscription for store", Key: id}
	default:
		return false, fmt.Errorf("setting subscription status: %w", err)
	}
}

func (r *SubscriptionRepository) SetPaymentStatus(ctx context.Context, id string, status domain.PaymentStatus, now time.Time) error {
	err := execOne(ctx, r.q, domain.ErrSubscriptionNotFound,
		`UPDATE subscriptions SET payment_status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(now), id,
	)
	if err != nil && !errors.Is(err, domain.ErrSubscriptionNotFound) {
		return fmt.Errorf("setting payment status: %w", err)
	}
	return err
}

func (r *SubscriptionRepository) List(ctx context.Context, filter domain.SubscriptionFilter) ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE 1=1`
	var args []any

	if filter.TenantID != "" {
		query += ` AND tenant_id = ?`
		args = append(args, filter.TenantID)
	}

	if filter.Status != nil {
		query += ` AND status = ?`
		args = append(args, string(*filter.Status))
	}

	query += ` ORDER BY created_at DESC, id`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += ` LIMIT -1`
		}
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	return r.query(ctx, query, args...)
}

func (r *SubscriptionRepository) ListEndingBetween(ctx context.Context, from, to time.Time, status *domain.SubscriptionStatus) ([]domain.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE end_date >= ? AND end_date <= ?`
	args := []any{formatTime(from), formatTime(to)}

	if status != nil {
		query += ` AND status = ?`
		args = append(args, string(*status))
	}

	return r.query(ctx, query+` ORDER BY end_date, id`, args...)
}

func (r *SubscriptionRepository) ListExpirable(ctx context.Context, now time.Time, limit int) ([]domain.Subscription, error) {
	return r.query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE status != 'expired' AND end_date < ?
		 ORDER BY end_date, id
		 LIMIT ?`,
		formatTime(now), limit,
	)
}

// Expire is a guarded single-row update: a row that was renewed, or already
// expired, between listing and now is left alone.
func (r *SubscriptionRepository) Expire(ctx context.Context, id string, now time.Time) (bool, error) {
	err := execOne(ctx, r.q, domain.ErrSubscriptionNotFound,
		`UPDATE subscriptions SET status = 'expired', updated_at = ?
		 WHERE id = ? AND status != 'expired' AND end_date < ?`,
		formatTime(now), id, formatTime(now),
	)
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("expiring subscription: %w", err)
	}
	return true, nil
}

func (r *SubscriptionRepository) CountByStatus(ctx context.Context, status domain.SubscriptionStatus) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM subscriptions WHERE status = ?`, string(status),
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting subscriptions: %w", err)
	}
	return n, nil
}

func (r *SubscriptionRepository) query(ctx context.Context, query string, args ...any) ([]domain.Subscription, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	return subs, rows.Err()
}

func scanSubscription(row rowScanner) (domain.Subscription, error) {
	var sub domain.Subscription
	var startDate, endDate, status, paymentStatus, createdAt, updatedAt string

	err := row.Scan(&sub.ID, &sub.TenantID, &sub.PlanID, &startDate, &endDate,
		&status, &paymentStatus, &sub.Gateway, &sub.TransactionRef, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Subscription{}, domain.ErrSubscriptionNotFound
		}
		return domain.Subscription{}, fmt.Errorf("scanning subscription: %w", err)
	}

	sub.Status = domain.SubscriptionStatus(status)
	sub.PaymentStatus = domain.PaymentStatus(paymentStatus)
	sub.StartDate = parseTime(startDate)
	sub.EndDate = parseTime(endDate)
	sub.CreatedAt = parseTime(createdAt)
	sub.UpdatedAt = parseTime(updatedAt)

	return sub, nil
}

func (r *SubscriptionRepository) MarkReminded(ctx context.Context, id string, now time.Time) (bool, error) {
	err := execOne(ctx, r.q, domain.ErrSubscriptionNotFound,
		`INSERT INTO subscription_reminders (subscription_id, sent_at) VALUES (?, ?)
		 ON CONFLICT (subscription_id) DO NOTHING`,
		id, formatTime(now),
	)
	if errors.Is(err, domain.ErrSubscriptionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("marking reminder: %w", err)
	}
	return true, nil
}

func (r *SubscriptionRepository) ClearReminded(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM subscription_reminders WHERE subscription_id = ?`, id); err != nil {
		return fmt.Errorf("clearing reminder: %w", err)
	}
	return nil
}
