package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// PlanRepository implements domain.PlanRepository using SQLite.
type PlanRepository struct {
	q queryer
}

const planColumns = `id, name, description, price, currency, cycle, max_branches, max_users, max_products, features, created_at, updated_at`

func (r *PlanRepository) Create(ctx context.Context, p domain.Plan) error {
	features, err := json.Marshal(p.Features)
	if err != nil {
		return fmt.Errorf("encoding plan features: %w", err)
	}

	_, err = r.q.ExecContext(ctx,
		`INSERT INTO plans (`+planColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.Price.String(), p.Currency, string(p.Cycle),
		p.Entitlements.MaxBranches, p.Entitlements.MaxUsers, p.Entitlements.MaxProducts,
		string(features), formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{Resource: "plan", Key: p.Name}
		}
		return fmt.Errorf("inserting plan: %w", err)
	}
	return nil
}

func (r *PlanRepository) GetByID(ctx context.Context, id string) (domain.Plan, error) {
	return scanPlan(r.q.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE id = ?`, id,
	))
}

func (r *PlanRepository) List(ctx context.Context) ([]domain.Plan, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+planColumns+` FROM plans ORDER BY CAST(price AS REAL), name`)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

func (r *PlanRepository) Update(ctx context.Context, p domain.Plan) error {
	features, err := json.Marshal(p.Features)
	if err != nil {
		return fmt.Errorf("encoding plan features: %w", err)
	}

	err = execOne(ctx, r.q, domain.ErrPlanNotFound,
		`UPDATE plans
		 SET name = ?, description = ?, price = ?, currency = ?, cycle = ?,
		     max_branches = ?, max_users = ?, max_products = ?, features = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Description, p.Price.String(), p.Currency, string(p.Cycle),
		p.Entitlements.MaxBranches, p.Entitlements.MaxUsers, p.Entitlements.MaxProducts,
		string(features), formatTime(time.Now()), p.ID,
	)
	switch {
	case err == nil, errors.Is(err, domain.ErrPlanNotFound):
		return err
	case isUniqueViolation(err):
		return &domain.ConflictError{Resource: "plan", Key: p.Name}
	default:
		return fmt.Errorf("updating plan: %w", err)
	}
}

func scanPlan(row rowScanner) (domain.Plan, error) {
	var p domain.Plan
	var price, cycle, features, createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Currency, &cycle,
		&p.Entitlements.MaxBranches, &p.Entitlements.MaxUsers, &p.Entitlements.MaxProducts,
		&features, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Plan{}, domain.ErrPlanNotFound
		}
		return domain.Plan{}, fmt.Errorf("scanning plan: %w", err)
	}

	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return domain.Plan{}, fmt.Errorf("parsing plan price %q: %w", price, err)
	}
	if err := json.Unmarshal([]byte(features), &p.Features); err != nil {
		return domain.Plan{}, fmt.Errorf("decoding plan features: %w", err)
	}
	p.Cycle = domain.BillingCycle(cycle)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}
