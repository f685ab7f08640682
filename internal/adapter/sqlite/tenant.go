package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// TenantRepository implements domain.TenantRepository using SQLite.
type TenantRepository struct {
	q queryer
}

const tenantColumns = `id, name, description, owner_id, status, created_at, updated_at`

func (r *TenantRepository) Create(ctx context.Context, t domain.Tenant) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO tenants (`+tenantColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Description, t.OwnerID, string(t.Status),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{Resource: "store for owner", Key: t.OwnerID}
		}
		return fmt.Errorf("inserting tenant: %w", err)
	}
	return nil
}

func (r *TenantRepository) GetByID(ctx context.Context, id string) (domain.Tenant, error) {
	return scanTenant(r.q.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id,
	))
}

func (r *TenantRepository) GetByOwner(ctx context.Context, ownerID string) (domain.Tenant, error) {
	return scanTenant(r.q.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE owner_id = ?`, ownerID,
	))
}

func (r *TenantRepository) List(ctx context.Context, filter domain.TenantFilter) ([]domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants`
	var args []any

	if filter.Status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*filter.Status))
	}

	query += ` ORDER BY created_at DESC`

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

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var tenants []domain.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}

	return tenants, rows.Err()
}

func (r *TenantRepository) Update(ctx context.Context, t domain.Tenant) error {
	err := execOne(ctx, r.q, domain.ErrTenantNotFound,
		`UPDATE tenants SET name = ?, description = ?, status = ?, updated_at = ? WHERE id = ?`,
		t.Name, t.Description, string(t.Status), formatTime(time.Now()), t.ID,
	)
	if err != nil && !errors.Is(err, domain.ErrTenantNotFound) {
		return fmt.Errorf("updating tenant: %w", err)
	}
	return err
}

func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	err := execOne(ctx, r.q, domain.ErrTenantNotFound, `DELETE FROM tenants WHERE id = ?`, id)
	if err != nil && !errors.Is(err, domain.ErrTenantNotFound) {
		return fmt.Errorf("deleting tenant: %w", err)
	}
	return err
}

// scanTenant scans a single row into a domain.Tenant.
func scanTenant(row rowScanner) (domain.Tenant, error) {
	var t domain.Tenant
	var status, createdAt, updatedAt string

	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.OwnerID, &status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Tenant{}, domain.ErrTenantNotFound
		}
		return domain.Tenant{}, fmt.Errorf("scanning tenant: %w", err)
	}

	t.Status = domain.StoreStatus(status)
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)

	return t, nil
}
