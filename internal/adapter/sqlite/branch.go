package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// BranchRepository implements domain.BranchRepository using SQLite.
type BranchRepository struct {
	q queryer
}

const branchColumns = `id, tenant_id, name, address, manager_id, created_at, updated_at`

func (r *BranchRepository) Create(ctx context.Context, b domain.Branch) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO branches (`+branchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.TenantID, b.Name, b.Address, b.ManagerID,
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting branch: %w", err)
	}
	return nil
}

func (r *BranchRepository) GetByID(ctx context.Context, id string) (domain.Branch, error) {
	return scanBranch(r.q.QueryRowContext(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE id = ?`, id,
	))
}

func (r *BranchRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.Branch, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE tenant_id = ? ORDER BY created_at`, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	defer rows.Close()

	var branches []domain.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, err
		}
		branches = append(branches, b)
	}
	return branches, rows.Err()
}

func (r *BranchRepository) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM branches WHERE tenant_id = ?`, tenantID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting branches: %w", err)
	}
	return n, nil
}

func (r *BranchRepository) Update(ctx context.Context, b domain.Branch) error {
	err := execOne(ctx, r.q, domain.ErrBranchNotFound,
		`UPDATE branches SET name = ?, address = ?, manager_id = ?, updated_at = ? WHERE id = ?`,
		b.Name, b.Address, b.ManagerID, formatTime(time.Now()), b.ID,
	)
	if err != nil && !errors.Is(err, domain.ErrBranchNotFound) {
		return fmt.Errorf("updating branch: %w", err)
	}
	return err
}

func (r *BranchRepository) Delete(ctx context.Context, id string) error {
	err := execOne(ctx, r.q, domain.ErrBranchNotFound, `DELETE FROM branches WHERE id = ?`, id)
	if err != nil && !errors.Is(err, domain.ErrBranchNotFound) {
		return fmt.Errorf("deleting branch: %w", err)
	}
	return err
}

func (r *BranchRepository) DeleteByTenant(ctx context.Context, tenantID string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM branches WHERE tenant_id = ?`, tenantID); err != nil {
		return fmt.Errorf("deleting branches: %w", err)
	}
	return nil
}

func scanBranch(row rowScanner) (domain.Branch, error) {
	var b domain.Branch
	var createdAt, updatedAt string

	err := row.Scan(&b.ID, &b.TenantID, &b.Name, &b.Address, &b.ManagerID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Branch{}, domain.ErrBranchNotFound
		}
		return domain.Branch{}, fmt.Errorf("scanning branch: %w", err)
	}

	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}
