package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/tillpoint/internal/domain"
)

// PrincipalRepository implements domain.PrincipalRepository using SQLite.
type PrincipalRepository struct {
	q queryer
}

const principalColumns = `id, email, full_name, password_hash, role, tenant_id, branch_id, last_login_at, created_at, updated_at`

func (r *PrincipalRepository) Create(ctx context.Context, p domain.Principal) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO principals (`+principalColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, domain.NormalizeEmail(p.Email), p.FullName, p.PasswordHash, string(p.Role),
		p.TenantID, p.BranchID, formatTime(p.LastLoginAt),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{Resource: "user", Key: p.Email}
		}
		return fmt.Errorf("inserting principal: %w", err)
	}
	return nil
}

func (r *PrincipalRepository) GetByID(ctx context.Context, id string) (domain.Principal, error) {
	return scanPrincipal(r.q.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE id = ?`, id,
	))
}

func (r *PrincipalRepository) GetByEmail(ctx context.Context, email string) (domain.Principal, error) {
	return scanPrincipal(r.q.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE email = ?`, domain.NormalizeEmail(email),
	))
}

func (r *PrincipalRepository) Update(ctx context.Context, p domain.Principal) error {
	err := execOne(ctx, r.q, domain.ErrPrincipalNotFound,
		`UPDATE principals
		 SET full_name = ?, password_hash = ?, role = ?, tenant_id = ?, branch_id = ?, last_login_at = ?, updated_at = ?
		 WHERE id = ?`,
		p.FullName, p.PasswordHash, string(p.Role), p.TenantID, p.BranchID,
		formatTime(p.LastLoginAt), formatTime(time.Now()), p.ID,
	)
	if err != nil && !errors.Is(err, domain.ErrPrincipalNotFound) {
		return fmt.Errorf("updating principal: %w", err)
	}
	return err
}

func (r *PrincipalRepository) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM principals WHERE tenant_id = ?`, tenantID,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting principals: %w", err)
	}
	return n, nil
}

func scanPrincipal(row rowScanner) (domain.Principal, error) {
	var p domain.Principal
	var role, lastLogin, createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Email, &p.FullName, &p.PasswordHash, &role,
		&p.TenantID, &p.BranchID, &lastLogin, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Principal{}, domain.ErrPrincipalNotFound
		}
		return domain.Principal{}, fmt.Errorf("scanning principal: %w", err)
	}

	p.Role = domain.Role(role)
	p.LastLoginAt = parseTime(lastLogin)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}
