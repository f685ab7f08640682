package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/neomorfeo/tillpoint/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time check: Store implements domain.Store.
var _ domain.Store = (*Store)(nil)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements domain.Store using SQLite.
type Store struct {
	db *sql.DB
	repositories
}

// New opens a SQLite database, runs migrations, and returns a ready store.
func New(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := NewFromDB(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewFromDB configures an existing handle (e.g. one instrumented with
// otelsql), runs migrations, and returns a ready store.
func NewFromDB(db *sql.DB) (*Store, error) {
	if err := configure(db); err != nil {
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &Store{db: db, repositories: newRepositories(db)}, nil
}

// pragmas apply to the single pooled connection. busy_timeout covers the
// window where the expiry sweep and a payment callback want the writer.
var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

func configure(db *sql.DB) error {
	// One connection serializes writers, keeps ":memory:" databases shared,
	// and is what River expects from SQLite.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (s *Store) DB() *sql.DB {
	return s.db
}

// WithinTx runs fn inside a single transaction. The repositories handed to fn
// are bound to that transaction; fn must not use the Store's own repositories.
func (s *Store) WithinTx(ctx context.Context, fn func(repos domain.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

type repositories struct {
	tenants       *TenantRepository
	branches      *BranchRepository
	principals    *PrincipalRepository
	plans         *PlanRepository
	subscriptions *SubscriptionRepository
	paymentOrders *PaymentOrderRepository
}

func newRepositories(q queryer) repositories {
	return repositories{
		tenants:       &TenantRepository{q: q},
		branches:      &BranchRepository{q: q},
		principals:    &PrincipalRepository{q: q},
		plans:         &PlanRepository{q: q},
		subscriptions: &SubscriptionRepository{q: q},
		paymentOrders: &PaymentOrderRepository{q: q},
	}
}

func (r repositories) Tenants() domain.TenantRepository             { return r.tenants }
func (r repositories) Branches() domain.BranchRepository           { return r.branches }
func (r repositories) Principals() domain.PrincipalRepository       { return r.principals }
func (r repositories) Plans() domain.PlanRepository                 { return r.plans }
func (r repositories) Subscriptions() domain.SubscriptionRepository { return r.subscriptions }
func (r repositories) PaymentOrders() domain.PaymentOrderRepository { return r.paymentOrders }

const timeFormat = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, _ := time.Parse(timeFormat, s)
	return t
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// execOne runs a single-row write and maps "no row touched" to notFound.
func execOne(ctx context.Context, q queryer, notFound error, query string, args ...any) error {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return notFound
	}
	return nil
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
