package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/legal-workflow/internal/core/domain"
)

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

var (
	errMissingTenant       = errors.New("statement without tenant")
	errMissingTenantFilter = errors.New("statement does not reference tenant_id bound to $1")
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scoped binds every statement to one tenant. The tenant id is always passed
// as $1 and a statement that does not reference tenant_id is refused, so a
// query without the tenant filter cannot reach the database.
type scoped struct {
	q      querier
	tenant string
}

func scope(q querier, tenant domain.Tenant) (scoped, error) {
	if tenant.IsZero() {
		return scoped{}, domain.WrapError(domain.ErrUnauthorized, "tenant scope", errMissingTenant)
	}
	return scoped{q: q, tenant: tenant.ID()}, nil
}

func (s scoped) args(args []any) []any {
	return append([]any{s.tenant}, args...)
}

func (s scoped) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if err := checkTenantFilter(query); err != nil {
		return nil, err
	}
	return s.q.ExecContext(ctx, query, s.args(args)...)
}

func (s scoped) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if err := checkTenantFilter(query); err != nil {
		return nil, err
	}
	return s.q.QueryContext(ctx, query, s.args(args)...)
}

func (s scoped) queryRow(ctx context.Context, query string, args ...any) rowScanner {
	if err := checkTenantFilter(query); err != nil {
		return errRow{err: err}
	}
	return s.q.QueryRowContext(ctx, query, s.args(args)...)
}

// execOne fails with ErrNotFound when the statement touched no row.
func (s scoped) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := s.exec(ctx, query, args...)
	if err != nil {
		return classify(op, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, op, sql.ErrNoRows)
	}
	return nil
}

func checkTenantFilter(query string) error {
	if !strings.Contains(query, "tenant_id") || !strings.Contains(query, "$1") {
		return domain.WrapError(domain.ErrUnauthorized, "tenant scope", errMissingTenantFilter)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type errRow struct {
	err error
}

func (r errRow) Scan(...any) error { return r.err }

// withinTx runs fn in a transaction bound to tenant. Errors returned by fn
// are passed through untouched.
func withinTx(ctx context.Context, db *sql.DB, tenant domain.Tenant, fn func(scoped) error) error {
	if tenant.IsZero() {
		return domain.WrapError(domain.ErrUnauthorized, "tenant scope", errMissingTenant)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin tx", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	s, err := scope(tx, tenant)
	if err != nil {
		return err
	}
	if err := fn(s); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify("commit tx", err)
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableStringPtr(value *string) any {
	if value == nil || *value == "" {
		return nil
	}
	return *value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableDate(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatDate(value sql.NullTime) string {
	if !value.Valid {
		return ""
	}
	return value.Time.Format(domain.DateLayout)
}

func timePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

func intPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	n := int(value.Int64)
	return &n
}
