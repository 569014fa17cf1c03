package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Mindburn-Labs/plang/pkg/governance"

	_ "github.com/lib/pq"
)

// PostgresStore persists precedence records in PostgreSQL for shared
// multi-node deployments.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle and ensures the schema.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("postgres precedence store: migrate: %w", err)
	}
	return s, nil
}

// OpenPostgresStore connects with a postgres DSN and ensures the schema.
func OpenPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres precedence store: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("postgres precedence store: ping: %w", err)
	}
	return NewPostgresStore(db)
}

func (s *PostgresStore) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS precedence (
        tenant_id TEXT NOT NULL,
        policy_id TEXT NOT NULL,
        precedence INTEGER NOT NULL,
        strategy TEXT NOT NULL DEFAULT '',
        updated_at TIMESTAMPTZ NOT NULL,
        PRIMARY KEY (tenant_id, policy_id)
    );`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, tenantID, policyID string) (*PrecedenceRecord, error) {
	query := `
        SELECT tenant_id, policy_id, precedence, strategy, updated_at
        FROM precedence
        WHERE tenant_id = $1 AND policy_id = $2
    `
	row := s.db.QueryRowContext(ctx, query, tenantID, policyID)
	rec, err := scanPostgresPrecedence(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return rec, err
}

func (s *PostgresStore) Put(ctx context.Context, rec *PrecedenceRecord) error {
	query := `
        INSERT INTO precedence (tenant_id, policy_id, precedence, strategy, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (tenant_id, policy_id) DO UPDATE SET
            precedence = EXCLUDED.precedence,
            strategy = EXCLUDED.strategy,
            updated_at = EXCLUDED.updated_at
    `
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		rec.TenantID, rec.PolicyID, rec.Precedence, string(rec.Strategy), updated)
	if err != nil {
		return fmt.Errorf("postgres precedence store: put: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, tenantID string) ([]*PrecedenceRecord, error) {
	query := `
        SELECT tenant_id, policy_id, precedence, strategy, updated_at
        FROM precedence
        WHERE tenant_id = $1
        ORDER BY precedence ASC, policy_id ASC
    `
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*PrecedenceRecord
	for rows.Next() {
		rec, err := scanPostgresPrecedence(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error { return s.db.Close() }

func scanPostgresPrecedence(scan func(...any) error) (*PrecedenceRecord, error) {
	var (
		rec      PrecedenceRecord
		strategy string
	)
	if err := scan(&rec.TenantID, &rec.PolicyID, &rec.Precedence, &strategy, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Strategy = governance.ConflictStrategy(strategy)
	return &rec, nil
}
