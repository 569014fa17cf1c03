package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Mindburn-Labs/plang/pkg/governance"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists precedence records in SQLite. Suitable for edge
// and development deployments where a single file is the whole state.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an open database handle and ensures the schema.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("sqlite precedence store: migrate: %w", err)
	}
	return s, nil
}

// OpenSQLiteStore opens the database at path and ensures the schema.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite precedence store: open %s: %w", path, err)
	}
	return NewSQLiteStore(db)
}

func (s *SQLiteStore) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS precedence (
        tenant_id TEXT NOT NULL,
        policy_id TEXT NOT NULL,
        precedence INTEGER NOT NULL,
        strategy TEXT NOT NULL DEFAULT '',
        updated_at DATETIME NOT NULL,
        PRIMARY KEY (tenant_id, policy_id)
    );`
	_, err := s.db.ExecContext(context.Background(), query)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, tenantID, policyID string) (*PrecedenceRecord, error) {
	query := `
        SELECT tenant_id, policy_id, precedence, strategy, updated_at
        FROM precedence
        WHERE tenant_id = ? AND policy_id = ?
    `
	row := s.db.QueryRowContext(ctx, query, tenantID, policyID)
	rec, err := scanPrecedence(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return rec, err
}

func (s *SQLiteStore) Put(ctx context.Context, rec *PrecedenceRecord) error {
	query := `
        INSERT INTO precedence (tenant_id, policy_id, precedence, strategy, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (tenant_id, policy_id) DO UPDATE SET
            precedence = excluded.precedence,
            strategy = excluded.strategy,
            updated_at = excluded.updated_at
    `
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, query,
		rec.TenantID, rec.PolicyID, rec.Precedence, string(rec.Strategy),
		updated.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("sqlite precedence store: put: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, tenantID string) ([]*PrecedenceRecord, error) {
	query := `
        SELECT tenant_id, policy_id, precedence, strategy, updated_at
        FROM precedence
        WHERE tenant_id = ?
        ORDER BY precedence ASC, policy_id ASC
    `
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*PrecedenceRecord
	for rows.Next() {
		rec, err := scanPrecedence(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

func scanPrecedence(scan func(...any) error) (*PrecedenceRecord, error) {
	var (
		tenantID   string
		policyID   string
		precedence int
		strategy   string
		updatedAt  string
	)
	if err := scan(&tenantID, &policyID, &precedence, &strategy, &updatedAt); err != nil {
		return nil, err
	}
	rec := &PrecedenceRecord{
		TenantID:   tenantID,
		PolicyID:   policyID,
		Precedence: precedence,
		Strategy:   governance.ConflictStrategy(strategy),
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		rec.UpdatedAt = t
	}
	return rec, nil
}
