package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/plang/pkg/governance"
)

func newMockPostgres(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS precedence").
		WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewPostgresStore(db)
	require.NoError(t, err)
	return s, mock
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMockPostgres(t)
	updated := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT tenant_id, policy_id, precedence, strategy, updated_at").
		WithArgs("acme", "P1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"tenant_id", "policy_id", "precedence", "strategy", "updated_at"}).
			AddRow("acme", "P1", 1, "MOST_RESTRICTIVE", updated))

	rec, err := s.Get(context.Background(), "acme", "P1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Precedence)
	assert.Equal(t, governance.StrategyMostRestrictive, rec.Strategy)
	assert.Equal(t, updated, rec.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectQuery("SELECT tenant_id, policy_id, precedence, strategy, updated_at").
		WithArgs("acme", "missing").
		WillReturnRows(sqlmock.NewRows(
			[]string{"tenant_id", "policy_id", "precedence", "strategy", "updated_at"}))

	_, err := s.Get(context.Background(), "acme", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_PutUpserts(t *testing.T) {
	s, mock := newMockPostgres(t)

	mock.ExpectExec("INSERT INTO precedence").
		WithArgs("acme", "P1", 3, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.Put(context.Background(), &PrecedenceRecord{
		TenantID:   "acme",
		PolicyID:   "P1",
		Precedence: 3,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	s, mock := newMockPostgres(t)
	updated := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT tenant_id, policy_id, precedence, strategy, updated_at").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows(
			[]string{"tenant_id", "policy_id", "precedence", "strategy", "updated_at"}).
			AddRow("acme", "P1", 1, "", updated).
			AddRow("acme", "P2", 5, "EXPLICIT_PRIORITY", updated))

	recs, err := s.List(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "P1", recs[0].PolicyID)
	assert.Equal(t, governance.StrategyExplicitPriority, recs[1].Strategy)
	assert.NoError(t, mock.ExpectationsWereMet())
}
