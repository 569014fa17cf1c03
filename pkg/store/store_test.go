package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/plang/pkg/governance"
	"github.com/Mindburn-Labs/plang/pkg/store"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "acme", "P1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Put(ctx, &store.PrecedenceRecord{
		TenantID:   "acme",
		PolicyID:   "P1",
		Precedence: 1,
		Strategy:   governance.StrategyMostRestrictive,
	}))

	rec, err := s.Get(ctx, "acme", "P1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Precedence)
	assert.Equal(t, governance.StrategyMostRestrictive, rec.Strategy)
	assert.False(t, rec.UpdatedAt.IsZero(), "Put stamps UpdatedAt")

	// Tenants are isolated.
	_, err = s.Get(ctx, "other", "P1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestMemoryStore_PutReplaces(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &store.PrecedenceRecord{TenantID: "acme", PolicyID: "P1", Precedence: 5}))
	require.NoError(t, s.Put(ctx, &store.PrecedenceRecord{TenantID: "acme", PolicyID: "P1", Precedence: 2}))

	rec, err := s.Get(ctx, "acme", "P1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Precedence)
}

func TestMemoryStore_ListOrdersByPrecedence(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	for _, rec := range []*store.PrecedenceRecord{
		{TenantID: "acme", PolicyID: "low", Precedence: 9, UpdatedAt: now},
		{TenantID: "acme", PolicyID: "high", Precedence: 1, UpdatedAt: now},
		{TenantID: "acme", PolicyID: "mid_b", Precedence: 5, UpdatedAt: now},
		{TenantID: "acme", PolicyID: "mid_a", Precedence: 5, UpdatedAt: now},
	} {
		require.NoError(t, s.Put(ctx, rec))
	}

	recs, err := s.List(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.Equal(t, "high", recs[0].PolicyID)
	assert.Equal(t, "mid_a", recs[1].PolicyID, "equal precedence falls back to policy id order")
	assert.Equal(t, "mid_b", recs[2].PolicyID)
	assert.Equal(t, "low", recs[3].PolicyID)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &store.PrecedenceRecord{TenantID: "acme", PolicyID: "P1", Precedence: 1}))

	rec, err := s.Get(ctx, "acme", "P1")
	require.NoError(t, err)
	rec.Precedence = 99

	again, err := s.Get(ctx, "acme", "P1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Precedence)
}
