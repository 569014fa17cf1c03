package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheTTL bounds how stale a cached precedence record may be.
const DefaultCacheTTL = 30 * time.Second

// CachedStore is a read-through Redis cache in front of another
// PrecedenceStore. Arbitration reads precedence on every call; the cache
// keeps the hot path off the backing database. Writes go to the backing
// store and invalidate the cached entry.
type CachedStore struct {
	inner  PrecedenceStore
	client *redis.Client
	ttl    time.Duration
}

// NewCachedStore wraps inner with a Redis cache. A non-positive ttl falls
// back to DefaultCacheTTL.
func NewCachedStore(inner PrecedenceStore, client *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{inner: inner, client: client, ttl: ttl}
}

func cacheKey(tenantID, policyID string) string {
	return fmt.Sprintf("plang:precedence:%s:%s", tenantID, policyID)
}

func (s *CachedStore) Get(ctx context.Context, tenantID, policyID string) (*PrecedenceRecord, error) {
	key := cacheKey(tenantID, policyID)
	if raw, err := s.client.Get(ctx, key).Bytes(); err == nil {
		var rec PrecedenceRecord
		if err := json.Unmarshal(raw, &rec); err == nil {
			return &rec, nil
		}
		// Corrupt entry; fall through to the backing store.
	}

	rec, err := s.inner.Get(ctx, tenantID, policyID)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(rec); err == nil {
		// Cache population is best effort; a Redis outage must not fail reads.
		_ = s.client.Set(ctx, key, raw, s.ttl).Err()
	}
	return rec, nil
}

func (s *CachedStore) Put(ctx context.Context, rec *PrecedenceRecord) error {
	if err := s.inner.Put(ctx, rec); err != nil {
		return err
	}
	_ = s.client.Del(ctx, cacheKey(rec.TenantID, rec.PolicyID)).Err()
	return nil
}

func (s *CachedStore) List(ctx context.Context, tenantID string) ([]*PrecedenceRecord, error) {
	return s.inner.List(ctx, tenantID)
}
