package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory PrecedenceStore for tests and single-node
// deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]*PrecedenceRecord // tenant -> policy -> record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[string]*PrecedenceRecord)}
}

func (s *MemoryStore) Get(ctx context.Context, tenantID, policyID string) (*PrecedenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[tenantID][policyID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *rec
	return &out, nil
}

func (s *MemoryStore) Put(ctx context.Context, rec *PrecedenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records[rec.TenantID] == nil {
		s.records[rec.TenantID] = make(map[string]*PrecedenceRecord)
	}
	cp := *rec
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now().UTC()
	}
	s.records[rec.TenantID][rec.PolicyID] = &cp
	return nil
}

func (s *MemoryStore) List(ctx context.Context, tenantID string) ([]*PrecedenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*PrecedenceRecord, 0, len(s.records[tenantID]))
	for _, rec := range s.records[tenantID] {
		cp := *rec
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Precedence != out[j].Precedence {
			return out[i].Precedence < out[j].Precedence
		}
		return out[i].PolicyID < out[j].PolicyID
	})
	return out, nil
}
