// Package store persists precedence records, the tenant-scoped rankings
// the arbitrator consults when policies compete over limits. Backends
// share one interface; the arbitrator treats the store as an injected
// read dependency.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Mindburn-Labs/plang/pkg/governance"
)

// ErrNotFound is returned when no record exists for (tenant, policy).
var ErrNotFound = errors.New("store: precedence record not found")

// PrecedenceRecord ranks one policy within a tenant. Lower precedence
// value means higher priority. Strategy is the conflict strategy the
// policy declares, empty when undeclared.
type PrecedenceRecord struct {
	TenantID   string                      `json:"tenant_id"`
	PolicyID   string                      `json:"policy_id"`
	Precedence int                         `json:"precedence"`
	Strategy   governance.ConflictStrategy `json:"strategy,omitempty"`
	UpdatedAt  time.Time                   `json:"updated_at"`
}

// PrecedenceStore reads and writes precedence records.
type PrecedenceStore interface {
	// Get returns the record for (tenant, policy), or ErrNotFound.
	Get(ctx context.Context, tenantID, policyID string) (*PrecedenceRecord, error)
	// Put inserts or replaces a record.
	Put(ctx context.Context, rec *PrecedenceRecord) error
	// List returns all records for a tenant ordered by precedence ascending.
	List(ctx context.Context, tenantID string) ([]*PrecedenceRecord, error)
}
