// Package arbiter resolves conflicts between policies that contribute
// competing numeric limits and breach actions to a single decision.
// Arbitration is a pure function of its inputs: the same policies,
// precedence records and contributions always produce the same effective
// values and the same snapshot hash.
package arbiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Mindburn-Labs/plang/pkg/canonicalize"
	"github.com/Mindburn-Labs/plang/pkg/governance"
	"github.com/Mindburn-Labs/plang/pkg/store"
)

// DefaultPrecedence ranks policies with no stored precedence record. It
// sits below any explicitly ranked policy.
const DefaultPrecedence = 1000

// Limits are the numeric dimensions a policy may constrain. A nil
// dimension contributes nothing.
type Limits struct {
	Tokens   *float64 `json:"tokens,omitempty"`
	Cost     *float64 `json:"cost,omitempty"`
	BurnRate *float64 `json:"burn_rate,omitempty"`
}

// Contribution is one policy's stake in the decision.
type Contribution struct {
	PolicyID     string                  `json:"policy_id"`
	Limits       Limits                  `json:"limits"`
	BreachAction governance.BreachAction `json:"breach_action,omitempty"`
}

// Input carries the competing contributions for one arbitration call.
type Input struct {
	Contributions []Contribution `json:"contributions"`
}

// Result is an immutable arbitration outcome. A new decision produces a
// new result; results are never mutated after creation.
type Result struct {
	TenantID          string                      `json:"tenant_id"`
	PolicyIDs         []string                    `json:"policy_ids"` // precedence order
	Precedences       map[string]int              `json:"precedences"`
	Strategy          governance.ConflictStrategy `json:"strategy"`
	EffectiveLimits   Limits                      `json:"effective_limits"`
	EffectiveAction   governance.BreachAction     `json:"effective_action"`
	ConflictsResolved int                         `json:"conflicts_resolved"`
	Timestamp         time.Time                   `json:"timestamp"`
	SnapshotHash      string                      `json:"snapshot_hash"`
}

// Arbitrator resolves limit and breach-action conflicts. Precedence
// records come from an injected store; the arbitrator never writes it.
type Arbitrator struct {
	precedence store.PrecedenceStore
	logger     *slog.Logger
}

// New creates an arbitrator over the given precedence store.
func New(precedence store.PrecedenceStore, logger *slog.Logger) *Arbitrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Arbitrator{precedence: precedence, logger: logger}
}

type ranked struct {
	id         string
	precedence int
	strategy   governance.ConflictStrategy
	contrib    *Contribution
}

// Arbitrate resolves the contributions of policyIDs for one tenant.
//
// 1. Policies sort by precedence ascending, ties kept in call order.
// 2. The active strategy comes from the highest-precedence policy that
//    declares one, defaulting to MOST_RESTRICTIVE.
// 3. Each limit dimension resolves independently; a lone contributor
//    wins unconditionally.
// 4. The breach action defaults to stop when nobody contributes one.
func (a *Arbitrator) Arbitrate(ctx context.Context, tenantID string, policyIDs []string, input Input) (*Result, error) {
	if len(policyIDs) == 0 {
		return nil, errors.New("arbiter: no policies to arbitrate")
	}

	contribs := make(map[string]*Contribution, len(input.Contributions))
	for i := range input.Contributions {
		c := &input.Contributions[i]
		contribs[c.PolicyID] = c
	}

	order := make([]ranked, 0, len(policyIDs))
	for _, id := range policyIDs {
		r := ranked{id: id, precedence: DefaultPrecedence, contrib: contribs[id]}
		rec, err := a.precedence.Get(ctx, tenantID, id)
		switch {
		case err == nil:
			r.precedence = rec.Precedence
			r.strategy = rec.Strategy
		case errors.Is(err, store.ErrNotFound):
			// Unranked policies arbitrate at DefaultPrecedence.
		default:
			return nil, fmt.Errorf("arbiter: precedence lookup for %s/%s: %w", tenantID, id, err)
		}
		order = append(order, r)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].precedence < order[j].precedence
	})

	strategy := governance.StrategyMostRestrictive
	for _, r := range order {
		if r.strategy != "" {
			strategy = r.strategy
			break
		}
	}

	res := &Result{
		TenantID:    tenantID,
		Strategy:    strategy,
		Precedences: make(map[string]int, len(order)),
		Timestamp:   time.Now().UTC(),
	}
	for _, r := range order {
		res.PolicyIDs = append(res.PolicyIDs, r.id)
		res.Precedences[r.id] = r.precedence
	}

	res.EffectiveLimits.Tokens = resolveLimit(order, strategy, &res.ConflictsResolved,
		func(l Limits) *float64 { return l.Tokens })
	res.EffectiveLimits.Cost = resolveLimit(order, strategy, &res.ConflictsResolved,
		func(l Limits) *float64 { return l.Cost })
	res.EffectiveLimits.BurnRate = resolveLimit(order, strategy, &res.ConflictsResolved,
		func(l Limits) *float64 { return l.BurnRate })
	res.EffectiveAction = resolveAction(order, strategy, &res.ConflictsResolved)

	hash, err := snapshotHash(res)
	if err != nil {
		return nil, fmt.Errorf("arbiter: snapshot hash: %w", err)
	}
	res.SnapshotHash = hash

	a.logger.InfoContext(ctx, "arbitration complete",
		"tenant_id", tenantID,
		"policies", len(policyIDs),
		"strategy", strategy,
		"effective_action", res.EffectiveAction,
		"conflicts_resolved", res.ConflictsResolved,
		"snapshot_hash", res.SnapshotHash,
	)
	return res, nil
}

// resolveLimit resolves one numeric dimension over the precedence-sorted
// contributors.
func resolveLimit(order []ranked, strategy governance.ConflictStrategy, conflicts *int, dim func(Limits) *float64) *float64 {
	var values []float64
	for _, r := range order {
		if r.contrib == nil {
			continue
		}
		if v := dim(r.contrib.Limits); v != nil {
			values = append(values, *v)
		}
	}
	switch len(values) {
	case 0:
		return nil
	case 1:
		return &values[0]
	}
	*conflicts += len(values) - 1

	effective := values[0] // lowest precedence number contributes first
	if strategy != governance.StrategyExplicitPriority {
		for _, v := range values[1:] {
			if v < effective {
				effective = v
			}
		}
	}
	return &effective
}

// resolveAction resolves the breach action. With no contributors the
// effective action is stop, safe and non-destructive.
func resolveAction(order []ranked, strategy governance.ConflictStrategy, conflicts *int) governance.BreachAction {
	var actions []governance.BreachAction
	for _, r := range order {
		if r.contrib == nil || r.contrib.BreachAction == "" {
			continue
		}
		actions = append(actions, r.contrib.BreachAction)
	}
	switch len(actions) {
	case 0:
		return governance.DefaultBreachAction
	case 1:
		return actions[0]
	}
	*conflicts += len(actions) - 1

	effective := actions[0]
	if strategy != governance.StrategyExplicitPriority {
		for _, act := range actions[1:] {
			if governance.BreachSeverity(act) > governance.BreachSeverity(effective) {
				effective = act
			}
		}
	}
	return effective
}

// snapshotHash fingerprints the effective outcome. The hash covers only
// decision-relevant fields with policy ids sorted, so identical inputs
// reproduce an identical hash regardless of call order or wall clock.
func snapshotHash(res *Result) (string, error) {
	ids := make([]string, len(res.PolicyIDs))
	copy(ids, res.PolicyIDs)
	sort.Strings(ids)

	return canonicalize.CanonicalHash(struct {
		PolicyIDs []string                    `json:"policy_ids"`
		Limits    Limits                      `json:"limits"`
		Action    governance.BreachAction     `json:"action"`
		Strategy  governance.ConflictStrategy `json:"strategy"`
	}{
		PolicyIDs: ids,
		Limits:    res.EffectiveLimits,
		Action:    res.EffectiveAction,
		Strategy:  res.Strategy,
	})
}
