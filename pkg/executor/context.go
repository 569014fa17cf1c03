package executor

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// DefaultMaxSteps bounds a run when the caller does not set a budget.
const DefaultMaxSteps = 1000

// Context is the decision context one DAG run evaluates against: an
// execution id, a bounded variable bag, and the global step budget.
type Context struct {
	ExecutionID string
	Variables   map[string]any
	MaxSteps    int
}

// NewContext creates a run context with a fresh execution id.
func NewContext(vars map[string]any, maxSteps int) *Context {
	if vars == nil {
		vars = make(map[string]any)
	}
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Context{
		ExecutionID: uuid.New().String(),
		Variables:   vars,
		MaxSteps:    maxSteps,
	}
}

// snapshot returns an isolated copy of the variable bag. Each concurrent
// stage member evaluates against its own snapshot so no policy observes a
// sibling's in-flight mutations; only the executor merges outcomes after
// the stage join barrier.
func (c *Context) snapshot() map[string]any {
	out := make(map[string]any, len(c.Variables))
	for k, v := range c.Variables {
		out[k] = v
	}
	return out
}

// Resolver supplies external attributes to condition expressions via the
// lookup built-in. Lookups are the only suspension point inside a policy
// evaluation; they block that policy's task only, never its stage
// siblings.
type Resolver interface {
	Resolve(ctx context.Context, name string) (any, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, name string) (any, error)

func (f ResolverFunc) Resolve(ctx context.Context, name string) (any, error) {
	return f(ctx, name)
}

// throttledResolver rate-limits external lookups so a pathological policy
// cannot hammer the attribute source.
type throttledResolver struct {
	inner   Resolver
	limiter *rate.Limiter
}

func (r *throttledResolver) Resolve(ctx context.Context, name string) (any, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.inner.Resolve(ctx, name)
}
