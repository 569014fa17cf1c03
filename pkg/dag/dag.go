// Package dag builds the execution DAG over an IR module and produces a
// deterministic, stage-parallel execution plan.
//
// The graph is index-based: nodes carry dense integer ids with a name→id
// table owned by ExecutionDag, so nodes and edges never reference each
// other by pointer.
package dag

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Mindburn-Labs/plang/pkg/governance"
	"github.com/Mindburn-Labs/plang/pkg/ir"
)

// ErrCyclicDependency is returned when the graph cannot be fully ordered.
// The standard pipeline never constructs such a graph; hitting this means
// a defect upstream, and it is surfaced instead of silently degrading the
// ordering guarantees.
var ErrCyclicDependency = errors.New("dag: cyclic dependency")

type node struct {
	name     string
	phase    governance.Phase
	priority int
	deps     map[int]struct{} // ids this node depends on
}

// ExecutionDag is the dependency graph over IR functions.
// An edge (from, to) means "from depends on to": to must be scheduled in a
// strictly earlier stage than from.
type ExecutionDag struct {
	nodes []node
	ids   map[string]int
}

// Build constructs the DAG for a module:
//
//  1. One node per IR function; phase derived from its governance category.
//  2. A dependency edge from every node to every node of every earlier
//     phase, which is what makes SAFETY precede PRIVACY (and so on) a hard
//     guarantee even with no author-declared dependencies.
//  3. A dependency edge for every ROUTE instruction whose target exists in
//     the module: the routed-to policy must be schedulable before the
//     router. A node is never wired to depend on itself.
func Build(mod *ir.Module) *ExecutionDag {
	d := &ExecutionDag{ids: make(map[string]int)}
	if mod == nil {
		return d
	}

	names := mod.Names()
	for _, name := range names {
		fn := mod.Function(name)
		d.ids[name] = len(d.nodes)
		d.nodes = append(d.nodes, node{
			name:     name,
			phase:    governance.PhaseOf(fn.Governance.Category),
			priority: fn.Governance.Priority,
			deps:     make(map[int]struct{}),
		})
	}

	// Phase edges: a later phase cannot start until all earlier-phase
	// nodes are scheduled.
	for u := range d.nodes {
		for v := range d.nodes {
			if d.nodes[v].phase < d.nodes[u].phase {
				d.nodes[u].deps[v] = struct{}{}
			}
		}
	}

	// Routing edges. RouteTargets already drops self-routes and targets
	// that do not resolve.
	for _, name := range names {
		u := d.ids[name]
		for _, target := range mod.RouteTargets(name) {
			v := d.ids[target]
			if v != u {
				d.nodes[u].deps[v] = struct{}{}
			}
		}
	}
	return d
}

// Len returns the node count.
func (d *ExecutionDag) Len() int { return len(d.nodes) }

// DependsOn reports whether from depends on to.
func (d *ExecutionDag) DependsOn(from, to string) bool {
	u, ok := d.ids[from]
	if !ok {
		return false
	}
	v, ok := d.ids[to]
	if !ok {
		return false
	}
	_, dep := d.nodes[u].deps[v]
	return dep
}

// Plan is an ordered list of stages. Every member of a stage belongs to
// one phase and may execute concurrently with its stage siblings.
type Plan struct {
	Stages         [][]string `json:"stages"`
	TotalPolicies  int        `json:"total_policies"`
	ParallelStages int        `json:"parallel_stages"`
}

// StageOf returns the stage index holding the named function, or -1.
func (p *Plan) StageOf(name string) int {
	for i, stage := range p.Stages {
		for _, member := range stage {
			if member == name {
				return i
			}
		}
	}
	return -1
}

// Sort produces the execution plan via a repeated-frontier topological
// sort. The ready set is ordered by phase, then by priority (lower value
// executes first among phase equals), then by name, and the leading run of
// same-phase nodes is peeled into one stage: a stage never mixes two
// phases, even when both are ready.
//
// Sorting is a pure function of the graph: two calls on the same DAG yield
// identical plans.
func (d *ExecutionDag) Sort() (*Plan, error) {
	visited := make([]bool, len(d.nodes))
	remaining := len(d.nodes)
	plan := &Plan{TotalPolicies: len(d.nodes)}

	for remaining > 0 {
		var ready []int
		for id := range d.nodes {
			if visited[id] {
				continue
			}
			ok := true
			for dep := range d.nodes[id].deps {
				if !visited[dep] {
					ok = false
					break
				}
			}
			if ok {
				ready = append(ready, id)
			}
		}

		if len(ready) == 0 {
			var stuck []string
			for id := range d.nodes {
				if !visited[id] {
					stuck = append(stuck, d.nodes[id].name)
				}
			}
			sort.Strings(stuck)
			return nil, fmt.Errorf("%w: unschedulable nodes %v", ErrCyclicDependency, stuck)
		}

		sort.Slice(ready, func(i, j int) bool {
			a, b := d.nodes[ready[i]], d.nodes[ready[j]]
			if a.phase != b.phase {
				return a.phase < b.phase
			}
			if a.priority != b.priority {
				return a.priority < b.priority
			}
			return a.name < b.name
		})

		stagePhase := d.nodes[ready[0]].phase
		var stage []string
		for _, id := range ready {
			if d.nodes[id].phase != stagePhase {
				break
			}
			stage = append(stage, d.nodes[id].name)
			visited[id] = true
			remaining--
		}
		plan.Stages = append(plan.Stages, stage)
		if len(stage) > 1 {
			plan.ParallelStages++
		}
	}
	return plan, nil
}

// GetExecutionOrder builds, sorts and flattens a module's plan into an
// ordered function-name list.
func GetExecutionOrder(mod *ir.Module) ([]string, error) {
	plan, err := Build(mod).Sort()
	if err != nil {
		return nil, err
	}
	var order []string
	for _, stage := range plan.Stages {
		order = append(order, stage...)
	}
	return order, nil
}

// Visualize renders the graph as human-readable text: one line per node
// with its phase, priority and dependencies, grouped by phase.
func (d *ExecutionDag) Visualize() string {
	byPhase := make(map[governance.Phase][]int)
	for id := range d.nodes {
		byPhase[d.nodes[id].phase] = append(byPhase[d.nodes[id].phase], id)
	}

	var sb strings.Builder
	sb.WriteString("execution dag\n")
	for i, cat := range governance.Categories() {
		phase := governance.Phase(i)
		ids := byPhase[phase]
		if len(ids) == 0 {
			continue
		}
		sort.Slice(ids, func(a, b int) bool {
			x, y := d.nodes[ids[a]], d.nodes[ids[b]]
			if x.priority != y.priority {
				return x.priority < y.priority
			}
			return x.name < y.name
		})
		fmt.Fprintf(&sb, "phase %d (%s)\n", phase, cat)
		for _, id := range ids {
			n := d.nodes[id]
			deps := make([]string, 0, len(n.deps))
			for dep := range n.deps {
				deps = append(deps, d.nodes[dep].name)
			}
			sort.Strings(deps)
			fmt.Fprintf(&sb, "  %s priority=%d deps=%s\n", n.name, n.priority, strings.Join(deps, ","))
		}
	}
	return sb.String()
}
