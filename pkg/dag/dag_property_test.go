//go:build property
// +build property

// Property-based tests for the sorter: plans are always valid topological
// orders, never mix phases within a stage, and are stable across calls.
package dag_test

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/Mindburn-Labs/plang/pkg/dag"
	"github.com/Mindburn-Labs/plang/pkg/governance"
	"github.com/Mindburn-Labs/plang/pkg/ir"
)

func randomModule(categories []int, priorities []int) *ir.Module {
	cats := governance.Categories()
	mod := ir.NewModule()
	for i := 0; i < len(categories) && i < len(priorities); i++ {
		cat := cats[((categories[i]%len(cats))+len(cats))%len(cats)]
		prio := ((priorities[i] % 100) + 100) % 100
		_ = mod.Add(&ir.Function{
			Name:       fmt.Sprintf("fn_%d", i),
			Governance: ir.Governance{Category: cat, Priority: prio},
		})
	}
	return mod
}

func TestSortProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("plan is a valid topological order", prop.ForAll(
		func(categories []int, priorities []int) bool {
			mod := randomModule(categories, priorities)
			d := dag.Build(mod)
			plan, err := d.Sort()
			if err != nil {
				return false // no cycles possible without routing edges
			}
			names := mod.Names()
			for _, from := range names {
				for _, to := range names {
					if from != to && d.DependsOn(from, to) {
						if plan.StageOf(to) >= plan.StageOf(from) {
							return false
						}
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.Int()),
		gen.SliceOf(gen.Int()),
	))

	properties.Property("stages never mix phases", prop.ForAll(
		func(categories []int, priorities []int) bool {
			mod := randomModule(categories, priorities)
			plan, err := dag.Build(mod).Sort()
			if err != nil {
				return false
			}
			for _, stage := range plan.Stages {
				phase := governance.PhaseOf(mod.Function(stage[0]).Governance.Category)
				for _, member := range stage[1:] {
					if governance.PhaseOf(mod.Function(member).Governance.Category) != phase {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.Int()),
		gen.SliceOf(gen.Int()),
	))

	properties.Property("sort is deterministic and idempotent", prop.ForAll(
		func(categories []int, priorities []int) bool {
			mod := randomModule(categories, priorities)
			d := dag.Build(mod)
			first, err1 := d.Sort()
			second, err2 := d.Sort()
			if err1 != nil || err2 != nil {
				return err1 != nil && err2 != nil
			}
			if len(first.Stages) != len(second.Stages) {
				return false
			}
			for i := range first.Stages {
				if len(first.Stages[i]) != len(second.Stages[i]) {
					return false
				}
				for j := range first.Stages[i] {
					if first.Stages[i][j] != second.Stages[i][j] {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(gen.Int()),
		gen.SliceOf(gen.Int()),
	))

	properties.TestingRun(t)
}
