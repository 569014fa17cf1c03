package ast

import (
	"sort"

	"github.com/Mindburn-Labs/plang/pkg/governance"
)

// CategoryCollector gathers the set of governance categories declared in a
// program.
type CategoryCollector struct {
	BaseVisitor
	seen map[governance.Category]int
}

// CollectCategories returns the categories used by the program, in phase
// order, with a count of declarations per category.
func CollectCategories(prog *Program) map[governance.Category]int {
	c := &CategoryCollector{seen: make(map[governance.Category]int)}
	c.Self = c
	if prog != nil {
		prog.Accept(c)
	}
	return c.seen
}

func (c *CategoryCollector) VisitPolicyDecl(n *PolicyDecl) {
	c.seen[n.Category]++
	c.BaseVisitor.VisitPolicyDecl(n)
}

func (c *CategoryCollector) VisitRuleDecl(n *RuleDecl) {
	c.seen[n.Category]++
	c.BaseVisitor.VisitRuleDecl(n)
}

// SortedCategories returns the collected categories ordered by phase.
func SortedCategories(seen map[governance.Category]int) []governance.Category {
	out := make([]governance.Category, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return governance.PhaseOf(out[i]) < governance.PhaseOf(out[j])
	})
	return out
}
