package ir

import (
	"fmt"

	"github.com/Mindburn-Labs/plang/pkg/ast"
	"github.com/Mindburn-Labs/plang/pkg/governance"
)

// Lower flattens a parsed program into an IR module: one function per
// policy/rule symbol, one basic block per condition→action clause.
//
// Lowering performs no control-flow analysis beyond linearizing the
// clauses; loops and recursion are not expressible in the grammar.
func Lower(prog *ast.Program) (*Module, error) {
	return LowerSymbols(ast.ExtractSymbols(prog))
}

// LowerSymbols lowers an already-extracted symbol table.
func LowerSymbols(table *ast.SymbolTable) (*Module, error) {
	mod := NewModule()
	if table == nil {
		return mod, nil
	}

	for _, name := range table.Names {
		sym := table.Symbols[name]
		fn := &Function{
			Name:       sym.Name,
			Governance: descriptorFor(sym),
		}
		for _, clause := range sym.Clauses {
			fn.Blocks = append(fn.Blocks, lowerClause(clause))
		}
		if err := mod.Add(fn); err != nil {
			return nil, fmt.Errorf("ir: lower %s: %w", sym.Name, err)
		}
	}
	return mod, nil
}

func descriptorFor(sym *ast.Symbol) Governance {
	// The symbol table already applies DefaultPriority to undeclared
	// priorities, so a declared priority 0 passes through untouched.
	g := Governance{Category: sym.Category, Priority: sym.Priority}
	if g.Category == "" {
		g.Category = governance.CategoryCustom
	}
	return g
}

func lowerClause(clause ast.ClauseSummary) Block {
	var block Block
	if clause.Condition != "" {
		block.Instructions = append(block.Instructions, Instruction{
			Op:        OpCondition,
			Condition: clause.Condition,
		})
	}
	action := clause.Action
	if action == "" {
		// A clause with no action contributes nothing to the decision;
		// keep it explicit so the trace shows the block ran.
		action = governance.ActionAllow
	}
	block.Instructions = append(block.Instructions, Instruction{
		Op:          OpAction,
		Action:      action,
		RouteTarget: clause.RouteTarget,
	})
	return block
}

// RouteTargets returns, per function, the ROUTE targets that resolve
// against the module. Unresolved targets are omitted, not errors: routing
// to an unknown name is an external-layer concern.
func (m *Module) RouteTargets(name string) []string {
	fn := m.Function(name)
	if fn == nil {
		return nil
	}
	var targets []string
	seen := make(map[string]bool)
	for _, block := range fn.Blocks {
		for _, ins := range block.Instructions {
			if ins.Op != OpAction || ins.Action != governance.ActionRoute {
				continue
			}
			t := ins.RouteTarget
			if t == "" || t == name || seen[t] {
				continue
			}
			if m.Function(t) != nil {
				targets = append(targets, t)
				seen[t] = true
			}
		}
	}
	return targets
}
