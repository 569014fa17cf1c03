package ast

import "github.com/Mindburn-Labs/plang/pkg/governance"

// SymbolKind distinguishes policies from rules in the symbol table.
type SymbolKind string

const (
	SymbolPolicy SymbolKind = "policy"
	SymbolRule   SymbolKind = "rule"
)

// ClauseSummary is one condition→action pair of a declaration body.
type ClauseSummary struct {
	Condition   string // rendered condition source, "" when missing
	Action      governance.ActionKind
	RouteTarget string // "" unless Action is ROUTE
}

// Symbol is the extracted metadata of one policy or rule declaration.
type Symbol struct {
	Name     string
	Kind     SymbolKind
	Category governance.Category
	Priority int
	Parent   string   // owning policy for rules, "" for policies
	Children []string // declared child rule names, declaration order
	Clauses  []ClauseSummary
}

// SymbolTable maps declaration name to its extracted symbol, preserving
// declaration order in Names.
type SymbolTable struct {
	Names   []string
	Symbols map[string]*Symbol
}

// RuleExtractor builds a SymbolTable for IR lowering.
type RuleExtractor struct {
	BaseVisitor
	table   *SymbolTable
	current *Symbol
}

// ExtractSymbols walks the program and returns its symbol table.
func ExtractSymbols(prog *Program) *SymbolTable {
	e := &RuleExtractor{table: &SymbolTable{Symbols: make(map[string]*Symbol)}}
	e.Self = e
	if prog != nil {
		prog.Accept(e)
	}
	return e.table
}

func (e *RuleExtractor) add(sym *Symbol) {
	if _, exists := e.table.Symbols[sym.Name]; !exists {
		e.table.Names = append(e.table.Names, sym.Name)
	}
	e.table.Symbols[sym.Name] = sym
}

func (e *RuleExtractor) VisitPolicyDecl(n *PolicyDecl) {
	sym := &Symbol{
		Name:     n.Name,
		Kind:     SymbolPolicy,
		Category: n.Category,
		Priority: priorityValue(n.Priority),
	}
	e.add(sym)

	prev := e.current
	e.current = sym
	e.BaseVisitor.VisitPolicyDecl(n)
	e.current = prev
}

func (e *RuleExtractor) VisitRuleDecl(n *RuleDecl) {
	sym := &Symbol{
		Name:     n.Name,
		Kind:     SymbolRule,
		Category: n.Category,
		Priority: priorityValue(n.Priority),
		Parent:   n.Parent,
	}
	e.add(sym)

	if parent, ok := e.table.Symbols[n.Parent]; ok {
		parent.Children = append(parent.Children, n.Name)
	}

	prev := e.current
	e.current = sym
	e.BaseVisitor.VisitRuleDecl(n)
	e.current = prev
}

func (e *RuleExtractor) VisitRuleRef(n *RuleRef) {
	if e.current != nil && e.current.Kind == SymbolPolicy {
		e.current.Children = append(e.current.Children, n.Name)
	}
}

func (e *RuleExtractor) VisitConditionBlock(n *ConditionBlock) {
	if e.current == nil {
		return
	}
	clause := ClauseSummary{}
	if n.Condition != nil {
		clause.Condition = ExprString(n.Condition)
	}
	if n.Action != nil {
		clause.Action = n.Action.Kind
		if n.Action.Target != nil {
			clause.RouteTarget = n.Action.Target.Name
		}
	}
	e.current.Clauses = append(e.current.Clauses, clause)
}
