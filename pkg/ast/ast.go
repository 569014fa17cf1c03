// Package ast defines the node model for the PLang policy language and the
// visitor machinery used to traverse it.
//
// The node set is closed: every node type is declared here and traversal is
// double-dispatch (node.Accept calls exactly one Visit method per node).
// Nodes are immutable after parse; visitors must not mutate children.
package ast

import "github.com/Mindburn-Labs/plang/pkg/governance"

// Node is implemented by every AST node.
type Node interface {
	Accept(v Visitor)
}

// Expr is implemented by expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by top-level and body statements.
type Stmt interface {
	Node
	stmtNode()
}

// Program is the root node: an ordered list of top-level statements.
type Program struct {
	Statements []Stmt
}

// PolicyDecl declares a named policy with a governance category and a body.
type PolicyDecl struct {
	Name     string
	Category governance.Category
	Priority *Priority // nil when undeclared
	Body     []Stmt
	Line     int
}

// RuleDecl declares a named rule owned by a parent policy.
type RuleDecl struct {
	Name     string
	Category governance.Category
	Parent   string // owning policy name
	Priority *Priority
	Body     []Stmt
	Line     int
}

// Import references another bundle by name.
type Import struct {
	Bundle string
	Line   int
}

// RuleRef references a rule by name from within a policy body.
type RuleRef struct {
	Name string
	Line int
}

// Priority overrides the default execution priority within a phase.
type Priority struct {
	Value int
	Line  int
}

// ConditionBlock pairs a condition expression with the action taken when
// the condition holds.
type ConditionBlock struct {
	Condition Expr
	Action    *ActionBlock
	Line      int
}

// ActionBlock emits a decision, optionally routing to a named target.
type ActionBlock struct {
	Kind   governance.ActionKind
	Target *RouteTarget // only for ROUTE
	Line   int
}

// RouteTarget names the policy a ROUTE action hands off to.
type RouteTarget struct {
	Name string
	Line int
}

// BinaryOp is an infix expression such as a && b or x >= 10.
type BinaryOp struct {
	Op    string
	Left  Expr
	Right Expr
}

// UnaryOp is a prefix expression such as !flag or -n.
type UnaryOp struct {
	Op      string
	Operand Expr
}

// Ident is a bare identifier.
type Ident struct {
	Name string
}

// Literal is a constant: string, int64, float64 or bool.
type Literal struct {
	Value any
}

// FuncCall invokes a built-in function.
type FuncCall struct {
	Name string
	Args []Expr
}

// AttrAccess reads an attribute off a receiver expression.
type AttrAccess struct {
	Receiver Expr
	Attr     string
}

func (*Program) stmtNode()        {}
func (*PolicyDecl) stmtNode()     {}
func (*RuleDecl) stmtNode()       {}
func (*Import) stmtNode()         {}
func (*RuleRef) stmtNode()        {}
func (*Priority) stmtNode()       {}
func (*ConditionBlock) stmtNode() {}
func (*ActionBlock) stmtNode()    {}
func (*RouteTarget) stmtNode()    {}

func (*BinaryOp) exprNode()   {}
func (*UnaryOp) exprNode()    {}
func (*Ident) exprNode()      {}
func (*Literal) exprNode()    {}
func (*FuncCall) exprNode()   {}
func (*AttrAccess) exprNode() {}

func (n *Program) Accept(v Visitor)        { v.VisitProgram(n) }
func (n *PolicyDecl) Accept(v Visitor)     { v.VisitPolicyDecl(n) }
func (n *RuleDecl) Accept(v Visitor)       { v.VisitRuleDecl(n) }
func (n *Import) Accept(v Visitor)         { v.VisitImport(n) }
func (n *RuleRef) Accept(v Visitor)        { v.VisitRuleRef(n) }
func (n *Priority) Accept(v Visitor)       { v.VisitPriority(n) }
func (n *ConditionBlock) Accept(v Visitor) { v.VisitConditionBlock(n) }
func (n *ActionBlock) Accept(v Visitor)    { v.VisitActionBlock(n) }
func (n *RouteTarget) Accept(v Visitor)    { v.VisitRouteTarget(n) }
func (n *BinaryOp) Accept(v Visitor)       { v.VisitBinaryOp(n) }
func (n *UnaryOp) Accept(v Visitor)        { v.VisitUnaryOp(n) }
func (n *Ident) Accept(v Visitor)          { v.VisitIdent(n) }
func (n *Literal) Accept(v Visitor)        { v.VisitLiteral(n) }
func (n *FuncCall) Accept(v Visitor)       { v.VisitFuncCall(n) }
func (n *AttrAccess) Accept(v Visitor)     { v.VisitAttrAccess(n) }
