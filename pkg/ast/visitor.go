package ast

// Visitor implements one handler per node type. Specialized visitors embed
// BaseVisitor and override only the nodes they care about.
type Visitor interface {
	VisitProgram(n *Program)
	VisitPolicyDecl(n *PolicyDecl)
	VisitRuleDecl(n *RuleDecl)
	VisitImport(n *Import)
	VisitRuleRef(n *RuleRef)
	VisitPriority(n *Priority)
	VisitConditionBlock(n *ConditionBlock)
	VisitActionBlock(n *ActionBlock)
	VisitRouteTarget(n *RouteTarget)
	VisitBinaryOp(n *BinaryOp)
	VisitUnaryOp(n *UnaryOp)
	VisitIdent(n *Ident)
	VisitLiteral(n *Literal)
	VisitFuncCall(n *FuncCall)
	VisitAttrAccess(n *AttrAccess)
}

// BaseVisitor recursively visits all children with no side effect.
// Missing children (a ConditionBlock with no condition, an empty route
// target) are skipped, not errors: structural validation belongs to the
// parser, not to traversal.
//
// BaseVisitor.Self enables double dispatch through an embedding visitor:
// the embedder sets Self to itself so recursion reaches its overrides.
type BaseVisitor struct {
	Self Visitor
}

func (b *BaseVisitor) self() Visitor {
	if b.Self != nil {
		return b.Self
	}
	return b
}

func (b *BaseVisitor) VisitProgram(n *Program) {
	for _, s := range n.Statements {
		if s != nil {
			s.Accept(b.self())
		}
	}
}

func (b *BaseVisitor) VisitPolicyDecl(n *PolicyDecl) {
	if n.Priority != nil {
		n.Priority.Accept(b.self())
	}
	for _, s := range n.Body {
		if s != nil {
			s.Accept(b.self())
		}
	}
}

func (b *BaseVisitor) VisitRuleDecl(n *RuleDecl) {
	if n.Priority != nil {
		n.Priority.Accept(b.self())
	}
	for _, s := range n.Body {
		if s != nil {
			s.Accept(b.self())
		}
	}
}

func (b *BaseVisitor) VisitImport(n *Import)     {}
func (b *BaseVisitor) VisitRuleRef(n *RuleRef)   {}
func (b *BaseVisitor) VisitPriority(n *Priority) {}

func (b *BaseVisitor) VisitConditionBlock(n *ConditionBlock) {
	if n.Condition != nil {
		n.Condition.Accept(b.self())
	}
	if n.Action != nil {
		n.Action.Accept(b.self())
	}
}

func (b *BaseVisitor) VisitActionBlock(n *ActionBlock) {
	if n.Target != nil {
		n.Target.Accept(b.self())
	}
}

func (b *BaseVisitor) VisitRouteTarget(n *RouteTarget) {}

func (b *BaseVisitor) VisitBinaryOp(n *BinaryOp) {
	if n.Left != nil {
		n.Left.Accept(b.self())
	}
	if n.Right != nil {
		n.Right.Accept(b.self())
	}
}

func (b *BaseVisitor) VisitUnaryOp(n *UnaryOp) {
	if n.Operand != nil {
		n.Operand.Accept(b.self())
	}
}

func (b *BaseVisitor) VisitIdent(n *Ident)     {}
func (b *BaseVisitor) VisitLiteral(n *Literal) {}

func (b *BaseVisitor) VisitFuncCall(n *FuncCall) {
	for _, a := range n.Args {
		if a != nil {
			a.Accept(b.self())
		}
	}
}

func (b *BaseVisitor) VisitAttrAccess(n *AttrAccess) {
	if n.Receiver != nil {
		n.Receiver.Accept(b.self())
	}
}
