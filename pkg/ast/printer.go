package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Mindburn-Labs/plang/pkg/governance"
)

// Printer renders an AST as indented human-readable text.
type Printer struct {
	BaseVisitor
	sb     strings.Builder
	indent int
}

// Print renders any node and returns the text.
func Print(n Node) string {
	p := &Printer{}
	p.Self = p
	if n != nil {
		n.Accept(p)
	}
	return p.sb.String()
}

func (p *Printer) line(format string, args ...any) {
	p.sb.WriteString(strings.Repeat("  ", p.indent))
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *Printer) VisitProgram(n *Program) {
	p.line("program")
	p.indent++
	p.BaseVisitor.VisitProgram(n)
	p.indent--
}

func (p *Printer) VisitPolicyDecl(n *PolicyDecl) {
	p.line("policy %s category=%s priority=%d", n.Name, n.Category, priorityValue(n.Priority))
	p.indent++
	p.BaseVisitor.VisitPolicyDecl(n)
	p.indent--
}

func (p *Printer) VisitRuleDecl(n *RuleDecl) {
	p.line("rule %s of %s category=%s priority=%d", n.Name, n.Parent, n.Category, priorityValue(n.Priority))
	p.indent++
	p.BaseVisitor.VisitRuleDecl(n)
	p.indent--
}

func (p *Printer) VisitImport(n *Import) {
	p.line("import %s", n.Bundle)
}

func (p *Printer) VisitRuleRef(n *RuleRef) {
	p.line("use rule %s", n.Name)
}

func (p *Printer) VisitConditionBlock(n *ConditionBlock) {
	action := "<none>"
	if n.Action != nil {
		action = string(n.Action.Kind)
		if n.Action.Target != nil {
			action += " -> " + n.Action.Target.Name
		}
	}
	cond := "<none>"
	if n.Condition != nil {
		cond = ExprString(n.Condition)
	}
	p.line("when %s then %s", cond, action)
}

// ExprString renders an expression as source text. The rendering is valid
// PLang condition syntax and round-trips through the expression parser.
func ExprString(e Expr) string {
	switch t := e.(type) {
	case *BinaryOp:
		return fmt.Sprintf("(%s %s %s)", ExprString(t.Left), t.Op, ExprString(t.Right))
	case *UnaryOp:
		return t.Op + ExprString(t.Operand)
	case *Ident:
		return t.Name
	case *Literal:
		return literalString(t.Value)
	case *FuncCall:
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = ExprString(a)
		}
		return t.Name + "(" + strings.Join(args, ", ") + ")"
	case *AttrAccess:
		return ExprString(t.Receiver) + "." + t.Attr
	default:
		return "<expr>"
	}
}

func literalString(v any) string {
	switch t := v.(type) {
	case string:
		return strconv.Quote(t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func priorityValue(p *Priority) int {
	if p == nil {
		return governance.DefaultPriority
	}
	return p.Value
}
