package executor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Mindburn-Labs/plang/pkg/ast"
)

// Condition expressions evaluate on CEL. Bare identifiers read from the
// run's variable bag, so `amount > 100` is rewritten to
// `vars["amount"] > 100` before compilation. Operators, literals,
// attribute access and built-in calls map onto CEL one to one.

const (
	varsName       = "vars"
	lookupFunc     = "lookup"
	lookupOverload = "lookup_string"
)

func celSource(e ast.Expr) (string, error) {
	var sb strings.Builder
	if err := writeCel(&sb, e); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeCel(sb *strings.Builder, e ast.Expr) error {
	switch n := e.(type) {
	case *ast.Ident:
		fmt.Fprintf(sb, "%s[%q]", varsName, n.Name)
	case *ast.Literal:
		switch v := n.Value.(type) {
		case string:
			sb.WriteString(strconv.Quote(v))
		case bool:
			sb.WriteString(strconv.FormatBool(v))
		case int64:
			sb.WriteString(strconv.FormatInt(v, 10))
		case float64:
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		default:
			return fmt.Errorf("unsupported literal type %T", n.Value)
		}
	case *ast.BinaryOp:
		sb.WriteByte('(')
		if err := writeCel(sb, n.Left); err != nil {
			return err
		}
		sb.WriteString(" " + n.Op + " ")
		if err := writeCel(sb, n.Right); err != nil {
			return err
		}
		sb.WriteByte(')')
	case *ast.UnaryOp:
		sb.WriteString(n.Op)
		sb.WriteByte('(')
		if err := writeCel(sb, n.Operand); err != nil {
			return err
		}
		sb.WriteByte(')')
	case *ast.AttrAccess:
		if err := writeCel(sb, n.Receiver); err != nil {
			return err
		}
		sb.WriteString("." + n.Attr)
	case *ast.FuncCall:
		if n.Name != lookupFunc {
			return fmt.Errorf("unknown built-in %q", n.Name)
		}
		sb.WriteString(n.Name)
		sb.WriteByte('(')
		for i, arg := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			if err := writeCel(sb, arg); err != nil {
				return err
			}
		}
		sb.WriteByte(')')
	default:
		return fmt.Errorf("unsupported expression node %T", e)
	}
	return nil
}
