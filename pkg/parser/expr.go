package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/Mindburn-Labs/plang/pkg/ast"
)

// Expression sub-parser: a small Pratt parser over condition text.
// The expression vocabulary mirrors what the runtime evaluator accepts:
// identifiers, literals, attribute access, built-in calls, boolean and
// comparison operators.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokDot
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type lexer struct {
	src    string
	pos    int
	tokens []token
}

func lexExpr(src string) ([]token, error) {
	l := &lexer{src: src}
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t':
			l.pos++
		case c == '(':
			l.emit(tokLParen, "(")
		case c == ')':
			l.emit(tokRParen, ")")
		case c == ',':
			l.emit(tokComma, ",")
		case c == '.':
			l.emit(tokDot, ".")
		case c == '"' || c == '\'':
			if err := l.lexString(c); err != nil {
				return nil, err
			}
		case unicode.IsDigit(rune(c)):
			l.lexNumber()
		case isIdentStart(rune(c)):
			l.lexIdent()
		default:
			if err := l.lexOperator(); err != nil {
				return nil, err
			}
		}
	}
	l.tokens = append(l.tokens, token{kind: tokEOF, pos: len(src)})
	return l.tokens, nil
}

func (l *lexer) emit(kind tokenKind, text string) {
	l.tokens = append(l.tokens, token{kind: kind, text: text, pos: l.pos})
	l.pos += len(text)
}

func (l *lexer) lexString(quote byte) error {
	start := l.pos
	l.pos++
	var sb strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		if c == '\\' && l.pos+1 < len(l.src) {
			sb.WriteByte(l.src[l.pos+1])
			l.pos += 2
			continue
		}
		if c == quote {
			l.pos++
			l.tokens = append(l.tokens, token{kind: tokString, text: sb.String(), pos: start})
			return nil
		}
		sb.WriteByte(c)
		l.pos++
	}
	return fmt.Errorf("unterminated string starting at offset %d", start)
}

func (l *lexer) lexNumber() {
	start := l.pos
	for l.pos < len(l.src) && (unicode.IsDigit(rune(l.src[l.pos])) || l.src[l.pos] == '.') {
		l.pos++
	}
	l.tokens = append(l.tokens, token{kind: tokNumber, text: l.src[start:l.pos], pos: start})
}

func (l *lexer) lexIdent() {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(rune(l.src[l.pos])) {
		l.pos++
	}
	l.tokens = append(l.tokens, token{kind: tokIdent, text: l.src[start:l.pos], pos: start})
}

var operators = []string{"&&", "||", "==", "!=", "<=", ">=", "<", ">", "+", "-", "*", "/", "%", "!"}

func (l *lexer) lexOperator() error {
	rest := l.src[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op) {
			l.emit(tokOp, op)
			return nil
		}
	}
	return fmt.Errorf("unexpected character %q at offset %d", l.src[l.pos], l.pos)
}

func isIdentStart(r rune) bool { return r == '_' || unicode.IsLetter(r) }
func isIdentPart(r rune) bool  { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }

var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, "<=": 4, ">": 4, ">=": 4,
	"+": 5, "-": 5,
	"*": 6, "/": 6, "%": 6,
}

type exprParser struct {
	tokens []token
	pos    int
}

// ParseExpr parses a condition expression into its AST form.
func ParseExpr(src string) (ast.Expr, error) {
	tokens, err := lexExpr(src)
	if err != nil {
		return nil, err
	}
	p := &exprParser{tokens: tokens}
	expr, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("trailing input at offset %d: %q", p.peek().pos, p.peek().text)
	}
	return expr, nil
}

func (p *exprParser) peek() token { return p.tokens[p.pos] }

func (p *exprParser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *exprParser) parseBinary(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		if t.kind != tokOp {
			return left, nil
		}
		prec, ok := binaryPrecedence[t.text]
		if !ok || prec <= minPrec {
			return left, nil
		}
		p.next()
		right, err := p.parseBinary(prec)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryOp{Op: t.text, Left: left, Right: right}
	}
}

func (p *exprParser) parseUnary() (ast.Expr, error) {
	t := p.peek()
	if t.kind == tokOp && (t.text == "!" || t.text == "-") {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryOp{Op: t.text, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *exprParser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokDot:
			p.next()
			attr := p.next()
			if attr.kind != tokIdent {
				return nil, fmt.Errorf("expected attribute name after '.' at offset %d", attr.pos)
			}
			expr = &ast.AttrAccess{Receiver: expr, Attr: attr.text}
		case tokLParen:
			ident, ok := expr.(*ast.Ident)
			if !ok {
				return nil, fmt.Errorf("only named built-ins may be called at offset %d", p.peek().pos)
			}
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			expr = &ast.FuncCall{Name: ident.Name, Args: args}
		default:
			return expr, nil
		}
	}
}

func (p *exprParser) parseArgs() ([]ast.Expr, error) {
	p.next() // consume '('
	var args []ast.Expr
	if p.peek().kind == tokRParen {
		p.next()
		return args, nil
	}
	for {
		arg, err := p.parseBinary(0)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		switch p.peek().kind {
		case tokComma:
			p.next()
		case tokRParen:
			p.next()
			return args, nil
		default:
			return nil, fmt.Errorf("expected ',' or ')' at offset %d", p.peek().pos)
		}
	}
}

func (p *exprParser) parsePrimary() (ast.Expr, error) {
	t := p.next()
	switch t.kind {
	case tokIdent:
		switch t.text {
		case "true":
			return &ast.Literal{Value: true}, nil
		case "false":
			return &ast.Literal{Value: false}, nil
		}
		return &ast.Ident{Name: t.text}, nil
	case tokNumber:
		if strings.Contains(t.text, ".") {
			f, err := strconv.ParseFloat(t.text, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid number %q at offset %d", t.text, t.pos)
			}
			return &ast.Literal{Value: f}, nil
		}
		n, err := strconv.ParseInt(t.text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q at offset %d", t.text, t.pos)
		}
		return &ast.Literal{Value: n}, nil
	case tokString:
		return &ast.Literal{Value: t.text}, nil
	case tokLParen:
		expr, err := p.parseBinary(0)
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, fmt.Errorf("missing ')' at offset %d", t.pos)
		}
		return expr, nil
	default:
		return nil, fmt.Errorf("unexpected token %q at offset %d", t.text, t.pos)
	}
}
