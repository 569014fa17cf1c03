// Package parser turns PLang source text into the AST defined in pkg/ast.
//
// The grammar is line-oriented:
//
//	# comment
//	import <bundle>
//	policy <name> [category <CATEGORY>] [priority <n>]:
//	    when <expr> then <ACTION> [-> <target>]
//	    use rule <name>
//	rule <name> of <policy> [category <CATEGORY>] [priority <n>]:
//	    when <expr> then <ACTION>
//
// Parse failures are reported as structured diagnostics carrying the line
// number and an expected/found pair. All diagnostics for a source are
// collected before failing, so authors see every problem in one pass.
package parser

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Mindburn-Labs/plang/pkg/ast"
	"github.com/Mindburn-Labs/plang/pkg/governance"
)

// Diagnostic is one structured parse failure.
type Diagnostic struct {
	Line     int    `json:"line"`
	Expected string `json:"expected"`
	Found    string `json:"found"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: expected %s, found %q", d.Line, d.Expected, d.Found)
}

// ParseError aggregates every diagnostic found in one source.
type ParseError struct {
	Diagnostics []Diagnostic
}

func (e *ParseError) Error() string {
	if len(e.Diagnostics) == 1 {
		return "parser: " + e.Diagnostics[0].String()
	}
	return fmt.Sprintf("parser: %d errors, first: %s", len(e.Diagnostics), e.Diagnostics[0].String())
}

type sourceParser struct {
	prog  *ast.Program
	diags []Diagnostic
	// declaration currently accepting body statements
	policy *ast.PolicyDecl
	rule   *ast.RuleDecl
}

// ParseSource parses PLang source text into a Program.
// On failure the returned error is a *ParseError; the partial Program is
// still returned so tooling can inspect what did parse.
func ParseSource(input string) (*ast.Program, error) {
	p := &sourceParser{prog: &ast.Program{}}

	scanner := bufio.NewScanner(strings.NewReader(input))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p.parseLine(lineNo, line)
	}
	if err := scanner.Err(); err != nil {
		return p.prog, fmt.Errorf("parser: read source: %w", err)
	}
	if len(p.diags) > 0 {
		return p.prog, &ParseError{Diagnostics: p.diags}
	}
	return p.prog, nil
}

func (p *sourceParser) errorf(line int, expected, found string) {
	p.diags = append(p.diags, Diagnostic{Line: line, Expected: expected, Found: found})
}

func (p *sourceParser) parseLine(lineNo int, line string) {
	switch {
	case strings.HasPrefix(line, "import "):
		p.policy, p.rule = nil, nil
		name := ident(strings.TrimPrefix(line, "import "))
		if name == "" {
			p.errorf(lineNo, "bundle name", line)
			return
		}
		p.prog.Statements = append(p.prog.Statements, &ast.Import{Bundle: name, Line: lineNo})

	case strings.HasPrefix(line, "policy "):
		p.parsePolicyHeader(lineNo, line)

	case strings.HasPrefix(line, "rule "):
		p.parseRuleHeader(lineNo, line)

	case strings.HasPrefix(line, "when "):
		p.parseWhen(lineNo, line)

	case strings.HasPrefix(line, "use rule "):
		name := ident(strings.TrimPrefix(line, "use rule "))
		if name == "" {
			p.errorf(lineNo, "rule name", line)
			return
		}
		p.appendBody(lineNo, &ast.RuleRef{Name: name, Line: lineNo})

	case strings.HasPrefix(line, "priority "):
		raw := strings.TrimSpace(strings.TrimPrefix(line, "priority "))
		v, err := strconv.Atoi(raw)
		if err != nil {
			p.errorf(lineNo, "integer priority", raw)
			return
		}
		p.setPriority(lineNo, v)

	default:
		p.errorf(lineNo, "declaration or body statement", line)
	}
}

// parsePolicyHeader handles: policy <name> [category <C>] [priority <n>]:
func (p *sourceParser) parsePolicyHeader(lineNo int, line string) {
	p.policy, p.rule = nil, nil

	if !strings.HasSuffix(line, ":") {
		p.errorf(lineNo, "':' terminating policy header", line)
		return
	}
	fields := strings.Fields(strings.TrimSuffix(strings.TrimPrefix(line, "policy "), ":"))
	if len(fields) == 0 {
		p.errorf(lineNo, "policy name", line)
		return
	}

	decl := &ast.PolicyDecl{
		Name:     ident(fields[0]),
		Category: governance.CategoryCustom,
		Line:     lineNo,
	}
	if decl.Name == "" {
		p.errorf(lineNo, "policy name", fields[0])
		return
	}
	if !p.parseHeaderOptions(lineNo, fields[1:], &decl.Category, &decl.Priority) {
		return
	}

	p.prog.Statements = append(p.prog.Statements, decl)
	p.policy = decl
}

// parseRuleHeader handles: rule <name> of <policy> [category <C>] [priority <n>]:
func (p *sourceParser) parseRuleHeader(lineNo int, line string) {
	p.policy, p.rule = nil, nil

	if !strings.HasSuffix(line, ":") {
		p.errorf(lineNo, "':' terminating rule header", line)
		return
	}
	fields := strings.Fields(strings.TrimSuffix(strings.TrimPrefix(line, "rule "), ":"))
	if len(fields) < 3 || fields[1] != "of" {
		p.errorf(lineNo, "'rule <name> of <policy>'", line)
		return
	}

	decl := &ast.RuleDecl{
		Name:     ident(fields[0]),
		Parent:   ident(fields[2]),
		Category: governance.CategoryCustom,
		Line:     lineNo,
	}
	if decl.Name == "" || decl.Parent == "" {
		p.errorf(lineNo, "rule and parent policy names", line)
		return
	}
	if !p.parseHeaderOptions(lineNo, fields[3:], &decl.Category, &decl.Priority) {
		return
	}

	p.prog.Statements = append(p.prog.Statements, decl)
	p.rule = decl
}

func (p *sourceParser) parseHeaderOptions(lineNo int, fields []string, cat *governance.Category, prio **ast.Priority) bool {
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "category":
			if i+1 >= len(fields) {
				p.errorf(lineNo, "category value", "end of header")
				return false
			}
			c, err := governance.ParseCategory(fields[i+1])
			if err != nil {
				p.errorf(lineNo, "governance category", fields[i+1])
				return false
			}
			*cat = c
			i++
		case "priority":
			if i+1 >= len(fields) {
				p.errorf(lineNo, "priority value", "end of header")
				return false
			}
			v, err := strconv.Atoi(fields[i+1])
			if err != nil {
				p.errorf(lineNo, "integer priority", fields[i+1])
				return false
			}
			*prio = &ast.Priority{Value: v, Line: lineNo}
			i++
		default:
			p.errorf(lineNo, "'category' or 'priority'", fields[i])
			return false
		}
	}
	return true
}

// parseWhen handles: when <expr> then <ACTION> [-> <target>]
func (p *sourceParser) parseWhen(lineNo int, line string) {
	body := strings.TrimPrefix(line, "when ")
	idx := strings.LastIndex(body, " then ")
	if idx < 0 {
		p.errorf(lineNo, "'then' clause", line)
		return
	}
	condSrc := strings.TrimSpace(body[:idx])
	actionSrc := strings.TrimSpace(body[idx+len(" then "):])

	cond, err := ParseExpr(condSrc)
	if err != nil {
		p.errorf(lineNo, "condition expression", condSrc)
		return
	}

	var target *ast.RouteTarget
	if arrow := strings.Index(actionSrc, "->"); arrow >= 0 {
		name := ident(actionSrc[arrow+2:])
		if name == "" {
			p.errorf(lineNo, "route target name", actionSrc)
			return
		}
		target = &ast.RouteTarget{Name: name, Line: lineNo}
		actionSrc = strings.TrimSpace(actionSrc[:arrow])
	}

	kind, err := governance.ParseActionKind(actionSrc)
	if err != nil {
		p.errorf(lineNo, "action kind (ALLOW, DENY, ESCALATE, ROUTE)", actionSrc)
		return
	}
	if target != nil && kind != governance.ActionRoute {
		p.errorf(lineNo, "route target only on ROUTE", actionSrc)
		return
	}

	p.appendBody(lineNo, &ast.ConditionBlock{
		Condition: cond,
		Action:    &ast.ActionBlock{Kind: kind, Target: target, Line: lineNo},
		Line:      lineNo,
	})
}

func (p *sourceParser) appendBody(lineNo int, stmt ast.Stmt) {
	switch {
	case p.rule != nil:
		p.rule.Body = append(p.rule.Body, stmt)
	case p.policy != nil:
		p.policy.Body = append(p.policy.Body, stmt)
	default:
		p.errorf(lineNo, "enclosing policy or rule declaration", "dangling statement")
	}
}

func (p *sourceParser) setPriority(lineNo, v int) {
	prio := &ast.Priority{Value: v, Line: lineNo}
	switch {
	case p.rule != nil:
		p.rule.Priority = prio
	case p.policy != nil:
		p.policy.Priority = prio
	default:
		p.errorf(lineNo, "enclosing policy or rule declaration", "dangling priority")
	}
}

func ident(s string) string {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ":"))
	if s == "" || strings.ContainsAny(s, " \t") {
		return ""
	}
	// NFC-normalize so downstream content hashes are encoding-stable.
	return norm.NFC.String(s)
}
