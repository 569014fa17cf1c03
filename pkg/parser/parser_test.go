package parser_test

import (
	"errors"
	"testing"

	"github.com/Mindburn-Labs/plang/pkg/ast"
	"github.com/Mindburn-Labs/plang/pkg/governance"
	"github.com/Mindburn-Labs/plang/pkg/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSource = `
# tenant safety bundle
import base

policy deny_large category SAFETY priority 90:
    when request.size > 1000 then DENY

policy scrub_pii category PRIVACY:
    when contains_pii && env == "prod" then ESCALATE
    use rule scrub_names

rule scrub_names of scrub_pii category PRIVACY priority 10:
    when lookup("region") == "eu" then ROUTE -> eu_handler
`

func TestParseSource_FullBundle(t *testing.T) {
	prog, err := parser.ParseSource(sampleSource)
	require.NoError(t, err)
	require.Len(t, prog.Statements, 4)

	imp, ok := prog.Statements[0].(*ast.Import)
	require.True(t, ok)
	assert.Equal(t, "base", imp.Bundle)

	pol, ok := prog.Statements[1].(*ast.PolicyDecl)
	require.True(t, ok)
	assert.Equal(t, "deny_large", pol.Name)
	assert.Equal(t, governance.CategorySafety, pol.Category)
	require.NotNil(t, pol.Priority)
	assert.Equal(t, 90, pol.Priority.Value)
	require.Len(t, pol.Body, 1)

	cb, ok := pol.Body[0].(*ast.ConditionBlock)
	require.True(t, ok)
	require.NotNil(t, cb.Action)
	assert.Equal(t, governance.ActionDeny, cb.Action.Kind)
	assert.Equal(t, "(request.size > 1000)", ast.ExprString(cb.Condition))

	rule, ok := prog.Statements[3].(*ast.RuleDecl)
	require.True(t, ok)
	assert.Equal(t, "scrub_pii", rule.Parent)
	rcb := rule.Body[0].(*ast.ConditionBlock)
	require.NotNil(t, rcb.Action.Target)
	assert.Equal(t, "eu_handler", rcb.Action.Target.Name)
}

func TestParseSource_DefaultsCategoryAndPriority(t *testing.T) {
	prog, err := parser.ParseSource("policy plain:\n    when true then ALLOW\n")
	require.NoError(t, err)

	pol := prog.Statements[0].(*ast.PolicyDecl)
	assert.Equal(t, governance.CategoryCustom, pol.Category)
	assert.Nil(t, pol.Priority)
}

func TestParseSource_CollectsAllDiagnostics(t *testing.T) {
	src := `
policy bad category BANANA:
when orphaned then DENY
policy worse
`
	_, err := parser.ParseSource(src)
	require.Error(t, err)

	var perr *parser.ParseError
	require.True(t, errors.As(err, &perr))
	require.Len(t, perr.Diagnostics, 3)
	assert.Equal(t, 2, perr.Diagnostics[0].Line)
	assert.Equal(t, "governance category", perr.Diagnostics[0].Expected)
	assert.Contains(t, perr.Diagnostics[2].Expected, "':'")
}

func TestParseSource_RejectsTargetOnNonRoute(t *testing.T) {
	_, err := parser.ParseSource("policy p:\n    when true then DENY -> other\n")
	require.Error(t, err)
	var perr *parser.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "route target only on ROUTE", perr.Diagnostics[0].Expected)
}

func TestParseExpr_PrecedenceAndAssociativity(t *testing.T) {
	expr, err := parser.ParseExpr(`a || b && c == 1`)
	require.NoError(t, err)
	assert.Equal(t, "(a || (b && (c == 1)))", ast.ExprString(expr))

	expr, err = parser.ParseExpr(`10 - 4 - 3`)
	require.NoError(t, err)
	assert.Equal(t, "((10 - 4) - 3)", ast.ExprString(expr))
}

func TestParseExpr_CallsAndAttrs(t *testing.T) {
	expr, err := parser.ParseExpr(`lookup("region").code != "eu"`)
	require.NoError(t, err)
	assert.Equal(t, `(lookup("region").code != "eu")`, ast.ExprString(expr))
}

func TestParseExpr_Errors(t *testing.T) {
	_, err := parser.ParseExpr(`a &&`)
	assert.Error(t, err)

	_, err = parser.ParseExpr(`"unterminated`)
	assert.Error(t, err)

	_, err = parser.ParseExpr(`f(1, 2`)
	assert.Error(t, err)
}
