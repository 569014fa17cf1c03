package governance_test

import (
	"testing"

	"github.com/Mindburn-Labs/plang/pkg/governance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseOrder_TotalAndFixed(t *testing.T) {
	cats := governance.Categories()
	require.Len(t, cats, 5)

	// SAFETY < PRIVACY < OPERATIONAL < ROUTING < CUSTOM
	for i := 1; i < len(cats); i++ {
		assert.Less(t, int(governance.PhaseOf(cats[i-1])), int(governance.PhaseOf(cats[i])))
	}
}

func TestPhaseOf_UnknownDefaultsToCustom(t *testing.T) {
	assert.Equal(t, governance.PhaseCustom, governance.PhaseOf(governance.Category("WEIRD")))
}

func TestSeverity_TotalOrder(t *testing.T) {
	assert.Greater(t, governance.Severity(governance.ActionDeny), governance.Severity(governance.ActionEscalate))
	assert.Greater(t, governance.Severity(governance.ActionEscalate), governance.Severity(governance.ActionRoute))
	assert.Greater(t, governance.Severity(governance.ActionRoute), governance.Severity(governance.ActionAllow))
}

func TestMostRestrictive(t *testing.T) {
	assert.Equal(t, governance.ActionDeny, governance.MostRestrictive(governance.ActionAllow, governance.ActionDeny))
	assert.Equal(t, governance.ActionDeny, governance.MostRestrictive(governance.ActionDeny, governance.ActionAllow))
	assert.Equal(t, governance.ActionEscalate, governance.MostRestrictive(governance.ActionEscalate, governance.ActionRoute))
}

func TestParseCategory(t *testing.T) {
	c, err := governance.ParseCategory(" safety ")
	require.NoError(t, err)
	assert.Equal(t, governance.CategorySafety, c)

	_, err = governance.ParseCategory("banana")
	assert.Error(t, err)
}

func TestBreachSeverity(t *testing.T) {
	assert.Greater(t, governance.BreachSeverity(governance.BreachKill), governance.BreachSeverity(governance.BreachStop))
	assert.Greater(t, governance.BreachSeverity(governance.BreachStop), governance.BreachSeverity(governance.BreachPause))
}

func TestParseConflictStrategy(t *testing.T) {
	s, err := governance.ParseConflictStrategy("most_restrictive")
	require.NoError(t, err)
	assert.Equal(t, governance.StrategyMostRestrictive, s)

	_, err = governance.ParseConflictStrategy("")
	assert.Error(t, err)
}
