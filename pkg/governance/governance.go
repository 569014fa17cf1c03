// Package governance defines the fixed policy vocabulary shared by the
// whole pipeline: governance categories and their execution phases, action
// kinds with their severity ranking, breach actions, and conflict strategies.
//
// All tables in this package are constructed once at init and never mutated.
package governance

import (
	"fmt"
	"strings"
)

// Category classifies a policy or rule into a governance tier.
type Category string

const (
	CategorySafety      Category = "SAFETY"
	CategoryPrivacy     Category = "PRIVACY"
	CategoryOperational Category = "OPERATIONAL"
	CategoryRouting     Category = "ROUTING"
	CategoryCustom      Category = "CUSTOM"
)

// DefaultPriority is assigned when a declaration carries no priority.
// Priority is a tie-breaker within a phase, never a cross-phase override.
const DefaultPriority = 50

// Phase is the totally-ordered execution tier derived from a Category.
// All nodes of an earlier phase complete before any node of a later phase.
type Phase int

const (
	PhaseSafety Phase = iota
	PhasePrivacy
	PhaseOperational
	PhaseRouting
	PhaseCustom
)

var phaseOrder = map[Category]Phase{
	CategorySafety:      PhaseSafety,
	CategoryPrivacy:     PhasePrivacy,
	CategoryOperational: PhaseOperational,
	CategoryRouting:     PhaseRouting,
	CategoryCustom:      PhaseCustom,
}

// PhaseOf maps a category onto its execution phase.
// Unknown categories are treated as CUSTOM, the last phase.
func PhaseOf(c Category) Phase {
	if p, ok := phaseOrder[c]; ok {
		return p
	}
	return PhaseCustom
}

// ParseCategory parses a category token case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := phaseOrder[c]; !ok {
		return "", fmt.Errorf("governance: unknown category %q", s)
	}
	return c, nil
}

// Categories returns all categories in phase order.
func Categories() []Category {
	return []Category{CategorySafety, CategoryPrivacy, CategoryOperational, CategoryRouting, CategoryCustom}
}

// ActionKind is the decision a policy action emits.
type ActionKind string

const (
	ActionAllow    ActionKind = "ALLOW"
	ActionRoute    ActionKind = "ROUTE"
	ActionEscalate ActionKind = "ESCALATE"
	ActionDeny     ActionKind = "DENY"
)

// Severity ranks actions: DENY(100) > ESCALATE(80) > ROUTE(50) > ALLOW(10).
// The net action of a stage is the member action with the highest severity.
var actionSeverity = map[ActionKind]int{
	ActionAllow:    10,
	ActionRoute:    50,
	ActionEscalate: 80,
	ActionDeny:     100,
}

// Severity returns the severity rank of an action kind. Unknown kinds rank 0,
// below ALLOW, so a defective action can never override a real one.
func Severity(a ActionKind) int {
	return actionSeverity[a]
}

// MostRestrictive returns the action with the higher severity rank.
func MostRestrictive(a, b ActionKind) ActionKind {
	if Severity(b) > Severity(a) {
		return b
	}
	return a
}

// ParseActionKind parses an action token case-insensitively.
func ParseActionKind(s string) (ActionKind, error) {
	a := ActionKind(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := actionSeverity[a]; !ok {
		return "", fmt.Errorf("governance: unknown action kind %q", s)
	}
	return a, nil
}

// BreachAction is what the arbitrator instructs when a numeric limit is hit.
type BreachAction string

const (
	BreachPause BreachAction = "pause"
	BreachStop  BreachAction = "stop"
	BreachKill  BreachAction = "kill"
)

// DefaultBreachAction is the safe terminal fallback when no policy
// contributes a breach action: stop, non-destructive.
const DefaultBreachAction = BreachStop

var breachSeverity = map[BreachAction]int{
	BreachPause: 1,
	BreachStop:  2,
	BreachKill:  3,
}

// BreachSeverity ranks breach actions: kill > stop > pause.
func BreachSeverity(a BreachAction) int {
	return breachSeverity[a]
}

// ParseBreachAction parses a breach action token case-insensitively.
func ParseBreachAction(s string) (BreachAction, error) {
	a := BreachAction(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := breachSeverity[a]; !ok {
		return "", fmt.Errorf("governance: unknown breach action %q", s)
	}
	return a, nil
}

// ConflictStrategy governs how the arbitrator resolves competing limits.
type ConflictStrategy string

const (
	StrategyMostRestrictive  ConflictStrategy = "MOST_RESTRICTIVE"
	StrategyExplicitPriority ConflictStrategy = "EXPLICIT_PRIORITY"
	StrategyFailClosed       ConflictStrategy = "FAIL_CLOSED"
)

// ParseConflictStrategy parses a strategy token case-insensitively.
func ParseConflictStrategy(s string) (ConflictStrategy, error) {
	st := ConflictStrategy(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StrategyMostRestrictive, StrategyExplicitPriority, StrategyFailClosed:
		return st, nil
	}
	return "", fmt.Errorf("governance: unknown conflict strategy %q", s)
}
