package executor

import (
	"time"

	"github.com/Mindburn-Labs/plang/pkg/governance"
)

// Terminal classifies how a run ended.
type Terminal string

const (
	// TerminalCompleted means every stage ran to the end of the plan.
	TerminalCompleted Terminal = "COMPLETED"
	// TerminalDenied means a stage produced a net DENY and the run
	// stopped fail-closed before later stages.
	TerminalDenied Terminal = "DENIED"
	// TerminalBudgetExceeded means the cumulative step count crossed the
	// run's budget before the plan finished.
	TerminalBudgetExceeded Terminal = "BUDGET_EXCEEDED"
)

// Intent is one fired action clause, recorded in evaluation order.
type Intent struct {
	Policy      string                `json:"policy"`
	Action      governance.ActionKind `json:"action"`
	RouteTarget string                `json:"route_target,omitempty"`
	Condition   string                `json:"condition,omitempty"`
}

// MemberResult is the outcome of one policy inside a stage.
type MemberResult struct {
	Policy   string                `json:"policy"`
	Category governance.Category   `json:"category"`
	Passed   bool                  `json:"passed"`
	Action   governance.ActionKind `json:"action"`
	Intents  []Intent              `json:"intents,omitempty"`
	Steps    int                   `json:"steps"`
	Error    string                `json:"error,omitempty"`
}

// StageResult is the joined outcome of one parallel stage. NetAction is
// the most restrictive action emitted by any successful member; Steps is
// the maximum member step count since members run concurrently.
type StageResult struct {
	Index     int                   `json:"index"`
	Members   []MemberResult        `json:"members"`
	NetAction governance.ActionKind `json:"net_action"`
	Steps     int                   `json:"steps"`
}

// Trace is the audited record of a full DAG run.
type Trace struct {
	ExecutionID string                `json:"execution_id"`
	Stages      []StageResult         `json:"stages"`
	StageCount  int                   `json:"stage_count"` // stages executed, not planned
	StepCount   int                   `json:"step_count"`
	FinalAction governance.ActionKind `json:"final_action"`
	Terminal    Terminal              `json:"terminal"`
	Intents     []Intent              `json:"intents,omitempty"`

	SafetyPassed      int `json:"safety_passed"`
	PrivacyPassed     int `json:"privacy_passed"`
	OperationalPassed int `json:"operational_passed"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Allowed reports whether the run completed without a terminal DENY.
func (t *Trace) Allowed() bool {
	return t.Terminal == TerminalCompleted && t.FinalAction != governance.ActionDeny
}

func (t *Trace) recordPass(cat governance.Category) {
	switch governance.PhaseOf(cat) {
	case governance.PhaseSafety:
		t.SafetyPassed++
	case governance.PhasePrivacy:
		t.PrivacyPassed++
	case governance.PhaseOperational:
		t.OperationalPassed++
	}
}
