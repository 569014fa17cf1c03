package audit

import (
	"fmt"

	"github.com/Mindburn-Labs/plang/pkg/arbiter"
	"github.com/Mindburn-Labs/plang/pkg/executor"
)

// TraceEvent flattens an execution trace into an audit event. Every value
// is a primitive keyed by a dotted path, so sinks need no knowledge of
// the trace shape.
func TraceEvent(tenantID string, tr *executor.Trace) Event {
	rec := map[string]any{
		"execution_id":       tr.ExecutionID,
		"terminal":           string(tr.Terminal),
		"final_action":       string(tr.FinalAction),
		"stage_count":        tr.StageCount,
		"step_count":         tr.StepCount,
		"safety_passed":      tr.SafetyPassed,
		"privacy_passed":     tr.PrivacyPassed,
		"operational_passed": tr.OperationalPassed,
		"started_at":         tr.StartedAt,
		"finished_at":        tr.FinishedAt,
	}
	for _, stage := range tr.Stages {
		prefix := fmt.Sprintf("stage.%d", stage.Index)
		rec[prefix+".net_action"] = string(stage.NetAction)
		rec[prefix+".steps"] = stage.Steps
		for i, m := range stage.Members {
			mp := fmt.Sprintf("%s.member.%d", prefix, i)
			rec[mp+".policy"] = m.Policy
			rec[mp+".category"] = string(m.Category)
			rec[mp+".passed"] = m.Passed
			rec[mp+".action"] = string(m.Action)
			rec[mp+".steps"] = m.Steps
			if m.Error != "" {
				rec[mp+".error"] = m.Error
			}
		}
	}
	for i, intent := range tr.Intents {
		ip := fmt.Sprintf("intent.%d", i)
		rec[ip+".policy"] = intent.Policy
		rec[ip+".action"] = string(intent.Action)
		if intent.RouteTarget != "" {
			rec[ip+".route_target"] = intent.RouteTarget
		}
	}
	return Event{TenantID: tenantID, Type: EventExecution, Record: rec}
}

// ArbitrationEvent flattens an arbitration result into an audit event.
func ArbitrationEvent(res *arbiter.Result) Event {
	rec := map[string]any{
		"strategy":           string(res.Strategy),
		"effective_action":   string(res.EffectiveAction),
		"conflicts_resolved": res.ConflictsResolved,
		"snapshot_hash":      res.SnapshotHash,
		"policy_ids":         append([]string(nil), res.PolicyIDs...),
		"timestamp":          res.Timestamp,
	}
	if res.EffectiveLimits.Tokens != nil {
		rec["effective_limit.tokens"] = *res.EffectiveLimits.Tokens
	}
	if res.EffectiveLimits.Cost != nil {
		rec["effective_limit.cost"] = *res.EffectiveLimits.Cost
	}
	if res.EffectiveLimits.BurnRate != nil {
		rec["effective_limit.burn_rate"] = *res.EffectiveLimits.BurnRate
	}
	for id, prec := range res.Precedences {
		rec["precedence."+id] = prec
	}
	return Event{TenantID: res.TenantID, Type: EventArbitration, Record: rec}
}
