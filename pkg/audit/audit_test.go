package audit_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mindburn-Labs/plang/pkg/arbiter"
	"github.com/Mindburn-Labs/plang/pkg/audit"
	"github.com/Mindburn-Labs/plang/pkg/canonicalize"
	"github.com/Mindburn-Labs/plang/pkg/executor"
	"github.com/Mindburn-Labs/plang/pkg/governance"
)

func TestLogger_WritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := audit.NewLoggerWithWriter(&buf)

	require.NoError(t, l.Record(context.Background(), audit.Event{
		TenantID: "acme",
		Type:     audit.EventExecution,
		Record:   map[string]any{"final_action": "ALLOW"},
	}))

	var event audit.Event
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.NotEmpty(t, event.ID, "missing id is filled in")
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, "acme", event.TenantID)
	assert.Equal(t, "ALLOW", event.Record["final_action"])
}

func TestTraceEvent_FlattensToPrimitives(t *testing.T) {
	tr := &executor.Trace{
		ExecutionID: "run-1",
		Terminal:    executor.TerminalDenied,
		FinalAction: governance.ActionDeny,
		StageCount:  1,
		StepCount:   2,
		Stages: []executor.StageResult{{
			Index:     0,
			NetAction: governance.ActionDeny,
			Steps:     2,
			Members: []executor.MemberResult{{
				Policy:   "gate",
				Category: governance.CategorySafety,
				Passed:   true,
				Action:   governance.ActionDeny,
				Steps:    2,
			}},
		}},
		Intents: []executor.Intent{{Policy: "gate", Action: governance.ActionDeny}},
	}

	event := audit.TraceEvent("acme", tr)
	assert.Equal(t, audit.EventExecution, event.Type)
	assert.Equal(t, "DENIED", event.Record["terminal"])
	assert.Equal(t, "DENY", event.Record["stage.0.net_action"])
	assert.Equal(t, "gate", event.Record["stage.0.member.0.policy"])
	assert.Equal(t, true, event.Record["stage.0.member.0.passed"])
	assert.Equal(t, "DENY", event.Record["intent.0.action"])
}

func TestArbitrationEvent_FlattensLimits(t *testing.T) {
	limit := 50.0
	res := &arbiter.Result{
		TenantID:          "acme",
		PolicyIDs:         []string{"P1", "P2"},
		Precedences:       map[string]int{"P1": 1, "P2": 5},
		Strategy:          governance.StrategyMostRestrictive,
		EffectiveLimits:   arbiter.Limits{Tokens: &limit},
		EffectiveAction:   governance.BreachKill,
		ConflictsResolved: 2,
		SnapshotHash:      "abc",
	}

	event := audit.ArbitrationEvent(res)
	assert.Equal(t, audit.EventArbitration, event.Type)
	assert.Equal(t, 50.0, event.Record["effective_limit.tokens"])
	assert.Equal(t, "kill", event.Record["effective_action"])
	assert.Equal(t, 1, event.Record["precedence.P1"])
	assert.NotContains(t, event.Record, "effective_limit.cost")
}

func TestJournal_QueryFilters(t *testing.T) {
	j := audit.NewJournal()
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, j.Record(ctx, audit.Event{TenantID: "acme", Type: audit.EventExecution, Timestamp: base}))
	require.NoError(t, j.Record(ctx, audit.Event{TenantID: "acme", Type: audit.EventArbitration, Timestamp: base.Add(time.Hour)}))
	require.NoError(t, j.Record(ctx, audit.Event{TenantID: "globex", Type: audit.EventExecution, Timestamp: base}))

	assert.Equal(t, 3, j.Len())
	assert.Len(t, j.Query(audit.QueryFilter{TenantID: "acme"}), 2)
	assert.Len(t, j.Query(audit.QueryFilter{Type: audit.EventArbitration}), 1)
	assert.Len(t, j.Query(audit.QueryFilter{
		TenantID:  "acme",
		StartTime: base.Add(30 * time.Minute),
	}), 1)
}

func TestExporter_GeneratePack(t *testing.T) {
	j := audit.NewJournal()
	ctx := context.Background()
	require.NoError(t, j.Record(ctx, audit.Event{
		TenantID: "acme",
		Type:     audit.EventExecution,
		Record:   map[string]any{"final_action": "ALLOW"},
	}))

	pack, checksum, err := audit.NewExporter(j, nil).GeneratePack(ctx, audit.ExportRequest{TenantID: "acme"})
	require.NoError(t, err)
	assert.Equal(t, canonicalize.HashBytes(pack), checksum)

	r, err := zip.NewReader(bytes.NewReader(pack), int64(len(pack)))
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range r.File {
		names[f.Name] = true
	}
	assert.True(t, names["events.json"])
	assert.True(t, names["manifest.json"])
	assert.True(t, names["README.txt"])
}

func TestExporter_RejectsBadRequests(t *testing.T) {
	e := audit.NewExporter(audit.NewJournal(), nil)
	ctx := context.Background()

	_, _, err := e.GeneratePack(ctx, audit.ExportRequest{})
	assert.ErrorIs(t, err, audit.ErrEmptyTenantID)

	_, _, err = e.GeneratePack(ctx, audit.ExportRequest{
		TenantID:  "acme",
		StartTime: time.Now(),
		EndTime:   time.Now().Add(-time.Hour),
	})
	assert.ErrorIs(t, err, audit.ErrInvalidTimeRange)
}

func TestTee_FansOut(t *testing.T) {
	var buf bytes.Buffer
	j := audit.NewJournal()
	l := audit.Tee(audit.NewLoggerWithWriter(&buf), j)

	require.NoError(t, l.Record(context.Background(), audit.Event{TenantID: "acme", Type: audit.EventExecution}))
	assert.Equal(t, 1, j.Len())
	assert.NotEmpty(t, buf.Bytes())
}
