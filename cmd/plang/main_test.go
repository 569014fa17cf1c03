package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestBundle(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.yaml"),
		[]byte("name: cli-test\nversion: 1.0.0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "policies.plang"), []byte(`
policy gate category SAFETY priority 10:
    when amount > 100 then DENY

policy tail category CUSTOM:
    when true then ALLOW
`), 0o644))
	return dir
}

func TestRun_UsageAndUnknownCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 2, Run([]string{"plang"}, &out, &errOut))
	assert.Equal(t, 2, Run([]string{"plang", "bogus"}, &out, &errOut))
	assert.Equal(t, 0, Run([]string{"plang", "help"}, &out, &errOut))
	assert.Equal(t, 0, Run([]string{"plang", "version"}, &out, &errOut))
	assert.Contains(t, out.String(), "plang engine")
}

func TestRun_CompilePrintsPlan(t *testing.T) {
	dir := writeTestBundle(t)
	var out, errOut bytes.Buffer

	code := Run([]string{"plang", "compile", "-bundle", dir}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())

	var result struct {
		Bundle string `json:"bundle"`
		Plan   struct {
			Stages [][]string `json:"stages"`
		} `json:"plan"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "cli-test", result.Bundle)
	require.Len(t, result.Plan.Stages, 2)
	assert.Equal(t, []string{"gate"}, result.Plan.Stages[0])
}

func TestRun_CompileVisualize(t *testing.T) {
	dir := writeTestBundle(t)
	var out, errOut bytes.Buffer

	code := Run([]string{"plang", "compile", "-bundle", dir, "-visualize"}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())
	assert.Contains(t, out.String(), "gate")
}

func TestRun_RunDeniesOverLimit(t *testing.T) {
	dir := writeTestBundle(t)
	var out, errOut bytes.Buffer

	code := Run([]string{"plang", "run", "-bundle", dir, "-vars", `{"amount": 500}`}, &out, &errOut)
	assert.Equal(t, 2, code, "net DENY maps to exit code 2")

	var trace struct {
		Terminal    string `json:"terminal"`
		FinalAction string `json:"final_action"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &trace))
	assert.Equal(t, "DENIED", trace.Terminal)
	assert.Equal(t, "DENY", trace.FinalAction)
}

func TestRun_RunAllowsAndWritesAudit(t *testing.T) {
	dir := writeTestBundle(t)
	auditPath := filepath.Join(t.TempDir(), "audit.jsonl")
	var out, errOut bytes.Buffer

	code := Run([]string{"plang", "run", "-bundle", dir,
		"-vars", `{"amount": 5}`, "-audit", auditPath}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())

	raw, err := os.ReadFile(auditPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "EXECUTION")
}

func TestRun_ArbitrateFromFile(t *testing.T) {
	inputPath := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(inputPath, []byte(`{
        "contributions": [
            {"policy_id": "P1", "limits": {"tokens": 100}, "breach_action": "pause"},
            {"policy_id": "P2", "limits": {"tokens": 50}, "breach_action": "kill"}
        ]
    }`), 0o644))
	var out, errOut bytes.Buffer

	code := Run([]string{"plang", "arbitrate", "-tenant", "acme", "-input", inputPath}, &out, &errOut)
	require.Equal(t, 0, code, errOut.String())

	var result struct {
		EffectiveAction   string `json:"effective_action"`
		ConflictsResolved int    `json:"conflicts_resolved"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.Equal(t, "kill", result.EffectiveAction)
	assert.Equal(t, 2, result.ConflictsResolved)
}

func TestRun_ArbitrateRequiresInput(t *testing.T) {
	var out, errOut bytes.Buffer
	assert.Equal(t, 2, Run([]string{"plang", "arbitrate"}, &out, &errOut))
}
