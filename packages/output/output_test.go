package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Biji-Biji-Initiative/apiflow/packages/runner"
	"github.com/Biji-Biji-Initiative/apiflow/packages/vars"
)

func sampleResult() *runner.FlowResult {
	fr := &runner.FlowResult{Name: "login and fetch", Duration: 120 * time.Millisecond}
	fr.Record(&runner.StepResult{
		Index:    0,
		Name:     "login",
		Success:  true,
		Status:   200,
		Duration: 80 * time.Millisecond,
		Extracted: []vars.Extraction{
			{Name: "token", Value: "abc123"},
		},
	})
	fr.Record(&runner.StepResult{
		Index: 1,
		Name:  "getUser",
		Error: "unexpected status 500",
		Status: 500,
	})
	fr.Record(&runner.StepResult{
		Index:      2,
		Name:       "cleanup",
		Skipped:    true,
		SkipReason: `condition "env == production" not met`,
	})
	return fr
}

func TestConsoleFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))

	require.NoError(t, f.FormatFlowResult(sampleResult()))
	out := buf.String()

	assert.Contains(t, out, "Running: login and fetch")
	assert.Contains(t, out, "✓ login")
	assert.Contains(t, out, "✗ getUser")
	assert.Contains(t, out, "- cleanup")
	assert.Contains(t, out, "1 passed")
	assert.Contains(t, out, "1 failed")
	assert.Contains(t, out, "1 skipped")
	assert.Contains(t, out, "3 total")
}

func TestConsoleFormatter_Verbose(t *testing.T) {
	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true), WithVerbose(true))

	require.NoError(t, f.FormatFlowResult(sampleResult()))
	assert.Contains(t, buf.String(), "token = abc123")
}

func TestConsoleFormatter_Halted(t *testing.T) {
	fr := sampleResult()
	fr.Halted = true
	fr.HaltedAt = 1
	fr.HaltReason = runner.HaltStopOnError

	var buf bytes.Buffer
	f := NewConsoleFormatter(WithWriter(&buf), WithNoColor(true))
	require.NoError(t, f.FormatFlowResult(fr))
	assert.Contains(t, buf.String(), "halted at step 1: stop-on-error")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f := NewJSONFormatter(WithJSONWriter(&buf))

	require.NoError(t, f.FormatFlowResult(sampleResult()))

	var report JSONReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &report))
	assert.Equal(t, "login and fetch", report.Flow)
	assert.Equal(t, 3, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.Passed)
	assert.Equal(t, 1, report.Summary.Failed)
	assert.Equal(t, 1, report.Summary.Skipped)
	require.Len(t, report.Steps, 3)
	assert.Nil(t, report.HaltedAt)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "[array with 3 items]", summarize([]any{1, 2, 3}, 80))
	assert.Equal(t, `{"a":1}`, summarize(map[string]any{"a": 1}, 80))
	assert.Equal(t, "short", summarize("short", 80))
	assert.Equal(t, "lo...", summarize("longer", 2))
}
