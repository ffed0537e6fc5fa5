package runner

import (
	"time"

	"github.com/Biji-Biji-Initiative/apiflow/packages/vars"
)

// Halt reasons reported on FlowResult.
const (
	HaltStopOnError = "stop-on-error"
	HaltCancelled   = "cancelled"
)

// StepResult is the immutable outcome of one step execution. Re-running a
// step replaces the result at its index; results are never merged.
type StepResult struct {
	Index      int               `json:"index"`
	Name       string            `json:"name"`
	Success    bool              `json:"success"`
	Skipped    bool              `json:"skipped,omitempty"`
	SkipReason string            `json:"skipReason,omitempty"`
	Status     int               `json:"status,omitempty"`
	StatusText string            `json:"statusText,omitempty"`
	Body       any               `json:"body,omitempty"`
	Error      string            `json:"error,omitempty"`
	Duration   time.Duration     `json:"duration"`
	Extracted  []vars.Extraction `json:"extracted,omitempty"`
	Misses     []string          `json:"misses,omitempty"`
}

// FlowResult aggregates the outcome of one RunFlow invocation. Steps after
// a halt point have no entry at all, distinguishing "not run" from "ran and
// failed".
type FlowResult struct {
	Name       string        `json:"name,omitempty"`
	Results    []*StepResult `json:"results"`
	Halted     bool          `json:"halted"`
	HaltedAt   int           `json:"haltedAt,omitempty"`
	HaltReason string        `json:"haltReason,omitempty"`
	Duration   time.Duration `json:"duration"`
	Passed     int           `json:"passed"`
	Failed     int           `json:"failed"`
	Skipped    int           `json:"skipped"`
}

// Record stores res at its step index, replacing any result from an
// earlier run of the same step and retallying the counters.
func (fr *FlowResult) Record(res *StepResult) {
	for i, existing := range fr.Results {
		if existing.Index == res.Index {
			fr.Results[i] = res
			fr.retally()
			return
		}
	}
	fr.Results = append(fr.Results, res)
	fr.tally(res)
}

func (fr *FlowResult) tally(res *StepResult) {
	switch {
	case res.Skipped:
		fr.Skipped++
	case res.Success:
		fr.Passed++
	default:
		fr.Failed++
	}
}

func (fr *FlowResult) retally() {
	fr.Passed, fr.Failed, fr.Skipped = 0, 0, 0
	for _, res := range fr.Results {
		fr.tally(res)
	}
}

// Ok reports whether the flow completed with no failures.
func (fr *FlowResult) Ok() bool {
	return !fr.Halted && fr.Failed == 0
}
