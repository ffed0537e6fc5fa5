package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Biji-Biji-Initiative/apiflow/packages/runner"
)

// JSONReport is the machine-readable shape of one flow run.
type JSONReport struct {
	Flow     string              `json:"flow,omitempty"`
	Summary  JSONSummary         `json:"summary"`
	Steps    []*runner.StepResult `json:"steps"`
	Halted   bool                `json:"halted"`
	HaltedAt *int                `json:"haltedAt,omitempty"`
	Reason   string              `json:"haltReason,omitempty"`
	Duration float64             `json:"duration"`
	Time     string              `json:"time"`
}

// JSONSummary tallies the run.
type JSONSummary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// JSONFormatter writes one JSON document per run.
type JSONFormatter struct {
	writer io.Writer
}

// JSONOption configures a JSONFormatter.
type JSONOption func(*JSONFormatter)

func WithJSONWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *JSONFormatter) FormatFlowResult(result *runner.FlowResult) error {
	report := JSONReport{
		Flow: result.Name,
		Summary: JSONSummary{
			Total:   result.Passed + result.Failed + result.Skipped,
			Passed:  result.Passed,
			Failed:  result.Failed,
			Skipped: result.Skipped,
		},
		Steps:    result.Results,
		Halted:   result.Halted,
		Reason:   result.HaltReason,
		Duration: result.Duration.Seconds(),
		Time:     time.Now().UTC().Format(time.RFC3339),
	}
	if result.Halted {
		at := result.HaltedAt
		report.HaltedAt = &at
	}

	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func (f *JSONFormatter) FormatError(err error) {
	enc := json.NewEncoder(f.writer)
	_ = enc.Encode(map[string]string{"error": fmt.Sprintf("%v", err)})
}
