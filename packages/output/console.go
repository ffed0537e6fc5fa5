package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/Biji-Biji-Initiative/apiflow/packages/runner"
)

// Formatter renders one flow run.
type Formatter interface {
	FormatFlowResult(result *runner.FlowResult) error
	FormatError(err error)
}

// ConsoleFormatter writes a human-readable colored report.
type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

// ConsoleOption configures a ConsoleFormatter.
type ConsoleOption func(*ConsoleFormatter)

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	if f.noColor {
		color.NoColor = true
	}
	return f
}

func (f *ConsoleFormatter) FormatFlowResult(result *runner.FlowResult) error {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()

	name := result.Name
	if name == "" {
		name = "flow"
	}
	fmt.Fprintf(f.writer, "\n%s\n\n", bold("Running: "+name))

	for _, r := range result.Results {
		switch {
		case r.Skipped:
			fmt.Fprintf(f.writer, "  %s %s", yellow("-"), r.Name)
			if r.SkipReason != "" {
				fmt.Fprintf(f.writer, " (%s)", r.SkipReason)
			}
			fmt.Fprintf(f.writer, "\n")
		case r.Success:
			fmt.Fprintf(f.writer, "  %s %s %s\n", green("✓"), r.Name,
				cyan(fmt.Sprintf("(%d, %dms)", r.Status, r.Duration.Milliseconds())))
		default:
			fmt.Fprintf(f.writer, "  %s %s %s\n", red("✗"), r.Name, red("("+r.Error+")"))
		}

		if f.verbose {
			f.formatDetail(r)
		}
	}

	if result.Halted {
		fmt.Fprintf(f.writer, "\n  %s\n", red(fmt.Sprintf("halted at step %d: %s", result.HaltedAt, result.HaltReason)))
	}

	fmt.Fprintf(f.writer, "\nSteps: ")
	if result.Passed > 0 {
		fmt.Fprintf(f.writer, "%s, ", green(fmt.Sprintf("%d passed", result.Passed)))
	}
	if result.Failed > 0 {
		fmt.Fprintf(f.writer, "%s, ", red(fmt.Sprintf("%d failed", result.Failed)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(f.writer, "%s, ", yellow(fmt.Sprintf("%d skipped", result.Skipped)))
	}
	fmt.Fprintf(f.writer, "%d total\n", result.Passed+result.Failed+result.Skipped)
	fmt.Fprintf(f.writer, "Time:  %dms\n\n", result.Duration.Milliseconds())
	return nil
}

func (f *ConsoleFormatter) formatDetail(r *runner.StepResult) {
	if len(r.Extracted) > 0 {
		fmt.Fprintf(f.writer, "    Extracted:\n")
		for _, ex := range r.Extracted {
			fmt.Fprintf(f.writer, "      %s = %s\n", ex.Name, summarize(ex.Value, 80))
		}
	}
	for _, miss := range r.Misses {
		fmt.Fprintf(f.writer, "    miss: %s\n", miss)
	}
	if r.Body != nil {
		fmt.Fprintf(f.writer, "    Body: %s\n", summarize(r.Body, 200))
	}
}

func (f *ConsoleFormatter) FormatError(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)
}

// summarize renders a value for display, collapsing large composites.
func summarize(v any, maxLen int) string {
	switch val := v.(type) {
	case []any:
		return fmt.Sprintf("[array with %d items]", len(val))
	case map[string]any:
		b, err := json.Marshal(val)
		if err == nil && len(b) <= maxLen {
			return string(b)
		}
		return fmt.Sprintf("{object with %d keys}", len(val))
	}
	s := fmt.Sprintf("%v", v)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
