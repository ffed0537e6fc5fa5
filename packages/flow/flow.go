package flow

import (
	"fmt"

	"github.com/Biji-Biji-Initiative/apiflow/packages/vars"
)

// Step is one endpoint invocation within a flow.
type Step struct {
	// Name is optional and only used for reporting.
	Name string `yaml:"name,omitempty"`
	// Endpoint references an id in the endpoint registry.
	Endpoint string `yaml:"endpoint"`
	// If guards execution; a false condition skips the step.
	If string `yaml:"if,omitempty"`
	// Params maps parameter names to values. String values may carry
	// {{variable}} tokens interpolated at run time.
	Params map[string]any `yaml:"params,omitempty"`
	// Headers are per-step request headers, also interpolated.
	Headers map[string]string `yaml:"headers,omitempty"`
	// Extract pulls variables out of the step's JSON response.
	Extract []vars.Rule `yaml:"extract,omitempty"`
}

// Label returns the step's display name for reporting.
func (s *Step) Label(index int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("step %d (%s)", index, s.Endpoint)
}

// Flow is an ordered sequence of steps plus a halt policy.
type Flow struct {
	Name string `yaml:"name,omitempty"`
	// StopOnError halts the run at the first failing step.
	StopOnError bool `yaml:"stopOnError,omitempty"`
	// Variables seed the variable store before the first step.
	Variables map[string]any `yaml:"variables,omitempty"`
	Steps     []Step         `yaml:"steps"`

	// Path is the file the flow was loaded from, when any.
	Path string `yaml:"-"`
}

// Validate reports structural problems that would otherwise surface mid-run:
// missing endpoint references, extraction rules without a name or path, and
// a flow without steps.
func (f *Flow) Validate() error {
	if len(f.Steps) == 0 {
		return fmt.Errorf("flow %q has no steps", f.Name)
	}
	for i := range f.Steps {
		step := &f.Steps[i]
		if step.Endpoint == "" {
			return fmt.Errorf("%s: missing endpoint id", step.Label(i))
		}
		for j, rule := range step.Extract {
			if rule.Name == "" {
				return fmt.Errorf("%s: extraction rule %d has no name", step.Label(i), j)
			}
			if rule.Path == "" {
				return fmt.Errorf("%s: extraction rule %q has no path", step.Label(i), rule.Name)
			}
		}
	}
	return nil
}
