package vars

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/Biji-Biji-Initiative/apiflow/packages/builtin"
)

// WarnFunc receives diagnostics about unresolved tokens.
type WarnFunc func(format string, args ...any)

// Interpolator substitutes {{...}} tokens in templates with values from a
// Store, environment variables ({{$HOME}}) and builtin function calls
// ({{uuid()}}). Unresolved tokens are left intact so the miss stays visible
// in the outgoing request instead of failing the run.
type Interpolator struct {
	store   *Store
	funcs   *builtin.Registry
	pattern *regexp.Regexp
	warn    WarnFunc
}

// InterpolatorOption configures an Interpolator.
type InterpolatorOption func(*Interpolator)

// WithDelimiters changes the token delimiters from the default {{ and }}.
func WithDelimiters(prefix, suffix string) InterpolatorOption {
	return func(i *Interpolator) {
		i.pattern = regexp.MustCompile(
			regexp.QuoteMeta(prefix) + `(.+?)` + regexp.QuoteMeta(suffix))
	}
}

// WithWarnFunc routes unresolved-token diagnostics to fn.
func WithWarnFunc(fn WarnFunc) InterpolatorOption {
	return func(i *Interpolator) {
		i.warn = fn
	}
}

// WithFuncs replaces the builtin function registry.
func WithFuncs(r *builtin.Registry) InterpolatorOption {
	return func(i *Interpolator) {
		i.funcs = r
	}
}

var defaultPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

func NewInterpolator(store *Store, opts ...InterpolatorOption) *Interpolator {
	i := &Interpolator{
		store:   store,
		funcs:   builtin.NewRegistry(),
		pattern: defaultPattern,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Interpolator) warnf(format string, args ...any) {
	if i.warn != nil {
		i.warn(format, args...)
	}
}

// Interpolate substitutes every resolvable token in template. Unbalanced or
// malformed delimiters are plain text and pass through unchanged.
func (i *Interpolator) Interpolate(template string) string {
	return i.pattern.ReplaceAllStringFunc(template, func(match string) string {
		idx := i.pattern.FindStringSubmatchIndex(match)
		expr := strings.TrimSpace(match[idx[2]:idx[3]])

		if strings.HasPrefix(expr, "$") {
			name := expr[1:]
			if val := os.Getenv(name); val != "" {
				return val
			}
			i.warnf("unresolved environment variable: $%s", name)
			return match
		}

		if strings.Contains(expr, "(") {
			if result, ok := i.funcs.Call(expr); ok {
				return FormatValue(result)
			}
			i.warnf("unresolved function call: %s", expr)
			return match
		}

		if val, ok := i.store.Get(expr); ok {
			return FormatValue(val)
		}

		i.warnf("unresolved variable: %s", expr)
		return match
	})
}

// InterpolateParams applies Interpolate to every string-valued entry of
// params. Non-string values pass through unchanged.
func (i *Interpolator) InterpolateParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok {
			out[k] = i.Interpolate(s)
		} else {
			out[k] = v
		}
	}
	return out
}

// FormatValue renders a variable value for textual substitution. Scalars use
// their natural string form; composites are JSON-encoded.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool, int, int64, float64:
		return fmt.Sprintf("%v", val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}
