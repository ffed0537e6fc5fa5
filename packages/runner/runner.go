package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Biji-Biji-Initiative/apiflow/packages/expr"
	"github.com/Biji-Biji-Initiative/apiflow/packages/flow"
	"github.com/Biji-Biji-Initiative/apiflow/packages/registry"
	"github.com/Biji-Biji-Initiative/apiflow/packages/transport"
	"github.com/Biji-Biji-Initiative/apiflow/packages/vars"
)

// EndpointSource resolves step endpoint ids. *registry.Registry satisfies
// it; the runner never mutates the source.
type EndpointSource interface {
	Get(id string) (registry.Endpoint, bool)
}

// Runner drives flow execution. The variable store is shared across all
// steps of a run; two concurrent RunFlow calls must not share one store.
type Runner struct {
	endpoints      EndpointSource
	transport      transport.Transport
	store          *vars.Store
	interp         *vars.Interpolator
	baseURL        string
	validateParams bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithBaseURL sets the base URL endpoint paths are resolved against.
func WithBaseURL(url string) Option {
	return func(r *Runner) {
		r.baseURL = url
	}
}

// WithInterpolator replaces the default interpolator, e.g. to add custom
// builtin functions or a warn hook.
func WithInterpolator(i *vars.Interpolator) Option {
	return func(r *Runner) {
		r.interp = i
	}
}

// WithParamValidation enables JSON-schema validation of step params against
// the endpoint's paramSchema before the call is made.
func WithParamValidation(enabled bool) Option {
	return func(r *Runner) {
		r.validateParams = enabled
	}
}

func New(endpoints EndpointSource, tr transport.Transport, store *vars.Store, opts ...Option) *Runner {
	r := &Runner{
		endpoints: endpoints,
		transport: tr,
		store:     store,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.interp == nil {
		r.interp = vars.NewInterpolator(store)
	}
	return r
}

// Store exposes the run's variable store, e.g. for presentation layers
// subscribing to change events.
func (r *Runner) Store() *vars.Store {
	return r.store
}

// RunFlow executes every step of fl strictly in order. Per-step failures
// become StepResults; only the halt policy, cancellation and internal
// errors stop the iteration early. The returned result always covers the
// steps actually attempted.
func (r *Runner) RunFlow(ctx context.Context, fl *flow.Flow) (result *FlowResult) {
	result = &FlowResult{}
	start := time.Now()
	defer func() {
		result.Duration = time.Since(start)
		if rec := recover(); rec != nil {
			result.Halted = true
			result.HaltedAt = len(result.Results)
			result.HaltReason = fmt.Sprintf("internal error: %v", rec)
		}
	}()

	if fl == nil {
		result.Halted = true
		result.HaltReason = "internal error: nil flow"
		return result
	}
	result.Name = fl.Name

	r.store.SetAll(fl.Variables)

	for i := range fl.Steps {
		// Cancellation takes effect only at step boundaries.
		if ctx.Err() != nil {
			result.Halted = true
			result.HaltedAt = i
			result.HaltReason = HaltCancelled
			return result
		}

		res := r.RunStep(ctx, fl.Steps[i], i)
		result.Record(res)

		if !res.Success && !res.Skipped {
			if ctx.Err() != nil {
				result.Halted = true
				result.HaltedAt = i
				result.HaltReason = HaltCancelled
				return result
			}
			if fl.StopOnError {
				result.Halted = true
				result.HaltedAt = i
				result.HaltReason = HaltStopOnError
				return result
			}
		}
	}
	return result
}

// RunStep executes one step: guard condition, endpoint resolution,
// parameter interpolation, the HTTP call, and extraction. Every failure
// mode is captured on the result; RunStep never returns nil and never
// panics on well-typed input.
func (r *Runner) RunStep(ctx context.Context, step flow.Step, index int) *StepResult {
	result := &StepResult{
		Index: index,
		Name:  step.Label(index),
	}

	if step.If != "" {
		ok, err := expr.Eval(step.If, r.store)
		if err != nil {
			result.Error = fmt.Sprintf("invalid condition %q: %v", step.If, err)
			return result
		}
		if !ok {
			result.Skipped = true
			result.SkipReason = fmt.Sprintf("condition %q not met", step.If)
			return result
		}
	}

	ep, ok := r.endpoints.Get(step.Endpoint)
	if !ok {
		result.Error = fmt.Sprintf("unknown endpoint id %q", step.Endpoint)
		return result
	}

	params := r.interp.InterpolateParams(step.Params)

	if r.validateParams {
		violations, err := registry.ValidateParams(ep, params)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		if len(violations) > 0 {
			result.Error = "invalid params: " + strings.Join(violations, "; ")
			return result
		}
	}

	req, err := r.buildRequest(ep, step, params)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	resp, err := r.transport.Execute(ctx, req)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Status = resp.StatusCode
	result.StatusText = resp.Status
	result.Duration = resp.Duration
	result.Success = resp.IsSuccess()
	if !result.Success {
		result.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
	}

	if resp.IsJSON() {
		if body, jsonErr := resp.BodyJSON(); jsonErr == nil {
			result.Body = body
		} else {
			result.Body = resp.BodyString()
		}
		if len(step.Extract) > 0 {
			result.Extracted, result.Misses = r.store.ExtractAll(resp.Body, step.Extract)
		}
	} else {
		result.Body = resp.BodyString()
		for _, rule := range step.Extract {
			result.Misses = append(result.Misses, rule.Name)
		}
	}

	return result
}

var pathTemplatePattern = regexp.MustCompile(`\{([^{}]+)\}`)

// buildRequest assembles the transport request: path templates filled from
// params (and removed from the outgoing set), leftovers going to the query
// string for body-less methods or to a JSON body otherwise.
func (r *Runner) buildRequest(ep registry.Endpoint, step flow.Step, params map[string]any) (*transport.Request, error) {
	path := r.interp.Interpolate(ep.Path)

	remaining := make(map[string]any, len(params))
	for k, v := range params {
		remaining[k] = v
	}

	path = pathTemplatePattern.ReplaceAllStringFunc(path, func(match string) string {
		name := match[1 : len(match)-1]
		if v, ok := remaining[name]; ok {
			delete(remaining, name)
			return vars.FormatValue(v)
		}
		// Unbound template segments stay visible in the URL.
		return match
	})

	req := &transport.Request{
		Method:  strings.ToUpper(ep.Method),
		URL:     joinURL(r.baseURL, path),
		Headers: make(map[string]string),
	}

	for k, v := range ep.Headers {
		req.Headers[k] = r.interp.Interpolate(v)
	}
	for k, v := range step.Headers {
		req.Headers[k] = r.interp.Interpolate(v)
	}

	if len(remaining) > 0 {
		if methodHasBody(req.Method) {
			body, err := json.Marshal(remaining)
			if err != nil {
				return nil, fmt.Errorf("encoding request body: %w", err)
			}
			req.Body = body
			if _, ok := req.Headers["Content-Type"]; !ok {
				req.Headers["Content-Type"] = "application/json"
			}
		} else {
			req.Query = make(map[string]string, len(remaining))
			for k, v := range remaining {
				req.Query[k] = vars.FormatValue(v)
			}
		}
	}
	return req, nil
}

func methodHasBody(method string) bool {
	switch method {
	case "GET", "HEAD", "DELETE", "OPTIONS":
		return false
	default:
		return true
	}
}

func joinURL(base, path string) string {
	if base == "" {
		return path
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
