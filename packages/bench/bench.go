package bench

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Biji-Biji-Initiative/apiflow/packages/flow"
	"github.com/Biji-Biji-Initiative/apiflow/packages/runner"
	"github.com/Biji-Biji-Initiative/apiflow/packages/transport"
	"github.com/Biji-Biji-Initiative/apiflow/packages/vars"
)

// Config controls how many times the flow runs and how fast.
type Config struct {
	// Iterations is the total number of flow runs.
	Iterations int
	// Concurrency is how many iterations run at once. Defaults to 1.
	Concurrency int
	// Rate limits iteration starts per second. Zero means unlimited.
	Rate float64
}

func (c Config) normalized() Config {
	if c.Iterations < 1 {
		c.Iterations = 1
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	return c
}

// Bench repeatedly executes one flow against a shared endpoint source and
// transport. The seed store is never mutated; every iteration works on a
// clone of it.
type Bench struct {
	cfg        Config
	endpoints  runner.EndpointSource
	transport  transport.Transport
	seed       *vars.Store
	runnerOpts []runner.Option
}

func New(cfg Config, endpoints runner.EndpointSource, tr transport.Transport, seed *vars.Store, opts ...runner.Option) *Bench {
	if seed == nil {
		seed = vars.NewStore()
	}
	return &Bench{
		cfg:        cfg.normalized(),
		endpoints:  endpoints,
		transport:  tr,
		seed:       seed,
		runnerOpts: opts,
	}
}

// Report is the aggregated outcome of a bench run.
type Report struct {
	Iterations int64
	Succeeded  int64
	Failed     int64
	Duration   time.Duration
	PerSecond  float64

	P50  time.Duration
	P95  time.Duration
	P99  time.Duration
	Min  time.Duration
	Max  time.Duration
	Mean time.Duration

	Steps map[string]*StepReport
}

// StepReport breaks latency down by step label.
type StepReport struct {
	Name      string
	Total     int64
	Succeeded int64
	P50       time.Duration
	P95       time.Duration
	P99       time.Duration
	Mean      time.Duration
}

// Run executes the configured number of iterations and returns the report.
// Cancellation stops dispatching new iterations; iterations already in
// flight finish and are counted.
func (b *Bench) Run(ctx context.Context, fl *flow.Flow) (*Report, error) {
	if fl == nil {
		return nil, errors.New("nil flow")
	}

	var limiter *rate.Limiter
	if b.cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(b.cfg.Rate), 1)
	}

	metrics := NewMetrics()
	metrics.Start()

	jobs := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < b.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				b.runOnce(ctx, fl, metrics)
			}
		}()
	}

	var dispatchErr error
dispatch:
	for i := 0; i < b.cfg.Iterations; i++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				dispatchErr = err
				break dispatch
			}
		}
		select {
		case jobs <- struct{}{}:
		case <-ctx.Done():
			dispatchErr = ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	metrics.Stop()
	return metrics.Summary(), dispatchErr
}

func (b *Bench) runOnce(ctx context.Context, fl *flow.Flow, metrics *Metrics) {
	store := b.seed.Clone()
	r := runner.New(b.endpoints, b.transport, store, b.runnerOpts...)

	result := r.RunFlow(ctx, fl)
	metrics.RecordIteration(result.Duration, result.Ok())

	for _, step := range result.Results {
		if step.Skipped {
			continue
		}
		metrics.RecordStep(step.Name, step.Duration, step.Success)
	}
}
