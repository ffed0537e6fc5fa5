package bench

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Metrics aggregates iteration and per-step latencies.
type Metrics struct {
	mu sync.Mutex

	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64

	// Latencies in microseconds, 1us to 60s, 3 significant digits.
	histogram *hdrhistogram.Histogram

	steps map[string]*stepMetrics

	start time.Time
	end   time.Time
}

type stepMetrics struct {
	total     int64
	succeeded int64
	histogram *hdrhistogram.Histogram
}

func newHistogram() *hdrhistogram.Histogram {
	return hdrhistogram.New(1, 60_000_000, 3)
}

func NewMetrics() *Metrics {
	return &Metrics{
		histogram: newHistogram(),
		steps:     make(map[string]*stepMetrics),
	}
}

func (m *Metrics) Start() {
	m.start = time.Now()
}

func (m *Metrics) Stop() {
	m.end = time.Now()
}

func clampMicros(d time.Duration) int64 {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if us > 60_000_000 {
		us = 60_000_000
	}
	return us
}

// RecordIteration records one full flow run.
func (m *Metrics) RecordIteration(duration time.Duration, ok bool) {
	m.total.Add(1)
	if ok {
		m.succeeded.Add(1)
	} else {
		m.failed.Add(1)
	}

	m.mu.Lock()
	_ = m.histogram.RecordValue(clampMicros(duration))
	m.mu.Unlock()
}

// RecordStep records one step of an iteration under its label.
func (m *Metrics) RecordStep(name string, duration time.Duration, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sm, found := m.steps[name]
	if !found {
		sm = &stepMetrics{histogram: newHistogram()}
		m.steps[name] = sm
	}
	sm.total++
	if ok {
		sm.succeeded++
	}
	_ = sm.histogram.RecordValue(clampMicros(duration))
}

// Summary produces the final report.
func (m *Metrics) Summary() *Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	duration := m.end.Sub(m.start)
	if m.end.IsZero() {
		duration = time.Since(m.start)
	}

	total := m.total.Load()
	rps := float64(0)
	if duration.Seconds() > 0 {
		rps = float64(total) / duration.Seconds()
	}

	report := &Report{
		Iterations: total,
		Succeeded:  m.succeeded.Load(),
		Failed:     m.failed.Load(),
		Duration:   duration,
		PerSecond:  rps,
		P50:        time.Duration(m.histogram.ValueAtQuantile(50)) * time.Microsecond,
		P95:        time.Duration(m.histogram.ValueAtQuantile(95)) * time.Microsecond,
		P99:        time.Duration(m.histogram.ValueAtQuantile(99)) * time.Microsecond,
		Min:        time.Duration(m.histogram.Min()) * time.Microsecond,
		Max:        time.Duration(m.histogram.Max()) * time.Microsecond,
		Mean:       time.Duration(m.histogram.Mean()) * time.Microsecond,
		Steps:      make(map[string]*StepReport, len(m.steps)),
	}

	for name, sm := range m.steps {
		report.Steps[name] = &StepReport{
			Name:      name,
			Total:     sm.total,
			Succeeded: sm.succeeded,
			P50:       time.Duration(sm.histogram.ValueAtQuantile(50)) * time.Microsecond,
			P95:       time.Duration(sm.histogram.ValueAtQuantile(95)) * time.Microsecond,
			P99:       time.Duration(sm.histogram.ValueAtQuantile(99)) * time.Microsecond,
			Mean:      time.Duration(sm.histogram.Mean()) * time.Microsecond,
		}
	}

	return report
}
