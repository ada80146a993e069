// Package metrics keeps in-process counters for live sessions, events and
// registrations, served in the Prometheus text format.
package metrics

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics is the set of series the server exports.
type Metrics struct {
	namespace  string
	collectors []collector

	ConnectionsActive   *Gauge
	ConnectionsTotal    *Counter
	ConnectionsRejected *CounterVec

	EventsTotal *CounterVec
	EventErrors *CounterVec

	RenderDuration *Histogram
	DiffSize       *Histogram

	Submissions *CounterVec
}

// New creates a metrics set whose names start with namespace.
func New(namespace string) *Metrics {
	m := &Metrics{namespace: namespace}
	m.ConnectionsActive = register(m, &Gauge{desc: desc{"connections_active", "Live connections currently open"}})
	m.ConnectionsTotal = register(m, &Counter{desc: desc{"connections_total", "Live connections accepted"}})
	m.ConnectionsRejected = register(m, newCounterVec("connections_rejected_total", "Live connections refused", "reason"))
	m.EventsTotal = register(m, newCounterVec("events_total", "Events handled", "event"))
	m.EventErrors = register(m, newCounterVec("event_errors_total", "Events rejected by a component", "event"))
	m.RenderDuration = register(m, &Histogram{desc: desc{"render_duration_seconds", "Render duration after an event"}})
	m.DiffSize = register(m, &Histogram{desc: desc{"diff_size_bytes", "Bytes of changed slot content sent"}})
	m.Submissions = register(m, newCounterVec("submissions_total", "Form submissions by outcome", "result"))
	return m
}

func register[C collector](m *Metrics, c C) C {
	m.collectors = append(m.collectors, c)
	return c
}

// Handler serves the metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = m.WriteTo(w)
	})
}

// WriteTo writes every series to w in registration order.
func (m *Metrics) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	for _, c := range m.collectors {
		d := c.describe()
		name := m.namespace + "_" + d.name
		fmt.Fprintf(cw, "# HELP %s %s\n# TYPE %s %s\n", name, d.help, name, c.kind())
		for _, s := range c.samples() {
			fmt.Fprintf(cw, "%s%s%s %s\n", name, s.suffix, s.labels, formatFloat(s.value))
		}
	}
	return cw.n, cw.err
}

type desc struct {
	name string
	help string
}

func (d desc) describe() desc { return d }

type sample struct {
	suffix string
	labels string
	value  float64
}

type collector interface {
	describe() desc
	kind() string
	samples() []sample
}

func formatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

// atomicFloat is a float64 updated with compare-and-swap.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) add(delta float64) {
	for {
		old := f.bits.Load()
		if f.bits.CompareAndSwap(old, math.Float64bits(math.Float64frombits(old)+delta)) {
			return
		}
	}
}

func (f *atomicFloat) set(v float64) { f.bits.Store(math.Float64bits(v)) }
func (f *atomicFloat) load() float64 { return math.Float64frombits(f.bits.Load()) }

// Counter only goes up.
type Counter struct {
	desc
	v atomicFloat
}

func (c *Counter) Inc() { c.v.add(1) }

// Add increases the counter. Negative deltas are ignored.
func (c *Counter) Add(delta float64) {
	if delta > 0 {
		c.v.add(delta)
	}
}

func (c *Counter) Value() float64    { return c.v.load() }
func (c *Counter) kind() string      { return "counter" }
func (c *Counter) samples() []sample { return []sample{{value: c.Value()}} }

// Gauge goes up and down.
type Gauge struct {
	desc
	v atomicFloat
}

func (g *Gauge) Set(v float64)     { g.v.set(v) }
func (g *Gauge) Inc()              { g.v.add(1) }
func (g *Gauge) Dec()              { g.v.add(-1) }
func (g *Gauge) Value() float64    { return g.v.load() }
func (g *Gauge) kind() string      { return "gauge" }
func (g *Gauge) samples() []sample { return []sample{{value: g.Value()}} }

// CounterVec splits a counter by the value of one label.
type CounterVec struct {
	desc
	label string

	mu       sync.Mutex
	counters map[string]*Counter
}

func newCounterVec(name, help, label string) *CounterVec {
	return &CounterVec{desc: desc{name, help}, label: label, counters: map[string]*Counter{}}
}

// With returns the counter for one label value, creating it on first use.
func (cv *CounterVec) With(value string) *Counter {
	cv.mu.Lock()
	defer cv.mu.Unlock()
	c, ok := cv.counters[value]
	if !ok {
		c = &Counter{}
		cv.counters[value] = c
	}
	return c
}

func (cv *CounterVec) Inc(value string) { cv.With(value).Inc() }

// Value returns the count for value; unseen values read as 0.
func (cv *CounterVec) Value(value string) float64 {
	cv.mu.Lock()
	c, ok := cv.counters[value]
	cv.mu.Unlock()
	if !ok {
		return 0
	}
	return c.Value()
}

func (cv *CounterVec) kind() string { return "counter" }

func (cv *CounterVec) samples() []sample {
	cv.mu.Lock()
	values := make([]string, 0, len(cv.counters))
	for v := range cv.counters {
		values = append(values, v)
	}
	cv.mu.Unlock()
	sort.Strings(values)

	out := make([]sample, 0, len(values))
	for _, v := range values {
		out = append(out, sample{
			labels: fmt.Sprintf("{%s=%q}", cv.label, v),
			value:  cv.Value(v),
		})
	}
	return out
}

// Histogram summarises observations. It is exported as a summary without
// quantiles.
type Histogram struct {
	desc

	mu    sync.Mutex
	stats HistogramStats
}

// HistogramStats is a snapshot of a Histogram.
type HistogramStats struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
}

// Mean is Sum/Count, or 0 without observations.
func (s HistogramStats) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := &h.stats
	if s.Count == 0 {
		s.Min, s.Max = v, v
	}
	s.Min = math.Min(s.Min, v)
	s.Max = math.Max(s.Max, v)
	s.Sum += v
	s.Count++
}

// ObserveDuration records d in seconds.
func (h *Histogram) ObserveDuration(d time.Duration) {
	h.Observe(d.Seconds())
}

func (h *Histogram) Stats() HistogramStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

func (h *Histogram) kind() string { return "summary" }

func (h *Histogram) samples() []sample {
	s := h.Stats()
	return []sample{
		{suffix: "_sum", value: s.Sum},
		{suffix: "_count", value: float64(s.Count)},
	}
}

// Default is the process-wide metrics set.
var Default = New("liveregister")

// Submission records the outcome of one form submit on Default.
func Submission(accepted bool) {
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	Default.Submissions.Inc(result)
}
