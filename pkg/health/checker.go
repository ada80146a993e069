// Package health exposes liveness and readiness probes for the registration server.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Status is the aggregate state reported by a probe.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const defaultCheckTimeout = 5 * time.Second

// CheckFunc reports a problem by returning an error.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Status     Status `json:"status"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
	Details    any    `json:"details,omitempty"`
}

// Report is the body served by the readiness and health handlers.
type Report struct {
	Status    Status                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
}

type check struct {
	name     string
	fn       CheckFunc
	timeout  time.Duration
	critical bool
}

// Checker runs registered checks concurrently.
type Checker struct {
	mu      sync.RWMutex
	checks  []check
	version string
}

// NewChecker returns a checker reporting the given version.
func NewChecker(version string) *Checker {
	return &Checker{version: version}
}

// Add registers a check whose failure degrades the report.
func (c *Checker) Add(name string, fn CheckFunc, timeout time.Duration) {
	c.add(name, fn, timeout, false)
}

// AddCritical registers a check whose failure makes the report unhealthy.
func (c *Checker) AddCritical(name string, fn CheckFunc, timeout time.Duration) {
	c.add(name, fn, timeout, true)
}

func (c *Checker) add(name string, fn CheckFunc, timeout time.Duration, critical bool) {
	if timeout <= 0 {
		timeout = defaultCheckTimeout
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check{name: name, fn: fn, timeout: timeout, critical: critical})
}

// Names lists the registered checks in sorted order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.checks))
	for _, ch := range c.checks {
		names = append(names, ch.name)
	}
	sort.Strings(names)
	return names
}

// Run executes every check and folds the results into a Report.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := append([]check(nil), c.checks...)
	version := c.version
	c.mu.RUnlock()

	report := Report{
		Status:    StatusHealthy,
		Checks:    make(map[string]CheckResult, len(checks)),
		Timestamp: time.Now(),
		Version:   version,
	}

	type outcome struct {
		check
		result CheckResult
	}
	out := make(chan outcome, len(checks))

	var wg sync.WaitGroup
	for _, ch := range checks {
		wg.Add(1)
		go func(ch check) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, ch.timeout)
			defer cancel()

			start := time.Now()
			err := ch.fn(checkCtx)
			res := CheckResult{
				Status:     StatusHealthy,
				DurationMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				res.Status = StatusUnhealthy
				res.Error = err.Error()
				if ce, ok := err.(*CapacityError); ok {
					res.Details = ce.details()
				}
			}
			out <- outcome{check: ch, result: res}
		}(ch)
	}
	wg.Wait()
	close(out)

	for o := range out {
		report.Checks[o.name] = o.result
		if o.result.Status == StatusHealthy {
			continue
		}
		if o.critical {
			report.Status = StatusUnhealthy
		} else if report.Status == StatusHealthy {
			report.Status = StatusDegraded
		}
	}
	return report
}

// LivenessHandler answers 200 while the process is up.
func (c *Checker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "alive",
			"timestamp": time.Now(),
		})
	})
}

// ReadinessHandler answers 503 when a critical check fails.
func (c *Checker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		code := http.StatusOK
		if report.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, report)
	})
}

// HealthHandler always answers 200 with the full report.
func (c *Checker) HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, c.Run(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// CapacityError reports a resource that reached its limit.
type CapacityError struct {
	Resource string
	Current  int
	Max      int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s at capacity (%d/%d)", e.Resource, e.Current, e.Max)
}

func (e *CapacityError) details() map[string]int {
	return map[string]int{"current": e.Current, "max": e.Max}
}

// SessionCapacity fails once count reaches max. A max of zero disables the limit.
func SessionCapacity(count func() int, max int) CheckFunc {
	return func(context.Context) error {
		if max <= 0 {
			return nil
		}
		if n := count(); n >= max {
			return &CapacityError{Resource: "live sessions", Current: n, Max: max}
		}
		return nil
	}
}

// Static wraps a fixed error, typically captured at startup.
func Static(err error) CheckFunc {
	return func(context.Context) error { return err }
}
