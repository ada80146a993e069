package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRun_AllPass(t *testing.T) {
	hc := NewChecker("1.0.0")
	hc.Add("ping", Static(nil), time.Second)
	hc.Add("catalog", Static(nil), time.Second)

	report := hc.Run(context.Background())

	if report.Status != StatusHealthy {
		t.Errorf("Expected healthy, got %s", report.Status)
	}
	if len(report.Checks) != 2 {
		t.Errorf("Expected 2 checks, got %d", len(report.Checks))
	}
	for name, result := range report.Checks {
		if result.Status != StatusHealthy || result.Error != "" {
			t.Errorf("Check %s should be healthy, got %+v", name, result)
		}
	}
	if report.Version != "1.0.0" {
		t.Errorf("Expected version 1.0.0, got %s", report.Version)
	}
}

func TestRun_NonCriticalFailureDegrades(t *testing.T) {
	hc := NewChecker("")
	hc.Add("passing", Static(nil), time.Second)
	hc.Add("failing", Static(errors.New("catalog unreadable")), time.Second)

	report := hc.Run(context.Background())

	if report.Status != StatusDegraded {
		t.Errorf("Expected degraded, got %s", report.Status)
	}
	if report.Checks["failing"].Error != "catalog unreadable" {
		t.Errorf("Unexpected error message %q", report.Checks["failing"].Error)
	}
}

func TestRun_CriticalFailure(t *testing.T) {
	hc := NewChecker("")
	hc.Add("passing", Static(nil), time.Second)
	hc.AddCritical("sessions", Static(errors.New("down")), time.Second)

	if got := hc.Run(context.Background()).Status; got != StatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", got)
	}
}

func TestRun_Timeout(t *testing.T) {
	hc := NewChecker("")
	hc.Add("slow", func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}, 50*time.Millisecond)

	if hc.Run(context.Background()).Checks["slow"].Status != StatusUnhealthy {
		t.Error("Timed out check should be unhealthy")
	}
}

func TestNames(t *testing.T) {
	hc := NewChecker("")
	hc.Add("sessions", Static(nil), 0)
	hc.Add("catalog", Static(nil), 0)

	names := hc.Names()
	if len(names) != 2 || names[0] != "catalog" || names[1] != "sessions" {
		t.Errorf("Unexpected names %v", names)
	}
}

func TestLivenessHandler(t *testing.T) {
	w := httptest.NewRecorder()
	NewChecker("").LivenessHandler().ServeHTTP(w, httptest.NewRequest("GET", "/health/live", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if body["status"] != "alive" {
		t.Errorf("Expected status alive, got %v", body["status"])
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"healthy", nil, http.StatusOK},
		{"unhealthy", errors.New("connection refused"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hc := NewChecker("")
			hc.AddCritical("sessions", Static(tt.err), time.Second)

			w := httptest.NewRecorder()
			hc.ReadinessHandler().ServeHTTP(w, httptest.NewRequest("GET", "/health/ready", nil))

			if w.Code != tt.code {
				t.Errorf("Expected %d, got %d", tt.code, w.Code)
			}
		})
	}
}

func TestHealthHandler_AlwaysOK(t *testing.T) {
	hc := NewChecker("2.0.0")
	hc.AddCritical("sessions", SessionCapacity(func() int { return 3 }, 3), time.Second)

	w := httptest.NewRecorder()
	hc.HealthHandler().ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var report Report
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if report.Version != "2.0.0" {
		t.Errorf("Expected version 2.0.0, got %s", report.Version)
	}
	if report.Status != StatusUnhealthy {
		t.Errorf("Expected unhealthy, got %s", report.Status)
	}
	if report.Checks["sessions"].Details == nil {
		t.Error("Expected capacity details in response")
	}
}

func TestSessionCapacity(t *testing.T) {
	current := 50
	check := SessionCapacity(func() int { return current }, 100)

	if err := check(context.Background()); err != nil {
		t.Errorf("Should pass when under capacity: %v", err)
	}

	current = 100
	err := check(context.Background())
	var ce *CapacityError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected CapacityError, got %v", err)
	}
	if ce.Current != 100 || ce.Max != 100 {
		t.Errorf("Unexpected capacity error %+v", ce)
	}

	unlimited := SessionCapacity(func() int { return 1 << 20 }, 0)
	if err := unlimited(context.Background()); err != nil {
		t.Errorf("Zero max should disable the limit: %v", err)
	}
}
