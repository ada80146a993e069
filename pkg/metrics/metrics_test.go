package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCounterAndGauge(t *testing.T) {
	c := &Counter{}
	c.Inc()
	c.Add(4)
	c.Add(-3)
	if got := c.Value(); got != 5 {
		t.Errorf("counter = %v, want 5", got)
	}

	g := &Gauge{}
	g.Inc()
	g.Inc()
	g.Dec()
	if got := g.Value(); got != 1 {
		t.Errorf("gauge = %v, want 1", got)
	}
	g.Set(0.25)
	if got := g.Value(); got != 0.25 {
		t.Errorf("gauge = %v, want 0.25", got)
	}
}

func TestCounter_Concurrent(t *testing.T) {
	c := &Counter{}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Inc()
			}
		}()
	}
	wg.Wait()
	if got := c.Value(); got != 1000 {
		t.Errorf("counter = %v, want 1000", got)
	}
}

func TestCounterVec(t *testing.T) {
	cv := newCounterVec("events_total", "", "event")
	cv.Inc("change")
	cv.Inc("change")
	cv.Inc("submit")

	if got := cv.Value("change"); got != 2 {
		t.Errorf("change = %v, want 2", got)
	}
	if got := cv.Value("dismiss"); got != 0 {
		t.Errorf("dismiss = %v, want 0", got)
	}
	if got := len(cv.samples()); got != 2 {
		t.Errorf("samples = %d, want 2", got)
	}
	if cv.With("submit") != cv.With("submit") {
		t.Error("With returned different counters")
	}
}

func TestHistogram(t *testing.T) {
	h := &Histogram{}
	if got := h.Stats().Mean(); got != 0 {
		t.Errorf("empty mean = %v", got)
	}
	h.Observe(2)
	h.Observe(4)
	h.ObserveDuration(3 * time.Second)

	s := h.Stats()
	if s.Count != 3 || s.Sum != 9 || s.Min != 2 || s.Max != 4 || s.Mean() != 3 {
		t.Errorf("stats = %+v", s)
	}
}

func TestFormatFloat(t *testing.T) {
	for in, want := range map[float64]string{0: "0", 3: "3", 0.5: "0.5", -2: "-2", 1e20: "1e+20"} {
		if got := formatFloat(in); got != want {
			t.Errorf("formatFloat(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestHandler(t *testing.T) {
	m := New("test")
	m.ConnectionsActive.Inc()
	m.ConnectionsTotal.Inc()
	m.EventsTotal.Inc("submit")
	m.EventsTotal.Inc("change")
	m.Submissions.Inc("accepted")
	m.RenderDuration.Observe(0.5)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		"# TYPE test_connections_active gauge\ntest_connections_active 1\n",
		"test_connections_total 1\n",
		"test_events_total{event=\"change\"} 1\ntest_events_total{event=\"submit\"} 1\n",
		"test_submissions_total{result=\"accepted\"} 1\n",
		"test_render_duration_seconds_sum 0.5\ntest_render_duration_seconds_count 1\n",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestSubmission(t *testing.T) {
	before := Default.Submissions.Value("rejected")
	Submission(false)
	if got := Default.Submissions.Value("rejected"); got != before+1 {
		t.Errorf("rejected = %v, want %v", got, before+1)
	}
}
