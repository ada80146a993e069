package core

import (
	"reflect"
	"testing"
)

func TestAssigns_SetGet(t *testing.T) {
	a := NewAssigns()
	a.SetAll(map[string]any{"state": "editing", "issues": []string{"name : required"}})
	a.Set("open", true)

	if got := a.Get("state"); got != "editing" {
		t.Errorf("state = %v, want editing", got)
	}
	if got := a.Get("missing"); got != nil {
		t.Errorf("missing = %v, want nil", got)
	}
	if got := a.Keys(); !reflect.DeepEqual(got, []string{"issues", "open", "state"}) {
		t.Errorf("keys = %v", got)
	}
}

func TestChangeTracker_EqualWritesAreNotChanges(t *testing.T) {
	a := NewAssigns()
	a.SetAll(map[string]any{"name": "Jo", "skills": []string{"css"}})

	if got := a.Tracker().Flush(); !reflect.DeepEqual(got, []string{"name", "skills"}) {
		t.Fatalf("expected both keys changed, got %v", got)
	}

	a.Set("name", "Jo")
	a.Set("skills", []string{"css"})
	if a.Tracker().HasChanges() {
		t.Error("expected rewriting equal values to leave no changes")
	}

	a.Set("skills", []string{"css", "html"})
	if got := a.Tracker().Flush(); !reflect.DeepEqual(got, []string{"skills"}) {
		t.Errorf("expected skills changed, got %v", got)
	}
	if a.Tracker().Flushes() != 2 {
		t.Errorf("expected 2 flushes, got %d", a.Tracker().Flushes())
	}
}

func TestFingerprint(t *testing.T) {
	values := map[string]any{"name": "Jo", "age": 30, "ratio": 0.5}
	same := map[string]any{"ratio": 0.5, "age": 30, "name": "Jo"}

	tests := []struct {
		name  string
		a, b  any
		equal bool
	}{
		{"map order", values, same, true},
		{"string vs int", "1", 1, false},
		{"nested change", values, map[string]any{"name": "Jo", "age": 31, "ratio": 0.5}, false},
		{"slice split", []string{"ab", "c"}, []string{"a", "bc"}, false},
		{"nil vs empty", nil, "", false},
		{"bools", true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fingerprint(tt.a) == Fingerprint(tt.b); got != tt.equal {
				t.Errorf("equal = %v, want %v", got, tt.equal)
			}
		})
	}
}
