package forms

import "strings"

// SelectionSet is an ordered set of selected identifiers, tracked apart
// from the form values.
type SelectionSet struct {
	items []string
}

// NewSelectionSet creates a set holding items.
func NewSelectionSet(items ...string) *SelectionSet {
	s := &SelectionSet{}
	for _, item := range items {
		if !s.Has(item) {
			s.items = append(s.items, item)
		}
	}
	return s
}

// Toggle adds item when absent and removes it otherwise. It reports
// whether item is selected afterwards.
func (s *SelectionSet) Toggle(item string) bool {
	for i, existing := range s.items {
		if existing == item {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return false
		}
	}
	s.items = append(s.items, item)
	return true
}

// Set selects or clears item.
func (s *SelectionSet) Set(item string, selected bool) {
	if s.Has(item) != selected {
		s.Toggle(item)
	}
}

// Has reports whether item is selected.
func (s *SelectionSet) Has(item string) bool {
	for _, existing := range s.items {
		if existing == item {
			return true
		}
	}
	return false
}

// Len returns the number of selected items.
func (s *SelectionSet) Len() int {
	return len(s.items)
}

// Items returns the selected items in selection order.
func (s *SelectionSet) Items() []string {
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}

// Join joins the selected items with sep.
func (s *SelectionSet) Join(sep string) string {
	return strings.Join(s.items, sep)
}

// Clear empties the set.
func (s *SelectionSet) Clear() {
	s.items = nil
}

// RequireSelection returns a check that reports a Selection issue on path
// while s is empty.
func RequireSelection(s *SelectionSet, path, message string) Check {
	return func(Values) *Issue {
		if s.Len() > 0 {
			return nil
		}
		issue := NewIssue(path, message, Selection)
		return &issue
	}
}
