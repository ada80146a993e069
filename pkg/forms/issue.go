package forms

import (
	"strings"
)

// IssueKind classifies a validation failure.
type IssueKind int

const (
	// FieldFormat is a single field violating a type or format rule.
	FieldFormat IssueKind = iota
	// CrossField is a combination of otherwise valid fields violating a
	// dependency rule.
	CrossField
	// Selection is an auxiliary requirement outside the schema.
	Selection
)

func (k IssueKind) String() string {
	switch k {
	case FieldFormat:
		return "field_format"
	case CrossField:
		return "cross_field"
	case Selection:
		return "selection"
	default:
		return "unknown"
	}
}

// Issue is one reported validation failure.
type Issue struct {
	Path    string    `json:"path" yaml:"path"`
	Message string    `json:"message" yaml:"message"`
	Kind    IssueKind `json:"-" yaml:"-"`
}

// NewIssue creates an issue. The message is lower-cased.
func NewIssue(path, message string, kind IssueKind) Issue {
	return Issue{Path: path, Message: strings.ToLower(message), Kind: kind}
}

// String formats the issue the way it is listed under a form.
func (i Issue) String() string {
	return i.Path + " : " + i.Message
}

// Issues is an ordered list of issues.
type Issues []Issue

// Paths returns the issue paths in order.
func (is Issues) Paths() []string {
	paths := make([]string, len(is))
	for i, issue := range is {
		paths[i] = issue.Path
	}
	return paths
}

// Has reports whether any issue is attached to path.
func (is Issues) Has(path string) bool {
	for _, issue := range is {
		if issue.Path == path {
			return true
		}
	}
	return false
}

// Of returns the issues of one kind.
func (is Issues) Of(kind IssueKind) Issues {
	var out Issues
	for _, issue := range is {
		if issue.Kind == kind {
			out = append(out, issue)
		}
	}
	return out
}

// Err returns nil for an empty list and an *IssueError otherwise.
func (is Issues) Err() error {
	if len(is) == 0 {
		return nil
	}
	return &IssueError{Issues: is}
}

// IssueError carries a non-empty issue list as an error.
type IssueError struct {
	Issues Issues
}

func (e *IssueError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Result is the outcome of one validation run.
type Result struct {
	Values Values
	Issues Issues
}

// Valid reports whether the run produced no issues.
func (r Result) Valid() bool {
	return len(r.Issues) == 0
}

// Err is shorthand for r.Issues.Err().
func (r Result) Err() error {
	return r.Issues.Err()
}
