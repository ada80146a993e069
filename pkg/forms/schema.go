package forms

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// Schema validates a complete snapshot of form values.
type Schema interface {
	Validate(values Values) Result
}

// Rule is a cross-field rule over the decoded record. It only runs when
// none of the fields it references failed their own checks.
type Rule[T any] struct {
	// Path is the field the issue is reported on.
	Path string

	// Refs are the fields the rule reads.
	Refs []string

	// Message is the issue message.
	Message string

	// Fails reports whether the record violates the rule.
	Fails func(rec *T) bool
}

// RecordSchema validates values by decoding them into the typed record T.
// Per-field checks come from the record's `validate` struct tags, issue
// paths from its `json` tags.
type RecordSchema[T any] struct {
	def      Definition
	rules    []Rule[T]
	messages map[string]string
}

// NewRecordSchema creates a schema for the fields of def.
func NewRecordSchema[T any](def Definition, rules ...Rule[T]) *RecordSchema[T] {
	return &RecordSchema[T]{
		def:      def,
		rules:    rules,
		messages: make(map[string]string),
	}
}

// WithMessage replaces the per-field message reported on path.
func (s *RecordSchema[T]) WithMessage(path, message string) *RecordSchema[T] {
	s.messages[path] = message
	return s
}

// Definition returns the form definition the schema validates.
func (s *RecordSchema[T]) Definition() Definition {
	return s.def
}

// Decode converts values into the record. Values are normalized per field
// kind first; a value that cannot be normalized is reported in bad and
// decoded as the zero value of its kind.
func (s *RecordSchema[T]) Decode(values Values) (rec T, normalized Values, bad []string, err error) {
	normalized = make(Values, len(s.def.fields))
	for _, f := range s.def.fields {
		v, ok := f.Normalize(values[f.Name])
		if !ok {
			bad = append(bad, f.Name)
			normalized[f.Name] = values[f.Name]
			continue
		}
		normalized[f.Name] = v
	}

	wire := make(map[string]any, len(normalized))
	for k, v := range normalized {
		wire[k] = v
	}
	for _, name := range bad {
		f, _ := s.def.Field(name)
		wire[name] = f.zero()
	}

	raw, err := json.Marshal(wire)
	if err != nil {
		return rec, normalized, bad, fmt.Errorf("forms: encode values: %w", err)
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, normalized, bad, fmt.Errorf("forms: decode record: %w", err)
	}
	return rec, normalized, bad, nil
}

// Validate runs the per-field checks and then every cross-field rule
// whose referenced fields passed. All issues are collected: per-field
// issues in declaration order first, then cross-field issues in rule order.
func (s *RecordSchema[T]) Validate(values Values) Result {
	rec, normalized, bad, err := s.Decode(values)
	if err != nil {
		return Result{Values: values.Clone(), Issues: Issues{NewIssue("", err.Error(), FieldFormat)}}
	}

	failed := make(map[string]bool)
	var issues Issues
	for _, name := range bad {
		f, _ := s.def.Field(name)
		failed[name] = true
		issues = append(issues, NewIssue(name, coerceMessage(f), FieldFormat))
	}

	if err := Validate().Struct(&rec); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return Result{Values: normalized, Issues: Issues{NewIssue("", err.Error(), FieldFormat)}}
		}
		for _, fe := range ves {
			path := fe.Field()
			if failed[path] {
				continue
			}
			failed[path] = true
			issues = append(issues, NewIssue(path, s.message(fe), FieldFormat))
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return s.def.Position(issues[i].Path) < s.def.Position(issues[j].Path)
	})

rules:
	for _, r := range s.rules {
		for _, ref := range r.Refs {
			if failed[ref] {
				continue rules
			}
		}
		if r.Fails(&rec) {
			issues = append(issues, NewIssue(r.Path, r.Message, CrossField))
		}
	}

	return Result{Values: normalized, Issues: issues}
}

func (s *RecordSchema[T]) message(fe validator.FieldError) string {
	if msg, ok := s.messages[fe.Field()]; ok {
		return msg
	}
	return tagMessage(fe)
}

func coerceMessage(f Field) string {
	if f.Kind.Numeric() {
		return "expected number, received string"
	}
	return "invalid value"
}
