package forms

import (
	"strconv"
	"strings"
)

// Kind describes how a field's raw input text is interpreted.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindDecimal
	KindDateTime
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindDateTime:
		return "datetime"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Numeric reports whether values of this kind are numbers.
func (k Kind) Numeric() bool {
	return k == KindInteger || k == KindDecimal
}

// FieldType is the HTML input type used to render a field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldNumber   FieldType = "number"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
	FieldDateTime FieldType = "datetime-local"
	FieldURL      FieldType = "url"
	FieldTel      FieldType = "tel"
)

// Field describes one entry of a form.
type Field struct {
	// Name is the field name (used in form data and issue paths).
	Name string

	// Kind decides how raw input is coerced.
	Kind Kind

	// Type is the HTML input type.
	Type FieldType

	// Label is the display label.
	Label string

	// Placeholder is the placeholder text.
	Placeholder string

	// Default is the value the field starts with and is reset to.
	Default any

	// Options are the available options (for select/radio fields).
	Options []Option
}

// Option represents a select/radio option.
type Option struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// FieldOption is a function that configures a field.
type FieldOption func(*Field)

// NewField creates a new field. The default value is the zero value of
// the kind unless WithDefault says otherwise.
func NewField(name string, kind Kind, label string, opts ...FieldOption) Field {
	field := Field{
		Name:  name,
		Kind:  kind,
		Type:  defaultType(kind),
		Label: label,
	}
	field.Default = field.zero()

	for _, opt := range opts {
		opt(&field)
	}

	return field
}

func defaultType(kind Kind) FieldType {
	switch kind {
	case KindInteger, KindDecimal:
		return FieldNumber
	case KindDateTime:
		return FieldDateTime
	case KindEnum:
		return FieldSelect
	default:
		return FieldText
	}
}

// WithType sets the HTML input type.
func WithType(t FieldType) FieldOption {
	return func(f *Field) {
		f.Type = t
	}
}

// WithPlaceholder sets the placeholder text.
func WithPlaceholder(placeholder string) FieldOption {
	return func(f *Field) {
		f.Placeholder = placeholder
	}
}

// WithDefault sets the default value.
func WithDefault(value any) FieldOption {
	return func(f *Field) {
		f.Default = value
	}
}

// WithOptions sets the options of a select or radio field.
func WithOptions(options ...Option) FieldOption {
	return func(f *Field) {
		f.Options = append(f.Options, options...)
	}
}

func (f Field) zero() any {
	switch f.Kind {
	case KindInteger:
		return 0
	case KindDecimal:
		return 0.0
	default:
		return ""
	}
}

// Coerce converts raw input text according to the field kind.
// Empty text for a numeric field becomes zero. Text that does not parse
// is returned verbatim with ok == false.
func (f Field) Coerce(raw string) (any, bool) {
	switch f.Kind {
	case KindInteger:
		s := strings.TrimSpace(raw)
		if s == "" {
			return 0, true
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return raw, false
		}
		return n, true
	case KindDecimal:
		s := strings.TrimSpace(raw)
		if s == "" {
			return 0.0, true
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return raw, false
		}
		return n, true
	default:
		return raw, true
	}
}

// Normalize converts a stored or decoded value to the representation of
// the field kind. It accepts the raw strings Coerce leaves behind as well
// as numbers decoded from JSON or YAML documents.
func (f Field) Normalize(value any) (any, bool) {
	if value == nil {
		return f.zero(), true
	}
	switch f.Kind {
	case KindInteger:
		switch v := value.(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case uint64:
			return int(v), true
		case float64:
			if v != float64(int(v)) {
				return value, false
			}
			return int(v), true
		case string:
			return f.Coerce(v)
		}
		return value, false
	case KindDecimal:
		switch v := value.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		case string:
			return f.Coerce(v)
		}
		return value, false
	default:
		switch v := value.(type) {
		case string:
			return v, true
		case int:
			return strconv.Itoa(v), true
		case int64:
			return strconv.FormatInt(v, 10), true
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		case bool:
			return strconv.FormatBool(v), true
		}
		return value, false
	}
}
