package forms

import (
	"fmt"

	"github.com/gabrielmiguelok/liveregister/pkg/logging"
)

// Check is an auxiliary requirement evaluated after the schema. It returns
// nil when satisfied.
type Check func(values Values) *Issue

// Controller owns the values and issues of one form instance. It is not
// safe for concurrent use; the owning component serializes access.
type Controller struct {
	def    Definition
	schema Schema
	policy Policy
	checks []Check
	logger logging.Logger

	values Values
	issues Issues
	gate   Gate
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithPolicy sets the visibility and dependent-reset policy.
func WithPolicy(p Policy) ControllerOption {
	return func(c *Controller) {
		c.policy = p
	}
}

// WithCheck appends an auxiliary check.
func WithCheck(check Check) ControllerOption {
	return func(c *Controller) {
		c.checks = append(c.checks, check)
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = l
	}
}

// NewController creates a controller holding the defaults of def.
func NewController(def Definition, schema Schema, opts ...ControllerOption) *Controller {
	c := &Controller{
		def:    def,
		schema: schema,
		logger: logging.NopLogger{},
		values: def.Defaults(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetField stores raw for the named field, coerced by its kind. When the
// field is a discriminator and its value changed, the fields of the
// previous value are reset before SetField returns. Issues are kept and
// nothing is revalidated.
func (c *Controller) SetField(name, raw string) error {
	field, ok := c.def.Field(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}

	value, coerced := field.Coerce(raw)
	if !coerced {
		c.logger.Debug("kept uncoerced input",
			logging.String("field", name),
			logging.String("kind", field.Kind.String()),
		)
	}

	from := c.values.String(name)
	c.values[name] = value
	if to := c.values.String(name); from != to {
		c.values = c.policy.OnChanged(c.def, c.values, name, from, to)
	}

	c.gate.Edit()
	return nil
}

// Submit validates the current values. On success the issues are cleared,
// the gate moves to Accepted and onAccept receives a copy of the values.
// On failure the issue list is replaced and onAccept is not called. Before
// validation, fields hidden by the current discriminator values are reset,
// whatever order the values arrived in.
func (c *Controller) Submit(onAccept func(Values)) Result {
	c.values = c.policy.Prune(c.def, c.values)
	res := c.schema.Validate(c.values)
	issues := append(Issues(nil), res.Issues...)
	for _, check := range c.checks {
		if issue := check(c.values); issue != nil {
			issues = append(issues, *issue)
		}
	}

	if len(issues) > 0 {
		c.issues = issues
		c.gate.Reject()
		c.logger.Debug("submit rejected",
			logging.Int("issues", len(issues)),
			logging.Any("paths", issues.Paths()),
		)
		return Result{Values: c.values.Clone(), Issues: issues}
	}

	c.issues = nil
	c.gate.Accept()
	c.logger.Info("submit accepted", logging.Int("fields", len(c.values)))
	if onAccept != nil {
		onAccept(c.values.Clone())
	}
	return Result{Values: c.values.Clone()}
}

// Edit records an input change kept outside the values, such as a
// selection, so an invalid form goes back to editing.
func (c *Controller) Edit() {
	c.gate.Edit()
}

// Withdraw drops the issues of one kind, typically once the input they
// point at has changed. The gate is not touched.
func (c *Controller) Withdraw(kind IssueKind) {
	kept := c.issues[:0:0]
	for _, issue := range c.issues {
		if issue.Kind != kind {
			kept = append(kept, issue)
		}
	}
	c.issues = kept
}

// Dismiss closes the preview.
func (c *Controller) Dismiss() {
	c.gate.Dismiss()
}

// Reset restores every default and clears issues.
func (c *Controller) Reset() {
	c.values = c.def.Defaults()
	c.issues = nil
	c.gate = Gate{}
}

// Values returns a copy of the current values.
func (c *Controller) Values() Values {
	return c.values.Clone()
}

// Value returns the current value of a field.
func (c *Controller) Value(name string) any {
	return c.values[name]
}

// Issues returns the issues of the last failed submit.
func (c *Controller) Issues() Issues {
	return c.issues
}

// State returns the submission state.
func (c *Controller) State() State {
	return c.gate.State()
}

// Visible reports whether the named field is currently shown.
func (c *Controller) Visible(name string) bool {
	return c.policy.Visible(c.values, name)
}

// VisibleFields returns the fields currently shown.
func (c *Controller) VisibleFields() []Field {
	return c.policy.VisibleFields(c.def, c.values)
}

// Definition returns the form definition.
func (c *Controller) Definition() Definition {
	return c.def
}
