// Package registration defines the two registration forms and the live
// pages that render them.
package registration

import (
	"fmt"

	"github.com/gabrielmiguelok/liveregister/pkg/forms"
)

// Form bundles everything one registration page is built from.
type Form struct {
	// Key names the form on the command line ("a" or "b").
	Key string

	// Title is the page heading.
	Title string

	Definition forms.Definition
	Schema     forms.Schema
	Policy     forms.Policy

	// PreviewOrder lists the keys shown in the preview.
	PreviewOrder []string

	// Skills is set when the form asks for a skill selection.
	Skills []forms.Option
}

const (
	skillPath    = "skill"
	skillMessage = "select at least one skill"
	skillsKey    = "skills"
	skillsSep    = " , "
)

// Lookup returns the form registered under key.
func Lookup(key string, cat *Catalog) (*Form, error) {
	switch key {
	case "a", "1", "level1":
		return LevelOneForm(cat), nil
	case "b", "2", "level2":
		return LevelTwoForm(cat), nil
	}
	return nil, fmt.Errorf("registration: unknown form %q", key)
}

// HasSkills reports whether the form asks for a skill selection.
func (f *Form) HasSkills() bool {
	return len(f.Skills) > 0
}

// Skill returns the skill option with the given value.
func (f *Form) Skill(value string) (forms.Option, error) {
	for _, o := range f.Skills {
		if o.Value == value {
			return o, nil
		}
	}
	return forms.Option{}, fmt.Errorf("%w: skill %q", ErrUnknownOption, value)
}

// Controller creates a fresh controller for one page instance. The skill
// set is checked on submit when the form has one.
func (f *Form) Controller(skills *forms.SelectionSet, opts ...forms.ControllerOption) *forms.Controller {
	opts = append([]forms.ControllerOption{forms.WithPolicy(f.Policy)}, opts...)
	if f.HasSkills() {
		opts = append(opts, forms.WithCheck(forms.RequireSelection(skills, skillPath, skillMessage)))
	}
	return forms.NewController(f.Definition, f.Schema, opts...)
}

// Check validates a complete set of values and skills without a page.
// Fields hidden by the discriminators are reset first and skill issues
// follow the schema issues, as on submit.
func (f *Form) Check(values forms.Values, skills []string) forms.Result {
	snapshot := f.Definition.Defaults()
	for k, v := range values {
		snapshot[k] = v
	}
	snapshot = f.Policy.Prune(f.Definition, snapshot)
	res := f.Schema.Validate(snapshot)
	if f.HasSkills() {
		check := forms.RequireSelection(forms.NewSelectionSet(skills...), skillPath, skillMessage)
		if issue := check(snapshot); issue != nil {
			res.Issues = append(res.Issues, *issue)
		}
	}
	return res
}

// Preview lists the truthy values of an accepted submission.
func (f *Form) Preview(values forms.Values, skills *forms.SelectionSet) []forms.Entry {
	if f.HasSkills() && skills != nil {
		values = values.Clone()
		values[skillsKey] = skills.Join(skillsSep)
	}
	return forms.Preview(values, f.PreviewOrder)
}
