package forms

// Discriminator is a field whose value decides which other fields are
// relevant. Dependents maps each discriminator value to the fields that
// only exist under it.
type Discriminator struct {
	Field      string
	Dependents map[string][]string
}

// Governs reports whether name depends on any value of the discriminator.
func (d Discriminator) Governs(name string) bool {
	for _, fields := range d.Dependents {
		for _, f := range fields {
			if f == name {
				return true
			}
		}
	}
	return false
}

// Visible reports whether name is shown for the current values. Fields
// the discriminator does not govern are always visible.
func (d Discriminator) Visible(values Values, name string) bool {
	return !d.Governs(name) || d.shows(values.String(d.Field), name)
}

// OnChanged returns a copy of values in which every field that only the
// previous discriminator value shows is reset to its default. Fields the
// new value also shows keep their input. Moving to the same value changes
// nothing.
func (d Discriminator) OnChanged(def Definition, values Values, from, to string) Values {
	out := values.Clone()
	if from == to {
		return out
	}
	for _, name := range d.Dependents[from] {
		if d.shows(to, name) {
			continue
		}
		if f, ok := def.Field(name); ok {
			out[name] = f.Default
		}
	}
	return out
}

// Prune returns a copy of values in which every governed field the current
// discriminator value hides is reset to its default.
func (d Discriminator) Prune(def Definition, values Values) Values {
	out := values.Clone()
	for _, f := range def.fields {
		if d.Governs(f.Name) && !d.Visible(values, f.Name) {
			out[f.Name] = f.Default
		}
	}
	return out
}

func (d Discriminator) shows(value, name string) bool {
	for _, f := range d.Dependents[value] {
		if f == name {
			return true
		}
	}
	return false
}

// Policy is the set of discriminators of one form.
type Policy []Discriminator

// For returns the discriminator keyed on field.
func (p Policy) For(field string) (Discriminator, bool) {
	for _, d := range p {
		if d.Field == field {
			return d, true
		}
	}
	return Discriminator{}, false
}

// Visible reports whether name is visible under every discriminator.
func (p Policy) Visible(values Values, name string) bool {
	for _, d := range p {
		if !d.Visible(values, name) {
			return false
		}
	}
	return true
}

// VisibleFields returns the visible fields of def in declaration order.
func (p Policy) VisibleFields(def Definition, values Values) []Field {
	var out []Field
	for _, f := range def.fields {
		if p.Visible(values, f.Name) {
			out = append(out, f)
		}
	}
	return out
}

// OnChanged applies the dependent reset of the discriminator keyed on
// field. Fields that are not discriminators return an unchanged copy.
func (p Policy) OnChanged(def Definition, values Values, field, from, to string) Values {
	d, ok := p.For(field)
	if !ok {
		return values.Clone()
	}
	return d.OnChanged(def, values, from, to)
}

// Prune resets every field hidden by the final discriminator values, so
// input typed under an earlier choice is never validated or submitted.
func (p Policy) Prune(def Definition, values Values) Values {
	out := values.Clone()
	for _, d := range p {
		out = d.Prune(def, out)
	}
	return out
}
