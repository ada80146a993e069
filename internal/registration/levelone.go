package registration

import "github.com/gabrielmiguelok/liveregister/pkg/forms"

// LevelOne is the record behind the first registration page.
type LevelOne struct {
	Name      string `json:"name" validate:"min=3"`
	Email     string `json:"email" validate:"email"`
	Age       int    `json:"age" validate:"gt=0"`
	IsGuest   string `json:"isGuest" validate:"oneof=yes no"`
	GuestName string `json:"guest_name"`
}

var levelOneRules = []forms.Rule[LevelOne]{
	{
		Path:    "guest_name",
		Refs:    []string{"isGuest", "guest_name"},
		Message: "guest name is required",
		Fails: func(r *LevelOne) bool {
			return r.IsGuest == "yes" && r.GuestName == ""
		},
	},
}

var levelOnePolicy = forms.Policy{
	{Field: "isGuest", Dependents: map[string][]string{"yes": {"guest_name"}}},
}

// LevelOneForm builds the first registration form.
func LevelOneForm(cat *Catalog) *Form {
	def := forms.NewDefinition(
		forms.NewField("name", forms.KindText, "Name"),
		forms.NewField("email", forms.KindText, "Email", forms.WithType(forms.FieldEmail)),
		forms.NewField("age", forms.KindInteger, "Age"),
		forms.NewField("isGuest", forms.KindEnum, "Are you attending with guest ?",
			forms.WithType(forms.FieldRadio),
			forms.WithOptions(cat.Guest...),
			forms.WithDefault("no")),
		forms.NewField("guest_name", forms.KindText, "Guest name"),
	)
	return &Form{
		Key:          "a",
		Title:        "Registration",
		Definition:   def,
		Schema:       forms.NewRecordSchema(def, levelOneRules...),
		Policy:       levelOnePolicy,
		PreviewOrder: []string{"name", "email", "age", "guest_name"},
	}
}
