package registration

import "github.com/gabrielmiguelok/liveregister/pkg/forms"

// LevelTwo is the record behind the second registration page.
type LevelTwo struct {
	Name          string `json:"name" validate:"min=3"`
	Email         string `json:"email" validate:"email"`
	Phone         string `json:"phone" validate:"len=10,number"`
	Position      string `json:"position" validate:"required,oneof=developer designer manager"`
	Experience    int    `json:"experience" validate:"gte=0"`
	ManagerialExp int    `json:"managerial_exp" validate:"gte=0"`
	InterviewSlot string `json:"interview_slot" validate:"datetimelocal"`
	PortfolioURL  string `json:"portfolio_url" validate:"omitempty,portfolio"`
}

// positionDependents lists the fields each position adds to the form.
var positionDependents = map[string][]string{
	"developer": {"experience"},
	"designer":  {"experience", "portfolio_url"},
	"manager":   {"managerial_exp"},
}

var levelTwoRules = []forms.Rule[LevelTwo]{
	{
		Path:    "experience",
		Refs:    []string{"position", "experience"},
		Message: "experience is required (greater than 0)",
		Fails: func(r *LevelTwo) bool {
			return (r.Position == "developer" || r.Position == "designer") && r.Experience <= 0
		},
	},
	{
		Path:    "portfolio_url",
		Refs:    []string{"position", "portfolio_url"},
		Message: "portfolio url is required",
		Fails: func(r *LevelTwo) bool {
			return r.Position == "designer" && r.PortfolioURL == ""
		},
	},
	{
		Path:    "managerial_exp",
		Refs:    []string{"position", "managerial_exp"},
		Message: "managerial experience is required",
		Fails: func(r *LevelTwo) bool {
			return r.Position == "manager" && r.ManagerialExp <= 0
		},
	},
}

var levelTwoPolicy = forms.Policy{
	{Field: "position", Dependents: positionDependents},
}

// LevelTwoForm builds the second registration form.
func LevelTwoForm(cat *Catalog) *Form {
	def := forms.NewDefinition(
		forms.NewField("name", forms.KindText, "Full Name"),
		forms.NewField("email", forms.KindText, "Email", forms.WithType(forms.FieldEmail)),
		forms.NewField("phone", forms.KindText, "Phone Number", forms.WithType(forms.FieldTel)),
		forms.NewField("position", forms.KindEnum, "Applying for position",
			forms.WithPlaceholder("Select preferred role"),
			forms.WithOptions(cat.Positions...)),
		forms.NewField("experience", forms.KindInteger, "Experience"),
		forms.NewField("portfolio_url", forms.KindText, "Portfolio url", forms.WithType(forms.FieldURL)),
		forms.NewField("managerial_exp", forms.KindInteger, "Managerial Experience"),
		forms.NewField("interview_slot", forms.KindDateTime, "Preferred interview time and date"),
	)
	schema := forms.NewRecordSchema(def, levelTwoRules...).
		WithMessage("phone", "phone number must be of 10 digits").
		WithMessage("position", "please select preferred role").
		WithMessage("interview_slot", "invalid date").
		WithMessage("portfolio_url", "invalid url")
	return &Form{
		Key:        "b",
		Title:      "Registration - Level 2",
		Definition: def,
		Schema:     schema,
		Policy:     levelTwoPolicy,
		PreviewOrder: []string{
			"name", "email", "phone", "position", "experience",
			"portfolio_url", "managerial_exp", "interview_slot", skillsKey,
		},
		Skills: cat.Skills,
	}
}
