package registration

import (
	"context"
	"embed"
	"html/template"

	"github.com/microcosm-cc/bluemonday"

	"github.com/gabrielmiguelok/liveregister/pkg/forms"
	"github.com/gabrielmiguelok/liveregister/pkg/router"
	"github.com/gabrielmiguelok/liveregister/pkg/security"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// previewPolicy strips every tag from preview values. Its output is
// already escaped text.
var previewPolicy = bluemonday.StrictPolicy()

// ScriptPath is where the live client is served.
const ScriptPath = "/_live/liveregister.js"

type pageView struct {
	Title       string
	Nonce       string
	CSRF        string
	CSRFField   string
	Script      string
	State       string
	Fields      []fieldView
	Skills      []skillView
	Issues      []string
	Preview     []previewLine
	PreviewOpen bool
	Hidden      []hiddenValue
}

type fieldView struct {
	Name        string
	Label       string
	Type        string
	Value       string
	Placeholder string
	Options     []optionView
	Invalid     bool
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type skillView struct {
	Value   string
	Label   string
	Checked bool
}

type previewLine struct {
	Key   string
	Value template.HTML
}

type hiddenValue struct {
	Name  string
	Value string
}

func (p *Page) view(ctx context.Context) pageView {
	values := p.ctrl.Values()
	issues := p.ctrl.Issues()

	v := pageView{
		Title:       p.form.Title,
		Nonce:       router.CSPNonce(ctx),
		CSRF:        security.Token(ctx),
		CSRFField:   security.DefaultFormField,
		Script:      ScriptPath,
		State:       p.ctrl.State().String(),
		PreviewOpen: p.ctrl.State() == forms.Accepted,
	}

	for _, f := range p.ctrl.VisibleFields() {
		fv := fieldView{
			Name:        f.Name,
			Label:       f.Label,
			Type:        string(f.Type),
			Value:       values.String(f.Name),
			Placeholder: f.Placeholder,
			Invalid:     issues.Has(f.Name),
		}
		for _, o := range f.Options {
			fv.Options = append(fv.Options, optionView{
				Value:    o.Value,
				Label:    o.Label,
				Selected: o.Value == fv.Value,
			})
		}
		v.Fields = append(v.Fields, fv)
		v.Hidden = append(v.Hidden, hiddenValue{Name: f.Name, Value: fv.Value})
	}

	for _, o := range p.form.Skills {
		checked := p.skills.Has(o.Value)
		v.Skills = append(v.Skills, skillView{Value: o.Value, Label: o.Label, Checked: checked})
		if checked {
			v.Hidden = append(v.Hidden, hiddenValue{Name: skillPath, Value: o.Value})
		}
	}

	for _, issue := range issues {
		v.Issues = append(v.Issues, issue.String())
	}

	for _, e := range p.preview {
		v.Preview = append(v.Preview, previewLine{
			Key:   e.Key,
			Value: template.HTML(previewPolicy.Sanitize(e.Value)),
		})
	}
	return v
}
