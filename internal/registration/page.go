package registration

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabrielmiguelok/liveregister/pkg/core"
	"github.com/gabrielmiguelok/liveregister/pkg/forms"
	"github.com/gabrielmiguelok/liveregister/pkg/logging"
	"github.com/gabrielmiguelok/liveregister/pkg/metrics"
	"github.com/gabrielmiguelok/liveregister/pkg/protocol"
)

// ErrUnknownEvent is returned for events a page does not handle.
var ErrUnknownEvent = errors.New("registration: unknown event")

// EventToggleSkill flips one skill of the second form.
const EventToggleSkill = "toggle_skill"

// Page is the live component behind one registration form. It owns the
// form controller and the skill selection for one visitor.
type Page struct {
	core.BaseComponent

	name    string
	form    *Form
	ctrl    *forms.Controller
	skills  *forms.SelectionSet
	preview []forms.Entry
	logger  logging.Logger
}

// NewPage creates a page for form.
func NewPage(name string, form *Form) *Page {
	return &Page{name: name, form: form}
}

// LevelOnePage creates the first registration page.
func LevelOnePage(cat *Catalog) core.Component {
	return NewPage("level-one", LevelOneForm(cat))
}

// LevelTwoPage creates the second registration page.
func LevelTwoPage(cat *Catalog) core.Component {
	return NewPage("level-two", LevelTwoForm(cat))
}

// Factory adapts a page constructor to the router.
func Factory(newPage func(*Catalog) core.Component, cat *Catalog) func() core.Component {
	return func() core.Component { return newPage(cat) }
}

// Name returns the component name.
func (p *Page) Name() string {
	return p.name
}

// Mount starts the page from the form defaults.
func (p *Page) Mount(ctx context.Context, params core.Params, session core.Session) error {
	p.logger = logging.L(ctx).With(
		logging.String("component", p.name),
		logging.Any("live", core.SocketFrom(ctx) != nil))
	if id := session.String("request_id"); id != "" {
		p.logger = p.logger.With(logging.String("request_id", id))
	}
	p.skills = forms.NewSelectionSet()
	p.ctrl = p.form.Controller(p.skills, forms.WithLogger(p.logger))
	p.preview = nil
	p.publish()
	return nil
}

// HandleEvent applies one user interaction.
func (p *Page) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	var err error
	switch event {
	case protocol.EventChange:
		err = p.change(payload)
	case EventToggleSkill:
		err = p.toggleSkill(payload)
	case protocol.EventSubmit:
		err = p.submit(payload)
	case protocol.EventDismiss:
		if err = p.applyPosted(payload); err == nil {
			p.ctrl.Dismiss()
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	if err != nil {
		return err
	}
	if p.ctrl.State() != forms.Accepted {
		p.preview = nil
	}
	p.publish()
	return nil
}

func (p *Page) change(payload map[string]any) error {
	field, _ := payload["field"].(string)
	if field == "" {
		return fmt.Errorf("%w: change without field", forms.ErrUnknownField)
	}
	return p.ctrl.SetField(field, stringValue(payload["value"]))
}

func (p *Page) toggleSkill(payload map[string]any) error {
	if !p.form.HasSkills() {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, EventToggleSkill)
	}
	value := stringValue(payload["value"])
	if _, err := p.form.Skill(value); err != nil {
		return err
	}
	if p.skills.Toggle(value) {
		p.ctrl.Withdraw(forms.Selection)
	}
	p.ctrl.Edit()
	return nil
}

func (p *Page) submit(payload map[string]any) error {
	if err := p.applyPosted(payload); err != nil {
		return err
	}
	res := p.ctrl.Submit(func(values forms.Values) {
		p.preview = p.form.Preview(values, p.skills)
	})
	metrics.Submission(res.Valid())
	if !res.Valid() {
		p.logger.Debug("registration rejected",
			logging.Int("issues", len(res.Issues)),
			logging.Any("paths", res.Issues.Paths()))
		return nil
	}
	p.logger.Info("registration accepted",
		logging.Int("preview", len(p.preview)),
		logging.Int("skills", p.skills.Len()))
	return nil
}

// applyPosted copies the "values" of a posted form into the controller in
// declaration order. Hidden fields posted alongside are reset by the
// controller on submit. Skills are replaced by the posted "skill" entries.
func (p *Page) applyPosted(payload map[string]any) error {
	values, ok := payload["values"].(map[string]any)
	if !ok {
		return nil
	}
	for _, name := range p.form.Definition.Names() {
		v, present := values[name]
		if !present {
			continue
		}
		if err := p.ctrl.SetField(name, stringValue(v)); err != nil {
			return err
		}
	}
	if !p.form.HasSkills() {
		return nil
	}
	posted := stringList(values[skillPath])
	for _, s := range posted {
		if _, err := p.form.Skill(s); err != nil {
			return err
		}
	}
	p.skills.Clear()
	for _, s := range posted {
		p.skills.Set(s, true)
	}
	return nil
}

// publish mirrors the page state into assigns so the router can tell when
// a render is needed.
func (p *Page) publish() {
	issues := make([]string, len(p.ctrl.Issues()))
	for i, issue := range p.ctrl.Issues() {
		issues[i] = issue.String()
	}
	preview := make([]string, len(p.preview))
	for i, e := range p.preview {
		preview[i] = e.Key + " : " + e.Value
	}
	p.Assigns().SetAll(map[string]any{
		"values":  map[string]any(p.ctrl.Values()),
		"issues":  issues,
		"state":   p.ctrl.State().String(),
		"skills":  p.skills.Items(),
		"preview": preview,
	})
}

// Render draws the page.
func (p *Page) Render(ctx context.Context) core.Renderer {
	view := p.view(ctx)
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		return pageTemplate.ExecuteTemplate(w, "page", view)
	})
}

// Controller exposes the form controller.
func (p *Page) Controller() *forms.Controller {
	return p.ctrl
}

// Skills returns the selected skills.
func (p *Page) Skills() []string {
	return p.skills.Items()
}

// Preview returns the entries of the open preview, or nil.
func (p *Page) Preview() []forms.Entry {
	return p.preview
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []string:
		if len(val) == 0 {
			return ""
		}
		return val[len(val)-1]
	case float64:
		return forms.Values{"v": val}.String("v")
	default:
		return fmt.Sprint(val)
	}
}

func stringList(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, stringValue(item))
		}
		return out
	default:
		return []string{stringValue(val)}
	}
}
