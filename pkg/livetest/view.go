// Package livetest drives live components without a browser or a
// WebSocket. A View mounts a component, pushes events through
// HandleEvent and keeps the latest render for assertions.
package livetest

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/gabrielmiguelok/liveregister/pkg/core"
	"github.com/gabrielmiguelok/liveregister/pkg/protocol"
)

// Event is one pushed event as recorded by a View.
type Event struct {
	Name    string
	Payload map[string]any
	Err     error
}

// View is a mounted component under test.
type View struct {
	t         testing.TB
	ctx       context.Context
	component core.Component
	transport *MockTransport
	socket    *core.Socket
	rendered  string
	events    []Event
}

type mountConfig struct {
	params  core.Params
	session core.Session
	ctx     context.Context
}

// MountOption configures Mount.
type MountOption func(*mountConfig)

// WithParams sets the mount params.
func WithParams(params core.Params) MountOption {
	return func(c *mountConfig) { c.params = params }
}

// WithSession sets the mount session.
func WithSession(session core.Session) MountOption {
	return func(c *mountConfig) { c.session = session }
}

// WithContext sets the base context for every call.
func WithContext(ctx context.Context) MountOption {
	return func(c *mountConfig) { c.ctx = ctx }
}

// Mount mounts comp, wires a mock socket when the component accepts one,
// and renders once.
func Mount(t testing.TB, comp core.Component, opts ...MountOption) *View {
	t.Helper()

	cfg := mountConfig{
		params:  core.Params{},
		session: core.Session{},
		ctx:     context.Background(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	v := &View{
		t:         t,
		component: comp,
		transport: NewMockTransport(),
	}
	v.socket = core.NewSocket(v.transport.ID, v.transport)
	if setter, ok := comp.(interface{ SetSocket(*core.Socket) }); ok {
		setter.SetSocket(v.socket)
	}
	v.ctx = core.BuildContext(cfg.ctx, v.socket, cfg.session, cfg.params)

	if err := comp.Mount(v.ctx, cfg.params, cfg.session); err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	v.render()
	return v
}

// Push sends an event and fails the test if the component rejects it.
func (v *View) Push(event string, payload map[string]any) *View {
	v.t.Helper()
	if err := v.TryPush(event, payload); err != nil {
		v.t.Errorf("HandleEvent(%q) failed: %v", event, err)
	}
	return v
}

// TryPush sends an event and returns the component's error. The view is
// re-rendered only when the event succeeded.
func (v *View) TryPush(event string, payload map[string]any) error {
	v.t.Helper()
	if payload == nil {
		payload = map[string]any{}
	}
	err := v.component.HandleEvent(v.ctx, event, payload)
	v.events = append(v.events, Event{Name: event, Payload: payload, Err: err})
	if err == nil {
		v.render()
	}
	return err
}

// Change pushes a "change" event for one field.
func (v *View) Change(field, value string) *View {
	v.t.Helper()
	return v.Push(protocol.EventChange, map[string]any{"field": field, "value": value})
}

// Submit pushes a "submit" event, optionally carrying posted values.
func (v *View) Submit(values map[string]any) *View {
	v.t.Helper()
	payload := map[string]any{}
	if values != nil {
		payload["values"] = values
	}
	return v.Push(protocol.EventSubmit, payload)
}

func (v *View) render() {
	v.t.Helper()
	renderer := v.component.Render(v.ctx)
	if renderer == nil {
		v.t.Fatalf("Render returned nil")
	}
	var buf bytes.Buffer
	if err := renderer.Render(v.ctx, &buf); err != nil {
		v.t.Fatalf("Render failed: %v", err)
	}
	v.rendered = buf.String()
}

// Rendered returns the latest HTML.
func (v *View) Rendered() string {
	return v.rendered
}

// AssertText checks that the latest HTML contains text.
func (v *View) AssertText(text string) *View {
	v.t.Helper()
	if !strings.Contains(v.rendered, text) {
		v.t.Errorf("Text not found: %q\nRendered HTML:\n%s", text, v.rendered)
	}
	return v
}

// AssertNoText checks that the latest HTML does not contain text.
func (v *View) AssertNoText(text string) *View {
	v.t.Helper()
	if strings.Contains(v.rendered, text) {
		v.t.Errorf("Text should not exist: %q", text)
	}
	return v
}

// AssertAssign compares an assign of an AssignsProvider component.
func (v *View) AssertAssign(key string, expected any) *View {
	v.t.Helper()
	ap, ok := v.component.(core.AssignsProvider)
	if !ok {
		v.t.Errorf("Component %s does not publish assigns", v.component.Name())
		return v
	}
	actual := ap.Assigns().Get(key)
	if !reflect.DeepEqual(actual, expected) {
		v.t.Errorf("Assign %s mismatch:\n  Expected: %v (%T)\n  Actual:   %v (%T)",
			key, expected, expected, actual, actual)
	}
	return v
}

// Component returns the component under test.
func (v *View) Component() core.Component {
	return v.component
}

// Transport returns the mock transport behind the socket.
func (v *View) Transport() *MockTransport {
	return v.transport
}

// Socket returns the socket given to the component.
func (v *View) Socket() *core.Socket {
	return v.socket
}

// Events returns every pushed event in order.
func (v *View) Events() []Event {
	return v.events
}
