package livetest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gabrielmiguelok/liveregister/pkg/core"
)

type greeter struct {
	core.BaseComponent
	name    string
	mounted core.Params
}

func (g *greeter) Name() string { return "greeter" }

func (g *greeter) Mount(ctx context.Context, params core.Params, session core.Session) error {
	g.mounted = params
	g.name = params["name"]
	if g.name == "" {
		g.name = "nobody"
	}
	g.Assigns().Set("name", g.name)
	return nil
}

func (g *greeter) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	switch event {
	case "change":
		g.name, _ = payload["value"].(string)
		g.Assigns().Set("name", g.name)
		return g.Socket().Push("renamed", map[string]any{"name": g.name})
	case "submit":
		return nil
	}
	return fmt.Errorf("unknown event %q", event)
}

func (g *greeter) Render(ctx context.Context) core.Renderer {
	return core.RendererFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "<p>hello %s</p>", g.name)
		return err
	})
}

func TestMount_RendersAndWiresSocket(t *testing.T) {
	v := Mount(t, &greeter{}, WithParams(core.Params{"name": "Ann"}))

	v.AssertText("hello Ann").AssertAssign("name", "Ann")
	assert.NotNil(t, v.Component().(*greeter).Socket())
	assert.Equal(t, v.Transport().ID, v.Socket().ID())
}

func TestView_ChangePushesAndRerenders(t *testing.T) {
	v := Mount(t, &greeter{})

	v.AssertText("hello nobody").
		Change("name", "Bob").
		AssertText("hello Bob").
		AssertNoText("nobody")

	assert.Equal(t, []string{"renamed"}, v.Transport().SentEvents())
	assert.Equal(t, "Bob", v.Transport().LastSent().Payload["name"])
	assert.Len(t, v.Events(), 1)
}

func TestView_TryPushKeepsRenderOnError(t *testing.T) {
	v := Mount(t, &greeter{})

	err := v.TryPush("bogus", nil)
	assert.EqualError(t, err, `unknown event "bogus"`)
	v.AssertText("hello nobody")
	assert.Error(t, v.Events()[0].Err)
}

func TestView_Submit(t *testing.T) {
	v := Mount(t, &greeter{})
	v.Submit(map[string]any{"name": "x"})

	assert.Equal(t, map[string]any{"values": map[string]any{"name": "x"}}, v.Events()[0].Payload)
}

func TestMockTransport(t *testing.T) {
	m := NewMockTransport()
	assert.True(t, m.IsConnected())

	assert.NoError(t, m.Send(core.Message{Event: "a"}))
	boom := errors.New("boom")
	m.SetError(boom)
	assert.ErrorIs(t, m.Send(core.Message{Event: "b"}), boom)
	m.SetError(nil)

	assert.NoError(t, m.Close())
	assert.False(t, m.IsConnected())
	assert.ErrorIs(t, m.Send(core.Message{Event: "c"}), core.ErrSocketClosed)
	assert.Equal(t, 1, m.SentCount())

	m.Reset()
	assert.Equal(t, 0, m.SentCount())
	assert.True(t, m.IsConnected())
	assert.Equal(t, core.Message{}, m.LastSent())
}
