// Package core holds the types shared by live pages, the router and the
// test harness: components, their sockets, assigns and server config.
package core

import (
	"context"
	"io"
)

// Component is one server-side page. The router keeps an instance per
// connection and never calls it from two goroutines at once.
type Component interface {
	// Name identifies the page in logs and errors.
	Name() string

	// Mount prepares state before the first render. session and params
	// come from the opening request.
	Mount(ctx context.Context, params Params, session Session) error

	Render(ctx context.Context) Renderer

	// HandleEvent applies one browser event. A returned error is reported
	// to the client and leaves the rendered page as it was.
	HandleEvent(ctx context.Context, event string, payload map[string]any) error

	// Terminate runs once when the connection goes away.
	Terminate(ctx context.Context, reason TerminateReason) error
}

// Renderer writes a page body.
type Renderer interface {
	Render(ctx context.Context, w io.Writer) error
}

// RendererFunc turns a function into a Renderer.
type RendererFunc func(ctx context.Context, w io.Writer) error

func (f RendererFunc) Render(ctx context.Context, w io.Writer) error {
	return f(ctx, w)
}

// Params are the query parameters of the opening request.
type Params map[string]string

// Session is request metadata handed to Mount.
type Session map[string]any

// String returns the string under key, or "".
func (s Session) String(key string) string {
	v, _ := s[key].(string)
	return v
}

// TerminateReason says why a connection ended.
type TerminateReason int

const (
	TerminateNormal TerminateReason = iota
	TerminateShutdown
	// TerminateTimeout is used when the session idled past its limit.
	TerminateTimeout
)

var terminateNames = [...]string{"normal", "shutdown", "timeout"}

func (r TerminateReason) String() string {
	if r < 0 || int(r) >= len(terminateNames) {
		return "unknown"
	}
	return terminateNames[r]
}

// BaseComponent gives pages a socket, an assigns store and no-op
// lifecycle callbacks. Embed it and override what the page needs.
type BaseComponent struct {
	socket  *Socket
	assigns *Assigns
}

// SetSocket is called by the router once the live connection exists.
func (bc *BaseComponent) SetSocket(s *Socket) {
	bc.socket = s
}

// Socket is nil while rendering a plain HTTP response.
func (bc *BaseComponent) Socket() *Socket {
	return bc.socket
}

// Assigns returns the store, creating it on first use.
func (bc *BaseComponent) Assigns() *Assigns {
	if bc.assigns == nil {
		bc.assigns = NewAssigns()
	}
	return bc.assigns
}

func (bc *BaseComponent) Mount(ctx context.Context, params Params, session Session) error {
	return nil
}

func (bc *BaseComponent) HandleEvent(ctx context.Context, event string, payload map[string]any) error {
	return nil
}

func (bc *BaseComponent) Terminate(ctx context.Context, reason TerminateReason) error {
	return nil
}

// AssignsProvider is implemented by pages that publish state through an
// Assigns store. The router consults its tracker to skip renders after
// events that changed nothing.
type AssignsProvider interface {
	Assigns() *Assigns
}
