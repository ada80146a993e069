package router

import (
	"github.com/gabrielmiguelok/liveregister/pkg/core"
	"github.com/gabrielmiguelok/liveregister/pkg/protocol"
	"github.com/gabrielmiguelok/liveregister/pkg/transport"
)

// TransportAdapter lets a core.Socket push through a transport.Transport.
type TransportAdapter struct {
	t transport.Transport
}

// NewTransportAdapter wraps t.
func NewTransportAdapter(t transport.Transport) *TransportAdapter {
	return &TransportAdapter{t: t}
}

// Send converts msg to a protocol message and queues it.
func (a *TransportAdapter) Send(msg core.Message) error {
	out := protocol.EventMessage(msg.Topic, msg.Event, msg.Payload)
	out.Ref = msg.Ref
	return a.t.Send(out)
}

// Close closes the underlying transport.
func (a *TransportAdapter) Close() error {
	return a.t.Close()
}

// IsConnected reports the transport state.
func (a *TransportAdapter) IsConnected() bool {
	return a.t.IsConnected()
}

// Transport returns the wrapped transport.
func (a *TransportAdapter) Transport() transport.Transport {
	return a.t
}
