package core

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

var (
	ErrSocketClosed = errors.New("socket is closed")
	ErrSendFailed   = errors.New("failed to send message")
)

// Transport delivers messages to one browser.
type Transport interface {
	Send(msg Message) error
	Close() error
	IsConnected() bool
}

// Message is one server-to-browser message.
type Message struct {
	Ref     string         `json:"ref,omitempty" msgpack:"ref,omitempty"`
	Topic   string         `json:"topic" msgpack:"topic"`
	Event   string         `json:"event" msgpack:"event"`
	Payload map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// Socket is the component's handle on its browser. It is safe for
// concurrent use.
type Socket struct {
	id        string
	transport Transport
	closed    atomic.Bool
	// Unix nanoseconds of the last send or received event.
	lastActivity atomic.Int64
}

func NewSocket(id string, transport Transport) *Socket {
	s := &Socket{id: id, transport: transport}
	s.UpdateActivity()
	return s
}

func (s *Socket) ID() string {
	return s.id
}

// Topic is the channel name the browser joins: "lv:" plus the socket ID.
func (s *Socket) Topic() string {
	return "lv:" + s.id
}

func (s *Socket) IsConnected() bool {
	return !s.closed.Load() && s.transport != nil && s.transport.IsConnected()
}

func (s *Socket) LastActivity() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

func (s *Socket) UpdateActivity() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// Send hands msg to the transport. Sends on a closed socket fail with
// ErrSocketClosed; transport failures wrap ErrSendFailed.
func (s *Socket) Send(msg Message) error {
	if !s.IsConnected() {
		return ErrSocketClosed
	}
	s.UpdateActivity()
	if err := s.transport.Send(msg); err != nil {
		if s.closed.Load() {
			return ErrSocketClosed
		}
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

// Push sends event on the socket's topic.
func (s *Socket) Push(event string, payload map[string]any) error {
	return s.Send(Message{Topic: s.Topic(), Event: event, Payload: payload})
}

// SendDiff pushes payload as a "diff" event. Empty payloads are dropped.
func (s *Socket) SendDiff(payload *DiffPayload) error {
	if payload == nil || payload.IsEmpty() {
		return nil
	}
	return s.Push("diff", payload.Wire())
}

// Close marks the socket closed and closes its transport once.
func (s *Socket) Close() error {
	if s.closed.Swap(true) || s.transport == nil {
		return nil
	}
	return s.transport.Close()
}
