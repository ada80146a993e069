package livetest

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/liveregister/pkg/core"
)

// MockTransport implements core.Transport and records what was pushed.
type MockTransport struct {
	ID string

	mu        sync.Mutex
	sent      []core.Message
	closed    bool
	sendError error
}

// NewMockTransport creates a connected mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{ID: "test-" + uuid.NewString()[:8]}
}

// Send records msg.
func (m *MockTransport) Send(msg core.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendError != nil {
		return m.sendError
	}
	if m.closed {
		return core.ErrSocketClosed
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// IsConnected reports whether Close has not been called.
func (m *MockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.closed
}

// SetError makes every later Send fail with err. Nil clears it.
func (m *MockTransport) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendError = err
}

// Sent returns a copy of the recorded messages.
func (m *MockTransport) Sent() []core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.Message(nil), m.sent...)
}

// SentCount returns the number of recorded messages.
func (m *MockTransport) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// LastSent returns the last recorded message, or the zero Message.
func (m *MockTransport) LastSent() core.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return core.Message{}
	}
	return m.sent[len(m.sent)-1]
}

// SentEvents returns the event names of the recorded messages in order.
func (m *MockTransport) SentEvents() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]string, len(m.sent))
	for i, msg := range m.sent {
		events[i] = msg.Event
	}
	return events
}

// Reset drops recorded messages and reopens the transport.
func (m *MockTransport) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
	m.closed = false
	m.sendError = nil
}
