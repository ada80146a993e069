// Package protocol defines the wire messages exchanged between the browser
// client and live form pages, and the codecs that serialize them.
package protocol

// Control events of the Phoenix channel protocol the client speaks.
const (
	EventJoin         = "phx_join"
	EventLeave        = "phx_leave"
	EventReply        = "phx_reply"
	EventHeartbeat    = "heartbeat"
	EventPhxHeartbeat = "phx_heartbeat"
	EventDiff         = "diff"
)

// Page events sent by the client and by the form-post fallback.
const (
	EventChange  = "change"
	EventSubmit  = "submit"
	EventDismiss = "dismiss"
)

// Message is one frame between the browser and a live page.
type Message struct {
	// Ref correlates a reply with its request.
	Ref string `json:"ref,omitempty" msgpack:"ref,omitempty"`

	// JoinRef is the ref of the join that opened the page.
	JoinRef string `json:"join_ref,omitempty" msgpack:"join_ref,omitempty"`

	// Topic names the page, e.g. "lv:/level2".
	Topic string `json:"topic" msgpack:"topic"`

	// Event is a control event or a page event such as "change".
	Event string `json:"event,omitempty" msgpack:"event,omitempty"`

	Payload map[string]any `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// IsControl reports whether the message drives the channel rather than a
// page: join, leave and heartbeats.
func (m *Message) IsControl() bool {
	switch m.Event {
	case EventJoin, EventLeave, EventHeartbeat, EventPhxHeartbeat:
		return true
	}
	return false
}

// WithRef sets the ref and returns m.
func (m *Message) WithRef(ref string) *Message {
	m.Ref = ref
	return m
}

// EventMessage creates a message for event on topic.
func EventMessage(topic, event string, payload map[string]any) *Message {
	if payload == nil {
		payload = make(map[string]any)
	}
	return &Message{Topic: topic, Event: event, Payload: payload}
}

func reply(ref, topic, status string, response map[string]any) *Message {
	return EventMessage(topic, EventReply, map[string]any{
		"status":   status,
		"response": response,
	}).WithRef(ref)
}

// OkReply acknowledges the request ref.
func OkReply(ref, topic string, response map[string]any) *Message {
	return reply(ref, topic, "ok", response)
}

// ErrorReply rejects the request ref with reason.
func ErrorReply(ref, topic, reason string) *Message {
	return reply(ref, topic, "error", map[string]any{"reason": reason})
}
