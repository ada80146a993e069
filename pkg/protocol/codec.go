package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	ErrInvalidMessage = errors.New("invalid message format")
	ErrUnknownCodec   = errors.New("unknown codec type")
)

// Codec turns messages into frames and back.
type Codec interface {
	Encode(msg *Message) ([]byte, error)
	Decode(data []byte) (*Message, error)
	Name() string
	// Binary reports whether frames travel as binary WebSocket messages.
	Binary() bool
}

// objectCodec encodes a Message as a keyed object.
type objectCodec struct {
	name      string
	binary    bool
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

// NewJSONCodec encodes messages as JSON objects.
func NewJSONCodec() Codec {
	return &objectCodec{name: "json", marshal: json.Marshal, unmarshal: json.Unmarshal}
}

// NewMsgPackCodec encodes messages as MessagePack maps in binary frames.
func NewMsgPackCodec() Codec {
	return &objectCodec{name: "msgpack", binary: true, marshal: msgpack.Marshal, unmarshal: msgpack.Unmarshal}
}

func (c *objectCodec) Encode(msg *Message) ([]byte, error) {
	return c.marshal(msg)
}

func (c *objectCodec) Decode(data []byte) (*Message, error) {
	msg := &Message{}
	if err := c.unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return msg, nil
}

func (c *objectCodec) Name() string { return c.name }
func (c *objectCodec) Binary() bool { return c.binary }

// PhoenixCodec speaks the Phoenix channel array format used by the browser
// client: [join_ref, ref, topic, event, payload]. Missing refs are null.
type PhoenixCodec struct{}

func NewPhoenixCodec() *PhoenixCodec {
	return &PhoenixCodec{}
}

func (c *PhoenixCodec) Encode(msg *Message) ([]byte, error) {
	return json.Marshal([5]any{orNull(msg.JoinRef), orNull(msg.Ref), msg.Topic, msg.Event, msg.Payload})
}

func (c *PhoenixCodec) Decode(data []byte) (*Message, error) {
	var frame []json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if len(frame) != 5 {
		return nil, fmt.Errorf("%w: want 5 elements, got %d", ErrInvalidMessage, len(frame))
	}

	msg := &Message{JoinRef: optionalString(frame[0]), Ref: optionalString(frame[1])}
	if err := json.Unmarshal(frame[2], &msg.Topic); err != nil {
		return nil, fmt.Errorf("%w: topic: %v", ErrInvalidMessage, err)
	}
	if err := json.Unmarshal(frame[3], &msg.Event); err != nil {
		return nil, fmt.Errorf("%w: event: %v", ErrInvalidMessage, err)
	}
	if err := json.Unmarshal(frame[4], &msg.Payload); err != nil || msg.Payload == nil {
		msg.Payload = map[string]any{}
	}
	return msg, nil
}

func (c *PhoenixCodec) Name() string { return "phoenix" }
func (c *PhoenixCodec) Binary() bool { return false }

func orNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// optionalString reads a string or null; anything else reads as "".
func optionalString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

var codecs = map[string]Codec{
	"json":    NewJSONCodec(),
	"msgpack": NewMsgPackCodec(),
	"phoenix": NewPhoenixCodec(),
}

// DefaultCodec is the codec the browser client speaks.
const DefaultCodec = "phoenix"

// Lookup returns the named codec. An empty name selects DefaultCodec.
func Lookup(name string) (Codec, error) {
	if name == "" {
		name = DefaultCodec
	}
	if c, ok := codecs[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
}

// Names lists the registered codecs, sorted.
func Names() []string {
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
