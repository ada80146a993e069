package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecs_RoundTripEvent(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			codec, err := Lookup(name)
			require.NoError(t, err)

			in := EventMessage("lv:/level2", EventChange, map[string]any{"field": "position", "value": "manager"})
			in.Ref = "7"
			in.JoinRef = "1"

			data, err := codec.Encode(in)
			require.NoError(t, err)

			out, err := codec.Decode(data)
			require.NoError(t, err)

			assert.False(t, out.IsControl())
			assert.Equal(t, "7", out.Ref)
			assert.Equal(t, "1", out.JoinRef)
			assert.Equal(t, "lv:/level2", out.Topic)
			assert.Equal(t, EventChange, out.Event)
			assert.Equal(t, "manager", out.Payload["value"])
			assert.Equal(t, name == "msgpack", codec.Binary())
		})
	}
}

func TestPhoenixCodec_Decode(t *testing.T) {
	codec := NewPhoenixCodec()

	msg, err := codec.Decode([]byte(`[null,"2","lv:/","phx_join",null]`))
	require.NoError(t, err)
	assert.True(t, msg.IsControl())
	assert.Equal(t, "", msg.JoinRef)
	assert.NotNil(t, msg.Payload)

	_, err = codec.Decode([]byte(`["1","2","lv:/"]`))
	assert.True(t, errors.Is(err, ErrInvalidMessage))

	_, err = codec.Decode([]byte(`{malformed`))
	assert.True(t, errors.Is(err, ErrInvalidMessage))
}

func TestPhoenixCodec_EncodeNullRefs(t *testing.T) {
	data, err := NewPhoenixCodec().Encode(EventMessage("lv:/", EventDiff, map[string]any{"v": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `[null,null,"lv:/","diff",{"v":1}]`, string(data))
}

func TestReplyMessages(t *testing.T) {
	ok := OkReply("3", "lv:/", map[string]any{"state": "accepted"})
	assert.Equal(t, EventReply, ok.Event)
	assert.Equal(t, "3", ok.Ref)
	assert.Equal(t, "ok", ok.Payload["status"])

	bad := ErrorReply("4", "lv:/", "unknown event")
	assert.Equal(t, "error", bad.Payload["status"])
	assert.Equal(t, map[string]any{"reason": "unknown event"}, bad.Payload["response"])
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{"json", "msgpack", "phoenix"}, Names())

	c, err := Lookup("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCodec, c.Name())

	_, err = Lookup("xml")
	assert.True(t, errors.Is(err, ErrUnknownCodec))
}

func FuzzPhoenixDecode(f *testing.F) {
	f.Add([]byte(`[null,"1","lv:/","change",{"field":"name","value":"Jo"}]`))
	f.Add([]byte(`["1","2","lv:/level2","submit",null]`))
	f.Add([]byte(`[]`))
	f.Add([]byte(`{malformed`))

	codec := NewPhoenixCodec()

	f.Fuzz(func(t *testing.T, data []byte) {
		msg, err := codec.Decode(data)
		if err != nil {
			return
		}
		out, err := codec.Encode(msg)
		if err != nil {
			return
		}
		msg2, err := codec.Decode(out)
		if err != nil {
			t.Fatalf("failed to re-parse serialized message: %v", err)
		}
		if msg.Ref != msg2.Ref || msg.Topic != msg2.Topic || msg.Event != msg2.Event {
			t.Errorf("roundtrip mismatch: %+v != %+v", msg, msg2)
		}
	})
}
