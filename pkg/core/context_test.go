package core

import (
	"context"
	"testing"
)

func TestBuildContext_Socket(t *testing.T) {
	if SocketFrom(BuildContext(context.Background(), nil, nil, nil)) != nil {
		t.Error("plain render should carry no socket")
	}

	socket := NewSocket("s1", nil)
	ctx := BuildContext(context.Background(), socket, Session{"id": "x"}, Params{"a": "b"})
	if SocketFrom(ctx) != socket {
		t.Error("expected the live socket")
	}
}
