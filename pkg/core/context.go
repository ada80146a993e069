package core

import "context"

type contextKey int

const (
	socketKey contextKey = iota
	sessionKey
	paramsKey
)

// BuildContext returns the context component callbacks run with. socket
// is nil for plain HTTP renders.
func BuildContext(ctx context.Context, socket *Socket, session Session, params Params) context.Context {
	if socket != nil {
		ctx = context.WithValue(ctx, socketKey, socket)
	}
	ctx = context.WithValue(ctx, sessionKey, session)
	return context.WithValue(ctx, paramsKey, params)
}

// SocketFrom returns the live socket of ctx, or nil outside a live
// connection.
func SocketFrom(ctx context.Context) *Socket {
	s, _ := ctx.Value(socketKey).(*Socket)
	return s
}
