package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/gabrielmiguelok/liveregister/pkg/logging"
	"github.com/gabrielmiguelok/liveregister/pkg/protocol"
)

// Origins decides which cross-origin pages may open a live connection.
// Same-origin pages and clients without an Origin header are always let in.
type Origins struct {
	// Allowed lists origins ("https://forms.example.com") or host patterns
	// ("*.example.com"). "*" admits every origin and belongs in development
	// configs only.
	Allowed []string
}

func (o Origins) acceptOptions() *websocket.AcceptOptions {
	opts := &websocket.AcceptOptions{}
	for _, origin := range o.Allowed {
		if origin == "*" {
			opts.InsecureSkipVerify = true
			continue
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			origin = u.Host
		}
		opts.OriginPatterns = append(opts.OriginPatterns, origin)
	}
	return opts
}

// WebSocket is a Transport over a server-side WebSocket. Frames use the
// codec's encoding; binary codecs travel in binary frames.
type WebSocket struct {
	cfg     Config
	origins Origins
	codec   protocol.Codec
	logger  logging.Logger
	q       *queue

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWebSocket creates an unconnected transport. A nil codec selects the
// Phoenix codec.
func NewWebSocket(cfg Config, origins Origins, codec protocol.Codec) *WebSocket {
	if codec == nil {
		codec = protocol.NewPhoenixCodec()
	}
	cfg = cfg.withDefaults()
	return &WebSocket{
		cfg:     cfg,
		origins: origins,
		codec:   codec,
		logger:  logging.NopLogger{},
		q:       newQueue(cfg.QueueSize),
	}
}

// SetLogger sets the logger for frame and connection errors.
func (t *WebSocket) SetLogger(l logging.Logger) {
	t.logger = l
}

// Codec returns the frame codec.
func (t *WebSocket) Codec() protocol.Codec {
	return t.codec
}

// Upgrade accepts the handshake and starts the connection loops. A refused
// origin is answered with 403 by the websocket library.
func (t *WebSocket) Upgrade(w http.ResponseWriter, r *http.Request) error {
	conn, err := websocket.Accept(w, r, t.origins.acceptOptions())
	if err != nil {
		return fmt.Errorf("accept websocket: %w", err)
	}
	conn.SetReadLimit(t.cfg.MaxMessageSize)

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	t.q.connected.Store(true)

	go t.readLoop(conn)
	go t.writeLoop(conn)
	go t.pingLoop(conn)
	return nil
}

// Send queues msg for the writer.
func (t *WebSocket) Send(msg *protocol.Message) error {
	return t.q.push(msg, t.cfg.WriteTimeout)
}

// Receive returns decoded inbound messages.
func (t *WebSocket) Receive() <-chan *protocol.Message {
	return t.q.in
}

// Done is closed when the connection ends.
func (t *WebSocket) Done() <-chan struct{} {
	return t.q.done
}

// IsConnected reports whether the handshake completed and the connection
// has not ended.
func (t *WebSocket) IsConnected() bool {
	return t.q.connected.Load()
}

// Close ends the connection. Later calls are no-ops.
func (t *WebSocket) Close() error {
	if !t.q.shutdown() {
		return nil
	}
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close(websocket.StatusNormalClosure, "closing")
}

func (t *WebSocket) readLoop(conn *websocket.Conn) {
	defer t.Close()

	for {
		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.ReadTimeout)
		_, data, err := conn.Read(ctx)
		cancel()
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				t.logger.Debug("websocket read ended", logging.Err(err))
			}
			return
		}

		msg, err := t.codec.Decode(data)
		if err != nil {
			t.logger.Warn("dropping undecodable frame",
				logging.String("codec", t.codec.Name()),
				logging.Err(err))
			continue
		}
		if !t.q.deliver(msg) {
			select {
			case <-t.q.done:
				return
			default:
				t.logger.Warn("receive queue full, dropping message", logging.String("event", msg.Event))
			}
		}
	}
}

func (t *WebSocket) writeLoop(conn *websocket.Conn) {
	frame := websocket.MessageText
	if t.codec.Binary() {
		frame = websocket.MessageBinary
	}

	for {
		select {
		case <-t.q.done:
			return
		case msg := <-t.q.out:
			data, err := t.codec.Encode(msg)
			if err != nil {
				t.logger.Error("encode frame", logging.String("event", msg.Event), logging.Err(err))
				continue
			}
			if err := t.write(conn, frame, data); err != nil {
				t.logger.Debug("websocket write failed", logging.Err(err))
				t.Close()
				return
			}
		}
	}
}

func (t *WebSocket) write(conn *websocket.Conn, frame websocket.MessageType, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.WriteTimeout)
	defer cancel()
	return conn.Write(ctx, frame, data)
}

func (t *WebSocket) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(t.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.q.done:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), t.cfg.WriteTimeout)
			_ = conn.Ping(ctx)
			cancel()
		}
	}
}
