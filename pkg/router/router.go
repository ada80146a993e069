// Package router serves live components over plain HTTP and WebSocket.
//
// A live route answers three ways on the same path: GET renders the page,
// POST runs one event from form-encoded values and re-renders (the no-script
// fallback), and a WebSocket upgrade starts a message loop that sends slot
// diffs after every event.
package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gabrielmiguelok/liveregister/pkg/core"
	"github.com/gabrielmiguelok/liveregister/pkg/limits"
	"github.com/gabrielmiguelok/liveregister/pkg/logging"
	"github.com/gabrielmiguelok/liveregister/pkg/metrics"
	"github.com/gabrielmiguelok/liveregister/pkg/pool"
	"github.com/gabrielmiguelok/liveregister/pkg/protocol"
	"github.com/gabrielmiguelok/liveregister/pkg/transport"
)

var (
	ErrNilRenderer      = errors.New("component returned nil renderer")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// EventField names the form field that selects the event on POST.
// Without it the fallback runs "submit". Other fields starting with an
// underscore, such as the CSRF token, are not passed to the component.
const EventField = "_event"

// Router handles HTTP routing for live components.
type Router struct {
	mux          *http.ServeMux
	routes       map[string]*LiveRoute
	middleware   []Middleware
	errorHandler ErrorHandler

	config  core.Config
	codec   protocol.Codec
	logger  logging.Logger
	metrics *metrics.Metrics
	limiter *limits.ConnectionLimiter

	sessions *SessionManager

	mu sync.RWMutex
}

// LiveRoute binds a path to a component factory.
type LiveRoute struct {
	Path       string
	Component  func() core.Component
	Middleware []Middleware
}

// Middleware wraps an HTTP handler.
type Middleware func(http.Handler) http.Handler

// ErrorHandler writes a response for a failed request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Option configures a Router.
type Option func(*Router)

// WithConfig sets the server configuration.
func WithConfig(cfg core.Config) Option {
	return func(r *Router) { r.config = cfg }
}

// WithCodec sets the live message codec.
func WithCodec(c protocol.Codec) Option {
	return func(r *Router) { r.codec = c }
}

// WithLogger sets the router logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// WithMetrics sets where live traffic is counted. The default is
// metrics.Default.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// New creates a router.
func New(opts ...Option) *Router {
	r := &Router{
		mux:     http.NewServeMux(),
		routes:  make(map[string]*LiveRoute),
		config:  core.DefaultConfig(),
		logger:  logging.NopLogger{},
		metrics: metrics.Default,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.limiter = limits.NewConnectionLimiter(r.config.MaxConnectionsPerIP)
	if r.codec == nil {
		c, err := protocol.Lookup(r.config.Codec)
		if err != nil {
			c = protocol.NewPhoenixCodec()
		}
		r.codec = c
	}
	r.sessions = NewSessionManager(SessionManagerConfig{
		MaxSessions: r.config.MaxSessions,
		SessionTTL:  r.config.Timeouts.SessionIdle,
	})
	r.errorHandler = r.defaultErrorHandler
	return r
}

func (r *Router) defaultErrorHandler(w http.ResponseWriter, req *http.Request, err error) {
	r.logger.Error("request failed",
		logging.String("path", req.URL.Path),
		logging.Err(err))
	msg := http.StatusText(http.StatusInternalServerError)
	if r.config.Debug {
		msg = err.Error()
	}
	http.Error(w, msg, http.StatusInternalServerError)
}

// Use adds middleware applied to every route registered afterwards.
func (r *Router) Use(mw Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, mw)
}

// SetErrorHandler replaces the error handler.
func (r *Router) SetErrorHandler(h ErrorHandler) {
	r.errorHandler = h
}

// Sessions returns the live session manager.
func (r *Router) Sessions() *SessionManager {
	return r.sessions
}

// Metrics returns the metrics the router records into.
func (r *Router) Metrics() *metrics.Metrics {
	return r.metrics
}

// Limiter returns the per-address connection limiter.
func (r *Router) Limiter() *limits.ConnectionLimiter {
	return r.limiter
}

// Codec returns the live message codec.
func (r *Router) Codec() protocol.Codec {
	return r.codec
}

// Live registers a live route. The path is matched exactly.
func (r *Router) Live(path string, component func() core.Component, mw ...Middleware) {
	route := &LiveRoute{Path: path, Component: component, Middleware: mw}

	r.mu.Lock()
	r.routes[path] = route
	r.mu.Unlock()

	r.mux.Handle(path, r.wrap(r.handleLive(route), route.Middleware))
}

// Handle registers a plain handler behind the global middleware.
func (r *Router) Handle(pattern string, handler http.Handler) {
	r.mux.Handle(pattern, r.wrap(handler, nil))
}

// HandleFunc registers a plain handler function.
func (r *Router) HandleFunc(pattern string, handler http.HandlerFunc) {
	r.Handle(pattern, handler)
}

// Routes lists the registered live paths.
func (r *Router) Routes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	paths := make([]string, 0, len(r.routes))
	for p := range r.routes {
		paths = append(paths, p)
	}
	return paths
}

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) wrap(h http.Handler, route []Middleware) http.Handler {
	for i := len(route) - 1; i >= 0; i-- {
		h = route[i](h)
	}
	r.mu.RLock()
	global := append([]Middleware(nil), r.middleware...)
	r.mu.RUnlock()
	for i := len(global) - 1; i >= 0; i-- {
		h = global[i](h)
	}
	return h
}

func (r *Router) handleLive(route *LiveRoute) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path != route.Path {
			http.NotFound(w, req)
			return
		}
		switch {
		case isWebSocketRequest(req):
			r.handleWebSocket(w, req, route)
		case req.Method == http.MethodGet || req.Method == http.MethodHead:
			r.renderPage(w, req, route)
		case req.Method == http.MethodPost:
			r.handlePost(w, req, route)
		default:
			w.Header().Set("Allow", "GET, HEAD, POST")
			http.Error(w, ErrMethodNotAllowed.Error(), http.StatusMethodNotAllowed)
		}
	}
}

func (r *Router) mount(req *http.Request, route *LiveRoute) (core.Component, context.Context, error) {
	component := route.Component()
	params := extractParams(req)
	session := extractSession(req)
	ctx := core.BuildContext(req.Context(), nil, session, params)
	if err := component.Mount(ctx, params, session); err != nil {
		return nil, nil, fmt.Errorf("mount %s: %w", component.Name(), err)
	}
	return component, ctx, nil
}

func (r *Router) renderPage(w http.ResponseWriter, req *http.Request, route *LiveRoute) {
	component, ctx, err := r.mount(req, route)
	if err != nil {
		r.errorHandler(w, req, err)
		return
	}
	defer component.Terminate(ctx, core.TerminateNormal)
	r.writePage(w, req, ctx, component, http.StatusOK)
}

// handlePost runs a single event against a freshly mounted component.
func (r *Router) handlePost(w http.ResponseWriter, req *http.Request, route *LiveRoute) {
	if err := req.ParseForm(); err != nil {
		http.Error(w, "malformed form body", http.StatusBadRequest)
		return
	}
	component, ctx, err := r.mount(req, route)
	if err != nil {
		r.errorHandler(w, req, err)
		return
	}
	defer component.Terminate(ctx, core.TerminateNormal)

	event, payload := formPayload(req.PostForm)
	if err := component.HandleEvent(ctx, event, payload); err != nil {
		r.logger.Warn("fallback event rejected",
			logging.String("component", component.Name()),
			logging.String("event", event),
			logging.Err(err))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	r.writePage(w, req, ctx, component, http.StatusOK)
}

func (r *Router) writePage(w http.ResponseWriter, req *http.Request, ctx context.Context, component core.Component, status int) {
	renderer := component.Render(ctx)
	if renderer == nil {
		r.errorHandler(w, req, ErrNilRenderer)
		return
	}

	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	if err := renderer.Render(ctx, buf); err != nil {
		r.errorHandler(w, req, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if req.Method != http.MethodHead {
		_, _ = w.Write(buf.Bytes())
	}
}

func (r *Router) transportConfig() transport.Config {
	return transport.Config{
		ReadTimeout:    r.config.Timeouts.WebSocketRead,
		WriteTimeout:   r.config.Timeouts.WebSocketWrite,
		MaxMessageSize: r.config.MaxMessageSize,
	}
}

func (r *Router) handleWebSocket(w http.ResponseWriter, req *http.Request, route *LiveRoute) {
	ws := transport.NewWebSocket(r.transportConfig(), transport.Origins{Allowed: r.config.AllowedOrigins}, r.codec)
	ws.SetLogger(r.logger)

	if r.sessions.Count() >= r.sessions.Max() {
		r.metrics.ConnectionsRejected.Inc("sessions")
		http.Error(w, ErrTooManySessions.Error(), http.StatusServiceUnavailable)
		return
	}
	ip := limits.ClientIP(req, r.config.TrustProxyHeaders)
	if !r.limiter.Acquire(ip) {
		r.metrics.ConnectionsRejected.Inc("per_ip")
		r.logger.Warn("live connection refused",
			logging.String("ip", ip),
			logging.Int("limit", r.limiter.Max()))
		http.Error(w, ErrTooManyConnections.Error(), http.StatusTooManyRequests)
		return
	}
	if err := ws.Upgrade(w, req); err != nil {
		r.limiter.Release(ip)
		r.logger.Warn("websocket upgrade failed",
			logging.String("path", req.URL.Path),
			logging.Err(err))
		return
	}

	socketID := uuid.NewString()
	socket := core.NewSocket(socketID, NewTransportAdapter(ws))

	component := route.Component()
	if sc, ok := component.(interface{ SetSocket(*core.Socket) }); ok {
		sc.SetSocket(socket)
	}

	params := extractParams(req)
	session := extractSession(req)
	lv, err := r.sessions.Create(socketID, component, params, session)
	if err != nil {
		r.limiter.Release(ip)
		r.metrics.ConnectionsRejected.Inc("sessions")
		_ = ws.Close()
		return
	}
	lv.Transport = ws
	lv.Socket = socket
	lv.RemoteIP = ip
	r.metrics.ConnectionsTotal.Inc()
	r.metrics.ConnectionsActive.Inc()

	r.logger.Debug("live session opened",
		logging.String("session", lv.ID),
		logging.String("component", component.Name()))

	// The connection outlives the upgrade request.
	ctx := core.BuildContext(context.Background(), socket, session, params)
	ctx = logging.ContextWithLogger(ctx, r.logger.With(logging.String("session", lv.ID)))
	go r.messageLoop(ctx, lv)
}

// messageLoop serializes every event of one connection.
func (r *Router) messageLoop(ctx context.Context, lv *Session) {
	defer r.disconnect(lv, core.TerminateNormal)

	recv := lv.Transport.Receive()
	for {
		select {
		case msg, ok := <-recv:
			if !ok {
				return
			}
			lv.UpdateActivity()
			lv.Socket.UpdateActivity()

			switch msg.Event {
			case protocol.EventHeartbeat, protocol.EventPhxHeartbeat:
				r.sendReply(lv, msg, nil)
			case protocol.EventJoin:
				r.handleJoin(ctx, lv, msg)
			case protocol.EventLeave:
				r.sendReply(lv, msg, nil)
				return
			default:
				r.handleEvent(ctx, lv, msg)
			}
		case <-lv.Transport.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Router) handleJoin(ctx context.Context, lv *Session, msg *protocol.Message) {
	lv.SetJoinRef(msg.JoinRef)

	if !lv.IsMounted() {
		if err := lv.Component.Mount(ctx, lv.Params, lv.Session); err != nil {
			r.sendError(lv, msg, err)
			return
		}
		lv.SetMounted(true)
	}

	html, err := r.render(ctx, lv.Component)
	if err != nil {
		r.sendError(lv, msg, err)
		return
	}

	// Seed slot hashes so the first event only sends what it changed.
	_, err = r.buildDiff(lv, html)
	if err != nil {
		r.sendError(lv, msg, err)
		return
	}
	if ap, ok := lv.Component.(core.AssignsProvider); ok {
		ap.Assigns().Tracker().Flush()
	}

	r.sendReply(lv, msg, map[string]any{
		"topic":    lv.Topic,
		"rendered": html,
	})
}

func (r *Router) handleEvent(ctx context.Context, lv *Session, msg *protocol.Message) {
	if !lv.IsMounted() {
		r.sendError(lv, msg, ErrNotJoined)
		return
	}

	evCtx := ctx
	if t := r.config.Timeouts.ComponentEvent; t > 0 {
		var cancel context.CancelFunc
		evCtx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	payload := msg.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	r.metrics.EventsTotal.Inc(msg.Event)
	if err := lv.Component.HandleEvent(evCtx, msg.Event, payload); err != nil {
		r.metrics.EventErrors.Inc(msg.Event)
		logging.L(ctx).Debug("event rejected",
			logging.String("event", msg.Event),
			logging.Err(err))
		r.sendError(lv, msg, err)
		return
	}

	if err := r.renderAndSendDiff(evCtx, lv); err != nil {
		r.sendError(lv, msg, err)
		return
	}
	r.sendReply(lv, msg, nil)
}

// renderAndSendDiff renders and pushes changed slots. Components that
// publish assigns are not rendered when nothing changed.
func (r *Router) renderAndSendDiff(ctx context.Context, lv *Session) error {
	if ap, ok := lv.Component.(core.AssignsProvider); ok {
		tracker := ap.Assigns().Tracker()
		if !tracker.HasChanges() {
			return nil
		}
		defer tracker.Flush()
	}

	start := time.Now()
	html, err := r.render(ctx, lv.Component)
	if err != nil {
		return err
	}
	r.metrics.RenderDuration.ObserveDuration(time.Since(start))
	payload, err := r.buildDiff(lv, html)
	if err != nil {
		return err
	}
	r.metrics.DiffSize.Observe(float64(payload.Size()))
	return lv.Socket.SendDiff(payload)
}

func (r *Router) render(ctx context.Context, component core.Component) (string, error) {
	renderer := component.Render(ctx)
	if renderer == nil {
		return "", ErrNilRenderer
	}
	buf := pool.GetBuffer()
	defer pool.PutBuffer(buf)
	if err := renderer.Render(ctx, buf); err != nil {
		return "", fmt.Errorf("render %s: %w", component.Name(), err)
	}
	return buf.String(), nil
}

// buildDiff compares slot hashes against the previous render.
func (r *Router) buildDiff(lv *Session, html string) (*core.DiffPayload, error) {
	textSlots, htmlSlots := extractSlots(html)
	prev := lv.SlotHashes()
	next := make(map[string]uint64, len(textSlots)+len(htmlSlots))

	payload := &core.DiffPayload{
		Version:   lv.NextVersion(),
		Slots:     make(map[string]string),
		HTMLSlots: make(map[string]string),
	}
	for id, content := range textSlots {
		h := hashSlot(content)
		next[id] = h
		if prev == nil || prev[id] != h {
			payload.Slots[id] = content
		}
	}
	for id, content := range htmlSlots {
		h := hashSlot(content)
		next[id] = h
		if prev == nil || prev[id] != h {
			payload.HTMLSlots[id] = content
		}
	}
	lv.SetSlotHashes(next)

	if len(next) == 0 {
		payload.Full = html
	}
	return payload, nil
}

func (r *Router) disconnect(lv *Session, reason core.TerminateReason) {
	if !r.sessions.Remove(lv.ID) {
		return
	}
	_ = lv.Component.Terminate(context.Background(), reason)
	if lv.Socket != nil {
		_ = lv.Socket.Close()
	}
	if lv.RemoteIP != "" {
		r.limiter.Release(lv.RemoteIP)
	}
	r.metrics.ConnectionsActive.Dec()
	if lv.Transport != nil {
		_ = lv.Transport.Close()
	}
	r.logger.Debug("live session closed",
		logging.String("session", lv.ID),
		logging.String("reason", reason.String()))
}

// Shutdown terminates every live session.
func (r *Router) Shutdown(ctx context.Context) error {
	for _, lv := range r.sessions.All() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.disconnect(lv, core.TerminateShutdown)
	}
	return nil
}

// StartJanitor drops sessions idle longer than the configured limit.
func (r *Router) StartJanitor(ctx context.Context) {
	interval := r.config.Timeouts.SessionCleanup
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, lv := range r.sessions.Expired() {
					r.disconnect(lv, core.TerminateTimeout)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (r *Router) sendReply(lv *Session, msg *protocol.Message, response map[string]any) {
	reply := protocol.OkReply(msg.Ref, lv.Topic, response)
	reply.JoinRef = lv.JoinRef()
	if err := lv.Transport.Send(reply); err != nil {
		r.logger.Debug("reply dropped", logging.Err(err))
	}
}

func (r *Router) sendError(lv *Session, msg *protocol.Message, err error) {
	reply := protocol.ErrorReply(msg.Ref, lv.Topic, err.Error())
	reply.JoinRef = lv.JoinRef()
	if sendErr := lv.Transport.Send(reply); sendErr != nil {
		r.logger.Debug("error reply dropped", logging.Err(sendErr))
	}
}

// formPayload turns a posted form into an event name and payload.
// Repeated keys become string slices.
func formPayload(form map[string][]string) (string, map[string]any) {
	event := protocol.EventSubmit
	values := make(map[string]any, len(form))
	for key, vs := range form {
		if key == EventField {
			if len(vs) > 0 && vs[0] != "" {
				event = vs[0]
			}
			continue
		}
		if strings.HasPrefix(key, "_") {
			continue
		}
		switch len(vs) {
		case 0:
		case 1:
			values[key] = vs[0]
		default:
			values[key] = append([]string(nil), vs...)
		}
	}
	return event, map[string]any{"values": values}
}

func extractSession(req *http.Request) core.Session {
	session := make(core.Session)
	if id := logging.RequestIDFromContext(req.Context()); id != "" {
		session["request_id"] = id
	}
	return session
}

func extractParams(req *http.Request) core.Params {
	params := make(core.Params)
	for key, values := range req.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return params
}

func isWebSocketRequest(req *http.Request) bool {
	return strings.EqualFold(req.Header.Get("Upgrade"), "websocket")
}
