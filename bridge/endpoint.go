package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agenthybrid/hybridctl/internal/metrics"
)

// ErrNotConnected is returned by Send when no extension peer is attached.
var ErrNotConnected = errors.New("bridge: no peer connected")

// State represents the lifecycle state of the transport endpoint.
type State string

const (
	StateStopped      State = "stopped"
	StateStarting     State = "starting"
	StateListening    State = "listening"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

// EndpointConfig configures the WebSocket listener.
type EndpointConfig struct {
	Host      string // listen host (default loopback)
	Port      int    // listen port (default 9333, the extension's well-known port)
	ReadLimit int64  // max inbound frame size in bytes (default 16 MiB, DOM dumps and screenshots are large)
}

// DefaultEndpointConfig returns the endpoint defaults.
func DefaultEndpointConfig() EndpointConfig {
	return EndpointConfig{
		Host:      "127.0.0.1",
		Port:      9333,
		ReadLimit: 16 << 20,
	}
}

// Endpoint owns the single duplex connection to the extension peer. It binds
// a local WebSocket listener that the extension dials into, runs one receive
// loop per connection, and routes response frames into the pending-call
// registry. Only one peer is serviced at a time; a second peer connecting
// replaces the first after its pending calls are cancelled.
//
// Endpoint implements http.Handler so tests can mount it on an httptest
// server instead of binding a real port.
type Endpoint struct {
	config   EndpointConfig
	registry *Registry
	logger   *zap.Logger
	metrics  *metrics.Collector

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	peerID      string
	connectedAt time.Time
	closed      bool
	server      *http.Server
	listener    net.Listener

	sendMu sync.Mutex // websocket allows one concurrent writer
}

// NewEndpoint creates an endpoint. The metrics collector may be nil.
func NewEndpoint(config EndpointConfig, registry *Registry, logger *zap.Logger, collector *metrics.Collector) *Endpoint {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Host == "" {
		config.Host = "127.0.0.1"
	}
	if config.ReadLimit == 0 {
		config.ReadLimit = 16 << 20
	}
	return &Endpoint{
		config:   config,
		registry: registry,
		logger:   logger.With(zap.String("component", "bridge_endpoint")),
		metrics:  collector,
		state:    StateStopped,
	}
}

// Start binds the listener and begins accepting peer connections. A bind
// failure is fatal to startup and reported; it is not retried.
func (e *Endpoint) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return errors.New("bridge: endpoint is closed")
	}
	if e.state != StateStopped {
		e.mu.Unlock()
		return fmt.Errorf("bridge: endpoint already started (state %s)", e.state)
	}
	e.state = StateStarting
	e.mu.Unlock()

	addr := net.JoinHostPort(e.config.Host, strconv.Itoa(e.config.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		e.mu.Lock()
		e.state = StateStopped
		e.mu.Unlock()
		return fmt.Errorf("bridge: bind %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler: e,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	e.mu.Lock()
	e.listener = ln
	e.server = srv
	e.state = StateListening
	e.mu.Unlock()

	e.logger.Info("bridge endpoint listening", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("bridge server stopped", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (e *Endpoint) Addr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listener == nil {
		return ""
	}
	return e.listener.Addr().String()
}

// State returns the current lifecycle state.
func (e *Endpoint) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Connected reports whether an extension peer is currently attached.
func (e *Endpoint) Connected() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn != nil && !e.closed
}

// Peer returns the attached peer's identity and attach time.
func (e *Endpoint) Peer() (id string, since time.Time, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return "", time.Time{}, false
	}
	return e.peerID, e.connectedAt, true
}

// ServeHTTP upgrades the request to a WebSocket connection and services the
// peer until it disconnects.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The extension connects from a chrome-extension:// origin, which
		// never matches the listener host.
		InsecureSkipVerify: true,
	})
	if err != nil {
		e.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(e.config.ReadLimit)

	e.servePeer(r.Context(), conn)
}

// Send writes one frame to the attached peer. Safe for concurrent callers.
func (e *Endpoint) Send(ctx context.Context, data []byte) error {
	e.mu.Lock()
	conn := e.conn
	e.mu.Unlock()

	if conn == nil {
		return ErrNotConnected
	}

	e.sendMu.Lock()
	defer e.sendMu.Unlock()

	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("bridge: websocket write: %w", err)
	}
	return nil
}

// Close shuts the endpoint down: the peer connection is closed, every
// pending call resolves with a disconnected outcome, and the listener is
// released. Idempotent.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	conn := e.conn
	e.conn = nil
	e.peerID = ""
	srv := e.server
	e.state = StateStopped
	e.mu.Unlock()

	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "endpoint shutting down")
	}
	e.registry.CancelAll(Disconnected())

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			_ = srv.Close()
		}
	}

	e.logger.Info("bridge endpoint stopped")
	return nil
}

// servePeer attaches the connection as the active peer and runs the receive
// loop until the connection drops or is replaced.
func (e *Endpoint) servePeer(ctx context.Context, conn *websocket.Conn) {
	peerID, ok := e.attachPeer(conn)
	if !ok {
		_ = conn.Close(websocket.StatusGoingAway, "endpoint closed")
		return
	}
	defer e.detachPeer(conn, peerID)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			e.logger.Info("peer connection closed",
				zap.String("peer_id", peerID),
				zap.Error(err))
			return
		}
		e.handleFrame(conn, peerID, data)
	}
}

// attachPeer installs conn as the active peer. The swap is a single critical
// section: concurrent attachers each take whatever peer is current and
// supersede it, so exactly one connection is active afterwards no matter how
// the dials interleave. The superseded peer's pending calls are cancelled
// inside the section; its socket is closed after, which is safe because it
// is no longer reachable through the endpoint.
func (e *Endpoint) attachPeer(conn *websocket.Conn) (string, bool) {
	id := uuid.NewString()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", false
	}
	old := e.conn
	oldID := e.peerID
	e.conn = conn
	e.peerID = id
	e.connectedAt = time.Now()
	e.state = StateConnected
	if old != nil {
		// CancelAll never blocks (outcome channels are buffered), so it can
		// run under the lock; a caller either raced the old peer and is
		// cancelled here, or registers against the new one.
		e.registry.CancelAll(Disconnected())
	}
	e.mu.Unlock()

	if old != nil {
		_ = old.Close(websocket.StatusNormalClosure, "replaced by new peer")
		e.logger.Warn("extension peer replaced", zap.String("old_peer_id", oldID))
		if e.metrics != nil {
			e.metrics.RecordConnection("replaced")
		}
	}

	e.logger.Info("extension peer connected", zap.String("peer_id", id))
	if e.metrics != nil {
		e.metrics.RecordConnection("connected")
	}
	return id, true
}

// detachPeer removes conn if it is still the active peer and unblocks every
// in-flight caller. This is the critical failure-propagation point: no call
// may be left hanging after a disconnect.
func (e *Endpoint) detachPeer(conn *websocket.Conn, peerID string) {
	e.mu.Lock()
	if e.conn != conn {
		// Already replaced by a newer peer; that path cancelled our calls.
		e.mu.Unlock()
		return
	}
	e.conn = nil
	e.peerID = ""
	closed := e.closed
	if !closed {
		e.state = StateDisconnected
	}
	e.mu.Unlock()

	e.registry.CancelAll(Disconnected())
	if e.metrics != nil {
		e.metrics.RecordConnection("disconnected")
		e.metrics.SetPendingCalls(0)
	}
	e.logger.Info("extension peer disconnected", zap.String("peer_id", peerID))

	// Re-arm for the next peer.
	e.mu.Lock()
	if !e.closed && e.state == StateDisconnected {
		e.state = StateListening
	}
	e.mu.Unlock()
}

// handleFrame decodes and dispatches one inbound frame. A single bad frame
// never terminates the connection. Response frames are only honored from the
// currently active peer: a superseded connection may still drain a few
// frames before its receive loop notices the close, and those must not
// resolve calls that belong to the replacement.
func (e *Endpoint) handleFrame(conn *websocket.Conn, peerID string, data []byte) {
	frame := DecodeFrame(data)
	if e.metrics != nil {
		e.metrics.RecordFrame(string(frame.Kind))
	}

	switch frame.Kind {
	case FrameHandshake:
		e.logger.Info("extension handshake",
			zap.String("peer_id", peerID),
			zap.Any("fields", frame.Handshake))

	case FrameResponse:
		if !e.isActive(conn) {
			e.logger.Warn("response from superseded peer dropped",
				zap.String("peer_id", peerID),
				zap.String("id", frame.Response.ID))
			if e.metrics != nil {
				e.metrics.RecordLateResponse()
			}
			return
		}
		if !e.registry.Resolve(frame.Response.ID, frame.Response.Outcome()) {
			if e.metrics != nil {
				e.metrics.RecordLateResponse()
			}
		}
		if e.metrics != nil {
			e.metrics.SetPendingCalls(e.registry.Len())
		}

	case FrameMalformed:
		e.logger.Warn("malformed frame dropped",
			zap.String("peer_id", peerID),
			zap.ByteString("raw", truncateRaw(frame.Raw)))
	}
}

// isActive reports whether conn is the currently attached peer connection.
func (e *Endpoint) isActive(conn *websocket.Conn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn == conn
}

// truncateRaw caps logged payloads so a huge bad frame cannot flood the log.
func truncateRaw(raw []byte) []byte {
	const max = 256
	if len(raw) <= max {
		return raw
	}
	return raw[:max]
}
