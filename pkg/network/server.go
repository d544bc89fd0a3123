// pkg/network/server.go
package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/engine"
	"github.com/opd-ai/go-orrery/pkg/event"
	"github.com/opd-ai/go-orrery/pkg/logging"
	"github.com/opd-ai/go-orrery/pkg/validation"
)

const (
	sendBuffer  = 16
	ReadLimit   = 4 * validation.MaxMessageSize
	WSPath      = "/ws"
	LayoutPath  = "/scene"
	pingDivisor = 2
)

// Snapshotter is the read side of a running simulation
type Snapshotter interface {
	Layout() engine.SceneLayout
	Snapshot() engine.FrameState
}

// Recorder receives telemetry measurements. *metrics.Collector implements it.
type Recorder interface {
	ClientConnected()
	ClientDisconnected()
	MessageSent(msgType string, bytes int)
	FrameDropped()
	MessageRejected(reason string)
}

type noopRecorder struct{}

func (noopRecorder) ClientConnected()        {}
func (noopRecorder) ClientDisconnected()     {}
func (noopRecorder) MessageSent(string, int) {}
func (noopRecorder) FrameDropped()           {}
func (noopRecorder) MessageRejected(string)  {}

// ServerOption configures a TelemetryServer
type ServerOption func(*TelemetryServer)

// WithServerLogger sets the logger
func WithServerLogger(l *logging.Logger) ServerOption {
	return func(s *TelemetryServer) { s.logger = l.WithComponent("telemetry_server") }
}

// WithServerRecorder sets the metrics recorder
func WithServerRecorder(r Recorder) ServerOption {
	return func(s *TelemetryServer) { s.recorder = r }
}

// WithServerEventBus publishes client connect and disconnect events on bus
func WithServerEventBus(b *event.Bus) ServerOption {
	return func(s *TelemetryServer) { s.bus = b }
}

// TelemetryServer streams simulation frames to websocket clients. Each
// client gets the scene layout on connect, then frames at the update rate.
type TelemetryServer struct {
	source    Snapshotter
	env       *config.EnvironmentConfig
	logger    *logging.Logger
	recorder  Recorder
	bus       *event.Bus
	validator *validation.MessageValidator
	upgrader  websocket.Upgrader
	mux       *http.ServeMux

	clients     map[string]*peer
	pending     int // admitted but not yet upgraded
	clientsLock sync.RWMutex
	nextClient  atomic.Uint64
	lastFrame   atomic.Uint64
	listening   atomic.Value // string

	updateRate time.Duration
	maxClients int

	httpServer *http.Server
	listener   net.Listener
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// peer is one connected websocket client
type peer struct {
	id      string
	remote  string
	conn    *websocket.Conn
	send    chan outbound
	breaker *NetworkService
	done    chan struct{}
	once    sync.Once
}

type outbound struct {
	typ  MessageType
	data []byte
}

func (p *peer) close() {
	p.once.Do(func() {
		close(p.done)
		p.conn.Close()
	})
}

// NewTelemetryServer creates a server over source using the limits in env
func NewTelemetryServer(source Snapshotter, env *config.EnvironmentConfig, opts ...ServerOption) *TelemetryServer {
	if env == nil {
		env = config.DefaultEnvironmentConfig()
	}
	rateHz := env.UpdateRate
	if rateHz <= 0 {
		rateHz = 20
	}
	s := &TelemetryServer{
		source:     source,
		env:        env,
		logger:     logging.Discard(),
		recorder:   noopRecorder{},
		bus:        event.NewEventBus(),
		validator:  validation.NewMessageValidator(env.MessageRate, env.ClientBurst),
		clients:    make(map[string]*peer),
		updateRate: time.Second / time.Duration(rateHz),
		maxClients: env.MaxClients,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			// Telemetry is read-only; any origin may watch.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc(WSPath, s.handleWebSocket)
	s.mux.HandleFunc(LayoutPath, s.handleLayout)
	return s
}

// Handle mounts an extra handler, such as /metrics or /health, on the
// server's mux.
func (s *TelemetryServer) Handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, h)
}

// Handler returns the HTTP handler serving the websocket and scene endpoints
func (s *TelemetryServer) Handler() http.Handler {
	return s.mux
}

// Start listens on address and begins broadcasting frames
func (s *TelemetryServer) Start(address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start telemetry server: %w", err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: s.env.ReadTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(ctx, "telemetry server stopped serving", err)
		}
	}()
	go func() {
		defer s.wg.Done()
		s.Run(ctx)
	}()

	s.listening.Store(ln.Addr().String())
	s.logger.Info(ctx, "telemetry server started", "address", ln.Addr().String())
	return nil
}

// Addr returns the listening address after Start
func (s *TelemetryServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenerAddress returns the listening address, or "" when the server is
// not accepting connections.
func (s *TelemetryServer) ListenerAddress() string {
	addr, _ := s.listening.Load().(string)
	return addr
}

// Stop disconnects every client and shuts the HTTP server down
func (s *TelemetryServer) Stop(ctx context.Context) error {
	s.listening.Store("")
	if s.cancel != nil {
		s.cancel()
	}

	s.clientsLock.Lock()
	for _, p := range s.clients {
		p.close()
	}
	s.clientsLock.Unlock()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.wg.Wait()
	s.validator.Close()

	s.logger.Info(ctx, "telemetry server stopped")
	return err
}

// Run broadcasts a frame to every client at the update rate until ctx is
// done. Frames that did not advance since the last broadcast are skipped.
func (s *TelemetryServer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.updateRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.BroadcastFrame()
		}
	}
}

// BroadcastFrame sends the current snapshot to all clients. It reports
// whether a new frame was sent.
func (s *TelemetryServer) BroadcastFrame() bool {
	frame := s.source.Snapshot()
	if frame.Frame == 0 || frame.Frame == s.lastFrame.Load() {
		return false
	}
	s.lastFrame.Store(frame.Frame)

	data, err := encodeMessage(Message{Type: FrameMessage, Frame: &frame})
	if err != nil {
		s.logger.Error(context.Background(), "failed to encode frame", err, "frame", frame.Frame)
		return false
	}

	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()
	for _, p := range s.clients {
		select {
		case p.send <- outbound{typ: FrameMessage, data: data}:
		default:
			s.recorder.FrameDropped()
		}
	}
	return true
}

// ClientCount returns the number of connected clients
func (s *TelemetryServer) ClientCount() int {
	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()
	return len(s.clients)
}

func (s *TelemetryServer) handleLayout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.source.Layout()); err != nil {
		s.logger.Error(r.Context(), "failed to write scene layout", err)
	}
}

// admit reserves a client slot. The count includes connections still being
// upgraded, so concurrent handshakes cannot exceed maxClients.
func (s *TelemetryServer) admit() bool {
	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()
	if s.maxClients > 0 && len(s.clients)+s.pending >= s.maxClients {
		return false
	}
	s.pending++
	return true
}

// release gives back a reservation, registering p in its place when not nil
func (s *TelemetryServer) release(p *peer) {
	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()
	s.pending--
	if p != nil {
		s.clients[p.id] = p
	}
}

// handleWebSocket upgrades a client connection and starts its pumps
func (s *TelemetryServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.admit() {
		s.logger.Warn(r.Context(), "rejecting connection, server full",
			"remote_addr", r.RemoteAddr, "max_clients", s.maxClients)
		http.Error(w, "server full", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.release(nil)
		// Upgrade has already replied to the client.
		s.logger.Debug(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	id := fmt.Sprintf("client-%d", s.nextClient.Add(1))
	p := &peer{
		id:      id,
		remote:  r.RemoteAddr,
		conn:    conn,
		send:    make(chan outbound, sendBuffer),
		breaker: NewNetworkService(id, s.env, s.logger),
		done:    make(chan struct{}),
	}
	conn.SetReadLimit(ReadLimit)

	layout := s.source.Layout()
	data, err := encodeMessage(Message{Type: LayoutMessage, Layout: &layout})
	if err != nil {
		s.logger.Error(r.Context(), "failed to encode layout", err)
		s.release(nil)
		conn.Close()
		return
	}
	p.send <- outbound{typ: LayoutMessage, data: data}
	s.release(p)

	s.recorder.ClientConnected()
	s.logger.Info(r.Context(), "client connected", "client_id", id, "remote_addr", p.remote)
	s.bus.Publish(event.NewClientEvent(event.ClientConnected, s, id, p.remote))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.writePump(p)
	}()
	s.readPump(p)
	s.removeClient(p)
}

// readPump handles inbound messages until the connection fails
func (s *TelemetryServer) readPump(p *peer) {
	ctx := logging.WithCorrelationID(context.Background(), p.id)
	readTimeout := s.env.ReadTimeout
	if readTimeout > 0 {
		p.conn.SetReadDeadline(time.Now().Add(readTimeout))
		p.conn.SetPongHandler(func(string) error {
			return p.conn.SetReadDeadline(time.Now().Add(readTimeout))
		})
	}

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug(ctx, "client read failed", "error", err)
			}
			return
		}
		if readTimeout > 0 {
			p.conn.SetReadDeadline(time.Now().Add(readTimeout))
		}
		s.handleClientMessage(ctx, p, data)
	}
}

// handleClientMessage validates and answers one inbound message
func (s *TelemetryServer) handleClientMessage(ctx context.Context, p *peer, data []byte) {
	if err := s.validator.ValidateMessage(data, p.id); err != nil {
		s.recorder.MessageRejected(rejectReason(err))
		s.logger.Warn(ctx, "rejected client message", "client_id", p.id, "error", err)
		s.reply(p, Message{Type: ErrorMessage, Error: err.Error()})
		return
	}

	msg, err := decodeMessage(data)
	if err != nil {
		s.recorder.MessageRejected("invalid")
		s.reply(p, Message{Type: ErrorMessage, Error: err.Error()})
		return
	}

	switch msg.Type {
	case PingMessage:
		s.reply(p, Message{Type: PongMessage, Nonce: msg.Nonce})
	case LayoutRequestMessage:
		layout := s.source.Layout()
		s.reply(p, Message{Type: LayoutMessage, Layout: &layout})
	default:
		s.recorder.MessageRejected("unknown_type")
		s.reply(p, Message{Type: ErrorMessage, Error: fmt.Sprintf("unknown message type %q", msg.Type)})
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, validation.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, validation.ErrMessageTooBig):
		return "too_big"
	default:
		return "invalid"
	}
}

// reply queues msg for p, dropping it if the client is not keeping up
func (s *TelemetryServer) reply(p *peer, msg Message) {
	data, err := encodeMessage(msg)
	if err != nil {
		s.logger.Error(context.Background(), "failed to encode reply", err, "client_id", p.id)
		return
	}
	select {
	case p.send <- outbound{typ: msg.Type, data: data}:
	default:
	}
}

// writePump drains the send queue and keeps the connection alive with
// websocket pings. Writes go through the peer's circuit breaker; once it
// opens the client is dropped.
func (s *TelemetryServer) writePump(p *peer) {
	ctx := logging.WithCorrelationID(context.Background(), p.id)
	var ping <-chan time.Time
	if s.env.ReadTimeout > 0 {
		t := time.NewTicker(s.env.ReadTimeout / pingDivisor)
		defer t.Stop()
		ping = t.C
	}

	write := func(msgType int, data []byte) error {
		return p.breaker.Execute(ctx, func() error {
			if s.env.WriteTimeout > 0 {
				p.conn.SetWriteDeadline(time.Now().Add(s.env.WriteTimeout))
			}
			return p.conn.WriteMessage(msgType, data)
		})
	}

	defer p.close()
	for {
		select {
		case <-p.done:
			return
		case out := <-p.send:
			if err := write(websocket.TextMessage, out.data); err != nil {
				s.logger.Debug(ctx, "client write failed", "error", err)
				return
			}
			s.recorder.MessageSent(string(out.typ), len(out.data))
		case <-ping:
			if err := write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// removeClient removes a client from the server
func (s *TelemetryServer) removeClient(p *peer) {
	p.close()

	s.clientsLock.Lock()
	_, present := s.clients[p.id]
	delete(s.clients, p.id)
	s.clientsLock.Unlock()
	if !present {
		return
	}

	s.validator.Forget(p.id)
	s.recorder.ClientDisconnected()
	s.logger.Info(context.Background(), "client disconnected", "client_id", p.id)
	s.bus.Publish(event.NewClientEvent(event.ClientDisconnected, s, p.id, p.remote))
}
