// pkg/network/client.go
package network

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opd-ai/go-orrery/pkg/config"
	"github.com/opd-ai/go-orrery/pkg/engine"
	"github.com/opd-ai/go-orrery/pkg/event"
	"github.com/opd-ai/go-orrery/pkg/logging"
)

// ClientReadLimit bounds a single server message; the layout carries every
// orbit path and the corona shell.
const ClientReadLimit = 8 << 20

// Client event types
const (
	ClientReconnected     event.Type = "client_reconnected"
	ClientReconnectFailed event.Type = "client_reconnect_failed"
)

// ErrNotConnected is returned by operations that need a live connection
var ErrNotConnected = errors.New("not connected")

// TelemetryClient follows a TelemetryServer. It implements
// engine.FrameSource so a viewer can render a remote scene.
type TelemetryClient struct {
	url            string
	env            *config.EnvironmentConfig
	eventBus       *event.Bus
	logger         *logging.Logger
	networkService *NetworkService
	dialer         *websocket.Dialer

	mu         sync.RWMutex
	writeMu    sync.Mutex
	conn       *websocket.Conn
	connected  bool
	closed     bool
	layout     engine.SceneLayout
	frame      engine.FrameState
	haveFrame  bool
	latency    time.Duration
	pending    map[uint64]chan struct{}
	nonce      atomic.Uint64
	updated    chan struct{}
	closedChan chan struct{}

	connectionTimeout    time.Duration
	reconnectDelay       time.Duration
	maxReconnectAttempts int
}

// ClientOption configures a TelemetryClient
type ClientOption func(*TelemetryClient)

// WithClientLogger sets the logger
func WithClientLogger(l *logging.Logger) ClientOption {
	return func(c *TelemetryClient) { c.logger = l.WithComponent("telemetry_client") }
}

// WithReconnect sets how often and how far apart reconnects are attempted.
// Zero attempts disables reconnection.
func WithReconnect(attempts int, delay time.Duration) ClientOption {
	return func(c *TelemetryClient) {
		c.maxReconnectAttempts = attempts
		c.reconnectDelay = delay
	}
}

// NewTelemetryClient creates a client for the websocket URL. Connection
// events are published on eventBus.
func NewTelemetryClient(url string, env *config.EnvironmentConfig, eventBus *event.Bus, opts ...ClientOption) *TelemetryClient {
	if env == nil {
		env = config.DefaultEnvironmentConfig()
	}
	if eventBus == nil {
		eventBus = event.NewEventBus()
	}
	c := &TelemetryClient{
		url:                  url,
		env:                  env,
		eventBus:             eventBus,
		logger:               logging.Discard(),
		dialer:               &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		pending:              make(map[uint64]chan struct{}),
		updated:              make(chan struct{}, 1),
		closedChan:           make(chan struct{}),
		connectionTimeout:    30 * time.Second,
		reconnectDelay:       3 * time.Second,
		maxReconnectAttempts: 5,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.networkService = NewNetworkService("telemetry-client", env, c.logger)
	return c
}

// NetworkService returns the breaker guarding dials
func (c *TelemetryClient) NetworkService() *NetworkService {
	return c.networkService
}

// Connect dials the server and waits for the scene layout
func (c *TelemetryClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrNotConnected
	}
	c.mu.Unlock()

	var conn *websocket.Conn
	err := c.networkService.ExecuteWithRetry(ctx, func() error {
		dialCtx, cancel := context.WithTimeout(ctx, c.connectionTimeout)
		defer cancel()
		cn, resp, err := c.dialer.DialContext(dialCtx, c.url, nil)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusServiceUnavailable {
				return fmt.Errorf("server full: %w", err)
			}
			return err
		}
		conn = cn
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}
	conn.SetReadLimit(ClientReadLimit)

	layout, err := c.readLayout(conn)
	if err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrNotConnected
	}
	c.conn = conn
	c.connected = true
	c.layout = layout
	c.mu.Unlock()

	c.logger.Info(ctx, "connected to telemetry server", "url", c.url, "bodies", len(layout.Bodies))
	go c.messageLoop(conn)
	return nil
}

// readLayout reads the first message, which must be the scene layout
func (c *TelemetryClient) readLayout(conn *websocket.Conn) (engine.SceneLayout, error) {
	conn.SetReadDeadline(time.Now().Add(c.connectionTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return engine.SceneLayout{}, fmt.Errorf("failed to read scene layout: %w", err)
	}
	msg, err := decodeMessage(data)
	if err != nil {
		return engine.SceneLayout{}, err
	}
	if msg.Type != LayoutMessage || msg.Layout == nil {
		return engine.SceneLayout{}, fmt.Errorf("unexpected first message %q", msg.Type)
	}
	return *msg.Layout, nil
}

// Layout implements engine.FrameSource
func (c *TelemetryClient) Layout() engine.SceneLayout {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.layout
}

// Frame implements engine.FrameSource. It returns the newest frame received.
func (c *TelemetryClient) Frame() (engine.FrameState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frame, c.haveFrame && !c.closed
}

// WaitFrame blocks until a frame newer than after arrives
func (c *TelemetryClient) WaitFrame(ctx context.Context, after uint64) (engine.FrameState, error) {
	for {
		c.mu.RLock()
		frame, have, closed := c.frame, c.haveFrame, c.closed
		c.mu.RUnlock()
		if closed {
			return engine.FrameState{}, ErrNotConnected
		}
		if have && frame.Frame > after {
			return frame, nil
		}
		select {
		case <-c.updated:
		case <-c.closedChan:
		case <-ctx.Done():
			return engine.FrameState{}, ctx.Err()
		}
	}
}

// Connected reports whether the client has a live connection
func (c *TelemetryClient) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// GetLatency returns the round trip time of the last ping
func (c *TelemetryClient) GetLatency() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latency
}

// Ping measures the round trip time to the server
func (c *TelemetryClient) Ping(ctx context.Context) (time.Duration, error) {
	nonce := c.nonce.Add(1)
	reply := make(chan struct{})

	c.mu.Lock()
	c.pending[nonce] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, nonce)
		c.mu.Unlock()
	}()

	start := time.Now()
	if err := c.send(ctx, Message{Type: PingMessage, Nonce: nonce}); err != nil {
		return 0, err
	}

	select {
	case <-reply:
		rtt := time.Since(start)
		c.mu.Lock()
		c.latency = rtt
		c.mu.Unlock()
		return rtt, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// RequestLayout asks the server to resend the scene layout
func (c *TelemetryClient) RequestLayout(ctx context.Context) error {
	return c.send(ctx, Message{Type: LayoutRequestMessage})
}

// send writes one message to the server
func (c *TelemetryClient) send(ctx context.Context, msg Message) error {
	c.mu.RLock()
	conn, connected := c.conn, c.connected
	c.mu.RUnlock()
	if !connected {
		return ErrNotConnected
	}

	data, err := encodeMessage(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	timeout := c.env.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetWriteDeadline(deadline)
	return conn.WriteMessage(websocket.TextMessage, data)
}

// messageLoop handles incoming messages from the server
func (c *TelemetryClient) messageLoop(conn *websocket.Conn) {
	readTimeout := c.env.ReadTimeout
	if readTimeout > 0 {
		conn.SetPingHandler(func(appData string) error {
			conn.SetReadDeadline(time.Now().Add(readTimeout))
			return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
		})
	}

	for {
		if readTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(readTimeout))
		}
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(conn, err)
			return
		}

		msg, err := decodeMessage(data)
		if err != nil {
			c.logger.Debug(context.Background(), "ignoring malformed server message", "error", err)
			continue
		}
		c.handleMessage(msg)
	}
}

func (c *TelemetryClient) handleMessage(msg Message) {
	switch msg.Type {
	case FrameMessage:
		if msg.Frame == nil {
			return
		}
		c.mu.Lock()
		if !c.haveFrame || msg.Frame.Frame > c.frame.Frame {
			c.frame = *msg.Frame
			c.haveFrame = true
		}
		c.mu.Unlock()
		select {
		case c.updated <- struct{}{}:
		default:
		}

	case LayoutMessage:
		if msg.Layout == nil {
			return
		}
		c.mu.Lock()
		c.layout = *msg.Layout
		c.mu.Unlock()

	case PongMessage:
		c.mu.Lock()
		reply, ok := c.pending[msg.Nonce]
		delete(c.pending, msg.Nonce)
		c.mu.Unlock()
		if ok {
			close(reply)
		}

	case ErrorMessage:
		c.logger.Warn(context.Background(), "server reported an error", "error", msg.Error)

	default:
		// Ignore unknown message types
	}
}

// handleDisconnect handles an unexpected disconnection
func (c *TelemetryClient) handleDisconnect(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	wasConnected := c.connected && !c.closed
	c.connected = false
	c.mu.Unlock()
	conn.Close()

	if !wasConnected {
		return
	}

	c.logger.Warn(context.Background(), "lost telemetry connection", "url", c.url, "error", err)
	c.eventBus.Publish(event.NewClientEvent(event.ClientDisconnected, c, "", c.url))

	if c.maxReconnectAttempts > 0 {
		go c.attemptReconnect()
	}
}

// attemptReconnect tries to reconnect to the server
func (c *TelemetryClient) attemptReconnect() {
	for attempt := 1; attempt <= c.maxReconnectAttempts; attempt++ {
		select {
		case <-time.After(c.reconnectDelay):
		case <-c.closedChan:
			return
		}

		err := c.Connect(context.Background())
		if err == nil {
			c.eventBus.Publish(&event.BaseEvent{EventType: ClientReconnected, Source: c})
			return
		}
		c.logger.Debug(context.Background(), "reconnect attempt failed", "attempt", attempt, "error", err)
	}

	c.eventBus.Publish(&event.BaseEvent{EventType: ClientReconnectFailed, Source: c})
}

// Close disconnects from the server and stops reconnecting
func (c *TelemetryClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	close(c.closedChan)
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}
