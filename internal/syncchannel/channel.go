// Package syncchannel keeps a live control channel between the kiosk
// agent and the backend: a STOMP session over a websocket, subscribed
// to this kiosk's topic, with periodic status heartbeats flowing the
// other way.
package syncchannel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/kioskfleet/kiosk-fleet-go/internal/fleetapi"
)

const (
	dialTimeout    = 10 * time.Second
	connectTimeout = 10 * time.Second
	writeTimeout   = 10 * time.Second
)

// Handler receives every broker message delivered on the kiosk topic.
// It is called from the channel's read goroutine and must not block.
type Handler func(Message)

// HeartbeatFunc builds the payload for the next status heartbeat.
type HeartbeatFunc func() (interface{}, error)

// Channel maintains the broker session and transparently reconnects
// when it drops.
type Channel struct {
	endpoint  string
	identity  fleetapi.KioskIdentity
	handler   Handler
	heartbeat HeartbeatFunc
	logger    *logrus.Logger

	reconnectWait time.Duration
	heartbeatWait time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// Options configures a channel.
type Options struct {
	// Endpoint is the websocket URL of the broker, e.g.
	// ws://host:8080/ws/kiosk.
	Endpoint string
	Identity fleetapi.KioskIdentity
	Handler  Handler
	// Heartbeat supplies the status payload; nil disables heartbeats.
	Heartbeat        HeartbeatFunc
	ReconnectSeconds int
	HeartbeatSeconds int
	Logger           *logrus.Logger
}

// New creates a channel. Run must be called to connect.
func New(opts Options) *Channel {
	if opts.ReconnectSeconds <= 0 {
		opts.ReconnectSeconds = 5
	}
	if opts.HeartbeatSeconds <= 0 {
		opts.HeartbeatSeconds = 30
	}
	return &Channel{
		endpoint:      opts.Endpoint,
		identity:      opts.Identity,
		handler:       opts.Handler,
		heartbeat:     opts.Heartbeat,
		logger:        opts.Logger,
		reconnectWait: time.Duration(opts.ReconnectSeconds) * time.Second,
		heartbeatWait: time.Duration(opts.HeartbeatSeconds) * time.Second,
	}
}

// EndpointFromAPI derives the broker websocket URL from the REST base
// URL: scheme http(s) becomes ws(s) and the path is replaced with the
// broker's raw websocket endpoint (the SockJS fallback transports are
// not used).
func EndpointFromAPI(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", fmt.Errorf("invalid api url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws/websocket"
	u.RawQuery = ""
	return u.String(), nil
}

// Connected reports whether a broker session is currently up.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Run connects and keeps the session alive until ctx is cancelled.
// Each dropped session is retried after the reconnect interval.
func (c *Channel) Run(ctx context.Context) {
	for {
		if err := c.session(ctx); err != nil && ctx.Err() == nil {
			c.logger.WithError(err).Warn("sync channel session ended")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnectWait):
		}
	}
}

// session runs one connect-subscribe-read cycle.
func (c *Channel) session(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to dial broker: %w", err)
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.connected = false
		c.mu.Unlock()
	}()

	if err := c.stompConnect(conn); err != nil {
		return err
	}
	if err := c.subscribe(conn); err != nil {
		return err
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	c.logger.WithField("topic", c.topic()).Info("sync channel connected")

	done := make(chan struct{})
	defer close(done)
	go c.heartbeatLoop(ctx, done)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("broker read failed: %w", err)
		}
		f, err := parseFrame(data)
		if err != nil {
			c.logger.WithError(err).Warn("dropping malformed broker frame")
			continue
		}
		if f == nil {
			continue
		}
		switch f.command {
		case cmdMessage:
			c.dispatch(f)
		case cmdError:
			return fmt.Errorf("broker error: %s", strings.TrimSpace(string(f.body)))
		}
	}
}

// stompConnect performs the CONNECT handshake, presenting the kiosk
// identity as headers so the broker can authorize the subscription.
func (c *Channel) stompConnect(conn *websocket.Conn) error {
	f := newFrame(cmdConnect)
	f.headers["accept-version"] = "1.2"
	f.headers["host"] = "/"
	f.headers["X-Kiosk-PosId"] = c.identity.PosID
	f.headers["X-Kiosk-Id"] = c.identity.KioskID
	f.headers["X-Kiosk-No"] = fmt.Sprintf("%d", c.identity.KioskNo)
	if err := c.writeFrame(conn, f); err != nil {
		return fmt.Errorf("failed to send CONNECT: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(connectTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, data, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("no CONNECTED reply: %w", err)
	}
	reply, err := parseFrame(data)
	if err != nil || reply == nil {
		return fmt.Errorf("bad CONNECTED reply: %v", err)
	}
	if reply.command != cmdConnected {
		return fmt.Errorf("broker refused connection: %s %s", reply.command, strings.TrimSpace(string(reply.body)))
	}
	return nil
}

func (c *Channel) subscribe(conn *websocket.Conn) error {
	f := newFrame(cmdSubscribe)
	f.headers["id"] = uuid.NewString()
	f.headers["destination"] = c.topic()
	f.headers["ack"] = "auto"
	if err := c.writeFrame(conn, f); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.topic(), err)
	}
	return nil
}

func (c *Channel) topic() string {
	return "/topic/kiosk/" + c.identity.KioskID
}

func (c *Channel) dispatch(f *frame) {
	var msg Message
	if err := json.Unmarshal(f.body, &msg); err != nil {
		c.logger.WithError(err).Warn("dropping undecodable broker message")
		return
	}
	if msg.Type == "" {
		return
	}
	if c.handler != nil {
		c.handler(msg)
	}
}

// heartbeatLoop publishes a status payload to the kiosk status queue at
// the configured interval, for as long as the session lasts.
func (c *Channel) heartbeatLoop(ctx context.Context, done <-chan struct{}) {
	if c.heartbeat == nil {
		return
	}
	ticker := time.NewTicker(c.heartbeatWait)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if err := c.publishHeartbeat(); err != nil {
				c.logger.WithError(err).Warn("heartbeat publish failed")
			}
		}
	}
}

func (c *Channel) publishHeartbeat() error {
	payload, err := c.heartbeat()
	if err != nil {
		return fmt.Errorf("failed to build heartbeat payload: %w", err)
	}
	body, err := json.Marshal(map[string]interface{}{
		"kioskId": c.identity.KioskID,
		"status":  payload,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize heartbeat: %w", err)
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("channel is not connected")
	}

	f := newFrame(cmdSend)
	f.headers["destination"] = "/app/kiosk/status"
	f.headers["content-type"] = "application/json"
	f.body = body
	return c.writeFrame(conn, f)
}

func (c *Channel) writeFrame(conn *websocket.Conn, f *frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, f.marshal())
}
