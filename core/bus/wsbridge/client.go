// Package wsbridge implements the bus transport over a websocket bridge that
// fronts the topic exchange. Publishes are framed as JSON text messages;
// inbound frames are dispatched to pattern subscriptions.
package wsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/koscakluka/relay-core/core/bus"
)

type frame struct {
	RoutingKey string          `json:"routing_key"`
	Payload    json.RawMessage `json:"payload"`
}

type subscription struct {
	pattern string
	handler bus.Handler
}

type Client struct {
	url     string
	options clientOptions

	writeMu sync.Mutex
	connMu  sync.RWMutex
	conn    *websocket.Conn

	subscriptionsMu sync.RWMutex
	subscriptions   []subscription

	reconnectMu sync.RWMutex
	onReconnect func()

	closed atomic.Bool
}

type clientOptions struct {
	publishTimeout       time.Duration
	reconnectInterval    time.Duration
	maxReconnectAttempts int
	onReconnect          func()
}

type ClientOption func(*clientOptions)

// WithPublishTimeout bounds a single publish attempt.
func WithPublishTimeout(timeout time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.publishTimeout = timeout
	}
}

// WithReconnectInterval sets the base delay between reconnect attempts; the
// effective delay scales with the attempt count.
func WithReconnectInterval(interval time.Duration) ClientOption {
	return func(o *clientOptions) {
		o.reconnectInterval = interval
	}
}

// WithMaxReconnectAttempts caps consecutive reconnect attempts before the
// client gives up.
func WithMaxReconnectAttempts(attempts int) ClientOption {
	return func(o *clientOptions) {
		o.maxReconnectAttempts = attempts
	}
}

// WithReconnectCallback is invoked after every re-established connection,
// before inbound dispatch resumes. The relay hooks journal replay here.
func WithReconnectCallback(callback func()) ClientOption {
	return func(o *clientOptions) {
		o.onReconnect = callback
	}
}

func NewClient(url string, opts ...ClientOption) *Client {
	client := &Client{
		url: url,
		options: clientOptions{
			publishTimeout:       5 * time.Second,
			reconnectInterval:    5 * time.Second,
			maxReconnectAttempts: 10,
		},
	}
	for _, opt := range opts {
		opt(&client.options)
	}
	client.onReconnect = client.options.onReconnect

	return client
}

// OnReconnect replaces the reconnect callback. Safe to call after Connect.
func (c *Client) OnReconnect(callback func()) {
	c.reconnectMu.Lock()
	c.onReconnect = callback
	c.reconnectMu.Unlock()
}

// Connect dials the bridge and starts the inbound read loop. The read loop
// owns reconnection; Connect fails only when the first dial does.
func (c *Client) Connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	c.setConn(conn)
	go c.readLoop(ctx, conn)
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to bus bridge: %w", err)
	}
	return conn, nil
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

func (c *Client) currentConn() *websocket.Conn {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn
}

func (c *Client) Publish(ctx context.Context, routingKey string, payload []byte) error {
	ctx, span := tracer.Start(ctx, "wsbridge.publish")
	defer span.End()
	span.SetAttributes(attribute.String("bus.routing_key", routingKey))

	conn := c.currentConn()
	if conn == nil || c.closed.Load() {
		span.SetStatus(codes.Error, bus.ErrNotConnected.Error())
		return bus.ErrNotConnected
	}

	data, err := json.Marshal(frame{RoutingKey: routingKey, Payload: payload})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to encode bus frame: %w", err)
	}

	deadline := time.Now().Add(c.options.publishTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := conn.SetWriteDeadline(deadline); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to set publish deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to publish to bus bridge: %w", err)
	}

	return nil
}

func (c *Client) Subscribe(pattern string, handler bus.Handler) error {
	if handler == nil {
		return fmt.Errorf("subscription handler must not be nil")
	}

	c.subscriptionsMu.Lock()
	c.subscriptions = append(c.subscriptions, subscription{pattern: pattern, handler: handler})
	c.subscriptionsMu.Unlock()
	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() || ctx.Err() != nil {
				return
			}

			logger.WarnContext(ctx, "bus bridge read failed, reconnecting", "error", err)
			conn = c.reconnect(ctx)
			if conn == nil {
				return
			}
			continue
		}

		var parsed frame
		if err := json.Unmarshal(message, &parsed); err != nil {
			logger.WarnContext(ctx, "dropping unparseable bus frame", "error", err)
			continue
		}

		c.dispatch(parsed)
	}
}

func (c *Client) dispatch(parsed frame) {
	c.subscriptionsMu.RLock()
	subscriptions := make([]subscription, len(c.subscriptions))
	copy(subscriptions, c.subscriptions)
	c.subscriptionsMu.RUnlock()

	for _, sub := range subscriptions {
		if bus.MatchTopic(sub.pattern, parsed.RoutingKey) {
			sub.handler(parsed.RoutingKey, parsed.Payload)
		}
	}
}

// reconnect retries the dial with an attempt-scaled delay until it succeeds
// or the attempt budget is spent. Returns the new connection, or nil when
// giving up.
func (c *Client) reconnect(ctx context.Context) *websocket.Conn {
	c.setConn(nil)

	for attempt := 1; attempt <= c.options.maxReconnectAttempts; attempt++ {
		delay := c.options.reconnectInterval * time.Duration(attempt)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil
		}
		if c.closed.Load() {
			return nil
		}

		conn, err := c.dial(ctx)
		if err != nil {
			logger.WarnContext(ctx, "bus bridge reconnect failed", "attempt", attempt, "error", err)
			continue
		}

		c.setConn(conn)
		c.reconnectMu.RLock()
		notify := c.onReconnect
		c.reconnectMu.RUnlock()
		if notify != nil {
			notify()
		}
		return conn
	}

	logger.ErrorContext(ctx, "bus bridge reconnect attempts exhausted", "attempts", c.options.maxReconnectAttempts)
	return nil
}

func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	conn := c.currentConn()
	if conn == nil {
		return nil
	}

	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second)) // Ignored on purpose

	return conn.Close()
}
