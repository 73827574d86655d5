package realtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/adamavenir/huddle/internal/types"
)

const (
	// Time allowed to write a frame to the server.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the server.
	pongWait = 60 * time.Second

	// Pings are sent with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size accepted from the server.
	maxMessageSize = 64 * 1024

	sendBuffer = 64

	defaultReconnectAttempts = 5
	defaultReconnectDelay    = time.Second
)

var (
	ErrNotConnected = errors.New("realtime: not connected")
	ErrClosed       = errors.New("realtime: client closed")
	ErrSendQueue    = errors.New("realtime: send queue full")
)

// Handler receives decoded events in delivery order.
type Handler func(types.Event)

// Options configures Dial.
type Options struct {
	URL   string
	Token string

	ReconnectAttempts int
	ReconnectDelay    time.Duration

	// OnConnect runs on the connection goroutine after every successful
	// connect, before any frame is read. Use it to identify and rejoin rooms.
	OnConnect func()

	// OnDisconnect runs when reconnecting gives up.
	OnDisconnect func(error)

	Dialer *websocket.Dialer
	Logger *slog.Logger
	Now    func() time.Time
}

// Client is a websocket connection to the realtime server that reconnects on
// failure. Inbound frames are decoded and fanned out to handlers from a
// single goroutine.
type Client struct {
	opts   Options
	logger *slog.Logger

	mu        sync.Mutex
	handlers  []handlerEntry
	nextID    int
	connected bool
	closed    bool

	send   chan []byte
	stopCh chan struct{}
	wg     sync.WaitGroup

	connMu sync.Mutex
	conn   *websocket.Conn
}

type handlerEntry struct {
	id int
	fn Handler
}

// Dial connects to the server and starts the connection goroutine. The first
// connect must succeed; later drops are retried.
func Dial(ctx context.Context, opts Options) (*Client, error) {
	if opts.ReconnectAttempts <= 0 {
		opts.ReconnectAttempts = defaultReconnectAttempts
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.Dialer == nil {
		opts.Dialer = &websocket.Dialer{HandshakeTimeout: writeWait}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	c := &Client{
		opts:   opts,
		logger: opts.Logger,
		send:   make(chan []byte, sendBuffer),
		stopCh: make(chan struct{}),
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.attach(conn)
	c.wg.Add(1)
	go c.run(conn)
	return c, nil
}

// On registers a handler and returns a function that removes it.
func (c *Client) On(fn Handler) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.handlers = append(c.handlers, handlerEntry{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, h := range c.handlers {
			if h.id == id {
				c.handlers = append(c.handlers[:i:i], c.handlers[i+1:]...)
				return
			}
		}
	}
}

// Connected reports whether a connection is currently established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Publish queues an outbound event. It never waits on the network: errors
// mean the frame was not queued.
func (c *Client) Publish(event string, payload any) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !c.connected {
		return ErrNotConnected
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendQueue
	}
}

// Close stops reconnecting, closes the connection and waits for the
// connection goroutine to exit.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	close(c.stopCh)
	c.mu.Unlock()

	c.connMu.Lock()
	if c.conn != nil {
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = c.conn.Close()
	}
	c.connMu.Unlock()

	c.wg.Wait()
	return nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.opts.Token != "" {
		header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	conn, _, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (c *Client) run(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		err := c.serve(conn)
		if c.isClosed() {
			return
		}
		c.logger.Warn("realtime connection lost", "err", err)

		conn, err = c.reconnect()
		if err != nil {
			if c.isClosed() {
				return
			}
			c.logger.Error("realtime reconnect failed", "attempts", c.opts.ReconnectAttempts, "err", err)
			if c.opts.OnDisconnect != nil {
				c.opts.OnDisconnect(err)
			}
			return
		}
		if !c.attach(conn) {
			_ = conn.Close()
			return
		}
	}
}

// attach makes conn the current connection unless the client was closed.
func (c *Client) attach(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.connected = true
	return true
}

func (c *Client) reconnect() (*websocket.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= c.opts.ReconnectAttempts; attempt++ {
		select {
		case <-c.stopCh:
			return nil, ErrClosed
		case <-time.After(c.opts.ReconnectDelay):
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		go func() {
			select {
			case <-c.stopCh:
				cancel()
			case <-ctx.Done():
			}
		}()
		conn, err := c.dial(ctx)
		cancel()
		if err == nil {
			c.logger.Info("realtime reconnected", "attempt", attempt)
			return conn, nil
		}
		lastErr = err
		c.logger.Debug("realtime reconnect attempt failed", "attempt", attempt, "err", err)
	}
	return nil, lastErr
}

// serve runs the pumps for one connection until it fails or the client is
// closed.
func (c *Client) serve(conn *websocket.Conn) error {
	defer func() {
		c.connMu.Lock()
		c.conn = nil
		c.connMu.Unlock()
		_ = conn.Close()
	}()

	done := make(chan struct{})
	var pumps sync.WaitGroup
	pumps.Add(1)
	go func() {
		defer pumps.Done()
		c.writePump(conn, done)
	}()

	if c.opts.OnConnect != nil {
		c.opts.OnConnect()
	}
	err := c.readPump(conn)

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	close(done)
	pumps.Wait()
	return err
}

func (c *Client) readPump(conn *websocket.Conn) error {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		event, err := Decode(frame, c.opts.Now())
		if err != nil {
			c.logger.Debug("realtime frame skipped", "err", err)
			continue
		}
		c.deliver(event)
	}
}

func (c *Client) deliver(event types.Event) {
	c.mu.Lock()
	handlers := make([]Handler, len(c.handlers))
	for i, h := range c.handlers {
		handlers[i] = h.fn
	}
	c.mu.Unlock()
	for _, fn := range handlers {
		fn(event)
	}
}

func (c *Client) writePump(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case frame := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("realtime write failed", "err", err)
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
