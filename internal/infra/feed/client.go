// Package feed connects to the order book websocket and turns book updates
// into engine events. It never touches engine state directly.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"hexbet_go/internal/domain"
	"hexbet_go/internal/event"
	"hexbet_go/internal/infra"

	"github.com/gorilla/websocket"
)

// Recorder receives feed metrics. *infra.Metrics implements it.
type Recorder interface {
	RecordMessage()
	RecordReconnect()
	RecordDrop()
	RecordError()
	IncrementConnections()
	DecrementConnections()
}

// Client handles the feed WebSocket connection
type Client struct {
	cfg     infra.FeedConfig
	inbox   chan<- event.Event
	seq     *event.Sequence
	metrics Recorder
	now     func() time.Time

	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	kick      chan struct{}
}

// NewClient creates a feed client. Events go to inbox, numbered from seq.
func NewClient(cfg infra.FeedConfig, inbox chan<- event.Event, seq *event.Sequence, metrics Recorder) *Client {
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	return &Client{
		cfg:     cfg,
		inbox:   inbox,
		seq:     seq,
		metrics: metrics,
		now:     time.Now,
		kick:    make(chan struct{}, 1),
	}
}

// Connect starts the connection loop in the background.
func (c *Client) Connect(ctx context.Context) error {
	if c.cfg.URL == "" {
		return &domain.ConfigError{Field: "feed.url", Err: fmt.Errorf("empty url")}
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.connectionLoop(ctx)
	return nil
}

// connectionLoop owns the single pending reconnect wait.
func (c *Client) connectionLoop(ctx context.Context) {
	defer c.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := c.connect(ctx); err != nil {
			slog.Warn("⚠️ Feed connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			c.metrics.RecordError()
		} else {
			retryCount = 0
			reason := c.readLoop(ctx)
			c.emitState(false, reason)
		}

		delay := infra.ReconnectDelay(c.cfg, retryCount)
		retryCount++
		select {
		case <-ctx.Done():
			return
		case <-c.kick:
			slog.Info("🔄 Feed reconnect requested")
		case <-time.After(delay):
		}
		c.metrics.RecordReconnect()
	}
}

func (c *Client) connect(ctx context.Context) error {
	timeout := time.Duration(c.cfg.HandshakeTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialer := websocket.Dialer{HandshakeTimeout: timeout}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, make(http.Header))
	if err != nil {
		return domain.NewNetworkError("dial", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.metrics.IncrementConnections()

	if err := c.subscribe(); err != nil {
		c.closeConnection()
		return domain.NewNetworkError("subscribe", err)
	}

	slog.Info("🔌 Feed connected", slog.String("url", c.cfg.URL), slog.String("market", c.cfg.Market))
	c.emitState(true, "")
	return nil
}

func (c *Client) subscribe() error {
	b, err := SubscribeMessage(c.cfg.Market)
	if err != nil {
		return err
	}
	return c.threadSafeWrite(websocket.TextMessage, b)
}

func (c *Client) threadSafeWrite(msgType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return fmt.Errorf("no conn")
	}
	return c.conn.WriteMessage(msgType, data)
}

// readLoop runs until the connection fails and returns the reason.
func (c *Client) readLoop(ctx context.Context) string {
	readTimeout := time.Duration(c.cfg.ReadTimeoutMS) * time.Millisecond
	if readTimeout <= 0 {
		readTimeout = 60 * time.Second
	}

	for {
		select {
		case <-ctx.Done():
			c.closeConnection()
			return "shutdown"
		default:
		}

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return "closed"
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		_, msg, err := conn.ReadMessage()
		if err != nil {
			slog.Warn("🔌 Feed read failed", slog.Any("error", err))
			c.closeConnection()
			return err.Error()
		}
		c.handleMessage(msg)
	}
}

func (c *Client) handleMessage(msg []byte) {
	c.metrics.RecordMessage()

	d, err := Decode(msg)
	if err != nil {
		slog.Debug("⚠️ Undecodable feed message", slog.Any("error", err))
		return
	}

	switch d.Kind {
	case KindBook:
		if d.Quote.Market != "" && d.Quote.Market != c.cfg.Market {
			return
		}
		ev := event.AcquireTickEvent()
		ev.Seq = c.seq.Next()
		ev.Ts = c.now().UnixMilli()
		ev.Market = c.cfg.Market
		ev.Bid = d.Quote.Bid
		ev.Ask = d.Quote.Ask
		if !c.send(ev) {
			event.ReleaseTickEvent(ev)
		}
	case KindProxyError:
		slog.Warn("Feed proxy error", slog.String("message", d.Message), slog.Int("status", d.Status))
	case KindProxyInfo:
		slog.Info("Feed proxy info", slog.String("message", d.Message), slog.Int("status", d.Status))
	}
}

func (c *Client) emitState(connected bool, reason string) {
	c.send(&event.FeedStateEvent{
		BaseEvent: event.BaseEvent{Seq: c.seq.Next(), Ts: c.now().UnixMilli()},
		Connected: connected,
		Reason:    reason,
	})
}

func (c *Client) send(ev event.Event) bool {
	select {
	case c.inbox <- ev:
		return true
	default: // DROP
		c.metrics.RecordDrop()
		return false
	}
}

// Reconnect drops the current connection, or skips a pending reconnect wait.
func (c *Client) Reconnect() {
	c.closeConnection()
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// IsConnected reports whether a socket is open.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

func (c *Client) closeConnection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
		c.metrics.DecrementConnections()
	}
	c.connected = false
}

// Disconnect stops the connection loop and waits for it to exit.
func (c *Client) Disconnect() {
	if c.cancel != nil {
		c.cancel()
	}
	c.closeConnection()
	c.wg.Wait()
}
