package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxInboundFrame = 4096

type Options struct {
	IdleTimeout  time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

func DefaultOptions() Options {
	return Options{IdleTimeout: 30 * time.Second, WriteTimeout: 10 * time.Second, SendBuffer: 64}
}

func (o Options) pingInterval() time.Duration {
	return o.IdleTimeout * 9 / 10
}

// Client is one subscriber connection. A single writer goroutine drains send,
// which keeps per-connection delivery in publish order.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	opts   Options
	remote string
	now    func() time.Time
}

type inbound struct {
	Type domain.EventType `json:"type"`
}

type pongData struct {
	Time string `json:"time"`
}

type connectionData struct {
	Status string `json:"status"`
}

// Serve registers conn with the hub, acknowledges it and blocks until the connection ends.
func (h *Hub) Serve(conn *websocket.Conn, opts Options) {
	defaults := DefaultOptions()
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaults.SendBuffer
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaults.IdleTimeout
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaults.WriteTimeout
	}
	c := &Client{
		conn:   conn,
		send:   make(chan []byte, opts.SendBuffer),
		done:   make(chan struct{}),
		opts:   opts,
		remote: conn.RemoteAddr().String(),
		now:    time.Now,
	}

	c.reply(domain.NewEvent(domain.EventConnection, connectionData{Status: "connected"}))
	h.Register(c)

	go c.writePump()
	c.readPump(h.log)

	h.Unregister(c)
	c.close()
}

func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) reply(ev domain.Event) {
	msg, err := json.Marshal(ev)
	if err != nil {
		return
	}
	c.enqueue(msg)
}

func (c *Client) closing() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) extendDeadline() error {
	return c.conn.SetReadDeadline(c.now().Add(c.opts.IdleTimeout))
}

func (c *Client) readPump(log *zap.Logger) {
	c.conn.SetReadLimit(maxInboundFrame)
	_ = c.extendDeadline()
	c.conn.SetPongHandler(func(string) error { return c.extendDeadline() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("subscriber read ended", zap.String("remote", c.remote), zap.Error(err))
			}
			return
		}
		_ = c.extendDeadline()

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == domain.EventPing {
			c.reply(domain.NewEvent(domain.EventPong, pongData{Time: c.now().UTC().Format(time.RFC3339Nano)}))
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.pingInterval())
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(c.now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(c.now().Add(c.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
