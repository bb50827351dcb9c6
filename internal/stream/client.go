package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a frame to the viewer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the viewer
	pongWait = 60 * time.Second

	// Pings are sent with this period; it must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Largest frame a viewer may send
	maxMessageSize = 64 * 1024

	// Frames buffered per viewer before drops start
	outboxSize = 256
)

var (
	// ErrClientClosed is returned when sending to a viewer that has left
	ErrClientClosed = errors.New("stream: client closed")

	// ErrSendBufferFull is returned when a viewer's outbox is full
	ErrSendBufferFull = errors.New("stream: send buffer full")
)

// Client is one connected viewer
type Client struct {
	// ID is generated per connection
	ID string

	// Viewer is the name carried by the token, empty when the stream is open
	Viewer string

	conn *websocket.Conn
	hub  *Hub

	outbox   chan []byte
	outboxMu sync.Mutex
	closed   atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	joinedAt time.Time
	lastSeen atomic.Int64
}

// NewClient creates a viewer bound to conn. It is not registered with the hub
// until Serve is called.
func NewClient(id string, conn *websocket.Conn, hub *Hub) *Client {
	ctx, cancel := context.WithCancel(hub.ctx)
	c := &Client{
		ID:       id,
		conn:     conn,
		hub:      hub,
		outbox:   make(chan []byte, outboxSize),
		ctx:      ctx,
		cancel:   cancel,
		joinedAt: time.Now(),
	}
	c.touch()
	return c
}

// Serve registers the viewer and starts its read and write loops
func (c *Client) Serve() {
	c.hub.Register(c)
	go c.writeLoop()
	go c.readLoop()
}

// readLoop dispatches viewer frames to the hub until the connection fails
func (c *Client) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.cancel()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("viewer connection error", zap.String("client", c.ID), zap.Error(err))
			}
			return
		}
		c.touch()

		if err := c.hub.HandleMessage(c.ctx, c, frame); err != nil {
			c.hub.logger.Debug("viewer message rejected", zap.String("client", c.ID), zap.Error(err))
			c.SendError(err.Error())
		}
	}
}

// writeLoop writes queued frames, one frame per message, and keeps the
// connection alive with pings
func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			c.writeClose()
			return

		case frame, ok := <-c.outbox:
			if !ok {
				c.writeClose()
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) writeClose() {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// enqueue queues an encoded frame without blocking
func (c *Client) enqueue(frame []byte) error {
	c.outboxMu.Lock()
	defer c.outboxMu.Unlock()

	if c.closed.Load() {
		return ErrClientClosed
	}
	select {
	case c.outbox <- frame:
		return nil
	default:
		c.hub.dropped.Add(1)
		return ErrSendBufferFull
	}
}

// Send encodes message and queues it for this viewer only
func (c *Client) Send(message *Message) error {
	frame, err := message.encode()
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

// SendJSON queues a message of the given type with payload as its data
func (c *Client) SendJSON(messageType string, payload interface{}) error {
	return c.Send(&Message{Type: messageType, Payload: payload})
}

// SendError reports a problem to the viewer. Delivery is best effort.
func (c *Client) SendError(text string) {
	_ = c.SendJSON(TypeError, map[string]string{"message": text})
}

// closeOutbox closes the outbox exactly once
func (c *Client) closeOutbox() {
	c.outboxMu.Lock()
	defer c.outboxMu.Unlock()
	if c.closed.Swap(true) {
		return
	}
	close(c.outbox)
}

func (c *Client) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

// LastSeen returns when the viewer last sent a frame or a pong
func (c *Client) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

// ConnectedFor returns how long the viewer has been connected
func (c *Client) ConnectedFor() time.Duration {
	return time.Since(c.joinedAt)
}

// Close disconnects the viewer
func (c *Client) Close() {
	c.cancel()
	c.hub.Unregister(c)
}
