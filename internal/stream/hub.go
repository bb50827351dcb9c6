// Package stream pushes feed notifications to browser viewers over
// WebSocket. The item tree never touches the hub directly: notifications are
// encoded on the caller's goroutine and handed over through the hub's
// buffered frame queue.
package stream

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	// staleAfter is how long a viewer may stay silent, pongs included
	staleAfter = 90 * time.Second

	// sweepEvery is how often the hub looks for stale viewers
	sweepEvery = 30 * time.Second

	// backlogSize is the number of recent broadcast frames replayed to a
	// viewer when it joins
	backlogSize = 64

	// queueSize bounds the frames waiting for the hub loop
	queueSize = 1024
)

// Hub tracks connected viewers and fans broadcast frames out to them
type Hub struct {
	mu      sync.RWMutex
	viewers map[*Client]struct{}

	joins  chan *Client
	leaves chan *Client
	frames chan []byte

	// backlog is owned by the Run goroutine
	backlog [][]byte

	handlersMu sync.RWMutex
	handlers   map[string]MessageHandler

	dropped atomic.Uint64
	logger  *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool
	done    chan struct{}
}

// NewHub creates a new Hub. It stops when ctx is cancelled or Shutdown is called.
func NewHub(ctx context.Context, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	hubCtx, cancel := context.WithCancel(ctx)

	return &Hub{
		viewers:  make(map[*Client]struct{}),
		joins:    make(chan *Client, 64),
		leaves:   make(chan *Client, 64),
		frames:   make(chan []byte, queueSize),
		handlers: make(map[string]MessageHandler),
		logger:   logger,
		ctx:      hubCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// RegisterHandler registers a handler for messages of one type sent by viewers
func (h *Hub) RegisterHandler(messageType string, handler MessageHandler) {
	h.handlersMu.Lock()
	defer h.handlersMu.Unlock()
	h.handlers[messageType] = handler
}

// Run is the hub loop. It returns after the hub context is cancelled.
func (h *Hub) Run() {
	if !h.running.CompareAndSwap(false, true) {
		return
	}
	defer close(h.done)

	sweep := time.NewTicker(sweepEvery)
	defer sweep.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.disconnectAll()
			return

		case c := <-h.joins:
			h.join(c)

		case c := <-h.leaves:
			h.leave(c)

		case frame := <-h.frames:
			h.remember(frame)
			h.fanOut(frame)

		case <-sweep.C:
			h.sweepStale()
		}
	}
}

func (h *Hub) join(c *Client) {
	h.mu.Lock()
	h.viewers[c] = struct{}{}
	total := len(h.viewers)
	h.mu.Unlock()

	for _, frame := range h.backlog {
		h.deliver(c, frame)
	}
	h.logger.Info("viewer joined",
		zap.String("client", c.ID),
		zap.String("viewer", c.Viewer),
		zap.Int("backlog", len(h.backlog)),
		zap.Int("total", total))
}

func (h *Hub) leave(c *Client) {
	h.mu.Lock()
	_, ok := h.viewers[c]
	if ok {
		delete(h.viewers, c)
	}
	total := len(h.viewers)
	h.mu.Unlock()

	if !ok {
		return
	}
	c.closeOutbox()
	h.logger.Info("viewer left", zap.String("client", c.ID), zap.Int("total", total))
}

func (h *Hub) remember(frame []byte) {
	if len(h.backlog) == backlogSize {
		copy(h.backlog, h.backlog[1:])
		h.backlog = h.backlog[:backlogSize-1]
	}
	h.backlog = append(h.backlog, frame)
}

func (h *Hub) fanOut(frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.viewers {
		h.deliver(c, frame)
	}
}

func (h *Hub) deliver(c *Client, frame []byte) {
	if err := c.enqueue(frame); err != nil {
		h.logger.Warn("frame not delivered", zap.String("client", c.ID), zap.Error(err))
	}
}

// Broadcast encodes message and queues it for every viewer. It never blocks:
// it returns false when the hub has stopped, the message cannot be encoded or
// the queue is full.
func (h *Hub) Broadcast(message *Message) bool {
	if h.ctx.Err() != nil {
		return false
	}
	frame, err := message.encode()
	if err != nil {
		h.logger.Error("failed to encode broadcast", zap.String("type", message.Type), zap.Error(err))
		return false
	}

	select {
	case h.frames <- frame:
		return true
	default:
		h.dropped.Add(1)
		h.logger.Warn("broadcast queue full, message dropped", zap.String("type", message.Type))
		return false
	}
}

// Register queues a viewer to join
func (h *Hub) Register(c *Client) {
	select {
	case h.joins <- c:
	case <-h.ctx.Done():
	}
}

// Unregister queues a viewer to leave
func (h *Hub) Unregister(c *Client) {
	select {
	case h.leaves <- c:
	case <-h.ctx.Done():
	}
}

// ClientCount returns the number of connected viewers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// Dropped returns the number of frames dropped on full queues or buffers
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// HandleMessage decodes a frame sent by a viewer and dispatches it by type.
// Unknown types are ignored.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, data []byte) error {
	var message Message
	if err := json.Unmarshal(data, &message); err != nil {
		return err
	}

	h.handlersMu.RLock()
	handler, ok := h.handlers[message.Type]
	h.handlersMu.RUnlock()

	if !ok {
		h.logger.Debug("no handler for message type", zap.String("type", message.Type))
		return nil
	}
	return handler(ctx, c, &message)
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	viewers := h.viewers
	h.viewers = make(map[*Client]struct{})
	h.mu.Unlock()

	h.logger.Info("hub stopping", zap.Int("viewers", len(viewers)))
	for c := range viewers {
		// The write loop exits on the cancelled context; the outbox stays open.
		c.closed.Store(true)
		if c.conn != nil {
			c.conn.Close()
		}
	}
}

func (h *Hub) sweepStale() {
	h.mu.RLock()
	var stale []*Client
	for c := range h.viewers {
		if time.Since(c.LastSeen()) > staleAfter {
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.logger.Info("dropping stale viewer", zap.String("client", c.ID))
		h.leave(c)
	}
}

// Shutdown stops the hub and waits for Run to return. It is safe to call
// more than once, and before Run was started.
func (h *Hub) Shutdown() {
	h.cancel()
	if h.running.Load() {
		<-h.done
	}
}
