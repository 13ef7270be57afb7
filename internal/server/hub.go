package server

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/camera-overlay/internal/overlay"
	"github.com/GriffinCanCode/camera-overlay/internal/transform"
)

// client is one connected rendering surface.
type client struct {
	id      string
	send    chan any
	limiter *rateLimiter
	dropped atomic.Uint64
}

func newClient() *client {
	return &client{
		id:      uuid.NewString(),
		send:    make(chan any, ClientSendBuffer),
		limiter: &rateLimiter{},
	}
}

// Hub fans overlay updates out to every connected client. It implements
// overlay.Surface: between DisableActions and EnableActions replacements are
// held back and sent as one unanimated message.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
	dropped atomic.Uint64 // across all clients, including departed ones

	// Transaction state, written by the presentation goroutine.
	txMu       sync.Mutex
	inTx       bool
	primitives *[]overlay.Primitive
	transform  *transform.Transform

	// Last state sent, for clients that connect later.
	seq       uint64
	current   []overlay.Primitive
	currentTf transform.Transform
}

// NewHub creates a hub with no clients.
func NewHub() *Hub {
	return &Hub{
		clients:   make(map[string]*client),
		current:   []overlay.Primitive{},
		currentTf: transform.Identity(),
	}
}

// Seed sets the state sent to new clients before the first update.
func (h *Hub) Seed(s overlay.Snapshot) {
	h.txMu.Lock()
	defer h.txMu.Unlock()
	h.current = s.Primitives
	h.currentTf = s.Transform
}

// DisableActions implements overlay.Surface.
func (h *Hub) DisableActions() {
	h.txMu.Lock()
	defer h.txMu.Unlock()
	h.inTx = true
}

// EnableActions implements overlay.Surface and flushes the transaction.
func (h *Hub) EnableActions() {
	h.txMu.Lock()
	defer h.txMu.Unlock()
	h.inTx = false
	if h.primitives == nil && h.transform == nil {
		return
	}
	h.publish(h.primitives, h.transform, false)
	h.primitives, h.transform = nil, nil
}

// SetPrimitives implements overlay.Surface.
func (h *Hub) SetPrimitives(ps []overlay.Primitive) {
	h.txMu.Lock()
	defer h.txMu.Unlock()
	if ps == nil {
		ps = []overlay.Primitive{}
	}
	if h.inTx {
		h.primitives = &ps
		return
	}
	h.publish(&ps, nil, true)
}

// SetTransform implements overlay.Surface.
func (h *Hub) SetTransform(t transform.Transform) {
	h.txMu.Lock()
	defer h.txMu.Unlock()
	if h.inTx {
		h.transform = &t
		return
	}
	h.publish(nil, &t, true)
}

// publish records and broadcasts an update. Caller holds txMu.
func (h *Hub) publish(ps *[]overlay.Primitive, t *transform.Transform, animated bool) {
	h.seq++
	msg := OverlayMessage{Type: TypeOverlay, Sequence: h.seq, Primitives: ps, Animated: animated}
	if ps != nil {
		h.current = *ps
	}
	if t != nil {
		h.currentTf = *t
		msg.Transform = transformMessage(*t)
	}
	h.Broadcast(msg)
}

// Broadcast queues msg for every client. A client whose queue is full misses
// the message.
func (h *Hub) Broadcast(msg any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			n := c.dropped.Add(1)
			h.dropped.Add(1)
			slog.Warn("client send queue full", "client_id", c.id, "dropped", n)
		}
	}
}

// Dropped counts messages lost to full client queues.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// register adds c and queues the current overlay as its first message.
func (h *Hub) register(c *client) {
	h.txMu.Lock()
	ps := h.current
	msg := OverlayMessage{
		Type:       TypeOverlay,
		Sequence:   h.seq,
		Primitives: &ps,
		Transform:  transformMessage(h.currentTf),
	}
	h.mu.Lock()
	h.clients[c.id] = c
	c.send <- msg
	h.mu.Unlock()
	h.txMu.Unlock()
}

// unregister removes c and closes its queue.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}
}
