package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected is returned when no client is attached to a session.
var ErrNotConnected = errors.New("ws: session not connected")

const writeWait = 5 * time.Second

// Conn wraps a websocket connection so several goroutines may write to it.
type Conn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (c *Conn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.c.WriteJSON(v)
}

type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Conn
}

func NewHub() *Hub {
	return &Hub{conns: map[string]*Conn{}}
}

// Add attaches c to session id, replacing any earlier connection.
func (h *Hub) Add(id string, c *websocket.Conn) *Conn {
	wc := &Conn{c: c}
	h.mu.Lock()
	h.conns[id] = wc
	h.mu.Unlock()
	return wc
}

func (h *Hub) Get(id string) (*Conn, bool) {
	h.mu.RLock()
	c, ok := h.conns[id]
	h.mu.RUnlock()
	return c, ok
}

// Remove detaches c from session id unless a newer connection took its place.
func (h *Hub) Remove(id string, c *Conn) {
	h.mu.Lock()
	if cur, ok := h.conns[id]; ok && cur == c {
		delete(h.conns, id)
	}
	h.mu.Unlock()
}

// Send writes v as JSON to the client of session id.
func (h *Hub) Send(id string, v any) error {
	c, ok := h.Get(id)
	if !ok {
		return ErrNotConnected
	}
	return c.WriteJSON(v)
}
