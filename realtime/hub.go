// Package realtime pushes record updates to WebSocket subscribers grouped in rooms.
package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

const (
	writeWait  = 7 * time.Second
	pingPeriod = 30 * time.Second
	pongWait   = pingPeriod + 10*time.Second
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans messages out to the clients of a room. Rooms are keyed by record id.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint]map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{rooms: map[uint]map[*client]struct{}{}}
}

func (h *Hub) add(room uint, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.rooms[room]
	if r == nil {
		r = map[*client]struct{}{}
		h.rooms[room] = r
	}
	r[c] = struct{}{}
}

func (h *Hub) remove(room uint, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.rooms[room]
	if r == nil {
		return
	}
	delete(r, c)
	if len(r) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) list(room uint) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r := h.rooms[room]
	out := make([]*client, 0, len(r))
	for c := range r {
		out = append(out, c)
	}
	return out
}

// Subscribers returns the number of clients in a room.
func (h *Hub) Subscribers(room uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Broadcast sends payload as JSON to every client in room. Clients that fail
// the write are dropped.
func (h *Hub) Broadcast(room uint, payload interface{}) {
	if h == nil {
		return
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("ws broadcast marshal failed", zap.Uint("room", room), zap.Error(err))
		return
	}
	for _, c := range h.list(room) {
		if err := c.writeText(raw); err != nil {
			h.remove(room, c)
			_ = c.close()
		}
	}
}

// Serve upgrades the request and keeps the client in room until it disconnects.
// hello, when non-nil, is sent right after the upgrade.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, room uint, hello interface{}) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Debug("ws upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn}
	h.add(room, c)
	defer func() {
		h.remove(room, c)
		_ = c.close()
	}()

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if hello != nil {
		if err := c.writeJSON(hello); err != nil {
			return
		}
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			// inbound messages are ignored; reading surfaces closes and pongs
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-readDone:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (c *client) writeText(raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

func (c *client) writeJSON(v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.writeText(raw)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait))
}

func (c *client) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}
