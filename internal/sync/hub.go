// Package sync streams canvas snapshots to connected clients over
// WebSocket. Every committed mutation fans out the full document, so a
// client's view is always a whole snapshot, never a diff.
package sync

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/canvashq/canvas-agent/internal/canvas"
	"github.com/canvashq/canvas-agent/internal/metrics"
	"github.com/canvashq/canvas-agent/internal/store"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// sendBuffer bounds per-client backlog. A client that cannot keep
	// up only ever needs the latest snapshot, so overflow drops the
	// oldest frame.
	sendBuffer = 8
)

// frame is the wire envelope for sync messages.
type frame struct {
	Type   string        `json:"type"`
	Canvas canvas.Canvas `json:"canvas"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub owns the set of connected sync clients and fans out snapshots.
type Hub struct {
	store     *store.Store
	collector *metrics.Metrics
	logger    zerolog.Logger
	upgrader  websocket.Upgrader

	mu          sync.Mutex
	clients     map[*client]struct{}
	unsubscribe func()
	closed      bool
}

// NewHub creates a hub and subscribes it to store mutations.
func NewHub(st *store.Store, collector *metrics.Metrics, logger zerolog.Logger) *Hub {
	h := &Hub{
		store:     st,
		collector: collector,
		logger:    logger.With().Str("component", "sync").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}

	h.unsubscribe = st.Subscribe(func(snap canvas.Canvas) {
		h.broadcast(snap)
	})

	return h
}

// Handler returns the HTTP handler for the sync endpoint.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
			return
		}

		cl := &client{
			conn: conn,
			send: make(chan []byte, sendBuffer),
		}

		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			conn.Close()
			return
		}
		h.clients[cl] = struct{}{}
		count := len(h.clients)

		// New clients get the current document immediately. Enqueued
		// under the lock so Close cannot slip in between registration
		// and the first frame.
		if payload, err := encodeSnapshot(h.store.Snapshot()); err == nil {
			cl.enqueue(payload)
		}
		h.mu.Unlock()

		if h.collector != nil {
			h.collector.SyncClients.Set(float64(count))
		}
		h.logger.Info().Str("remote", r.RemoteAddr).Int("clients", count).Msg("sync client connected")

		go h.writePump(cl)
		go h.readPump(cl)
	})
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients and stops snapshot fan-out.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	for _, cl := range clients {
		close(cl.send)
	}
	if h.collector != nil {
		h.collector.SyncClients.Set(0)
	}
}

func (h *Hub) broadcast(snap canvas.Canvas) {
	payload, err := encodeSnapshot(snap)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to encode snapshot")
		return
	}

	h.mu.Lock()
	for cl := range h.clients {
		cl.enqueue(payload)
	}
	h.mu.Unlock()
}

// enqueue adds a frame to the client's send queue, dropping the oldest
// pending frame when the queue is full.
func (c *client) enqueue(payload []byte) {
	for {
		select {
		case c.send <- payload:
			return
		default:
			select {
			case <-c.send:
			default:
			}
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(cl *client) {
	defer h.drop(cl)

	cl.conn.SetReadLimit(1 << 16)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Clients are read-only subscribers; inbound frames are drained
	// only to service control messages.
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(cl *client) {
	h.mu.Lock()
	_, ok := h.clients[cl]
	if ok {
		delete(h.clients, cl)
	}
	count := len(h.clients)
	closed := h.closed
	h.mu.Unlock()

	if ok {
		close(cl.send)
	}
	cl.conn.Close()

	if !closed {
		if h.collector != nil {
			h.collector.SyncClients.Set(float64(count))
		}
		h.logger.Info().Int("clients", count).Msg("sync client disconnected")
	}
}

func encodeSnapshot(snap canvas.Canvas) ([]byte, error) {
	return json.Marshal(frame{Type: "snapshot", Canvas: snap})
}
