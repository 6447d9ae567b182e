package api

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"sectorview/database/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard and CLI tooling connect from arbitrary origins
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ProgressHub fans refresh progress events out to WebSocket clients,
// mirroring the SSE broker for consumers that prefer a socket.
type ProgressHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func NewProgressHub() *ProgressHub {
	return &ProgressHub{conns: make(map[*websocket.Conn]bool)}
}

// ServeHTTP upgrades the connection and registers it for progress
// events. The read loop exists only to detect the client going away.
func (h *ProgressHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = true
	h.mu.Unlock()
	log.Printf("Progress WebSocket connected. Total: %d", h.count())

	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends one progress event to every connected client. A
// failed write drops the client.
func (h *ProgressHub) Broadcast(event types.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(event); err != nil {
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

func (h *ProgressHub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if h.conns[conn] {
		delete(h.conns, conn)
		conn.Close()
	}
	h.mu.Unlock()
	log.Printf("Progress WebSocket disconnected. Total: %d", h.count())
}

func (h *ProgressHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
