// server/internal/socket/hub.go
package socket

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks all connected WebSocket clients, keyed by user id. The mutex
// guards the connection map and serializes writes; gorilla connections allow
// at most one concurrent writer. Pickup state never lives here.
type Hub struct {
	clients map[string]*websocket.Conn
	mu      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*websocket.Conn),
	}
}

// Register adds a client connection to the hub.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[userID] = conn
	log.Printf("WebSocket client registered: %s", userID)
}

// Unregister removes a client connection from the hub.
func (h *Hub) Unregister(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[userID]; ok {
		delete(h.clients, userID)
		log.Printf("WebSocket client unregistered: %s", userID)
	}
}

// Send delivers a message to one client. A missing client (offline) is not
// an error.
func (h *Hub) Send(userID string, message []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.clients[userID]
	if !ok {
		log.Printf("WebSocket client not found, could not send message: %s", userID)
		return nil
	}

	return conn.WriteMessage(websocket.TextMessage, message)
}

// Broadcast delivers a message to every connected client. Failed writes are
// logged and skipped; delivery is best effort.
func (h *Hub) Broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket broadcast to %s failed: %v", userID, err)
		}
	}
}
