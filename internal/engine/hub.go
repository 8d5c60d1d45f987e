package engine

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/IndrawanLalu/gardu-alerting-service/internal/logging"
	"github.com/IndrawanLalu/gardu-alerting-service/internal/models"
)

const maxConnections = 64

// Hub fans newly persisted alerts out to connected portal clients, replacing
// the store-listener reactivity the portal UI previously relied on.
type Hub struct {
	mutex       sync.Mutex
	connections map[*websocket.Conn]bool
	logger      *logging.Logger
}

func NewHub(logger *logging.Logger) *Hub {
	return &Hub{
		connections: make(map[*websocket.Conn]bool),
		logger:      logger,
	}
}

// AddConnection registers a client connection. Returns false when the hub is
// at capacity.
func (h *Hub) AddConnection(conn *websocket.Conn) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if len(h.connections) >= maxConnections {
		h.logger.Warnf("websocket hub at capacity (%d), rejecting connection", maxConnections)
		return false
	}
	h.connections[conn] = true
	h.logger.Infof("websocket client connected (total: %d)", len(h.connections))
	return true
}

// RemoveConnection unregisters a client connection.
func (h *Hub) RemoveConnection(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.connections, conn)
	h.logger.Infof("websocket client disconnected (remaining: %d)", len(h.connections))
}

// Broadcast pushes an alert to every connected client. Connections that fail
// to write are dropped.
func (h *Hub) Broadcast(alert models.Alert) {
	payload, err := json.Marshal(alert)
	if err != nil {
		h.logger.Errorf("failed to encode alert for broadcast: %v", err)
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.connections {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.logger.Errorf("failed to push alert to websocket client: %v", err)
			_ = conn.Close()
			delete(h.connections, conn)
		}
	}
}
