package services

import (
	"fmt"
	"sync"
	"time"

	"ecopark-admin/internal/metrics"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Invalidation scopes
const (
	ScopePhotos = "photos"
	ScopeTrails = "trails"
)

const writeWait = 10 * time.Second

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string   `json:"type"`
	Scope     string   `json:"scope,omitempty"`
	IDs       []string `json:"ids,omitempty"`
	ClientID  string   `json:"client_id,omitempty"`
	Timestamp int64    `json:"timestamp,omitempty"`
	Message   string   `json:"message,omitempty"`
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes
}

func (c *wsClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// WSHub tracks connected consoles and pushes invalidation events to them
type WSHub struct {
	mu      sync.RWMutex
	clients map[string]*wsClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{
		clients: make(map[string]*wsClient),
	}
}

// Register registers a connection under clientID, closing any previous one
func (h *WSHub) Register(clientID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, exists := h.clients[clientID]; exists {
		existing.conn.Close()
	} else {
		metrics.WebSocketConnections.Inc()
	}
	h.clients[clientID] = &wsClient{conn: conn}

	log.Info().Str("client_id", clientID).Msg("WebSocket connection registered")
}

// Unregister removes and closes the connection of clientID
func (h *WSHub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.clients[clientID]; exists {
		client.conn.Close()
		delete(h.clients, clientID)
		metrics.WebSocketConnections.Dec()
		log.Info().Str("client_id", clientID).Msg("WebSocket connection unregistered")
	}
}

// Count returns the number of connected clients
func (h *WSHub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SendToClient sends a message to one client
func (h *WSHub) SendToClient(clientID string, message WSMessage) error {
	h.mu.RLock()
	client, exists := h.clients[clientID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("client %s is not connected", clientID)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := client.write(data); err != nil {
		h.Unregister(clientID)
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Broadcast sends a message to every connected client. Failed clients are dropped.
func (h *WSHub) Broadcast(message WSMessage) {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()

	for _, id := range ids {
		if err := h.SendToClient(id, message); err != nil {
			log.Warn().Err(err).Str("client_id", id).Msg("Failed to broadcast message")
		}
	}
}

// NotifyInvalidated tells consoles that cached data of scope changed
func (h *WSHub) NotifyInvalidated(scope string, ids ...string) {
	h.Broadcast(WSMessage{
		Type:      "invalidate",
		Scope:     scope,
		IDs:       ids,
		Timestamp: time.Now().UnixMilli(),
	})
}
