package handlers

import (
	"net/http"
	"time"

	"ecopark-admin/internal/services"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles console WebSocket connections
type WebSocketHandler struct {
	hub      *services.WSHub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler. Connections from
// origins outside allowedOrigins are refused; "*" allows any.
func NewWebSocketHandler(hub *services.WSHub, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// HandleWebSocket handles GET /ws. The server only pushes invalidation
// events; clients may send ping messages.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	clientID := uuid.New().String()
	h.hub.Register(clientID, conn)
	defer h.hub.Unregister(clientID)

	if err := h.hub.SendToClient(clientID, services.WSMessage{
		Type:      "hello",
		ClientID:  clientID,
		Timestamp: time.Now().UnixMilli(),
	}); err != nil {
		log.Error().Err(err).Str("client_id", clientID).Msg("Failed to send hello message")
		return
	}

	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error().Err(err).Str("client_id", clientID).Msg("WebSocket error")
			}
			return
		}

		var msg services.WSMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			h.reply(clientID, services.WSMessage{Type: "error", Message: "Invalid message format"})
			continue
		}

		switch msg.Type {
		case "ping":
			h.reply(clientID, services.WSMessage{Type: "pong", Timestamp: time.Now().UnixMilli()})
		default:
			h.reply(clientID, services.WSMessage{Type: "error", Message: "Unknown message type"})
		}
	}
}

func (h *WebSocketHandler) reply(clientID string, msg services.WSMessage) {
	if err := h.hub.SendToClient(clientID, msg); err != nil {
		log.Error().Err(err).Str("client_id", clientID).Str("type", msg.Type).Msg("Failed to send message")
	}
}
