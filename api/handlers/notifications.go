package handlers

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/aurabot/dashboard-api/api"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// NotificationHub tracks connected dashboard users (discordId -> conn) and
// pushes entitlement events to them
type NotificationHub struct {
	clients map[string]*websocket.Conn
	mutex   sync.Mutex
}

// NewNotificationHub creates an empty hub
func NewNotificationHub() *NotificationHub {
	return &NotificationHub{
		clients: make(map[string]*websocket.Conn),
	}
}

// ServeWS upgrades the request and registers the connection for the
// authenticated actor. It must run inside api.Middleware.
func (h *NotificationHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	actor, ok := api.ActorFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Errorw("websocket upgrade failed", "error", err)
		return
	}

	h.mutex.Lock()
	if old, exists := h.clients[actor.DiscordID]; exists {
		old.Close()
	}
	h.clients[actor.DiscordID] = conn
	h.mutex.Unlock()
	zap.S().Debugw("user connected to notifications", "discordId", actor.DiscordID)

	conn.SetCloseHandler(func(code int, text string) error {
		h.mutex.Lock()
		delete(h.clients, actor.DiscordID)
		h.mutex.Unlock()
		zap.S().Debugw("user disconnected from notifications", "discordId", actor.DiscordID)
		return nil
	})

	// drain reads to keep the connection alive
	for {
		if _, _, err := conn.NextReader(); err != nil {
			conn.Close()
			h.mutex.Lock()
			delete(h.clients, actor.DiscordID)
			h.mutex.Unlock()
			break
		}
	}
}

// Publish sends one event to a connected user, dropping the connection on
// write failure. Users without an open socket are skipped.
func (h *NotificationHub) Publish(discordID, event string, data map[string]interface{}) {
	if h == nil {
		return
	}
	h.mutex.Lock()
	conn, exists := h.clients[discordID]
	h.mutex.Unlock()
	if !exists {
		return
	}

	err := conn.WriteJSON(map[string]interface{}{
		"event": event,
		"data":  data,
	})
	if err != nil {
		zap.S().Warnw("failed to push notification", "discordId", discordID, "error", err)
		h.mutex.Lock()
		delete(h.clients, discordID)
		h.mutex.Unlock()
		conn.Close()
	}
}
