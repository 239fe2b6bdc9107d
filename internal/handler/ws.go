package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/qwertttyyy/TaskManagement/internal/notify"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Notifications are public broadcast data; any origin may listen.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NotificationHandler serves the persistent notification connection.
// Every connection joins the public room for its lifetime and receives
// status-change notices as {"message": "<text>"} frames.
type NotificationHandler struct {
	hub *notify.Hub
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(hub *notify.Hub) *NotificationHandler {
	return &NotificationHandler{hub: hub}
}

// HandleNotifications handles GET /ws/notifications/ requests.
func (h *NotificationHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	sub := h.hub.Subscribe(notify.PublicRoom)

	// Reader goroutine: inbound frames are discarded, but reading is
	// required to notice the peer closing the connection.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.hub.Unsubscribe(sub)
				return
			}
		}
	}()

	for text := range sub.Messages() {
		if err := conn.WriteJSON(map[string]string{"message": text}); err != nil {
			break
		}
	}

	// Reached on unsubscribe, hub shutdown or write failure.
	h.hub.Unsubscribe(sub)
	conn.Close()
}
