package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hiddenpay/backend/internal/events"
	"github.com/hiddenpay/backend/internal/service"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is handled at the HTTP level
	},
}

const writeTimeout = 10 * time.Second

// EventsHandler streams committed ledger events to authenticated clients.
type EventsHandler struct {
	bus  *events.Bus
	auth *service.AuthService
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(bus *events.Bus, auth *service.AuthService) *EventsHandler {
	return &EventsHandler{bus: bus, auth: auth}
}

// Handle upgrades HTTP to WebSocket and forwards ledger events.
// URL: /ws/events?token=JWT_TOKEN
func (h *EventsHandler) Handle(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token required", http.StatusUnauthorized)
		return
	}

	if _, err := h.auth.VerifyToken(token); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ch, cancel := h.bus.Subscribe()
	defer cancel()

	// Reader goroutine: we never expect client messages, but reading is
	// what surfaces the close frame.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}
}
