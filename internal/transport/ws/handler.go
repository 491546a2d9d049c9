package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"funora/internal/model"
	"funora/internal/service"
	"funora/internal/transport/rest/middleware"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// Handler handles WebSocket connections
type Handler struct {
	hub     *Hub
	gameSvc *service.GameService
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, gameSvc *service.GameService) *Handler {
	return &Handler{
		hub:     hub,
		gameSvc: gameSvc,
	}
}

// HostWS handles GET /v1/ws/rooms/{code}/host. Token validation and room
// scoping happen in the auth middleware before the upgrade.
func (h *Handler) HostWS(w http.ResponseWriter, r *http.Request) {
	code := middleware.GetRoomCode(r.Context())

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	conn := &Connection{
		RoomCode: code,
		PlayerID: middleware.GetHostID(r.Context()),
		IsHost:   true,
		Send:     make(chan []byte, 256),
		Hub:      h.hub,
	}

	h.hub.Register(conn)

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

// PlayerWS handles GET /v1/ws/rooms/{code}/player. Token validation and room
// scoping happen in the auth middleware before the upgrade.
func (h *Handler) PlayerWS(w http.ResponseWriter, r *http.Request) {
	code := middleware.GetRoomCode(r.Context())

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	conn := &Connection{
		RoomCode: code,
		PlayerID: middleware.GetPlayerID(r.Context()),
		IsHost:   false,
		Send:     make(chan []byte, 256),
		Hub:      h.hub,
	}

	h.hub.Register(conn)

	// New subscribers get the current document immediately
	if doc, err := h.gameSvc.GetDocument(r.Context(), code); err == nil && doc != nil {
		if data, err := json.Marshal(&Message{Type: MsgDocument, Payload: doc}); err == nil {
			conn.Send <- data
		}
	}

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

// readPump consumes inbound intents. A small token bucket keeps one
// mash-happy client from flooding the room worker.
func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
	}()

	limiter := rate.NewLimiter(rate.Limit(5), 10)

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		if !limiter.Allow() {
			continue
		}

		var intent model.Intent
		if err := json.Unmarshal(data, &intent); err != nil || intent.Type == "" {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = h.gameSvc.SubmitIntent(ctx, conn.RoomCode, conn.PlayerID, intent)
		cancel()
		if err != nil {
			h.hub.BroadcastToPlayer(conn.RoomCode, conn.PlayerID, string(MsgError), map[string]string{"message": err.Error()})
		}
	}
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
