package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MsgDocument     MessageType = "document" // full game document, pushed on every write
	MsgPlayerJoined MessageType = "player_joined"
	MsgRoomEnded    MessageType = "room_ended"
	MsgError        MessageType = "error"
)

// Message is the WebSocket envelope format
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Hub manages WebSocket connections for rooms. It is the fan-out half of
// the document store's subscribe-on-change contract: every document write
// lands here and reaches every connection in the room.
type Hub struct {
	hostConns   map[string]*Connection
	playerConns map[string]map[string]*Connection // roomCode -> playerID -> conn

	mu sync.RWMutex

	register   chan *Connection
	unregister chan *Connection
	broadcast  chan *BroadcastMessage
}

// Connection represents a WebSocket connection
type Connection struct {
	RoomCode string
	PlayerID string
	IsHost   bool
	Send     chan []byte
	Hub      *Hub
}

// BroadcastMessage is a message to broadcast
type BroadcastMessage struct {
	RoomCode string
	ToPlayer string // Empty means everyone in the room
	Message  *Message
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	h := &Hub{
		hostConns:   make(map[string]*Connection),
		playerConns: make(map[string]map[string]*Connection),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan *BroadcastMessage, 256),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			if conn.IsHost {
				h.hostConns[conn.RoomCode] = conn
				log.Printf("Host connected to room %s", conn.RoomCode)
			} else {
				if h.playerConns[conn.RoomCode] == nil {
					h.playerConns[conn.RoomCode] = make(map[string]*Connection)
				}
				h.playerConns[conn.RoomCode][conn.PlayerID] = conn
				log.Printf("Player %s connected to room %s", conn.PlayerID, conn.RoomCode)
			}
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if conn.IsHost {
				if existing, ok := h.hostConns[conn.RoomCode]; ok && existing == conn {
					delete(h.hostConns, conn.RoomCode)
					close(conn.Send)
					log.Printf("Host disconnected from room %s", conn.RoomCode)
				}
			} else {
				if players, ok := h.playerConns[conn.RoomCode]; ok {
					if existing, ok := players[conn.PlayerID]; ok && existing == conn {
						delete(players, conn.PlayerID)
						close(conn.Send)
						log.Printf("Player %s disconnected from room %s", conn.PlayerID, conn.RoomCode)
					}
				}
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			data, _ := json.Marshal(msg.Message)

			if msg.ToPlayer != "" {
				if players, ok := h.playerConns[msg.RoomCode]; ok {
					if conn, ok := players[msg.ToPlayer]; ok {
						select {
						case conn.Send <- data:
						default:
							// Drop message if buffer full
						}
					}
				}
				h.mu.RUnlock()
				continue
			}

			if conn, ok := h.hostConns[msg.RoomCode]; ok {
				select {
				case conn.Send <- data:
				default:
				}
			}
			if players, ok := h.playerConns[msg.RoomCode]; ok {
				for _, conn := range players {
					select {
					case conn.Send <- data:
					default:
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Register adds a connection
func (h *Hub) Register(conn *Connection) {
	h.register <- conn
}

// Unregister removes a connection
func (h *Hub) Unregister(conn *Connection) {
	h.unregister <- conn
}

// DocumentChanged pushes a new document version to every subscriber in the
// room (implements store.Notifier).
func (h *Hub) DocumentChanged(roomCode string, doc json.RawMessage) {
	h.broadcast <- &BroadcastMessage{
		RoomCode: roomCode,
		Message:  &Message{Type: MsgDocument, Payload: doc},
	}
}

// BroadcastDocument sends a full document to everyone in the room
// (implements service.Broadcaster).
func (h *Hub) BroadcastDocument(roomCode string, doc json.RawMessage) {
	h.DocumentChanged(roomCode, doc)
}

// BroadcastToAll sends a message to everyone in a room (implements
// service.Broadcaster).
func (h *Hub) BroadcastToAll(roomCode string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		RoomCode: roomCode,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// BroadcastToPlayer sends a message to a specific player (implements
// service.Broadcaster).
func (h *Hub) BroadcastToPlayer(roomCode, playerID string, msgType string, payload interface{}) {
	data, _ := json.Marshal(payload)
	h.broadcast <- &BroadcastMessage{
		RoomCode: roomCode,
		ToPlayer: playerID,
		Message: &Message{
			Type:    MessageType(msgType),
			Payload: data,
		},
	}
}

// DisconnectRoom closes every connection in a room (implements
// service.Broadcaster).
func (h *Hub) DisconnectRoom(roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.hostConns[roomCode]; ok {
		delete(h.hostConns, roomCode)
		close(conn.Send)
	}
	if players, ok := h.playerConns[roomCode]; ok {
		for id, conn := range players {
			delete(players, id)
			close(conn.Send)
		}
		delete(h.playerConns, roomCode)
	}
}
