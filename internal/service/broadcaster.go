package service

import "encoding/json"

// Broadcaster interface for WebSocket fan-out (avoids import cycle with the
// ws package). Every document write reaches every subscriber in the room.
type Broadcaster interface {
	BroadcastDocument(roomCode string, doc json.RawMessage)
	BroadcastToAll(roomCode string, msgType string, payload interface{})
	BroadcastToPlayer(roomCode, playerID string, msgType string, payload interface{})
	DisconnectRoom(roomCode string)
}
