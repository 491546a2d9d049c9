package model

import "encoding/json"

// Intent is one player's requested transition, applied in arrival order by
// the room's worker. The payload shape is game- and type-specific; engines
// decode it themselves.
type Intent struct {
	Type     string          `json:"type"`
	PlayerID string          `json:"playerId"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// Intent types shared by every engine. Game-specific types live with the
// engine that owns them.
const (
	IntentWindowClosed = "window_closed" // emitted by the worker when a deadline expires, or by the host closing a window early
)
