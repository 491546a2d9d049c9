package model

import "time"

// RosterEntry is one player's seat in a room. The roster is read-only for
// the game engines: they consume it at init time to know the player set and
// resolve display names.
type RosterEntry struct {
	PlayerID     string    `json:"playerId"`
	DisplayName  string    `json:"displayName"`
	AvatarGlyph  string    `json:"avatarGlyph"`
	IsHost       bool      `json:"isHost"`
	JoinedAt     time.Time `json:"joinedAt"`
	LastActiveAt time.Time `json:"lastActiveAt"`
}

// JoinResponse is returned when a player joins a room
type JoinResponse struct {
	PlayerID string        `json:"playerId"`
	Token    string        `json:"token"`
	Room     *Room         `json:"room"`
	Roster   []RosterEntry `json:"roster"`
}
