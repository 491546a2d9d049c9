package model

import "time"

type RoomStatus string

const (
	RoomStatusLobby  RoomStatus = "lobby"
	RoomStatusInGame RoomStatus = "in_game"
	RoomStatusEnded  RoomStatus = "ended"
)

type RoomSettings struct {
	MaxPlayers         int `json:"maxPlayers" bson:"maxPlayers"`
	ChallengeWindowSec int `json:"challengeWindowSec" bson:"challengeWindowSec"` // auto-close for challenge/block windows
	RoundTimerSec      int `json:"roundTimerSec" bson:"roundTimerSec"`           // per-round timer for scoring games
}

// DefaultRoomSettings is applied when a create request omits settings
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		MaxPlayers:         10,
		ChallengeWindowSec: 15,
		RoundTimerSec:      60,
	}
}

type Room struct {
	Code         string       `json:"code" bson:"code"`
	Status       RoomStatus   `json:"status" bson:"status"`
	HostPlayerID string       `json:"hostPlayerId" bson:"hostPlayerId"`
	ActiveGameID string       `json:"activeGameId,omitempty" bson:"activeGameId,omitempty"`
	Settings     RoomSettings `json:"settings" bson:"settings"`
	CreatedAt    time.Time    `json:"createdAt" bson:"createdAt"`
	EndedAt      *time.Time   `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
}

// RoomMeta is the Redis-cached slice of room state consulted on every request
type RoomMeta struct {
	Status       RoomStatus   `json:"status"`
	HostPlayerID string       `json:"hostPlayerId"`
	ActiveGameID string       `json:"activeGameId,omitempty"`
	Settings     RoomSettings `json:"settings"`
	CreatedAt    time.Time    `json:"createdAt"`
}
