package model

import (
	"encoding/json"
	"time"
)

// Game identifiers as chosen from the lobby catalog
const (
	GameCoup         = "coup"
	GameWavelength   = "wavelength"
	GameHerd         = "herd_mentality"
	GameBoilingWater = "boiling_water"
)

// GameRecord is the archived terminal snapshot of a finished game
type GameRecord struct {
	ID        string          `json:"id" bson:"_id,omitempty"`
	RoomCode  string          `json:"roomCode" bson:"roomCode"`
	GameID    string          `json:"gameId" bson:"gameId"`
	Document  json.RawMessage `json:"document" bson:"document"`
	StartedAt time.Time       `json:"startedAt" bson:"startedAt"`
	EndedAt   time.Time       `json:"endedAt" bson:"endedAt"`
}

// LogEntry is one line of a game's append-only activity log
type LogEntry struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
