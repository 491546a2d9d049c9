package model

import "github.com/golang-jwt/jwt/v5"

// HostClaims are JWT claims for the room creator's token
type HostClaims struct {
	RoomCode string `json:"roomCode"`
	HostID   string `json:"hostId"`
	jwt.RegisteredClaims
}

// PlayerClaims are JWT claims for player room-scoped tokens
type PlayerClaims struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
	jwt.RegisteredClaims
}
