package service

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"funora/internal/model"
)

var (
	// ErrInvalidToken marks an unparseable or expired JWT
	ErrInvalidToken = errors.New("invalid or expired token")
)

// AuthService issues and validates room-scoped host and player tokens.
// There are no accounts: creating a room makes you its host, joining one
// makes you a player, and the token is the only proof of either.
type AuthService struct {
	jwtSecret []byte
}

// NewAuthService creates a new auth service
func NewAuthService() *AuthService {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "super-secret-key-change-in-production"
	}
	return &AuthService{jwtSecret: []byte(secret)}
}

// GenerateHostToken creates the room creator's token
func (s *AuthService) GenerateHostToken(roomCode, hostID string) (string, error) {
	claims := &model.HostClaims{
		RoomCode: roomCode,
		HostID:   hostID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateHostToken validates a host JWT and returns claims
func (s *AuthService) ValidateHostToken(tokenString string) (*model.HostClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.HostClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*model.HostClaims)
	if !ok || !token.Valid || claims.HostID == "" {
		// A player token decodes here with an empty hostId; reject it.
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GeneratePlayerToken creates a room-scoped token for a player
func (s *AuthService) GeneratePlayerToken(roomCode, playerID string) (string, error) {
	claims := &model.PlayerClaims{
		RoomCode: roomCode,
		PlayerID: playerID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)), // 24h for room sessions
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidatePlayerToken validates a player JWT and returns claims
func (s *AuthService) ValidatePlayerToken(tokenString string) (*model.PlayerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.PlayerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*model.PlayerClaims)
	if !ok || !token.Valid || claims.PlayerID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
