package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"funora/internal/cache"
	"funora/internal/model"
	"funora/internal/repository"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
	ErrRoomClosed   = errors.New("room has ended")
	ErrNotHost      = errors.New("only the host may do that")
)

// RoomService handles room lifecycle: creation, join codes, and the roster
type RoomService struct {
	roomRepo    repository.RoomRepo
	roomCache   cache.RoomCache
	rosterCache cache.RosterCache
	authSvc     *AuthService
	broadcaster Broadcaster
}

// NewRoomService creates a new room service
func NewRoomService(
	roomRepo repository.RoomRepo,
	roomCache cache.RoomCache,
	rosterCache cache.RosterCache,
	authSvc *AuthService,
) *RoomService {
	return &RoomService{
		roomRepo:    roomRepo,
		roomCache:   roomCache,
		rosterCache: rosterCache,
		authSvc:     authSvc,
	}
}

// SetBroadcaster injects the ws hub once it exists
func (s *RoomService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// CreateRoom creates a room and seats its creator as host. The returned
// join response carries a host-capable token.
func (s *RoomService) CreateRoom(ctx context.Context, displayName, avatarGlyph string, settings *model.RoomSettings) (*model.JoinResponse, string, error) {
	code, err := s.generateRoomCode(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate room code: %w", err)
	}

	if settings == nil {
		defaults := model.DefaultRoomSettings()
		settings = &defaults
	}

	hostID := "p_" + uuid.New().String()[:8]
	room := &model.Room{
		Code:         code,
		Status:       model.RoomStatusLobby,
		HostPlayerID: hostID,
		Settings:     *settings,
		CreatedAt:    time.Now(),
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		return nil, "", fmt.Errorf("failed to create room: %w", err)
	}

	meta := &model.RoomMeta{
		Status:       room.Status,
		HostPlayerID: hostID,
		Settings:     room.Settings,
		CreatedAt:    room.CreatedAt,
	}
	if err := s.roomCache.SetMeta(ctx, code, meta); err != nil {
		return nil, "", fmt.Errorf("failed to cache room: %w", err)
	}

	entry := &model.RosterEntry{
		PlayerID:     hostID,
		DisplayName:  displayName,
		AvatarGlyph:  avatarGlyph,
		IsHost:       true,
		JoinedAt:     time.Now(),
		LastActiveAt: time.Now(),
	}
	if err := s.rosterCache.AddPlayer(ctx, code, entry); err != nil {
		return nil, "", fmt.Errorf("failed to seat host: %w", err)
	}

	hostToken, err := s.authSvc.GenerateHostToken(code, hostID)
	if err != nil {
		return nil, "", err
	}
	playerToken, err := s.authSvc.GeneratePlayerToken(code, hostID)
	if err != nil {
		return nil, "", err
	}

	return &model.JoinResponse{
		PlayerID: hostID,
		Token:    playerToken,
		Room:     room,
		Roster:   []model.RosterEntry{*entry},
	}, hostToken, nil
}

// JoinRoom seats a new player in an open room and returns their token
func (s *RoomService) JoinRoom(ctx context.Context, code, displayName, avatarGlyph string) (*model.JoinResponse, error) {
	meta, err := s.roomCache.GetMeta(ctx, code)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		return nil, ErrRoomNotFound
	}
	if meta.Status == model.RoomStatusEnded {
		return nil, ErrRoomClosed
	}

	roster, err := s.rosterCache.GetRoster(ctx, code)
	if err != nil {
		return nil, err
	}
	if meta.Settings.MaxPlayers > 0 && len(roster) >= meta.Settings.MaxPlayers {
		return nil, ErrRoomFull
	}

	playerID := "p_" + uuid.New().String()[:8]
	entry := &model.RosterEntry{
		PlayerID:     playerID,
		DisplayName:  displayName,
		AvatarGlyph:  avatarGlyph,
		JoinedAt:     time.Now(),
		LastActiveAt: time.Now(),
	}
	if err := s.rosterCache.AddPlayer(ctx, code, entry); err != nil {
		return nil, err
	}

	token, err := s.authSvc.GeneratePlayerToken(code, playerID)
	if err != nil {
		return nil, err
	}

	room, err := s.roomRepo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToAll(code, "player_joined", entry)
	}

	return &model.JoinResponse{
		PlayerID: playerID,
		Token:    token,
		Room:     room,
		Roster:   append(roster, *entry),
	}, nil
}

// GetRoom retrieves a room by code
func (s *RoomService) GetRoom(ctx context.Context, code string) (*model.Room, error) {
	return s.roomRepo.GetByCode(ctx, code)
}

// GetRoomMeta retrieves cached room metadata
func (s *RoomService) GetRoomMeta(ctx context.Context, code string) (*model.RoomMeta, error) {
	return s.roomCache.GetMeta(ctx, code)
}

// Roster returns the current seating, in join order
func (s *RoomService) Roster(ctx context.Context, code string) ([]model.RosterEntry, error) {
	return s.rosterCache.GetRoster(ctx, code)
}

// EndRoom closes the room for good and disconnects everyone
func (s *RoomService) EndRoom(ctx context.Context, code, hostID string) error {
	room, err := s.roomRepo.GetByCode(ctx, code)
	if err != nil {
		return err
	}
	if room == nil {
		return ErrRoomNotFound
	}
	if room.HostPlayerID != hostID {
		return ErrNotHost
	}

	now := time.Now()
	room.Status = model.RoomStatusEnded
	room.EndedAt = &now
	if err := s.roomRepo.Update(ctx, room); err != nil {
		return err
	}
	if err := s.roomCache.SetStatus(ctx, code, model.RoomStatusEnded); err != nil {
		return err
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToAll(code, "room_ended", nil)
		s.broadcaster.DisconnectRoom(code)
	}
	return nil
}

// generateRoomCode creates a 6-char alphanumeric code
func (s *RoomService) generateRoomCode(ctx context.Context) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLen = 6

	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, codeLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		code := make([]byte, codeLen)
		for i := range code {
			code[i] = chars[int(b[i])%len(chars)]
		}
		codeStr := string(code)

		exists, err := s.roomCache.Exists(ctx, codeStr)
		if err != nil {
			return "", err
		}
		if !exists {
			return codeStr, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique room code")
}
