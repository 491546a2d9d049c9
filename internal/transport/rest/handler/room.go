package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"funora/internal/cache"
	"funora/internal/model"
	"funora/internal/service"
	"funora/internal/transport/rest/middleware"
)

// RoomHandler handles room endpoints
type RoomHandler struct {
	roomSvc     *service.RoomService
	gameSvc     *service.GameService
	leaderboard cache.LeaderboardCache
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomSvc *service.RoomService, gameSvc *service.GameService, leaderboard cache.LeaderboardCache) *RoomHandler {
	return &RoomHandler{
		roomSvc:     roomSvc,
		gameSvc:     gameSvc,
		leaderboard: leaderboard,
	}
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	DisplayName string              `json:"displayName"`
	AvatarGlyph string              `json:"avatarGlyph"`
	Settings    *model.RoomSettings `json:"settings,omitempty"`
}

// Create handles POST /v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = "Player"
	}

	resp, hostToken, err := h.roomSvc.CreateRoom(r.Context(), req.DisplayName, req.AvatarGlyph, req.Settings)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"roomCode":  resp.Room.Code,
		"playerId":  resp.PlayerID,
		"token":     resp.Token,
		"hostToken": hostToken,
		"room":      resp.Room,
	})
}

// JoinRoomRequest is the request body for joining a room
type JoinRoomRequest struct {
	DisplayName string `json:"displayName"`
	AvatarGlyph string `json:"avatarGlyph"`
}

// Join handles POST /v1/rooms/{code}/join
func (h *RoomHandler) Join(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	var req JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = "Player"
	}

	resp, err := h.roomSvc.JoinRoom(r.Context(), code, req.DisplayName, req.AvatarGlyph)
	if err != nil {
		writeError(w, statusForRoomError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /v1/rooms/{code}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	room, err := h.roomSvc.GetRoom(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if room == nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	roster, err := h.roomSvc.Roster(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"room":   room,
		"roster": roster,
	})
}

// End handles POST /v1/rooms/{code}/end
func (h *RoomHandler) End(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	hostID := middleware.GetHostID(r.Context())

	// Best effort: the active game, if any, goes down with the room
	_ = h.gameSvc.EndGame(r.Context(), code, hostID)

	if err := h.roomSvc.EndRoom(r.Context(), code, hostID); err != nil {
		writeError(w, statusForRoomError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// Leaderboard handles GET /v1/rooms/{code}/leaderboard
func (h *RoomHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	entries, err := h.leaderboard.GetTop(r.Context(), code, 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Resolve display names from the roster
	roster, err := h.roomSvc.Roster(r.Context(), code)
	if err == nil {
		names := make(map[string]string, len(roster))
		for _, entry := range roster {
			names[entry.PlayerID] = entry.DisplayName
		}
		for i := range entries {
			entries[i].DisplayName = names[entries[i].PlayerID]
		}
	}

	writeJSON(w, http.StatusOK, entries)
}

func statusForRoomError(err error) int {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrRoomFull), errors.Is(err, service.ErrRoomClosed):
		return http.StatusConflict
	case errors.Is(err, service.ErrNotHost):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
