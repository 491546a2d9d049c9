package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"funora/internal/game"
	"funora/internal/model"
	"funora/internal/service"
	"funora/internal/transport/rest/middleware"
)

// GameHandler handles game lifecycle and intent endpoints
type GameHandler struct {
	gameSvc *service.GameService
}

// NewGameHandler creates a new game handler
func NewGameHandler(gameSvc *service.GameService) *GameHandler {
	return &GameHandler{gameSvc: gameSvc}
}

// SelectGameRequest is the request body for selecting a game
type SelectGameRequest struct {
	GameID string `json:"gameId"`
}

// Select handles POST /v1/rooms/{code}/game
func (h *GameHandler) Select(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	hostID := middleware.GetHostID(r.Context())

	var req SelectGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.gameSvc.SelectGame(r.Context(), code, hostID, req.GameID); err != nil {
		writeError(w, statusForGameError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"gameId": req.GameID})
}

// End handles DELETE /v1/rooms/{code}/game
func (h *GameHandler) End(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	hostID := middleware.GetHostID(r.Context())

	if err := h.gameSvc.EndGame(r.Context(), code, hostID); err != nil {
		writeError(w, statusForGameError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// Document handles GET /v1/rooms/{code}/document
func (h *GameHandler) Document(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	doc, err := h.gameSvc.GetDocument(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, "no game document")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// SubmitIntent handles POST /v1/rooms/{code}/intents, the HTTP fallback
// for clients without a WebSocket connection.
func (h *GameHandler) SubmitIntent(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	playerID := middleware.GetPlayerID(r.Context())

	var intent model.Intent
	if err := json.NewDecoder(r.Body).Decode(&intent); err != nil || intent.Type == "" {
		writeError(w, http.StatusBadRequest, "invalid intent")
		return
	}

	if err := h.gameSvc.SubmitIntent(r.Context(), code, playerID, intent); err != nil {
		writeError(w, statusForGameError(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// History handles GET /v1/rooms/{code}/games
func (h *GameHandler) History(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	records, err := h.gameSvc.History(r.Context(), code)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func statusForGameError(err error) int {
	switch {
	case errors.Is(err, service.ErrRoomNotFound), errors.Is(err, service.ErrNoActiveGame):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNotHost):
		return http.StatusForbidden
	case errors.Is(err, service.ErrRoomBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrRoomClosed):
		return http.StatusConflict
	case errors.Is(err, game.ErrIllegalIntent), errors.Is(err, game.ErrUnknownIntent), errors.Is(err, game.ErrGameOver):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
