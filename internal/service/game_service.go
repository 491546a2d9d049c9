package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"funora/internal/cache"
	"funora/internal/game"
	"funora/internal/game/catalog"
	"funora/internal/game/target"
	"funora/internal/model"
	"funora/internal/repository"
	"funora/internal/store"
)

var (
	ErrNoActiveGame = errors.New("no active game in this room")
	ErrRoomBusy     = errors.New("room is processing too many intents")
)

// hostOnly are intent types a regular player may not emit: closing a
// contest window early, forcing a reveal, and starting the next round.
var hostOnly = map[string]bool{
	model.IntentWindowClosed: true,
	target.IntentReveal:      true,
	target.IntentNextRound:   true,
}

// GameService is the arbiter: one worker goroutine per room serializes
// every intent, applies it through the game engine, persists the resulting
// document and fans it out. Ordered intent application replaces the
// last-write-wins races a client-authoritative design would have.
type GameService struct {
	roomRepo    repository.RoomRepo
	gameRepo    repository.GameRepo
	roomCache   cache.RoomCache
	rosterCache cache.RosterCache
	leaderboard cache.LeaderboardCache
	docs        store.DocumentStore
	broadcaster Broadcaster

	mu      sync.Mutex
	workers map[string]*roomWorker
}

// NewGameService creates a new game service
func NewGameService(
	roomRepo repository.RoomRepo,
	gameRepo repository.GameRepo,
	roomCache cache.RoomCache,
	rosterCache cache.RosterCache,
	leaderboard cache.LeaderboardCache,
	docs store.DocumentStore,
) *GameService {
	return &GameService{
		roomRepo:    roomRepo,
		gameRepo:    gameRepo,
		roomCache:   roomCache,
		rosterCache: rosterCache,
		leaderboard: leaderboard,
		docs:        docs,
		workers:     make(map[string]*roomWorker),
	}
}

// SetBroadcaster injects the ws hub once it exists
func (s *GameService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SelectGame initializes the chosen game's document for the room and
// starts its worker. Only the host picks games.
func (s *GameService) SelectGame(ctx context.Context, roomCode, hostID, gameID string) error {
	meta, err := s.roomCache.GetMeta(ctx, roomCode)
	if err != nil {
		return err
	}
	if meta == nil {
		return ErrRoomNotFound
	}
	if meta.HostPlayerID != hostID {
		return ErrNotHost
	}
	if meta.Status == model.RoomStatusEnded {
		return ErrRoomClosed
	}

	roster, err := s.rosterCache.GetRoster(ctx, roomCode)
	if err != nil {
		return err
	}

	engine, err := catalog.New(gameID, meta.Settings)
	if err != nil {
		return err
	}
	doc, err := engine.Init(roster)
	if err != nil {
		return fmt.Errorf("init %s: %w", gameID, err)
	}

	if err := s.docs.Set(ctx, roomCode, doc); err != nil {
		return err
	}
	if err := s.roomCache.SetActiveGame(ctx, roomCode, gameID); err != nil {
		return err
	}
	if room, err := s.roomRepo.GetByCode(ctx, roomCode); err == nil && room != nil {
		room.Status = model.RoomStatusInGame
		room.ActiveGameID = gameID
		if err := s.roomRepo.Update(ctx, room); err != nil {
			log.Printf("room %s: persist active game: %v", roomCode, err)
		}
	}

	s.startWorker(roomCode, gameID, engine, doc)
	log.Printf("room %s: started %s with %d players", roomCode, gameID, len(roster))
	return nil
}

// SubmitIntent enqueues one player's intent on the room worker. The player
// identity is stamped server-side from the authenticated token; whatever
// the client wrote in the payload cannot impersonate anyone.
func (s *GameService) SubmitIntent(ctx context.Context, roomCode, playerID string, intent model.Intent) error {
	s.mu.Lock()
	w := s.workers[roomCode]
	s.mu.Unlock()
	if w == nil {
		return ErrNoActiveGame
	}

	if hostOnly[intent.Type] {
		meta, err := s.roomCache.GetMeta(ctx, roomCode)
		if err != nil {
			return err
		}
		if meta == nil || meta.HostPlayerID != playerID {
			return ErrNotHost
		}
	}

	intent.PlayerID = playerID
	select {
	case w.intents <- intent:
		return nil
	default:
		return ErrRoomBusy
	}
}

// GetDocument returns the room's current game document
func (s *GameService) GetDocument(ctx context.Context, roomCode string) (json.RawMessage, error) {
	return s.docs.Get(ctx, roomCode)
}

// EndGame archives the final snapshot, tears down the worker, and returns
// the room to the lobby.
func (s *GameService) EndGame(ctx context.Context, roomCode, hostID string) error {
	meta, err := s.roomCache.GetMeta(ctx, roomCode)
	if err != nil {
		return err
	}
	if meta == nil {
		return ErrRoomNotFound
	}
	if meta.HostPlayerID != hostID {
		return ErrNotHost
	}

	w := s.stopWorker(roomCode)
	if w == nil {
		return ErrNoActiveGame
	}

	doc, err := s.docs.Get(ctx, roomCode)
	if err == nil && doc != nil {
		record := &model.GameRecord{
			ID:        uuid.New().String(),
			RoomCode:  roomCode,
			GameID:    w.gameID,
			Document:  doc,
			StartedAt: w.startedAt,
			EndedAt:   time.Now(),
		}
		if err := s.gameRepo.Save(ctx, record); err != nil {
			log.Printf("room %s: archive game: %v", roomCode, err)
		}
	}

	if err := s.leaderboard.Delete(ctx, roomCode); err != nil {
		log.Printf("room %s: clear leaderboard: %v", roomCode, err)
	}
	if err := s.roomCache.SetStatus(ctx, roomCode, model.RoomStatusLobby); err != nil {
		return err
	}
	if room, err := s.roomRepo.GetByCode(ctx, roomCode); err == nil && room != nil {
		room.Status = model.RoomStatusLobby
		room.ActiveGameID = ""
		if err := s.roomRepo.Update(ctx, room); err != nil {
			log.Printf("room %s: persist lobby state: %v", roomCode, err)
		}
	}

	// The game document is replaced by an empty lobby state, which also
	// tells every client to return to the lobby.
	return s.docs.Set(ctx, roomCode, json.RawMessage(`{"phase":"lobby"}`))
}

// History lists the room's archived games, newest first
func (s *GameService) History(ctx context.Context, roomCode string) ([]model.GameRecord, error) {
	return s.gameRepo.ListByRoom(ctx, roomCode)
}

// Shutdown stops every room worker
func (s *GameService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, w := range s.workers {
		close(w.stop)
		delete(s.workers, code)
	}
}

func (s *GameService) startWorker(roomCode, gameID string, engine game.Engine, doc json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old := s.workers[roomCode]; old != nil {
		close(old.stop)
	}
	w := &roomWorker{
		roomCode:  roomCode,
		gameID:    gameID,
		engine:    engine,
		svc:       s,
		intents:   make(chan model.Intent, 64),
		stop:      make(chan struct{}),
		startedAt: time.Now(),
	}
	s.workers[roomCode] = w
	go w.run(doc)
}

func (s *GameService) stopWorker(roomCode string) *roomWorker {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.workers[roomCode]
	if w != nil {
		close(w.stop)
		delete(s.workers, roomCode)
	}
	return w
}

// roomWorker serializes one room's intents. It owns the deadline timer for
// the engine's open challenge/block/round window.
type roomWorker struct {
	roomCode  string
	gameID    string
	engine    game.Engine
	svc       *GameService
	intents   chan model.Intent
	stop      chan struct{}
	startedAt time.Time
}

func (w *roomWorker) run(doc json.RawMessage) {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	w.resetDeadline(timer, doc)

	for {
		select {
		case intent := <-w.intents:
			doc = w.apply(doc, intent, timer)
		case <-timer.C:
			doc = w.apply(doc, model.Intent{Type: model.IntentWindowClosed}, timer)
		case <-w.stop:
			return
		}
	}
}

// apply runs one intent through the engine. The returned document is the
// worker's new in-memory copy; on any error the old one stands.
func (w *roomWorker) apply(doc json.RawMessage, intent model.Intent, timer *time.Timer) json.RawMessage {
	next, err := w.engine.Apply(doc, intent)
	if err != nil {
		switch {
		case errors.Is(err, game.ErrIllegalIntent), errors.Is(err, game.ErrUnknownIntent), errors.Is(err, game.ErrGameOver):
			// Dropped without patching; only the sender hears about it.
			if intent.PlayerID != "" && w.svc.broadcaster != nil {
				w.svc.broadcaster.BroadcastToPlayer(w.roomCode, intent.PlayerID, "error", map[string]string{"message": err.Error()})
			}
		default:
			log.Printf("room %s: apply %s: %v", w.roomCode, intent.Type, err)
		}
		return doc
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.svc.docs.Set(ctx, w.roomCode, next); err != nil {
		log.Printf("room %s: persist document: %v", w.roomCode, err)
		return doc
	}

	if w.gameID != model.GameCoup {
		w.mirrorScores(ctx, next)
	}
	w.resetDeadline(timer, next)
	return next
}

// mirrorScores copies the scoring games' cumulative totals into the room
// leaderboard ZSET.
func (w *roomWorker) mirrorScores(ctx context.Context, doc json.RawMessage) {
	var snap struct {
		Players map[string]struct {
			Score int `json:"score"`
		} `json:"players"`
	}
	if err := json.Unmarshal(doc, &snap); err != nil {
		return
	}
	for id, p := range snap.Players {
		if err := w.svc.leaderboard.UpdateScore(ctx, w.roomCode, id, p.Score); err != nil {
			log.Printf("room %s: leaderboard update: %v", w.roomCode, err)
			return
		}
	}
}

func (w *roomWorker) resetDeadline(timer *time.Timer, doc json.RawMessage) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	deadline, ok := w.engine.Deadline(doc)
	if !ok {
		return
	}
	d := time.Until(deadline)
	if d < 0 {
		d = 0
	}
	timer.Reset(d)
}
