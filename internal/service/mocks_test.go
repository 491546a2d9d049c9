package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"funora/internal/cache"
	"funora/internal/model"
)

// In-memory fakes for the Redis and Mongo edges, so service flows run
// without infrastructure.

type memRoomRepo struct {
	mu    sync.Mutex
	rooms map[string]*model.Room
}

func newMemRoomRepo() *memRoomRepo {
	return &memRoomRepo{rooms: map[string]*model.Room{}}
}

func (r *memRoomRepo) Create(_ context.Context, room *model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *room
	r.rooms[room.Code] = &cp
	return nil
}

func (r *memRoomRepo) GetByCode(_ context.Context, code string) (*model.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok {
		return nil, nil
	}
	cp := *room
	return &cp, nil
}

func (r *memRoomRepo) Update(_ context.Context, room *model.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *room
	r.rooms[room.Code] = &cp
	return nil
}

func (r *memRoomRepo) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, code)
	return nil
}

type memGameRepo struct {
	mu      sync.Mutex
	records []model.GameRecord
}

func (r *memGameRepo) Save(_ context.Context, record *model.GameRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *memGameRepo) ListByRoom(_ context.Context, roomCode string) ([]model.GameRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.GameRecord
	for _, rec := range r.records {
		if rec.RoomCode == roomCode {
			out = append(out, rec)
		}
	}
	return out, nil
}

type memRoomCache struct {
	mu    sync.Mutex
	metas map[string]*model.RoomMeta
}

func newMemRoomCache() *memRoomCache {
	return &memRoomCache{metas: map[string]*model.RoomMeta{}}
}

func (c *memRoomCache) SetMeta(_ context.Context, code string, meta *model.RoomMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *meta
	c.metas[code] = &cp
	return nil
}

func (c *memRoomCache) GetMeta(_ context.Context, code string) (*model.RoomMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	meta, ok := c.metas[code]
	if !ok {
		return nil, nil
	}
	cp := *meta
	return &cp, nil
}

func (c *memRoomCache) SetStatus(_ context.Context, code string, status model.RoomStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if meta := c.metas[code]; meta != nil {
		meta.Status = status
		if status != model.RoomStatusInGame {
			meta.ActiveGameID = ""
		}
	}
	return nil
}

func (c *memRoomCache) SetActiveGame(_ context.Context, code, gameID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if meta := c.metas[code]; meta != nil {
		meta.Status = model.RoomStatusInGame
		meta.ActiveGameID = gameID
	}
	return nil
}

func (c *memRoomCache) Delete(_ context.Context, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.metas, code)
	return nil
}

func (c *memRoomCache) Exists(_ context.Context, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.metas[code]
	return ok, nil
}

type memRosterCache struct {
	mu      sync.Mutex
	rosters map[string]map[string]model.RosterEntry
}

func newMemRosterCache() *memRosterCache {
	return &memRosterCache{rosters: map[string]map[string]model.RosterEntry{}}
}

func (c *memRosterCache) AddPlayer(_ context.Context, roomCode string, entry *model.RosterEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rosters[roomCode] == nil {
		c.rosters[roomCode] = map[string]model.RosterEntry{}
	}
	c.rosters[roomCode][entry.PlayerID] = *entry
	return nil
}

func (c *memRosterCache) GetPlayer(_ context.Context, roomCode, playerID string) (*model.RosterEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.rosters[roomCode][playerID]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (c *memRosterCache) GetRoster(_ context.Context, roomCode string) ([]model.RosterEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.RosterEntry, 0, len(c.rosters[roomCode]))
	for _, entry := range c.rosters[roomCode] {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (c *memRosterCache) Touch(_ context.Context, roomCode, playerID string) error {
	return nil
}

func (c *memRosterCache) RemovePlayer(_ context.Context, roomCode, playerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rosters[roomCode], playerID)
	return nil
}

func (c *memRosterCache) Delete(_ context.Context, roomCode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rosters, roomCode)
	return nil
}

type memLeaderboard struct {
	mu     sync.Mutex
	scores map[string]map[string]int
}

func newMemLeaderboard() *memLeaderboard {
	return &memLeaderboard{scores: map[string]map[string]int{}}
}

func (c *memLeaderboard) UpdateScore(_ context.Context, roomCode, playerID string, score int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.scores[roomCode] == nil {
		c.scores[roomCode] = map[string]int{}
	}
	c.scores[roomCode][playerID] = score
	return nil
}

func (c *memLeaderboard) GetTop(_ context.Context, roomCode string, limit int) ([]cache.LeaderboardEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]cache.LeaderboardEntry, 0, len(c.scores[roomCode]))
	for id, score := range c.scores[roomCode] {
		out = append(out, cache.LeaderboardEntry{PlayerID: id, Score: score})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (c *memLeaderboard) GetRank(_ context.Context, roomCode, playerID string) (int64, error) {
	return 0, nil
}

func (c *memLeaderboard) Delete(_ context.Context, roomCode string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.scores, roomCode)
	return nil
}

type memDocStore struct {
	mu   sync.Mutex
	docs map[string]json.RawMessage
}

func newMemDocStore() *memDocStore {
	return &memDocStore{docs: map[string]json.RawMessage{}}
}

func (d *memDocStore) Get(_ context.Context, roomCode string) (json.RawMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.docs[roomCode]
	if !ok {
		return nil, nil
	}
	cp := make(json.RawMessage, len(doc))
	copy(cp, doc)
	return cp, nil
}

func (d *memDocStore) Set(_ context.Context, roomCode string, doc json.RawMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cp := make(json.RawMessage, len(doc))
	copy(cp, doc)
	d.docs[roomCode] = cp
	return nil
}

func (d *memDocStore) Patch(_ context.Context, roomCode string, partial json.RawMessage) (json.RawMessage, error) {
	// The services under test only Set; Patch is exercised in the store
	// package's own tests.
	return nil, nil
}

func (d *memDocStore) Delete(_ context.Context, roomCode string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.docs, roomCode)
	return nil
}

// broadcastCall records one fan-out for assertion
type broadcastCall struct {
	RoomCode string
	PlayerID string
	MsgType  string
}

type recordingBroadcaster struct {
	mu           sync.Mutex
	calls        []broadcastCall
	disconnected []string
}

func (b *recordingBroadcaster) BroadcastDocument(roomCode string, doc json.RawMessage) {
	b.record(broadcastCall{RoomCode: roomCode, MsgType: "document"})
}

func (b *recordingBroadcaster) BroadcastToAll(roomCode string, msgType string, payload interface{}) {
	b.record(broadcastCall{RoomCode: roomCode, MsgType: msgType})
}

func (b *recordingBroadcaster) BroadcastToPlayer(roomCode, playerID string, msgType string, payload interface{}) {
	b.record(broadcastCall{RoomCode: roomCode, PlayerID: playerID, MsgType: msgType})
}

func (b *recordingBroadcaster) DisconnectRoom(roomCode string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, roomCode)
}

func (b *recordingBroadcaster) record(call broadcastCall) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

func (b *recordingBroadcaster) messageTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.calls))
	for i, c := range b.calls {
		out[i] = c.MsgType
	}
	return out
}
