package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"funora/internal/model"
)

// RosterCache handles Redis operations for a room's player roster. Entries
// live in one hash per room, so concurrent joins merge by player key
// instead of clobbering each other.
type RosterCache interface {
	AddPlayer(ctx context.Context, roomCode string, entry *model.RosterEntry) error
	GetPlayer(ctx context.Context, roomCode, playerID string) (*model.RosterEntry, error)
	GetRoster(ctx context.Context, roomCode string) ([]model.RosterEntry, error)
	Touch(ctx context.Context, roomCode, playerID string) error
	RemovePlayer(ctx context.Context, roomCode, playerID string) error
	Delete(ctx context.Context, roomCode string) error
}

type rosterCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRosterCache creates a new roster cache
func NewRosterCache(client *redis.Client) RosterCache {
	return &rosterCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (c *rosterCache) key(roomCode string) string {
	return fmt.Sprintf("room:%s:roster", roomCode)
}

func (c *rosterCache) AddPlayer(ctx context.Context, roomCode string, entry *model.RosterEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	if err := c.client.HSet(ctx, c.key(roomCode), entry.PlayerID, data).Err(); err != nil {
		return err
	}
	return c.client.Expire(ctx, c.key(roomCode), c.ttl).Err()
}

func (c *rosterCache) GetPlayer(ctx context.Context, roomCode, playerID string) (*model.RosterEntry, error) {
	data, err := c.client.HGet(ctx, c.key(roomCode), playerID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry model.RosterEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *rosterCache) GetRoster(ctx context.Context, roomCode string) ([]model.RosterEntry, error) {
	data, err := c.client.HGetAll(ctx, c.key(roomCode)).Result()
	if err != nil {
		return nil, err
	}
	roster := make([]model.RosterEntry, 0, len(data))
	for _, raw := range data {
		var entry model.RosterEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, err
		}
		roster = append(roster, entry)
	}
	// Hash iteration order is arbitrary; seat order is join order
	sort.Slice(roster, func(i, j int) bool {
		return roster[i].JoinedAt.Before(roster[j].JoinedAt)
	})
	return roster, nil
}

func (c *rosterCache) Touch(ctx context.Context, roomCode, playerID string) error {
	entry, err := c.GetPlayer(ctx, roomCode, playerID)
	if err != nil || entry == nil {
		return err
	}
	entry.LastActiveAt = time.Now()
	return c.AddPlayer(ctx, roomCode, entry)
}

func (c *rosterCache) RemovePlayer(ctx context.Context, roomCode, playerID string) error {
	return c.client.HDel(ctx, c.key(roomCode), playerID).Err()
}

func (c *rosterCache) Delete(ctx context.Context, roomCode string) error {
	return c.client.Del(ctx, c.key(roomCode)).Err()
}
