package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"funora/internal/cache"
	"funora/internal/config"
	"funora/internal/model"
	"funora/internal/repository"
)

// Seeds a demo room with a seated roster for local development, so the UI
// team can point a client at a known code without walking the join flow.
func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to ping Redis: %v", err)
	}

	roomRepo := repository.NewRoomRepo(client.Database(cfg.MongoDB))
	roomCache := cache.NewRoomCache(rdb)
	rosterCache := cache.NewRosterCache(rdb)

	const code = "DEMO42"
	now := time.Now()

	hostID := "p_" + uuid.NewString()[:8]
	room := &model.Room{
		Code:         code,
		Status:       model.RoomStatusLobby,
		HostPlayerID: hostID,
		Settings:     model.DefaultRoomSettings(),
		CreatedAt:    now,
	}

	if err := roomRepo.Delete(ctx, code); err != nil {
		log.Printf("warning: could not clear previous demo room: %v", err)
	}
	if err := roomRepo.Create(ctx, room); err != nil {
		log.Fatalf("Failed to insert demo room: %v", err)
	}

	meta := &model.RoomMeta{
		Status:       room.Status,
		HostPlayerID: room.HostPlayerID,
		Settings:     room.Settings,
		CreatedAt:    room.CreatedAt,
	}
	if err := roomCache.SetMeta(ctx, code, meta); err != nil {
		log.Fatalf("Failed to cache room meta: %v", err)
	}

	if err := rosterCache.Delete(ctx, code); err != nil {
		log.Printf("warning: could not clear previous roster: %v", err)
	}

	seats := []struct {
		name  string
		glyph string
		host  bool
	}{
		{"Hana", "🦊", true},
		{"Marco", "🐙", false},
		{"Priya", "🦉", false},
		{"Teo", "🐸", false},
	}
	for i, seat := range seats {
		id := hostID
		if !seat.host {
			id = "p_" + uuid.NewString()[:8]
		}
		entry := &model.RosterEntry{
			PlayerID:     id,
			DisplayName:  seat.name,
			AvatarGlyph:  seat.glyph,
			IsHost:       seat.host,
			JoinedAt:     now.Add(time.Duration(i) * time.Second),
			LastActiveAt: now,
		}
		if err := rosterCache.AddPlayer(ctx, code, entry); err != nil {
			log.Fatalf("Failed to seat %s: %v", seat.name, err)
		}
	}

	fmt.Printf("Seeded demo room %s (host %s, %d players)\n", code, hostID, len(seats))
}
