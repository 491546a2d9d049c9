package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"funora/internal/cache"
	"funora/internal/config"
	"funora/internal/repository"
	"funora/internal/service"
	"funora/internal/store"
	"funora/internal/transport/rest"
	"funora/internal/transport/ws"
)

func main() {
	log.Println("started")
	ctx := context.Background()

	cfg := config.Load()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}
	log.Println("Connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	redisAddr := strings.TrimPrefix(cfg.RedisAddr, "redis://")
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatal("Failed to ping Redis:", err)
	}
	log.Println("Connected to Redis")

	// WebSocket hub
	wsHub := ws.NewHub()
	log.Println("WebSocket hub started")

	// Repositories
	roomRepo := repository.NewRoomRepo(db)
	gameRepo := repository.NewGameRepo(db)

	// Caches
	roomCache := cache.NewRoomCache(rdb)
	rosterCache := cache.NewRosterCache(rdb)
	leaderboard := cache.NewLeaderboardCache(rdb)

	// Document store fans every write out through the hub
	docs := store.NewDocumentStore(rdb, wsHub)

	// Services
	authSvc := service.NewAuthService()
	roomSvc := service.NewRoomService(roomRepo, roomCache, rosterCache, authSvc)
	gameSvc := service.NewGameService(roomRepo, gameRepo, roomCache, rosterCache, leaderboard, docs)

	// Inject broadcaster (wsHub implements service.Broadcaster)
	roomSvc.SetBroadcaster(wsHub)
	gameSvc.SetBroadcaster(wsHub)

	container := &rest.Container{
		AuthService: authSvc,
		RoomService: roomSvc,
		GameService: gameSvc,
		Leaderboard: leaderboard,
		WSHub:       wsHub,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.HTTPPort)
		log.Println("Endpoints:")
		log.Println("  POST /v1/rooms")
		log.Println("  POST /v1/rooms/{code}/join")
		log.Println("  POST/DELETE /v1/rooms/{code}/game")
		log.Println("  POST /v1/rooms/{code}/intents")
		log.Println("  GET  /v1/rooms/{code}/document")
		log.Println("  GET  /v1/rooms/{code}/leaderboard")
		log.Println("  WS   /v1/ws/rooms/{code}/host")
		log.Println("  WS   /v1/ws/rooms/{code}/player")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("ListenAndServe:", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	gameSvc.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
