package rest

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"funora/internal/cache"
	"funora/internal/service"
	"funora/internal/transport/rest/handler"
	"funora/internal/transport/rest/middleware"
	"funora/internal/transport/ws"
)

// Container holds all dependencies for the router
type Container struct {
	AuthService *service.AuthService
	RoomService *service.RoomService
	GameService *service.GameService
	Leaderboard cache.LeaderboardCache
	WSHub       *ws.Hub
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	roomHandler := handler.NewRoomHandler(c.RoomService, c.GameService, c.Leaderboard)
	gameHandler := handler.NewGameHandler(c.GameService)
	wsHandler := ws.NewHandler(c.WSHub, c.GameService)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// CORS middleware (apply first)
	r.Use(corsMiddleware)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/rooms", roomHandler.Create).Methods("POST", "OPTIONS")
	v1.HandleFunc("/rooms/{code}", roomHandler.Get).Methods("GET", "OPTIONS")
	v1.HandleFunc("/rooms/{code}/join", roomHandler.Join).Methods("POST", "OPTIONS")
	v1.HandleFunc("/rooms/{code}/leaderboard", roomHandler.Leaderboard).Methods("GET", "OPTIONS")
	v1.HandleFunc("/rooms/{code}/document", gameHandler.Document).Methods("GET", "OPTIONS")
	v1.HandleFunc("/rooms/{code}/games", gameHandler.History).Methods("GET", "OPTIONS")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Host routes (require host auth)
	hostRoutes := v1.NewRoute().Subrouter()
	hostRoutes.Use(authMW.RequireHost)

	hostRoutes.HandleFunc("/rooms/{code}/game", gameHandler.Select).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/rooms/{code}/game", gameHandler.End).Methods("DELETE", "OPTIONS")
	hostRoutes.HandleFunc("/rooms/{code}/end", roomHandler.End).Methods("POST", "OPTIONS")
	hostRoutes.HandleFunc("/ws/rooms/{code}/host", wsHandler.HostWS).Methods("GET")

	// Player routes (require player auth)
	playerRoutes := v1.NewRoute().Subrouter()
	playerRoutes.Use(authMW.RequirePlayer)

	playerRoutes.HandleFunc("/rooms/{code}/intents", gameHandler.SubmitIntent).Methods("POST", "OPTIONS")
	playerRoutes.HandleFunc("/ws/rooms/{code}/player", wsHandler.PlayerWS).Methods("GET")

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
		if allowedOrigins == "" {
			allowedOrigins = "*"
		}

		allowedMethods := os.Getenv("CORS_ALLOWED_METHODS")
		if allowedMethods == "" {
			allowedMethods = "GET, POST, PUT, DELETE, OPTIONS"
		}

		allowedHeaders := os.Getenv("CORS_ALLOWED_HEADERS")
		if allowedHeaders == "" {
			allowedHeaders = "Content-Type, Authorization"
		}

		w.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
