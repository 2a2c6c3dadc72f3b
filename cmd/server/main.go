package main

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/whisperwall/whisperwall-backend/internal/config"
	"github.com/whisperwall/whisperwall-backend/internal/database"
	"github.com/whisperwall/whisperwall-backend/internal/handlers"
	"github.com/whisperwall/whisperwall-backend/internal/middleware"
	"github.com/whisperwall/whisperwall-backend/internal/routes"
	"github.com/whisperwall/whisperwall-backend/internal/services"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()

	if cfg.SuggestionAPIKey == "" {
		log.Println("⚠️  WARNING: SUGGESTION_API_KEY not set. Message suggestions will fail.")
	}

	// Connect to MongoDB
	log.Printf("Connecting to MongoDB...")
	if err := database.Connect(cfg.MongoURI); err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer database.Disconnect()

	// Connect to Redis
	log.Printf("Connecting to Redis...")
	if err := database.ConnectRedis(cfg.RedisURI); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer database.DisconnectRedis()

	// Build services
	users := services.NewUserStore(database.DB)
	if err := users.EnsureIndexes(context.Background()); err != nil {
		log.Printf("⚠️  WARNING: failed to ensure MongoDB user indexes: %v", err)
	} else {
		log.Println("✅ MongoDB user indexes ensured")
	}

	sessions := services.NewSessionManager(database.RedisClient)
	suggestions := services.NewSuggestionClient(
		cfg.SuggestionAPIURL,
		cfg.SuggestionAPIKey,
		cfg.SuggestionModel,
		cfg.SuggestionTimeout,
	)

	h := handlers.New(users, sessions, suggestions, cfg.IsProduction())

	// Setup router
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.RequestID)
	r.Use(middleware.RateLimit)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	routes.SetupRoutes(r, h)

	log.Println("📋 Registered routes:")
	log.Println("  GET    /health")
	log.Println("  POST   /api/auth/signup")
	log.Println("  POST   /api/auth/verify")
	log.Println("  POST   /api/auth/signin")
	log.Println("  POST   /api/auth/signout")
	log.Println("  GET    /api/auth/me")
	log.Println("  GET    /api/auth/check-username")
	log.Println("  POST   /api/messages")
	log.Println("  GET    /api/messages")
	log.Println("  DELETE /api/messages/{messageID}")
	log.Println("  GET    /api/messages/accepting")
	log.Println("  POST   /api/messages/accepting")
	log.Println("  GET    /api/suggestions")

	log.Printf("🚀 Whisperwall backend running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
