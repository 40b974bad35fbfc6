package main

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/playgambit/backend/internal/config"
	"github.com/playgambit/backend/internal/database"
	"github.com/playgambit/backend/internal/games"
	"github.com/playgambit/backend/internal/migrations"
	"github.com/playgambit/backend/internal/store"
	"github.com/playgambit/backend/internal/tournament"
	"github.com/playgambit/backend/internal/ws"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Run migrations on start if requested
	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Playable game types
	gameTypes := games.TypeMap{
		"chess":             games.Chess{},
		"three_mens_morris": games.ThreeMensMorris{},
	}
	tournamentTypes := store.TournamentTypeMap{
		"round_robin": tournament.RoundRobin{MaxActiveGames: cfg.MaxActiveGames},
	}

	// Move timer firings flow through here to the websocket server
	expiry := make(chan store.TimeExpiry, 64)
	server := ws.NewServer(db, gameTypes, tournamentTypes, expiry)
	go server.ConsumeExpiries(expiry)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.GET("/ws", server.HandleWS)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting Gambit server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
