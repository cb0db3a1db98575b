package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/fiszkiapp/fiszki-backend/internal/db"
	"github.com/fiszkiapp/fiszki-backend/internal/handlers"
	"github.com/fiszkiapp/fiszki-backend/internal/logger"
	"github.com/fiszkiapp/fiszki-backend/internal/middleware"
	"github.com/fiszkiapp/fiszki-backend/internal/repos"
	"github.com/fiszkiapp/fiszki-backend/internal/server"
	"github.com/fiszkiapp/fiszki-backend/internal/services"
	"github.com/fiszkiapp/fiszki-backend/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	allowOrigins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log), ",")

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	generationSessionRepo := repos.NewGenerationSessionRepo(thePG, log)
	flashcardRepo := repos.NewFlashcardRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	aiClient, err := services.NewOpenRouterClient(log)
	if err != nil {
		log.Error("Could not init OpenRouterClient", "error", err)
		os.Exit(1)
	}
	authService := services.NewAuthService(thePG, log, userRepo, userTokenRepo, jwtSecretKey, time.Duration(accessTokenTTL)*time.Second, time.Duration(refreshTokenTTL)*time.Second)
	generationService := services.NewGenerationService(thePG, log, aiClient, generationSessionRepo)
	acceptanceService := services.NewAcceptanceService(thePG, log, generationSessionRepo, flashcardRepo)
	flashcardService := services.NewFlashcardService(thePG, log, flashcardRepo, generationSessionRepo)

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	aiHandler := handlers.NewAIHandler(generationService, acceptanceService)
	flashcardHandler := handlers.NewFlashcardHandler(flashcardService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:      authHandler,
		AuthMiddleware:   authMiddleware,
		AIHandler:        aiHandler,
		FlashcardHandler: flashcardHandler,
		AllowOrigins:     allowOrigins,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}
