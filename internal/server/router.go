package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/fiszkiapp/fiszki-backend/internal/handlers"
	"github.com/fiszkiapp/fiszki-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler      *handlers.AuthHandler
	AuthMiddleware   *middleware.AuthMiddleware
	AIHandler        *handlers.AIHandler
	FlashcardHandler *handlers.FlashcardHandler
	AllowOrigins     []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api")
	{
		api.POST("/auth/register", cfg.AuthHandler.Register)
		api.POST("/auth/login", cfg.AuthHandler.Login)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/auth/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/auth/logout", cfg.AuthHandler.Logout)
	protected.POST("/auth/password/change", cfg.AuthHandler.ChangePassword)
	protected.DELETE("/auth/account", cfg.AuthHandler.DeleteAccount)
	// AI generation
	protected.POST("/ai/generate", cfg.AIHandler.Generate)
	protected.POST("/ai/accept", cfg.AIHandler.Accept)
	// Flashcards
	protected.GET("/flashcards", cfg.FlashcardHandler.List)
	protected.POST("/flashcards", cfg.FlashcardHandler.Create)
	protected.GET("/flashcards/:id", cfg.FlashcardHandler.GetByID)
	protected.PUT("/flashcards/:id", cfg.FlashcardHandler.Update)
	protected.DELETE("/flashcards/:id", cfg.FlashcardHandler.Delete)

	return router
}
