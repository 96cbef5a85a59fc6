package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/formaudit/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(logger))
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		v1.POST("/audits", handler.CreateAudit)

		traversals := v1.Group("/traversals")
		{
			traversals.POST("/:id/states", handler.RecordTraversalState)
			traversals.DELETE("/:id", handler.ResetTraversal)
		}
	}

	return router
}
