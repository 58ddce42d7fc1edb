package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"njcrashes/internal/handler"
	"njcrashes/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	logger *zap.Logger,
	corsOrigins []string,
	decodeH *handler.DecodeHandler,
	runH *handler.RunHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	v1.POST("/decode", decodeH.Decode)
	v1.GET("/schemas/:kind/:year", decodeH.Schema)

	runs := v1.Group("/runs")
	runs.POST("", runH.Create)
	runs.GET("", runH.List)
	runs.GET("/:id", runH.GetByID)
	runs.GET("/:id/conflicts", runH.Conflicts)
	runs.GET("/:id/output", runH.Output)

	return r
}
