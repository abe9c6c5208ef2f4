package ui

import (
	"net/http"

	"datapulse/internal/config"
	"datapulse/internal/container"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the API surface. All application routes live under /api;
// everything past login requires a bearer token.
func NewRouter(cfg *config.Config, c *container.Container) *gin.Engine {
	gin.SetMode(cfg.Server.GinMode)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(CORS(cfg.Server.CORSOrigins))

	authHandler := NewAuthHandler(c.AuthService)
	datasetHandler := NewDatasetHandler(c.AnalysisService, cfg.Server.MaxUploadBytes)

	api := router.Group("/api")
	{
		api.GET("/", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"message": "DataPulse Analytics API", "version": "1.0.0"})
		})
		api.GET("/health", func(ctx *gin.Context) {
			status := "healthy"
			code := http.StatusOK
			if err := c.DB.Ping(); err != nil {
				status = "unhealthy"
				code = http.StatusServiceUnavailable
			}
			ctx.JSON(code, gin.H{"status": status})
		})

		api.POST("/auth/register", authHandler.HandleRegister())
		api.POST("/auth/login", authHandler.HandleLogin())

		protected := api.Group("/", AuthRequired(c.AuthService))
		{
			protected.GET("/auth/me", authHandler.HandleMe())

			protected.POST("/datasets/upload", datasetHandler.HandleUpload())
			protected.GET("/datasets", datasetHandler.HandleList())
			protected.GET("/datasets/:id/analysis", datasetHandler.HandleGetAnalysis())
			protected.GET("/datasets/:id/report", datasetHandler.HandleReport())
			protected.DELETE("/datasets/:id", datasetHandler.HandleDelete())
		}
	}

	return router
}
