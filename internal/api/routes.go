package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes sets up the API routes
func SetupRoutes(handler *Handler, log logrus.FieldLogger) *gin.Engine {
	router := gin.New()

	// Middleware
	router.Use(Recovery())
	router.Use(CORS())
	router.Use(Logger(log))

	// Health check
	router.GET("/health", handler.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	{
		v1.GET("/catalog", handler.GetCatalog)
		v1.POST("/dashboards/evaluate", handler.EvaluateDashboard)
		v1.GET("/export", handler.Export)

		reports := v1.Group("/reports")
		{
			reports.POST("/evaluate", handler.EvaluateReport)
			reports.POST("", handler.CreateReport)
			reports.GET("", handler.ListReports)
			reports.GET("/:id", handler.GetReport)
			reports.POST("/:id/refresh", handler.RefreshReport)
			reports.POST("/:id/snapshots", handler.CreateSnapshot)
			reports.GET("/:id/snapshots", handler.ListSnapshots)
		}
	}

	return router
}
