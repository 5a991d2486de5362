package api

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes wires all endpoints onto the engine.
func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.Health)
	router.GET("/ready", handler.Ready)

	if handler.telemetry != nil {
		router.GET("/metrics", gin.WrapH(handler.telemetry.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		v1.POST("/feedback", handler.IngestFeedback)
		v1.GET("/feedback", handler.ListFeedback)
		v1.GET("/feedback/:id", handler.GetFeedback)

		v1.POST("/analyze", handler.Analyze)

		v1.GET("/clusters", handler.ListClusters)
		v1.GET("/clusters/:id", handler.GetCluster)
		v1.PUT("/clusters/:id/status", handler.UpdateClusterStatus)
		v1.POST("/clusters/:id/reset-alert", handler.ResetClusterAlert)

		v1.GET("/stats", handler.GetStats)
	}
}
