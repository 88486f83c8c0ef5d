package router

import (
	"github.com/gin-gonic/gin"

	"themochi.app/analytics/internal/http/handler"
	"themochi.app/analytics/internal/service"
)

func SetupRoutes(router *gin.Engine, services *service.Services) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		analysisHandler := handler.NewAnalysisHandler(services.Analysis())
		AnalysisRouter(v1, analysisHandler)
	}
}
