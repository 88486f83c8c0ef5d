package router

import (
	"github.com/gin-gonic/gin"

	"themochi.app/analytics/internal/http/handler"
)

func AnalysisRouter(router *gin.RouterGroup, handler *handler.AnalysisHandler) {
	router.POST("/analysis", handler.Submit)
	router.POST("/analysis/sync", handler.AnalyzeSync)
	router.GET("/jobs/:id", handler.Job)
	router.POST("/scripts/search", handler.SearchScripts)
}
