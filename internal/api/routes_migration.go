package api

import (
	"github.com/gin-gonic/gin"

	"github.com/hadbitapp/hadbit-server/internal/handlers"
)

func registerMigrationRoutes(api *gin.RouterGroup, handler *handlers.MigrationHandler) {
	group := api.Group("/migration")
	{
		group.GET("/preview", handler.Preview)
		group.POST("/execute", handler.Execute)
	}
}
