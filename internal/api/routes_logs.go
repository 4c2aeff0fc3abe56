package api

import (
	"github.com/gin-gonic/gin"

	"github.com/hadbitapp/hadbit-server/internal/handlers"
)

func registerLogRoutes(api *gin.RouterGroup, handler *handlers.LogHandler) {
	group := api.Group("/habit/logs")
	{
		group.POST("", handler.Create)
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.PUT("/:id", handler.Update)
		group.PATCH("/:id/memo", handler.UpdateMemo)
		group.DELETE("/:id", handler.Delete)
	}
}
