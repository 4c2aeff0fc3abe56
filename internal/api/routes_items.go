package api

import (
	"github.com/gin-gonic/gin"

	"github.com/hadbitapp/hadbit-server/internal/handlers"
)

func registerItemRoutes(api *gin.RouterGroup, handler *handlers.ItemHandler) {
	group := api.Group("/habit/items")
	{
		group.GET("/tree", handler.ListTree)
		group.GET("/parents", handler.ListParents)
		group.PUT("/order", handler.Reorder)
		group.POST("", handler.Create)
		group.POST("/:id/children", handler.CreateChild)
		group.GET("/:id", handler.Get)
		group.PUT("/:id", handler.Update)
		group.DELETE("/:id", handler.Delete)
		group.POST("/:id/restore", handler.Restore)
		group.POST("/:id/move-up", handler.MoveUp)
		group.POST("/:id/move-down", handler.MoveDown)
	}
}
