package api

import (
	"github.com/gin-gonic/gin"

	"dealdesk/internal/handlers"
	"dealdesk/internal/middleware"
	"dealdesk/internal/models"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler) {
	group := api.Group("/users", middleware.RequireRole(models.RoleAdmin))
	{
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.POST("", handler.Create)
		group.POST("/:id/enabled", handler.SetEnabled)
	}
}
