package api

import (
	"github.com/gin-gonic/gin"

	"dealdesk/internal/handlers"
	"dealdesk/internal/middleware"
	"dealdesk/internal/models"
)

func registerAuditRoutes(api *gin.RouterGroup, handler *handlers.AuditHandler) {
	api.GET("/audit", middleware.RequireRole(models.RoleAdmin), handler.List)
}
