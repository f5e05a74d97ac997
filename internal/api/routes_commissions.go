package api

import (
	"github.com/gin-gonic/gin"

	"dealdesk/internal/handlers"
	"dealdesk/internal/middleware"
	"dealdesk/internal/models"
)

func registerCommissionRoutes(api *gin.RouterGroup, handler *handlers.CommissionHandler) {
	requireAdmin := middleware.RequireRole(models.RoleAdmin)

	group := api.Group("/commissions")
	{
		// Advisors see their own ledger, admins can filter by advisor.
		group.GET("", middleware.RequireRole(models.RoleAdmin, models.RoleAdvisor), handler.List)
		group.GET("/:id", middleware.RequireRole(models.RoleAdmin, models.RoleAdvisor), handler.Get)

		group.POST("", requireAdmin, handler.Create)
		group.POST("/:id/approve", requireAdmin, handler.Approve)
		group.POST("/:id/paid", requireAdmin, handler.MarkPaid)
	}
}
