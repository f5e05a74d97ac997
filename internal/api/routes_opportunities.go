package api

import (
	"github.com/gin-gonic/gin"

	"dealdesk/internal/handlers"
	"dealdesk/internal/middleware"
	"dealdesk/internal/models"
)

func registerOpportunityRoutes(api *gin.RouterGroup, opportunities *handlers.OpportunityHandler, interests *handlers.InterestHandler) {
	requireStaff := middleware.RequireRole(models.RoleAdmin, models.RoleTeam)

	group := api.Group("/opportunities")
	{
		group.GET("", opportunities.List)
		group.GET("/:kind/:id", opportunities.Get)

		group.POST("", requireStaff, opportunities.Create)
		group.PATCH("/:kind/:id", requireStaff, opportunities.Update)
		group.POST("/:kind/:id/publish", requireStaff, opportunities.Publish)
		group.POST("/:kind/:id/managers", requireStaff, opportunities.AssignManager)
		group.DELETE("/:kind/:id/managers/:userId", requireStaff, opportunities.UnassignManager)

		// Investor and advisor actions on their own behalf.
		group.POST("/:kind/:id/interest", interests.Express)
		group.POST("/:kind/:id/decline", interests.Decline)

		// Staff review of interest pipelines.
		group.GET("/:kind/:id/interests", requireStaff, interests.ListByOpportunity)
		group.POST("/:kind/:id/interests/:userId/processed", requireStaff, interests.MarkProcessed)
		group.POST("/:kind/:id/interests/:userId/nda", requireStaff, interests.IssueNda)
	}
}
