package api

import (
	"github.com/gin-gonic/gin"

	"dealdesk/internal/handlers"
)

// Webhook endpoints authenticate through the provider shared key carried in
// the event payload, not through user JWTs.
func registerWebhookRoutes(r *gin.Engine, handler *handlers.WebhookHandler) {
	r.POST("/api/webhooks/esign", handler.Esign)
}
