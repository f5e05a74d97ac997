package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealdesk/internal/services"
	appErrors "dealdesk/pkg/errors"
	"dealdesk/pkg/response"
)

// WebhookHandler receives e-signature provider callbacks.
type WebhookHandler struct {
	esign *services.EsignService
	audit *services.AuditService
}

// NewWebhookHandler constructs a webhook handler.
func NewWebhookHandler(esign *services.EsignService, audit *services.AuditService) (*WebhookHandler, error) {
	if esign == nil {
		return nil, appErrors.New("WEBHOOK_CONFIG", "esign service is required", http.StatusInternalServerError)
	}
	return &WebhookHandler{esign: esign, audit: audit}, nil
}

// Esign handles a provider delivery. The payload is a JSON array of events
// whose first element carries the shared key. An invalid key rejects the
// whole delivery with 401; once the key checks out the response is always
// 200 so the provider does not retry events we chose to skip.
func (h *WebhookHandler) Esign(c *gin.Context) {
	var events []services.WebhookEvent
	if err := c.ShouldBindJSON(&events); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid webhook payload"))
		return
	}
	if len(events) == 0 {
		response.Error(c, appErrors.NewBadRequest("empty webhook payload"))
		return
	}

	if err := h.esign.VerifySharedKey(events[0].Data.SharedKey); err != nil {
		response.Error(c, err)
		return
	}

	h.esign.ProcessEvents(requestContext(c), events)

	if h.audit != nil {
		for _, event := range events {
			h.audit.Record(requestContext(c), services.AuditEntry{
				Action:   "webhook." + event.Event,
				Entity:   "esign_document",
				EntityID: event.Data.ID,
				Metadata: map[string]any{"status": event.Data.Status},
			})
		}
	}

	response.Success(c, http.StatusOK, gin.H{"status": "ok"})
}
