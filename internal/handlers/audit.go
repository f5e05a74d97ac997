package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dealdesk/internal/services"
	"dealdesk/pkg/response"
)

// AuditHandler exposes the compliance log to admins.
type AuditHandler struct {
	service *services.AuditService
}

// NewAuditHandler constructs an audit handler.
func NewAuditHandler(db *gorm.DB) (*AuditHandler, error) {
	service, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	return &AuditHandler{service: service}, nil
}

// List returns audit rows, newest first.
func (h *AuditHandler) List(c *gin.Context) {
	items, err := h.service.List(requestContext(c), services.ListAuditInput{
		UserID: strings.TrimSpace(c.Query("user_id")),
		Entity: strings.TrimSpace(c.Query("entity")),
		Action: strings.TrimSpace(c.Query("action")),
		Limit:  parseIntQuery(c, "limit", 100),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}
