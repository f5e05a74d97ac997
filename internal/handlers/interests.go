package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dealdesk/internal/middleware"
	"dealdesk/internal/services"
	"dealdesk/pkg/errors"
	"dealdesk/pkg/response"
)

// InterestHandler exposes the investor-facing interest endpoints and the
// staff-side processing ones.
type InterestHandler struct {
	service *services.InterestService
	audit   *services.AuditService
}

// NewInterestHandler constructs an interest handler.
func NewInterestHandler(db *gorm.DB, notifications *services.NotificationService) (*InterestHandler, error) {
	service, err := services.NewInterestService(db, notifications)
	if err != nil {
		return nil, err
	}
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	return &InterestHandler{service: service, audit: audit}, nil
}

type declineRequest struct {
	Reason string `json:"reason"`
}

type issueNdaRequest struct {
	ProviderDocumentID string `json:"provider_document_id" validate:"required"`
}

// Express records the caller's interest in a listing.
func (h *InterestHandler) Express(c *gin.Context) {
	ref, ok := opportunityRefFromPath(c)
	if !ok {
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	dto, err := h.service.Express(requestContext(c), userID, ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dto)
}

// Decline records that the caller passed on a listing.
func (h *InterestHandler) Decline(c *gin.Context) {
	ref, ok := opportunityRefFromPath(c)
	if !ok {
		return
	}

	userID := c.GetString(middleware.CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req declineRequest
	if !bindAndValidate(c, &req) {
		return
	}

	dto, err := h.service.Decline(requestContext(c), userID, ref, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dto)
}

// ListByOpportunity returns every interest row on a listing. Staff only.
func (h *InterestHandler) ListByOpportunity(c *gin.Context) {
	ref, ok := opportunityRefFromPath(c)
	if !ok {
		return
	}

	items, err := h.service.ListByOpportunity(requestContext(c), ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// MarkProcessed flags an interest as handled. Staff only.
func (h *InterestHandler) MarkProcessed(c *gin.Context) {
	ref, ok := opportunityRefFromPath(c)
	if !ok {
		return
	}

	userID := strings.TrimSpace(c.Param("userId"))
	dto, err := h.service.MarkProcessed(requestContext(c), userID, ref)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.audit.Record(requestContext(c), services.AuditEntry{
		UserID:   actorID(c),
		Action:   "interest.process",
		Entity:   "interest",
		EntityID: dto.ID,
	})

	response.Success(c, http.StatusOK, dto)
}

// IssueNda records that an NDA was sent to a user for signature. Staff only.
func (h *InterestHandler) IssueNda(c *gin.Context) {
	ref, ok := opportunityRefFromPath(c)
	if !ok {
		return
	}

	userID := strings.TrimSpace(c.Param("userId"))

	var req issueNdaRequest
	if !bindAndValidate(c, &req) {
		return
	}

	doc, err := h.service.IssueNda(requestContext(c), userID, ref, req.ProviderDocumentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.audit.Record(requestContext(c), services.AuditEntry{
		UserID:   actorID(c),
		Action:   "nda.issue",
		Entity:   "esign_document",
		EntityID: doc.ID,
		Metadata: map[string]any{"provider_document_id": doc.ProviderDocumentID},
	})

	response.Success(c, http.StatusCreated, doc)
}
