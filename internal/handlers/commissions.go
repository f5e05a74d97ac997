package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dealdesk/internal/middleware"
	"dealdesk/internal/models"
	"dealdesk/internal/services"
	appErrors "dealdesk/pkg/errors"
	"dealdesk/pkg/response"
)

// CommissionHandler exposes the advisor commission endpoints.
type CommissionHandler struct {
	service *services.CommissionService
	audit   *services.AuditService
}

// NewCommissionHandler constructs a commission handler.
func NewCommissionHandler(db *gorm.DB, notifications *services.NotificationService) (*CommissionHandler, error) {
	service, err := services.NewCommissionService(db, notifications)
	if err != nil {
		return nil, err
	}
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	return &CommissionHandler{service: service, audit: audit}, nil
}

type createCommissionRequest struct {
	AdvisorUserID string `json:"advisor_user_id" validate:"required"`
	OpportunityID string `json:"opportunity_id" validate:"required"`
	Kind          string `json:"opportunity_kind" validate:"required,oneof=MNA REAL_ESTATE"`
	BasisPoints   int    `json:"basis_points" validate:"required,gt=0,lte=10000"`
	Notes         string `json:"notes"`
}

// Create records a commission grant. Admin only.
func (h *CommissionHandler) Create(c *gin.Context) {
	var req createCommissionRequest
	if !bindAndValidate(c, &req) {
		return
	}

	commission, err := h.service.Create(requestContext(c), services.CreateCommissionInput{
		AdvisorUserID: req.AdvisorUserID,
		OpportunityID: req.OpportunityID,
		Kind:          models.OpportunityKind(req.Kind),
		BasisPoints:   req.BasisPoints,
		Notes:         req.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.audit.Record(requestContext(c), services.AuditEntry{
		UserID:   actorID(c),
		Action:   "commission.create",
		Entity:   "commission",
		EntityID: commission.ID,
		Metadata: map[string]any{"basis_points": commission.BasisPoints},
	})

	response.Success(c, http.StatusCreated, commission)
}

// List returns commissions. Staff see everything; advisors see their own.
func (h *CommissionHandler) List(c *gin.Context) {
	input := services.ListCommissionsInput{
		Status: strings.ToUpper(strings.TrimSpace(c.Query("status"))),
	}

	role := c.GetString(middleware.CtxRoleKey)
	if role == models.RoleAdvisor {
		input.AdvisorUserID = c.GetString(middleware.CtxUserIDKey)
	} else if advisor := strings.TrimSpace(c.Query("advisor_id")); advisor != "" {
		input.AdvisorUserID = advisor
	}

	items, err := h.service.List(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// Get returns one commission. Advisors may only read their own.
func (h *CommissionHandler) Get(c *gin.Context) {
	commission, err := h.service.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	role := c.GetString(middleware.CtxRoleKey)
	if role == models.RoleAdvisor && commission.UserID != c.GetString(middleware.CtxUserIDKey) {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	response.Success(c, http.StatusOK, commission)
}

// Approve moves a pending commission to APPROVED. Admin only.
func (h *CommissionHandler) Approve(c *gin.Context) {
	commission, err := h.service.Approve(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.audit.Record(requestContext(c), services.AuditEntry{
		UserID:   actorID(c),
		Action:   "commission.approve",
		Entity:   "commission",
		EntityID: commission.ID,
	})

	response.Success(c, http.StatusOK, commission)
}

// MarkPaid moves an approved commission to PAID. Admin only.
func (h *CommissionHandler) MarkPaid(c *gin.Context) {
	commission, err := h.service.MarkPaid(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.audit.Record(requestContext(c), services.AuditEntry{
		UserID:   actorID(c),
		Action:   "commission.mark_paid",
		Entity:   "commission",
		EntityID: commission.ID,
	})

	response.Success(c, http.StatusOK, commission)
}
