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

// OpportunityHandler exposes CRUD and lifecycle endpoints for deal listings.
type OpportunityHandler struct {
	service *services.OpportunityService
	audit   *services.AuditService
}

// NewOpportunityHandler constructs an opportunity handler.
func NewOpportunityHandler(db *gorm.DB, notifications *services.NotificationService) (*OpportunityHandler, error) {
	service, err := services.NewOpportunityService(db, notifications)
	if err != nil {
		return nil, err
	}
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	return &OpportunityHandler{service: service, audit: audit}, nil
}

type createOpportunityRequest struct {
	Kind        string `json:"kind" validate:"required,oneof=MNA REAL_ESTATE"`
	Name        string `json:"name" validate:"required,min=2,max=200"`
	Description string `json:"description"`
	Currency    string `json:"currency"`
	Stage       string `json:"stage"`

	Sector      string `json:"sector"`
	Region      string `json:"region"`
	Revenue     int64  `json:"revenue"`
	Ebitda      int64  `json:"ebitda"`
	AskingPrice int64  `json:"asking_price"`

	PropertyType string  `json:"property_type"`
	Location     string  `json:"location"`
	AreaSqm      int64   `json:"area_sqm"`
	Price        int64   `json:"price"`
	GrossYield   float64 `json:"gross_yield"`

	ClientAcquisitionUserID string `json:"client_acquisition_user_id"`
	ClientOriginatorUserID  string `json:"client_originator_user_id"`
	AnalyticsFollowUpUserID string `json:"analytics_follow_up_user_id"`
}

type updateOpportunityRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Stage       *string `json:"stage"`

	Sector      *string `json:"sector"`
	Region      *string `json:"region"`
	Revenue     *int64  `json:"revenue"`
	Ebitda      *int64  `json:"ebitda"`
	AskingPrice *int64  `json:"asking_price"`

	PropertyType *string  `json:"property_type"`
	Location     *string  `json:"location"`
	AreaSqm      *int64   `json:"area_sqm"`
	Price        *int64   `json:"price"`
	GrossYield   *float64 `json:"gross_yield"`
}

type assignManagerRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func isStaff(c *gin.Context) bool {
	role := c.GetString(middleware.CtxRoleKey)
	return role == models.RoleAdmin || role == models.RoleTeam
}

// List returns listings, filterable by kind, stage and published state.
// Clients only ever see published listings.
func (h *OpportunityHandler) List(c *gin.Context) {
	input := services.ListOpportunitiesInput{
		PublishedOnly: c.Query("published") == "true" || !isStaff(c),
		Stage:         strings.TrimSpace(c.Query("stage")),
		Limit:         parseIntQuery(c, "limit", 25),
		Offset:        parseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("kind"); raw != "" {
		kind, ok := parseKind(raw)
		if !ok {
			response.Error(c, appErrors.NewBadRequest("opportunity kind must be mna or real-estate"))
			return
		}
		input.Kind = kind
	}

	items, err := h.service.List(requestContext(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, items)
}

// Get returns one listing.
func (h *OpportunityHandler) Get(c *gin.Context) {
	ref, ok := opportunityRefFromPath(c)
	if !ok {
		return
	}

	dto, err := h.service.Get(requestContext(c), ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !dto.Published && !isStaff(c) {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, dto)
}

// Create inserts a new listing.
func (h *OpportunityHandler) Create(c *gin.Context) {
	var req createOpportunityRequest
	if !bindAndValidate(c, &req) {
		return
	}

	dto, err := h.service.Create(requestContext(c), services.CreateOpportunityInput{
		Kind:        models.OpportunityKind(req.Kind),
		Name:        req.Name,
		Description: req.Description,
		Currency:    req.Currency,
		Stage:       req.Stage,

		Sector:      req.Sector,
		Region:      req.Region,
		Revenue:     req.Revenue,
		Ebitda:      req.Ebitda,
		AskingPrice: req.AskingPrice,

		PropertyType: req.PropertyType,
		Location:     req.Location,
		AreaSqm:      req.AreaSqm,
		Price:        req.Price,
		GrossYield:   req.GrossYield,

		ClientAcquisitionUserID: req.ClientAcquisitionUserID,
		ClientOriginatorUserID:  req.ClientOriginatorUserID,
		AnalyticsFollowUpUserID: req.AnalyticsFollowUpUserID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.audit.Record(requestContext(c), services.AuditEntry{
		UserID:   actorID(c),
		Action:   "opportunity.create",
		Entity:   "opportunity",
		EntityID: dto.ID,
		Metadata: map[string]any{"kind": string(dto.Kind)},
	})

	response.Success(c, http.StatusCreated, dto)
}

// Update applies a partial update to a listing.
func (h *OpportunityHandler) Update(c *gin.Context) {
	ref, ok := opportunityRefFromPath(c)
	if !ok {
		return
	}

	var req updateOpportunityRequest
	if !bindAndValidate(c, &req) {
		return
	}

	dto, err := h.service.Update(requestContext(c), ref, services.UpdateOpportunityInput{
		Name:        req.Name,
		Description: req.Description,
		Stage:       req.Stage,

		Sector:      req.Sector,
		Region:      req.Region,
		Revenue:     req.Revenue,
		Ebitda:      req.Ebitda,
		AskingPrice: req.AskingPrice,

		PropertyType: req.PropertyType,
		Location:     req.Location,
		AreaSqm:      req.AreaSqm,
		Price:        req.Price,
		GrossYield:   req.GrossYield,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, dto)
}

// Publish flips a listing live and fans out the announcement.
func (h *OpportunityHandler) Publish(c *gin.Context) {
	ref, ok := opportunityRefFromPath(c)
	if !ok {
		return
	}

	dto, err := h.service.Publish(requestContext(c), ref)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.audit.Record(requestContext(c), services.AuditEntry{
		UserID:   actorID(c),
		Action:   "opportunity.publish",
		Entity:   "opportunity",
		EntityID: ref.ID,
		Metadata: map[string]any{"kind": string(ref.Kind)},
	})

	response.Success(c, http.StatusOK, dto)
}

// AssignManager adds a staff account manager to a listing.
func (h *OpportunityHandler) AssignManager(c *gin.Context) {
	ref, ok := opportunityRefFromPath(c)
	if !ok {
		return
	}

	var req assignManagerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.service.AssignAccountManager(requestContext(c), ref, req.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assigned": true})
}

// UnassignManager removes a staff account manager from a listing.
func (h *OpportunityHandler) UnassignManager(c *gin.Context) {
	ref, ok := opportunityRefFromPath(c)
	if !ok {
		return
	}

	userID := strings.TrimSpace(c.Param("userId"))
	if err := h.service.UnassignAccountManager(requestContext(c), ref, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"assigned": false})
}
