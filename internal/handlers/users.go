package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"dealdesk/internal/services"
	"dealdesk/pkg/response"
)

// UserHandler exposes the staff-facing account management endpoints.
type UserHandler struct {
	users *services.UserService
	audit *services.AuditService
}

// NewUserHandler constructs a user handler.
func NewUserHandler(db *gorm.DB) (*UserHandler, error) {
	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}
	audit, err := services.NewAuditService(db)
	if err != nil {
		return nil, err
	}
	return &UserHandler{users: users, audit: audit}, nil
}

type createUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Role      string `json:"role" validate:"required,oneof=ADMIN TEAM INVESTOR ADVISOR"`
	Locale    string `json:"locale"`
}

type setEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// List returns all accounts, optionally filtered by role.
func (h *UserHandler) List(c *gin.Context) {
	role := strings.ToUpper(strings.TrimSpace(c.Query("role")))
	users, err := h.users.List(requestContext(c), role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, users)
}

// Get returns one account.
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// Create provisions an account with any role, including staff.
func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, err := h.users.Create(requestContext(c), services.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		Locale:    req.Locale,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.audit.Record(requestContext(c), services.AuditEntry{
		UserID:   actorID(c),
		Action:   "user.create",
		Entity:   "user",
		EntityID: user.ID,
		Metadata: map[string]any{"role": user.Role},
	})

	response.Success(c, http.StatusCreated, user)
}

// SetEnabled toggles whether an account can sign in.
func (h *UserHandler) SetEnabled(c *gin.Context) {
	var req setEnabledRequest
	if !bindAndValidate(c, &req) {
		return
	}

	id := c.Param("id")
	if err := h.users.SetEnabled(requestContext(c), id, *req.Enabled); err != nil {
		response.Error(c, err)
		return
	}

	h.audit.Record(requestContext(c), services.AuditEntry{
		UserID:   actorID(c),
		Action:   "user.set_enabled",
		Entity:   "user",
		EntityID: id,
		Metadata: map[string]any{"enabled": *req.Enabled},
	})

	response.Success(c, http.StatusOK, gin.H{"enabled": *req.Enabled})
}
