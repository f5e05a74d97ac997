package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"dealdesk/internal/models"
	apperrors "dealdesk/pkg/errors"
)

// CreateCommissionInput describes a new advisor commission on a deal.
type CreateCommissionInput struct {
	AdvisorUserID string                 `json:"advisor_user_id" binding:"required"`
	OpportunityID string                 `json:"opportunity_id" binding:"required"`
	Kind          models.OpportunityKind `json:"opportunity_kind" binding:"required"`
	BasisPoints   int                    `json:"basis_points" binding:"required,gt=0,lte=10000"`
	Notes         string                 `json:"notes"`
}

// ListCommissionsInput filters the commission listing.
type ListCommissionsInput struct {
	AdvisorUserID string
	Status        string
	Opportunity   models.OpportunityRef
}

// CommissionService manages advisor commissions through their
// PENDING -> APPROVED -> PAID lifecycle.
type CommissionService struct {
	db            *gorm.DB
	notifications *NotificationService
}

// NewCommissionService constructs a CommissionService.
func NewCommissionService(db *gorm.DB, notifications *NotificationService) (*CommissionService, error) {
	if db == nil {
		return nil, errors.New("commission service: db is required")
	}
	return &CommissionService{db: db, notifications: notifications}, nil
}

// Create records a commission and notifies the advisor plus the admins.
func (s *CommissionService) Create(ctx context.Context, input CreateCommissionInput) (*models.Commission, error) {
	ctx = ensureContext(ctx)

	if !input.Kind.Valid() {
		return nil, apperrors.ErrBadRequest
	}
	if input.BasisPoints <= 0 || input.BasisPoints > 10000 {
		return nil, apperrors.NewBadRequest("basis points must be within (0, 10000]")
	}

	var advisor models.User
	if err := s.db.WithContext(ctx).First(&advisor, "id = ?", input.AdvisorUserID).Error; err != nil {
		return nil, translateNotFound(err, "commission service: load advisor")
	}
	if advisor.Role != models.RoleAdvisor {
		return nil, apperrors.NewBadRequest("commissions can only be granted to advisors")
	}

	commission := models.Commission{
		UserID:          advisor.ID,
		OpportunityID:   input.OpportunityID,
		OpportunityKind: input.Kind,
		BasisPoints:     input.BasisPoints,
		Status:          models.CommissionPending,
		Note:            strings.TrimSpace(input.Notes),
	}
	if err := s.db.WithContext(ctx).Create(&commission).Error; err != nil {
		return nil, fmt.Errorf("commission service: create: %w", err)
	}

	if s.notifications != nil {
		ref := models.OpportunityRef{Kind: input.Kind, ID: input.OpportunityID}
		s.notifications.CreateNotification(ctx, CreateNotificationInput{
			UserID:      advisor.ID,
			Type:        models.NotificationCommissionCreated,
			Title:       "Commission granted",
			Message:     fmt.Sprintf("You were granted a %d bps commission", commission.BasisPoints),
			Opportunity: ref,
		})
		s.notifications.NotifyAdmins(ctx, CreateNotificationInput{
			Type:          models.NotificationCommissionCreated,
			Title:         "Commission created",
			Message:       fmt.Sprintf("%s was granted a %d bps commission", advisor.FullName(), commission.BasisPoints),
			Opportunity:   ref,
			RelatedUserID: advisor.ID,
		})
	}

	return &commission, nil
}

// List returns commissions matching the filter, newest first.
func (s *CommissionService) List(ctx context.Context, input ListCommissionsInput) ([]models.Commission, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Commission{})
	if input.AdvisorUserID != "" {
		query = query.Where("user_id = ?", input.AdvisorUserID)
	}
	if input.Status != "" {
		query = query.Where("status = ?", input.Status)
	}
	if !input.Opportunity.IsZero() {
		query = query.Where("opportunity_id = ? AND opportunity_kind = ?", input.Opportunity.ID, input.Opportunity.Kind)
	}

	var rows []models.Commission
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("commission service: list: %w", err)
	}
	return rows, nil
}

// Get loads one commission by id.
func (s *CommissionService) Get(ctx context.Context, id string) (*models.Commission, error) {
	ctx = ensureContext(ctx)

	var commission models.Commission
	if err := s.db.WithContext(ctx).First(&commission, "id = ?", id).Error; err != nil {
		return nil, translateNotFound(err, "commission service: load")
	}
	return &commission, nil
}

// Approve moves a pending commission to APPROVED.
func (s *CommissionService) Approve(ctx context.Context, id string) (*models.Commission, error) {
	return s.transition(ctx, id, models.CommissionPending, models.CommissionApproved)
}

// MarkPaid moves an approved commission to PAID.
func (s *CommissionService) MarkPaid(ctx context.Context, id string) (*models.Commission, error) {
	return s.transition(ctx, id, models.CommissionApproved, models.CommissionPaid)
}

// transition enforces the one-way lifecycle; moving from any other state is a
// conflict, not a silent overwrite.
func (s *CommissionService) transition(ctx context.Context, id, from, to string) (*models.Commission, error) {
	ctx = ensureContext(ctx)

	commission, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if commission.Status != from {
		return nil, apperrors.ErrConflict
	}

	if err := s.db.WithContext(ctx).Model(commission).Update("status", to).Error; err != nil {
		return nil, fmt.Errorf("commission service: transition: %w", err)
	}
	commission.Status = to

	if s.notifications != nil {
		s.notifications.CreateNotification(ctx, CreateNotificationInput{
			UserID:      commission.UserID,
			Type:        models.NotificationCommissionStatusMoved,
			Title:       "Commission updated",
			Message:     fmt.Sprintf("Your commission is now %s", to),
			Opportunity: models.OpportunityRef{Kind: commission.OpportunityKind, ID: commission.OpportunityID},
		})
	}
	return commission, nil
}
