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

// InterestDTO is the kind-agnostic interest payload.
type InterestDTO struct {
	ID                  string                 `json:"id"`
	UserID              string                 `json:"user_id"`
	OpportunityID       string                 `json:"opportunity_id"`
	OpportunityKind     models.OpportunityKind `json:"opportunity_kind"`
	Interested          bool                   `json:"interested"`
	NdaSigned           bool                   `json:"nda_signed"`
	NotInterestedReason string                 `json:"not_interested_reason,omitempty"`
	Processed           bool                   `json:"processed"`
}

// InterestUpdate carries the fields an upsert may touch. Nil fields keep the
// existing value, so re-applying the same update is a no-op.
type InterestUpdate struct {
	Interested          *bool
	NdaSigned           *bool
	NotInterestedReason *string
	Processed           *bool
}

// InterestService manages the two per-kind interest tables and the NDA
// issuance records that tie a provider document back to local context.
type InterestService struct {
	db            *gorm.DB
	notifications *NotificationService
}

// NewInterestService constructs an InterestService.
func NewInterestService(db *gorm.DB, notifications *NotificationService) (*InterestService, error) {
	if db == nil {
		return nil, errors.New("interest service: db is required")
	}
	return &InterestService{db: db, notifications: notifications}, nil
}

// Express records that a user wants access to an opportunity and fans out an
// access-request notification. The notification is a best-effort side effect;
// its failure never surfaces here.
func (s *InterestService) Express(ctx context.Context, userID string, ref models.OpportunityRef) (*InterestDTO, error) {
	ctx = ensureContext(ctx)

	interested := true
	dto, err := s.Upsert(ctx, userID, ref, InterestUpdate{Interested: &interested})
	if err != nil {
		return nil, err
	}

	if s.notifications != nil {
		var requester models.User
		requesterName := userID
		if err := s.db.WithContext(ctx).First(&requester, "id = ?", userID).Error; err == nil {
			requesterName = requester.FullName()
		}

		input := CreateNotificationInput{
			Type:          models.NotificationAccessRequest,
			Title:         "Access request received",
			Message:       fmt.Sprintf("%s requested access to an opportunity", requesterName),
			Opportunity:   ref,
			RelatedUserID: userID,
		}

		// Prefer the people with a stake in the deal; fall back to staff-wide
		// when the deal carries no assignments yet.
		involved, invErr := s.notifications.InvolvedUsers(ctx, ref)
		if invErr == nil && len(involved) > 0 {
			inputs := make([]CreateNotificationInput, 0, len(involved))
			for _, id := range involved {
				recipient := input
				recipient.UserID = id
				inputs = append(inputs, recipient)
			}
			s.notifications.CreateNotifications(ctx, inputs)
		} else {
			s.notifications.NotifyTeamAndAdmins(ctx, input)
		}
	}

	return dto, nil
}

// Decline records a not-interested stance with an optional reason. No staff
// notification is sent.
func (s *InterestService) Decline(ctx context.Context, userID string, ref models.OpportunityRef, reason string) (*InterestDTO, error) {
	interested := false
	reason = strings.TrimSpace(reason)
	return s.Upsert(ctx, userID, ref, InterestUpdate{
		Interested:          &interested,
		NotInterestedReason: &reason,
	})
}

// MarkProcessed flags an interest as handled by the team and tells the investor.
func (s *InterestService) MarkProcessed(ctx context.Context, userID string, ref models.OpportunityRef) (*InterestDTO, error) {
	ctx = ensureContext(ctx)

	processed := true
	dto, err := s.Upsert(ctx, userID, ref, InterestUpdate{Processed: &processed})
	if err != nil {
		return nil, err
	}

	if s.notifications != nil {
		s.notifications.CreateNotification(ctx, CreateNotificationInput{
			UserID:      userID,
			Type:        models.NotificationInterestProcessed,
			Title:       "Your request was processed",
			Message:     "The team has processed your access request",
			Opportunity: ref,
		})
	}
	return dto, nil
}

// Upsert applies the update to the (userID, ref.ID) interest row in the table
// selected by ref.Kind, creating the row when absent. This is the natural-key
// pattern that keeps webhook re-delivery idempotent.
func (s *InterestService) Upsert(ctx context.Context, userID string, ref models.OpportunityRef, update InterestUpdate) (*InterestDTO, error) {
	ctx = ensureContext(ctx)

	userID = strings.TrimSpace(userID)
	if userID == "" || ref.ID == "" || !ref.Kind.Valid() {
		return nil, apperrors.ErrBadRequest
	}

	switch ref.Kind {
	case models.KindMna:
		var row models.MnaInterest
		err := s.db.WithContext(ctx).
			Where("user_id = ? AND opportunity_id = ?", userID, ref.ID).
			First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = models.MnaInterest{UserID: userID, OpportunityID: ref.ID}
			applyInterestUpdate(&row.Interested, &row.NdaSigned, &row.NotInterestedReason, &row.Processed, update)
			if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
				return nil, fmt.Errorf("interest service: create mna interest: %w", err)
			}
		case err != nil:
			return nil, fmt.Errorf("interest service: load mna interest: %w", err)
		default:
			applyInterestUpdate(&row.Interested, &row.NdaSigned, &row.NotInterestedReason, &row.Processed, update)
			if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
				return nil, fmt.Errorf("interest service: update mna interest: %w", err)
			}
		}
		dto := mapMnaInterest(row)
		return &dto, nil

	default:
		var row models.RealEstateInterest
		err := s.db.WithContext(ctx).
			Where("user_id = ? AND opportunity_id = ?", userID, ref.ID).
			First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = models.RealEstateInterest{UserID: userID, OpportunityID: ref.ID}
			applyInterestUpdate(&row.Interested, &row.NdaSigned, &row.NotInterestedReason, &row.Processed, update)
			if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
				return nil, fmt.Errorf("interest service: create real estate interest: %w", err)
			}
		case err != nil:
			return nil, fmt.Errorf("interest service: load real estate interest: %w", err)
		default:
			applyInterestUpdate(&row.Interested, &row.NdaSigned, &row.NotInterestedReason, &row.Processed, update)
			if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
				return nil, fmt.Errorf("interest service: update real estate interest: %w", err)
			}
		}
		dto := mapRealEstateInterest(row)
		return &dto, nil
	}
}

// Get returns the interest row for (userID, ref) when present.
func (s *InterestService) Get(ctx context.Context, userID string, ref models.OpportunityRef) (*InterestDTO, error) {
	ctx = ensureContext(ctx)

	switch ref.Kind {
	case models.KindMna:
		var row models.MnaInterest
		if err := s.db.WithContext(ctx).
			Where("user_id = ? AND opportunity_id = ?", userID, ref.ID).
			First(&row).Error; err != nil {
			return nil, translateNotFound(err, "interest service: load mna interest")
		}
		dto := mapMnaInterest(row)
		return &dto, nil
	case models.KindRealEstate:
		var row models.RealEstateInterest
		if err := s.db.WithContext(ctx).
			Where("user_id = ? AND opportunity_id = ?", userID, ref.ID).
			First(&row).Error; err != nil {
			return nil, translateNotFound(err, "interest service: load real estate interest")
		}
		dto := mapRealEstateInterest(row)
		return &dto, nil
	default:
		return nil, apperrors.ErrBadRequest
	}
}

// ListByOpportunity returns every interest row on one opportunity.
func (s *InterestService) ListByOpportunity(ctx context.Context, ref models.OpportunityRef) ([]InterestDTO, error) {
	ctx = ensureContext(ctx)

	switch ref.Kind {
	case models.KindMna:
		var rows []models.MnaInterest
		if err := s.db.WithContext(ctx).
			Where("opportunity_id = ?", ref.ID).
			Order("created_at DESC").
			Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("interest service: list mna interests: %w", err)
		}
		items := make([]InterestDTO, 0, len(rows))
		for _, row := range rows {
			items = append(items, mapMnaInterest(row))
		}
		return items, nil
	case models.KindRealEstate:
		var rows []models.RealEstateInterest
		if err := s.db.WithContext(ctx).
			Where("opportunity_id = ?", ref.ID).
			Order("created_at DESC").
			Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("interest service: list real estate interests: %w", err)
		}
		items := make([]InterestDTO, 0, len(rows))
		for _, row := range rows {
			items = append(items, mapRealEstateInterest(row))
		}
		return items, nil
	default:
		return nil, apperrors.ErrBadRequest
	}
}

// IssueNda records that an NDA document was sent to the user for signature.
// The row carries the context later webhook callbacks are reconciled against.
func (s *InterestService) IssueNda(ctx context.Context, userID string, ref models.OpportunityRef, providerDocumentID string) (*models.EsignDocument, error) {
	ctx = ensureContext(ctx)

	providerDocumentID = strings.TrimSpace(providerDocumentID)
	if providerDocumentID == "" || !ref.Kind.Valid() || ref.ID == "" {
		return nil, apperrors.ErrBadRequest
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, translateNotFound(err, "interest service: load user")
	}

	var existing models.EsignDocument
	err := s.db.WithContext(ctx).
		Where("provider_document_id = ?", providerDocumentID).
		First(&existing).Error
	if err == nil {
		return nil, apperrors.ErrConflict
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("interest service: check document: %w", err)
	}

	doc := models.EsignDocument{
		ProviderDocumentID: providerDocumentID,
		UserID:             user.ID,
		OpportunityID:      ref.ID,
		OpportunityKind:    ref.Kind,
		RecipientEmail:     user.Email,
		Status:             models.EsignSent,
	}
	if err := s.db.WithContext(ctx).Create(&doc).Error; err != nil {
		return nil, fmt.Errorf("interest service: create esign document: %w", err)
	}
	return &doc, nil
}

func applyInterestUpdate(interested, ndaSigned *bool, reason *string, processed *bool, update InterestUpdate) {
	if update.Interested != nil {
		*interested = *update.Interested
	}
	if update.NdaSigned != nil {
		*ndaSigned = *update.NdaSigned
	}
	if update.NotInterestedReason != nil {
		*reason = *update.NotInterestedReason
	}
	if update.Processed != nil {
		*processed = *update.Processed
	}
}

func mapMnaInterest(row models.MnaInterest) InterestDTO {
	return InterestDTO{
		ID:                  row.ID,
		UserID:              row.UserID,
		OpportunityID:       row.OpportunityID,
		OpportunityKind:     models.KindMna,
		Interested:          row.Interested,
		NdaSigned:           row.NdaSigned,
		NotInterestedReason: row.NotInterestedReason,
		Processed:           row.Processed,
	}
}

func mapRealEstateInterest(row models.RealEstateInterest) InterestDTO {
	return InterestDTO{
		ID:                  row.ID,
		UserID:              row.UserID,
		OpportunityID:       row.OpportunityID,
		OpportunityKind:     models.KindRealEstate,
		Interested:          row.Interested,
		NdaSigned:           row.NdaSigned,
		NotInterestedReason: row.NotInterestedReason,
		Processed:           row.Processed,
	}
}
