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

// OpportunityDTO is the kind-agnostic listing payload. Field applicability
// depends on the kind; zero values are omitted from JSON.
type OpportunityDTO struct {
	ID          string                 `json:"id"`
	Kind        models.OpportunityKind `json:"kind"`
	Name        string                 `json:"name"`
	Stage       string                 `json:"stage"`
	Published   bool                   `json:"published"`
	Currency    string                 `json:"currency"`
	Description string                 `json:"description,omitempty"`

	Sector      string `json:"sector,omitempty"`
	Region      string `json:"region,omitempty"`
	Revenue     int64  `json:"revenue,omitempty"`
	Ebitda      int64  `json:"ebitda,omitempty"`
	AskingPrice int64  `json:"asking_price,omitempty"`

	PropertyType string  `json:"property_type,omitempty"`
	Location     string  `json:"location,omitempty"`
	AreaSqm      int64   `json:"area_sqm,omitempty"`
	Price        int64   `json:"price,omitempty"`
	GrossYield   float64 `json:"gross_yield,omitempty"`
}

// CreateOpportunityInput carries the shared and kind-specific attributes for
// a new listing. Kind selects which table the row lands in.
type CreateOpportunityInput struct {
	Kind        models.OpportunityKind
	Name        string
	Description string
	Currency    string
	Stage       string

	Sector      string
	Region      string
	Revenue     int64
	Ebitda      int64
	AskingPrice int64

	PropertyType string
	Location     string
	AreaSqm      int64
	Price        int64
	GrossYield   float64

	ClientAcquisitionUserID string
	ClientOriginatorUserID  string
	AnalyticsFollowUpUserID string
}

// UpdateOpportunityInput applies partial updates; nil fields are untouched.
type UpdateOpportunityInput struct {
	Name        *string
	Description *string
	Stage       *string

	Sector      *string
	Region      *string
	Revenue     *int64
	Ebitda      *int64
	AskingPrice *int64

	PropertyType *string
	Location     *string
	AreaSqm      *int64
	Price        *int64
	GrossYield   *float64
}

// ListOpportunitiesInput filters listings.
type ListOpportunitiesInput struct {
	Kind          models.OpportunityKind // empty means both kinds
	PublishedOnly bool
	Stage         string
	Limit         int
	Offset        int
}

// OpportunityService manages the two deal-listing tables behind the
// OpportunityRef tagged union.
type OpportunityService struct {
	db            *gorm.DB
	notifications *NotificationService
}

// NewOpportunityService constructs an OpportunityService. notifications may be
// nil, in which case publish events are not announced.
func NewOpportunityService(db *gorm.DB, notifications *NotificationService) (*OpportunityService, error) {
	if db == nil {
		return nil, errors.New("opportunity service: db is required")
	}
	return &OpportunityService{db: db, notifications: notifications}, nil
}

// Get resolves a reference to its listing through a single kind switch.
func (s *OpportunityService) Get(ctx context.Context, ref models.OpportunityRef) (*OpportunityDTO, error) {
	ctx = ensureContext(ctx)
	if !ref.Kind.Valid() || ref.ID == "" {
		return nil, apperrors.ErrBadRequest
	}

	switch ref.Kind {
	case models.KindMna:
		var row models.MnaOpportunity
		if err := s.db.WithContext(ctx).First(&row, "id = ?", ref.ID).Error; err != nil {
			return nil, translateNotFound(err, "opportunity service: load mna opportunity")
		}
		dto := mapMnaOpportunity(row)
		return &dto, nil
	default:
		var row models.RealEstateOpportunity
		if err := s.db.WithContext(ctx).First(&row, "id = ?", ref.ID).Error; err != nil {
			return nil, translateNotFound(err, "opportunity service: load real estate opportunity")
		}
		dto := mapRealEstateOpportunity(row)
		return &dto, nil
	}
}

// List returns listings of one or both kinds, most recent first.
func (s *OpportunityService) List(ctx context.Context, input ListOpportunitiesInput) ([]OpportunityDTO, error) {
	ctx = ensureContext(ctx)

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	var items []OpportunityDTO

	if input.Kind == "" || input.Kind == models.KindMna {
		var rows []models.MnaOpportunity
		if err := s.applyFilters(s.db.WithContext(ctx), input, limit, offset).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("opportunity service: list mna opportunities: %w", err)
		}
		for _, row := range rows {
			items = append(items, mapMnaOpportunity(row))
		}
	}

	if input.Kind == "" || input.Kind == models.KindRealEstate {
		var rows []models.RealEstateOpportunity
		if err := s.applyFilters(s.db.WithContext(ctx), input, limit, offset).Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("opportunity service: list real estate opportunities: %w", err)
		}
		for _, row := range rows {
			items = append(items, mapRealEstateOpportunity(row))
		}
	}

	return items, nil
}

// Create inserts a new listing into the table selected by input.Kind.
func (s *OpportunityService) Create(ctx context.Context, input CreateOpportunityInput) (*OpportunityDTO, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewBadRequest("opportunity name is required")
	}
	if !input.Kind.Valid() {
		return nil, apperrors.NewBadRequest("opportunity kind must be MNA or REAL_ESTATE")
	}

	stage := defaultIfEmpty(input.Stage, models.StageTeaser)
	currency := defaultIfEmpty(input.Currency, "EUR")

	switch input.Kind {
	case models.KindMna:
		row := models.MnaOpportunity{
			Name:                    name,
			Sector:                  strings.TrimSpace(input.Sector),
			Region:                  strings.TrimSpace(input.Region),
			Description:             input.Description,
			Revenue:                 input.Revenue,
			Ebitda:                  input.Ebitda,
			AskingPrice:             input.AskingPrice,
			Currency:                currency,
			Stage:                   stage,
			ClientAcquisitionUserID: optionalID(input.ClientAcquisitionUserID),
			ClientOriginatorUserID:  optionalID(input.ClientOriginatorUserID),
			AnalyticsFollowUpUserID: optionalID(input.AnalyticsFollowUpUserID),
		}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, fmt.Errorf("opportunity service: create mna opportunity: %w", err)
		}
		dto := mapMnaOpportunity(row)
		return &dto, nil
	default:
		row := models.RealEstateOpportunity{
			Name:                    name,
			PropertyType:            strings.TrimSpace(input.PropertyType),
			Location:                strings.TrimSpace(input.Location),
			Description:             input.Description,
			AreaSqm:                 input.AreaSqm,
			Price:                   input.Price,
			GrossYield:              input.GrossYield,
			Currency:                currency,
			Stage:                   stage,
			ClientAcquisitionUserID: optionalID(input.ClientAcquisitionUserID),
			ClientOriginatorUserID:  optionalID(input.ClientOriginatorUserID),
			AnalyticsFollowUpUserID: optionalID(input.AnalyticsFollowUpUserID),
		}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return nil, fmt.Errorf("opportunity service: create real estate opportunity: %w", err)
		}
		dto := mapRealEstateOpportunity(row)
		return &dto, nil
	}
}

// Update applies a partial update to the listing behind ref.
func (s *OpportunityService) Update(ctx context.Context, ref models.OpportunityRef, input UpdateOpportunityInput) (*OpportunityDTO, error) {
	ctx = ensureContext(ctx)

	updates := map[string]any{}
	setIfPresentString(updates, "name", input.Name)
	setIfPresentString(updates, "description", input.Description)
	setIfPresentString(updates, "stage", input.Stage)

	switch ref.Kind {
	case models.KindMna:
		setIfPresentString(updates, "sector", input.Sector)
		setIfPresentString(updates, "region", input.Region)
		setIfPresentInt(updates, "revenue", input.Revenue)
		setIfPresentInt(updates, "ebitda", input.Ebitda)
		setIfPresentInt(updates, "asking_price", input.AskingPrice)
	case models.KindRealEstate:
		setIfPresentString(updates, "property_type", input.PropertyType)
		setIfPresentString(updates, "location", input.Location)
		setIfPresentInt(updates, "area_sqm", input.AreaSqm)
		setIfPresentInt(updates, "price", input.Price)
		if input.GrossYield != nil {
			updates["gross_yield"] = *input.GrossYield
		}
	default:
		return nil, apperrors.ErrBadRequest
	}

	if len(updates) > 0 {
		if err := s.applyUpdates(ctx, ref, updates); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, ref)
}

// Publish flips a listing live and announces it to enabled investors and advisors.
func (s *OpportunityService) Publish(ctx context.Context, ref models.OpportunityRef) (*OpportunityDTO, error) {
	ctx = ensureContext(ctx)

	if err := s.applyUpdates(ctx, ref, map[string]any{"published": true, "stage": models.StageMarketing}); err != nil {
		return nil, err
	}

	dto, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}

	if s.notifications != nil {
		s.notifications.NotifyRoles(ctx, CreateNotificationInput{
			Type:        models.NotificationOpportunityPublished,
			Title:       "New opportunity available",
			Message:     fmt.Sprintf("%s is now open for expressions of interest", dto.Name),
			Opportunity: ref,
		}, models.RoleInvestor, models.RoleAdvisor)
	}
	return dto, nil
}

// AssignAccountManager adds a staff user to the opportunity's manager set.
// Assigning an already-assigned manager is a no-op.
func (s *OpportunityService) AssignAccountManager(ctx context.Context, ref models.OpportunityRef, userID string) error {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" || !ref.Kind.Valid() || ref.ID == "" {
		return apperrors.ErrBadRequest
	}

	// The listing must exist; Get performs the kind switch.
	if _, err := s.Get(ctx, ref); err != nil {
		return err
	}

	assignment := models.OpportunityAccountManager{
		OpportunityID:   ref.ID,
		OpportunityKind: ref.Kind,
		UserID:          userID,
	}
	err := s.db.WithContext(ctx).
		Where(models.OpportunityAccountManager{
			OpportunityID:   ref.ID,
			OpportunityKind: ref.Kind,
			UserID:          userID,
		}).
		FirstOrCreate(&assignment).Error
	if err != nil {
		return fmt.Errorf("opportunity service: assign account manager: %w", err)
	}
	return nil
}

// UnassignAccountManager removes a staff user from the opportunity's manager set.
func (s *OpportunityService) UnassignAccountManager(ctx context.Context, ref models.OpportunityRef, userID string) error {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("opportunity_id = ? AND opportunity_kind = ? AND user_id = ?", ref.ID, ref.Kind, userID).
		Delete(&models.OpportunityAccountManager{})
	if result.Error != nil {
		return fmt.Errorf("opportunity service: unassign account manager: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *OpportunityService) applyFilters(query *gorm.DB, input ListOpportunitiesInput, limit, offset int) *gorm.DB {
	if input.PublishedOnly {
		query = query.Where("published = ?", true)
	}
	if input.Stage != "" {
		query = query.Where("stage = ?", input.Stage)
	}
	return query.Order("created_at DESC").Limit(limit).Offset(offset)
}

func (s *OpportunityService) applyUpdates(ctx context.Context, ref models.OpportunityRef, updates map[string]any) error {
	var result *gorm.DB
	switch ref.Kind {
	case models.KindMna:
		result = s.db.WithContext(ctx).Model(&models.MnaOpportunity{}).Where("id = ?", ref.ID).Updates(updates)
	case models.KindRealEstate:
		result = s.db.WithContext(ctx).Model(&models.RealEstateOpportunity{}).Where("id = ?", ref.ID).Updates(updates)
	default:
		return apperrors.ErrBadRequest
	}
	if result.Error != nil {
		return fmt.Errorf("opportunity service: update opportunity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func translateNotFound(err error, wrap string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrNotFound
	}
	return fmt.Errorf("%s: %w", wrap, err)
}

func optionalID(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func setIfPresentString(updates map[string]any, column string, value *string) {
	if value != nil {
		updates[column] = strings.TrimSpace(*value)
	}
}

func setIfPresentInt(updates map[string]any, column string, value *int64) {
	if value != nil {
		updates[column] = *value
	}
}

func mapMnaOpportunity(row models.MnaOpportunity) OpportunityDTO {
	return OpportunityDTO{
		ID:          row.ID,
		Kind:        models.KindMna,
		Name:        row.Name,
		Stage:       row.Stage,
		Published:   row.Published,
		Currency:    row.Currency,
		Description: row.Description,
		Sector:      row.Sector,
		Region:      row.Region,
		Revenue:     row.Revenue,
		Ebitda:      row.Ebitda,
		AskingPrice: row.AskingPrice,
	}
}

func mapRealEstateOpportunity(row models.RealEstateOpportunity) OpportunityDTO {
	return OpportunityDTO{
		ID:           row.ID,
		Kind:         models.KindRealEstate,
		Name:         row.Name,
		Stage:        row.Stage,
		Published:    row.Published,
		Currency:     row.Currency,
		Description:  row.Description,
		PropertyType: row.PropertyType,
		Location:     row.Location,
		AreaSqm:      row.AreaSqm,
		Price:        row.Price,
		GrossYield:   row.GrossYield,
	}
}
