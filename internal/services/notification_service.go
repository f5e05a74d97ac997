package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"dealdesk/internal/models"
	"dealdesk/internal/realtime"
	apperrors "dealdesk/pkg/errors"
	"dealdesk/pkg/logger"
	"dealdesk/pkg/metrics"
)

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID              string                  `json:"id"`
	UserID          string                  `json:"user_id"`
	Type            string                  `json:"type"`
	Title           string                  `json:"title"`
	Message         string                  `json:"message"`
	OpportunityID   *string                 `json:"opportunity_id,omitempty"`
	OpportunityKind *models.OpportunityKind `json:"opportunity_kind,omitempty"`
	RelatedUserID   *string                 `json:"related_user_id,omitempty"`
	Metadata        map[string]any          `json:"metadata,omitempty"`
	IsRead          bool                    `json:"is_read"`
	CreatedAt       time.Time               `json:"created_at"`
	ReadAt          *time.Time              `json:"read_at,omitempty"`
}

// CreateNotificationInput defines attributes required to persist a notification.
type CreateNotificationInput struct {
	UserID        string
	Type          string
	Title         string
	Message       string
	Opportunity   models.OpportunityRef // zero value when the event concerns no deal
	RelatedUserID string
	Metadata      map[string]any
}

// BroadcastEnvelope is the transient payload pushed on the shared notifications
// stream. At most one envelope is emitted per logical batch, however many
// recipient rows the batch wrote, so subscribed UIs see one event per business
// action rather than one per recipient.
type BroadcastEnvelope struct {
	ID              string                 `json:"id,omitempty"`
	Type            string                 `json:"type"`
	Title           string                 `json:"title"`
	Message         string                 `json:"message"`
	OpportunityID   string                 `json:"opportunity_id,omitempty"`
	OpportunityKind models.OpportunityKind `json:"opportunity_kind,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// Outcome reports the settlement of one write in a fan-out batch.
type Outcome struct {
	Input        CreateNotificationInput
	Notification *models.Notification
	Err          error
}

// CreateOption tweaks a single notification creation.
type CreateOption func(*createOptions)

type createOptions struct {
	suppressBroadcast bool
}

// WithoutBroadcast suppresses the realtime envelope for this row. Used by the
// batch path, which emits one envelope for the whole batch instead.
func WithoutBroadcast() CreateOption {
	return func(o *createOptions) {
		o.suppressBroadcast = true
	}
}

// ListNotificationsInput defines filters for querying user notifications.
type ListNotificationsInput struct {
	UserID string
	Limit  int
	Offset int
	Unread bool
}

// NotificationService converts business events into durable per-recipient rows
// and best-effort realtime envelopes.
//
// Failure policy: nothing on the fan-out paths (CreateNotification,
// CreateNotifications, NotifyAdmins, NotifyTeamAndAdmins) ever propagates an
// error to the caller. A failed notification must not abort the primary
// business operation that triggered it. Failures are logged and, for batches,
// reported in the returned outcomes.
type NotificationService struct {
	db          *gorm.DB
	broadcaster realtime.Broadcaster
	log         *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB, broadcaster realtime.Broadcaster) (*NotificationService, error) {
	if db == nil {
		return nil, errors.New("notification service: db is required")
	}
	if broadcaster == nil {
		return nil, errors.New("notification service: broadcaster is required")
	}
	return &NotificationService{
		db:          db,
		broadcaster: broadcaster,
		log:         logger.WithModule("notifications"),
	}, nil
}

// CreateNotification persists a single notification row. On persistence
// failure it logs and returns nil; on success it emits one broadcast envelope
// unless suppressed.
func (s *NotificationService) CreateNotification(ctx context.Context, input CreateNotificationInput, opts ...CreateOption) *models.Notification {
	options := createOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	row, err := s.create(ctx, input)
	if err != nil {
		s.log.Error("notification write failed",
			zap.String("user_id", input.UserID),
			zap.String("type", input.Type),
			zap.Error(err),
		)
		return nil
	}

	if !options.suppressBroadcast {
		s.broadcaster.Broadcast(realtime.StreamNotifications, realtime.EventNotification, envelopeFromRow(row))
	}
	return row
}

// CreateNotifications fans out one business event to many recipients. All N
// writes are dispatched concurrently and individually settled: one failed
// write neither aborts nor delays its siblings. Exactly one broadcast envelope
// is then emitted, derived from the first input, so the shared stream stays
// proportional to business events rather than recipient counts. Batches whose
// inputs differ in type/title/message therefore get a representative envelope
// only; callers needing envelope fidelity must keep batches homogeneous.
func (s *NotificationService) CreateNotifications(ctx context.Context, inputs []CreateNotificationInput) []Outcome {
	if len(inputs) == 0 {
		return nil
	}

	outcomes := make([]Outcome, len(inputs))

	var wg sync.WaitGroup
	for i := range inputs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			row, err := s.create(ctx, inputs[i])
			outcomes[i] = Outcome{Input: inputs[i], Notification: row, Err: err}
		}(i)
	}
	wg.Wait()

	var failed error
	for _, outcome := range outcomes {
		failed = multierr.Append(failed, outcome.Err)
	}
	if failed != nil {
		s.log.Error("notification batch partially failed",
			zap.Int("batch_size", len(inputs)),
			zap.Int("failures", len(multierr.Errors(failed))),
			zap.Error(failed),
		)
	}

	s.broadcaster.Broadcast(realtime.StreamNotifications, realtime.EventNotification, batchEnvelope(inputs[0], outcomes[0]))
	return outcomes
}

// NotifyAdmins fans the event out to every enabled ADMIN user.
func (s *NotificationService) NotifyAdmins(ctx context.Context, input CreateNotificationInput) []Outcome {
	return s.NotifyRoles(ctx, input, models.RoleAdmin)
}

// NotifyTeamAndAdmins fans the event out to every enabled ADMIN and TEAM user.
func (s *NotificationService) NotifyTeamAndAdmins(ctx context.Context, input CreateNotificationInput) []Outcome {
	return s.NotifyRoles(ctx, input, models.RoleAdmin, models.RoleTeam)
}

// NotifyRoles fans the event out to every enabled user holding one of the
// supplied roles. The input's UserID is ignored; one copy is written per
// recipient. Recipient lookup failure is logged and yields no rows and no
// broadcast.
func (s *NotificationService) NotifyRoles(ctx context.Context, input CreateNotificationInput, roles ...string) []Outcome {
	ctx = ensureContext(ctx)

	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role IN ? AND enabled = ?", roles, true).
		Pluck("id", &ids).Error
	if err != nil {
		// No rows and no broadcast; the caller's transaction continues regardless.
		s.log.Error("recipient lookup failed",
			zap.Strings("roles", roles),
			zap.Error(err),
		)
		return nil
	}
	if len(ids) == 0 {
		return nil
	}

	inputs := make([]CreateNotificationInput, 0, len(ids))
	for _, id := range ids {
		recipient := input
		recipient.UserID = id
		inputs = append(inputs, recipient)
	}
	return s.CreateNotifications(ctx, inputs)
}

// InvolvedUsers resolves every user with a stake in an opportunity: the
// client-acquisition owner, the client originator, the analytics follow-up
// contact and all assigned account managers. The result has set semantics; a
// user holding several roles on the same deal appears once.
func (s *NotificationService) InvolvedUsers(ctx context.Context, ref models.OpportunityRef) ([]string, error) {
	ctx = ensureContext(ctx)
	if !ref.Kind.Valid() || ref.ID == "" {
		return nil, fmt.Errorf("notification service: invalid opportunity reference %+v", ref)
	}

	var owners []*string
	switch ref.Kind {
	case models.KindMna:
		var opp models.MnaOpportunity
		if err := s.db.WithContext(ctx).First(&opp, "id = ?", ref.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrNotFound
			}
			return nil, fmt.Errorf("notification service: load opportunity: %w", err)
		}
		owners = []*string{opp.ClientAcquisitionUserID, opp.ClientOriginatorUserID, opp.AnalyticsFollowUpUserID}
	case models.KindRealEstate:
		var opp models.RealEstateOpportunity
		if err := s.db.WithContext(ctx).First(&opp, "id = ?", ref.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrNotFound
			}
			return nil, fmt.Errorf("notification service: load opportunity: %w", err)
		}
		owners = []*string{opp.ClientAcquisitionUserID, opp.ClientOriginatorUserID, opp.AnalyticsFollowUpUserID}
	}

	var ids []string
	for _, owner := range owners {
		if owner != nil && *owner != "" {
			ids = append(ids, *owner)
		}
	}

	var managerIDs []string
	if err := s.db.WithContext(ctx).
		Model(&models.OpportunityAccountManager{}).
		Where("opportunity_id = ? AND opportunity_kind = ?", ref.ID, ref.Kind).
		Pluck("user_id", &managerIDs).Error; err != nil {
		return nil, fmt.Errorf("notification service: load account managers: %w", err)
	}

	return normaliseIDs(append(ids, managerIDs...)), nil
}

// ListForUser returns notifications for the supplied user ordered by recency.
func (s *NotificationService) ListForUser(ctx context.Context, input ListNotificationsInput) ([]NotificationDTO, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, errors.New("notification service: user id is required")
	}

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	offset := input.Offset
	if offset < 0 {
		offset = 0
	}

	query := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset)
	if input.Unread {
		query = query.Where("is_read = ?", false)
	}

	var rows []models.Notification
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("notification service: list notifications: %w", err)
	}

	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items, nil
}

// MarkRead sets the notification read flag for a user.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	var notification models.Notification
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		First(&notification).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("notification service: load notification: %w", err)
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&notification).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		}).Error; err != nil {
		return nil, fmt.Errorf("notification service: mark read: %w", err)
	}

	notification.IsRead = true
	notification.ReadAt = &now
	dto := mapNotification(notification)
	return &dto, nil
}

// MarkAllRead marks all of the user's unread notifications as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{
			"is_read": true,
			"read_at": now,
		}).Error; err != nil {
		return fmt.Errorf("notification service: mark all read: %w", err)
	}
	return nil
}

// Delete removes a notification owned by the supplied user.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	ctx = ensureContext(ctx)
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Delete(&models.Notification{})
	if result.Error != nil {
		return fmt.Errorf("notification service: delete notification: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// BroadcastNdaStatus pushes a best-effort per-user NDA status update.
func (s *NotificationService) BroadcastNdaStatus(userID, documentID, status string) {
	s.broadcaster.BroadcastUser(realtime.StreamNdaStatus, userID, realtime.EventNdaStatusUpdate, map[string]any{
		"status":      status,
		"document_id": documentID,
		"timestamp":   time.Now().UTC(),
	})
}

func (s *NotificationService) create(ctx context.Context, input CreateNotificationInput) (*models.Notification, error) {
	ctx = ensureContext(ctx)

	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		metrics.NotificationsCreated.WithLabelValues(input.Type, "error").Inc()
		return nil, errors.New("notification service: user id is required")
	}
	notificationType := strings.TrimSpace(input.Type)
	if notificationType == "" {
		metrics.NotificationsCreated.WithLabelValues("unknown", "error").Inc()
		return nil, errors.New("notification service: type is required")
	}

	row := models.Notification{
		UserID:  userID,
		Type:    notificationType,
		Title:   strings.TrimSpace(input.Title),
		Message: strings.TrimSpace(input.Message),
	}

	if !input.Opportunity.IsZero() {
		if !input.Opportunity.Kind.Valid() {
			metrics.NotificationsCreated.WithLabelValues(notificationType, "error").Inc()
			return nil, fmt.Errorf("notification service: invalid opportunity kind %q", input.Opportunity.Kind)
		}
		row.OpportunityID = &input.Opportunity.ID
		kind := input.Opportunity.Kind
		row.OpportunityKind = &kind
	}

	if related := strings.TrimSpace(input.RelatedUserID); related != "" {
		row.RelatedUserID = &related
	}

	if input.Metadata != nil {
		data, err := json.Marshal(input.Metadata)
		if err != nil {
			metrics.NotificationsCreated.WithLabelValues(notificationType, "error").Inc()
			return nil, fmt.Errorf("notification service: marshal metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(data)
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		metrics.NotificationsCreated.WithLabelValues(notificationType, "error").Inc()
		return nil, fmt.Errorf("notification service: create notification: %w", err)
	}

	metrics.NotificationsCreated.WithLabelValues(notificationType, "ok").Inc()
	return &row, nil
}

func envelopeFromRow(row *models.Notification) BroadcastEnvelope {
	envelope := BroadcastEnvelope{
		ID:        row.ID,
		Type:      row.Type,
		Title:     row.Title,
		Message:   row.Message,
		CreatedAt: row.CreatedAt,
	}
	if ref := row.Ref(); !ref.IsZero() {
		envelope.OpportunityID = ref.ID
		envelope.OpportunityKind = ref.Kind
	}
	return envelope
}

// batchEnvelope derives the single representative envelope for a batch from
// its first input, borrowing the row id and timestamp when that write landed.
func batchEnvelope(input CreateNotificationInput, first Outcome) BroadcastEnvelope {
	if first.Err == nil && first.Notification != nil {
		return envelopeFromRow(first.Notification)
	}
	envelope := BroadcastEnvelope{
		Type:      input.Type,
		Title:     input.Title,
		Message:   input.Message,
		CreatedAt: time.Now().UTC(),
	}
	if !input.Opportunity.IsZero() {
		envelope.OpportunityID = input.Opportunity.ID
		envelope.OpportunityKind = input.Opportunity.Kind
	}
	return envelope
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:              row.ID,
		UserID:          row.UserID,
		Type:            row.Type,
		Title:           row.Title,
		Message:         row.Message,
		OpportunityID:   row.OpportunityID,
		OpportunityKind: row.OpportunityKind,
		RelatedUserID:   row.RelatedUserID,
		Metadata:        decodeJSON(row.Metadata),
		IsRead:          row.IsRead,
		CreatedAt:       row.CreatedAt,
		ReadAt:          row.ReadAt,
	}
}

func decodeJSON(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
