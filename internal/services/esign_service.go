package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dealdesk/internal/models"
	apperrors "dealdesk/pkg/errors"
	"dealdesk/pkg/logger"
	"dealdesk/pkg/metrics"
)

// WebhookDocumentStateChanged is the only provider event this service acts
// on; the document status discriminates the transition.
const WebhookDocumentStateChanged = "document_state_changed"

// Document statuses carried in state-change events.
const (
	WebhookStatusCompleted = "document.completed"
	WebhookStatusDeclined  = "document.declined"
)

// WebhookEvent is one element of the provider's callback payload. The
// provider posts a JSON array; only the first element carries the shared key.
type WebhookEvent struct {
	Event string           `json:"event"`
	Data  WebhookEventData `json:"data"`
}

// WebhookEventData identifies the document and its new status.
type WebhookEventData struct {
	ID        string `json:"id"`
	SharedKey string `json:"shared_key"`
	Status    string `json:"status"`
}

// EsignService reconciles signature-provider callbacks against the local
// document records and drives the interest and notification side effects.
type EsignService struct {
	db            *gorm.DB
	interests     *InterestService
	notifications *NotificationService
	sharedKey     string
	log           *zap.Logger
}

// NewEsignService constructs an EsignService. The shared key authenticates
// webhook deliveries and must not be empty.
func NewEsignService(db *gorm.DB, interests *InterestService, notifications *NotificationService, sharedKey string) (*EsignService, error) {
	if db == nil {
		return nil, errors.New("esign service: db is required")
	}
	if interests == nil {
		return nil, errors.New("esign service: interest service is required")
	}
	if notifications == nil {
		return nil, errors.New("esign service: notification service is required")
	}
	if strings.TrimSpace(sharedKey) == "" {
		return nil, errors.New("esign service: shared key is required")
	}
	return &EsignService{
		db:            db,
		interests:     interests,
		notifications: notifications,
		sharedKey:     sharedKey,
		log:           logger.WithModule("esign"),
	}, nil
}

// VerifySharedKey checks the key carried in a webhook payload against the
// configured one. Callers reject the whole delivery on mismatch.
func (s *EsignService) VerifySharedKey(key string) error {
	if subtle.ConstantTimeCompare([]byte(key), []byte(s.sharedKey)) != 1 {
		metrics.WebhookEvents.WithLabelValues("unauthorized", "rejected").Inc()
		return apperrors.ErrWebhookSignature
	}
	return nil
}

// ProcessEvents handles an authenticated webhook delivery. Each event is
// processed independently; a failure on one never blocks the rest, and the
// provider always gets a success response once the key checked out.
func (s *EsignService) ProcessEvents(ctx context.Context, events []WebhookEvent) {
	ctx = ensureContext(ctx)
	for _, event := range events {
		s.processEvent(ctx, event)
	}
}

func (s *EsignService) processEvent(ctx context.Context, event WebhookEvent) {
	status := statusLabel(event.Data.Status)

	if event.Event != WebhookDocumentStateChanged {
		s.log.Debug("ignoring webhook event", zap.String("event", event.Event))
		metrics.WebhookEvents.WithLabelValues(status, "ignored").Inc()
		return
	}

	docID := strings.TrimSpace(event.Data.ID)
	if docID == "" {
		s.log.Warn("state change without document id", zap.String("status", status))
		metrics.WebhookEvents.WithLabelValues(status, "skipped").Inc()
		return
	}

	doc, err := s.findDocument(ctx, docID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.log.Warn("state change for unknown document",
				zap.String("status", status),
				zap.String("document_id", docID))
		} else {
			s.log.Error("webhook document lookup failed",
				zap.String("document_id", docID),
				zap.Error(err))
		}
		metrics.WebhookEvents.WithLabelValues(status, "skipped").Inc()
		return
	}

	switch event.Data.Status {
	case WebhookStatusCompleted:
		s.handleCompleted(ctx, doc)
	case WebhookStatusDeclined:
		s.handleDeclined(ctx, doc)
	default:
		s.log.Debug("ignoring document status",
			zap.String("status", status),
			zap.String("document_id", docID))
		metrics.WebhookEvents.WithLabelValues(status, "ignored").Inc()
	}
}

func statusLabel(status string) string {
	if strings.TrimSpace(status) == "" {
		return "unknown"
	}
	return status
}

// handleCompleted marks the NDA signed. The interest upsert runs on every
// delivery, so a provider retry converges on the same row state, while the
// notification fan-out repeats. Receivers tolerate the duplicate.
func (s *EsignService) handleCompleted(ctx context.Context, doc *models.EsignDocument) {
	ref := doc.Ref()

	signed := true
	interested := true
	if _, err := s.interests.Upsert(ctx, doc.UserID, ref, InterestUpdate{
		Interested: &interested,
		NdaSigned:  &signed,
	}); err != nil {
		s.log.Error("nda interest upsert failed",
			zap.String("document_id", doc.ProviderDocumentID),
			zap.Error(err))
		metrics.WebhookEvents.WithLabelValues(WebhookStatusCompleted, "failed").Inc()
		return
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(doc).
		Updates(map[string]any{"status": models.EsignCompleted, "completed_at": now}).Error; err != nil {
		s.log.Error("document status update failed",
			zap.String("document_id", doc.ProviderDocumentID),
			zap.Error(err))
	}

	signerName := s.signerName(ctx, doc)
	s.notifications.NotifyTeamAndAdmins(ctx, CreateNotificationInput{
		Type:          models.NotificationNdaSigned,
		Title:         "NDA signed",
		Message:       fmt.Sprintf("%s signed the NDA", signerName),
		Opportunity:   ref,
		RelatedUserID: doc.UserID,
	})
	s.notifications.BroadcastNdaStatus(doc.UserID, doc.ProviderDocumentID, models.EsignCompleted)

	metrics.WebhookEvents.WithLabelValues(WebhookStatusCompleted, "processed").Inc()
}

// handleDeclined records the refusal and pushes the status to the signer.
// Interest rows are left untouched; a decline is not a stance on the deal.
func (s *EsignService) handleDeclined(ctx context.Context, doc *models.EsignDocument) {
	if err := s.db.WithContext(ctx).Model(doc).
		Update("status", models.EsignDeclined).Error; err != nil {
		s.log.Error("document status update failed",
			zap.String("document_id", doc.ProviderDocumentID),
			zap.Error(err))
	}

	s.notifications.BroadcastNdaStatus(doc.UserID, doc.ProviderDocumentID, models.EsignDeclined)

	metrics.WebhookEvents.WithLabelValues(WebhookStatusDeclined, "processed").Inc()
}

func (s *EsignService) findDocument(ctx context.Context, providerDocumentID string) (*models.EsignDocument, error) {
	var doc models.EsignDocument
	if err := s.db.WithContext(ctx).
		Where("provider_document_id = ?", providerDocumentID).
		First(&doc).Error; err != nil {
		return nil, translateNotFound(err, "esign service: load document")
	}
	return &doc, nil
}

func (s *EsignService) signerName(ctx context.Context, doc *models.EsignDocument) string {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", doc.UserID).Error; err != nil {
		return doc.RecipientEmail
	}
	return user.FullName()
}
