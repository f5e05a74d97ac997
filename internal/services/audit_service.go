package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dealdesk/internal/models"
	"dealdesk/pkg/logger"
)

// AuditEntry describes one state-changing action to record.
type AuditEntry struct {
	UserID   string
	Action   string
	Entity   string
	EntityID string
	Metadata map[string]any
}

// ListAuditInput filters the audit listing.
type ListAuditInput struct {
	UserID string
	Entity string
	Action string
	Limit  int
}

// AuditService appends compliance records. Recording is best effort: a failed
// audit write is logged but never fails the action it describes.
type AuditService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewAuditService constructs an AuditService.
func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db, log: logger.WithModule("audit")}, nil
}

// Record appends one audit row.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) {
	ctx = ensureContext(ctx)

	row := models.AuditLog{
		Action:   entry.Action,
		Entity:   entry.Entity,
		EntityID: entry.EntityID,
	}
	if entry.UserID != "" {
		row.UserID = &entry.UserID
	}
	if len(entry.Metadata) > 0 {
		if raw, err := json.Marshal(entry.Metadata); err == nil {
			row.Metadata = string(raw)
		}
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.log.Error("audit write failed",
			zap.String("action", entry.Action),
			zap.String("entity", entry.Entity),
			zap.Error(err))
	}
}

// List returns audit rows matching the filter, newest first.
func (s *AuditService) List(ctx context.Context, input ListAuditInput) ([]models.AuditLog, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if input.UserID != "" {
		query = query.Where("user_id = ?", input.UserID)
	}
	if input.Entity != "" {
		query = query.Where("entity = ?", input.Entity)
	}
	if input.Action != "" {
		query = query.Where("action = ?", input.Action)
	}

	limit := input.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var rows []models.AuditLog
	if err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("audit service: list: %w", err)
	}
	return rows, nil
}
