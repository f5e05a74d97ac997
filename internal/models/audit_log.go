package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLog records state-changing platform actions for compliance review.
type AuditLog struct {
	ID       string  `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   *string `gorm:"type:uuid;index" json:"user_id"`
	User     *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action   string  `gorm:"not null;index" json:"action"`
	Entity   string  `gorm:"index" json:"entity"`
	EntityID string  `gorm:"index" json:"entity_id"`
	Metadata string  `gorm:"type:json" json:"metadata"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
