package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification categories. Closed set; new values require a migration of
// consumer switch statements, not just a new string.
const (
	NotificationNdaSigned             = "opportunity.nda_signed"
	NotificationNdaDeclined           = "opportunity.nda_declined"
	NotificationAccessRequest         = "opportunity.access_request"
	NotificationInterestProcessed     = "opportunity.interest_processed"
	NotificationOpportunityPublished  = "opportunity.published"
	NotificationCommissionCreated     = "commission.created"
	NotificationCommissionStatusMoved = "commission.status_changed"
)

// Notification represents a durable per-recipient record of a business event.
// Rows are written once by the fan-out service and never updated afterwards,
// apart from the read flag the recipient's UI toggles.
type Notification struct {
	BaseModel

	UserID  string `gorm:"type:uuid;not null;index" json:"user_id"`
	Type    string `gorm:"type:varchar(64);not null" json:"type"`
	Title   string `gorm:"type:varchar(255);not null" json:"title"`
	Message string `gorm:"type:text" json:"message"`

	// Manual foreign-key union: OpportunityID points into the table selected
	// by OpportunityKind. Both empty when the event concerns no deal.
	OpportunityID   *string          `gorm:"type:uuid;index" json:"opportunity_id"`
	OpportunityKind *OpportunityKind `gorm:"type:varchar(16)" json:"opportunity_kind"`

	// RelatedUserID references a secondary user involved in the event, such as
	// the investor whose NDA completion triggered an admin notification.
	RelatedUserID *string `gorm:"type:uuid" json:"related_user_id"`

	Metadata datatypes.JSON `json:"metadata"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`
}

// Ref returns the opportunity reference carried by the notification, or a zero
// ref when the notification concerns no deal.
func (n *Notification) Ref() OpportunityRef {
	if n.OpportunityID == nil || n.OpportunityKind == nil {
		return OpportunityRef{}
	}
	return OpportunityRef{Kind: *n.OpportunityKind, ID: *n.OpportunityID}
}
