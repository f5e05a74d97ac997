package models

import "time"

// E-signature document states mirrored from the provider lifecycle. Only the
// two terminal transitions are acted on; everything else is ignored.
const (
	EsignUploaded  = "UPLOADED"
	EsignSent      = "SENT"
	EsignCompleted = "COMPLETED"
	EsignDeclined  = "DECLINED"
)

// EsignDocument binds a provider document id to the local context the webhook
// needs to reconcile a callback: which user signed which opportunity's NDA.
// The row is written when the NDA is issued, so the context travels with the
// document from creation, not with the callback payload.
type EsignDocument struct {
	BaseModel

	ProviderDocumentID string `gorm:"uniqueIndex;not null" json:"provider_document_id"`

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	OpportunityID   string          `gorm:"type:uuid;not null" json:"opportunity_id"`
	OpportunityKind OpportunityKind `gorm:"type:varchar(16);not null" json:"opportunity_kind"`

	RecipientEmail string `gorm:"not null" json:"recipient_email"`

	Status      string     `gorm:"type:varchar(16);default:'UPLOADED';index" json:"status"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Ref returns the tagged opportunity reference for this document.
func (d *EsignDocument) Ref() OpportunityRef {
	return OpportunityRef{Kind: d.OpportunityKind, ID: d.OpportunityID}
}
