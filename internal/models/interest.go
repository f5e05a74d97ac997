package models

// MnaInterest records an investor's stance on an M&A opportunity.
// Natural key is (user_id, opportunity_id); writers use find-then-create-or-update.
type MnaInterest struct {
	BaseModel

	UserID        string          `gorm:"type:uuid;not null;uniqueIndex:idx_mna_interest" json:"user_id"`
	OpportunityID string          `gorm:"type:uuid;not null;uniqueIndex:idx_mna_interest" json:"opportunity_id"`
	User          *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Opportunity   *MnaOpportunity `gorm:"foreignKey:OpportunityID" json:"opportunity,omitempty"`

	Interested          bool   `gorm:"default:false" json:"interested"`
	NdaSigned           bool   `gorm:"default:false" json:"nda_signed"`
	NotInterestedReason string `gorm:"type:text" json:"not_interested_reason"`
	Processed           bool   `gorm:"default:false;index" json:"processed"`
}

// RealEstateInterest records an investor's stance on a real-estate opportunity.
type RealEstateInterest struct {
	BaseModel

	UserID        string                 `gorm:"type:uuid;not null;uniqueIndex:idx_re_interest" json:"user_id"`
	OpportunityID string                 `gorm:"type:uuid;not null;uniqueIndex:idx_re_interest" json:"opportunity_id"`
	User          *User                  `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Opportunity   *RealEstateOpportunity `gorm:"foreignKey:OpportunityID" json:"opportunity,omitempty"`

	Interested          bool   `gorm:"default:false" json:"interested"`
	NdaSigned           bool   `gorm:"default:false" json:"nda_signed"`
	NotInterestedReason string `gorm:"type:text" json:"not_interested_reason"`
	Processed           bool   `gorm:"default:false;index" json:"processed"`
}
