package models

// Commission lifecycle states.
const (
	CommissionPending  = "PENDING"
	CommissionApproved = "APPROVED"
	CommissionPaid     = "PAID"
)

// Commission records an advisor's cut on an opportunity, expressed in basis
// points to avoid floating-point drift on money math.
type Commission struct {
	BaseModel

	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	OpportunityID   string          `gorm:"type:uuid;not null;index" json:"opportunity_id"`
	OpportunityKind OpportunityKind `gorm:"type:varchar(16);not null" json:"opportunity_kind"`

	BasisPoints int    `gorm:"not null" json:"basis_points"`
	Status      string `gorm:"type:varchar(16);default:'PENDING';index" json:"status"`
	Note        string `gorm:"type:text" json:"note"`
}

// Ref returns the tagged opportunity reference for this commission.
func (c *Commission) Ref() OpportunityRef {
	return OpportunityRef{Kind: c.OpportunityKind, ID: c.OpportunityID}
}
