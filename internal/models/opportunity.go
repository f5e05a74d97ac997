package models

import "fmt"

// OpportunityKind discriminates which opportunity table a reference points into.
type OpportunityKind string

const (
	KindMna        OpportunityKind = "MNA"
	KindRealEstate OpportunityKind = "REAL_ESTATE"
)

// Valid reports whether the kind names one of the two opportunity tables.
func (k OpportunityKind) Valid() bool {
	return k == KindMna || k == KindRealEstate
}

// OpportunityRef is a tagged reference into one of the two opportunity tables.
// It replaces the loose (id, type-string) pairs the domain otherwise needs at
// every call site.
type OpportunityRef struct {
	Kind OpportunityKind `json:"kind"`
	ID   string          `json:"id"`
}

// NewOpportunityRef validates and builds a reference.
func NewOpportunityRef(kind OpportunityKind, id string) (OpportunityRef, error) {
	if !kind.Valid() {
		return OpportunityRef{}, fmt.Errorf("unknown opportunity kind %q", kind)
	}
	if id == "" {
		return OpportunityRef{}, fmt.Errorf("opportunity id is required")
	}
	return OpportunityRef{Kind: kind, ID: id}, nil
}

// IsZero reports whether the reference is empty.
func (r OpportunityRef) IsZero() bool {
	return r.ID == "" && r.Kind == ""
}

// Deal stages shared by both opportunity kinds.
const (
	StageTeaser      = "TEASER"
	StageMarketing   = "MARKETING"
	StageDiligence   = "DILIGENCE"
	StageNegotiation = "NEGOTIATION"
	StageClosed      = "CLOSED"
)

// MnaOpportunity is a mergers-and-acquisitions deal listing.
type MnaOpportunity struct {
	BaseModel

	Name        string `gorm:"not null" json:"name"`
	Sector      string `gorm:"index" json:"sector"`
	Region      string `json:"region"`
	Description string `gorm:"type:text" json:"description"`

	Revenue     int64  `json:"revenue"`
	Ebitda      int64  `json:"ebitda"`
	AskingPrice int64  `json:"asking_price"`
	Currency    string `gorm:"type:varchar(3);default:'EUR'" json:"currency"`

	Stage     string `gorm:"type:varchar(32);default:'TEASER';index" json:"stage"`
	Published bool   `gorm:"default:false;index" json:"published"`

	// Staff assignments carried on the opportunity itself; account managers
	// live in the polymorphic assignment table.
	ClientAcquisitionUserID *string `gorm:"type:uuid" json:"client_acquisition_user_id"`
	ClientOriginatorUserID  *string `gorm:"type:uuid" json:"client_originator_user_id"`
	AnalyticsFollowUpUserID *string `gorm:"type:uuid" json:"analytics_follow_up_user_id"`
}

// Ref returns the tagged reference for this row.
func (o *MnaOpportunity) Ref() OpportunityRef {
	return OpportunityRef{Kind: KindMna, ID: o.ID}
}

// RealEstateOpportunity is a real-estate deal listing.
type RealEstateOpportunity struct {
	BaseModel

	Name         string `gorm:"not null" json:"name"`
	PropertyType string `gorm:"index" json:"property_type"`
	Location     string `json:"location"`
	Description  string `gorm:"type:text" json:"description"`

	AreaSqm    int64   `json:"area_sqm"`
	Price      int64   `json:"price"`
	Currency   string  `gorm:"type:varchar(3);default:'EUR'" json:"currency"`
	GrossYield float64 `json:"gross_yield"`

	Stage     string `gorm:"type:varchar(32);default:'TEASER';index" json:"stage"`
	Published bool   `gorm:"default:false;index" json:"published"`

	ClientAcquisitionUserID *string `gorm:"type:uuid" json:"client_acquisition_user_id"`
	ClientOriginatorUserID  *string `gorm:"type:uuid" json:"client_originator_user_id"`
	AnalyticsFollowUpUserID *string `gorm:"type:uuid" json:"analytics_follow_up_user_id"`
}

// Ref returns the tagged reference for this row.
func (o *RealEstateOpportunity) Ref() OpportunityRef {
	return OpportunityRef{Kind: KindRealEstate, ID: o.ID}
}

// OpportunityAccountManager assigns a staff user to an opportunity of either kind.
type OpportunityAccountManager struct {
	BaseModel

	OpportunityID   string          `gorm:"type:uuid;not null;uniqueIndex:idx_opp_manager" json:"opportunity_id"`
	OpportunityKind OpportunityKind `gorm:"type:varchar(16);not null;uniqueIndex:idx_opp_manager" json:"opportunity_kind"`
	UserID          string          `gorm:"type:uuid;not null;uniqueIndex:idx_opp_manager" json:"user_id"`
	User            *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
