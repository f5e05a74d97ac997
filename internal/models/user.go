package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Platform roles. ADMIN and TEAM are staff; INVESTOR and ADVISOR are clients.
const (
	RoleAdmin    = "ADMIN"
	RoleTeam     = "TEAM"
	RoleInvestor = "INVESTOR"
	RoleAdvisor  = "ADVISOR"
)

// User describes a platform account: staff, investors and advisors share one table,
// discriminated by Role.
type User struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
	Locale    string `gorm:"type:varchar(8);default:'en'" json:"locale"`

	Role    string `gorm:"type:varchar(16);not null;index" json:"role"`
	Enabled bool   `gorm:"default:true;index" json:"enabled"`

	Notifications []Notification `gorm:"foreignKey:UserID" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate ensures a UUID is present before persisting.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// FullName renders the display name used in notification messages.
func (u *User) FullName() string {
	switch {
	case u.FirstName == "" && u.LastName == "":
		return u.Email
	case u.LastName == "":
		return u.FirstName
	case u.FirstName == "":
		return u.LastName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// IsStaff reports whether the user belongs to the internal team.
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleTeam
}
