package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the central identity. Permissions come from UserRole
// assignments; the Role string and OrganizationID are legacy fields
// still surfaced in token claims.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FirstName string    `gorm:"type:varchar(150)" json:"first_name"`
	LastName  string    `gorm:"type:varchar(150)" json:"last_name"`
	Password  string    `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash, never serialized

	IsSuperuser bool `gorm:"default:false" json:"is_superuser"` // bypasses all permission checks
	IsActive    bool `gorm:"default:true" json:"is_active"`

	DistributorID *uuid.UUID   `gorm:"type:uuid;index" json:"distributor_id"`
	Distributor   *Distributor `gorm:"foreignKey:DistributorID" json:"distributor,omitempty"`

	// CurrentBranch is the branch context the user is presently operating in
	CurrentBranchID *uuid.UUID `gorm:"type:uuid" json:"current_branch_id"`
	CurrentBranch   *Branch    `gorm:"foreignKey:CurrentBranchID" json:"current_branch,omitempty"`

	// Legacy fields carried for token compatibility
	Role           string `gorm:"type:varchar(20);default:'owner'" json:"role"`
	OrganizationID string `gorm:"type:varchar(100)" json:"organization_id"`
	BusinessName   string `gorm:"type:varchar(255)" json:"business_name"`

	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// FullName joins first and last names, skipping empty parts
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// RefreshToken stores long-lived tokens allowing users to request new access tokens
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
	Token     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"token"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
