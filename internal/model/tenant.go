package model

import (
	"time"

	"github.com/google/uuid"
)

// Subscription tier enum constants
const (
	TierTrial        = "trial"
	TierBasic        = "basic"
	TierProfessional = "professional"
	TierEnterprise   = "enterprise"
)

// Distributor is the top-level tenant owning branches, roles and users.
type Distributor struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug           string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	ContactEmail   string    `gorm:"type:varchar(255)" json:"contact_email"`
	ContactPhone   string    `gorm:"type:varchar(20)" json:"contact_phone"`
	BillingAddress string    `gorm:"type:text" json:"billing_address"`

	SubscriptionTier string `gorm:"type:varchar(20);not null;default:'trial'" json:"subscription_tier"`
	MaxBranches      int    `gorm:"default:1" json:"max_branches"`
	MaxUsers         int    `gorm:"default:5" json:"max_users"`
	IsActive         bool   `gorm:"default:true" json:"is_active"`

	CreatedBy *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	Branches []Branch `gorm:"foreignKey:DistributorID" json:"branches,omitempty"`
	Roles    []Role   `gorm:"foreignKey:DistributorID" json:"roles,omitempty"`
}

// ValidTier reports whether the tier value is a known subscription level
func ValidTier(tier string) bool {
	switch tier {
	case TierTrial, TierBasic, TierProfessional, TierEnterprise:
		return true
	}
	return false
}

// TierLimits returns (maxBranches, maxUsers) for a subscription tier.
func TierLimits(tier string) (int, int) {
	switch tier {
	case TierBasic:
		return 3, 15
	case TierProfessional:
		return 10, 50
	case TierEnterprise:
		return 100, 500
	default:
		return 1, 5
	}
}
