package model

import (
	"time"

	"github.com/google/uuid"
)

// Branch is a business unit within a distributor. Invoices, catalog
// data and role assignments are scoped to a branch.
type Branch struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DistributorID uuid.UUID    `gorm:"type:uuid;not null;index;uniqueIndex:idx_branch_dist_code" json:"distributor_id"`
	Distributor   *Distributor `gorm:"foreignKey:DistributorID" json:"distributor,omitempty"`

	Name string `gorm:"type:varchar(255);not null" json:"name"`
	Code string `gorm:"type:varchar(50);not null;uniqueIndex:idx_branch_dist_code" json:"code"` // unique within distributor

	Address    string `gorm:"type:text" json:"address"`
	City       string `gorm:"type:varchar(100)" json:"city"`
	State      string `gorm:"type:varchar(100)" json:"state"`
	Country    string `gorm:"type:varchar(100)" json:"country"`
	PostalCode string `gorm:"type:varchar(20)" json:"postal_code"`
	Phone      string `gorm:"type:varchar(20)" json:"phone"`
	Email      string `gorm:"type:varchar(255)" json:"email"`
	TaxID      string `gorm:"type:varchar(50)" json:"tax_id"`
	Currency   string `gorm:"type:varchar(3);default:'INR'" json:"currency"`

	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
