package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category groups products within a distributor's catalog.
type Category struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DistributorID uuid.UUID  `gorm:"type:uuid;not null;index" json:"distributor_id"`
	Name          string     `gorm:"type:varchar(100);not null" json:"name"`
	ParentID      *uuid.UUID `gorm:"type:uuid" json:"parent_id"`
	Parent        *Category  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Color         string     `gorm:"type:varchar(20)" json:"color"`
}

// Product is tenant-scoped catalog data. TaxRate stays on the model for
// schema compatibility; invoice tax currently comes from a policy
// constant in the invoice service.
type Product struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DistributorID uuid.UUID `gorm:"type:uuid;not null;index" json:"distributor_id"`

	CategoryID *uuid.UUID `gorm:"type:uuid" json:"category_id"`
	Category   *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`

	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	SKU         string `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Barcode     string `gorm:"type:varchar(100)" json:"barcode"`
	HSNCode     string `gorm:"type:varchar(20)" json:"hsn_code"`
	Unit        string `gorm:"type:varchar(20);default:'pcs'" json:"unit"`
	IsLoose     bool   `gorm:"default:false" json:"is_loose"`

	BasePrice      decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"base_price"`
	WholesalePrice *decimal.Decimal `gorm:"type:decimal(12,2)" json:"wholesale_price"`
	CostPrice      *decimal.Decimal `gorm:"type:decimal(12,2)" json:"cost_price"`
	TaxRate        decimal.Decimal  `gorm:"type:decimal(5,2);default:0" json:"tax_rate"`

	StockQuantity     int  `gorm:"default:0" json:"stock_quantity"`
	LowStockThreshold int  `gorm:"default:10" json:"low_stock_threshold"`
	IsActive          bool `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
}
