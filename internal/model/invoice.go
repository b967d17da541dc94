package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice status enum constants
const (
	InvoiceDraft     = "draft"
	InvoicePartial   = "partial"
	InvoiceCompleted = "completed"
	InvoiceCancelled = "cancelled"
)

// Invoice type enum constants
const (
	InvoiceTypeSale   = "sale"
	InvoiceTypeReturn = "return"
)

// Invoice is a billing document with line items, computed totals and a
// payment-status state machine. Items are immutable once attached; a
// correction requires a new invoice.
type Invoice struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DistributorID uuid.UUID    `gorm:"type:uuid;not null;index" json:"distributor_id"`
	Distributor   *Distributor `gorm:"foreignKey:DistributorID" json:"distributor,omitempty"`
	BranchID      *uuid.UUID   `gorm:"type:uuid;index" json:"branch_id"`
	Branch        *Branch      `gorm:"foreignKey:BranchID" json:"branch,omitempty"`

	CustomerID    string `gorm:"type:varchar(100)" json:"customer_id"`
	InvoiceNumber string `gorm:"type:varchar(100);uniqueIndex;not null" json:"invoice_number"`
	InvoiceType   string `gorm:"type:varchar(20);default:'sale'" json:"invoice_type"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"tax_amount"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	PaidAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"paid_amount"`

	Status string `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Notes  string `gorm:"type:text" json:"notes"`

	CreatedBy *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`

	Items    []InvoiceItem `gorm:"foreignKey:InvoiceID" json:"items"`
	Payments []Payment     `gorm:"foreignKey:InvoiceID" json:"payments,omitempty"`
}

// InvoiceItem is one line of an invoice. ProductName is denormalized so
// the line survives product deletion.
type InvoiceItem struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID uuid.UUID  `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ProductID *uuid.UUID `gorm:"type:uuid" json:"product_id"`

	ProductName    string          `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity       decimal.Decimal `gorm:"type:decimal(12,3);not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount_amount"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tax_rate"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"tax_amount"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
}

// Payment records one payment against an invoice.
type Payment struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Method    string          `gorm:"type:varchar(30);default:'cash'" json:"method"`
	Reference string          `gorm:"type:varchar(100)" json:"reference"`
	CreatedAt time.Time       `json:"created_at"`
}

// InvoiceSequence is the per-distributor-per-day counter backing invoice
// number generation. Incremented atomically inside the creation
// transaction so concurrent creates never observe the same value.
type InvoiceSequence struct {
	DistributorID uuid.UUID `gorm:"type:uuid;primaryKey" json:"distributor_id"`
	Day           string    `gorm:"type:varchar(8);primaryKey" json:"day"` // YYYYMMDD
	LastNumber    int64     `gorm:"not null;default:0" json:"last_number"`
}
