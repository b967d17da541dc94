package repository

import (
	"context"

	"backoffice/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceListFilter narrows invoice listings.
type InvoiceListFilter struct {
	DistributorID uuid.UUID
	Status        string
	InvoiceType   string
	CustomerID    string
	Search        string
	Page          int
	Limit         int
}

// InvoiceStats aggregates a tenant's invoices by status.
type InvoiceStats struct {
	TotalCount     int64
	DraftCount     int64
	PartialCount   int64
	CompletedCount int64
	CancelledCount int64
	TotalAmount    decimal.Decimal
	PaidAmount     decimal.Decimal
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error)
	// Update writes the invoice row only. Items and payments have their
	// own writers, so an aggregate loaded before a payment insert cannot
	// clobber it on save.
	Update(ctx context.Context, invoice *model.Invoice) error
	CreatePayment(ctx context.Context, payment *model.Payment) error
	NextSequenceNumber(ctx context.Context, distributorID uuid.UUID, day string) (int64, error)
	Stats(ctx context.Context, distributorID uuid.UUID) (*InvoiceStats, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Payments").
		Preload("Branch").
		First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	db := GetDB(ctx, r.db)
	apply := func(q *gorm.DB) *gorm.DB {
		q = q.Where("distributor_id = ?", filter.DistributorID)
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.InvoiceType != "" {
			q = q.Where("invoice_type = ?", filter.InvoiceType)
		}
		if filter.CustomerID != "" {
			q = q.Where("customer_id = ?", filter.CustomerID)
		}
		if filter.Search != "" {
			like := "%" + filter.Search + "%"
			q = q.Where("invoice_number ILIKE ? OR customer_id ILIKE ? OR notes ILIKE ?", like, like, like)
		}
		return q
	}

	if err := apply(db.Model(&model.Invoice{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := apply(db.Preload("Items")).
		Order("created_at desc").
		Offset(offset).Limit(filter.Limit).
		Find(&invoices).Error; err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(invoice).Error
}

func (r *invoiceRepository) CreatePayment(ctx context.Context, payment *model.Payment) error {
	return GetDB(ctx, r.db).Create(payment).Error
}

// NextSequenceNumber atomically increments the per-distributor-per-day
// counter and returns the new value. The upsert keeps concurrent
// creates for the same tenant-day from ever observing the same number.
func (r *invoiceRepository) NextSequenceNumber(ctx context.Context, distributorID uuid.UUID, day string) (int64, error) {
	var next int64
	err := GetDB(ctx, r.db).Raw(`
		INSERT INTO invoice_sequences (distributor_id, day, last_number)
		VALUES (?, ?, 1)
		ON CONFLICT (distributor_id, day)
		DO UPDATE SET last_number = invoice_sequences.last_number + 1
		RETURNING last_number
	`, distributorID, day).Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}

func (r *invoiceRepository) Stats(ctx context.Context, distributorID uuid.UUID) (*InvoiceStats, error) {
	db := GetDB(ctx, r.db)
	var s InvoiceStats

	type row struct {
		Status string
		Count  int64
		Total  decimal.Decimal
		Paid   decimal.Decimal
	}
	var rows []row
	if err := db.Model(&model.Invoice{}).
		Select("status, count(*) as count, coalesce(sum(total), 0) as total, coalesce(sum(paid_amount), 0) as paid").
		Where("distributor_id = ?", distributorID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, rw := range rows {
		s.TotalCount += rw.Count
		s.TotalAmount = s.TotalAmount.Add(rw.Total)
		s.PaidAmount = s.PaidAmount.Add(rw.Paid)
		switch rw.Status {
		case model.InvoiceDraft:
			s.DraftCount = rw.Count
		case model.InvoicePartial:
			s.PartialCount = rw.Count
		case model.InvoiceCompleted:
			s.CompletedCount = rw.Count
		case model.InvoiceCancelled:
			s.CancelledCount = rw.Count
		}
	}
	return &s, nil
}
