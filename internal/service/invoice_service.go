package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultTaxRatePercent is the flat tax rate applied to every line.
// Per-product rates exist on the catalog but are not consulted yet.
var DefaultTaxRatePercent = decimal.NewFromInt(18)

// --- Collaborators ---

// Charger is the payment-gateway seam: given an amount and currency it
// returns an opaque client secret for the frontend to complete.
type Charger interface {
	Charge(ctx context.Context, amount decimal.Decimal, currency string) (string, error)
}

// Notifier is the email seam for sending an invoice to a customer.
type Notifier interface {
	NotifyInvoice(ctx context.Context, invoiceID uuid.UUID, email string) error
}

// InvoiceEventPublisher pushes invoice lifecycle events to connected
// clients. The websocket hub implements it.
type InvoiceEventPublisher interface {
	PublishInvoiceEvent(event string, payload any)
}

type NopCharger struct{}

func (NopCharger) Charge(context.Context, decimal.Decimal, string) (string, error) {
	return "", nil
}

type NopNotifier struct{}

func (NopNotifier) NotifyInvoice(context.Context, uuid.UUID, string) error { return nil }

type NopPublisher struct{}

func (NopPublisher) PublishInvoiceEvent(string, any) {}

// --- DTOs ---

type InvoiceItemInput struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name" binding:"required"`
	Quantity       string `json:"quantity" binding:"required"`
	UnitPrice      string `json:"unit_price" binding:"required"`
	DiscountAmount string `json:"discount_amount"`
}

type PaymentInput struct {
	Amount    string `json:"amount" binding:"required"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

type CreateInvoiceRequest struct {
	CustomerID     string             `json:"customer_id"`
	BranchID       string             `json:"branch_id"`
	InvoiceType    string             `json:"invoice_type" binding:"omitempty,oneof=sale return"`
	Items          []InvoiceItemInput `json:"items" binding:"required,min=1,dive"`
	DiscountAmount string             `json:"discount_amount"`
	Notes          string             `json:"notes"`
	Payments       []PaymentInput     `json:"payments" binding:"omitempty,dive"`
}

type RecordPaymentRequest struct {
	Amount    string `json:"amount" binding:"required"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

type CancelInvoiceRequest struct {
	Reason string `json:"reason"`
}

type InvoiceFilter struct {
	Status      string
	InvoiceType string
	CustomerID  string
	Search      string
	Page        int
	Limit       int
}

type InvoiceItemResponse struct {
	ID             string `json:"id"`
	ProductID      *string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Quantity       string `json:"quantity"`
	UnitPrice      string `json:"unit_price"`
	DiscountAmount string `json:"discount_amount"`
	TaxRate        string `json:"tax_rate"`
	TaxAmount      string `json:"tax_amount"`
	Total          string `json:"total"`
}

type PaymentResponse struct {
	ID        string `json:"id"`
	Amount    string `json:"amount"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
	CreatedAt string `json:"created_at"`
}

type InvoiceResponse struct {
	ID             string                `json:"id"`
	DistributorID  string                `json:"distributor_id"`
	BranchID       *string               `json:"branch_id"`
	CustomerID     string                `json:"customer_id"`
	InvoiceNumber  string                `json:"invoice_number"`
	InvoiceType    string                `json:"invoice_type"`
	Subtotal       string                `json:"subtotal"`
	DiscountAmount string                `json:"discount_amount"`
	TaxAmount      string                `json:"tax_amount"`
	Total          string                `json:"total"`
	PaidAmount     string                `json:"paid_amount"`
	Status         string                `json:"status"`
	Notes          string                `json:"notes"`
	Items          []InvoiceItemResponse `json:"items"`
	Payments       []PaymentResponse     `json:"payments"`
	CreatedAt      string                `json:"created_at"`
}

// InvoiceTotals is the dry-run result of the computation pipeline,
// identical to what creation would persist.
type InvoiceTotals struct {
	Subtotal  string                `json:"subtotal"`
	TaxAmount string                `json:"tax_amount"`
	Total     string                `json:"total"`
	Items     []InvoiceItemResponse `json:"items"`
}

type InvoiceStatsResponse struct {
	TotalCount     int64  `json:"total_count"`
	DraftCount     int64  `json:"draft_count"`
	PartialCount   int64  `json:"partial_count"`
	CompletedCount int64  `json:"completed_count"`
	CancelledCount int64  `json:"cancelled_count"`
	TotalAmount    string `json:"total_amount"`
	PaidAmount     string `json:"paid_amount"`
}

// --- Interface ---

type InvoiceService interface {
	CreateInvoice(ctx context.Context, distributorID uuid.UUID, createdBy *uuid.UUID, req CreateInvoiceRequest) (*InvoiceResponse, error)
	GetInvoice(ctx context.Context, distributorID uuid.UUID, id string) (*InvoiceResponse, error)
	ListInvoices(ctx context.Context, distributorID uuid.UUID, filter InvoiceFilter) ([]InvoiceResponse, int64, error)
	RecordPayment(ctx context.Context, distributorID uuid.UUID, actorID *uuid.UUID, id string, req RecordPaymentRequest) (*InvoiceResponse, error)
	CancelInvoice(ctx context.Context, distributorID uuid.UUID, actorID *uuid.UUID, id string, req CancelInvoiceRequest) (*InvoiceResponse, error)
	ValidateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceTotals, error)
	Stats(ctx context.Context, distributorID uuid.UUID) (*InvoiceStatsResponse, error)
	CreatePaymentIntent(ctx context.Context, distributorID uuid.UUID, id string) (*PaymentIntentResponse, error)
	EmailInvoice(ctx context.Context, distributorID uuid.UUID, id, email string) error
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	txManager   repository.TransactionManager
	audit       AuditRecorder
	publisher   InvoiceEventPublisher
	charger     Charger
	notifier    Notifier
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	txManager repository.TransactionManager,
	audit AuditRecorder,
	publisher InvoiceEventPublisher,
	charger Charger,
	notifier Notifier,
) InvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		txManager:   txManager,
		audit:       audit,
		publisher:   publisher,
		charger:     charger,
		notifier:    notifier,
	}
}

// --- Computation ---

type computedLine struct {
	item     model.InvoiceItem
	subtotal decimal.Decimal
}

type computedTotals struct {
	lines     []computedLine
	subtotal  decimal.Decimal
	taxAmount decimal.Decimal
	total     decimal.Decimal
}

// computeTotals runs the pricing pipeline over submitted lines. For each
// line: subtotal = quantity*unit_price - discount, tax at the flat rate,
// line total = subtotal + tax. Invoice subtotal and tax are the sums;
// total = subtotal + tax. The invoice-level discount is recorded but not
// subtracted, keeping the total invariant intact.
func computeTotals(items []InvoiceItemInput) (*computedTotals, error) {
	out := &computedTotals{
		subtotal:  decimal.Zero,
		taxAmount: decimal.Zero,
	}

	for i, in := range items {
		quantity, err := decimal.NewFromString(in.Quantity)
		if err != nil {
			return nil, apperror.Validationf("invalid quantity on line %d", i+1).WithField("quantity", in.Quantity)
		}
		if quantity.Sign() <= 0 {
			return nil, apperror.Validationf("quantity must be positive on line %d", i+1).WithField("quantity", in.Quantity)
		}
		unitPrice, err := decimal.NewFromString(in.UnitPrice)
		if err != nil {
			return nil, apperror.Validationf("invalid unit_price on line %d", i+1).WithField("unit_price", in.UnitPrice)
		}
		if unitPrice.Sign() < 0 {
			return nil, apperror.Validationf("unit_price must not be negative on line %d", i+1).WithField("unit_price", in.UnitPrice)
		}

		discount := decimal.Zero
		if in.DiscountAmount != "" {
			discount, err = decimal.NewFromString(in.DiscountAmount)
			if err != nil {
				return nil, apperror.Validationf("invalid discount_amount on line %d", i+1).WithField("discount_amount", in.DiscountAmount)
			}
			if discount.Sign() < 0 {
				return nil, apperror.Validationf("discount_amount must not be negative on line %d", i+1).WithField("discount_amount", in.DiscountAmount)
			}
		}

		lineSubtotal := quantity.Mul(unitPrice).Sub(discount)
		if lineSubtotal.Sign() < 0 {
			return nil, apperror.Validationf("discount exceeds line amount on line %d", i+1).WithField("discount_amount", in.DiscountAmount)
		}
		lineTax := lineSubtotal.Mul(DefaultTaxRatePercent).Div(decimal.NewFromInt(100)).Round(2)
		lineTotal := lineSubtotal.Add(lineTax)

		item := model.InvoiceItem{
			ProductName:    in.ProductName,
			Quantity:       quantity,
			UnitPrice:      unitPrice,
			DiscountAmount: discount,
			TaxRate:        DefaultTaxRatePercent,
			TaxAmount:      lineTax,
			Total:          lineTotal,
		}
		if in.ProductID != "" {
			productID, err := uuid.Parse(in.ProductID)
			if err != nil {
				return nil, apperror.Validationf("invalid product_id on line %d", i+1).WithField("product_id", in.ProductID)
			}
			item.ProductID = &productID
		}

		out.lines = append(out.lines, computedLine{item: item, subtotal: lineSubtotal})
		out.subtotal = out.subtotal.Add(lineSubtotal)
		out.taxAmount = out.taxAmount.Add(lineTax)
	}

	out.total = out.subtotal.Add(out.taxAmount)
	return out, nil
}

// deriveStatus maps the paid/total comparison to the three-way status.
func deriveStatus(paid, total decimal.Decimal) string {
	switch {
	case paid.Sign() <= 0:
		return model.InvoiceDraft
	case paid.GreaterThanOrEqual(total):
		return model.InvoiceCompleted
	default:
		return model.InvoicePartial
	}
}

// --- Implementation ---

// CreateInvoice builds the invoice and its items as one atomic unit:
// the sequence increment, the insert and any inline payments all commit
// together or not at all.
func (s *invoiceService) CreateInvoice(ctx context.Context, distributorID uuid.UUID, createdBy *uuid.UUID, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	totals, err := computeTotals(req.Items)
	if err != nil {
		return nil, err
	}

	invoiceDiscount := decimal.Zero
	if req.DiscountAmount != "" {
		invoiceDiscount, err = decimal.NewFromString(req.DiscountAmount)
		if err != nil {
			return nil, apperror.Validation("invalid discount_amount").WithField("discount_amount", req.DiscountAmount)
		}
	}

	invoiceType := req.InvoiceType
	if invoiceType == "" {
		invoiceType = model.InvoiceTypeSale
	}

	var branchID *uuid.UUID
	if req.BranchID != "" {
		parsed, parseErr := uuid.Parse(req.BranchID)
		if parseErr != nil {
			return nil, apperror.Validation("invalid branch id").WithField("branch_id", parseErr.Error())
		}
		branchID = &parsed
	}

	payments := make([]model.Payment, 0, len(req.Payments))
	paidAmount := decimal.Zero
	for i, p := range req.Payments {
		amount, parseErr := decimal.NewFromString(p.Amount)
		if parseErr != nil {
			return nil, apperror.Validationf("invalid payment amount on payment %d", i+1).WithField("amount", p.Amount)
		}
		if amount.Sign() <= 0 {
			return nil, apperror.Validationf("payment amount must be positive on payment %d", i+1).WithField("amount", p.Amount)
		}
		method := p.Method
		if method == "" {
			method = "cash"
		}
		payments = append(payments, model.Payment{Amount: amount, Method: method, Reference: p.Reference})
		paidAmount = paidAmount.Add(amount)
	}

	items := make([]model.InvoiceItem, 0, len(totals.lines))
	for _, l := range totals.lines {
		items = append(items, l.item)
	}

	invoice := &model.Invoice{
		DistributorID:  distributorID,
		BranchID:       branchID,
		CustomerID:     req.CustomerID,
		InvoiceType:    invoiceType,
		Subtotal:       totals.subtotal,
		DiscountAmount: invoiceDiscount,
		TaxAmount:      totals.taxAmount,
		Total:          totals.total,
		PaidAmount:     paidAmount,
		Status:         deriveStatus(paidAmount, totals.total),
		Notes:          req.Notes,
		CreatedBy:      createdBy,
		Items:          items,
		Payments:       payments,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		number, seqErr := s.nextInvoiceNumber(txCtx, distributorID)
		if seqErr != nil {
			return seqErr
		}
		invoice.InvoiceNumber = number

		if createErr := s.invoiceRepo.Create(txCtx, invoice); createErr != nil {
			return fmt.Errorf("failed to create invoice: %w", createErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, createdBy, model.ActionCreateInvoice, invoice.ID.String(), invoice.InvoiceNumber, map[string]string{
		"total":  invoice.Total.StringFixed(2),
		"status": invoice.Status,
	})
	s.publisher.PublishInvoiceEvent("invoice.created", map[string]string{
		"id":             invoice.ID.String(),
		"distributor_id": invoice.DistributorID.String(),
		"invoice_number": invoice.InvoiceNumber,
		"status":         invoice.Status,
	})

	reloaded, err := s.invoiceRepo.FindByIDWithItems(ctx, invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload invoice: %w", err)
	}
	resp := toInvoiceResponse(*reloaded)
	return &resp, nil
}

// nextInvoiceNumber formats INV-YYYYMMDD-NNNN from the per-tenant-day
// counter. Must run inside the creation transaction.
func (s *invoiceService) nextInvoiceNumber(ctx context.Context, distributorID uuid.UUID) (string, error) {
	day := time.Now().Format("20060102")
	n, err := s.invoiceRepo.NextSequenceNumber(ctx, distributorID, day)
	if err != nil {
		return "", fmt.Errorf("failed to advance invoice sequence: %w", err)
	}
	return fmt.Sprintf("INV-%s-%04d", day, n), nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, distributorID uuid.UUID, id string) (*InvoiceResponse, error) {
	invoice, err := s.findTenantInvoice(ctx, distributorID, id)
	if err != nil {
		return nil, err
	}
	resp := toInvoiceResponse(*invoice)
	return &resp, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context, distributorID uuid.UUID, filter InvoiceFilter) ([]InvoiceResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	invoices, total, err := s.invoiceRepo.List(ctx, repository.InvoiceListFilter{
		DistributorID: distributorID,
		Status:        filter.Status,
		InvoiceType:   filter.InvoiceType,
		CustomerID:    filter.CustomerID,
		Search:        filter.Search,
		Page:          filter.Page,
		Limit:         filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		result = append(result, toInvoiceResponse(inv))
	}
	return result, total, nil
}

// RecordPayment appends a payment and recomputes status. Cancelled is
// terminal: the call is rejected as a conflict. Status only moves
// forward through draft, partial, completed.
func (s *invoiceService) RecordPayment(ctx context.Context, distributorID uuid.UUID, actorID *uuid.UUID, id string, req RecordPaymentRequest) (*InvoiceResponse, error) {
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, apperror.Validation("invalid payment amount").WithField("amount", req.Amount)
	}
	if amount.Sign() <= 0 {
		return nil, apperror.Validation("payment amount must be positive").WithField("amount", req.Amount)
	}

	var invoice *model.Invoice
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		invoice, findErr = s.findTenantInvoice(txCtx, distributorID, id)
		if findErr != nil {
			return findErr
		}

		if invoice.Status == model.InvoiceCancelled {
			return apperror.Conflict("cannot record payment on a cancelled invoice")
		}

		method := req.Method
		if method == "" {
			method = "cash"
		}
		payment := &model.Payment{
			InvoiceID: invoice.ID,
			Amount:    amount,
			Method:    method,
			Reference: req.Reference,
		}
		if createErr := s.invoiceRepo.CreatePayment(txCtx, payment); createErr != nil {
			return fmt.Errorf("failed to record payment: %w", createErr)
		}

		invoice.PaidAmount = invoice.PaidAmount.Add(amount)
		if next := deriveStatus(invoice.PaidAmount, invoice.Total); statusRank(next) > statusRank(invoice.Status) {
			invoice.Status = next
		}
		if updateErr := s.invoiceRepo.Update(txCtx, invoice); updateErr != nil {
			return fmt.Errorf("failed to update invoice: %w", updateErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, model.ActionRecordPayment, invoice.ID.String(), invoice.InvoiceNumber, map[string]string{
		"amount": amount.StringFixed(2),
		"status": invoice.Status,
	})
	s.publisher.PublishInvoiceEvent("invoice.payment_recorded", map[string]string{
		"id":             invoice.ID.String(),
		"distributor_id": invoice.DistributorID.String(),
		"status":         invoice.Status,
	})

	reloaded, err := s.invoiceRepo.FindByIDWithItems(ctx, invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload invoice: %w", err)
	}
	resp := toInvoiceResponse(*reloaded)
	return &resp, nil
}

// CancelInvoice marks the invoice cancelled and appends the reason to
// its notes. Cancellation is terminal and idempotent-hostile: a second
// cancel is a conflict.
func (s *invoiceService) CancelInvoice(ctx context.Context, distributorID uuid.UUID, actorID *uuid.UUID, id string, req CancelInvoiceRequest) (*InvoiceResponse, error) {
	var invoice *model.Invoice
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var findErr error
		invoice, findErr = s.findTenantInvoice(txCtx, distributorID, id)
		if findErr != nil {
			return findErr
		}

		if invoice.Status == model.InvoiceCancelled {
			return apperror.Conflict("invoice is already cancelled")
		}

		invoice.Status = model.InvoiceCancelled
		if req.Reason != "" {
			note := fmt.Sprintf("Cancelled: %s", req.Reason)
			if strings.TrimSpace(invoice.Notes) == "" {
				invoice.Notes = note
			} else {
				invoice.Notes = invoice.Notes + "\n" + note
			}
		}
		if updateErr := s.invoiceRepo.Update(txCtx, invoice); updateErr != nil {
			return fmt.Errorf("failed to update invoice: %w", updateErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, model.ActionCancelInvoice, invoice.ID.String(), invoice.InvoiceNumber, map[string]string{
		"reason": req.Reason,
	})
	s.publisher.PublishInvoiceEvent("invoice.cancelled", map[string]string{
		"id":             invoice.ID.String(),
		"distributor_id": invoice.DistributorID.String(),
	})

	reloaded, err := s.invoiceRepo.FindByIDWithItems(ctx, invoice.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload invoice: %w", err)
	}
	resp := toInvoiceResponse(*reloaded)
	return &resp, nil
}

// ValidateInvoice is the dry-run path: same pipeline as creation with
// nothing persisted and no number consumed.
func (s *invoiceService) ValidateInvoice(ctx context.Context, req CreateInvoiceRequest) (*InvoiceTotals, error) {
	totals, err := computeTotals(req.Items)
	if err != nil {
		return nil, err
	}

	items := make([]InvoiceItemResponse, 0, len(totals.lines))
	for _, l := range totals.lines {
		items = append(items, toItemResponse(l.item))
	}
	return &InvoiceTotals{
		Subtotal:  totals.subtotal.StringFixed(2),
		TaxAmount: totals.taxAmount.StringFixed(2),
		Total:     totals.total.StringFixed(2),
		Items:     items,
	}, nil
}

func (s *invoiceService) Stats(ctx context.Context, distributorID uuid.UUID) (*InvoiceStatsResponse, error) {
	stats, err := s.invoiceRepo.Stats(ctx, distributorID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute invoice stats: %w", err)
	}
	return &InvoiceStatsResponse{
		TotalCount:     stats.TotalCount,
		DraftCount:     stats.DraftCount,
		PartialCount:   stats.PartialCount,
		CompletedCount: stats.CompletedCount,
		CancelledCount: stats.CancelledCount,
		TotalAmount:    stats.TotalAmount.StringFixed(2),
		PaidAmount:     stats.PaidAmount.StringFixed(2),
	}, nil
}

// CreatePaymentIntent asks the payment provider to charge the
// outstanding balance and returns its client secret for the frontend.
func (s *invoiceService) CreatePaymentIntent(ctx context.Context, distributorID uuid.UUID, id string) (*PaymentIntentResponse, error) {
	invoice, err := s.findTenantInvoice(ctx, distributorID, id)
	if err != nil {
		return nil, err
	}
	if invoice.Status == model.InvoiceCancelled {
		return nil, apperror.Conflict("cannot charge a cancelled invoice")
	}

	outstanding := invoice.Total.Sub(invoice.PaidAmount)
	if outstanding.Sign() <= 0 {
		return nil, apperror.Conflict("invoice is already fully paid")
	}

	currency := "INR"
	if invoice.Branch != nil && invoice.Branch.Currency != "" {
		currency = invoice.Branch.Currency
	}

	secret, err := s.charger.Charge(ctx, outstanding, currency)
	if err != nil {
		return nil, fmt.Errorf("payment provider rejected charge: %w", err)
	}
	return &PaymentIntentResponse{
		ClientSecret: secret,
		Amount:       outstanding.StringFixed(2),
		Currency:     currency,
	}, nil
}

// EmailInvoice hands the invoice to the mail provider.
func (s *invoiceService) EmailInvoice(ctx context.Context, distributorID uuid.UUID, id, email string) error {
	invoice, err := s.findTenantInvoice(ctx, distributorID, id)
	if err != nil {
		return err
	}
	if err := s.notifier.NotifyInvoice(ctx, invoice.ID, email); err != nil {
		return fmt.Errorf("failed to send invoice email: %w", err)
	}
	return nil
}

// --- Helpers ---

func (s *invoiceService) findTenantInvoice(ctx context.Context, distributorID uuid.UUID, id string) (*model.Invoice, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid invoice id").WithField("invoice_id", err.Error())
	}

	invoice, err := s.invoiceRepo.FindByIDWithItems(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("invoice")
		}
		return nil, fmt.Errorf("failed to fetch invoice: %w", err)
	}
	// cross-tenant reads look like missing records
	if invoice.DistributorID != distributorID {
		return nil, apperror.NotFound("invoice")
	}
	return invoice, nil
}

// statusRank orders the non-cancelled statuses so payments never move
// an invoice backwards.
func statusRank(status string) int {
	switch status {
	case model.InvoiceDraft:
		return 0
	case model.InvoicePartial:
		return 1
	case model.InvoiceCompleted:
		return 2
	default:
		return 3
	}
}

// --- Mapping ---

func toItemResponse(item model.InvoiceItem) InvoiceItemResponse {
	resp := InvoiceItemResponse{
		ID:             item.ID.String(),
		ProductName:    item.ProductName,
		Quantity:       item.Quantity.StringFixed(3),
		UnitPrice:      item.UnitPrice.StringFixed(2),
		DiscountAmount: item.DiscountAmount.StringFixed(2),
		TaxRate:        item.TaxRate.StringFixed(2),
		TaxAmount:      item.TaxAmount.StringFixed(2),
		Total:          item.Total.StringFixed(2),
	}
	if item.ProductID != nil {
		id := item.ProductID.String()
		resp.ProductID = &id
	}
	return resp
}

func toInvoiceResponse(inv model.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:             inv.ID.String(),
		DistributorID:  inv.DistributorID.String(),
		CustomerID:     inv.CustomerID,
		InvoiceNumber:  inv.InvoiceNumber,
		InvoiceType:    inv.InvoiceType,
		Subtotal:       inv.Subtotal.StringFixed(2),
		DiscountAmount: inv.DiscountAmount.StringFixed(2),
		TaxAmount:      inv.TaxAmount.StringFixed(2),
		Total:          inv.Total.StringFixed(2),
		PaidAmount:     inv.PaidAmount.StringFixed(2),
		Status:         inv.Status,
		Notes:          inv.Notes,
		Items:          make([]InvoiceItemResponse, 0, len(inv.Items)),
		Payments:       make([]PaymentResponse, 0, len(inv.Payments)),
		CreatedAt:      inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.BranchID != nil {
		id := inv.BranchID.String()
		resp.BranchID = &id
	}
	for _, item := range inv.Items {
		resp.Items = append(resp.Items, toItemResponse(item))
	}
	for _, p := range inv.Payments {
		resp.Payments = append(resp.Payments, PaymentResponse{
			ID:        p.ID.String(),
			Amount:    p.Amount.StringFixed(2),
			Method:    p.Method,
			Reference: p.Reference,
			CreatedAt: p.CreatedAt.Format(time.RFC3339),
		})
	}
	return resp
}
