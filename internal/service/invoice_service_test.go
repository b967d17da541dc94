package service

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// fakeTxManager runs the callback without a real transaction.
type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// fakeInvoiceRepo is an in-memory InvoiceRepository with a per-day
// sequence counter matching the persistent one's contract.
type fakeInvoiceRepo struct {
	invoices map[uuid.UUID]*model.Invoice
	seq      map[string]int64
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		invoices: make(map[uuid.UUID]*model.Invoice),
		seq:      make(map[string]int64),
	}
}

func (f *fakeInvoiceRepo) Create(_ context.Context, invoice *model.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	for i := range invoice.Items {
		if invoice.Items[i].ID == uuid.Nil {
			invoice.Items[i].ID = uuid.New()
		}
		invoice.Items[i].InvoiceID = invoice.ID
	}
	for i := range invoice.Payments {
		if invoice.Payments[i].ID == uuid.Nil {
			invoice.Payments[i].ID = uuid.New()
		}
		invoice.Payments[i].InvoiceID = invoice.ID
	}
	invoice.CreatedAt = time.Now()
	cp := *invoice
	f.invoices[invoice.ID] = &cp
	return nil
}

func (f *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, ok := f.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *inv
	return &cp, nil
}

func (f *fakeInvoiceRepo) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeInvoiceRepo) List(_ context.Context, filter repository.InvoiceListFilter) ([]model.Invoice, int64, error) {
	out := make([]model.Invoice, 0)
	for _, inv := range f.invoices {
		if inv.DistributorID != filter.DistributorID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		out = append(out, *inv)
	}
	return out, int64(len(out)), nil
}

// Update mirrors the row-only contract of the real repository: scalar
// columns change, stored items and payments stay as written.
func (f *fakeInvoiceRepo) Update(_ context.Context, invoice *model.Invoice) error {
	existing, ok := f.invoices[invoice.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cp := *invoice
	cp.Items = existing.Items
	cp.Payments = existing.Payments
	f.invoices[invoice.ID] = &cp
	return nil
}

func (f *fakeInvoiceRepo) CreatePayment(_ context.Context, payment *model.Payment) error {
	inv, ok := f.invoices[payment.InvoiceID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	payment.CreatedAt = time.Now()
	inv.Payments = append(inv.Payments, *payment)
	return nil
}

func (f *fakeInvoiceRepo) NextSequenceNumber(_ context.Context, distributorID uuid.UUID, day string) (int64, error) {
	key := distributorID.String() + "/" + day
	f.seq[key]++
	return f.seq[key], nil
}

func (f *fakeInvoiceRepo) Stats(_ context.Context, distributorID uuid.UUID) (*repository.InvoiceStats, error) {
	stats := &repository.InvoiceStats{
		TotalAmount: decimal.Zero,
		PaidAmount:  decimal.Zero,
	}
	for _, inv := range f.invoices {
		if inv.DistributorID != distributorID {
			continue
		}
		stats.TotalCount++
		switch inv.Status {
		case model.InvoiceDraft:
			stats.DraftCount++
		case model.InvoicePartial:
			stats.PartialCount++
		case model.InvoiceCompleted:
			stats.CompletedCount++
		case model.InvoiceCancelled:
			stats.CancelledCount++
		}
		stats.TotalAmount = stats.TotalAmount.Add(inv.Total)
		stats.PaidAmount = stats.PaidAmount.Add(inv.PaidAmount)
	}
	return stats, nil
}

func newTestInvoiceService(repo *fakeInvoiceRepo) InvoiceService {
	return NewInvoiceService(repo, fakeTxManager{}, NopAuditRecorder{}, NopPublisher{}, NopCharger{}, NopNotifier{})
}

func TestComputeTotals_FlatTaxPipeline(t *testing.T) {
	totals, err := computeTotals([]InvoiceItemInput{
		{ProductName: "Widget", Quantity: "2", UnitPrice: "100"},
		{ProductName: "Gadget", Quantity: "1", UnitPrice: "50", DiscountAmount: "10"},
	})
	if err != nil {
		t.Fatalf("computeTotals error: %v", err)
	}

	if got := totals.subtotal.StringFixed(2); got != "240.00" {
		t.Fatalf("subtotal expected 240.00, got %s", got)
	}
	if got := totals.taxAmount.StringFixed(2); got != "43.20" {
		t.Fatalf("tax expected 43.20, got %s", got)
	}
	if got := totals.total.StringFixed(2); got != "283.20" {
		t.Fatalf("total expected 283.20, got %s", got)
	}

	// total must always equal subtotal + tax
	if !totals.total.Equal(totals.subtotal.Add(totals.taxAmount)) {
		t.Fatalf("total %s != subtotal %s + tax %s", totals.total, totals.subtotal, totals.taxAmount)
	}

	line := totals.lines[1].item
	if got := line.TaxAmount.StringFixed(2); got != "7.20" {
		t.Fatalf("line tax expected 7.20, got %s", got)
	}
	if got := line.Total.StringFixed(2); got != "47.20" {
		t.Fatalf("line total expected 47.20, got %s", got)
	}
}

func TestComputeTotals_RoundsLineTaxToTwoPlaces(t *testing.T) {
	totals, err := computeTotals([]InvoiceItemInput{
		{ProductName: "Odd", Quantity: "1", UnitPrice: "0.07"},
	})
	if err != nil {
		t.Fatalf("computeTotals error: %v", err)
	}
	// 0.07 * 18% = 0.0126, rounds to 0.01
	if got := totals.taxAmount.StringFixed(2); got != "0.01" {
		t.Fatalf("tax expected 0.01, got %s", got)
	}
}

func TestComputeTotals_RejectsInvalidLines(t *testing.T) {
	cases := []struct {
		name string
		item InvoiceItemInput
	}{
		{"zero quantity", InvoiceItemInput{ProductName: "X", Quantity: "0", UnitPrice: "10"}},
		{"negative quantity", InvoiceItemInput{ProductName: "X", Quantity: "-1", UnitPrice: "10"}},
		{"malformed quantity", InvoiceItemInput{ProductName: "X", Quantity: "two", UnitPrice: "10"}},
		{"negative price", InvoiceItemInput{ProductName: "X", Quantity: "1", UnitPrice: "-5"}},
		{"negative discount", InvoiceItemInput{ProductName: "X", Quantity: "1", UnitPrice: "10", DiscountAmount: "-1"}},
		{"discount exceeds line", InvoiceItemInput{ProductName: "X", Quantity: "1", UnitPrice: "10", DiscountAmount: "20"}},
		{"bad product id", InvoiceItemInput{ProductID: "nope", ProductName: "X", Quantity: "1", UnitPrice: "10"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := computeTotals([]InvoiceItemInput{tc.item})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if apperror.KindOf(err) != apperror.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	total := decimal.NewFromInt(100)
	cases := []struct {
		paid     string
		expected string
	}{
		{"0", model.InvoiceDraft},
		{"-5", model.InvoiceDraft},
		{"40", model.InvoicePartial},
		{"100", model.InvoiceCompleted},
		{"150", model.InvoiceCompleted},
	}
	for _, tc := range cases {
		paid, _ := decimal.NewFromString(tc.paid)
		if got := deriveStatus(paid, total); got != tc.expected {
			t.Fatalf("deriveStatus(%s, 100) expected %s, got %s", tc.paid, tc.expected, got)
		}
	}
}

func TestCreateInvoice_NumberFormatAndSequence(t *testing.T) {
	repo := newFakeInvoiceRepo()
	svc := newTestInvoiceService(repo)
	distributorID := uuid.New()

	req := CreateInvoiceRequest{
		Items: []InvoiceItemInput{{ProductName: "Widget", Quantity: "1", UnitPrice: "100"}},
	}

	pattern := regexp.MustCompile(`^INV-\d{8}-\d{4}$`)
	day := time.Now().Format("20060102")

	for i := 1; i <= 3; i++ {
		inv, err := svc.CreateInvoice(context.Background(), distributorID, nil, req)
		if err != nil {
			t.Fatalf("CreateInvoice error: %v", err)
		}
		if !pattern.MatchString(inv.InvoiceNumber) {
			t.Fatalf("invoice number %q does not match INV-YYYYMMDD-NNNN", inv.InvoiceNumber)
		}
		expected := fmt.Sprintf("INV-%s-%04d", day, i)
		if inv.InvoiceNumber != expected {
			t.Fatalf("expected %s, got %s", expected, inv.InvoiceNumber)
		}
	}

	// a second tenant starts its own counter at 1
	other, err := svc.CreateInvoice(context.Background(), uuid.New(), nil, req)
	if err != nil {
		t.Fatalf("CreateInvoice error: %v", err)
	}
	if other.InvoiceNumber != fmt.Sprintf("INV-%s-0001", day) {
		t.Fatalf("second tenant expected sequence 0001, got %s", other.InvoiceNumber)
	}
}

func TestCreateInvoice_InlinePaymentsDeriveStatus(t *testing.T) {
	repo := newFakeInvoiceRepo()
	svc := newTestInvoiceService(repo)
	distributorID := uuid.New()

	cases := []struct {
		name     string
		payments []PaymentInput
		expected string
	}{
		{"no payments", nil, model.InvoiceDraft},
		{"partial", []PaymentInput{{Amount: "50"}}, model.InvoicePartial},
		{"full", []PaymentInput{{Amount: "118"}}, model.InvoiceCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inv, err := svc.CreateInvoice(context.Background(), distributorID, nil, CreateInvoiceRequest{
				Items:    []InvoiceItemInput{{ProductName: "Widget", Quantity: "1", UnitPrice: "100"}},
				Payments: tc.payments,
			})
			if err != nil {
				t.Fatalf("CreateInvoice error: %v", err)
			}
			if inv.Status != tc.expected {
				t.Fatalf("expected status %s, got %s", tc.expected, inv.Status)
			}
		})
	}
}

func TestRecordPayment_MovesStatusForwardOnly(t *testing.T) {
	repo := newFakeInvoiceRepo()
	svc := newTestInvoiceService(repo)
	distributorID := uuid.New()

	inv, err := svc.CreateInvoice(context.Background(), distributorID, nil, CreateInvoiceRequest{
		Items: []InvoiceItemInput{{ProductName: "Widget", Quantity: "1", UnitPrice: "100"}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice error: %v", err)
	}
	if inv.Status != model.InvoiceDraft {
		t.Fatalf("expected draft, got %s", inv.Status)
	}

	inv, err = svc.RecordPayment(context.Background(), distributorID, nil, inv.ID, RecordPaymentRequest{Amount: "50"})
	if err != nil {
		t.Fatalf("RecordPayment error: %v", err)
	}
	if inv.Status != model.InvoicePartial {
		t.Fatalf("expected partial after first payment, got %s", inv.Status)
	}
	if inv.PaidAmount != "50.00" {
		t.Fatalf("expected paid 50.00, got %s", inv.PaidAmount)
	}

	inv, err = svc.RecordPayment(context.Background(), distributorID, nil, inv.ID, RecordPaymentRequest{Amount: "68"})
	if err != nil {
		t.Fatalf("RecordPayment error: %v", err)
	}
	if inv.Status != model.InvoiceCompleted {
		t.Fatalf("expected completed, got %s", inv.Status)
	}
	if len(inv.Payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(inv.Payments))
	}

	// overpayment on a completed invoice never moves it backwards
	inv, err = svc.RecordPayment(context.Background(), distributorID, nil, inv.ID, RecordPaymentRequest{Amount: "10"})
	if err != nil {
		t.Fatalf("RecordPayment error: %v", err)
	}
	if inv.Status != model.InvoiceCompleted {
		t.Fatalf("status regressed to %s", inv.Status)
	}
	if len(inv.Payments) != 3 {
		t.Fatalf("expected 3 payments, got %d", len(inv.Payments))
	}
}

func TestRecordPayment_RejectsInvalidAmounts(t *testing.T) {
	repo := newFakeInvoiceRepo()
	svc := newTestInvoiceService(repo)
	distributorID := uuid.New()

	inv, err := svc.CreateInvoice(context.Background(), distributorID, nil, CreateInvoiceRequest{
		Items: []InvoiceItemInput{{ProductName: "Widget", Quantity: "1", UnitPrice: "100"}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice error: %v", err)
	}

	for _, amount := range []string{"0", "-10", "abc"} {
		_, err := svc.RecordPayment(context.Background(), distributorID, nil, inv.ID, RecordPaymentRequest{Amount: amount})
		if apperror.KindOf(err) != apperror.KindValidation {
			t.Fatalf("amount %q: expected validation error, got %v", amount, err)
		}
	}
}

func TestCancelInvoice_IsTerminal(t *testing.T) {
	repo := newFakeInvoiceRepo()
	svc := newTestInvoiceService(repo)
	distributorID := uuid.New()

	inv, err := svc.CreateInvoice(context.Background(), distributorID, nil, CreateInvoiceRequest{
		Items: []InvoiceItemInput{{ProductName: "Widget", Quantity: "1", UnitPrice: "100"}},
		Notes: "rush order",
	})
	if err != nil {
		t.Fatalf("CreateInvoice error: %v", err)
	}

	cancelled, err := svc.CancelInvoice(context.Background(), distributorID, nil, inv.ID, CancelInvoiceRequest{Reason: "customer backed out"})
	if err != nil {
		t.Fatalf("CancelInvoice error: %v", err)
	}
	if cancelled.Status != model.InvoiceCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.Notes != "rush order\nCancelled: customer backed out" {
		t.Fatalf("unexpected notes: %q", cancelled.Notes)
	}

	// a second cancel and any payment are both conflicts
	if _, err := svc.CancelInvoice(context.Background(), distributorID, nil, inv.ID, CancelInvoiceRequest{}); apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("second cancel expected conflict, got %v", err)
	}
	if _, err := svc.RecordPayment(context.Background(), distributorID, nil, inv.ID, RecordPaymentRequest{Amount: "10"}); apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("payment on cancelled expected conflict, got %v", err)
	}
}

func TestValidateInvoice_MatchesCreation(t *testing.T) {
	repo := newFakeInvoiceRepo()
	svc := newTestInvoiceService(repo)
	distributorID := uuid.New()

	req := CreateInvoiceRequest{
		Items: []InvoiceItemInput{
			{ProductName: "Widget", Quantity: "3", UnitPrice: "33.33"},
			{ProductName: "Gadget", Quantity: "2", UnitPrice: "75", DiscountAmount: "5"},
		},
	}

	dry, err := svc.ValidateInvoice(context.Background(), req)
	if err != nil {
		t.Fatalf("ValidateInvoice error: %v", err)
	}
	created, err := svc.CreateInvoice(context.Background(), distributorID, nil, req)
	if err != nil {
		t.Fatalf("CreateInvoice error: %v", err)
	}

	if dry.Subtotal != created.Subtotal || dry.TaxAmount != created.TaxAmount || dry.Total != created.Total {
		t.Fatalf("dry run %s/%s/%s diverges from creation %s/%s/%s",
			dry.Subtotal, dry.TaxAmount, dry.Total, created.Subtotal, created.TaxAmount, created.Total)
	}

	// the dry run must not consume a sequence number
	day := time.Now().Format("20060102")
	if created.InvoiceNumber != fmt.Sprintf("INV-%s-0001", day) {
		t.Fatalf("dry run consumed a sequence number: %s", created.InvoiceNumber)
	}
}

func TestGetInvoice_CrossTenantLooksMissing(t *testing.T) {
	repo := newFakeInvoiceRepo()
	svc := newTestInvoiceService(repo)
	owner := uuid.New()

	inv, err := svc.CreateInvoice(context.Background(), owner, nil, CreateInvoiceRequest{
		Items: []InvoiceItemInput{{ProductName: "Widget", Quantity: "1", UnitPrice: "100"}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice error: %v", err)
	}

	if _, err := svc.GetInvoice(context.Background(), owner, inv.ID); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}

	_, err = svc.GetInvoice(context.Background(), uuid.New(), inv.ID)
	if apperror.KindOf(err) != apperror.KindNotFound {
		t.Fatalf("cross-tenant read expected not found, got %v", err)
	}
}

func TestCreatePaymentIntent_OutstandingBalance(t *testing.T) {
	repo := newFakeInvoiceRepo()
	svc := newTestInvoiceService(repo)
	distributorID := uuid.New()

	inv, err := svc.CreateInvoice(context.Background(), distributorID, nil, CreateInvoiceRequest{
		Items:    []InvoiceItemInput{{ProductName: "Widget", Quantity: "1", UnitPrice: "100"}},
		Payments: []PaymentInput{{Amount: "18"}},
	})
	if err != nil {
		t.Fatalf("CreateInvoice error: %v", err)
	}

	intent, err := svc.CreatePaymentIntent(context.Background(), distributorID, inv.ID)
	if err != nil {
		t.Fatalf("CreatePaymentIntent error: %v", err)
	}
	if intent.Amount != "100.00" {
		t.Fatalf("expected outstanding 100.00, got %s", intent.Amount)
	}

	if _, err := svc.RecordPayment(context.Background(), distributorID, nil, inv.ID, RecordPaymentRequest{Amount: "100"}); err != nil {
		t.Fatalf("RecordPayment error: %v", err)
	}
	_, err = svc.CreatePaymentIntent(context.Background(), distributorID, inv.ID)
	if apperror.KindOf(err) != apperror.KindConflict {
		t.Fatalf("fully paid invoice expected conflict, got %v", err)
	}
}

func TestStatusRank_CancelledOutranksAll(t *testing.T) {
	if statusRank(model.InvoiceCancelled) <= statusRank(model.InvoiceCompleted) {
		t.Fatal("cancelled must outrank completed")
	}
	if statusRank(model.InvoiceDraft) >= statusRank(model.InvoicePartial) {
		t.Fatal("draft must rank below partial")
	}
}
