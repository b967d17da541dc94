package handler

import (
	"net/http"

	"backoffice/internal/metrics"
	"backoffice/internal/middleware"
	"backoffice/internal/service"
	"backoffice/pkg/pagination"
	"backoffice/pkg/response"

	"github.com/gin-gonic/gin"
)

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	{
		invoices.POST("", middleware.Require("invoice.create"), h.CreateInvoice)
		invoices.POST("/validate", middleware.Require("invoice.create"), h.ValidateInvoice)
		invoices.GET("", middleware.Require("invoice.view"), h.ListInvoices)
		invoices.GET("/stats", middleware.Require("invoice.view"), h.Stats)
		invoices.GET("/:id", middleware.Require("invoice.view"), h.GetInvoice)
		invoices.POST("/:id/payments", middleware.Require("invoice.edit"), h.RecordPayment)
		invoices.POST("/:id/payment-intent", middleware.Require("invoice.edit"), h.CreatePaymentIntent)
		invoices.POST("/:id/cancel", middleware.RequireFresh("invoice.cancel"), h.CancelInvoice)
		invoices.POST("/:id/email", middleware.Require("invoice.email"), h.EmailInvoice)
	}
}

// CreateInvoice creates an invoice with computed totals
// @Summary      Create invoice
// @Description  Creates an invoice and its line items atomically, with totals and a generated number
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), distributorID, actorID(c), req)
	if err != nil {
		fail(c, err)
		return
	}

	metrics.InvoiceCreated()
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ValidateInvoice dry-runs the total computation
// @Summary      Validate invoice
// @Description  Computes totals for the submitted lines without persisting anything
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Invoice Payload"
// @Success      200      {object}  response.Response{data=service.InvoiceTotals}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices/validate [post]
func (h *InvoiceHandler) ValidateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	totals, err := h.invoiceService.ValidateInvoice(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, totals))
}

// ListInvoices returns a paginated, filterable invoice list
// @Summary      List invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status       query     string  false  "Filter by status (draft, partial, completed, cancelled)"
// @Param        invoice_type query     string  false  "Filter by type (sale, return)"
// @Param        customer_id  query     string  false  "Filter by customer reference"
// @Param        search       query     string  false  "Search by invoice number or customer"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Success      200          {object}  response.Response{data=object}
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	p := pagination.Parse(c)

	filter := service.InvoiceFilter{
		Status:      c.Query("status"),
		InvoiceType: c.Query("invoice_type"),
		CustomerID:  c.Query("customer_id"),
		Search:      c.Query("search"),
		Page:        p.Page,
		Limit:       p.Limit,
	}

	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), distributorID, filter)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{
		"invoices": invoices,
		"meta":     pagination.NewMeta(p, total),
	}))
}

// Stats aggregates the tenant's invoices by status
// @Summary      Invoice statistics
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.InvoiceStatsResponse}
// @Router       /api/invoices/stats [get]
func (h *InvoiceHandler) Stats(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	stats, err := h.invoiceService.Stats(c.Request.Context(), distributorID)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// GetInvoice returns one invoice with items and payments
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), distributorID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// RecordPayment appends a payment and advances the status
// @Summary      Record payment
// @Description  Adds a payment to an invoice; rejected with 409 on cancelled invoices
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Invoice ID"
// @Param        payload  body      service.RecordPaymentRequest  true  "Payment Payload"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id}/payments [post]
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	invoice, err := h.invoiceService.RecordPayment(c.Request.Context(), distributorID, actorID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// CreatePaymentIntent asks the payment provider to charge the balance
// @Summary      Create payment intent
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.PaymentIntentResponse}
// @Failure      409  {object}  response.Response
// @Router       /api/invoices/{id}/payment-intent [post]
func (h *InvoiceHandler) CreatePaymentIntent(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	intent, err := h.invoiceService.CreatePaymentIntent(c.Request.Context(), distributorID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, intent))
}

// CancelInvoice terminally cancels an invoice
// @Summary      Cancel invoice
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true   "Invoice ID"
// @Param        payload  body      service.CancelInvoiceRequest  false  "Cancellation Payload"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/invoices/{id}/cancel [post]
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	var req service.CancelInvoiceRequest
	_ = c.ShouldBindJSON(&req)

	invoice, err := h.invoiceService.CancelInvoice(c.Request.Context(), distributorID, actorID(c), c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// EmailInvoice sends the invoice to a customer address
// @Summary      Email invoice
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response
// @Router       /api/invoices/{id}/email [post]
func (h *InvoiceHandler) EmailInvoice(c *gin.Context) {
	distributorID, ok := tenantScope(c)
	if !ok {
		return
	}

	var body struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	if err := h.invoiceService.EmailInvoice(c.Request.Context(), distributorID, c.Param("id"), body.Email); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "invoice sent"}))
}
