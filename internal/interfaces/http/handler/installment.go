package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	installmentapp "github.com/goldbooks/backend/internal/application/installment"
	"github.com/goldbooks/backend/internal/domain/installment"
	"github.com/goldbooks/backend/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InstallmentHandler exposes the installment engine over HTTP
type InstallmentHandler struct {
	BaseHandler
	plans      *installmentapp.PlanService
	payments   *installmentapp.PaymentService
	bulk       *installmentapp.BulkPaymentService
	balances   *installmentapp.BalanceService
	statistics *installmentapp.StatisticsService
	overdue    *installmentapp.OverdueService
	repo       installment.Repository
}

// NewInstallmentHandler creates a new InstallmentHandler
func NewInstallmentHandler(
	plans *installmentapp.PlanService,
	payments *installmentapp.PaymentService,
	bulk *installmentapp.BulkPaymentService,
	balances *installmentapp.BalanceService,
	statistics *installmentapp.StatisticsService,
	overdue *installmentapp.OverdueService,
	repo installment.Repository,
) *InstallmentHandler {
	return &InstallmentHandler{
		plans:      plans,
		payments:   payments,
		bulk:       bulk,
		balances:   balances,
		statistics: statistics,
		overdue:    overdue,
		repo:       repo,
	}
}

// RegisterRoutes registers all installment routes on the API group
func (h *InstallmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	invoices := rg.Group("/invoices")
	{
		invoices.POST("/:invoice_id/installment-plan", h.CreatePlan)
		invoices.DELETE("/:invoice_id/installment-plan", h.CancelPlan)
		invoices.GET("/:invoice_id/installments", h.ListByInvoice)
		invoices.GET("/:invoice_id/balance", h.GetBalance)
		invoices.GET("/:invoice_id/payment-history", h.GetPaymentHistory)
	}

	installments := rg.Group("/installments")
	{
		installments.GET("", h.List)
		installments.POST("/:id/payments", h.RecordPayment)
		installments.POST("/payments/bulk", h.RecordBulkPayments)
	}

	statistics := rg.Group("/statistics")
	{
		statistics.GET("/installments", h.GetStatistics)
		statistics.GET("/installments/aging", h.GetAgingReport)
	}

	rg.POST("/admin/installments/sweep-overdue", h.SweepOverdue)
}

// CreatePlanRequest is the payload for generating an installment plan.
// SplitPlaces overrides the share precision; zero is for currencies without
// subunits, absent means the kind default.
type CreatePlanRequest struct {
	Total        string `json:"total" binding:"omitempty,decimal"`
	Count        int    `json:"count" binding:"required,min=1,max=120"`
	StartDate    string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	IntervalDays int    `json:"interval_days" binding:"required,min=1,max=366"`
	InterestRate string `json:"interest_rate" binding:"omitempty,decimal"`
	SplitPlaces  *int32 `json:"split_places" binding:"omitempty,min=0,max=6"`
}

// CancelPlanRequest is the payload for cancelling an invoice's plan
type CancelPlanRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
	Force  bool   `json:"force"`
}

// RecordPaymentRequest is the payload for one payment
type RecordPaymentRequest struct {
	Amount    string `json:"amount" binding:"required,decimal"`
	Method    string `json:"method" binding:"omitempty,oneof=CASH TRANSFER CARD OTHER"`
	Reference string `json:"reference" binding:"omitempty,max=100"`
	Notes     string `json:"notes" binding:"omitempty,max=500"`
}

// BulkPaymentRequest is the payload for a batch of payments
type BulkPaymentRequest struct {
	Items []BulkPaymentItemRequest `json:"items" binding:"required,min=1,max=100,dive"`
}

// BulkPaymentItemRequest is one item of a bulk payment
type BulkPaymentItemRequest struct {
	InstallmentID string `json:"installment_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required,decimal"`
	Method        string `json:"method" binding:"omitempty,oneof=CASH TRANSFER CARD OTHER"`
	Reference     string `json:"reference" binding:"omitempty,max=100"`
	Notes         string `json:"notes" binding:"omitempty,max=500"`
}

// InstallmentResponse is the transport view of an installment
type InstallmentResponse struct {
	ID                uuid.UUID                  `json:"id"`
	InvoiceID         uuid.UUID                  `json:"invoice_id"`
	InstallmentNumber int                        `json:"installment_number"`
	Kind              installment.Kind           `json:"kind"`
	AmountDue         decimal.Decimal            `json:"amount_due"`
	AmountPaid        decimal.Decimal            `json:"amount_paid"`
	Remaining         decimal.Decimal            `json:"remaining"`
	DueDate           time.Time                  `json:"due_date"`
	Status            installment.Status         `json:"status"`
	DaysOverdue       int                        `json:"days_overdue"`
	Payments          installment.PaymentRecords `json:"payments,omitempty"`
	PaidAt            *time.Time                 `json:"paid_at,omitempty"`
	CancelledAt       *time.Time                 `json:"cancelled_at,omitempty"`
	CancelReason      string                     `json:"cancel_reason,omitempty"`
	Version           int                        `json:"version"`
	CreatedAt         time.Time                  `json:"created_at"`
	UpdatedAt         time.Time                  `json:"updated_at"`
}

func toInstallmentResponse(inst *installment.Installment, withPayments bool) InstallmentResponse {
	resp := InstallmentResponse{
		ID:                inst.ID,
		InvoiceID:         inst.InvoiceID,
		InstallmentNumber: inst.InstallmentNumber,
		Kind:              inst.Kind,
		AmountDue:         inst.AmountDue,
		AmountPaid:        inst.AmountPaid,
		Remaining:         inst.Remaining(),
		DueDate:           inst.DueDate,
		Status:            inst.Status,
		DaysOverdue:       inst.DaysOverdueAt(time.Now()),
		PaidAt:            inst.PaidAt,
		CancelledAt:       inst.CancelledAt,
		CancelReason:      inst.CancelReason,
		Version:           inst.Version,
		CreatedAt:         inst.CreatedAt,
		UpdatedAt:         inst.UpdatedAt,
	}
	if withPayments {
		resp.Payments = inst.Payments
	}
	return resp
}

// CreatePlan handles POST /invoices/:invoice_id/installment-plan
func (h *InstallmentHandler) CreatePlan(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("invoice_id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	serviceReq := installmentapp.CreatePlanRequest{
		TenantID:     getTenantID(c),
		InvoiceID:    invoiceID,
		Count:        req.Count,
		IntervalDays: req.IntervalDays,
		Places:       req.SplitPlaces,
		CreatedBy:    getActorID(c),
	}
	if req.Total != "" {
		total, err := decimal.NewFromString(req.Total)
		if err != nil {
			h.BadRequest(c, "Invalid total amount")
			return
		}
		serviceReq.Total = total
	}
	if req.StartDate != "" {
		start, err := time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			h.BadRequest(c, "Invalid start date")
			return
		}
		serviceReq.StartDate = start
	}
	if req.InterestRate != "" {
		rate, err := decimal.NewFromString(req.InterestRate)
		if err != nil {
			h.BadRequest(c, "Invalid interest rate")
			return
		}
		serviceReq.InterestRate = &rate
	}

	plan, err := h.plans.CreatePlan(c.Request.Context(), serviceReq)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	out := make([]InstallmentResponse, len(plan))
	for i, inst := range plan {
		out[i] = toInstallmentResponse(inst, false)
	}
	h.Created(c, out)
}

// CancelPlan handles DELETE /invoices/:invoice_id/installment-plan
func (h *InstallmentHandler) CancelPlan(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("invoice_id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	var req CancelPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.plans.CancelPlan(c.Request.Context(), installmentapp.CancelPlanRequest{
		TenantID:  getTenantID(c),
		InvoiceID: invoiceID,
		Reason:    req.Reason,
		Force:     req.Force,
	})
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, result)
}

// ListByInvoice handles GET /invoices/:invoice_id/installments
func (h *InstallmentHandler) ListByInvoice(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("invoice_id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	installments, err := h.repo.FindByInvoice(c.Request.Context(), getTenantID(c), invoiceID)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	out := make([]InstallmentResponse, len(installments))
	for i := range installments {
		out[i] = toInstallmentResponse(&installments[i], true)
	}
	h.Success(c, out)
}

// List handles GET /installments with filtering and pagination
func (h *InstallmentHandler) List(c *gin.Context) {
	var listReq dto.ListRequest
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	listReq.Normalize()

	filter := installment.Filter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
		OrderBy:  listReq.OrderBy,
		OrderDir: listReq.OrderDir,
	}
	if raw := c.Query("status"); raw != "" {
		status := installment.Status(raw)
		if !status.IsValid() {
			h.BadRequest(c, "Invalid status filter")
			return
		}
		filter.Status = &status
	}
	if raw := c.Query("kind"); raw != "" {
		kind := installment.Kind(raw)
		if !kind.IsValid() {
			h.BadRequest(c, "Invalid kind filter")
			return
		}
		filter.Kind = &kind
	}
	if raw := c.Query("overdue"); raw == "true" {
		overdue := true
		filter.Overdue = &overdue
	}
	if raw := c.Query("invoice_id"); raw != "" {
		invoiceID, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid invoice ID filter")
			return
		}
		filter.InvoiceID = &invoiceID
	}
	if raw := c.Query("due_from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.BadRequest(c, "Invalid due_from date")
			return
		}
		filter.DueFrom = &from
	}
	if raw := c.Query("due_to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			h.BadRequest(c, "Invalid due_to date")
			return
		}
		filter.DueTo = &to
	}

	tenantID := getTenantID(c)
	ctx := c.Request.Context()

	installments, err := h.repo.FindAllForTenant(ctx, tenantID, filter)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	total, err := h.repo.CountForTenant(ctx, tenantID, filter)
	if err != nil {
		h.DomainError(c, err)
		return
	}

	out := make([]InstallmentResponse, len(installments))
	for i := range installments {
		out[i] = toInstallmentResponse(&installments[i], false)
	}
	h.SuccessWithMeta(c, out, total, listReq.Page, listReq.PageSize)
}

// RecordPayment handles POST /installments/:id/payments
func (h *InstallmentHandler) RecordPayment(c *gin.Context) {
	installmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid installment ID")
		return
	}

	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.BadRequest(c, "Invalid payment amount")
		return
	}

	result, err := h.payments.RecordPayment(c.Request.Context(), installmentapp.RecordPaymentRequest{
		TenantID:      getTenantID(c),
		InstallmentID: installmentID,
		Amount:        amount,
		Method:        installment.PaymentMethod(req.Method),
		Reference:     req.Reference,
		Notes:         req.Notes,
		RecordedBy:    getActorID(c),
	})
	if err != nil {
		h.DomainError(c, err)
		return
	}

	h.Success(c, gin.H{
		"installment": toInstallmentResponse(result.Installment, true),
		"payment":     result.Payment,
		"balance":     result.Balance,
	})
}

// RecordBulkPayments handles POST /installments/payments/bulk
func (h *InstallmentHandler) RecordBulkPayments(c *gin.Context) {
	var req BulkPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	items := make([]installmentapp.BulkPaymentItem, len(req.Items))
	for i, item := range req.Items {
		id, err := uuid.Parse(item.InstallmentID)
		if err != nil {
			h.BadRequest(c, "Invalid installment ID in batch")
			return
		}
		amount, err := decimal.NewFromString(item.Amount)
		if err != nil {
			h.BadRequest(c, "Invalid amount in batch")
			return
		}
		items[i] = installmentapp.BulkPaymentItem{
			InstallmentID: id,
			Amount:        amount,
			Method:        installment.PaymentMethod(item.Method),
			Reference:     item.Reference,
			Notes:         item.Notes,
		}
	}

	result, err := h.bulk.ProcessBulk(c.Request.Context(), installmentapp.BulkPaymentRequest{
		TenantID:   getTenantID(c),
		RecordedBy: getActorID(c),
		Items:      items,
	})
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, result)
}

// GetBalance handles GET /invoices/:invoice_id/balance
func (h *InstallmentHandler) GetBalance(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("invoice_id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	balance, err := h.balances.GetOutstandingBalance(c.Request.Context(), getTenantID(c), invoiceID)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, balance)
}

// GetPaymentHistory handles GET /invoices/:invoice_id/payment-history
func (h *InstallmentHandler) GetPaymentHistory(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("invoice_id"))
	if err != nil {
		h.BadRequest(c, "Invalid invoice ID")
		return
	}

	history, err := h.balances.GetPaymentHistory(c.Request.Context(), getTenantID(c), invoiceID)
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, history)
}

// GetStatistics handles GET /statistics/installments
func (h *InstallmentHandler) GetStatistics(c *gin.Context) {
	stats, err := h.statistics.GetPortfolioStatistics(c.Request.Context(), getTenantID(c))
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, stats)
}

// GetAgingReport handles GET /statistics/installments/aging
func (h *InstallmentHandler) GetAgingReport(c *gin.Context) {
	report, err := h.statistics.GetAgingReport(c.Request.Context(), getTenantID(c))
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, report)
}

// SweepOverdue handles POST /admin/installments/sweep-overdue, a manual
// trigger for the same sweep the scheduler runs.
func (h *InstallmentHandler) SweepOverdue(c *gin.Context) {
	changed, err := h.overdue.Sweep(c.Request.Context(), time.Now())
	if err != nil {
		h.DomainError(c, err)
		return
	}
	h.Success(c, gin.H{"marked_overdue": changed})
}
