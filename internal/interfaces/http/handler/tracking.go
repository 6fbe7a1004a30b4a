package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	trackingapp "github.com/cashtrack/backend/internal/application/tracking"
	"github.com/cashtrack/backend/internal/domain/tracking"
)

// TrackingHandler handles payment tracking API endpoints
type TrackingHandler struct {
	BaseHandler
	entryService   *trackingapp.EntryService
	sessionService *trackingapp.EditSessionService
	budgetService  *trackingapp.BudgetService
	syncService    *trackingapp.SyncService
}

// NewTrackingHandler creates a new TrackingHandler
func NewTrackingHandler(
	entryService *trackingapp.EntryService,
	sessionService *trackingapp.EditSessionService,
	budgetService *trackingapp.BudgetService,
	syncService *trackingapp.SyncService,
) *TrackingHandler {
	return &TrackingHandler{
		entryService:   entryService,
		sessionService: sessionService,
		budgetService:  budgetService,
		syncService:    syncService,
	}
}

// RegisterRoutes registers tracking routes on the API group
func (h *TrackingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/tracking")

	group.GET("/entries", h.ListEntries)
	group.GET("/trackers/:id/detail", h.GetTracker)
	group.PUT("/trackers/:id/detail", h.ReplaceLedger)
	group.PUT("/trackers/:id/budget", h.SetBudget)
	group.POST("/trackers/:id/edit-session", h.OpenSession)

	sessions := group.Group("/edit-sessions")
	sessions.POST("/:id/rows", h.AddRow)
	sessions.PUT("/:id/rows/:index", h.EditRow)
	sessions.DELETE("/:id/rows/:index", h.RemoveRow)
	sessions.PUT("/:id/totals", h.SetTotals)
	sessions.POST("/:id/save", h.SaveSession)
	sessions.POST("/:id/discard", h.DiscardSession)
	sessions.POST("/:id/refresh", h.RefreshSession)

	group.GET("/budget/summary", h.BudgetSummary)
	group.POST("/notifications/budget", h.NotifyBudget)

	group.POST("/sync", h.Sync)
	group.POST("/sync/:category", h.SyncCategory)
}

// EntryFilterQuery represents the filter parameters for entry listings
type EntryFilterQuery struct {
	PaymentRequestID string `form:"payment_request_id"`
	ReferenceDoctype string `form:"reference_doctype"`
	ReferenceName    string `form:"reference_name"`
	Supplier         string `form:"supplier"`
	FromDate         string `form:"from_date"`
	ToDate           string `form:"to_date"`
	OnlyFullyPaid    bool   `form:"only_fully_paid"`
	OnlyUnpaid       bool   `form:"only_unpaid"`
}

const filterDateLayout = "2006-01-02"

func (q EntryFilterQuery) toFilter() (tracking.EntryFilter, error) {
	var filter tracking.EntryFilter

	if q.PaymentRequestID != "" {
		filter = filter.WithPaymentRequest(q.PaymentRequestID)
	}
	if q.ReferenceDoctype != "" || q.ReferenceName != "" {
		filter = filter.WithReference(q.ReferenceDoctype, q.ReferenceName)
	}
	if q.Supplier != "" {
		filter = filter.WithSupplier(q.Supplier)
	}

	var from, to *time.Time
	if q.FromDate != "" {
		t, err := time.Parse(filterDateLayout, q.FromDate)
		if err != nil {
			return filter, err
		}
		from = &t
	}
	if q.ToDate != "" {
		t, err := time.Parse(filterDateLayout, q.ToDate)
		if err != nil {
			return filter, err
		}
		to = &t
	}
	if from != nil || to != nil {
		filter = filter.WithDateRange(from, to)
	}

	if q.OnlyFullyPaid {
		filter = filter.WithOnlyFullyPaid(true)
	}
	if q.OnlyUnpaid {
		filter = filter.WithOnlyUnpaid(true)
	}

	return filter, nil
}

// ListEntries returns the denormalized row-sets for one reference category
func (h *TrackingHandler) ListEntries(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		h.BadRequest(c, "category is required")
		return
	}

	var query EntryFilterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := query.toFilter()
	if err != nil {
		h.BadRequest(c, "Invalid date format, expected YYYY-MM-DD")
		return
	}

	result, err := h.entryService.ListEntries(c.Request.Context(), trackingapp.ListEntriesRequest{
		Category: category,
		Filter:   filter,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetTracker returns a tracker with its settlement progress
func (h *TrackingHandler) GetTracker(c *gin.Context) {
	trackerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tracker ID format")
		return
	}

	detail, err := h.syncService.GetTrackerDetail(c.Request.Context(), trackerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, detail)
}

// TrackerTotalsRequest represents a caller-supplied paid/remaining pair
type TrackerTotalsRequest struct {
	TotalAmountPaid      float64 `json:"total_amount_paid"`
	TotalAmountRemaining float64 `json:"total_amount_remaining"`
}

func (r TrackerTotalsRequest) toTotals() tracking.TrackerTotals {
	return tracking.TrackerTotals{
		Paid:      decimal.NewFromFloat(r.TotalAmountPaid),
		Remaining: decimal.NewFromFloat(r.TotalAmountRemaining),
	}
}

// ReplaceLedgerRequest represents a whole-ledger replacement. Totals are
// optional; when absent they are derived from the submitted rows.
type ReplaceLedgerRequest struct {
	Rows   []EditRowRequest      `json:"rows"`
	Totals *TrackerTotalsRequest `json:"totals"`
}

// ReplaceLedger replaces a tracker's ledger rows and totals in one request
func (h *TrackingHandler) ReplaceLedger(c *gin.Context) {
	trackerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tracker ID format")
		return
	}

	var req ReplaceLedgerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	edits := make([]trackingapp.RowEdit, len(req.Rows))
	for i, row := range req.Rows {
		edits[i] = trackingapp.RowEdit{
			TransactionDate: row.TransactionDate,
			PaidAmount:      decimal.NewFromFloat(row.PaidAmount),
		}
	}
	var totals *tracking.TrackerTotals
	if req.Totals != nil {
		t := req.Totals.toTotals()
		totals = &t
	}

	view, err := h.sessionService.ReplaceLedger(c.Request.Context(), trackerID, edits, totals)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, view)
}

// SetBudgetRequest represents a request to assign a budget to a tracker
type SetBudgetRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// SetBudget assigns a budget amount to a tracker
func (h *TrackingHandler) SetBudget(c *gin.Context) {
	trackerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tracker ID format")
		return
	}

	var req SetBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.budgetService.SetTrackerBudget(c.Request.Context(), trackerID, decimal.NewFromFloat(req.Amount)); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// OpenSession starts an edit session on a tracker
func (h *TrackingHandler) OpenSession(c *gin.Context) {
	trackerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tracker ID format")
		return
	}

	view, err := h.sessionService.Open(c.Request.Context(), trackerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, view)
}

// AddRow appends a blank installment row to the session buffer
func (h *TrackingHandler) AddRow(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	view, err := h.sessionService.AddRow(c.Request.Context(), sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, view)
}

// EditRowRequest represents the editable fields of an installment row
type EditRowRequest struct {
	TransactionDate *string `json:"transaction_date"`
	PaidAmount      float64 `json:"paid_amount"`
}

// EditRow replaces the buffered row at the given index
func (h *TrackingHandler) EditRow(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.BadRequest(c, "Invalid row index")
		return
	}

	var req EditRowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	view, err := h.sessionService.EditRow(c.Request.Context(), sessionID, index, trackingapp.RowEdit{
		TransactionDate: req.TransactionDate,
		PaidAmount:      decimal.NewFromFloat(req.PaidAmount),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, view)
}

// RemoveRow removes the buffered row at the given index
func (h *TrackingHandler) RemoveRow(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		h.BadRequest(c, "Invalid row index")
		return
	}

	view, err := h.sessionService.RemoveRow(c.Request.Context(), sessionID, index)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, view)
}

// SetTotals stages the totals pair to persist with the session's save
func (h *TrackingHandler) SetTotals(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	var req TrackerTotalsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	view, err := h.sessionService.SetTotals(c.Request.Context(), sessionID, req.toTotals())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, view)
}

// SaveSession persists the session buffer to the tracker ledger
func (h *TrackingHandler) SaveSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	view, err := h.sessionService.Save(c.Request.Context(), sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, view)
}

// DiscardSession abandons the session buffer
func (h *TrackingHandler) DiscardSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	h.sessionService.Discard(c.Request.Context(), sessionID)
	h.NoContent(c)
}

// RefreshSession reloads the session buffer from the current ledger
func (h *TrackingHandler) RefreshSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid session ID format")
		return
	}

	view, err := h.sessionService.Refresh(c.Request.Context(), sessionID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, view)
}

// BudgetSummary folds the visible entries' budgets against a target
func (h *TrackingHandler) BudgetSummary(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		h.BadRequest(c, "category is required")
		return
	}

	target, err := decimal.NewFromString(c.DefaultQuery("target", "0"))
	if err != nil {
		h.BadRequest(c, "Invalid target amount")
		return
	}

	var query EntryFilterQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter, err := query.toFilter()
	if err != nil {
		h.BadRequest(c, "Invalid date format, expected YYYY-MM-DD")
		return
	}

	summary, err := h.budgetService.Summarize(c.Request.Context(), trackingapp.BudgetSummaryRequest{
		Category: category,
		Filter:   filter,
		Target:   target,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// NotifyBudgetRequest represents a request to notify stakeholders of the
// budget position
type NotifyBudgetRequest struct {
	Category   string   `json:"category" binding:"required"`
	Target     float64  `json:"target"`
	Recipients []string `json:"recipients" binding:"required,min=1"`
}

// NotifyBudget triggers a stakeholder notification, deduplicated per
// category per day
func (h *TrackingHandler) NotifyBudget(c *gin.Context) {
	var req NotifyBudgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.budgetService.NotifyStakeholders(c.Request.Context(), trackingapp.NotifyRequest{
		Category:   req.Category,
		Target:     decimal.NewFromFloat(req.Target),
		Recipients: req.Recipients,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Sync reconciles trackers for all reference categories
func (h *TrackingHandler) Sync(c *gin.Context) {
	result, err := h.syncService.SyncAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// SyncCategory reconciles trackers for one reference category
func (h *TrackingHandler) SyncCategory(c *gin.Context) {
	category, err := tracking.ParseCategory(c.Param("category"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	result, err := h.syncService.SyncCategory(c.Request.Context(), category)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
