package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/haifischbank/haifischbank-server/internal/domain/bankerr"
	"github.com/haifischbank/haifischbank-server/internal/domain/transaction"
	"github.com/haifischbank/haifischbank-server/internal/service"
)

type SystemHandler struct {
	schedulerService service.SchedulerService
	ledgerService    service.LedgerService
	eventService     service.EventService
}

func NewSystemHandler(schedulerService service.SchedulerService, ledgerService service.LedgerService, eventService service.EventService) *SystemHandler {
	return &SystemHandler{
		schedulerService: schedulerService,
		ledgerService:    ledgerService,
		eventService:     eventService,
	}
}

type advanceClockRequest struct {
	Date string `json:"date" binding:"required"`
}

type eventBatchRequest struct {
	Events []transaction.EventRecord `json:"events" binding:"required"`
}

// GetClock godoc
// @Summary Get the current simulated date
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/v1/system/clock [get]
func (h *SystemHandler) GetClock(c *gin.Context) {
	current, err := h.schedulerService.CurrentDate()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"current_date": current.Format("2006-01-02")})
}

// AdvanceClock godoc
// @Summary Advance the simulated date and run due batch passes
// @Tags system
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body advanceClockRequest true "New date (YYYY-MM-DD)"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /api/v1/system/clock [post]
func (h *SystemHandler) AdvanceClock(c *gin.Context) {
	var req advanceClockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	newDate, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		respondError(c, fmt.Errorf("invalid date %q: %w", req.Date, bankerr.ErrMalformedInput))
		return
	}

	advanced, err := h.schedulerService.AdvanceClock(newDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"current_date": advanced.Format("2006-01-02")})
}

// GetLedger godoc
// @Summary Get the ledger bucket balances
// @Tags system
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ledger.Ledger
// @Router /api/v1/system/ledger [get]
func (h *SystemHandler) GetLedger(c *gin.Context) {
	l, err := h.ledgerService.Get()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

// ValidateLedger godoc
// @Summary Recompute the ledger consistency invariants
// @Tags system
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ledger.ValidationReport
// @Router /api/v1/system/ledger/validate [get]
func (h *SystemHandler) ValidateLedger(c *gin.Context) {
	report, err := h.ledgerService.Validate()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ProcessEvents godoc
// @Summary Process a batch of business events in order
// @Tags system
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body eventBatchRequest true "Events"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/events [post]
func (h *SystemHandler) ProcessEvents(c *gin.Context) {
	var req eventBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, failed := h.eventService.ProcessBatch(req.Events)
	c.JSON(http.StatusOK, gin.H{
		"processed": len(records),
		"failed":    failed,
		"records":   records,
	})
}
