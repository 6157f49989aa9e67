package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haifischbank/haifischbank-server/internal/domain/account"
	"github.com/haifischbank/haifischbank-server/internal/service"
)

type CreditHandler struct {
	creditService    service.CreditService
	accountService   service.AccountService
	schedulerService service.SchedulerService
}

func NewCreditHandler(creditService service.CreditService, accountService service.AccountService, schedulerService service.SchedulerService) *CreditHandler {
	return &CreditHandler{
		creditService:    creditService,
		accountService:   accountService,
		schedulerService: schedulerService,
	}
}

// RequestCredit godoc
// @Summary Request a fixed-rate installment loan
// @Tags credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Checking account ID"
// @Param request body account.CreditRequest true "Credit details"
// @Success 200 {object} transaction.Record
// @Failure 400 {object} map[string]string
// @Router /api/v1/accounts/{id}/credit [post]
func (h *CreditHandler) RequestCredit(c *gin.Context) {
	var req account.CreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	now, err := h.schedulerService.CurrentDate()
	if err != nil {
		respondError(c, err)
		return
	}

	rec, err := h.creditService.RequestCredit(c.Param("id"), amount, now)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Repay godoc
// @Summary Repay outstanding credit principal ahead of schedule
// @Tags credits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Checking account ID"
// @Param request body account.AmountRequest true "Repayment amount"
// @Success 200 {object} transaction.Record
// @Failure 400 {object} map[string]string
// @Router /api/v1/accounts/{id}/credit/repay [post]
func (h *CreditHandler) Repay(c *gin.Context) {
	var req account.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	now, err := h.schedulerService.CurrentDate()
	if err != nil {
		respondError(c, err)
		return
	}

	rec, err := h.creditService.ManualRepayment(c.Param("id"), amount, now)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// GetCredit godoc
// @Summary Get the credit account paired with a checking account
// @Tags credits
// @Produce json
// @Security BearerAuth
// @Param id path string true "Checking account ID"
// @Success 200 {object} account.CreditAccount
// @Failure 404 {object} map[string]string
// @Router /api/v1/accounts/{id}/credit [get]
func (h *CreditHandler) GetCredit(c *gin.Context) {
	credit, err := h.accountService.GetCredit(account.CreditPrefix + c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, credit)
}
