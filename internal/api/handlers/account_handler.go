package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/haifischbank/haifischbank-server/internal/domain/account"
	"github.com/haifischbank/haifischbank-server/internal/domain/bankerr"
	"github.com/haifischbank/haifischbank-server/internal/service"
)

type AccountHandler struct {
	accountService   service.AccountService
	schedulerService service.SchedulerService
}

func NewAccountHandler(accountService service.AccountService, schedulerService service.SchedulerService) *AccountHandler {
	return &AccountHandler{
		accountService:   accountService,
		schedulerService: schedulerService,
	}
}

// parseAmount turns a request amount string into a positive decimal.
func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid amount %q: %w", raw, bankerr.ErrMalformedInput)
	}
	if !amount.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("amount must be positive: %w", bankerr.ErrMalformedInput)
	}
	return amount, nil
}

// OpenAccount godoc
// @Summary Open a checking account with its paired credit account
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 201 {object} account.OpenAccountResponse
// @Failure 409 {object} map[string]string
// @Router /api/v1/accounts [post]
func (h *AccountHandler) OpenAccount(c *gin.Context) {
	customerID, exists := c.Get("customer_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	now, err := h.schedulerService.CurrentDate()
	if err != nil {
		respondError(c, err)
		return
	}

	checking, credit, err := h.accountService.OpenAccount(customerID.(string), now)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, account.OpenAccountResponse{
		Checking: checking,
		Credit:   credit,
	})
}

// GetAccount godoc
// @Summary Get checking account details
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} account.CheckingAccount
// @Failure 404 {object} map[string]string
// @Router /api/v1/accounts/{id} [get]
func (h *AccountHandler) GetAccount(c *gin.Context) {
	acc, err := h.accountService.GetChecking(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

// GetBalance godoc
// @Summary Get checking account balance as of the simulated date
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} account.BalanceResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/accounts/{id}/balance [get]
func (h *AccountHandler) GetBalance(c *gin.Context) {
	acc, err := h.accountService.GetChecking(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	now, err := h.schedulerService.CurrentDate()
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, account.BalanceResponse{
		AccountID: acc.ID,
		Balance:   acc.Balance,
		Status:    acc.Status,
		AsOfDate:  now,
	})
}

// Deposit godoc
// @Summary Deposit funds (incoming transfer)
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param request body account.DepositRequest true "Deposit details"
// @Success 200 {object} transaction.Record
// @Failure 400 {object} map[string]string
// @Router /api/v1/accounts/{id}/deposit [post]
func (h *AccountHandler) Deposit(c *gin.Context) {
	var req account.DepositRequest
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

	rec, err := h.accountService.Deposit(c.Param("id"), req.FromIBAN, amount, now)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// TransferOut godoc
// @Summary Transfer funds to an external IBAN
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param request body account.TransferOutRequest true "Transfer details"
// @Success 200 {object} transaction.Record
// @Failure 400 {object} map[string]string
// @Router /api/v1/accounts/{id}/transfer [post]
func (h *AccountHandler) TransferOut(c *gin.Context) {
	var req account.TransferOutRequest
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

	rec, err := h.accountService.TransferOut(c.Param("id"), req.ToIBAN, amount, now)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CloseAccount godoc
// @Summary Close a checking account
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} transaction.Record
// @Failure 404 {object} map[string]string
// @Router /api/v1/accounts/{id}/close [post]
func (h *AccountHandler) CloseAccount(c *gin.Context) {
	now, err := h.schedulerService.CurrentDate()
	if err != nil {
		respondError(c, err)
		return
	}

	rec, err := h.accountService.CloseAccount(c.Param("id"), now)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// History godoc
// @Summary Get transaction history for an account
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} transaction.HistoryResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/accounts/{id}/history [get]
func (h *AccountHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	history, err := h.accountService.History(c.Param("id"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}
