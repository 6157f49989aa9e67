package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/haifischbank/haifischbank-server/internal/domain/customer"
	"github.com/haifischbank/haifischbank-server/internal/service"
)

type CustomerHandler struct {
	customerService service.CustomerService
}

func NewCustomerHandler(customerService service.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		customerService: customerService,
	}
}

// Register godoc
// @Summary Register new customer
// @Tags auth
// @Accept json
// @Produce json
// @Param request body customer.RegisterRequest true "Customer details"
// @Success 201 {object} customer.Customer
// @Failure 400 {object} map[string]string
// @Router /api/v1/auth/register [post]
func (h *CustomerHandler) Register(c *gin.Context) {
	var req customer.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.customerService.Register(req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Login godoc
// @Summary Authenticate and issue a token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body customer.LoginRequest true "Credentials"
// @Success 200 {object} customer.LoginResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/login [post]
func (h *CustomerHandler) Login(c *gin.Context) {
	var req customer.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.customerService.Login(req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me godoc
// @Summary Get the authenticated customer's profile
// @Tags customers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} customer.Customer
// @Failure 401 {object} map[string]string
// @Router /api/v1/customers/me [get]
func (h *CustomerHandler) Me(c *gin.Context) {
	customerID, exists := c.Get("customer_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	profile, err := h.customerService.GetProfile(customerID.(string))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
