package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/haifischbank/haifischbank-server/internal/api/handlers"
	"github.com/haifischbank/haifischbank-server/internal/api/middleware"
	"github.com/haifischbank/haifischbank-server/internal/pkg/jwt"
	"github.com/haifischbank/haifischbank-server/internal/pkg/ratelimit"
	"github.com/haifischbank/haifischbank-server/internal/service"
)

type RouterConfig struct {
	CustomerService  service.CustomerService
	AccountService   service.AccountService
	CreditService    service.CreditService
	LedgerService    service.LedgerService
	SchedulerService service.SchedulerService
	EventService     service.EventService
	JWTService       *jwt.JWTService
	RateLimiter      *ratelimit.RateLimiter
}

// NewRouter wires every endpoint with its middleware chain.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.MetricsMiddleware())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	if cfg.RateLimiter != nil {
		router.Use(middleware.RateLimitMiddleware(cfg.RateLimiter))
	}

	customerHandler := handlers.NewCustomerHandler(cfg.CustomerService)
	accountHandler := handlers.NewAccountHandler(cfg.AccountService, cfg.SchedulerService)
	creditHandler := handlers.NewCreditHandler(cfg.CreditService, cfg.AccountService, cfg.SchedulerService)
	systemHandler := handlers.NewSystemHandler(cfg.SchedulerService, cfg.LedgerService, cfg.EventService)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().Unix()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", customerHandler.Register)
		auth.POST("/login", customerHandler.Login)
	}

	v1.GET("/system/clock", systemHandler.GetClock)

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(cfg.JWTService))
	{
		protected.GET("/customers/me", customerHandler.Me)

		protected.POST("/accounts", accountHandler.OpenAccount)
		protected.GET("/accounts/:id", accountHandler.GetAccount)
		protected.GET("/accounts/:id/balance", accountHandler.GetBalance)
		protected.GET("/accounts/:id/history", accountHandler.History)
		protected.POST("/accounts/:id/deposit", accountHandler.Deposit)
		protected.POST("/accounts/:id/transfer", accountHandler.TransferOut)
		protected.POST("/accounts/:id/close", accountHandler.CloseAccount)

		protected.POST("/accounts/:id/credit", creditHandler.RequestCredit)
		protected.GET("/accounts/:id/credit", creditHandler.GetCredit)
		protected.POST("/accounts/:id/credit/repay", creditHandler.Repay)

		protected.POST("/system/clock", systemHandler.AdvanceClock)
		protected.GET("/system/ledger", systemHandler.GetLedger)
		protected.GET("/system/ledger/validate", systemHandler.ValidateLedger)
		protected.POST("/events", systemHandler.ProcessEvents)
	}

	return router
}
