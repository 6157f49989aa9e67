package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/haifischbank/haifischbank-server/internal/api"
	"github.com/haifischbank/haifischbank-server/internal/config"
	"github.com/haifischbank/haifischbank-server/internal/pkg/jwt"
	"github.com/haifischbank/haifischbank-server/internal/pkg/logger"
	"github.com/haifischbank/haifischbank-server/internal/pkg/ratelimit"
	"github.com/haifischbank/haifischbank-server/internal/repository"
	"github.com/haifischbank/haifischbank-server/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using system environment")
	}
	defer logger.Sync()

	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		os.Exit(1)
	}

	if os.Getenv("ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to open database", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to reach database", zap.Error(err))
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	accountRepo := repository.NewAccountRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	clockRepo := repository.NewClockRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	ids := repository.NewIDGenerator()

	jwtSvc := jwt.NewJWTService(cfg.JWTSecret, cfg.JWTExpiryHours)
	limiter := ratelimit.NewRateLimiter(redisClient)

	ledgerSvc := service.NewLedgerService(ledgerRepo, accountRepo)
	accountSvc := service.NewAccountService(accountRepo, txRepo, ledgerSvc, ids, cfg.Bank)
	creditSvc := service.NewCreditService(accountRepo, txRepo, ledgerSvc, ids, cfg.Bank)
	schedulerSvc := service.NewSchedulerService(clockRepo, accountSvc, creditSvc)
	eventSvc := service.NewEventService(accountSvc, creditSvc, schedulerSvc)
	customerSvc := service.NewCustomerService(customerRepo, jwtSvc, ids)

	router := api.NewRouter(api.RouterConfig{
		CustomerService:  customerSvc,
		AccountService:   accountSvc,
		CreditService:    creditSvc,
		LedgerService:    ledgerSvc,
		SchedulerService: schedulerSvc,
		EventService:     eventSvc,
		JWTService:       jwtSvc,
		RateLimiter:      limiter,
	})

	// Autopilot moves the simulated clock one day forward every real
	// midnight, so the batch passes run without external time events.
	var autopilot *cron.Cron
	if cfg.SimAutopilot {
		autopilot = cron.New()
		_, err := autopilot.AddFunc("@daily", func() {
			current, err := schedulerSvc.CurrentDate()
			if err != nil {
				logger.Error("autopilot: failed to read clock", zap.Error(err))
				return
			}
			if _, err := schedulerSvc.AdvanceClock(current.AddDate(0, 0, 1)); err != nil {
				logger.Error("autopilot: clock advance failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Error("autopilot: failed to schedule", zap.Error(err))
			os.Exit(1)
		}
		autopilot.Start()
		logger.Info("autopilot enabled")
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", zap.Error(err))
			os.Exit(1)
		}
	}()
	logger.Info("server started", zap.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	if autopilot != nil {
		autopilot.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
	logger.Info("server exited")
}
