package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// Config holds server and bank configuration loaded from the environment.
type Config struct {
	Port           string
	DatabaseURL    string
	RedisAddr      string
	JWTSecret      string
	JWTExpiryHours int
	SimAutopilot   bool

	Bank Bank
}

// Bank carries the financial constants of the simulation. Defaults match
// the product sheet: CHF accounts, 100.00 annual fee collected quarterly,
// fixed-rate 12-month installment credits between 1000 and 15000.
type Bank struct {
	QuarterlyFee      decimal.Decimal
	CreditFee         decimal.Decimal
	MinCredit         decimal.Decimal
	MaxCredit         decimal.Decimal
	CreditRatePA      decimal.Decimal
	PenaltyRatePA     decimal.Decimal
	CreditTermMonths  int
	MaxMissedPayments int
}

// New loads configuration from environment variables.
func New() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTExpiryHours: getEnvInt("JWT_EXPIRY_HOURS", 24),
		SimAutopilot:   getEnv("SIM_AUTOPILOT", "false") == "true",
	}

	bank, err := loadBank()
	if err != nil {
		return nil, err
	}
	cfg.Bank = *bank

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// DefaultBank returns the bank constants with their built-in defaults,
// bypassing the environment. Used by tests.
func DefaultBank() Bank {
	return Bank{
		QuarterlyFee:      decimal.RequireFromString("25.00"),
		CreditFee:         decimal.RequireFromString("250.00"),
		MinCredit:         decimal.RequireFromString("1000.00"),
		MaxCredit:         decimal.RequireFromString("15000.00"),
		CreditRatePA:      decimal.RequireFromString("0.15"),
		PenaltyRatePA:     decimal.RequireFromString("0.30"),
		CreditTermMonths:  12,
		MaxMissedPayments: 3,
	}
}

func loadBank() (*Bank, error) {
	b := DefaultBank()

	fields := []struct {
		env string
		dst *decimal.Decimal
	}{
		{"BANK_QUARTERLY_FEE", &b.QuarterlyFee},
		{"BANK_CREDIT_FEE", &b.CreditFee},
		{"BANK_MIN_CREDIT", &b.MinCredit},
		{"BANK_MAX_CREDIT", &b.MaxCredit},
		{"BANK_CREDIT_RATE_PA", &b.CreditRatePA},
		{"BANK_PENALTY_RATE_PA", &b.PenaltyRatePA},
	}
	for _, f := range fields {
		raw, ok := os.LookupEnv(f.env)
		if !ok {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", f.env, raw, err)
		}
		*f.dst = d
	}

	b.CreditTermMonths = getEnvInt("BANK_CREDIT_TERM_MONTHS", b.CreditTermMonths)
	b.MaxMissedPayments = getEnvInt("BANK_MAX_MISSED_PAYMENTS", b.MaxMissedPayments)
	if b.CreditTermMonths < 1 {
		return nil, fmt.Errorf("BANK_CREDIT_TERM_MONTHS must be >= 1")
	}

	return &b, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultVal
}
