package service

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/haifischbank/haifischbank-server/internal/domain/account"
	"github.com/haifischbank/haifischbank-server/internal/domain/ledger"
	"github.com/haifischbank/haifischbank-server/internal/pkg/logger"
	"github.com/haifischbank/haifischbank-server/internal/pkg/metrics"
	"github.com/haifischbank/haifischbank-server/internal/repository"
)

// LedgerService is pure bookkeeping over the named buckets; it applies no
// business rules of its own.
type LedgerService interface {
	Get() (*ledger.Ledger, error)
	Post(entries []ledger.Entry) (*ledger.Ledger, error)
	Validate() (*ledger.ValidationReport, error)
}

type ledgerService struct {
	ledgerRepo  repository.LedgerRepository
	accountRepo repository.AccountRepository
}

func NewLedgerService(ledgerRepo repository.LedgerRepository, accountRepo repository.AccountRepository) LedgerService {
	return &ledgerService{
		ledgerRepo:  ledgerRepo,
		accountRepo: accountRepo,
	}
}

func (s *ledgerService) Get() (*ledger.Ledger, error) {
	return s.ledgerRepo.Get()
}

// Post applies the batch atomically. Entries naming an unknown bucket are
// logged and skipped individually; the rest of the batch still lands.
func (s *ledgerService) Post(entries []ledger.Entry) (*ledger.Ledger, error) {
	valid := make([]ledger.Entry, 0, len(entries))
	for _, e := range entries {
		if !ledger.Known(e.Bucket) {
			logger.Warn("skipping ledger entry for unknown bucket",
				zap.String("bucket", string(e.Bucket)),
				zap.String("amount", e.Amount.String()),
			)
			continue
		}
		valid = append(valid, e)
	}

	return s.ledgerRepo.Post(valid)
}

// Validate recomputes the two system invariants from the current account
// records:
//
//	central_bank_assets + credit_assets == customer_liabilities + income - credit_losses
//	customer_liabilities == sum of active/blocked checking balances
//	credit_assets        == sum of active/blocked credit balances > 0
//
// Drift is reported, never repaired.
func (s *ledgerService) Validate() (*ledger.ValidationReport, error) {
	l, err := s.ledgerRepo.Get()
	if err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}

	checkings, err := s.accountRepo.ListChecking(account.CheckingStatusActive, account.CheckingStatusBlocked)
	if err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}
	credits, err := s.accountRepo.ListCredit(account.CreditStatusActive, account.CreditStatusBlocked)
	if err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}

	checkingSum := decimal.Zero
	for _, acc := range checkings {
		checkingSum = checkingSum.Add(acc.Balance)
	}

	creditSum := decimal.Zero
	for _, acc := range credits {
		if acc.Balance.IsPositive() {
			creditSum = creditSum.Add(acc.Balance)
		}
	}

	report := &ledger.ValidationReport{
		LedgerLiabilities:  l.Balance(ledger.BucketCustomerLiabilities),
		AccountLiabilities: checkingSum,
		LedgerCreditAssets: l.Balance(ledger.BucketCreditAssets),
		AccountCreditSum:   creditSum,
	}
	report.LiabilityDiff = report.LedgerLiabilities.Sub(checkingSum)
	report.CreditDiff = report.LedgerCreditAssets.Sub(creditSum)

	report.Assets = l.Balance(ledger.BucketCentralBankAssets).Add(l.Balance(ledger.BucketCreditAssets))
	report.LiabilitiesPlusIncome = l.Balance(ledger.BucketCustomerLiabilities).
		Add(l.Balance(ledger.BucketIncome)).
		Sub(l.Balance(ledger.BucketCreditLosses))
	report.EquationDiff = report.Assets.Sub(report.LiabilitiesPlusIncome)

	report.Balanced = report.LiabilityDiff.Abs().LessThanOrEqual(ledger.Tolerance) &&
		report.CreditDiff.Abs().LessThanOrEqual(ledger.Tolerance) &&
		report.EquationDiff.Abs().LessThanOrEqual(ledger.Tolerance)

	metrics.SetLedgerBalanced(report.Balanced)

	if !report.Balanced {
		logger.Warn("ledger validation mismatch",
			zap.String("liability_diff", report.LiabilityDiff.String()),
			zap.String("credit_diff", report.CreditDiff.String()),
			zap.String("equation_diff", report.EquationDiff.String()),
		)
	}

	return report, nil
}
