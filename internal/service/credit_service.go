package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/haifischbank/haifischbank-server/internal/config"
	"github.com/haifischbank/haifischbank-server/internal/domain/account"
	"github.com/haifischbank/haifischbank-server/internal/domain/bankerr"
	"github.com/haifischbank/haifischbank-server/internal/domain/ledger"
	"github.com/haifischbank/haifischbank-server/internal/domain/transaction"
	"github.com/haifischbank/haifischbank-server/internal/pkg/logger"
	"github.com/haifischbank/haifischbank-server/internal/pkg/metrics"
	"github.com/haifischbank/haifischbank-server/internal/repository"
)

// CreditService owns the credit account lifecycle: disbursement, the
// scheduled monthly repayment pass, manual repayments, daily penalty
// accrual and delinquency write-off.
type CreditService interface {
	RequestCredit(checkingID string, amount decimal.Decimal, ts time.Time) (*transaction.Record, error)
	ManualRepayment(checkingID string, amount decimal.Decimal, ts time.Time) (*transaction.Record, error)
	ProcessMonthlyPayments(current time.Time) (int, error)
	AccrueDailyPenalties(current time.Time) (int, error)
	WriteOffDelinquent(current time.Time) (int, error)
}

type creditService struct {
	accountRepo repository.AccountRepository
	txRepo      repository.TransactionRepository
	ledgerSvc   LedgerService
	ids         repository.IDGenerator
	bank        config.Bank
}

func NewCreditService(
	accountRepo repository.AccountRepository,
	txRepo repository.TransactionRepository,
	ledgerSvc LedgerService,
	ids repository.IDGenerator,
	bank config.Bank,
) CreditService {
	return &creditService{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		ledgerSvc:   ledgerSvc,
		ids:         ids,
		bank:        bank,
	}
}

// RequestCredit disburses a fixed-rate installment loan onto the paired
// checking account and activates the credit account with its amortization
// schedule. The one-time credit fee is charged as a separate step after
// disbursement: an uncoverable fee is recorded as rejected but never rolls
// the disbursement back.
func (s *creditService) RequestCredit(checkingID string, amount decimal.Decimal, ts time.Time) (*transaction.Record, error) {
	checking, err := s.accountRepo.GetChecking(checkingID)
	if err != nil {
		return nil, err
	}
	credit, err := s.accountRepo.GetCredit(account.CreditPrefix + checkingID)
	if err != nil {
		return nil, err
	}

	rec := &transaction.Record{
		ID:              s.ids.NextID("CRD"),
		Type:            transaction.TypeCreditDisburse,
		AccountID:       checkingID,
		CreditAccountID: credit.ID,
		Amount:          amount,
		Timestamp:       ts,
		Status:          transaction.StatusRejected,
		BalanceBefore:   checking.Balance,
		BalanceAfter:    checking.Balance,
	}

	if checking.Status != account.CheckingStatusActive {
		rec.Reason = fmt.Sprintf("checking account not active (%s)", checking.Status)
		return rec, s.appendRecord(rec)
	}
	if !credit.CanRequestCredit() {
		rec.Reason = fmt.Sprintf("credit account not eligible (%s)", credit.Status)
		return rec, s.appendRecord(rec)
	}
	if amount.LessThan(s.bank.MinCredit) || amount.GreaterThan(s.bank.MaxCredit) {
		rec.Reason = fmt.Sprintf("amount outside allowed range %s-%s", s.bank.MinCredit, s.bank.MaxCredit)
		return rec, s.appendRecord(rec)
	}

	monthlyPayment, schedule, err := CalculateAmortization(amount, s.bank.CreditRatePA, s.bank.CreditTermMonths)
	if err != nil {
		return nil, err
	}

	checking.Balance = checking.Balance.Add(amount)

	start := ts
	end := ts.AddDate(0, s.bank.CreditTermMonths, 0)
	credit.Balance = amount
	if err := credit.TransitionTo(account.CreditStatusActive); err != nil {
		return nil, err
	}
	credit.OriginalAmount = amount
	credit.MonthlyPayment = monthlyPayment
	credit.MonthlyRate = s.bank.CreditRatePA.Div(decimalTwelve)
	credit.RemainingPayments = s.bank.CreditTermMonths
	credit.Schedule = schedule
	credit.MissedPayments = 0
	credit.PenaltyAccrued = decimal.Zero
	credit.CreditStart = &start
	credit.CreditEnd = &end
	credit.LastPaymentAttempt = nil
	credit.LastPenaltyDate = nil
	credit.WriteOffDate = nil

	rec.Status = transaction.StatusCompleted
	rec.BalanceAfter = checking.Balance
	zero := decimal.Zero
	rec.CreditBalanceBefore = &zero
	rec.CreditBalanceAfter = &amount

	if _, err := s.ledgerSvc.Post([]ledger.Entry{
		{Bucket: ledger.BucketCreditAssets, Amount: amount},
		{Bucket: ledger.BucketCustomerLiabilities, Amount: amount},
	}); err != nil {
		return nil, err
	}
	if err := s.accountRepo.SaveChecking(checking); err != nil {
		return nil, err
	}
	if err := s.accountRepo.SaveCredit(credit); err != nil {
		return nil, err
	}
	if err := s.appendRecord(rec); err != nil {
		return nil, err
	}
	metrics.CreditsDisbursedTotal.Inc()
	logger.Info("credit disbursed",
		zap.String("credit", credit.ID),
		zap.String("amount", amount.String()),
		zap.String("monthly_payment", monthlyPayment.String()),
	)

	if err := s.chargeCreditFee(checking, credit, ts); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *creditService) chargeCreditFee(checking *account.CheckingAccount, credit *account.CreditAccount, ts time.Time) error {
	fee := s.bank.CreditFee
	rec := &transaction.Record{
		ID:              s.ids.NextID("FEE"),
		Type:            transaction.TypeCreditFee,
		AccountID:       checking.ID,
		CreditAccountID: credit.ID,
		Amount:          fee,
		Timestamp:       ts,
		Status:          transaction.StatusRejected,
		BalanceBefore:   checking.Balance,
		BalanceAfter:    checking.Balance,
	}

	if checking.Balance.LessThan(fee) {
		rec.Reason = "insufficient funds for credit fee"
		return s.appendRecord(rec)
	}

	checking.Balance = checking.Balance.Sub(fee)
	rec.Status = transaction.StatusCompleted
	rec.BalanceAfter = checking.Balance

	if _, err := s.ledgerSvc.Post([]ledger.Entry{
		{Bucket: ledger.BucketCustomerLiabilities, Amount: fee.Neg()},
		{Bucket: ledger.BucketIncome, Amount: fee},
	}); err != nil {
		return err
	}
	if err := s.accountRepo.SaveChecking(checking); err != nil {
		return err
	}
	return s.appendRecord(rec)
}

// ManualRepayment pays down the outstanding principal ahead of schedule.
// It works on both active and blocked credits; a blocked credit that
// receives a manual repayment unblocks and its missed payment count resets.
// Anything above the outstanding balance is clamped, never overpaid.
func (s *creditService) ManualRepayment(checkingID string, amount decimal.Decimal, ts time.Time) (*transaction.Record, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("repayment amount must be positive: %w", bankerr.ErrMalformedInput)
	}

	checking, err := s.accountRepo.GetChecking(checkingID)
	if err != nil {
		return nil, err
	}
	credit, err := s.accountRepo.GetCredit(account.CreditPrefix + checkingID)
	if err != nil {
		return nil, err
	}

	creditBefore := credit.Balance
	rec := &transaction.Record{
		ID:                  s.ids.NextID("MRP"),
		Type:                transaction.TypeManualRepayment,
		AccountID:           checkingID,
		CreditAccountID:     credit.ID,
		Amount:              amount,
		Timestamp:           ts,
		Status:              transaction.StatusRejected,
		BalanceBefore:       checking.Balance,
		BalanceAfter:        checking.Balance,
		CreditBalanceBefore: &creditBefore,
		CreditBalanceAfter:  &creditBefore,
	}

	if checking.Status == account.CheckingStatusClosed {
		rec.Reason = "account closed"
		return rec, s.appendRecord(rec)
	}
	if credit.Status != account.CreditStatusActive && credit.Status != account.CreditStatusBlocked {
		rec.Reason = fmt.Sprintf("no repayable credit (%s)", credit.Status)
		return rec, s.appendRecord(rec)
	}

	// Clamp to the outstanding principal so the loan never overshoots zero.
	payment := decimal.Min(amount, credit.Balance)
	if checking.Balance.LessThan(payment) {
		rec.Reason = "insufficient funds"
		return rec, s.appendRecord(rec)
	}

	checking.Balance = checking.Balance.Sub(payment)
	credit.Balance = credit.Balance.Sub(payment)
	if credit.Status == account.CreditStatusBlocked {
		if err := credit.TransitionTo(account.CreditStatusActive); err != nil {
			return nil, err
		}
		credit.MissedPayments = 0
	}
	if credit.Balance.IsZero() {
		if err := credit.TransitionTo(account.CreditStatusPaidOff); err != nil {
			return nil, err
		}
		credit.RemainingPayments = 0
		logger.Info("credit paid off", zap.String("credit", credit.ID))
	}

	creditAfter := credit.Balance
	rec.Status = transaction.StatusCompleted
	rec.Amount = payment
	rec.BalanceAfter = checking.Balance
	rec.CreditBalanceAfter = &creditAfter
	principal := payment
	rec.PrincipalAmount = &principal

	if _, err := s.ledgerSvc.Post([]ledger.Entry{
		{Bucket: ledger.BucketCustomerLiabilities, Amount: payment.Neg()},
		{Bucket: ledger.BucketCreditAssets, Amount: payment.Neg()},
	}); err != nil {
		return nil, err
	}
	if err := s.accountRepo.SaveChecking(checking); err != nil {
		return nil, err
	}
	if err := s.accountRepo.SaveCredit(credit); err != nil {
		return nil, err
	}
	return rec, s.appendRecord(rec)
}

// ProcessMonthlyPayments runs the scheduled repayment over every active and
// blocked credit. The decision is funds-only: a blocked pair with enough
// money on the checking account still pays and unblocks, while a shortfall
// counts a missed payment and blocks both accounts. Failures on one account
// never stop the pass.
func (s *creditService) ProcessMonthlyPayments(current time.Time) (int, error) {
	credits, err := s.accountRepo.ListCredit(account.CreditStatusActive, account.CreditStatusBlocked)
	if err != nil {
		return 0, err
	}

	paid := 0
	for _, credit := range credits {
		if err := s.processOnePayment(credit, current); err != nil {
			logger.Error("monthly payment failed",
				zap.String("credit", credit.ID), zap.Error(err))
			continue
		}
		if credit.Status == account.CreditStatusActive || credit.Status == account.CreditStatusPaidOff {
			paid++
		}
	}
	return paid, nil
}

func (s *creditService) processOnePayment(credit *account.CreditAccount, current time.Time) error {
	checking, err := s.accountRepo.GetChecking(credit.CheckingID)
	if err != nil {
		return err
	}

	// The closing installment only collects what is actually owed.
	interest := round2(credit.Balance.Mul(credit.MonthlyRate))
	principal := round2(credit.MonthlyPayment.Sub(interest))
	if principal.IsNegative() {
		principal = decimal.Zero
	}
	if principal.GreaterThan(credit.Balance) {
		principal = credit.Balance
	}
	payment := principal.Add(interest)

	attempt := current
	credit.LastPaymentAttempt = &attempt

	creditBefore := credit.Balance
	rec := &transaction.Record{
		ID:                  s.ids.NextID("RP"),
		Type:                transaction.TypeCreditRepayment,
		AccountID:           checking.ID,
		CreditAccountID:     credit.ID,
		Amount:              payment,
		Timestamp:           current,
		BalanceBefore:       checking.Balance,
		BalanceAfter:        checking.Balance,
		CreditBalanceBefore: &creditBefore,
		CreditBalanceAfter:  &creditBefore,
	}

	if checking.Balance.LessThan(payment) {
		credit.MissedPayments++
		if err := credit.TransitionTo(account.CreditStatusBlocked); err != nil {
			return err
		}
		if err := checking.TransitionTo(account.CheckingStatusBlocked); err != nil {
			return err
		}

		rec.Status = transaction.StatusRejected
		rec.Reason = fmt.Sprintf("insufficient funds (missed payment %d)", credit.MissedPayments)

		if err := s.accountRepo.SaveChecking(checking); err != nil {
			return err
		}
		if err := s.accountRepo.SaveCredit(credit); err != nil {
			return err
		}
		logger.Warn("monthly payment missed, accounts blocked",
			zap.String("credit", credit.ID),
			zap.Int("missed", credit.MissedPayments),
		)
		return s.appendRecord(rec)
	}

	checking.Balance = checking.Balance.Sub(payment)
	credit.Balance = credit.Balance.Sub(principal)
	if credit.RemainingPayments > 0 {
		credit.RemainingPayments--
	}
	credit.MissedPayments = 0

	// Sufficient funds settle the month even on a blocked pair.
	if err := checking.TransitionTo(account.CheckingStatusActive); err != nil {
		return err
	}
	if err := credit.TransitionTo(account.CreditStatusActive); err != nil {
		return err
	}
	if credit.Balance.IsZero() {
		if err := credit.TransitionTo(account.CreditStatusPaidOff); err != nil {
			return err
		}
		credit.RemainingPayments = 0
		logger.Info("credit paid off", zap.String("credit", credit.ID))
	}

	creditAfter := credit.Balance
	rec.Status = transaction.StatusCompleted
	rec.BalanceAfter = checking.Balance
	rec.CreditBalanceAfter = &creditAfter
	rec.PrincipalAmount = &principal
	rec.InterestAmount = &interest

	if _, err := s.ledgerSvc.Post([]ledger.Entry{
		{Bucket: ledger.BucketCustomerLiabilities, Amount: payment.Neg()},
		{Bucket: ledger.BucketCreditAssets, Amount: principal.Neg()},
		{Bucket: ledger.BucketIncome, Amount: interest},
	}); err != nil {
		return err
	}
	if err := s.accountRepo.SaveChecking(checking); err != nil {
		return err
	}
	if err := s.accountRepo.SaveCredit(credit); err != nil {
		return err
	}
	return s.appendRecord(rec)
}

// AccrueDailyPenalties adds one day of penalty interest to every blocked
// credit with outstanding principal. Accrual is idempotent per calendar day
// and hits the ledger only when the penalty is later collected or written
// off, so no transaction record is produced here.
func (s *creditService) AccrueDailyPenalties(current time.Time) (int, error) {
	credits, err := s.accountRepo.ListCredit(account.CreditStatusBlocked)
	if err != nil {
		return 0, err
	}

	accrued := 0
	for _, credit := range credits {
		if !credit.Balance.IsPositive() {
			continue
		}
		if credit.LastPenaltyDate != nil && sameDay(*credit.LastPenaltyDate, current) {
			continue
		}

		penalty := round2(credit.Balance.Mul(s.bank.PenaltyRatePA).Div(daysPerYear))
		credit.PenaltyAccrued = credit.PenaltyAccrued.Add(penalty)
		day := current
		credit.LastPenaltyDate = &day

		if err := s.accountRepo.SaveCredit(credit); err != nil {
			logger.Error("penalty accrual save failed",
				zap.String("credit", credit.ID), zap.Error(err))
			continue
		}
		accrued++
	}
	return accrued, nil
}

// WriteOffDelinquent writes off every blocked credit that has reached the
// missed payment ceiling. The outstanding principal plus accrued penalties
// moves to credit losses, the credit balance zeroes out, and written_off is
// absorbing. The checking account stays blocked until its own balance is
// settled by a deposit.
func (s *creditService) WriteOffDelinquent(current time.Time) (int, error) {
	credits, err := s.accountRepo.ListCredit(account.CreditStatusBlocked)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, credit := range credits {
		if credit.MissedPayments < s.bank.MaxMissedPayments {
			continue
		}
		if err := s.writeOffOne(credit, current); err != nil {
			logger.Error("write-off failed",
				zap.String("credit", credit.ID), zap.Error(err))
			continue
		}
		written++
	}
	return written, nil
}

func (s *creditService) writeOffOne(credit *account.CreditAccount, current time.Time) error {
	loss := credit.Balance.Add(credit.PenaltyAccrued)
	principal := credit.Balance
	penalty := credit.PenaltyAccrued

	creditBefore := credit.Balance
	day := current
	if err := credit.TransitionTo(account.CreditStatusWrittenOff); err != nil {
		return err
	}
	credit.WriteOffDate = &day
	credit.Balance = decimal.Zero
	credit.PenaltyAccrued = decimal.Zero
	credit.RemainingPayments = 0

	zero := decimal.Zero
	rec := &transaction.Record{
		ID:                  s.ids.NextID("WO"),
		Type:                transaction.TypeWriteOff,
		AccountID:           credit.CheckingID,
		CreditAccountID:     credit.ID,
		Amount:              loss,
		Timestamp:           current,
		Status:              transaction.StatusCompleted,
		CreditBalanceBefore: &creditBefore,
		CreditBalanceAfter:  &zero,
		Reason:              fmt.Sprintf("%d missed payments", credit.MissedPayments),
	}
	if checking, err := s.accountRepo.GetChecking(credit.CheckingID); err == nil {
		rec.BalanceBefore = checking.Balance
		rec.BalanceAfter = checking.Balance
	}

	entries := []ledger.Entry{
		{Bucket: ledger.BucketCreditAssets, Amount: principal.Neg()},
		{Bucket: ledger.BucketCreditLosses, Amount: loss},
	}
	// Accrued penalties never reach the ledger before this point, so the
	// penalty claim is recognized as income here while the full amount
	// lands in losses. Debiting income instead would leave the books off
	// by twice the penalty.
	if penalty.IsPositive() {
		entries = append(entries, ledger.Entry{Bucket: ledger.BucketIncome, Amount: penalty})
	}
	if _, err := s.ledgerSvc.Post(entries); err != nil {
		return err
	}
	if err := s.accountRepo.SaveCredit(credit); err != nil {
		return err
	}
	if err := s.appendRecord(rec); err != nil {
		return err
	}

	metrics.CreditsWrittenOffTotal.Inc()
	lossF, _ := loss.Float64()
	metrics.CreditLossAmount.Add(lossF)
	logger.Warn("credit written off",
		zap.String("credit", credit.ID),
		zap.String("loss", loss.String()),
	)
	return nil
}

func (s *creditService) appendRecord(rec *transaction.Record) error {
	metrics.RecordTransaction(string(rec.Type), string(rec.Status))
	return s.txRepo.Append(rec)
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

var daysPerYear = decimal.NewFromInt(365)
