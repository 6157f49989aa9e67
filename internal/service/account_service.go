package service

import (
	"errors"
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

// AccountService owns the checking account state machine: opening the
// paired checking+credit accounts, deposits, outgoing transfers, closure
// and the quarterly fee pass. Business rejections come back as rejected
// transaction records, not errors.
type AccountService interface {
	OpenAccount(customerID string, now time.Time) (*account.CheckingAccount, *account.CreditAccount, error)
	GetChecking(id string) (*account.CheckingAccount, error)
	GetCredit(id string) (*account.CreditAccount, error)
	Deposit(accountID, fromIBAN string, amount decimal.Decimal, ts time.Time) (*transaction.Record, error)
	TransferOut(accountID, toIBAN string, amount decimal.Decimal, ts time.Time) (*transaction.Record, error)
	CloseAccount(accountID string, ts time.Time) (*transaction.Record, error)
	ProcessQuarterlyFees(current time.Time) (int, error)
	History(accountID string, limit, offset int) (*transaction.HistoryResponse, error)
}

type accountService struct {
	accountRepo repository.AccountRepository
	txRepo      repository.TransactionRepository
	ledgerSvc   LedgerService
	ids         repository.IDGenerator
	bank        config.Bank
}

func NewAccountService(
	accountRepo repository.AccountRepository,
	txRepo repository.TransactionRepository,
	ledgerSvc LedgerService,
	ids repository.IDGenerator,
	bank config.Bank,
) AccountService {
	return &accountService{
		accountRepo: accountRepo,
		txRepo:      txRepo,
		ledgerSvc:   ledgerSvc,
		ids:         ids,
		bank:        bank,
	}
}

// OpenAccount creates a checking account and its paired, inactive credit
// account. The two are created together and share the customer.
func (s *accountService) OpenAccount(customerID string, now time.Time) (*account.CheckingAccount, *account.CreditAccount, error) {
	if existing, err := s.accountRepo.GetCheckingByCustomer(customerID); err == nil && existing != nil {
		return nil, nil, fmt.Errorf("customer %s already has account %s: %w", customerID, existing.ID, bankerr.ErrInvalidState)
	}

	checking := &account.CheckingAccount{
		ID:          s.ids.NextID(account.CheckingPrefix),
		CustomerID:  customerID,
		Balance:     decimal.Zero,
		Status:      account.CheckingStatusActive,
		LastFeeDate: now,
	}
	if err := s.accountRepo.CreateChecking(checking); err != nil {
		return nil, nil, err
	}

	credit := &account.CreditAccount{
		ID:             account.CreditPrefix + checking.ID,
		CheckingID:     checking.ID,
		CustomerID:     customerID,
		Balance:        decimal.Zero,
		Status:         account.CreditStatusInactive,
		MonthlyRate:    s.bank.CreditRatePA.Div(decimalTwelve),
		PenaltyAccrued: decimal.Zero,
	}
	if err := s.accountRepo.CreateCredit(credit); err != nil {
		return nil, nil, err
	}

	logger.Info("account pair opened",
		zap.String("checking", checking.ID),
		zap.String("credit", credit.ID),
		zap.String("customer", customerID),
	)

	return checking, credit, nil
}

func (s *accountService) GetChecking(id string) (*account.CheckingAccount, error) {
	return s.accountRepo.GetChecking(id)
}

func (s *accountService) GetCredit(id string) (*account.CreditAccount, error) {
	return s.accountRepo.GetCredit(id)
}

// Deposit credits an incoming payment. Deposits to a blocked account first
// settle accrued credit penalties out of the new balance; the checking
// account unblocks only once the penalties are fully covered, and the
// credit account follows once its own penalty balance reaches exactly zero.
func (s *accountService) Deposit(accountID, fromIBAN string, amount decimal.Decimal, ts time.Time) (*transaction.Record, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("deposit amount must be positive: %w", bankerr.ErrMalformedInput)
	}

	acc, err := s.accountRepo.GetChecking(accountID)
	if err != nil {
		return nil, err
	}

	rec := &transaction.Record{
		ID:               s.ids.NextID("TR"),
		Type:             transaction.TypeTransferIn,
		AccountID:        accountID,
		CounterpartyIBAN: fromIBAN,
		Amount:           amount,
		Timestamp:        ts,
		Status:           transaction.StatusRejected,
		BalanceBefore:    acc.Balance,
		BalanceAfter:     acc.Balance,
	}

	if acc.Status == account.CheckingStatusClosed {
		rec.Reason = "account closed"
		return rec, s.appendRecord(rec)
	}

	acc.Balance = acc.Balance.Add(amount)
	rec.Status = transaction.StatusCompleted
	rec.BalanceAfter = acc.Balance

	if _, err := s.ledgerSvc.Post([]ledger.Entry{
		{Bucket: ledger.BucketCustomerLiabilities, Amount: amount},
		{Bucket: ledger.BucketCentralBankAssets, Amount: amount},
	}); err != nil {
		return nil, err
	}

	if err := s.accountRepo.SaveChecking(acc); err != nil {
		return nil, err
	}
	if err := s.appendRecord(rec); err != nil {
		return nil, err
	}

	if acc.Status == account.CheckingStatusBlocked {
		if err := s.settlePenaltiesAndUnblock(acc, ts); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

// settlePenaltiesAndUnblock pays accrued credit penalties out of the
// checking balance and lifts the block once nothing is owed.
func (s *accountService) settlePenaltiesAndUnblock(acc *account.CheckingAccount, ts time.Time) error {
	credit, err := s.accountRepo.GetCredit(account.CreditPrefix + acc.ID)
	if err != nil && !errors.Is(err, bankerr.ErrNotFound) {
		return err
	}

	if credit != nil && credit.PenaltyAccrued.IsPositive() {
		pay := decimal.Min(credit.PenaltyAccrued, acc.Balance)
		if pay.IsPositive() {
			balanceBefore := acc.Balance
			acc.Balance = acc.Balance.Sub(pay)
			credit.PenaltyAccrued = credit.PenaltyAccrued.Sub(pay)

			rec := &transaction.Record{
				ID:              s.ids.NextID("PP"),
				Type:            transaction.TypePenaltyPayment,
				AccountID:       acc.ID,
				CreditAccountID: credit.ID,
				Amount:          pay,
				Timestamp:       ts,
				Status:          transaction.StatusCompleted,
				BalanceBefore:   balanceBefore,
				BalanceAfter:    acc.Balance,
			}

			// Penalty collection is realized bank income.
			if _, err := s.ledgerSvc.Post([]ledger.Entry{
				{Bucket: ledger.BucketCustomerLiabilities, Amount: pay.Neg()},
				{Bucket: ledger.BucketIncome, Amount: pay},
			}); err != nil {
				return err
			}
			if err := s.accountRepo.SaveChecking(acc); err != nil {
				return err
			}
			if err := s.accountRepo.SaveCredit(credit); err != nil {
				return err
			}
			if err := s.appendRecord(rec); err != nil {
				return err
			}
		}
	}

	penaltyCleared := credit == nil || credit.PenaltyAccrued.IsZero()
	if !penaltyCleared || acc.Balance.IsNegative() {
		return nil
	}

	if err := acc.TransitionTo(account.CheckingStatusActive); err != nil {
		return err
	}
	if err := s.accountRepo.SaveChecking(acc); err != nil {
		return err
	}
	logger.Info("checking account unblocked by deposit", zap.String("account", acc.ID))

	if credit != nil && credit.Status == account.CreditStatusBlocked {
		if err := credit.TransitionTo(account.CreditStatusActive); err != nil {
			return err
		}
		credit.MissedPayments = 0
		if err := s.accountRepo.SaveCredit(credit); err != nil {
			return err
		}
		logger.Info("credit account unblocked by deposit", zap.String("account", credit.ID))
	}

	return nil
}

func (s *accountService) TransferOut(accountID, toIBAN string, amount decimal.Decimal, ts time.Time) (*transaction.Record, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("transfer amount must be positive: %w", bankerr.ErrMalformedInput)
	}

	acc, err := s.accountRepo.GetChecking(accountID)
	if err != nil {
		return nil, err
	}

	rec := &transaction.Record{
		ID:               s.ids.NextID("TR"),
		Type:             transaction.TypeTransferOut,
		AccountID:        accountID,
		CounterpartyIBAN: toIBAN,
		Amount:           amount,
		Timestamp:        ts,
		Status:           transaction.StatusRejected,
		BalanceBefore:    acc.Balance,
		BalanceAfter:     acc.Balance,
	}

	if acc.Status != account.CheckingStatusActive {
		rec.Reason = fmt.Sprintf("account not active (%s)", acc.Status)
		return rec, s.appendRecord(rec)
	}

	if acc.Balance.LessThan(amount) {
		rec.Reason = "insufficient funds"
		return rec, s.appendRecord(rec)
	}

	acc.Balance = acc.Balance.Sub(amount)
	rec.Status = transaction.StatusCompleted
	rec.BalanceAfter = acc.Balance

	if _, err := s.ledgerSvc.Post([]ledger.Entry{
		{Bucket: ledger.BucketCustomerLiabilities, Amount: amount.Neg()},
		{Bucket: ledger.BucketCentralBankAssets, Amount: amount.Neg()},
	}); err != nil {
		return nil, err
	}

	if err := s.accountRepo.SaveChecking(acc); err != nil {
		return nil, err
	}
	return rec, s.appendRecord(rec)
}

// CloseAccount closes a checking account. Closure requires an exactly zero
// balance and no active or blocked credit account; closed is absorbing.
func (s *accountService) CloseAccount(accountID string, ts time.Time) (*transaction.Record, error) {
	acc, err := s.accountRepo.GetChecking(accountID)
	if err != nil {
		return nil, err
	}

	rec := &transaction.Record{
		ID:            s.ids.NextID("CLS"),
		Type:          transaction.TypeAccountClosure,
		AccountID:     accountID,
		Amount:        decimal.Zero,
		Timestamp:     ts,
		Status:        transaction.StatusRejected,
		BalanceBefore: acc.Balance,
		BalanceAfter:  acc.Balance,
	}

	if acc.Status == account.CheckingStatusClosed {
		rec.Reason = "account already closed"
		return rec, s.appendRecord(rec)
	}

	if !acc.Balance.IsZero() {
		rec.Reason = fmt.Sprintf("non-zero balance %s", acc.Balance)
		return rec, s.appendRecord(rec)
	}

	credit, err := s.accountRepo.GetCredit(account.CreditPrefix + accountID)
	if err != nil && !errors.Is(err, bankerr.ErrNotFound) {
		return nil, err
	}
	if credit != nil &&
		(credit.Status == account.CreditStatusActive || credit.Status == account.CreditStatusBlocked) {
		rec.Reason = fmt.Sprintf("credit account %s (%s)", credit.ID, credit.Status)
		return rec, s.appendRecord(rec)
	}

	if err := acc.TransitionTo(account.CheckingStatusClosed); err != nil {
		return nil, err
	}
	rec.Status = transaction.StatusCompleted

	if err := s.accountRepo.SaveChecking(acc); err != nil {
		return nil, err
	}
	logger.Info("checking account closed", zap.String("account", accountID))
	return rec, s.appendRecord(rec)
}

// ProcessQuarterlyFees charges the account fee on every active checking
// account whose last fee date lies a quarter or more in the past. A fee
// that cannot be covered is skipped for the cycle, not deferred: the
// rejected record is logged and last_fee_date stays untouched.
func (s *accountService) ProcessQuarterlyFees(current time.Time) (int, error) {
	accounts, err := s.accountRepo.ListChecking(account.CheckingStatusActive)
	if err != nil {
		return 0, err
	}

	charged := 0
	for _, acc := range accounts {
		due := acc.LastFeeDate.AddDate(0, 3, 0)
		if current.Before(due) {
			continue
		}

		rec := &transaction.Record{
			ID:            s.ids.NextID("QF"),
			Type:          transaction.TypeQuarterlyFee,
			AccountID:     acc.ID,
			Amount:        s.bank.QuarterlyFee,
			Timestamp:     current,
			Status:        transaction.StatusRejected,
			BalanceBefore: acc.Balance,
			BalanceAfter:  acc.Balance,
		}

		if acc.Balance.LessThan(s.bank.QuarterlyFee) {
			rec.Reason = "insufficient funds for quarterly fee"
			if err := s.appendRecord(rec); err != nil {
				logger.Error("quarterly fee record failed", zap.String("account", acc.ID), zap.Error(err))
			}
			continue
		}

		acc.Balance = acc.Balance.Sub(s.bank.QuarterlyFee)
		acc.LastFeeDate = current
		rec.Status = transaction.StatusCompleted
		rec.BalanceAfter = acc.Balance

		if _, err := s.ledgerSvc.Post([]ledger.Entry{
			{Bucket: ledger.BucketCustomerLiabilities, Amount: s.bank.QuarterlyFee.Neg()},
			{Bucket: ledger.BucketIncome, Amount: s.bank.QuarterlyFee},
		}); err != nil {
			logger.Error("quarterly fee ledger post failed", zap.String("account", acc.ID), zap.Error(err))
			continue
		}
		if err := s.accountRepo.SaveChecking(acc); err != nil {
			logger.Error("quarterly fee save failed", zap.String("account", acc.ID), zap.Error(err))
			continue
		}
		if err := s.appendRecord(rec); err != nil {
			logger.Error("quarterly fee record failed", zap.String("account", acc.ID), zap.Error(err))
			continue
		}
		charged++
	}

	return charged, nil
}

func (s *accountService) History(accountID string, limit, offset int) (*transaction.HistoryResponse, error) {
	if _, err := s.accountRepo.GetChecking(accountID); err != nil {
		if _, cerr := s.accountRepo.GetCredit(accountID); cerr != nil {
			return nil, err
		}
	}

	records, total, err := s.txRepo.ListByAccount(accountID, limit, offset)
	if err != nil {
		return nil, err
	}

	return &transaction.HistoryResponse{
		AccountID:    accountID,
		Transactions: records,
		Total:        total,
		Limit:        limit,
		Offset:       offset,
	}, nil
}

func (s *accountService) appendRecord(rec *transaction.Record) error {
	metrics.RecordTransaction(string(rec.Type), string(rec.Status))
	return s.txRepo.Append(rec)
}
