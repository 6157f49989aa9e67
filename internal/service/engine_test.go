package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haifischbank/haifischbank-server/internal/domain/account"
	"github.com/haifischbank/haifischbank-server/internal/domain/bankerr"
	"github.com/haifischbank/haifischbank-server/internal/domain/ledger"
	"github.com/haifischbank/haifischbank-server/internal/domain/transaction"
)

// openFundedPair opens an account pair and seeds the checking balance.
func openFundedPair(t *testing.T, f *fixture, customerID, seed string) (*account.CheckingAccount, *account.CreditAccount) {
	t.Helper()
	now, err := f.clock.Current()
	require.NoError(t, err)

	checking, credit, err := f.accountSvc.OpenAccount(customerID, now)
	require.NoError(t, err)
	require.Equal(t, account.CheckingStatusActive, checking.Status)
	require.Equal(t, account.CreditStatusInactive, credit.Status)

	if seed != "" {
		rec, err := f.accountSvc.Deposit(checking.ID, "CH9300762011623852957", d(seed), now)
		require.NoError(t, err)
		require.Equal(t, transaction.StatusCompleted, rec.Status)
	}
	return checking, credit
}

func requireBalanced(t *testing.T, f *fixture) {
	t.Helper()
	report, err := f.ledgerSvc.Validate()
	require.NoError(t, err)
	assert.True(t, report.Balanced,
		"ledger drift: liability=%s credit=%s equation=%s",
		report.LiabilityDiff, report.CreditDiff, report.EquationDiff)
}

func TestValidateToleratesOneMinorUnitDrift(t *testing.T) {
	f := newFixture(date(2026, time.January, 1))

	// A lone one-sided posting drifts every invariant by exactly 0.01,
	// which still counts as balanced.
	_, err := f.ledgerSvc.Post([]ledger.Entry{
		{Bucket: ledger.BucketCustomerLiabilities, Amount: d("0.01")},
	})
	require.NoError(t, err)

	report, err := f.ledgerSvc.Validate()
	require.NoError(t, err)
	assert.Equal(t, "0.01", report.LiabilityDiff.StringFixed(2))
	assert.True(t, report.Balanced)

	// A second minor unit pushes the drift past tolerance.
	_, err = f.ledgerSvc.Post([]ledger.Entry{
		{Bucket: ledger.BucketCustomerLiabilities, Amount: d("0.01")},
	})
	require.NoError(t, err)

	report, err = f.ledgerSvc.Validate()
	require.NoError(t, err)
	assert.False(t, report.Balanced)
}

func TestCreditDisbursementHappyPath(t *testing.T) {
	f := newFixture(date(2026, time.January, 15))
	checking, _ := openFundedPair(t, f, "CU-0001", "5000.00")

	rec, err := f.creditSvc.RequestCredit(checking.ID, d("2000.00"), date(2026, time.January, 15))
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCompleted, rec.Status)

	checking, err = f.accountSvc.GetChecking(checking.ID)
	require.NoError(t, err)
	credit, err := f.accountSvc.GetCredit(account.CreditPrefix + checking.ID)
	require.NoError(t, err)

	// 5000 deposit + 2000 disbursed - 250 fee
	assert.Equal(t, "6750.00", checking.Balance.StringFixed(2))
	assert.Equal(t, account.CreditStatusActive, credit.Status)
	assert.Equal(t, "2000.00", credit.Balance.StringFixed(2))
	assert.Equal(t, "180.52", credit.MonthlyPayment.StringFixed(2))
	assert.Equal(t, 12, credit.RemainingPayments)
	require.Len(t, credit.Schedule, 12)
	assert.True(t, credit.Schedule[11].Remaining.IsZero())

	l, err := f.ledgerSvc.Get()
	require.NoError(t, err)
	assert.Equal(t, "6750.00", l.Balance(ledger.BucketCustomerLiabilities).StringFixed(2))
	assert.Equal(t, "2000.00", l.Balance(ledger.BucketCreditAssets).StringFixed(2))
	assert.Equal(t, "250.00", l.Balance(ledger.BucketIncome).StringFixed(2))
	assert.Equal(t, "5000.00", l.Balance(ledger.BucketCentralBankAssets).StringFixed(2))

	requireBalanced(t, f)
}

func TestCreditFullPayoffOverTerm(t *testing.T) {
	f := newFixture(date(2026, time.January, 15))
	checking, _ := openFundedPair(t, f, "CU-0001", "5000.00")

	_, err := f.creditSvc.RequestCredit(checking.ID, d("2000.00"), date(2026, time.January, 15))
	require.NoError(t, err)

	// Twelve first-of-month ticks cover the whole term.
	tick := date(2026, time.February, 1)
	for i := 0; i < 12; i++ {
		_, err := f.scheduler.AdvanceClock(tick)
		require.NoError(t, err)
		tick = tick.AddDate(0, 1, 0)
	}

	credit, err := f.accountSvc.GetCredit(account.CreditPrefix + checking.ID)
	require.NoError(t, err)
	assert.Equal(t, account.CreditStatusPaidOff, credit.Status)
	assert.True(t, credit.Balance.IsZero())
	assert.Equal(t, 0, credit.RemainingPayments)

	// Eleven full installments plus the clamped closing one, and three
	// quarterly fees along the way.
	checking, err = f.accountSvc.GetChecking(checking.ID)
	require.NoError(t, err)
	assert.Equal(t, account.CheckingStatusActive, checking.Status)
	assert.Equal(t, "4508.80", checking.Balance.StringFixed(2))

	repayments := f.txs.byType(transaction.TypeCreditRepayment)
	require.Len(t, repayments, 12)
	assert.Equal(t, "180.52", repayments[0].Amount.StringFixed(2))
	assert.Equal(t, "25.00", repayments[0].InterestAmount.StringFixed(2))
	assert.Equal(t, "155.52", repayments[0].PrincipalAmount.StringFixed(2))
	assert.Equal(t, "180.48", repayments[11].Amount.StringFixed(2))

	fees := f.txs.byType(transaction.TypeQuarterlyFee)
	assert.Len(t, fees, 3)

	l, err := f.ledgerSvc.Get()
	require.NoError(t, err)
	assert.True(t, l.Balance(ledger.BucketCreditAssets).IsZero())

	requireBalanced(t, f)
}

func TestMissedPaymentBlocksBothAccounts(t *testing.T) {
	f := newFixture(date(2026, time.January, 15))
	checking, _ := openFundedPair(t, f, "CU-0001", "")

	_, err := f.creditSvc.RequestCredit(checking.ID, d("2000.00"), date(2026, time.January, 15))
	require.NoError(t, err)

	// Drain the disbursement down to 100 before the first installment.
	out, err := f.accountSvc.TransferOut(checking.ID, "CH5604835012345678009", d("1650.00"), date(2026, time.January, 20))
	require.NoError(t, err)
	require.Equal(t, transaction.StatusCompleted, out.Status)

	_, err = f.scheduler.AdvanceClock(date(2026, time.February, 1))
	require.NoError(t, err)

	checking, err = f.accountSvc.GetChecking(checking.ID)
	require.NoError(t, err)
	credit, err := f.accountSvc.GetCredit(account.CreditPrefix + checking.ID)
	require.NoError(t, err)

	assert.Equal(t, account.CheckingStatusBlocked, checking.Status)
	assert.Equal(t, account.CreditStatusBlocked, credit.Status)
	assert.Equal(t, 1, credit.MissedPayments)
	assert.Equal(t, "100.00", checking.Balance.StringFixed(2))

	// One day of penalty on the untouched principal: 2000 * 0.30 / 365.
	assert.Equal(t, "1.64", credit.PenaltyAccrued.StringFixed(2))

	repayments := f.txs.byType(transaction.TypeCreditRepayment)
	require.Len(t, repayments, 1)
	assert.Equal(t, transaction.StatusRejected, repayments[0].Status)
	assert.Equal(t, "180.52", repayments[0].Amount.StringFixed(2))
	assert.True(t, repayments[0].BalanceBefore.Equal(repayments[0].BalanceAfter))

	requireBalanced(t, f)
}

func TestWriteOffAfterMaxMissedPayments(t *testing.T) {
	f := newFixture(date(2026, time.January, 15))
	checking, _ := openFundedPair(t, f, "CU-0001", "")

	_, err := f.creditSvc.RequestCredit(checking.ID, d("2000.00"), date(2026, time.January, 15))
	require.NoError(t, err)
	_, err = f.accountSvc.TransferOut(checking.ID, "CH5604835012345678009", d("1650.00"), date(2026, time.January, 20))
	require.NoError(t, err)

	for _, tick := range []time.Time{
		date(2026, time.February, 1),
		date(2026, time.March, 1),
		date(2026, time.April, 1),
	} {
		_, err := f.scheduler.AdvanceClock(tick)
		require.NoError(t, err)
	}

	credit, err := f.accountSvc.GetCredit(account.CreditPrefix + checking.ID)
	require.NoError(t, err)
	assert.Equal(t, account.CreditStatusWrittenOff, credit.Status)
	assert.True(t, credit.Balance.IsZero())
	assert.True(t, credit.PenaltyAccrued.IsZero())
	require.NotNil(t, credit.WriteOffDate)
	assert.Equal(t, date(2026, time.April, 1), *credit.WriteOffDate)

	// Principal 2000 plus three accrued penalty days at 1.64.
	l, err := f.ledgerSvc.Get()
	require.NoError(t, err)
	assert.Equal(t, "2004.92", l.Balance(ledger.BucketCreditLosses).StringFixed(2))
	assert.True(t, l.Balance(ledger.BucketCreditAssets).IsZero())

	writeOffs := f.txs.byType(transaction.TypeWriteOff)
	require.Len(t, writeOffs, 1)
	assert.Equal(t, "2004.92", writeOffs[0].Amount.StringFixed(2))

	// The checking account stays blocked until its debts clear by deposit.
	checking, err = f.accountSvc.GetChecking(checking.ID)
	require.NoError(t, err)
	assert.Equal(t, account.CheckingStatusBlocked, checking.Status)

	requireBalanced(t, f)
}

func TestDepositUnblocksWhenPenaltyFullyCovered(t *testing.T) {
	f := newFixture(date(2026, time.January, 15))
	checking, _ := openFundedPair(t, f, "CU-0001", "")

	_, err := f.creditSvc.RequestCredit(checking.ID, d("2000.00"), date(2026, time.January, 15))
	require.NoError(t, err)
	_, err = f.accountSvc.TransferOut(checking.ID, "CH5604835012345678009", d("1650.00"), date(2026, time.January, 20))
	require.NoError(t, err)
	_, err = f.scheduler.AdvanceClock(date(2026, time.February, 1))
	require.NoError(t, err)

	rec, err := f.accountSvc.Deposit(checking.ID, "CH9300762011623852957", d("500.00"), date(2026, time.February, 2))
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCompleted, rec.Status)

	checking, err = f.accountSvc.GetChecking(checking.ID)
	require.NoError(t, err)
	credit, err := f.accountSvc.GetCredit(account.CreditPrefix + checking.ID)
	require.NoError(t, err)

	assert.Equal(t, account.CheckingStatusActive, checking.Status)
	assert.Equal(t, account.CreditStatusActive, credit.Status)
	assert.Equal(t, 0, credit.MissedPayments)
	assert.True(t, credit.PenaltyAccrued.IsZero())

	// 100 + 500 deposit - 1.64 penalty
	assert.Equal(t, "598.36", checking.Balance.StringFixed(2))

	penalties := f.txs.byType(transaction.TypePenaltyPayment)
	require.Len(t, penalties, 1)
	assert.Equal(t, "1.64", penalties[0].Amount.StringFixed(2))

	requireBalanced(t, f)
}

func TestDepositPartialPenaltyKeepsBlock(t *testing.T) {
	f := newFixture(date(2026, time.January, 15))

	checking := &account.CheckingAccount{
		ID:          "CH-partial",
		CustomerID:  "CU-0001",
		Balance:     decimal.Zero,
		Status:      account.CheckingStatusBlocked,
		LastFeeDate: date(2026, time.January, 15),
	}
	require.NoError(t, f.accounts.CreateChecking(checking))
	require.NoError(t, f.accounts.CreateCredit(&account.CreditAccount{
		ID:             account.CreditPrefix + checking.ID,
		CheckingID:     checking.ID,
		CustomerID:     "CU-0001",
		Balance:        d("2000.00"),
		Status:         account.CreditStatusBlocked,
		MissedPayments: 1,
		PenaltyAccrued: d("50.00"),
	}))

	_, err := f.accountSvc.Deposit(checking.ID, "CH9300762011623852957", d("20.00"), date(2026, time.February, 2))
	require.NoError(t, err)

	checking, err = f.accountSvc.GetChecking(checking.ID)
	require.NoError(t, err)
	credit, err := f.accountSvc.GetCredit(account.CreditPrefix + checking.ID)
	require.NoError(t, err)

	// The whole deposit went into penalties but 30 is still owed.
	assert.Equal(t, account.CheckingStatusBlocked, checking.Status)
	assert.Equal(t, account.CreditStatusBlocked, credit.Status)
	assert.True(t, checking.Balance.IsZero())
	assert.Equal(t, "30.00", credit.PenaltyAccrued.StringFixed(2))
	assert.Equal(t, 1, credit.MissedPayments)
}

func TestPenaltyAccrualIdempotentPerDay(t *testing.T) {
	f := newFixture(date(2026, time.January, 15))
	checking, _ := openFundedPair(t, f, "CU-0001", "")

	_, err := f.creditSvc.RequestCredit(checking.ID, d("2000.00"), date(2026, time.January, 15))
	require.NoError(t, err)
	_, err = f.accountSvc.TransferOut(checking.ID, "CH5604835012345678009", d("1650.00"), date(2026, time.January, 20))
	require.NoError(t, err)
	_, err = f.scheduler.AdvanceClock(date(2026, time.February, 1))
	require.NoError(t, err)

	n, err := f.creditSvc.AccrueDailyPenalties(date(2026, time.February, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	credit, err := f.accountSvc.GetCredit(account.CreditPrefix + checking.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.64", credit.PenaltyAccrued.StringFixed(2))
}

func TestAdvanceClockRejectsNonMonotonic(t *testing.T) {
	f := newFixture(date(2026, time.February, 1))

	_, err := f.scheduler.AdvanceClock(date(2026, time.February, 1))
	assert.ErrorIs(t, err, bankerr.ErrMalformedInput)

	_, err = f.scheduler.AdvanceClock(date(2026, time.January, 31))
	assert.ErrorIs(t, err, bankerr.ErrMalformedInput)

	advanced, err := f.scheduler.AdvanceClock(date(2026, time.February, 2))
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.February, 2), advanced)
}

func TestClosedAccountIsAbsorbing(t *testing.T) {
	f := newFixture(date(2026, time.January, 15))
	checking, _ := openFundedPair(t, f, "CU-0001", "")

	rec, err := f.accountSvc.CloseAccount(checking.ID, date(2026, time.January, 16))
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCompleted, rec.Status)

	dep, err := f.accountSvc.Deposit(checking.ID, "CH9300762011623852957", d("100.00"), date(2026, time.January, 17))
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusRejected, dep.Status)
	assert.Equal(t, "account closed", dep.Reason)

	again, err := f.accountSvc.CloseAccount(checking.ID, date(2026, time.January, 18))
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusRejected, again.Status)

	checking, err = f.accountSvc.GetChecking(checking.ID)
	require.NoError(t, err)
	assert.True(t, checking.Balance.IsZero())
	assert.Equal(t, account.CheckingStatusClosed, checking.Status)
}

func TestCloseAccountGuards(t *testing.T) {
	f := newFixture(date(2026, time.January, 15))
	checking, _ := openFundedPair(t, f, "CU-0001", "100.00")

	rec, err := f.accountSvc.CloseAccount(checking.ID, date(2026, time.January, 16))
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusRejected, rec.Status)
	assert.Contains(t, rec.Reason, "non-zero balance")

	_, err = f.accountSvc.TransferOut(checking.ID, "CH5604835012345678009", d("100.00"), date(2026, time.January, 16))
	require.NoError(t, err)
	_, err = f.creditSvc.RequestCredit(checking.ID, d("1000.00"), date(2026, time.January, 16))
	require.NoError(t, err)
	_, err = f.accountSvc.TransferOut(checking.ID, "CH5604835012345678009", d("750.00"), date(2026, time.January, 17))
	require.NoError(t, err)

	rec, err = f.accountSvc.CloseAccount(checking.ID, date(2026, time.January, 18))
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusRejected, rec.Status)
	assert.Contains(t, rec.Reason, "credit account")
}

func TestQuarterlyFeeSkippedOnShortfall(t *testing.T) {
	f := newFixture(date(2026, time.January, 15))
	checking, _ := openFundedPair(t, f, "CU-0001", "10.00")

	for _, tick := range []time.Time{
		date(2026, time.February, 1),
		date(2026, time.March, 1),
		date(2026, time.April, 1),
		date(2026, time.May, 1),
	} {
		_, err := f.scheduler.AdvanceClock(tick)
		require.NoError(t, err)
	}

	checking, err := f.accountSvc.GetChecking(checking.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", checking.Balance.StringFixed(2))
	assert.Equal(t, date(2026, time.January, 15), checking.LastFeeDate)

	fees := f.txs.byType(transaction.TypeQuarterlyFee)
	require.Len(t, fees, 1)
	assert.Equal(t, transaction.StatusRejected, fees[0].Status)
	assert.Equal(t, "insufficient funds for quarterly fee", fees[0].Reason)

	requireBalanced(t, f)
}

func TestManualRepaymentClampedToOutstanding(t *testing.T) {
	f := newFixture(date(2026, time.January, 15))
	checking, _ := openFundedPair(t, f, "CU-0001", "5000.00")

	_, err := f.creditSvc.RequestCredit(checking.ID, d("2000.00"), date(2026, time.January, 15))
	require.NoError(t, err)

	rec, err := f.creditSvc.ManualRepayment(checking.ID, d("9999.00"), date(2026, time.January, 20))
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCompleted, rec.Status)
	assert.Equal(t, "2000.00", rec.Amount.StringFixed(2))

	checking, err = f.accountSvc.GetChecking(checking.ID)
	require.NoError(t, err)
	credit, err := f.accountSvc.GetCredit(account.CreditPrefix + checking.ID)
	require.NoError(t, err)

	assert.Equal(t, account.CreditStatusPaidOff, credit.Status)
	assert.True(t, credit.Balance.IsZero())
	// 5000 + 2000 - 250 fee - 2000 repayment
	assert.Equal(t, "4750.00", checking.Balance.StringFixed(2))

	requireBalanced(t, f)
}

func TestRequestCreditGuards(t *testing.T) {
	f := newFixture(date(2026, time.January, 15))
	checking, _ := openFundedPair(t, f, "CU-0001", "5000.00")
	ts := date(2026, time.January, 15)

	rec, err := f.creditSvc.RequestCredit(checking.ID, d("999.99"), ts)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusRejected, rec.Status)

	rec, err = f.creditSvc.RequestCredit(checking.ID, d("15000.01"), ts)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusRejected, rec.Status)

	rec, err = f.creditSvc.RequestCredit(checking.ID, d("2000.00"), ts)
	require.NoError(t, err)
	require.Equal(t, transaction.StatusCompleted, rec.Status)

	// One loan at a time.
	rec, err = f.creditSvc.RequestCredit(checking.ID, d("3000.00"), ts)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusRejected, rec.Status)
	assert.Contains(t, rec.Reason, "not eligible")

	_, err = f.creditSvc.RequestCredit("CH-missing", d("2000.00"), ts)
	assert.ErrorIs(t, err, bankerr.ErrNotFound)
}

func TestTransferOutGuards(t *testing.T) {
	f := newFixture(date(2026, time.January, 15))
	checking, _ := openFundedPair(t, f, "CU-0001", "100.00")
	ts := date(2026, time.January, 16)

	rec, err := f.accountSvc.TransferOut(checking.ID, "CH5604835012345678009", d("100.01"), ts)
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusRejected, rec.Status)
	assert.Equal(t, "insufficient funds", rec.Reason)

	_, err = f.accountSvc.TransferOut(checking.ID, "CH5604835012345678009", d("-5.00"), ts)
	assert.ErrorIs(t, err, bankerr.ErrMalformedInput)

	checking, err = f.accountSvc.GetChecking(checking.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", checking.Balance.StringFixed(2))
}

func TestHistoryCoversBothAccounts(t *testing.T) {
	f := newFixture(date(2026, time.January, 15))
	checking, credit := openFundedPair(t, f, "CU-0001", "5000.00")

	_, err := f.creditSvc.RequestCredit(checking.ID, d("2000.00"), date(2026, time.January, 15))
	require.NoError(t, err)

	history, err := f.accountSvc.History(checking.ID, 50, 0)
	require.NoError(t, err)
	// deposit, disbursement, fee
	assert.Equal(t, 3, history.Total)

	history, err = f.accountSvc.History(credit.ID, 50, 0)
	require.NoError(t, err)
	// disbursement and fee carry the credit account id
	assert.Equal(t, 2, history.Total)

	_, err = f.accountSvc.History("CH-missing", 50, 0)
	assert.ErrorIs(t, err, bankerr.ErrNotFound)
}
