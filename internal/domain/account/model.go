package account

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/haifischbank/haifischbank-server/internal/domain/bankerr"
)

type CheckingStatus string
type CreditStatus string

const (
	CheckingStatusActive  CheckingStatus = "active"
	CheckingStatusBlocked CheckingStatus = "blocked"
	CheckingStatusClosed  CheckingStatus = "closed"

	CreditStatusInactive   CreditStatus = "inactive"
	CreditStatusActive     CreditStatus = "active"
	CreditStatusBlocked    CreditStatus = "blocked"
	CreditStatusPaidOff    CreditStatus = "paid_off"
	CreditStatusWrittenOff CreditStatus = "written_off"
)

// CheckingPrefix and CreditPrefix form the account id scheme: a checking
// account gets "CH-<uuid>" and its paired credit account "CR" + checking id.
const (
	CheckingPrefix = "CH"
	CreditPrefix   = "CR"
)

// CheckingAccount is the customer-facing cash account. Balance never goes
// negative through engine logic, and a closed account is never mutated again.
type CheckingAccount struct {
	ID          string          `json:"id"`
	CustomerID  string          `json:"customer_id"`
	Balance     decimal.Decimal `json:"balance"`
	Status      CheckingStatus  `json:"status"`
	LastFeeDate time.Time       `json:"last_fee_date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AmortizationEntry is one month of a credit's repayment plan.
type AmortizationEntry struct {
	Month     int             `json:"month"`
	Payment   decimal.Decimal `json:"payment"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Remaining decimal.Decimal `json:"remaining"`
}

// CreditAccount tracks the outstanding principal of at most one fixed-rate
// installment loan. It is created together with its checking account and
// stays inactive until a credit is disbursed.
type CreditAccount struct {
	ID                 string              `json:"id"`
	CheckingID         string              `json:"checking_id"`
	CustomerID         string              `json:"customer_id"`
	Balance            decimal.Decimal     `json:"balance"`
	Status             CreditStatus        `json:"status"`
	OriginalAmount     decimal.Decimal     `json:"original_amount"`
	MonthlyPayment     decimal.Decimal     `json:"monthly_payment"`
	MonthlyRate        decimal.Decimal     `json:"monthly_rate"`
	RemainingPayments  int                 `json:"remaining_payments"`
	Schedule           []AmortizationEntry `json:"amortization_schedule"`
	MissedPayments     int                 `json:"missed_payments_count"`
	PenaltyAccrued     decimal.Decimal     `json:"penalty_accrued"`
	LastPaymentAttempt *time.Time          `json:"last_payment_attempt_date,omitempty"`
	LastPenaltyDate    *time.Time          `json:"last_penalty_date,omitempty"`
	CreditStart        *time.Time          `json:"credit_start_date,omitempty"`
	CreditEnd          *time.Time          `json:"credit_end_date,omitempty"`
	WriteOffDate       *time.Time          `json:"write_off_date,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// CanRequestCredit reports whether a new loan may be opened on this account.
func (c *CreditAccount) CanRequestCredit() bool {
	return c.Status == CreditStatusInactive || c.Status == CreditStatusPaidOff
}

// IsTerminal reports whether the credit account is in an absorbing state.
func (c *CreditAccount) IsTerminal() bool {
	return c.Status == CreditStatusPaidOff || c.Status == CreditStatusWrittenOff
}

var checkingTransitions = map[CheckingStatus][]CheckingStatus{
	CheckingStatusActive:  {CheckingStatusBlocked, CheckingStatusClosed},
	CheckingStatusBlocked: {CheckingStatusActive, CheckingStatusClosed},
	CheckingStatusClosed:  {},
}

var creditTransitions = map[CreditStatus][]CreditStatus{
	CreditStatusInactive:   {CreditStatusActive},
	CreditStatusActive:     {CreditStatusBlocked, CreditStatusPaidOff},
	CreditStatusBlocked:    {CreditStatusActive, CreditStatusPaidOff, CreditStatusWrittenOff},
	CreditStatusPaidOff:    {CreditStatusActive},
	CreditStatusWrittenOff: {},
}

// ValidCheckingTransition reports whether current -> next is a legal
// checking account status change.
func ValidCheckingTransition(current, next CheckingStatus) bool {
	for _, s := range checkingTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// ValidCreditTransition reports whether current -> next is a legal credit
// account status change.
func ValidCreditTransition(current, next CreditStatus) bool {
	for _, s := range creditTransitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the checking account to next after consulting the
// transition table. Setting the current status again is a no-op.
func (c *CheckingAccount) TransitionTo(next CheckingStatus) error {
	if c.Status == next {
		return nil
	}
	if !ValidCheckingTransition(c.Status, next) {
		return fmt.Errorf("checking status %s -> %s: %w", c.Status, next, bankerr.ErrInvalidState)
	}
	c.Status = next
	return nil
}

// TransitionTo moves the credit account to next after consulting the
// transition table. Setting the current status again is a no-op.
func (c *CreditAccount) TransitionTo(next CreditStatus) error {
	if c.Status == next {
		return nil
	}
	if !ValidCreditTransition(c.Status, next) {
		return fmt.Errorf("credit status %s -> %s: %w", c.Status, next, bankerr.ErrInvalidState)
	}
	c.Status = next
	return nil
}

type OpenAccountRequest struct {
	CustomerID string `json:"customer_id" binding:"required"`
}

type OpenAccountResponse struct {
	Checking *CheckingAccount `json:"checking"`
	Credit   *CreditAccount   `json:"credit"`
}

type AmountRequest struct {
	Amount string `json:"amount" binding:"required"`
}

type DepositRequest struct {
	Amount   string `json:"amount" binding:"required"`
	FromIBAN string `json:"from_iban"`
}

type TransferOutRequest struct {
	Amount string `json:"amount" binding:"required"`
	ToIBAN string `json:"to_iban" binding:"required"`
}

type CreditRequest struct {
	Amount string `json:"amount" binding:"required"`
}

type BalanceResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	Status    CheckingStatus  `json:"status"`
	AsOfDate  time.Time       `json:"as_of_date"`
}
