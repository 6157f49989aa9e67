package transaction

import (
	"time"

	"github.com/shopspring/decimal"
)

type Type string
type Status string
type EventType string

const (
	TypeTransferIn        Type = "transfer_in"
	TypeTransferOut       Type = "transfer_out"
	TypeCreditDisburse    Type = "credit_disbursement"
	TypeCreditFee         Type = "credit_fee"
	TypeCreditRepayment   Type = "credit_repayment"
	TypeManualRepayment   Type = "manual_credit_repayment"
	TypePenaltyPayment    Type = "penalty_payment"
	TypeQuarterlyFee      Type = "quarterly_fee"
	TypeWriteOff          Type = "credit_write_off"
	TypeAccountClosure    Type = "account_closure"
	TypeTimeEvent         Type = "time_event"

	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"

	EventTransferIn      EventType = "transfer_in"
	EventTransferOut     EventType = "transfer_out"
	EventCreditRequest   EventType = "credit_request"
	EventManualRepayment EventType = "manual_credit_repayment"
	EventAccountClosure  EventType = "account_closure"
	EventTimeEvent       EventType = "time_event"
)

// Record is an immutable fact appended to the owning accounts' histories.
// It is never mutated or deleted after creation. Reason is set only on
// rejected records; for a rejection the before and after balances are equal.
type Record struct {
	ID                  string           `json:"transaction_id"`
	Type                Type             `json:"type"`
	AccountID           string           `json:"account_id"`
	CreditAccountID     string           `json:"credit_account_id,omitempty"`
	CounterpartyIBAN    string           `json:"counterparty_iban,omitempty"`
	Amount              decimal.Decimal  `json:"amount"`
	PrincipalAmount     *decimal.Decimal `json:"principal_amount,omitempty"`
	InterestAmount      *decimal.Decimal `json:"interest_amount,omitempty"`
	Timestamp           time.Time        `json:"timestamp"`
	Status              Status           `json:"status"`
	BalanceBefore       decimal.Decimal  `json:"balance_before"`
	BalanceAfter        decimal.Decimal  `json:"balance_after"`
	CreditBalanceBefore *decimal.Decimal `json:"credit_balance_before,omitempty"`
	CreditBalanceAfter  *decimal.Decimal `json:"credit_balance_after,omitempty"`
	Reason              string           `json:"reason,omitempty"`
}

// EventRecord is the language-neutral business event fed into the
// dispatcher. Amount is a decimal string and is parsed strictly: a value
// that does not parse rejects the event before any mutation.
type EventRecord struct {
	Type          EventType `json:"type"`
	Account       string    `json:"account,omitempty"`
	CreditAccount string    `json:"credit_account,omitempty"`
	FromIBAN      string    `json:"from_iban,omitempty"`
	ToIBAN        string    `json:"to_iban,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Date          string    `json:"date,omitempty"`
	Timestamp     time.Time `json:"timestamp,omitempty"`
}

type HistoryResponse struct {
	AccountID    string    `json:"account_id"`
	Transactions []*Record `json:"transactions"`
	Total        int       `json:"total"`
	Limit        int       `json:"limit"`
	Offset       int       `json:"offset"`
}
