package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

type Bucket string

const (
	BucketCustomerLiabilities Bucket = "customer_liabilities"
	BucketCentralBankAssets   Bucket = "central_bank_assets"
	BucketCreditAssets        Bucket = "credit_assets"
	BucketIncome              Bucket = "income"
	BucketCreditLosses        Bucket = "credit_losses"
)

// Buckets lists every known bucket in a stable order.
var Buckets = []Bucket{
	BucketCustomerLiabilities,
	BucketCentralBankAssets,
	BucketCreditAssets,
	BucketIncome,
	BucketCreditLosses,
}

// Known reports whether b names an existing ledger bucket.
func Known(b Bucket) bool {
	for _, known := range Buckets {
		if b == known {
			return true
		}
	}
	return false
}

// Entry is one signed posting against a bucket.
type Entry struct {
	Bucket Bucket          `json:"bucket"`
	Amount decimal.Decimal `json:"amount"`
}

// Ledger holds the running balance of every bucket.
type Ledger struct {
	Balances  map[Bucket]decimal.Decimal `json:"balances"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// Balance returns the bucket's running balance, zero for unknown buckets.
func (l *Ledger) Balance(b Bucket) decimal.Decimal {
	return l.Balances[b]
}

// Tolerance is one minor currency unit; the validation invariants hold when
// no discrepancy exceeds it. A drift of exactly one minor unit still counts
// as balanced.
var Tolerance = decimal.NewFromFloat(0.01)

// ValidationReport carries the recomputed invariants. Validation reports
// drift, it never repairs it.
type ValidationReport struct {
	LedgerLiabilities  decimal.Decimal `json:"ledger_customer_liabilities"`
	AccountLiabilities decimal.Decimal `json:"sum_checking_balances"`
	LiabilityDiff      decimal.Decimal `json:"liability_diff"`

	LedgerCreditAssets decimal.Decimal `json:"ledger_credit_assets"`
	AccountCreditSum   decimal.Decimal `json:"sum_credit_balances"`
	CreditDiff         decimal.Decimal `json:"credit_diff"`

	Assets                decimal.Decimal `json:"assets"`
	LiabilitiesPlusIncome decimal.Decimal `json:"liabilities_plus_income"`
	EquationDiff          decimal.Decimal `json:"equation_diff"`

	Balanced bool `json:"balanced"`
}
