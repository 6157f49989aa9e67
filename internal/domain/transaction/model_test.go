package transaction

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestType_Constants(t *testing.T) {
	assert.Equal(t, Type("transfer_in"), TypeTransferIn)
	assert.Equal(t, Type("transfer_out"), TypeTransferOut)
	assert.Equal(t, Type("credit_disbursement"), TypeCreditDisburse)
	assert.Equal(t, Type("credit_fee"), TypeCreditFee)
	assert.Equal(t, Type("credit_repayment"), TypeCreditRepayment)
	assert.Equal(t, Type("manual_credit_repayment"), TypeManualRepayment)
	assert.Equal(t, Type("penalty_payment"), TypePenaltyPayment)
	assert.Equal(t, Type("quarterly_fee"), TypeQuarterlyFee)
	assert.Equal(t, Type("credit_write_off"), TypeWriteOff)
	assert.Equal(t, Type("account_closure"), TypeAccountClosure)
	assert.Equal(t, Type("time_event"), TypeTimeEvent)
}

func TestStatus_Constants(t *testing.T) {
	assert.Equal(t, Status("completed"), StatusCompleted)
	assert.Equal(t, Status("rejected"), StatusRejected)
}

func TestRecord_Structure(t *testing.T) {
	amount := decimal.RequireFromString("180.52")
	rec := Record{
		ID:            "RP-0001",
		Type:          TypeCreditRepayment,
		AccountID:     "CH-0001",
		Amount:        amount,
		Status:        StatusCompleted,
		BalanceBefore: decimal.RequireFromString("500.00"),
		BalanceAfter:  decimal.RequireFromString("319.48"),
	}

	assert.Equal(t, "RP-0001", rec.ID)
	assert.Equal(t, TypeCreditRepayment, rec.Type)
	assert.True(t, rec.Amount.Equal(amount))
	assert.Equal(t, "", rec.Reason)
}
