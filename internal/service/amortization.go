package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/haifischbank/haifischbank-server/internal/domain/account"
	"github.com/haifischbank/haifischbank-server/internal/domain/bankerr"
)

var (
	decimalOne    = decimal.NewFromInt(1)
	decimalTwelve = decimal.NewFromInt(12)
)

// round2 rounds to two decimal places, half up. decimal.Round rounds half
// away from zero, which is half-up for the non-negative amounts handled here.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// CalculateAmortization computes the fixed monthly payment and the full
// month-by-month schedule for an annuity loan.
//
// A zero rate splits the principal evenly. Otherwise the standard annuity
// formula applies:
//
//	payment = P * r * (1+r)^n / ((1+r)^n - 1)   with r = annualRate/12
//
// The schedule is built iteratively; the final month (or any month whose
// principal component would overshoot) is clamped so the remaining balance
// lands on exactly zero, absorbing rounding drift into the last payment.
// The computation is pure decimal arithmetic and fully deterministic.
func CalculateAmortization(principal, annualRate decimal.Decimal, termMonths int) (decimal.Decimal, []account.AmortizationEntry, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, nil, fmt.Errorf("principal must be positive: %w", bankerr.ErrMalformedInput)
	}
	if annualRate.IsNegative() {
		return decimal.Zero, nil, fmt.Errorf("rate must not be negative: %w", bankerr.ErrMalformedInput)
	}
	if termMonths < 1 {
		return decimal.Zero, nil, fmt.Errorf("term must be at least one month: %w", bankerr.ErrMalformedInput)
	}

	monthlyRate := annualRate.Div(decimalTwelve)
	n := decimal.NewFromInt(int64(termMonths))

	var monthlyPayment decimal.Decimal
	if monthlyRate.IsZero() {
		monthlyPayment = round2(principal.Div(n))
	} else {
		// (1+r)^n computed once; payment = P*r*growth / (growth - 1).
		growth := decimalOne.Add(monthlyRate).Pow(n)
		monthlyPayment = round2(principal.Mul(monthlyRate).Mul(growth).Div(growth.Sub(decimalOne)))
	}

	schedule := make([]account.AmortizationEntry, 0, termMonths)
	remaining := principal

	for month := 1; month <= termMonths; month++ {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}

		interest := round2(remaining.Mul(monthlyRate))
		principalPart := round2(monthlyPayment.Sub(interest))
		payment := monthlyPayment

		if month == termMonths || principalPart.GreaterThan(remaining) {
			principalPart = remaining
			payment = principalPart.Add(interest)
		}

		remaining = remaining.Sub(principalPart)

		schedule = append(schedule, account.AmortizationEntry{
			Month:     month,
			Payment:   payment,
			Principal: principalPart,
			Interest:  interest,
			Remaining: remaining,
		})
	}

	return monthlyPayment, schedule, nil
}
