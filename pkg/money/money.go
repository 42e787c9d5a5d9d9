package money

import (
	"github.com/shopspring/decimal"

	"github.com/bachatgat/ledger/pkg/apperrors"
)

var (
	hundred      = decimal.NewFromInt(100)
	monthsInYear = decimal.NewFromInt(12)
	daysInYear   = decimal.NewFromInt(365)
)

// Round rounds a monetary value to 2 decimal places, half away from zero.
// Every amount that is stored or returned to a caller passes through here
// exactly once; intermediate computations keep full precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Parse converts a decimal string (e.g. "150.00") to an exact decimal value.
// A malformed string surfaces as a validation error.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, apperrors.WrapValidation("invalid amount %q", s)
	}
	return d, nil
}

// MustParse is Parse for constants in tests and defaults; panics on bad input.
func MustParse(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// MonthlyRate converts an annual percentage rate to a monthly fraction.
func MonthlyRate(annualPct decimal.Decimal) decimal.Decimal {
	return annualPct.Div(hundred).Div(monthsInYear)
}

// DailyRate converts an annual percentage rate to a daily fraction using a
// 365-day year.
func DailyRate(annualPct decimal.Decimal) decimal.Decimal {
	return annualPct.Div(hundred).Div(daysInYear)
}
