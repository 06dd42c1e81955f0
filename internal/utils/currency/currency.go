package currency

import "github.com/shopspring/decimal"

// Precision is the number of fractional digits carried by all ledger amounts.
const Precision = 2

// MinUnit is the minimum currency unit (one cent) used as the rounding
// tolerance for consistency checks.
var MinUnit = decimal.New(1, -Precision)

// Round rounds an amount to currency precision.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Precision)
}

// WithinTolerance reports whether two amounts agree to within one minimum
// currency unit.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(MinUnit)
}

// HasValidPrecision reports whether the amount carries at most the allowed
// number of fractional digits.
func HasValidPrecision(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(Precision))
}

// Percentage computes part/total*100 rounded to two decimals, returning zero
// when total is zero so callers never divide by zero.
func Percentage(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
}

// SafeAverage computes total/count at currency precision, returning zero for
// an empty count.
func SafeAverage(total decimal.Decimal, count int64) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(count)).Round(Precision)
}
