// Package reconcile implements the market-price reconciliation engine:
// deviation classification and the orchestrated run over a caller's catalog.
package reconcile

import "github.com/shopspring/decimal"

// Status buckets the deviation between a seller price and the market quote.
type Status string

const (
	StatusOptimal  Status = "optimal"
	StatusTooHigh  Status = "too_high"
	StatusTooLow   Status = "too_low"
	StatusVolatile Status = "volatile"
)

const (
	recommendOptimal  = "Your price is competitive and aligned with the market."
	recommendTooHigh  = "Your price is well above the market rate; consider lowering it."
	recommendTooLow   = "Your price is well below the market rate; consider raising it."
	recommendVolatile = "Your price deviates from the market rate; monitor price trends."
)

var (
	optimalBandPct = decimal.NewFromInt(5)
	extremeBandPct = decimal.NewFromInt(15)
	hundred        = decimal.NewFromInt(100)
)

// Verdict is the outcome of classifying one price pair.
type Verdict struct {
	Status         Status
	Difference     decimal.Decimal
	Percentage     decimal.Decimal
	Recommendation string
}

// Classify maps a (userPrice, marketPrice) pair to a deviation verdict.
// marketPrice must be positive; the caller excludes zero-priced quotes.
//
// percentage = (userPrice - marketPrice) / marketPrice * 100. Buckets are
// evaluated in order, first match wins: |pct| <= 5 is optimal, pct > 15 is
// too_high (strict, so exactly 15 is volatile), pct < -15 is too_low, and
// everything else is volatile. The function is pure: no I/O, no state.
func Classify(userPrice, marketPrice decimal.Decimal) Verdict {
	difference := userPrice.Sub(marketPrice)
	percentage := difference.Div(marketPrice).Mul(hundred)

	verdict := Verdict{Difference: difference, Percentage: percentage}
	switch {
	case percentage.Abs().LessThanOrEqual(optimalBandPct):
		verdict.Status = StatusOptimal
		verdict.Recommendation = recommendOptimal
	case percentage.GreaterThan(extremeBandPct):
		verdict.Status = StatusTooHigh
		verdict.Recommendation = recommendTooHigh
	case percentage.LessThan(extremeBandPct.Neg()):
		verdict.Status = StatusTooLow
		verdict.Recommendation = recommendTooLow
	default:
		verdict.Status = StatusVolatile
		verdict.Recommendation = recommendVolatile
	}
	return verdict
}
