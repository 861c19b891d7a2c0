package kpi

import (
	"time"

	"github.com/shopspring/decimal"
)

const maxPercent = 100

var nanosPerDay = decimal.NewFromInt(int64(24 * time.Hour))

// Percent returns num/den as a whole percentage rounded half up and clamped
// to [0,100]. A non-positive denominator gives 0.
func Percent(num, den int) int {
	if den <= 0 || num <= 0 {
		return 0
	}
	if num >= den {
		return maxPercent
	}
	return (2*maxPercent*num + den) / (2 * den)
}

// Whole rounds a money amount to whole currency units.
func Whole(amount decimal.Decimal) int64 {
	return amount.Round(0).IntPart()
}

// PerUnit divides amount across n units and rounds to whole currency units.
// A non-positive n gives 0.
func PerUnit(amount decimal.Decimal, n int) int64 {
	if n <= 0 {
		return 0
	}
	return amount.Div(decimal.NewFromInt(int64(n))).Round(0).IntPart()
}

// Multiplier returns num/den rounded to one decimal. A non-positive
// denominator gives 0.
func Multiplier(num, den decimal.Decimal) float64 {
	if den.Sign() <= 0 {
		return 0
	}
	return num.Div(den).Round(1).InexactFloat64()
}

// AverageDays returns the mean of ds in days rounded to one decimal.
func AverageDays(ds []time.Duration) float64 {
	if len(ds) == 0 {
		return 0
	}
	total := decimal.Zero
	for _, d := range ds {
		total = total.Add(decimal.NewFromInt(int64(d)))
	}
	return total.Div(nanosPerDay).Div(decimal.NewFromInt(int64(len(ds)))).Round(1).InexactFloat64()
}
