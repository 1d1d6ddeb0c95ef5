package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ApplyRate returns base × rate / 100, rounded to the nearest đồng.
func ApplyRate(base VND, rate int) VND {
	d := decimal.NewFromInt(int64(base)).
		Mul(decimal.NewFromInt(int64(rate))).
		Div(hundred)
	return VND(d.Round(0).IntPart())
}

// InferRate returns round(tax / base × 100). It fails when base is not positive.
func InferRate(tax, base VND) (int, bool) {
	if base <= 0 {
		return 0, false
	}
	pct := decimal.NewFromInt(int64(tax)).
		Div(decimal.NewFromInt(int64(base))).
		Mul(hundred)
	return int(pct.Round(0).IntPart()), true
}

// RemoveRate returns the pre-tax amount of a total that includes rate percent tax.
func RemoveRate(total VND, rate int) VND {
	divisor := decimal.NewFromInt(int64(100 + rate)).Div(hundred)
	return VND(decimal.NewFromInt(int64(total)).Div(divisor).Round(0).IntPart())
}

// Ratio returns tax / base rounded to two decimals, e.g. 0.08.
func Ratio(tax, base VND) (decimal.Decimal, bool) {
	if base <= 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(int64(tax)).Div(decimal.NewFromInt(int64(base))).Round(2), true
}

// Within reports whether a and b differ by at most tolerance.
func Within(a, b, tolerance VND) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}
