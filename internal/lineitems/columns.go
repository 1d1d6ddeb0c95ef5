package lineitems

import (
	"strings"

	"github.com/shopspring/decimal"
)

var separators = strings.NewReplacer(".", "", ",", "")

// assignColumns maps the numeric tokens of a row to quantity, unit price and
// amount.
func assignColumns(nums []string) (qty, price, amount string, ok bool) {
	switch {
	case len(nums) >= 5:
		qty, price = nums[0], nums[1]
		return qty, price, pickAmount(nums), true
	case len(nums) >= 3:
		return nums[0], nums[1], nums[2], true
	case len(nums) == 2:
		return nums[0], nums[1], nums[1], true
	}
	return "", "", "", false
}

// pickAmount handles rows with an extra discount or service-charge column
// between the unit price and the amount. Of the two candidates it prefers the
// one closer to quantity × unit price.
func pickAmount(nums []string) string {
	cand2, cand3 := nums[2], nums[3]
	discount := strings.Trim(separators.Replace(cand2), "0") == ""

	qty, err1 := quantityValue(nums[0])
	price, err2 := priceValue(nums[1])
	if err1 != nil || err2 != nil {
		if discount {
			return cand3
		}
		return cand2
	}

	expected := qty.Mul(price)
	if expected.IsZero() && qty.IsZero() {
		expected = price
	}
	v2 := localValue(cand2)
	v3 := localValue(cand3)
	diff2 := v2.Sub(expected).Abs()
	diff3 := v3.Sub(expected).Abs()

	switch {
	case diff3.LessThan(diff2) && v2.LessThan(expected.Div(decimal.NewFromInt(2))):
		return cand3
	case discount:
		return cand3
	}
	return cand2
}

// quantityValue reads quantities such as "2", "1.5" or "1,5".
func quantityValue(s string) (decimal.Decimal, error) {
	if strings.Contains(s, ",") {
		return decimal.NewFromString(separators.Replace(s))
	}
	return decimal.NewFromString(s)
}

// priceValue reads a Vietnamese-formatted price. Dotted values under 100 are
// thousands groups ("45.000" read as 45.0 would be wrong).
func priceValue(s string) (decimal.Decimal, error) {
	v, err := decimal.NewFromString(strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", "."))
	if err != nil {
		return v, err
	}
	if v.LessThan(decimal.NewFromInt(100)) && strings.Contains(s, ".") {
		return decimal.NewFromString(separators.Replace(s))
	}
	return v, nil
}

// localValue reads dots as thousands and a comma as the decimal mark. Garbage
// reads as zero.
func localValue(s string) decimal.Decimal {
	v, err := decimal.NewFromString(strings.ReplaceAll(strings.ReplaceAll(s, ".", ""), ",", "."))
	if err != nil {
		return decimal.Zero
	}
	return v
}

// fixSwappedAmount repairs rows where a tax-rate digit was read as the amount.
func fixSwappedAmount(qty, price, amount string) (string, string, string) {
	a, p := separators.Replace(amount), separators.Replace(price)
	if !isDigits(a) || !isDigits(p) {
		return qty, price, amount
	}
	av, _ := decimal.NewFromString(a)
	pv, _ := decimal.NewFromString(p)
	if av.LessThanOrEqual(decimal.NewFromInt(100)) && pv.GreaterThan(decimal.NewFromInt(1000)) {
		amount = price
		if qty == "0" || qty == "" {
			qty = "1"
		}
	}
	return qty, price, amount
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
