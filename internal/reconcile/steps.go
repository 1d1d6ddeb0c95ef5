package reconcile

import (
	"github.com/facturaIA/hoadon-extractor/internal/models"
	"github.com/facturaIA/hoadon-extractor/internal/money"
)

// materiality is the base below which a tax larger than its base is tolerated.
const materiality money.VND = 10000

// step is one reconciliation rule. Apply runs only when When holds.
type step struct {
	Name  string
	When  func(l *ledger) bool
	Apply func(l *ledger)
}

// steps is the rule order. Each rule sees the results of the ones before it.
var steps = []step{
	{Name: "otherRateLabel", When: hasOtherRate, Apply: applyOtherRate},
	{Name: "taxFromBuckets", When: taxFromBucketsWhen, Apply: taxFromBuckets},
	{Name: "template", When: templateWhen, Apply: applyTemplate},
	{Name: "totalFromPreTax", When: totalFromPreTaxWhen, Apply: totalFromPreTax},
	{Name: "preTaxFromTotal", When: preTaxFromTotalWhen, Apply: preTaxFromTotal},
	{Name: "itemSum", When: itemSumWhen, Apply: itemSum},
	{Name: "itemTax", When: itemTaxWhen, Apply: itemTax},
	{Name: "taxSanity", When: taxSanityWhen, Apply: taxSanity},
	{Name: "taxFromBucketsAfterSanity", When: taxFromBucketsWhen, Apply: taxFromBuckets},
	{Name: "inferRate", When: inferRateWhen, Apply: inferRate},
	{Name: "duplicateOther", When: duplicateOtherWhen, Apply: func(l *ledger) { l.clear(&l.rec.TaxOther) }},
}

func hasOtherRate(l *ledger) bool { return l.otherRate != nil }

// applyOtherRate turns a bare rate label into its bucket: the known tax total,
// or the tax computed from the pre-tax amount.
func applyOtherRate(l *ledger) {
	rate := *l.otherRate
	l.otherRate = nil
	r := l.rec
	bucket := r.Bucket(rate)
	if l.known(bucket) {
		return
	}
	if tax, ok := l.get(&r.TaxTotal); ok {
		l.set(bucket, tax)
		return
	}
	pre, ok := l.get(&r.PreTax)
	if !ok {
		return
	}
	tax := money.ApplyRate(pre, rate)
	l.set(bucket, tax)
	l.set(&r.TaxTotal, tax)
	// a total equal to the pre-tax amount was assumed before the rate was known
	if total, ok := l.get(&r.Total); !ok || money.Within(total, pre, 100) {
		l.set(&r.Total, pre+tax)
	}
}

func taxFromBucketsWhen(l *ledger) bool {
	if l.known(&l.rec.TaxTotal) {
		return false
	}
	for _, b := range l.buckets() {
		if l.known(b) {
			return true
		}
	}
	return false
}

func taxFromBuckets(l *ledger) {
	var sum money.VND
	for _, b := range l.buckets() {
		sum += b.Or(0)
	}
	if sum > 0 {
		l.set(&l.rec.TaxTotal, sum)
	}
}

func templateWhen(l *ledger) bool {
	return l.template != nil && l.rec.Bucket(l.template.Rate) != nil
}

// applyTemplate fills amounts of a retailer that always charges one rate.
func applyTemplate(l *ledger) {
	r := l.rec
	rate := l.template.Rate
	bucket := r.Bucket(rate)

	pre, hasPre := l.get(&r.PreTax)
	tax, hasTax := l.get(&r.TaxTotal)
	total, hasTotal := l.get(&r.Total)

	switch {
	case !hasTotal && hasPre && !hasTax:
		tax = money.ApplyRate(pre, rate)
		l.set(&r.TaxTotal, tax)
		l.set(&r.Total, pre+tax)
		hasTax = true
	case !hasPre && hasTotal:
		pre = money.RemoveRate(total, rate)
		l.set(&r.PreTax, pre)
		if !hasTax {
			tax = total - pre
			l.set(&r.TaxTotal, tax)
			hasTax = true
		}
	}
	if hasTax && !l.anyRateBucket() {
		l.set(bucket, tax)
	}
}

func totalFromPreTaxWhen(l *ledger) bool {
	return !l.known(&l.rec.Total) && l.known(&l.rec.PreTax)
}

// totalFromPreTax adds the known tax, or assumes no VAT.
func totalFromPreTax(l *ledger) {
	pre, _ := l.get(&l.rec.PreTax)
	l.set(&l.rec.Total, pre+l.rec.TaxTotal.Or(0))
}

func preTaxFromTotalWhen(l *ledger) bool {
	return l.known(&l.rec.Total) && !l.known(&l.rec.PreTax)
}

func preTaxFromTotal(l *ledger) {
	total, _ := l.get(&l.rec.Total)
	tax := l.rec.TaxTotal.Or(0)
	if tax >= total {
		tax = 0
	}
	l.set(&l.rec.PreTax, total-tax)
}

func itemSumWhen(l *ledger) bool {
	return len(l.items) > 0 && (!l.known(&l.rec.PreTax) || !l.known(&l.rec.Total))
}

// itemSum substitutes the sum of line amounts for a missing pre-tax amount.
func itemSum(l *ledger) {
	var sum money.VND
	for _, it := range l.items {
		if v, ok := it.AmountValue(); ok {
			sum += v
		}
	}
	if sum <= 0 {
		return
	}
	r := l.rec
	if !l.known(&r.PreTax) {
		l.set(&r.PreTax, sum)
	}
	if !l.known(&r.Total) {
		pre, _ := l.get(&r.PreTax)
		l.set(&r.Total, pre+r.TaxTotal.Or(0))
	}
}

func itemTaxWhen(l *ledger) bool {
	for _, it := range l.items {
		if it.TaxRate != nil && l.rec.Bucket(*it.TaxRate) != nil {
			return true
		}
	}
	return false
}

// itemTax estimates tax per rate from the line amounts. A bucket is replaced
// when it is zero or off by more than half of the estimate.
func itemTax(l *ledger) {
	perRate := map[int]money.VND{}
	found := false
	for _, it := range l.items {
		if it.TaxRate == nil || l.rec.Bucket(*it.TaxRate) == nil {
			continue
		}
		amt, ok := it.AmountValue()
		if !ok {
			continue
		}
		perRate[*it.TaxRate] += money.ApplyRate(amt, *it.TaxRate)
		found = true
	}
	if !found {
		return
	}

	var sum money.VND
	for _, rate := range models.Rates {
		est := perRate[rate]
		sum += est
		if est <= 0 {
			continue
		}
		bucket := l.rec.Bucket(rate)
		cur := bucket.Or(0)
		if cur == 0 || !money.Within(cur, est, est/2) {
			l.set(bucket, est)
		}
	}
	if cur := l.rec.TaxTotal.Or(0); cur == 0 || (sum > cur && sum > money.NoiseFloor) {
		l.set(&l.rec.TaxTotal, sum)
	}
}

func taxSanityWhen(l *ledger) bool {
	tax, ok := l.get(&l.rec.TaxTotal)
	if !ok || tax <= 0 {
		return false
	}
	base, ok := l.get(&l.rec.PreTax)
	if !ok || base == 0 {
		base, ok = l.get(&l.rec.Total)
	}
	return ok && base > materiality && tax >= base
}

// taxSanity discards a tax that is not smaller than its base, along with the
// buckets that copied it.
func taxSanity(l *ledger) {
	tax, _ := l.get(&l.rec.TaxTotal)
	l.clear(&l.rec.TaxTotal)
	for _, b := range l.buckets() {
		if v, ok := l.get(b); ok && v == tax {
			l.clear(b)
		}
	}
}

func inferRateWhen(l *ledger) bool {
	tax, ok := l.get(&l.rec.TaxTotal)
	if !ok || tax <= 0 || l.anyRateBucket() {
		return false
	}
	pre, ok := l.get(&l.rec.PreTax)
	return ok && pre > 0
}

// inferRate files the tax total under the rate it implies, if that rate is
// a recognized one.
func inferRate(l *ledger) {
	tax, _ := l.get(&l.rec.TaxTotal)
	pre, _ := l.get(&l.rec.PreTax)
	rate, ok := money.InferRate(tax, pre)
	if !ok {
		return
	}
	if bucket := l.rec.Bucket(rate); bucket != nil {
		l.set(bucket, tax)
	}
}

func duplicateOtherWhen(l *ledger) bool {
	other, ok := l.get(&l.rec.TaxOther)
	if !ok {
		return false
	}
	total, hasTotal := l.get(&l.rec.Total)
	tax, hasTax := l.get(&l.rec.TaxTotal)
	return (hasTotal && other == total) || (hasTax && other == tax)
}
