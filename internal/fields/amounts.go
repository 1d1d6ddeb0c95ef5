package fields

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/facturaIA/hoadon-extractor/internal/money"
)

const num = `(\d[\d\.,]*)`

var (
	preTaxPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Cộng tiền hàng\s*/\s*Total charges[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`(?i)Cộng tiền hàng[^:]*[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`(?i)Cộng ti[êề]n hàng[^:]*[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`(?i)Tổng tiền chưa thuế[^:]*[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`(?i)Thành ti[êềẫ]n trước thuế[^:]*[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`(?i)Amount before VAT[^:]*[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`(?i)Sub total[^:]*[:\s]*([\d\.,]+)`),
	}
	goodsRow = regexp.MustCompile(`(?i)Tiền hàng[:\s]+([\d\s.,]+)`)

	taxTotalPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Tiền thuế GTGT\s*/\s*VAT[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`(?i)Tổng tiền thuế GTGT \d+%[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`(?i)\|?Tiền thu[êế] GTGT\s*\(\s*\d+\s*%\s*\)\s*([\d\.,]+)`),
		regexp.MustCompile(`(?i)\|?Tiền thu[êế] GTGT[^:]*[:\s]+(\d[\d\.,]+)`),
		regexp.MustCompile(`(?i)Tiền thuế\s*\(VAT\s*Amount\)[^:]*[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`(?i)Tổng tiền thuế[^:]*[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`(?i)VAT amount[^:]*[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`(?i)Cộng tiền thuế GTGT[^:]*[:\s]*([\d\.,]+)`),
	}
	looseTaxTotal = regexp.MustCompile(`(?i)(?:Tiền thuế|Thuế GTGT|VAT)\s*[\(\d%]*\)?[:\s]*([0-9]+[.,][0-9]+)`)

	serviceFee = regexp.MustCompile(`(?i)Phí\s*PV[^:]*[:\s]*([\d\.,]+)`)

	// a rate printed alone, with its amounts elsewhere
	rateLabel = regexp.MustCompile(`(?im)Thuế suất(?:\s*GTGT)?\s*[:(]?\s*(0|5|8|10)\s*%\s*\)?\s*$`)
)

// rateColumn is a per-rate summary layout and the capture group holding the tax.
type rateColumn struct {
	re    *regexp.Regexp
	rate  int
	group int
}

func expandRates(layout string, group int, rates ...int) []rateColumn {
	out := make([]rateColumn, 0, len(rates))
	for _, r := range rates {
		out = append(out, rateColumn{
			re:    regexp.MustCompile(fmt.Sprintf(layout, r)),
			rate:  r,
			group: group,
		})
	}
	return out
}

func concatColumns(groups ...[]rateColumn) []rateColumn {
	var out []rateColumn
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Later layouts overwrite earlier ones for the same rate.
var rateColumns = concatColumns(
	expandRates(`(?i)Thuế suất\s*%d\s*%%[^:\n]*[:\s]+`+num+`\s+`+num+`\s+`+num, 2, 0, 5, 8, 10),
	expandRates(`(?i)Thuế suất\s*khác[^0-9\n]*%d\s*%%\s+`+num+`\s+`+num+`\s+`+num+`\s+`+num+`\s+`+num, 4, 8, 10, 5),
	expandRates(`(?i)Tổng tiền chịu thuế suất[^:\n]*:\s*%d\s*%%\s+`+num+`\s+`+num+`\s+`+num, 2, 0, 5, 8, 10),
	expandRates(`(?i)Thuế suất(?:\s*GTGT)?[:\s]*%d\s*%%\s*Tiền thuế GTGT[:\s]*`+num, 1, 8, 10, 5),
	expandRates(`(?i)Tiền thuế GTGT[:\s]*[\(\[]?\s*%d\s*%%\s*[\)\]]?\s*`+num, 1, 8, 10, 5),
	expandRates(`(?i)Tiền thuế[:\s]*[\(\[]?\s*%d\s*%%\s*[\)\]]?[:\s]*`+num, 1, 10, 8, 5),
	expandRates(`(?i)Tiền thuế[^%%\d]*%d\s*%%.*?`+num, 1, 10, 8, 5),
)

// Single-value layouts, used only when no column layout matched.
var rateLabels = concatColumns(
	expandRates(`(?i)Tổng tiền thuế GTGT\s*%d\s*%%\s*[:\s]*`+num, 1, 0, 5, 8, 10),
	expandRates(`(?i)(?:thuế gtgt|VAT)\s*[\(\[]?\s*%d\s*%%\s*[\)\]]?\s*[:\s]*`+num, 1, 0, 5, 8, 10),
	expandRates(`(?i)Tiền thu[êế] GTGT\s*\(\s*%d\s*%%\s*\)\s*`+num, 1, 0, 5, 8, 10),
)

func scanRates(text string, layouts []rateColumn) map[int]string {
	found := map[int]string{}
	for _, c := range layouts {
		if m := lastSubmatch(c.re, text); m != nil {
			found[c.rate] = m[c.group]
		}
	}
	return found
}

func rateMatches(found map[int]string) []Match {
	var out []Match
	for _, r := range []int{0, 5, 8, 10} {
		if v, ok := found[r]; ok {
			f, _ := BucketField(r)
			out = append(out, Match{Field: f, Value: v})
		}
	}
	return out
}

func preTaxRules() []Rule {
	return []Rule{
		{Name: "preTax/labelled", Apply: func(d *Document, _ Values) []Match {
			for _, re := range preTaxPatterns {
				if v := lastGroup(re, d.Text); v != "" {
					return one(PreTax, v)
				}
			}
			return nil
		}},
		{Name: "preTax/goodsRow", Apply: func(d *Document, _ Values) []Match {
			if m := goodsRow.FindStringSubmatch(d.Text); m != nil {
				return one(PreTax, lastNonZero(m[1]))
			}
			return nil
		}},
	}
}

func taxTotalRules() []Rule {
	return []Rule{
		{Name: "taxTotal/labelled", Apply: func(d *Document, _ Values) []Match {
			for _, re := range taxTotalPatterns {
				if v := lastGroup(re, d.Text); v != "" {
					return one(TaxTotal, v)
				}
			}
			return nil
		}},
		{Name: "taxTotal/loose", Apply: func(d *Document, _ Values) []Match {
			return one(TaxTotal, firstGroup(looseTaxTotal, d.Text))
		}},
	}
}

func rateRules() []Rule {
	return []Rule{
		{Name: "rates/labels", Apply: func(d *Document, v Values) []Match {
			if len(scanRates(d.Text, rateColumns)) > 0 {
				return nil
			}
			return rateMatches(scanRates(d.Text, rateLabels))
		}},
		{Name: "rates/bareRate", Apply: func(d *Document, _ Values) []Match {
			return one(TaxOther, firstGroup(rateLabel, d.Text))
		}},
		{Name: "rates/columns", Tier: Authoritative, Apply: func(d *Document, _ Values) []Match {
			return rateMatches(scanRates(d.Text, rateColumns))
		}},
	}
}

func serviceFeeRules() []Rule {
	return []Rule{{Name: "serviceFee/labelled", Apply: func(d *Document, _ Values) []Match {
		return one(ServiceFee, firstGroup(serviceFee, d.Text))
	}}}
}

var totalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Tổng cộng\s*/\s*Total Amount[:\s]*([\d\.,]+)`),
	// five columns: before discount, discount, after discount, tax, total
	regexp.MustCompile(`(?i)Tổng cộng tiền thanh toán\s*\(Total amount\)\s*([\d\.,\s]+)`),
	regexp.MustCompile(`(?i)Tổng cộng\s*\(Total amount\)\s*[:]\s*[\d\.,]+\s+([\d\.,]+)\s+([\d\.,]+)\s+([\d\.,]+)`),
	regexp.MustCompile(`(?i)Tổng tiền chịu thuế suất\s*\(Total amount\)\s*[:]\s*\d+%\s+[\d\.,]+\s+([\d\.,]+)\s+([\d\.,]+)\s+([\d\.,]+)`),
	regexp.MustCompile(`(?i)Tổng cộng\s*\(Total amount\)\s*[:]\s*([\d\.,]+)\s+([\d\.,]+)\s+([\d\.,]+)`),
	regexp.MustCompile(`(?i)Tổng\s*cộng\s*\(Total\)?[:\s]*([\d\.,]+)\s+([\d\.,]+)\s+([\d\.,]+)`),
	regexp.MustCompile(`(?i)Tổngcộng[:\s]*([\d\.,]+)\s+([\d\.,]+)\s+([\d\.,]+)`),
	regexp.MustCompile(`(?i)Tổng cộng\s*[:]\s*([\d\.,]+)\s+([\d\.,]+)\s+([\d\.,]+)`),
	regexp.MustCompile(`(?i)Tổng tiền chịu thuế suất.*[:\s]*[\d\.,]*%\s+([\d\.,]+)\s+([\d\.,]+)\s+([\d\.,]+)`),
	regexp.MustCompile(`(?i)Tổng\s*tiền\s*thanh\s*toán\s*\([^)]+\)[:\s]*([\d\.,]+)`),
	regexp.MustCompile(`(?i)[IT].{1,3}ng\s*số\s*ti[êề]n\s*thanh\s*toán[:\s]*([\d\.,]+)`),
	regexp.MustCompile(`(?i)Cộng tiền hàng hóa, dịch vụ[:\s]*[\d\.,]+\s+[\d\.,]+\s+([\d\.,]+)`),
	regexp.MustCompile(`(?i)Tổng\s*cộng\s*tiền\s*thanh\s*toán[^:]*[:\s]*([\d\.,]+)`),
	regexp.MustCompile(`(?i)Total\s*payment[^:]*[:\s]*([\d\.,]+)`),
	regexp.MustCompile(`(?i)TỔNG CỘNG TIỀN THANH TOÁN[^:]*[:\s]*([\d\.,]+)`),
	regexp.MustCompile(`(?i)Tổng cộng[:\s]+([\d\.,]+)\s+[\d\.,]+\s+([\d\.,]+)`),
	regexp.MustCompile(`(?i)thuế suất:\s*\d+%\s+([\d\.,]+)\s+([\d\.,]+)\s+([\d\.,]+)`),
}

var (
	paymentRow  = regexp.MustCompile(`(?i)Tiền thanh toán[:\s]+([\d\s.,]+)`)
	directSales = regexp.MustCompile(`(?i)Cộng tiền bán hàng hóa, dịch vụ[:\s]*([\d\.,]+)`)
	salesTotal  = regexp.MustCompile(`(?i)(?:Total amount|dịch vụ\s*\(Total amount\))[:\s]*([\d\.,]+)`)
	amountParts = regexp.MustCompile(`^[0-9.,]+$`)
)

// totalRow is the first matching total layout.
type totalRow struct {
	pre, tax, total string
	columns         bool // the row carries pre-tax and tax as well
}

func findTotalRow(text string) (totalRow, bool) {
	for _, re := range totalPatterns {
		m := lastSubmatch(re, text)
		if m == nil {
			continue
		}
		g := m[1:]
		switch {
		case len(g) >= 3:
			return totalRow{pre: g[0], tax: g[1], total: g[len(g)-1], columns: true}, true
		case len(g) == 2:
			return totalRow{pre: g[0], total: g[1]}, true
		}
		parts := strings.Fields(g[0])
		if len(parts) >= 3 && numericParts(parts) {
			return totalRow{pre: parts[0], tax: parts[len(parts)-2], total: parts[len(parts)-1], columns: true}, true
		}
		return totalRow{total: strings.TrimSpace(g[0])}, true
	}
	return totalRow{}, false
}

func numericParts(parts []string) bool {
	for _, p := range parts {
		if !amountParts.MatchString(p) {
			return false
		}
	}
	return true
}

func isSalesInvoice(d *Document) bool {
	up := d.Upper()
	return strings.Contains(up, "HÓA ĐƠN BÁN HÀNG") || strings.Contains(up, "(SALES INVOICE)")
}

func totalRules() []Rule {
	return []Rule{
		{Name: "total/row", Apply: func(d *Document, _ Values) []Match {
			row, ok := findTotalRow(d.Text)
			if !ok || row.columns {
				return nil
			}
			out := one(Total, row.total)
			return append(out, one(PreTax, row.pre)...)
		}},
		{Name: "total/paymentRow", Apply: func(d *Document, _ Values) []Match {
			if m := paymentRow.FindStringSubmatch(d.Text); m != nil {
				return one(Total, lastNonZero(m[1]))
			}
			return nil
		}},
		{Name: "total/directSales", Apply: func(d *Document, _ Values) []Match {
			v := firstGroup(directSales, d.Text)
			return append(one(Total, v), one(PreTax, v)...)
		}},
		{Name: "total/salesInvoice", Apply: func(d *Document, _ Values) []Match {
			if !isSalesInvoice(d) {
				return nil
			}
			return one(Total, firstGroup(salesTotal, d.Text))
		}},
		{Name: "total/hidden", Apply: func(d *Document, _ Values) []Match {
			return one(Total, d.HiddenTotal)
		}},
		{Name: "total/columns", Tier: Authoritative, Apply: func(d *Document, _ Values) []Match {
			row, ok := findTotalRow(d.Text)
			if !ok || !row.columns {
				return nil
			}
			return []Match{
				{Field: PreTax, Value: row.pre},
				{Field: TaxTotal, Value: row.tax},
				{Field: Total, Value: row.total},
			}
		}},
	}
}

// salesPreTaxRules copies the total of a sales invoice, which carries no VAT
// line, into the pre-tax amount.
func salesPreTaxRules() []Rule {
	return []Rule{{Name: "preTax/salesInvoice", Apply: func(d *Document, v Values) []Match {
		if !isSalesInvoice(d) {
			return nil
		}
		return one(PreTax, v[Total])
	}}}
}

var (
	goodsAndTax  = regexp.MustCompile(`(?i)Cộng tiền hàng hóa, dịch vụ[:\s]*([\d\.,]+)\s+([\d\.,]+)`)
	summaryLines = regexp.MustCompile(`(?i)(?:Hàng hóa|Cộng HHDV|Thuế suất|Total amount).*?(10%|8%|5%|0%).*?([\d\.,]+)\s+([\d\.,]+)(?:\s+([\d\.,]+))?`)
	grandTotal   = regexp.MustCompile(`(?im)(?:Tổng cộng tiền|Grand total).*?([\d\.,]+)\s+([\d\.,]+)\s+([\d\.,]+)\s*$`)
)

func parsedSorted(tokens ...string) []money.VND {
	var vals []money.VND
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if v, ok := money.Parse(t); ok {
			vals = append(vals, v)
		}
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	return vals
}

// summaryRules read the footer summary block, which supersedes partial
// captures from elsewhere on the page.
func summaryRules() []Rule {
	return []Rule{
		{Name: "summary/goodsAndTax", Tier: Authoritative, Apply: func(d *Document, _ Values) []Match {
			m := goodsAndTax.FindStringSubmatch(d.Text)
			if m == nil {
				return nil
			}
			return []Match{{Field: PreTax, Value: m[1]}, {Field: TaxTotal, Value: m[2]}}
		}},
		{Name: "summary/rateLines", Tier: Authoritative, Apply: func(d *Document, v Values) []Match {
			var out []Match
			var taxSum money.VND
			for _, m := range summaryLines.FindAllStringSubmatch(d.Text, -1) {
				vals := parsedSorted(m[2], m[3], m[4])
				if len(vals) < 2 {
					continue
				}
				rate, err := strconv.Atoi(strings.TrimSuffix(m[1], "%"))
				if err != nil {
					continue
				}
				f, ok := BucketField(rate)
				if !ok {
					continue
				}
				out = append(out, Match{Field: f, Value: money.Format(vals[0])})
				taxSum += vals[0]
			}
			if taxSum > 0 {
				out = append(out, Match{Field: TaxTotal, Value: money.Format(taxSum)})
			}
			return out
		}},
		{Name: "summary/grandTotal", Tier: Authoritative, Apply: func(d *Document, _ Values) []Match {
			m := grandTotal.FindStringSubmatch(d.Text)
			if m == nil {
				return nil
			}
			vals := parsedSorted(m[1], m[2], m[3])
			if len(vals) != 3 {
				return nil
			}
			return []Match{
				{Field: TaxTotal, Value: money.Format(vals[0])},
				{Field: PreTax, Value: money.Format(vals[1])},
				{Field: Total, Value: money.Format(vals[2])},
			}
		}},
	}
}
