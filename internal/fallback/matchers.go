package fallback

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"

	"github.com/facturaIA/hoadon-extractor/internal/fields"
	"github.com/facturaIA/hoadon-extractor/internal/money"
	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

// OCR output loses and swaps diacritics ("ông tiên hàng" for "Cộng tiền
// hàng"), so these patterns are looser than the text-layer ones and include
// the common misreadings.
var (
	ocrSerial = regexp.MustCompile(`[Kk]ý\s*hiệu[:\s]*([A-Z0-9]+)`)
	ocrSeller = regexp.MustCompile(`(?i)^(CÔNG TY|CHI NHÁNH|DNTN|TRUNG TÂM|HỘ KINH DOANH|CỬA HÀNG)`)

	ocrNumber = []*regexp.Regexp{
		regexp.MustCompile(`[Ss][oố]\s*hóa\s*đơn[:\s]+(\d{5,})`),
		regexp.MustCompile(`[Ss]ố\s*(?:HĐ)[:\s]*(\d+)`),
		regexp.MustCompile(`[Ss][oố][:\s]+(\d{6,})`),
		regexp.MustCompile(`[Nn]o\.?[:\s]*(\d{5,})`),
		regexp.MustCompile(`Invoice No\.?[:\s]*(\d+)`),
		regexp.MustCompile(`[Ss][ốo]\s*[(/]?\s*No\.?\s*[)/]?[:\s]*(\d+)`),
		regexp.MustCompile(`\(\s*VAT\s*INVOICE\s*\)[:\s]*(\d+)`),
		regexp.MustCompile(`Số:\s*(\d+)`),
	}
	// mobile and hotline prefixes read as invoice numbers
	phoneLike      = regexp.MustCompile(`^(18|19|09|08|07|06|05|03|02|01)\d{6,}`)
	fileNameNumber = regexp.MustCompile(`_(\d{5,})`)

	ocrDates = []*regexp.Regexp{
		regexp.MustCompile(`[Nn]gày\s*(\d{1,2})\s*tháng\s*(\d{1,2})\s*năm\s*(\d{4})`),
		regexp.MustCompile(`[Nn]ga[yỳ]\s*(\d{1,2})\s*thang\s*(\d{1,2})\s*nam\s*(\d{4})`),
		regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{4})`),
	}

	ocrTaxCode = []*regexp.Regexp{
		regexp.MustCompile(`[Mm]a\s*số\s*thuế[:\s]*([\d\-\x{00AD}\s]+)`),
		regexp.MustCompile(`MST[:\s]*([\d\-\x{00AD}\s]+)`),
		regexp.MustCompile(`[Mm]ã\s*số\s*thuế[:\s]*([\d\-\x{00AD}\s]+)`),
		regexp.MustCompile(`[Mm]a\s*s[eoc]\s*thu[eé][:\s]*([\d\-\x{00AD}\s]+)`),
		regexp.MustCompile(`[Mm]a\s*s.\s*thu.[:\s]*([\d\-\x{00AD}\s]+)`),
		regexp.MustCompile(`tax\s*code[:\s]*([\d\-\x{00AD}\s]+)`),
	}
	foldedTaxCode = regexp.MustCompile(`(?:ma se thue|ma so thue|mst)[^0-9]*([0-9]{10,14})`)
	taxCodeStrip  = strings.NewReplacer(" ", "", ".", "", "-", "", "\u00ad", "")

	ocrPreTax = []*regexp.Regexp{
		regexp.MustCompile(`ông\s*tiên\s*hàng[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`ông\s*tiên\s*hang[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`[Cc]ộng\s*tiền\s*hàng[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`[Tt]iền\s*hàng[:\s]*([\d\.,]+)`),
	}
	ocrTax = []*regexp.Regexp{
		regexp.MustCompile(`lên\s*thuê\s*GTGT\s*\(\s*\d+\s*%?\s*\)\s*([\d\.,]+)`),
		regexp.MustCompile(`ién\s*thuê\s*GTGT\s*\(\s*\d+\s*%?\s*\)\s*([\d\.,]+)`),
		regexp.MustCompile(`[Tt]iền\s*thuế\s*GTGT[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`thuê\s*GTGT\s*\(\s*8\s*%?\s*\)\s*([\d\.,]+)`),
		regexp.MustCompile(`GTGT\s*\(\s*\d+\s*%?\s*\)\s*([\d\.,]+)`),
		regexp.MustCompile(`[Cc]XC[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`thuế\s*GTGT[:\s]*([\d\.,]+)`),
	}
	ocrTotal = []*regexp.Regexp{
		regexp.MustCompile(`ông\s*sô\s*tiên\s*thanh\s*toán[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`[Tt]ổng\s*(?:số\s*)?(?:cộng|tiền)\s*thanh\s*toán[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`thanh\s*toán[:\s]*([\d\.,]+)`),
		regexp.MustCompile(`[Tt]ổng\s*(?:cộng|tiền)[:\s]*([\d\.,]+)`),
	}
	yearLike     = regexp.MustCompile(`^20[0-9]{2}$`)
	inWords      = regexp.MustCompile(`(?im)(?:bằng chữ|bang chu)[:\s]*(.+?)(?:đồng|dong|$)`)
	eightPercent = regexp.MustCompile(`8\s*%`)
	tenPercent   = regexp.MustCompile(`10\s*%`)

	ocrLookupCode  = regexp.MustCompile(`(?i)(?:Mã|Ma)\s*(?:tra|tro)\s*(?:cứu|cuiu|cuu)[:\s]*([A-Z0-9*]+)`)
	longCode       = regexp.MustCompile(`\b([A-Z0-9]{10,})\b`)
	ocrAuthority   = regexp.MustCompile(`(?i)(?:Mã|Ma)\s*(?:CQT|cơ\s*quan\s*thuế)[:\s]*([A-Z0-9\-]+)`)
	ocrLink        = regexp.MustCompile(`(https?://[^\s]+)`)
)

// matchers builds the OCR cascades for the shared rule engine.
type matchers struct {
	tables *tables.Tables
}

func (m *matchers) cascades() []fields.Cascade {
	return []fields.Cascade{
		{Field: fields.Serial, Rules: []fields.Rule{{Name: "ocr/serial", Apply: single(fields.Serial, ocrSerial)}}},
		{Field: fields.Seller, Rules: []fields.Rule{{Name: "ocr/seller", Apply: ocrSellerLine}}},
		{Field: fields.Number, Rules: []fields.Rule{
			{Name: "ocr/number", Apply: ocrInvoiceNumber},
			{Name: "ocr/number/fileName", Apply: ocrNumberFromFileName},
		}},
		{Field: fields.Date, Rules: []fields.Rule{{Name: "ocr/date", Apply: ocrDate}}},
		{Field: fields.TaxCode, Rules: []fields.Rule{
			{Name: "ocr/taxCode", Apply: m.labelledTaxCode},
			{Name: "ocr/taxCode/unaccented", Apply: m.foldedTaxCode},
		}},
		{Field: fields.PreTax, Rules: []fields.Rule{{Name: "ocr/preTax", Apply: firstAmount(fields.PreTax, ocrPreTax)}}},
		{Field: fields.TaxTotal, Rules: []fields.Rule{{Name: "ocr/tax", Apply: firstOf(fields.TaxTotal, ocrTax)}}},
		{Rules: []fields.Rule{{Name: "ocr/rate", Apply: m.percentBucket}}},
		{Field: fields.Total, Rules: []fields.Rule{
			{Name: "ocr/total", Apply: firstAmount(fields.Total, ocrTotal)},
			{Name: "ocr/total/words", Apply: totalInWords},
		}},
		{Field: fields.TaxTotal, Rules: []fields.Rule{{Name: "ocr/tax/difference", Apply: taxFromDifference}}},
		{Field: fields.LookupCode, Rules: []fields.Rule{{Name: "ocr/lookupCode", Apply: ocrLookup}}},
		{Field: fields.AuthorityCode, Rules: []fields.Rule{{Name: "ocr/authorityCode", Apply: single(fields.AuthorityCode, ocrAuthority)}}},
		{Field: fields.LookupLink, Rules: []fields.Rule{{Name: "ocr/link", Apply: single(fields.LookupLink, ocrLink)}}},
	}
}

func match(f fields.Field, value string) []fields.Match {
	if value == "" {
		return nil
	}
	return []fields.Match{{Field: f, Value: value}}
}

// single returns the first capture of re.
func single(f fields.Field, re *regexp.Regexp) func(*fields.Document, fields.Values) []fields.Match {
	return func(d *fields.Document, _ fields.Values) []fields.Match {
		if m := re.FindStringSubmatch(d.Text); m != nil {
			return match(f, m[1])
		}
		return nil
	}
}

// firstOf returns the capture of the first pattern that matches.
func firstOf(f fields.Field, res []*regexp.Regexp) func(*fields.Document, fields.Values) []fields.Match {
	return func(d *fields.Document, _ fields.Values) []fields.Match {
		for _, re := range res {
			if m := re.FindStringSubmatch(d.Text); m != nil {
				return match(f, m[1])
			}
		}
		return nil
	}
}

// firstAmount is firstOf for amounts, skipping years and short fragments.
func firstAmount(f fields.Field, res []*regexp.Regexp) func(*fields.Document, fields.Values) []fields.Match {
	return func(d *fields.Document, _ fields.Values) []fields.Match {
		for _, re := range res {
			m := re.FindStringSubmatch(d.Text)
			if m == nil {
				continue
			}
			val := strings.TrimSpace(m[1])
			if !yearLike.MatchString(val) && len(val) >= 3 {
				return match(f, val)
			}
		}
		return nil
	}
}

// ocrSellerLine takes the first company-like line in the page header.
func ocrSellerLine(d *fields.Document, _ fields.Values) []fields.Match {
	for i, line := range d.Lines {
		if i >= 15 {
			break
		}
		line = strings.TrimSpace(line)
		if ocrSeller.MatchString(line) || strings.Contains(strings.ToUpper(line), "PETROLIMEX") {
			if j := strings.Index(line, "Ký hiệu:"); j >= 0 {
				line = strings.TrimSpace(line[:j])
			}
			return match(fields.Seller, line)
		}
	}
	return nil
}

func ocrInvoiceNumber(d *fields.Document, _ fields.Values) []fields.Match {
	for _, re := range ocrNumber {
		m := re.FindStringSubmatch(d.Text)
		if m == nil {
			continue
		}
		if !phoneLike.MatchString(m[1]) {
			return match(fields.Number, m[1])
		}
	}
	return nil
}

func ocrNumberFromFileName(d *fields.Document, _ fields.Values) []fields.Match {
	if m := fileNameNumber.FindStringSubmatch(d.FileName); m != nil {
		return match(fields.Number, m[1])
	}
	return nil
}

func ocrDate(d *fields.Document, _ fields.Values) []fields.Match {
	for _, re := range ocrDates {
		m := re.FindStringSubmatch(d.Text)
		if m == nil {
			continue
		}
		if date, ok := fields.FormatDate(m[1], m[2], m[3]); ok {
			return match(fields.Date, date)
		}
		return nil
	}
	return nil
}

// labelledTaxCode accepts the first labelled code of plausible length that is
// not a vendor code and is not printed on a vendor or buyer line.
func (m *matchers) labelledTaxCode(d *fields.Document, _ fields.Values) []fields.Match {
	for _, re := range ocrTaxCode {
		for _, loc := range re.FindAllStringSubmatchIndex(d.Text, -1) {
			raw := d.Text[loc[2]:loc[3]]
			if i := strings.IndexByte(raw, '\n'); i >= 0 {
				raw = raw[:i]
			}
			code := taxCodeStrip.Replace(raw)
			if len(code) < 10 || len(code) > 14 {
				continue
			}
			if m.tables.IsProviderTaxCode(code) {
				continue
			}
			line := strings.ToLower(lineAround(d.Text, loc[0], loc[2]))
			if tables.ContainsAny(line, m.tables.TaxCodeReject) || tables.ContainsAny(line, m.tables.OCRTaxCodeReject) {
				continue
			}
			return match(fields.TaxCode, code)
		}
	}
	return nil
}

func (m *matchers) foldedTaxCode(d *fields.Document, _ fields.Values) []fields.Match {
	folded := unidecode.Unidecode(strings.ToLower(d.Text))
	c := foldedTaxCode.FindStringSubmatch(folded)
	if c == nil || m.tables.IsProviderTaxCode(c[1]) {
		return nil
	}
	return match(fields.TaxCode, c[1])
}

func lineAround(text string, start, end int) string {
	s := strings.LastIndex(text[:start], "\n") + 1
	e := strings.Index(text[end:], "\n")
	if e < 0 {
		return text[s:]
	}
	return text[s : end+e]
}

// percentBucket files the tax under 8% or 10% when the page prints the rate.
// Template sellers are left to reconciliation, which applies their rate.
func (m *matchers) percentBucket(d *fields.Document, v fields.Values) []fields.Match {
	tax := v[fields.TaxTotal]
	if tax == "" || m.tables.MatchTemplate(strings.ToLower(d.Text)) != nil {
		return nil
	}
	switch {
	case eightPercent.MatchString(d.Text):
		return match(fields.Tax8, tax)
	case tenPercent.MatchString(d.Text):
		return match(fields.Tax10, tax)
	}
	return nil
}

// totalInWords reads the amount-in-words line when no figure was legible.
func totalInWords(d *fields.Document, _ fields.Values) []fields.Match {
	m := inWords.FindStringSubmatch(d.Text)
	if m == nil {
		return nil
	}
	n := ParseWords(strings.TrimSpace(m[1]))
	if n <= 0 {
		return nil
	}
	return match(fields.Total, money.Format(n))
}

// taxFromDifference derives the tax when both pre-tax and total were read.
func taxFromDifference(_ *fields.Document, v fields.Values) []fields.Match {
	pre, ok := money.ParseAmount(v[fields.PreTax])
	if !ok {
		return nil
	}
	total, ok := money.ParseAmount(v[fields.Total])
	if !ok || total <= pre {
		return nil
	}
	return match(fields.TaxTotal, money.Format(total-pre))
}

func ocrLookup(d *fields.Document, _ fields.Values) []fields.Match {
	m := ocrLookupCode.FindStringSubmatch(d.Text)
	if m == nil {
		m = longCode.FindStringSubmatch(d.Text)
	}
	if m == nil || len(m[1]) <= 5 {
		return nil
	}
	return match(fields.LookupCode, m[1])
}
