package fields

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Ordered from the most specific layout to catch-alls.
var invoiceNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d{8})\nSố HĐ\s*/\s*Invoice No\.`),
	regexp.MustCompile(`(?i)(\d{4,8})\n\s*Số\s*\(?No\.?\)?[:\s]*`),
	regexp.MustCompile(`(?i)Số HĐ\s*/\s*Invoice No\.?[:\s]*(\d{5,})`),
	regexp.MustCompile(`(?i)\(\s*VAT\s*INVOICE\s*\)[:\s]*(\d+)`),
	regexp.MustCompile(`(?i)Invoice No\.?[:\s]*(\d{5,})`),
	regexp.MustCompile(`(?i)S[ốo]\s*[(/]?\s*No\.?\s*[)/]?[:\s]*(\d{5,})`),
	regexp.MustCompile(`(?i)S[ốo][/\s]*[(]?\s*Invoice No\.?\s*[)]?[:\s]*(\d+)`),
	regexp.MustCompile(`(?i)\(RESTAURANT BILL\)\s*(\d+)`),
	regexp.MustCompile(`(?i)Số:\s*(\d+)`),
	regexp.MustCompile(`(?i)Số hóa đơn[:\s]*(\d+)`),
	regexp.MustCompile(`(?i)S[ốo]\s*[(/]?\s*No\.?\s*[)/]?[:\s]*(\d+)`),
	regexp.MustCompile(`(?i)s[éèẹẽe][: ]+\s*(\d+)`),
	regexp.MustCompile(`(?i)S[óố][: ]+\s*(\d+)`),
}

var fileNameSplit = regexp.MustCompile(`[_\-\s]`)

func (e *Extractor) invoiceNumberRules() []Rule {
	return []Rule{
		{Name: "number/labelled", Apply: e.labelledInvoiceNumber},
		{Name: "number/fileName", Apply: invoiceNumberFromFileName},
	}
}

// labelledInvoiceNumber skips matches on address lines and numbers shorter
// than three digits.
func (e *Extractor) labelledInvoiceNumber(d *Document, _ Values) []Match {
	for _, re := range invoiceNumberPatterns {
		for _, idx := range re.FindAllStringSubmatchIndex(d.Text, -1) {
			num := d.Text[idx[2]:idx[3]]
			line := strings.ToLower(lineAt(d.Text, idx[0], idx[1]))
			if e.tables.HasAddressContext(line) {
				e.log.Debug().Str("line", strings.TrimSpace(line)).Msg("Skipped address-like invoice number")
				continue
			}
			if len(num) < 3 {
				continue
			}
			return one(Number, num)
		}
	}
	return nil
}

// invoiceNumberFromFileName takes the last all-digit part of the file name.
func invoiceNumberFromFileName(d *Document, _ Values) []Match {
	base := strings.TrimSuffix(filepath.Base(d.FileName), filepath.Ext(d.FileName))
	var last string
	for _, part := range fileNameSplit.Split(base, -1) {
		if len(part) > 2 && allDigits(part) {
			last = part
		}
	}
	return one(Number, last)
}

var serialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Ký hiệu\s*/\s*Serial[:\s]*([A-Z0-9]+)`),
	regexp.MustCompile(`(?i)Ký hiệu\s*/\s*\(Serial(?:\s*No\.?)?\)[:\s]*([A-Z0-9]+)`),
	regexp.MustCompile(`(?i)Ký hiệu\s*\(Serial(?:\s*No\.?)?\)[:\s]*([A-Z0-9]+)`),
	regexp.MustCompile(`(?i)Ký hiệu\s*\(Series\)[:\s]*([A-Z0-9]+)`),
	regexp.MustCompile(`(?i)Ký hiệu[:\s]*([A-Z0-9]+)`),
	regexp.MustCompile(`(?i)Mẫu số\s*-\s*Ký hiệu[^:]*[:\s]*([A-Z0-9]+)`),
}

func serialRules() []Rule {
	return []Rule{{
		Name: "serial/labelled",
		Apply: func(d *Document, _ Values) []Match {
			for _, re := range serialPatterns {
				for _, m := range re.FindAllStringSubmatch(d.Text, -1) {
					if validSerial(m[1]) {
						return one(Serial, strings.ToUpper(m[1]))
					}
				}
			}
			return nil
		},
	}}
}

// validSerial rejects captions caught by the case-insensitive patterns
// ("Ký hiệu mẫu số" would otherwise give "m").
func validSerial(s string) bool {
	return len(s) >= 3 && strings.ContainsAny(s, "0123456789")
}

var authorityCodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Mã\s*(?:của\s*)?cơ quan thuế[:\s]*([A-Za-z0-9\-\x{00AD}]+)`),
	regexp.MustCompile(`(?i)Mã\s*(?:của\s*)?cơ quan thuế\s*\(Tax authority code\)[:\s]*([A-Za-z0-9\-\x{00AD}]+)`),
	regexp.MustCompile(`(?i)Mã\s*CQT\s*\(Code\)[:\s]*([A-Za-z0-9\-\x{00AD}]+)`),
	regexp.MustCompile(`(?i)Mã\s*CQT[:\s]*([A-Za-z0-9\-\x{00AD}]+)`),
	regexp.MustCompile(`(?i)MCQT\s*[:\s]+([A-Za-z0-9\-\x{00AD}]+)`),
	regexp.MustCompile(`(?i)Tax authority code[:\s]*([A-Za-z0-9\-\x{00AD}]+)`),
	regexp.MustCompile(`(?i)(?:Mã|Ma)\s*(?:của)?\s*(?:CQ|cơ\s*quan)\s*thuế[:\s]*([A-Z0-9\-]+)`),
}

func authorityCodeRules() []Rule {
	return []Rule{{
		Name: "authorityCode/labelled",
		Apply: func(d *Document, _ Values) []Match {
			for _, re := range authorityCodePatterns {
				if code := firstGroup(re, d.Text); code != "" {
					return one(AuthorityCode, strings.ReplaceAll(code, "\u00ad", "-"))
				}
			}
			return nil
		},
	}}
}
