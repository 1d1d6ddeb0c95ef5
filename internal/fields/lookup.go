package fields

import (
	"regexp"
	"strings"

	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

var (
	lookupCodePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Mã tra cứu hoá đơn[:\s]*([A-Za-z0-9]+)`),
		regexp.MustCompile(`(?i)Mã nhận hóa đơn\s*\(Code for checking\)[:\s]*([A-Z0-9]+)`),
		regexp.MustCompile(`(?i)Mã nhận hóa đơn[:\s]*([A-Za-z0-9]+)`),
		regexp.MustCompile(`(?i)Mã tra cứu\s*\(Lookup\s*code\)[:\s]*([A-Za-z0-9_]+)`),
		regexp.MustCompile(`(?i)Mã tra cứu hóa đơn\s*\(Invoice code\)[:\s]*([A-Za-z0-9_]+)`),
		regexp.MustCompile(`(?i)Mã tra cứu(?:\s*HĐĐT)?(?:\s*này)?[:\s]*([A-Za-z0-9_]+)`),
		regexp.MustCompile(`(?i)Mã tra cứu\(Invoice code\)[:\s]*([A-Za-z0-9_]+)`),
		regexp.MustCompile(`(?i)Mã số bí mật[:\s]*([A-Za-z0-9_]+)`),
		regexp.MustCompile(`(?i)Security Code\)[:\s]*([A-Z0-9]+)`),
		regexp.MustCompile(`(?i)Lookup\s*code[):\s]*([A-Za-z0-9]+)`),
		regexp.MustCompile(`(?i)Ma tra cuu[:\s]*([A-Za-z0-9]+)`),
		regexp.MustCompile(`(?i)Mã tra cứu\s*\(Code\)[:\s]*([A-Za-z0-9]+)`),
		regexp.MustCompile(`(?i)với mã[:\s]*([A-Za-z0-9]+)`),
		regexp.MustCompile(`(?i)nhập mã\s+([A-Za-z0-9]+)`),
		regexp.MustCompile(`(?i)provided code[^:]*[:\s]*([A-Za-z0-9]+)`),
	}
	lookupCodeNoise = []string{
		"http", "tracuu", "website", "invoice", "check", ".com", ".vn",
		"please", "vui lòng", "quý khách", "access",
	}

	longHexCode   = regexp.MustCompile(`(?i)(?:nhập mã|provided code).*?([a-f0-9]{30,})`)
	dashedCode    = regexp.MustCompile(`(?i)Mã tra cứu[:\s]*([A-Z0-9][A-Z0-9-]+)`)
	footerHexCode = regexp.MustCompile(`\b[A-F0-9]{8,}\b`)
	footerSerial  = []string{"serial number", "serial no", "ký điện tử", "ký điện tư", "chữ ký số"}

	codeAfterLink  = regexp.MustCompile(`(?i)(?:https?://[^\s]+)\s+([A-Za-z0-9]{6,50})\b`)
	codeBeforeLink = regexp.MustCompile(`(?i)\b([A-Za-z0-9]{6,50})\s+(?:https?://[^\s]+)`)
	linkWords      = map[string]bool{
		"website": true, "http": true, "https": true, "link": true,
		"tại": true, "vnbox": true, "vnpt": true, "invoice": true,
	}
)

func lookupCodeRules() []Rule {
	return []Rule{
		{Name: "lookupCode/labelled", Apply: labelledLookupCode},
		{Name: "lookupCode/longHex", Apply: func(d *Document, _ Values) []Match {
			return one(LookupCode, firstGroup(longHexCode, d.Text))
		}},
		{Name: "lookupCode/dashed", Apply: func(d *Document, _ Values) []Match {
			return one(LookupCode, firstGroup(dashedCode, d.Text))
		}},
		{Name: "lookupCode/footer", Apply: footerLookupCode},
		{Name: "lookupCode/nearLink", Apply: lookupCodeNearLink},
	}
}

// labelledLookupCode also hands over codes longer than 35 characters to the
// authority code, which is where such values belong.
func labelledLookupCode(d *Document, v Values) []Match {
	var out []Match
	for _, re := range lookupCodePatterns {
		m := re.FindStringSubmatch(d.Text)
		if m == nil {
			continue
		}
		code := m[1]
		if tables.ContainsAny(strings.ToLower(code), lookupCodeNoise) {
			continue
		}
		switch n := len(code); {
		case n >= 5 && n <= 35:
			return append(out, Match{Field: LookupCode, Value: code})
		case n > 35 && v[AuthorityCode] == "":
			out = append(out, Match{Field: AuthorityCode, Value: code})
		}
	}
	return out
}

// footerLookupCode picks an unlabelled hex code from the end of the document.
func footerLookupCode(d *Document, _ Values) []Match {
	footer := d.Text
	if len(footer) > 500 {
		footer = footer[len(footer)-500:]
	}
	for _, code := range footerHexCode.FindAllString(footer, -1) {
		if len(code) < 10 || allDigits(code) || strings.Contains(code, "0100") || strings.Contains(code, "030") {
			continue
		}
		if onSerialLine(footer, code) {
			continue
		}
		return one(LookupCode, code)
	}
	return nil
}

func onSerialLine(text, code string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.Contains(line, code) {
			return tables.ContainsAny(strings.ToLower(line), footerSerial)
		}
	}
	return false
}

func lookupCodeNearLink(d *Document, v Values) []Match {
	for _, re := range []*regexp.Regexp{codeAfterLink, codeBeforeLink} {
		for _, m := range re.FindAllStringSubmatch(d.Text, -1) {
			cand := m[1]
			lower := strings.ToLower(cand)
			if linkWords[lower] || strings.Contains(lower, "tracuu") {
				continue
			}
			if cand == v[TaxCode] {
				continue
			}
			return one(LookupCode, cand)
		}
	}
	return nil
}

var linkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Tra cứu hóa đơn tại\s*\([^)]+\)[:\s]*(https?://[^\s]+)`),
	regexp.MustCompile(`(?i)Tra cứu hóa đơn tại[:\s]*(https?://[^\s]+)`),
	regexp.MustCompile(`(?i)(?:Tra cứu[^:]*tại|Trang tra cứu|website)[:\s]*(https?://[^\s]+)`),
	regexp.MustCompile(`(?i)(https?://[^\s]*(?:tracuu|tra-cuu|invoice|vnpt-invoice|minvoice|hddt)[^\s]*)`),
	regexp.MustCompile(`(?i)(?:tải|lấy|xem|download)\s+(?:về\s+)?hóa đơn[^\n]*(https?://[^\s]+)`),
	regexp.MustCompile(`(?i)(https?://[^\s]+)[^\n]*(?:hóa đơn|tải về|lấy hóa đơn)`),
	// bare domains such as hoadon.pvoil.vn
	regexp.MustCompile(`(?i)(?:Tra cứu[^:]*tại|Trang tra cứu|website)[:\s]*([a-zA-Z0-9.-]+\.[a-zA-Z]{2,}(?:/[^\s]*)?)`),
}

func lookupLinkRules() []Rule {
	return []Rule{{
		Name: "lookupLink/labelled",
		Apply: func(d *Document, _ Values) []Match {
			for _, re := range linkPatterns {
				if link := normalizeLink(firstGroup(re, d.Text)); link != "" {
					return one(LookupLink, link)
				}
			}
			return nil
		},
	}}
}

// normalizeLink trims punctuation, adds a scheme to bare domains and rejects
// values that cannot be a URL.
func normalizeLink(link string) string {
	link = strings.TrimRight(link, ".,")
	if link == "" {
		return ""
	}
	lower := strings.ToLower(link)
	if !strings.HasPrefix(lower, "http") {
		link = "http://" + link
	}
	if !strings.Contains(link, ".") || len(link) <= 5 {
		return ""
	}
	return link
}
