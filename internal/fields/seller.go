package fields

import (
	"regexp"
	"strings"

	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

var (
	sellerLabelPatterns = []*regexp.Regexp{
		regexp.MustCompile(`Đơn vị bán hàng\s*\([Ss]eller\)[:\s]*(.+)`),
		regexp.MustCompile(`Đơn vị bán\s*\([Ss]eller\)[:\s]*(.+)`),
		regexp.MustCompile(`Tên người bán\s*\([Ss]eller\)[:\s]*(.+)`),
		regexp.MustCompile(`Đơn vị bán hàng\s*\([Cc]ompany\)[:\s]*(.+)`),
		regexp.MustCompile(`Đơn vị bán hàng[:\s]*(.+)`),
		regexp.MustCompile(`Tên đơn vị bán hàng[:\s]*(.+)`),
		regexp.MustCompile(`HỘ KINH DOANH[:\s]*(.+)`),
		regexp.MustCompile(`QUÁN[:\s]*(.+)`),
	}

	sellerCaptionPrefix = regexp.MustCompile(`(?i)^\s*[\(\[]?\s*(?:Seller|Company|Người bán|Doanh nghiệp|Tên đơn vị|Đơn vị bán)\s*[\)\]]?\s*[:.\-]?\s*`)
	issuedPrefix        = regexp.MustCompile(`(?i)^\s*\(?Issued\)?\s*[:.\-]\s*`)
	leadingPunct        = regexp.MustCompile(`^\s*[:.\-]+\s*`)
	sellerTails         = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s*Mã số thuế.*$`),
		regexp.MustCompile(`(?i)\s*MST.*$`),
		regexp.MustCompile(`(?i)\s*Địa chỉ.*$`),
	}
	pageLabel        = regexp.MustCompile(`(?i)^(Trang|Page)\s+\d`)
	parentheticalTag = regexp.MustCompile(`^\s*\([A-Za-z\s]+\)\s*$`)
	signedBy         = regexp.MustCompile(`(?:Ký bởi|Được ký bởi)[:\s]*([A-ZĐ][A-ZĐÀÁẢÃẠ\s]+(?:\n[A-ZĐÀÁẢÃẠ\s]+)?)`)

	sellerRejectContent = []string{"mã nhận hóa đơn", "code for checking", "tra cứu tại", "địa chỉ", "address"}
	sellerPlaceholders  = []string{"(seller)", "seller", "người bán", "tên đơn vị", "(buyer)", "buyer", "người mua"}
	signatureCredits    = []string{"đã được ký điện tử bởi", "được ký bởi", "ký bởi công ty", "digitally signed by"}

	companyWords       = []string{"CÔNG TY", "TẬP ĐOÀN", "CHI NHÁNH", "NHÀ HÀNG", "DNTN", "HỘ KINH DOANH", "QUÁN"}
	headerNoise        = []string{"CỘNG HÒA", "ĐỘC LẬP", "TÊN NGƯỜI MUA", "TÊN ĐƠN VỊ:", "PHÂN PHỐI TỔNG HỢP DẦU KHÍ", "ĐÃ ĐƯỢC KÝ ĐIỆN TỬ"}
	signerCompanyWords = []string{"CÔNG TY", "TẬP ĐOÀN", "CHI NHÁNH", "NHÀ HÀNG", "DNTN"}
	footerCompanyWords = []string{"CÔNG TY", "TẬP ĐOÀN", "CHI NHÁNH", "DNTN", "HỘ KINH DOANH", "HOTEL", "KHÁCH SẠN", "QUÁN"}
	footerNoise        = []string{"HÓA ĐƠN", "TRANG", "PAGE", "KÝ BỞI", "GIẢI PHÁP", "CUNG CẤP", "ĐỊA CHỈ", "MST:", "VAT CODE"}
)

func sellerRules() []Rule {
	return []Rule{
		{Name: "seller/labelled", Apply: labelledSeller},
		{Name: "seller/header", Apply: headerSeller},
		{Name: "seller/signature", Apply: signatureSeller},
		{Name: "seller/footer", Apply: footerSeller},
	}
}

func labelledSeller(d *Document, _ Values) []Match {
	for _, re := range sellerLabelPatterns {
		idx := re.FindStringSubmatchIndex(d.Text)
		if idx == nil {
			continue
		}
		seller := strings.TrimSpace(d.Text[idx[2]:idx[3]])

		// "...(LOẠI HÌNH DOANH NGHIỆP:\nCÔNG TY TNHH)" continues on the next line
		if strings.HasSuffix(seller, ":") || strings.HasSuffix(seller, "(") ||
			strings.Contains(lastRunes(seller, 15), "DOANH NGHIỆP") {
			if next := nextLine(d.Text[idx[1]:]); next != "" {
				seller += " " + next
			}
		}

		seller = cleanSeller(seller)
		lower := strings.ToLower(seller)
		if tables.ContainsAny(lower, sellerRejectContent) {
			continue
		}
		if isPlaceholder(lower) || pageLabel.MatchString(seller) || parentheticalTag.MatchString(seller) {
			continue
		}
		if runeLen(seller) > 5 || (runeLen(seller) > 3 && strings.Contains(strings.ToUpper(seller), "QUÁN")) {
			return one(Seller, seller)
		}
	}
	return nil
}

func nextLine(rest string) string {
	if !strings.HasPrefix(rest, "\n") {
		return ""
	}
	rest = rest[1:]
	if i := strings.Index(rest, "\n"); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}

func cleanSeller(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = sellerCaptionPrefix.ReplaceAllString(s, "")
	s = issuedPrefix.ReplaceAllString(s, "")
	s = leadingPunct.ReplaceAllString(s, "")
	for _, re := range sellerTails {
		s = re.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

func isPlaceholder(lower string) bool {
	bare := strings.TrimSpace(strings.ReplaceAll(lower, ":", ""))
	for _, p := range sellerPlaceholders {
		if bare == p {
			return true
		}
	}
	return false
}

// headerSeller takes the first company-like line among the first six lines
// before the first tax-code label.
func headerSeller(d *Document, _ Values) []Match {
	pos := strings.Index(d.Text, "Mã số thuế")
	if pos == -1 {
		pos = strings.Index(d.Text, "MST")
	}
	if pos <= 0 {
		return nil
	}
	lines := nonEmptyLines(d.Text[:pos])
	for i, line := range lines {
		if i >= 6 {
			break
		}
		upper := strings.ToUpper(line)
		if runeLen(line) <= 10 || !tables.ContainsAny(upper, companyWords) || tables.ContainsAny(upper, headerNoise) {
			continue
		}
		// company name fused with the document title
		if cut := strings.Index(upper, "HÓA ĐƠN"); cut >= 0 {
			line = strings.TrimSpace(line[:cut])
			if runeLen(line) <= 5 {
				continue
			}
		}
		if i+1 < len(lines) {
			next := lines[i+1]
			if !strings.Contains(next, "Mã số") && !strings.Contains(next, "Địa chỉ") &&
				(isUpper(next) || (runeLen(next) < 40 && !strings.Contains(next, ":"))) &&
				!strings.Contains(strings.ToUpper(next), "PHÂN PHỐI") {
				line += " " + next
			}
		}
		return one(Seller, line)
	}
	return nil
}

func signatureSeller(d *Document, _ Values) []Match {
	m := signedBy.FindStringSubmatch(d.Text)
	if m == nil {
		return nil
	}
	signer := strings.TrimSpace(strings.ReplaceAll(m[1], "\n", " "))
	if runeLen(signer) <= 5 || !tables.ContainsAny(strings.ToUpper(signer), signerCompanyWords) {
		return nil
	}
	if tables.ContainsAny(strings.ToLower(signer), []string{"địa chỉ", "address", "mã số", "đã được ký"}) {
		return nil
	}
	return one(Seller, signer)
}

// footerSeller scans the last lines, where hotels print their legal name.
func footerSeller(d *Document, _ Values) []Match {
	lines := nonEmptyLines(d.Text)
	if len(lines) > 20 {
		lines = lines[len(lines)-20:]
	}
	for _, line := range lines {
		upper := strings.ToUpper(line)
		if runeLen(line) <= 5 || !tables.ContainsAny(upper, footerCompanyWords) {
			continue
		}
		if !isUpper(line) && !strings.Contains(upper, "CÔNG TY") && !strings.Contains(upper, "QUÁN") {
			continue
		}
		if tables.ContainsAny(upper, footerNoise) {
			continue
		}
		return one(Seller, line)
	}
	return nil
}

// finalizeSeller strips leaked captions and drops digital-signature credits.
func finalizeSeller(s string) string {
	if s == "" {
		return ""
	}
	s = strings.TrimSpace(issuedPrefix.ReplaceAllString(s, ""))
	s = sellerCaptionPrefix.ReplaceAllString(s, "")
	if i := strings.Index(s, "Ký hiệu:"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if tables.ContainsAny(strings.ToLower(s), signatureCredits) {
		return ""
	}
	return strings.TrimSpace(s)
}
