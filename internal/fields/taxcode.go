package fields

import (
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
)

var (
	spacedTaxCode  = regexp.MustCompile(`(?i)Mã số thuế[:\s]*((?:\d\s+){9,}[\d\s-]*\d)`)
	vatCode        = regexp.MustCompile(`(?i)VAT\s*Code[:\s]*(\d{10,14})`)
	sellerTaxBlock = regexp.MustCompile(`(?is)(?:Đơn vị bán|Người bán|Seller)[^:]*[:\s]+(.*?)(?:Mã số thuế|MST|Tax code)[^:]*[:\s]*([0-9\s-]+)`)
	anyTaxLabel    = regexp.MustCompile(`(?i)(?:Mã số thuế|MST|Tax code)[^:]*[:\s]*([0-9\s-]+)`)
	taxCodeHead    = regexp.MustCompile(`^[\d-]+`)

	labelledTaxCode = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Mã số thuế\s*\(Tax\s*code\)[:\s]*([\d\-\x{00AD}\s]+)`),
		regexp.MustCompile(`(?i)(?:MST|Mã số thuế)[/\s]*\(Tax Code\)[:\s]*([\d\-\x{00AD}\s]+)`),
		regexp.MustCompile(`(?i)MST/CCCD[^:]*[:\s]*([\d\-\x{00AD}\s]+)`),
		regexp.MustCompile(`(?i)(?:MST|Mã số thuế)[:\s]*([\d\-\x{00AD}\s]+)`),
	}

	// matched against unaccented lower-case text; OCR misreads "số" as "se"/"sc"
	foldedTaxCode = regexp.MustCompile(`(?:ma\s+s[eoc]\s+thue|ma\s+so\s+thue|ma\s+s.\s+thue|mst|tax code)[^0-9]*([0-9]{10,14})`)

	spaces     = strings.NewReplacer(" ", "", "\n", "", "\t", "")
	softHyphen = strings.NewReplacer("\u00ad", "")
)

func (e *Extractor) taxCodeRules() []Rule {
	return []Rule{
		{Name: "taxCode/spaced", Apply: e.spacedTaxCode},
		{Name: "taxCode/vatCode", Apply: e.vatCodeTaxCode},
		{Name: "taxCode/sellerBlock", Apply: e.sellerBlockTaxCode},
		{Name: "taxCode/anyLabel", Apply: e.anyLabelTaxCode},
		{Name: "taxCode/labelled", Apply: e.labelledTaxCode},
		{Name: "taxCode/unaccented", Apply: e.unaccentedTaxCode},
	}
}

func (e *Extractor) acceptTaxCode(code string) string {
	if code == "" || e.tables.IsProviderTaxCode(code) {
		return ""
	}
	return code
}

func (e *Extractor) spacedTaxCode(d *Document, _ Values) []Match {
	m := spacedTaxCode.FindStringSubmatch(d.Text)
	if m == nil {
		return nil
	}
	return one(TaxCode, e.acceptTaxCode(strings.TrimSpace(spaces.Replace(m[1]))))
}

func (e *Extractor) vatCodeTaxCode(d *Document, _ Values) []Match {
	return one(TaxCode, e.acceptTaxCode(firstGroup(vatCode, d.Text)))
}

func (e *Extractor) sellerBlockTaxCode(d *Document, _ Values) []Match {
	m := sellerTaxBlock.FindStringSubmatch(d.Text)
	if m == nil {
		return nil
	}
	code := strings.Trim(spaces.Replace(m[2]), "-")
	if len(code) < 10 {
		return nil
	}
	return one(TaxCode, e.acceptTaxCode(code))
}

// anyLabelTaxCode takes the first labelled code that is neither a vendor code
// nor printed on a vendor/signature line.
func (e *Extractor) anyLabelTaxCode(d *Document, _ Values) []Match {
	for _, m := range anyTaxLabel.FindAllStringSubmatch(d.Text, -1) {
		code := taxCodeHead.FindString(spaces.Replace(m[1]))
		if len(code) < 9 || len(code) > 14 || e.acceptTaxCode(code) == "" {
			continue
		}
		if e.badTaxCodeContext(d.Text, code, e.tables.TaxCodeReject) {
			continue
		}
		return one(TaxCode, code)
	}
	return nil
}

func (e *Extractor) badTaxCodeContext(text, code string, reject []string) bool {
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(spaces.Replace(line), code) {
			continue
		}
		lower := strings.ToLower(line)
		for _, kw := range reject {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

func (e *Extractor) labelledTaxCode(d *Document, _ Values) []Match {
	for _, re := range labelledTaxCode {
		for _, m := range re.FindAllStringSubmatch(d.Text, -1) {
			code := strings.TrimSpace(spaces.Replace(softHyphen.Replace(m[1])))
			if len(code) < 10 || !strings.ContainsAny(code, "0123456789") {
				continue
			}
			if c := e.acceptTaxCode(code); c != "" {
				return one(TaxCode, c)
			}
		}
	}
	return nil
}

func (e *Extractor) unaccentedTaxCode(d *Document, _ Values) []Match {
	folded := unidecode.Unidecode(strings.ToLower(d.Text))
	return one(TaxCode, e.acceptTaxCode(firstGroup(foldedTaxCode, folded)))
}
