package fallback

import (
	"context"
	"image"
	"regexp"
	"strings"

	"github.com/facturaIA/hoadon-extractor/internal/fields"
	"github.com/facturaIA/hoadon-extractor/internal/ocr"
)

var (
	regionNumber  = regexp.MustCompile(`(?:[Ss][ốoéô]|[Nn]o\.?)\s*[:\s]*(\d{4,})`)
	regionTaxCode = regexp.MustCompile(`(?i)(?:Mã\s*số\s*thuế|MST|Ma\s*s.\s*thu.)[:\s]*([\d\-\s]+)`)
	digitsOnly    = strings.NewReplacer(" ", "", "-", "", "\n", "", "\t", "")
)

// refine re-reads the header regions of the first page at a higher scale
// when the invoice number or tax code is still blank. It returns the fields
// it filled.
func (p *Pipeline) refine(ctx context.Context, page image.Image, v fields.Values) []fields.Field {
	var filled []fields.Field

	if v[fields.Number] == "" {
		if text := p.readRegion(ctx, page, ocr.InvoiceNumberRegion); text != "" {
			if m := regionNumber.FindStringSubmatch(text); m != nil {
				v[fields.Number] = m[1]
				filled = append(filled, fields.Number)
			}
		}
	}

	if v[fields.TaxCode] == "" {
		if text := p.readRegion(ctx, page, ocr.TaxCodeRegion); text != "" {
			if code := p.regionTaxCode(text); code != "" {
				v[fields.TaxCode] = code
				filled = append(filled, fields.TaxCode)
			}
		}
	}
	return filled
}

func (p *Pipeline) readRegion(ctx context.Context, page image.Image, r ocr.Region) string {
	res, err := p.engine.Recognize(ctx, p.prep.Crop(page, r), ocr.Options{PSM: r.PSM})
	if err != nil {
		p.log.Warn().Err(err).Str("region", r.Name).Msg("Region OCR failed")
		return ""
	}
	return res.Text
}

// regionTaxCode returns the first labelled code of at least ten digits that
// does not belong to an e-invoice vendor.
func (p *Pipeline) regionTaxCode(text string) string {
	for _, m := range regionTaxCode.FindAllStringSubmatch(text, -1) {
		code := digitsOnly.Replace(m[1])
		if len(code) >= 10 && !p.tables.IsProviderTaxCode(code) {
			return code
		}
	}
	return ""
}
