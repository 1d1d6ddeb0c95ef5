package fields

import "github.com/facturaIA/hoadon-extractor/internal/models"

// Apply copies the extracted values onto rec. Amounts are stored raw and
// resolved during reconciliation.
func (v Values) Apply(rec *models.InvoiceRecord) {
	text := map[Field]*string{
		Date:          &rec.Date,
		Number:        &rec.Number,
		Serial:        &rec.Serial,
		Seller:        &rec.Seller,
		TaxCode:       &rec.TaxCode,
		AuthorityCode: &rec.AuthorityCode,
		LookupCode:    &rec.LookupCode,
		LookupLink:    &rec.LookupLink,
	}
	amounts := map[Field]*models.Amount{
		PreTax:     &rec.PreTax,
		Tax0:       &rec.Tax0,
		Tax5:       &rec.Tax5,
		Tax8:       &rec.Tax8,
		Tax10:      &rec.Tax10,
		TaxOther:   &rec.TaxOther,
		TaxTotal:   &rec.TaxTotal,
		Total:      &rec.Total,
		ServiceFee: &rec.ServiceFee,
	}
	for f, val := range v {
		if val == "" {
			continue
		}
		if p, ok := text[f]; ok {
			*p = val
		} else if a, ok := amounts[f]; ok {
			*a = models.RawAmount(val)
		}
	}
}
