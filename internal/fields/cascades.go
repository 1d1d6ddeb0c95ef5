package fields

// defaultCascades is the extraction order. Later cascades may read values set
// by earlier ones: lookup codes skip the tax code, and the sales-invoice
// pre-tax copies the total.
func (e *Extractor) defaultCascades() []Cascade {
	return []Cascade{
		{Field: Date, Rules: dateRules()},
		{Field: TaxCode, Rules: e.taxCodeRules()},
		{Field: Number, Rules: e.invoiceNumberRules()},
		{Field: Seller, Rules: sellerRules()},
		{Field: AuthorityCode, Rules: authorityCodeRules()},
		{Field: Serial, Rules: serialRules()},
		{Field: LookupCode, Rules: lookupCodeRules()},
		{Field: LookupLink, Rules: lookupLinkRules()},
		{Field: PreTax, Rules: preTaxRules()},
		{Field: TaxTotal, Rules: taxTotalRules()},
		{Field: ServiceFee, Rules: serviceFeeRules()},
		{Rules: rateRules()},
		{Rules: totalRules()},
		{Field: PreTax, Rules: salesPreTaxRules()},
		{Rules: summaryRules()},
	}
}
