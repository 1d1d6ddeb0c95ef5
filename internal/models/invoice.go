package models

import (
	"regexp"
	"strings"

	"github.com/facturaIA/hoadon-extractor/internal/money"
)

// InvoiceRecord is the structured result for one invoice document.
type InvoiceRecord struct {
	// Identity
	FileName      string `json:"fileName"`      // Tên file
	Date          string `json:"date"`          // Ngày hóa đơn, dd/mm/yyyy
	Number        string `json:"number"`        // Số hóa đơn
	Serial        string `json:"serial"`        // Ký hiệu
	Seller        string `json:"seller"`        // Đơn vị bán
	TaxCode       string `json:"taxCode"`       // Mã số thuế of the seller
	AuthorityCode string `json:"authorityCode"` // Mã CQT

	// Amounts
	PreTax     Amount `json:"preTax"`     // Số tiền trước thuế
	Tax0       Amount `json:"tax0"`       // Thuế 0%
	Tax5       Amount `json:"tax5"`       // Thuế 5%
	Tax8       Amount `json:"tax8"`       // Thuế 8%
	Tax10      Amount `json:"tax10"`      // Thuế 10%
	TaxOther   Amount `json:"taxOther"`   // Thuế khác, may hold a bare rate label before reconciliation
	TaxTotal   Amount `json:"taxTotal"`   // Tiền thuế
	Total      Amount `json:"total"`      // Số tiền sau thuế
	ServiceFee Amount `json:"serviceFee"` // Phí PV

	// Lookup
	LookupCode string `json:"lookupCode"` // Mã tra cứu
	LookupLink string `json:"lookupLink"` // Link lấy hóa đơn

	// Annotations
	Category string `json:"category"`           // Phân loại
	Team     string `json:"team,omitempty"`     // Team the document was submitted for
	Employee string `json:"employee,omitempty"` // Tên nhân viên
}

// Rates are the recognized per-rate buckets, in column order.
var Rates = []int{0, 5, 8, 10}

// NewRecord returns an empty record for a file.
func NewRecord(fileName string) *InvoiceRecord {
	return &InvoiceRecord{FileName: fileName}
}

// Bucket returns the tax bucket for a recognized rate, or nil.
func (r *InvoiceRecord) Bucket(rate int) *Amount {
	switch rate {
	case 0:
		return &r.Tax0
	case 5:
		return &r.Tax5
	case 8:
		return &r.Tax8
	case 10:
		return &r.Tax10
	}
	return nil
}

// MarkUnrecognized sets every extracted field to the sentinel. The file name
// and submission metadata are kept.
func (r *InvoiceRecord) MarkUnrecognized(sentinel string) {
	for _, f := range r.textFields() {
		*f = sentinel
	}
	for _, a := range r.amounts() {
		*a = RawAmount(sentinel)
	}
	r.Category = sentinel
}

func (r *InvoiceRecord) textFields() []*string {
	return []*string{
		&r.Date, &r.Number, &r.Serial, &r.Seller, &r.TaxCode,
		&r.AuthorityCode, &r.LookupCode, &r.LookupLink,
	}
}

func (r *InvoiceRecord) amounts() []*Amount {
	return []*Amount{
		&r.PreTax, &r.Tax0, &r.Tax5, &r.Tax8, &r.Tax10,
		&r.TaxOther, &r.TaxTotal, &r.Total, &r.ServiceFee,
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanString strips carriage returns and soft hyphens, turns tabs into
// spaces and collapses whitespace.
func CleanString(s string) string {
	s = strings.NewReplacer("\r", "", "\u00ad", "", "\t", " ").Replace(s)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// Cleanup applies CleanString to every text field.
func (r *InvoiceRecord) Cleanup() {
	for _, f := range r.textFields() {
		*f = CleanString(*f)
	}
	r.Category = CleanString(r.Category)
}

// Columns are the export headers, in the order Row returns values.
var Columns = []string{
	"Tên file", "Ngày hóa đơn", "Số hóa đơn", "Đơn vị bán", "Phân loại",
	"Số tiền trước Thuế", "Thuế 0%", "Thuế 5%", "Thuế 8%", "Thuế 10%", "Thuế khác",
	"Tiền thuế", "Số tiền sau", "Link lấy hóa đơn", "Mã tra cứu", "Mã số thuế",
	"Mã CQT", "Ký hiệu", "Phí PV",
}

// Row returns the record as export cells matching Columns.
func (r *InvoiceRecord) Row() []string {
	return []string{
		r.FileName, r.Date, r.Number, r.Seller, r.Category,
		r.PreTax.String(), r.Tax0.String(), r.Tax5.String(), r.Tax8.String(), r.Tax10.String(), r.TaxOther.String(),
		r.TaxTotal.String(), r.Total.String(), r.LookupLink, r.LookupCode, r.TaxCode,
		r.AuthorityCode, r.Serial, r.ServiceFee.String(),
	}
}

// LineItem is one row of the goods/services table.
type LineItem struct {
	Name      string `json:"name"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Amount    string `json:"amount"`
	TaxRate   *int   `json:"taxRate,omitempty"` // rate printed on the row, if any
}

// AmountValue parses the line amount.
func (i LineItem) AmountValue() (money.VND, bool) {
	return money.Parse(i.Amount)
}

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationIssue is one finding about a finished record.
type ValidationIssue struct {
	Field    string   `json:"field"`
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}
