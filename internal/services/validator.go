package services

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/facturaIA/hoadon-extractor/internal/models"
	"github.com/facturaIA/hoadon-extractor/internal/money"
)

// ValidationResult is the response from validation
type ValidationResult struct {
	Valid       bool                     `json:"valid"`
	NeedsReview bool                     `json:"needs_review"`
	Issues      []models.ValidationIssue `json:"issues"`
}

// Errors returns the error-severity issues.
func (r *ValidationResult) Errors() []models.ValidationIssue {
	return r.filter(models.SeverityError)
}

// Warnings returns the warning-severity issues.
func (r *ValidationResult) Warnings() []models.ValidationIssue {
	return r.filter(models.SeverityWarning)
}

func (r *ValidationResult) filter(s models.Severity) []models.ValidationIssue {
	var out []models.ValidationIssue
	for _, i := range r.Issues {
		if i.Severity == s {
			out = append(out, i)
		}
	}
	return out
}

var (
	datePattern    = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`)
	taxCodePattern = regexp.MustCompile(`^[\d\-]{10,14}$`)
)

// InvoiceValidator checks a finished record. It never modifies the record.
type InvoiceValidator struct {
	minSeller int
	tolerance decimal.Decimal // share of the total, 0.01 = 1%
}

// NewInvoiceValidator creates a validator with a 1% total tolerance
func NewInvoiceValidator() *InvoiceValidator {
	return &InvoiceValidator{
		minSeller: 5,
		tolerance: decimal.NewFromFloat(0.01),
	}
}

// Validate performs all checks on a record
func (v *InvoiceValidator) Validate(rec *models.InvoiceRecord) *ValidationResult {
	result := &ValidationResult{Issues: []models.ValidationIssue{}}

	// 1. Missing critical fields
	v.validateIdentity(rec, result)

	// 2. Amounts
	v.validateAmounts(rec, result)

	// 3. Lookup and registration data
	v.validateLookup(rec, result)

	result.Valid = len(result.Errors()) == 0
	result.NeedsReview = len(result.Issues) > 0
	return result
}

func (v *InvoiceValidator) validateIdentity(rec *models.InvoiceRecord, result *ValidationResult) {
	seller := strings.TrimSpace(rec.Seller)
	switch {
	case seller == "":
		result.addError("seller", "missing_seller", "Thiếu đơn vị bán")
	case utf8.RuneCountInString(seller) < v.minSeller:
		result.addError("seller", "seller_too_short", "Tên đơn vị bán quá ngắn")
	}

	if strings.TrimSpace(rec.Number) == "" {
		result.addError("number", "missing_number", "Thiếu số hóa đơn")
	}

	date := strings.TrimSpace(rec.Date)
	switch {
	case date == "":
		result.addError("date", "missing_date", "Thiếu ngày hóa đơn")
	case !validDate(date):
		result.addError("date", "invalid_date", fmt.Sprintf("Định dạng ngày không chuẩn: %s", date))
	}
}

// validDate accepts d/m/yyyy dates that exist in the calendar.
func validDate(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	_, err := time.Parse("2/1/2006", s)
	return err == nil
}

// validateAmounts treats unknown amounts like zero: both mean the invoice
// cannot be booked as is.
func (v *InvoiceValidator) validateAmounts(rec *models.InvoiceRecord, result *ValidationResult) {
	pre := rec.PreTax.Or(0)
	total := rec.Total.Or(0)

	if pre == 0 {
		result.addError("preTax", "zero_pre_tax", "Số tiền trước thuế = 0 hoặc trống")
	}
	if total == 0 {
		result.addError("total", "zero_total", "Số tiền sau thuế = 0 hoặc trống")
	}
	if pre > 0 && total > 0 && total < pre {
		result.addWarning("total", "total_below_pre_tax",
			fmt.Sprintf("Số tiền sau (%s) < trước thuế (%s)", money.Format(total), money.Format(pre)))
	}

	tax, hasTax := rec.TaxTotal.Value()
	if !hasTax || pre == 0 || total == 0 {
		return
	}
	diff := decimal.NewFromInt(int64(total - pre - tax)).Abs()
	if diff.GreaterThan(decimal.NewFromInt(int64(total)).Mul(v.tolerance)) {
		result.addWarning("total", "total_mismatch",
			fmt.Sprintf("Tổng tiền %s khác trước thuế + thuế (%s)", money.Format(total), money.Format(pre+tax)))
	}
}

func (v *InvoiceValidator) validateLookup(rec *models.InvoiceRecord, result *ValidationResult) {
	code := strings.TrimSpace(rec.TaxCode)
	switch {
	case code == "":
		result.addWarning("taxCode", "missing_tax_code", "Thiếu mã số thuế")
	case !taxCodePattern.MatchString(code):
		result.addWarning("taxCode", "invalid_tax_code", fmt.Sprintf("MST không hợp lệ (%d ký tự)", utf8.RuneCountInString(code)))
	}

	if strings.TrimSpace(rec.LookupLink) == "" {
		result.addWarning("lookupLink", "missing_link", "Thiếu link tra cứu")
	}
	if strings.TrimSpace(rec.LookupCode) == "" {
		result.addWarning("lookupCode", "missing_lookup_code", "Thiếu mã tra cứu")
	}
	if strings.TrimSpace(rec.Serial) == "" {
		result.addWarning("serial", "missing_serial", "Thiếu ký hiệu")
	}
}

func (r *ValidationResult) addError(field, code, msg string) {
	r.Issues = append(r.Issues, models.ValidationIssue{Field: field, Severity: models.SeverityError, Code: code, Message: msg})
}

func (r *ValidationResult) addWarning(field, code, msg string) {
	r.Issues = append(r.Issues, models.ValidationIssue{Field: field, Severity: models.SeverityWarning, Code: code, Message: msg})
}
