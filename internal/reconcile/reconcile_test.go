package reconcile

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/facturaIA/hoadon-extractor/internal/models"
	"github.com/facturaIA/hoadon-extractor/internal/money"
	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

func record(set func(r *models.InvoiceRecord)) *models.InvoiceRecord {
	r := models.NewRecord("test.pdf")
	set(r)
	return r
}

func value(t *testing.T, a models.Amount) money.VND {
	t.Helper()
	v, ok := a.Value()
	assert.True(t, ok, "amount %q is not resolved", a.String())
	return v
}

func rate(r int) *int { return &r }

func reconcile(rec *models.InvoiceRecord, items []models.LineItem, tmpl *tables.Template) []string {
	return New(zerolog.Nop()).Reconcile(rec, items, tmpl)
}

func TestReconcile_TotalFromPreTaxAndTax(t *testing.T) {
	rec := record(func(r *models.InvoiceRecord) {
		r.PreTax = models.RawAmount("1.000.000")
		r.TaxTotal = models.RawAmount("80.000")
	})
	fired := reconcile(rec, nil, nil)

	assert.Equal(t, money.VND(1080000), value(t, rec.Total))
	assert.Equal(t, money.VND(80000), value(t, rec.Tax8))
	assert.True(t, rec.Tax10.IsAbsent())
	assert.True(t, rec.Tax5.IsAbsent())
	assert.Contains(t, fired, "totalFromPreTax")
	assert.Contains(t, fired, "inferRate")
}

func TestReconcile_OtherRateLabel(t *testing.T) {
	rec := record(func(r *models.InvoiceRecord) {
		r.TaxOther = models.RawAmount("10")
		r.PreTax = models.RawAmount("500.000")
	})
	reconcile(rec, nil, nil)

	assert.Equal(t, money.VND(50000), value(t, rec.Tax10))
	assert.Equal(t, money.VND(50000), value(t, rec.TaxTotal))
	assert.Equal(t, money.VND(550000), value(t, rec.Total))
	assert.True(t, rec.TaxOther.IsAbsent())
}

func TestReconcile_PreTaxFromTotal(t *testing.T) {
	rec := record(func(r *models.InvoiceRecord) {
		r.Total = models.RawAmount("1.080.000")
		r.TaxTotal = models.RawAmount("80.000")
	})
	reconcile(rec, nil, nil)

	assert.Equal(t, money.VND(1000000), value(t, rec.PreTax))
	assert.Equal(t, money.VND(80000), value(t, rec.Tax8))
}

func TestReconcile_NoVATAssumed(t *testing.T) {
	rec := record(func(r *models.InvoiceRecord) {
		r.PreTax = models.RawAmount("250.000")
	})
	reconcile(rec, nil, nil)

	assert.Equal(t, money.VND(250000), value(t, rec.Total))
	assert.True(t, rec.TaxTotal.IsAbsent())
}

func TestReconcile_ItemSumSubstitutesPreTax(t *testing.T) {
	rec := models.NewRecord("test.pdf")
	items := []models.LineItem{{Amount: "40.000"}, {Amount: "60.000"}, {Amount: "n/a"}}
	reconcile(rec, items, nil)

	assert.Equal(t, money.VND(100000), value(t, rec.PreTax))
	assert.Equal(t, money.VND(100000), value(t, rec.Total))
}

func TestReconcile_ItemTaxOverridesBadCapture(t *testing.T) {
	rec := record(func(r *models.InvoiceRecord) {
		r.PreTax = models.RawAmount("300.000")
		r.TaxTotal = models.RawAmount("5.000")
		r.Tax10 = models.RawAmount("5.000")
	})
	items := []models.LineItem{
		{Amount: "100.000", TaxRate: rate(10)},
		{Amount: "200.000", TaxRate: rate(10)},
	}
	reconcile(rec, items, nil)

	assert.Equal(t, money.VND(30000), value(t, rec.Tax10))
	assert.Equal(t, money.VND(30000), value(t, rec.TaxTotal))
}

func TestReconcile_ItemTaxKeepsCloseCapture(t *testing.T) {
	rec := record(func(r *models.InvoiceRecord) {
		r.PreTax = models.RawAmount("300.000")
		r.TaxTotal = models.RawAmount("29.000")
		r.Tax10 = models.RawAmount("29.000")
	})
	items := []models.LineItem{{Amount: "300.000", TaxRate: rate(10)}}
	reconcile(rec, items, nil)

	assert.Equal(t, money.VND(29000), value(t, rec.Tax10))
	// the aggregate is larger and above the floor
	assert.Equal(t, money.VND(30000), value(t, rec.TaxTotal))
}

func TestReconcile_DiscardsTaxNotBelowBase(t *testing.T) {
	rec := record(func(r *models.InvoiceRecord) {
		r.PreTax = models.RawAmount("100.000")
		r.TaxTotal = models.RawAmount("150.000")
		r.Tax10 = models.RawAmount("150.000")
	})
	fired := reconcile(rec, nil, nil)

	assert.True(t, rec.TaxTotal.IsAbsent())
	assert.True(t, rec.Tax10.IsAbsent())
	assert.Contains(t, fired, "taxSanity")
}

func TestReconcile_Template(t *testing.T) {
	rec := record(func(r *models.InvoiceRecord) {
		r.Total = models.RawAmount("540.000")
	})
	reconcile(rec, nil, &tables.Template{Name: "petrolimex", Rate: 8})

	assert.Equal(t, money.VND(500000), value(t, rec.PreTax))
	assert.Equal(t, money.VND(40000), value(t, rec.TaxTotal))
	assert.Equal(t, money.VND(40000), value(t, rec.Tax8))
}

func TestReconcile_DuplicateOtherCleared(t *testing.T) {
	rec := record(func(r *models.InvoiceRecord) {
		r.PreTax = models.RawAmount("1.000.000")
		r.TaxTotal = models.RawAmount("80.000")
		r.Total = models.RawAmount("1.080.000")
		r.TaxOther = models.RawAmount("1.080.000")
	})
	reconcile(rec, nil, nil)

	assert.True(t, rec.TaxOther.IsAbsent())
	assert.Equal(t, money.VND(80000), value(t, rec.Tax8))
}

func TestReconcile_NoiseFloor(t *testing.T) {
	rec := record(func(r *models.InvoiceRecord) {
		r.PreTax = models.RawAmount("500")
	})
	reconcile(rec, nil, nil)

	assert.True(t, rec.PreTax.IsAbsent())
	assert.True(t, rec.Total.IsAbsent())
}
