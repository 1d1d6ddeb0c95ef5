package reconcile

import (
	"strconv"
	"strings"

	"github.com/facturaIA/hoadon-extractor/internal/models"
	"github.com/facturaIA/hoadon-extractor/internal/money"
	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

// ledger is the working state of one reconciliation run.
type ledger struct {
	rec      *models.InvoiceRecord
	items    []models.LineItem
	template *tables.Template

	// otherRate is a bare rate label ("10") captured in the "other" column.
	otherRate *int
}

func (l *ledger) get(a *models.Amount) (money.VND, bool) {
	return a.Value()
}

func (l *ledger) known(a *models.Amount) bool {
	_, ok := a.Value()
	return ok
}

func (l *ledger) set(a *models.Amount, v money.VND) {
	*a = models.Resolved(v)
}

func (l *ledger) clear(a *models.Amount) {
	*a = models.Amount{}
}

// anyRateBucket reports whether one of the 0/5/8/10 buckets holds a value.
func (l *ledger) anyRateBucket() bool {
	for _, r := range models.Rates {
		if l.known(l.rec.Bucket(r)) {
			return true
		}
	}
	return false
}

func (l *ledger) buckets() []*models.Amount {
	r := l.rec
	return []*models.Amount{&r.Tax0, &r.Tax5, &r.Tax8, &r.Tax10, &r.TaxOther}
}

// resolve reads the rate label out of the "other" column and resolves every
// raw amount with the noise floor applied.
func (l *ledger) resolve() {
	r := l.rec
	if label := strings.TrimSpace(r.TaxOther.Raw()); label != "" {
		if rate, err := strconv.Atoi(label); err == nil && r.Bucket(rate) != nil {
			l.otherRate = &rate
			l.clear(&r.TaxOther)
		}
	}
	for _, a := range []*models.Amount{
		&r.PreTax, &r.Tax0, &r.Tax5, &r.Tax8, &r.Tax10,
		&r.TaxOther, &r.TaxTotal, &r.Total, &r.ServiceFee,
	} {
		*a = a.Resolve()
	}
}
