// Package reconcile makes the amounts of an invoice record mutually consistent,
// deriving the ones the text did not state.
package reconcile

import (
	"github.com/rs/zerolog"

	"github.com/facturaIA/hoadon-extractor/internal/models"
	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

// Reconciler applies the reconciliation rules in order.
type Reconciler struct {
	log zerolog.Logger
}

// New creates a reconciler.
func New(log zerolog.Logger) *Reconciler {
	return &Reconciler{log: log.With().Str("component", "reconcile").Logger()}
}

// Reconcile resolves the raw amounts of rec and derives missing ones from the
// others, the line items and the matched retailer template (nil when none
// matched). It returns the names of the rules that fired. Conflicts are settled
// by discarding the less trusted value, never by failing.
func (r *Reconciler) Reconcile(rec *models.InvoiceRecord, items []models.LineItem, tmpl *tables.Template) []string {
	l := &ledger{rec: rec, items: items, template: tmpl}
	l.resolve()

	var fired []string
	for _, s := range steps {
		if !s.When(l) {
			continue
		}
		s.Apply(l)
		fired = append(fired, s.Name)
		r.log.Debug().Str("file", rec.FileName).Str("step", s.Name).Msg("Reconciliation step applied")
	}
	return fired
}
