// Package fields extracts header and summary fields of an invoice from its
// normalized text using ordered cascades of pattern rules.
package fields

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/facturaIA/hoadon-extractor/internal/tables"
	"github.com/facturaIA/hoadon-extractor/internal/textnorm"
)

// Field names one logical value of the record.
type Field string

const (
	Date          Field = "date"
	Number        Field = "number"
	Serial        Field = "serial"
	Seller        Field = "seller"
	TaxCode       Field = "taxCode"
	AuthorityCode Field = "authorityCode"
	LookupCode    Field = "lookupCode"
	LookupLink    Field = "lookupLink"
	PreTax        Field = "preTax"
	Tax0          Field = "tax0"
	Tax5          Field = "tax5"
	Tax8          Field = "tax8"
	Tax10         Field = "tax10"
	TaxOther      Field = "taxOther"
	TaxTotal      Field = "taxTotal"
	Total         Field = "total"
	ServiceFee    Field = "serviceFee"
)

// BucketField returns the per-rate field for a recognized rate.
func BucketField(rate int) (Field, bool) {
	switch rate {
	case 0:
		return Tax0, true
	case 5:
		return Tax5, true
	case 8:
		return Tax8, true
	case 10:
		return Tax10, true
	}
	return "", false
}

// Tier is the trust level of a rule.
type Tier int

const (
	// Normal matches only fill blank fields; the first one wins.
	Normal Tier = iota
	// Authoritative matches overwrite, in a second pass after every normal rule.
	Authoritative
)

// Match is one value proposed by a rule.
type Match struct {
	Field Field
	Value string
}

// Values holds the extracted text per field. Missing keys are blank.
type Values map[Field]string

// Document is the rule input.
type Document struct {
	Text        string
	Lines       []string
	FileName    string
	HiddenTotal string

	upper string
}

// NewDocument builds a rule input from normalized text.
func NewDocument(doc *textnorm.Document, fileName string) *Document {
	lines := make([]string, len(doc.Lines))
	for i, l := range doc.Lines {
		lines[i] = l.Text
	}
	return &Document{
		Text:        doc.Text,
		Lines:       lines,
		FileName:    fileName,
		HiddenTotal: doc.HiddenTotal,
	}
}

// TextDocument builds a rule input from raw text that was not normalized,
// such as OCR output, where noise filtering would drop the labels.
func TextDocument(text, fileName string) *Document {
	text = strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(text)
	return &Document{
		Text:     text,
		Lines:    strings.Split(text, "\n"),
		FileName: fileName,
	}
}

// Upper returns the text upper-cased, computed once.
func (d *Document) Upper() string {
	if d.upper == "" {
		d.upper = strings.ToUpper(d.Text)
	}
	return d.upper
}

// Rule proposes values for one or more fields.
type Rule struct {
	Name  string
	Tier  Tier
	Apply func(d *Document, v Values) []Match
}

// Cascade is the ordered rule list of one field. A cascade without a field runs
// every rule, for rules that fill several fields at once.
type Cascade struct {
	Field Field
	Rules []Rule
}

// Extractor runs the cascades over a document.
type Extractor struct {
	tables   *tables.Tables
	cascades []Cascade
	log      zerolog.Logger
}

// NewExtractor creates an extractor with the default cascades.
func NewExtractor(t *tables.Tables, log zerolog.Logger) *Extractor {
	e := &Extractor{
		tables: t,
		log:    log.With().Str("component", "fields").Logger(),
	}
	e.cascades = e.defaultCascades()
	return e
}

// WithCascades replaces the cascades, mainly for tests.
func (e *Extractor) WithCascades(c []Cascade) *Extractor {
	e.cascades = c
	return e
}

// Extract applies normal rules first-write-wins, then authoritative rules as
// overwrites, and finally cleans the seller name.
func (e *Extractor) Extract(d *Document) Values {
	v := Values{}

	for _, c := range e.cascades {
		for _, r := range c.Rules {
			if r.Tier != Normal {
				continue
			}
			if c.Field != "" && v[c.Field] != "" {
				break
			}
			for _, m := range r.Apply(d, v) {
				if m.Value == "" || v[m.Field] != "" {
					continue
				}
				v[m.Field] = m.Value
				e.log.Debug().Str("field", string(m.Field)).Str("rule", r.Name).Str("value", m.Value).Msg("Field matched")
			}
		}
	}

	for _, c := range e.cascades {
		for _, r := range c.Rules {
			if r.Tier != Authoritative {
				continue
			}
			for _, m := range r.Apply(d, v) {
				if m.Value == "" {
					continue
				}
				if prev := v[m.Field]; prev != m.Value {
					e.log.Debug().Str("field", string(m.Field)).Str("rule", r.Name).
						Str("previous", prev).Str("value", m.Value).Msg("Field overridden")
				}
				v[m.Field] = m.Value
			}
		}
	}

	v[Seller] = finalizeSeller(v[Seller])
	return v
}

func one(f Field, value string) []Match {
	if value == "" {
		return nil
	}
	return []Match{{Field: f, Value: value}}
}
