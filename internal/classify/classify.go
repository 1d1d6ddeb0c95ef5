// Package classify assigns an expense category to a finished invoice.
package classify

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/facturaIA/hoadon-extractor/internal/models"
	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

// Classifier picks a category from the seller name, the line items or, for
// scanned documents, the recognized text.
type Classifier struct {
	tables *tables.Tables
}

// New creates a classifier over read-only tables.
func New(t *tables.Tables) *Classifier {
	return &Classifier{tables: t}
}

// Classify categorizes a text-layer invoice. A known food and beverage brand
// in the seller name wins outright, then seller-name categories such as
// travel agencies, then keyword scoring of the item names.
func (c *Classifier) Classify(seller string, items []models.LineItem, text string) string {
	upper := strings.ToUpper(seller)
	if tables.ContainsAny(upper, c.tables.Brands) {
		return c.tables.BrandCategory
	}

	textUpper := strings.ToUpper(text)
	for _, cat := range c.tables.SellerCategories {
		if tables.ContainsAny(upper, cat.Keywords) || tables.ContainsAny(textUpper, cat.TextKeywords) {
			return cat.Name
		}
	}

	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, it.Name)
	}
	return c.score(strings.Join(names, " "))
}

// score returns the category with the most matching keywords. Ties go to
// the category listed first.
func (c *Classifier) score(itemText string) string {
	if strings.TrimSpace(itemText) == "" {
		return c.tables.FallbackCategory
	}
	lower := strings.ToLower(itemText)

	best, bestScore := c.tables.FallbackCategory, 0
	for _, cat := range c.tables.Categories {
		n := 0
		for _, kw := range cat.Keywords {
			kw = strings.ToLower(kw)
			if cat.Substring && strings.Contains(lower, kw) || !cat.Substring && containsWord(lower, kw) {
				n++
			}
		}
		if n > bestScore {
			best, bestScore = cat.Name, n
		}
	}
	return best
}

// ClassifyScan categorizes an OCR document from its whole text: the seller
// template first, then content keywords.
func (c *Classifier) ClassifyScan(text string, tmpl *tables.Template) string {
	if tmpl != nil && tmpl.Category != "" {
		return tmpl.Category
	}
	lower := strings.ToLower(text)
	for _, cat := range c.tables.OCRCategories {
		if tables.ContainsAny(lower, cat.Keywords) {
			return cat.Name
		}
	}
	return c.tables.FallbackCategory
}

// containsWord reports whether kw occurs in s on word boundaries, treating
// Vietnamese letters as word characters ("hấp" does not match "thấp").
func containsWord(s, kw string) bool {
	if kw == "" {
		return false
	}
	first, _ := utf8.DecodeRuneInString(kw)
	last, _ := utf8.DecodeLastRuneInString(kw)

	for off := 0; off < len(s); {
		i := strings.Index(s[off:], kw)
		if i < 0 {
			return false
		}
		start := off + i
		end := start + len(kw)

		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if boundary(before, start == 0, first) && boundary(after, end == len(s), last) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		off = start + size
	}
	return false
}

// boundary reports a word boundary between a neighbour rune and the edge
// rune of the keyword.
func boundary(neighbour rune, atEdge bool, edge rune) bool {
	if atEdge {
		return isWordRune(edge)
	}
	return isWordRune(neighbour) != isWordRune(edge)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
