// Package lineitems parses the goods/services table of an invoice from its
// normalized lines.
package lineitems

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/facturaIA/hoadon-extractor/internal/models"
	"github.com/facturaIA/hoadon-extractor/internal/money"
	"github.com/facturaIA/hoadon-extractor/internal/tables"
	"github.com/facturaIA/hoadon-extractor/internal/textnorm"
)

var (
	rowNumber     = regexp.MustCompile(`^(\d{1,3})[._\-\s|]+`)
	numberToken   = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
	columnHeaders = regexp.MustCompile(`^[\d\s.,|()x=+]+$`)
	letterHeaders = regexp.MustCompile(`^[A-Z\s]+[\d\s=x]+$`)
	rowRate       = regexp.MustCompile(`\b(0|5|8|10)\s*%`)
)

// Extractor turns table rows into line items.
type Extractor struct {
	tables *tables.Tables
	norm   *textnorm.Normalizer
	log    zerolog.Logger
}

// New creates a line-item extractor.
func New(t *tables.Tables, log zerolog.Logger) *Extractor {
	return &Extractor{
		tables: t,
		norm:   textnorm.New(t),
		log:    log.With().Str("component", "lineitems").Logger(),
	}
}

// Extract returns the items found in lines, in document order.
func (e *Extractor) Extract(lines []string) []models.LineItem {
	var items []models.LineItem
	for i := range lines {
		item, ok := e.parseRow(lines, i)
		if !ok {
			continue
		}
		e.log.Debug().Str("name", item.Name).Str("amount", item.Amount).Msg("Line item parsed")
		items = append(items, item)
	}
	return items
}

// row is one candidate line split at its name/number boundary.
type row struct {
	name string
	nums []string
}

func (e *Extractor) parseRow(lines []string, idx int) (models.LineItem, bool) {
	line := strings.TrimSpace(lines[idx])
	if line == "" || columnHeaders.MatchString(line) || letterHeaders.MatchString(line) {
		return models.LineItem{}, false
	}
	start := rowNumber.FindString(line)
	if start == "" {
		return models.LineItem{}, false
	}

	count := len(numberToken.FindAllString(line, -1))
	if count < 3 && !(count == 2 && e.tables.IsSurcharge(strings.ToLower(line))) {
		return models.LineItem{}, false
	}

	r, ok := e.split(line[len(start):])
	if !ok {
		return models.LineItem{}, false
	}

	surcharge := e.tables.IsSurcharge(strings.ToLower(r.name))
	if len(r.nums) < 2 {
		if !surcharge || len(r.nums) != 1 {
			return models.LineItem{}, false
		}
		r.nums = []string{"1", r.nums[0], r.nums[0]}
	}

	name := e.trimUnits(r.name)
	name = e.mergePrevious(lines, idx, name)
	name = e.mergeNext(lines, idx, name)
	name = e.cleanName(name)
	if !e.validName(name) {
		return models.LineItem{}, false
	}

	qty, price, amount, ok := assignColumns(r.nums)
	if !ok {
		return models.LineItem{}, false
	}
	qty, price, amount = fixSwappedAmount(qty, price, amount)

	item := models.LineItem{
		Name:      name,
		Quantity:  money.Reformat(qty),
		UnitPrice: money.Reformat(price),
		Amount:    money.Reformat(amount),
	}
	if m := rowRate.FindStringSubmatch(line); m != nil {
		rate, _ := strconv.Atoi(m[1])
		item.TaxRate = &rate
	}
	return item, true
}

// split finds the name/number boundary of the text after the row number: the
// last unit of measure followed by numbers, or else the first price-like number.
func (e *Extractor) split(rest string) (row, bool) {
	tokens := strings.Fields(rest)
	for i := len(tokens) - 1; i >= 0; i-- {
		if !e.tables.IsUnit(tokens[i]) || e.tables.IsAmbiguousUnit(tokens[i]) {
			continue
		}
		after := strings.Join(tokens[i+1:], " ")
		if !numberToken.MatchString(after) {
			continue
		}
		return row{
			name: strings.Join(tokens[:i], " "),
			nums: numberToken.FindAllString(after, -1),
		}, true
	}

	locs := numberToken.FindAllStringIndex(rest, -1)
	end := len(rest)
	for _, loc := range locs {
		if looksLikePrice(rest[loc[0]:loc[1]]) {
			end = loc[0]
			break
		}
	}
	name := strings.TrimSpace(rest[:end])
	if name == "" {
		return row{}, false
	}
	nums := make([]string, len(locs))
	for i, loc := range locs {
		nums[i] = rest[loc[0]:loc[1]]
	}
	return row{name: name, nums: nums}, true
}

func looksLikePrice(tok string) bool {
	if strings.ContainsAny(tok, ".,") {
		return true
	}
	return len(tok) >= 4
}
