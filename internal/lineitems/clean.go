package lineitems

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	junkPrefixes = []string{
		"GTGT", "VAT) rate)", "VAT rate", "Rate)", "A B C", "khấu", "KHẤU",
		"Phần）", "Phần)", "PHẦN）", "PHẦN)", "ĐVT:", "ĐVT",
	}
	columnLetters  = regexp.MustCompile(`^(?:[A-C]\s)+[\d\s=x]+`)
	leadingFigures = regexp.MustCompile(`^[\d\s=x+]+(\s|$)`)
	formulaTail    = regexp.MustCompile(`\s+[\-\+]\s*[\d\s=x\+\-]+$`)
	numericTail    = regexp.MustCompile(`(\S+)\s+(\d+[\s.,\d]*)$`)
	digitsOnly     = regexp.MustCompile(`^[\d\s]+$`)
	symbolsOnly    = regexp.MustCompile(`^[\d\s=x\+\-\.,()\[\]]+$`)

	// a number after these words is part of the name: "mệnh giá 20.000", "phòng 302"
	numberedWords = map[string]bool{
		"giá": true, "gia": true, "mệnh": true, "số": true,
		"phòng": true, "room": true, "no": true, "no.": true,
	}
)

// trimUnits drops unit tokens around a name and unit suffixes glued to its
// last word. Ambiguous units are kept at the start ("Thanh long").
func (e *Extractor) trimUnits(name string) string {
	tokens := e.stripUnitTokens(strings.Fields(name))
	if len(tokens) == 0 {
		return ""
	}
	tokens[0] = strings.TrimSpace(strings.TrimLeft(tokens[0], ")）"))

	last := tokens[len(tokens)-1]
	upper := strings.ToUpper(last)
	for _, u := range e.tables.Units {
		if utf8.RuneCountInString(u) >= 3 && len(upper) == len(last) && strings.HasSuffix(upper, u) && len(upper) > len(u) {
			tokens[len(tokens)-1] = strings.TrimRight(last[:len(last)-len(u)], "(（")
			break
		}
	}
	return strings.Join(tokens, " ")
}

func (e *Extractor) stripUnitTokens(tokens []string) []string {
	for len(tokens) > 0 && e.tables.IsUnit(tokens[len(tokens)-1]) {
		tokens = tokens[:len(tokens)-1]
	}
	for len(tokens) > 0 && e.tables.IsUnit(tokens[0]) && !e.tables.IsAmbiguousUnit(tokens[0]) {
		tokens = tokens[1:]
	}
	return tokens
}

// cleanName removes caption remnants, column numbering and trailing figures
// left over after merging.
func (e *Extractor) cleanName(name string) string {
	name = strings.TrimSpace(name)
	for _, p := range junkPrefixes {
		name = strings.TrimSpace(strings.TrimPrefix(name, p+" "))
		name = strings.TrimSpace(strings.TrimPrefix(name, p))
	}
	name = columnLetters.ReplaceAllString(name, "")
	name = leadingFigures.ReplaceAllString(name, "")
	name = formulaTail.ReplaceAllString(name, "")

	if m := numericTail.FindStringSubmatchIndex(name); m != nil {
		word := strings.ToLower(name[m[2]:m[3]])
		num := ""
		if f := strings.Fields(name[m[4]:m[5]]); len(f) > 0 {
			num = f[0]
		}
		year := len(num) == 4 && isDigits(num)
		if !year && !numberedWords[word] {
			name = strings.TrimSpace(name[:m[4]])
		}
	}

	return strings.Join(e.stripUnitTokens(strings.Fields(name)), " ")
}

func (e *Extractor) validName(name string) bool {
	if utf8.RuneCountInString(name) < 3 || e.norm.IsNoise(name) {
		return false
	}
	return !digitsOnly.MatchString(name) && !symbolsOnly.MatchString(name)
}
