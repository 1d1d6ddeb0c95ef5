package lineitems

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

var (
	leadingNumber = regexp.MustCompile(`^\d+\s+`)
	compactDate   = regexp.MustCompile(`\d{1,2}[/-]\d{1,2}[/-]\d{2,4}`)
	spacedDate    = regexp.MustCompile(`\d{1,2}\s*[/-]\s*\d{1,2}\s*[/-]\s*\d{2,4}`)
	groupedPrice  = regexp.MustCompile(`\d{1,3}(?:[.,]\d{3})+(?:[.,]\d{2})?`)
	longNumber    = regexp.MustCompile(`\b\d{4,}\b`)
	latinLetter   = regexp.MustCompile(`[a-zA-Z]`)
	periodWords   = regexp.MustCompile(`(?i)(ngày|từ|đến|tháng|năm)`)
	vietnamese    = regexp.MustCompile(`(?i)[àáạảãâầấậẩẫăằắặẳẵèéẹẻẽêềếệểễìíịỉĩòóọỏõôồốộổỗơờớợởỡùúụủũưừứựửữỳýỵỷỹđ]`)

	summaryWords = []string{"cộng tiền", "tổng cộng", "thuế", "thành tiền"}
)

const (
	maxPrefixLines = 2
	maxSuffixLines = 3
)

// needsPrefix reports a name that looks like the tail of a wrapped cell.
func needsPrefix(name string) bool {
	check := strings.TrimSpace(leadingNumber.ReplaceAllString(name, ""))
	if utf8.RuneCountInString(check) < 5 {
		return true
	}
	first, _ := utf8.DecodeRuneInString(check)
	if unicode.IsLower(first) || first == '(' || first == ')' {
		return true
	}
	head := []rune(check)
	if len(head) > 10 {
		head = head[:10]
	}
	return strings.ContainsRune(string(head), ')')
}

// mergePrevious folds up to two preceding lines into a truncated name.
func (e *Extractor) mergePrevious(lines []string, idx int, name string) string {
	if !needsPrefix(name) {
		return name
	}
	var parts []string
	for off := 1; off <= maxPrefixLines && idx-off >= 0; off++ {
		prev := strings.TrimSpace(lines[idx-off])
		if utf8.RuneCountInString(prev) < 2 {
			break
		}
		if start := rowNumber.FindString(prev); start != "" {
			rest := strings.TrimSpace(prev[len(start):])
			// a numbered row with its own figures is a separate item
			if strings.ContainsAny(rest, "0123456789") {
				break
			}
			prev = rest
		}
		if e.norm.IsNoise(prev) {
			break
		}
		undated := compactDate.ReplaceAllString(prev, "")
		if groupedPrice.MatchString(undated) || len(longNumber.FindAllString(undated, -1)) > 1 {
			break
		}
		if tables.ContainsAny(strings.ToLower(prev), summaryWords) {
			break
		}
		// closing tail of the previous item
		if (strings.HasSuffix(prev, ")") || strings.HasSuffix(prev, "）")) && latinLetter.MatchString(prev) &&
			!strings.ContainsAny(prev, "(（") {
			break
		}
		// an English gloss above a Vietnamese line belongs to the row before
		if len(parts) > 0 {
			first, _ := utf8.DecodeRuneInString(parts[0])
			if unicode.IsUpper(first) && strings.HasPrefix(prev, "(") && latinLetter.MatchString(prev) {
				break
			}
		}
		parts = append([]string{prev}, parts...)
	}
	if len(parts) == 0 {
		return name
	}
	return strings.Join(parts, " ") + " " + name
}

func unclosedParen(s string) bool {
	return strings.Count(s, "(") > strings.Count(s, ")") || strings.Count(s, "（") > strings.Count(s, "）")
}

// mergeNext appends up to three following lines when the name is cut inside
// parentheses or the next line is a parenthesized gloss.
func (e *Extractor) mergeNext(lines []string, idx int, name string) string {
	open := unclosedParen(name)
	suffix := false
	if idx+1 < len(lines) {
		peek := strings.TrimSpace(lines[idx+1])
		suffix = strings.HasPrefix(peek, "(") && (latinLetter.MatchString(peek) || periodWords.MatchString(peek))
	}
	trimmed := strings.TrimRightFunc(name, unicode.IsSpace)
	last, _ := utf8.DecodeLastRuneInString(trimmed)
	if !open && !suffix && !strings.ContainsRune("(-（", last) {
		return name
	}

	var parts []string
	for off := 1; off <= maxSuffixLines && idx+off < len(lines); off++ {
		next := strings.TrimSpace(lines[idx+off])
		if utf8.RuneCountInString(next) < 2 || rowNumber.MatchString(next) || e.norm.IsNoise(next) {
			break
		}
		if len(numberToken.FindAllString(spacedDate.ReplaceAllString(next, ""), -1)) > 1 {
			break
		}
		if tables.ContainsAny(strings.ToLower(next), summaryWords) {
			break
		}
		first, _ := utf8.DecodeRuneInString(next)
		if unicode.IsUpper(first) {
			closes := open && strings.ContainsAny(next, ")）")
			if !closes && vietnamese.MatchString(next) {
				break
			}
		}
		parts = append(parts, next)
	}
	if len(parts) == 0 {
		return name
	}
	return name + " " + strings.Join(parts, " ")
}
