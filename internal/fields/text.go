package fields

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/facturaIA/hoadon-extractor/internal/money"
)

var moneyToken = regexp.MustCompile(`\d+(?:[.,]\d+)*`)

// lineAt returns the physical line of text that contains [start, end).
func lineAt(text string, start, end int) string {
	lineStart := strings.LastIndex(text[:start], "\n") + 1
	lineEnd := strings.Index(text[end:], "\n")
	if lineEnd == -1 {
		return text[lineStart:]
	}
	return text[lineStart : end+lineEnd]
}

// lastSubmatch returns the capture groups of the last match of re in text.
func lastSubmatch(re *regexp.Regexp, text string) []string {
	all := re.FindAllStringSubmatch(text, -1)
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

// lastGroup returns capture group 1 of the last match.
func lastGroup(re *regexp.Regexp, text string) string {
	if m := lastSubmatch(re, text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// firstGroup returns capture group 1 of the first match.
func firstGroup(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// lastNonZero returns the last amount token of s that parses to a positive value.
func lastNonZero(s string) string {
	nums := moneyToken.FindAllString(s, -1)
	for i := len(nums) - 1; i >= 0; i-- {
		if v, ok := money.Parse(nums[i]); ok && v > 0 {
			return nums[i]
		}
	}
	return ""
}

// isUpper reports whether s has cased letters and all of them are upper case.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func runeLen(s string) int {
	return len([]rune(s))
}

// lastRunes returns the last n runes of s.
func lastRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
