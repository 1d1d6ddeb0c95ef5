// Package money parses and formats Vietnamese đồng amounts written with either
// Vietnamese (1.234.567,00) or English (1,234,567.00) separator conventions.
package money

import (
	"regexp"
	"strconv"
	"strings"
)

// VND is a non-negative amount in đồng. Fractional units are not modeled.
type VND int64

// NoiseFloor is the smallest value accepted as an amount. Anything below it is
// a row index or a rate percentage that was captured by mistake.
const NoiseFloor VND = 1000

var (
	decimalSuffix   = regexp.MustCompile(`[,.]\d{2}$`)
	thousandsSuffix = regexp.MustCompile(`[,.]\d{3}$`)
	separators      = regexp.MustCompile(`[.,]`)
)

// Parse resolves an amount token into đồng. It returns false when the token is
// not a number; callers must keep that distinct from zero.
func Parse(token string) (VND, bool) {
	s := strings.TrimSpace(token)
	if s == "" {
		return 0, false
	}

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0:
		// the later separator is the decimal mark
		s = s[:max(dot, comma)]
	case decimalSuffix.MatchString(s) && !thousandsSuffix.MatchString(s):
		s = s[:len(s)-3]
	}

	s = separators.ReplaceAllString(s, "")
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return VND(n), true
}

// ParseAmount is Parse with the noise floor applied.
func ParseAmount(token string) (VND, bool) {
	v, ok := Parse(token)
	if !ok || v < NoiseFloor {
		return 0, false
	}
	return v, true
}

// Format groups the amount by thousands with dots: 1234567 -> "1.234.567".
func Format(v VND) string {
	digits := strconv.FormatInt(int64(v), 10)
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// String implements fmt.Stringer.
func (v VND) String() string {
	return Format(v)
}

// Reformat parses a token and formats it back, returning the input unchanged
// when it is not a number.
func Reformat(token string) string {
	v, ok := Parse(token)
	if !ok {
		return strings.TrimSpace(token)
	}
	return Format(v)
}
