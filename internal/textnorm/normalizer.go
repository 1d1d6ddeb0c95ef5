// Package textnorm cleans the text of an invoice page before extraction.
package textnorm

import (
	"regexp"
	"strings"

	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

var (
	// 0'}2,950,000'}'} : a serialization remnant that still carries the total.
	hiddenTotalWrapper = regexp.MustCompile(`0'}([\d\.,]+)'\}'\}`)
	spacedHeader       = regexp.MustCompile(`^([A-Z]\s+)+[A-Z]$`)
	arithmeticOnly     = regexp.MustCompile(`^[\d\s()=x+]+$`)

	artifactTokens = strings.NewReplacer("0'}", "", "'}'}", "", "'}", "", "{'", "")
	controlChars   = strings.NewReplacer("\u00ad", "", "\x00", "")
	lineEndings    = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

// Line is one physical line of cleaned text. Noise lines stay in the sequence so
// that line positions keep their meaning, but are never item candidates.
type Line struct {
	Text  string
	Noise bool
}

// Document is the normalized text of one invoice.
type Document struct {
	// Text keeps every surviving line, noise included, for label matching.
	Text  string
	Lines []Line
	// HiddenTotal is the payload of a serialization artifact, offered as the
	// lowest-priority total candidate.
	HiddenTotal string
}

// Empty reports whether no extractable text remains.
func (d *Document) Empty() bool {
	for _, l := range d.Lines {
		if !l.Noise && l.Text != "" {
			return false
		}
	}
	return true
}

// Normalizer turns raw page text into a Document.
type Normalizer struct {
	tables *tables.Tables
}

// New creates a normalizer over the given tables.
func New(t *tables.Tables) *Normalizer {
	return &Normalizer{tables: t}
}

// Normalize unifies line endings, strips artifacts and control characters and
// flags noise lines. Lines that are pure serialization garbage are dropped.
func (n *Normalizer) Normalize(raw string) *Document {
	doc := &Document{}
	raw = lineEndings.Replace(raw)

	kept := make([]string, 0, strings.Count(raw, "\n")+1)
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)

		if m := hiddenTotalWrapper.FindStringSubmatch(line); m != nil {
			if doc.HiddenTotal == "" {
				doc.HiddenTotal = m[1]
			}
			line = strings.Replace(line, m[0], " "+m[1]+" ", 1)
		}
		for i := 0; i < 3; i++ {
			line = artifactTokens.Replace(line)
		}

		if strings.HasPrefix(trimmed, "{") ||
			(len(trimmed) > 1 && strings.HasPrefix(trimmed, "'") && strings.HasSuffix(trimmed, "'")) {
			continue
		}

		line = controlChars.Replace(line)
		kept = append(kept, line)

		text := strings.TrimSpace(line)
		doc.Lines = append(doc.Lines, Line{Text: text, Noise: n.IsNoise(text)})
	}
	doc.Text = strings.Join(kept, "\n")
	return doc
}

// IsNoise reports header, footer and summary lines: too short, spaced-out
// capitals, pure arithmetic, table vocabulary, or long parenthesis-heavy text.
func (n *Normalizer) IsNoise(text string) bool {
	if len([]rune(text)) < 2 {
		return true
	}
	if spacedHeader.MatchString(text) || arithmeticOnly.MatchString(text) {
		return true
	}
	lower := strings.ToLower(text)
	if n.tables.IsJunk(lower) {
		return true
	}
	return len([]rune(lower)) > 50 && strings.Count(lower, "(")+strings.Count(lower, ")") > 4
}
