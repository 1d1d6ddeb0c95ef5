// Package ai fills critical invoice fields the rule-based extraction left
// blank, using an LLM provider.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/facturaIA/hoadon-extractor/internal/fields"
	"github.com/facturaIA/hoadon-extractor/internal/models"
	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

const systemPrompt = `Bạn là trợ lý kế toán đọc hóa đơn giá trị gia tăng điện tử của Việt Nam.
Chỉ trả về một đối tượng JSON. Không giải thích. Nếu không chắc chắn, để chuỗi rỗng.`

// maxPromptText bounds the invoice text sent to the provider, in runes.
const maxPromptText = 6000

// Assistant asks a provider for the critical fields that are still blank.
// Values already extracted are never replaced.
type Assistant struct {
	provider Provider
	tables   *tables.Tables
	log      zerolog.Logger
}

// New creates an assistant over a provider.
func New(p Provider, t *tables.Tables, log zerolog.Logger) *Assistant {
	return &Assistant{
		provider: p,
		tables:   t,
		log:      log.With().Str("component", "ai").Str("provider", p.Name()).Logger(),
	}
}

// NewFromConfig creates an assistant from configuration. It returns
// ErrNoProvider when the assist is disabled or has no key.
func NewFromConfig(cfg models.AIConfig, t *tables.Tables, log zerolog.Logger) (*Assistant, error) {
	p, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return New(p, t, log), nil
}

// Name returns the provider name.
func (a *Assistant) Name() string { return a.provider.Name() }

type reply struct {
	Seller     string `json:"seller"`
	Number     string `json:"number"`
	Date       string `json:"date"`
	TaxCode    string `json:"taxCode"`
	Serial     string `json:"serial"`
	LookupCode string `json:"lookupCode"`
}

type target struct {
	field fields.Field
	dest  *string
	pick  func(reply) string
	clean func(*Assistant, string) (string, bool)
	hint  string
}

func targets(rec *models.InvoiceRecord) []target {
	return []target{
		{fields.Seller, &rec.Seller, func(r reply) string { return r.Seller }, (*Assistant).cleanSeller,
			"tên đơn vị bán (người bán), không phải người mua"},
		{fields.Number, &rec.Number, func(r reply) string { return r.Number }, (*Assistant).cleanNumber,
			"số hóa đơn, chỉ gồm chữ số"},
		{fields.Date, &rec.Date, func(r reply) string { return r.Date }, (*Assistant).cleanDate,
			"ngày lập hóa đơn, định dạng dd/mm/yyyy"},
		{fields.TaxCode, &rec.TaxCode, func(r reply) string { return r.TaxCode }, (*Assistant).cleanTaxCode,
			"mã số thuế của đơn vị bán, 10 hoặc 13 chữ số"},
		{fields.Serial, &rec.Serial, func(r reply) string { return r.Serial }, (*Assistant).cleanSerial,
			"ký hiệu hóa đơn, ví dụ 1C24TAA"},
		{fields.LookupCode, &rec.LookupCode, func(r reply) string { return r.LookupCode }, (*Assistant).cleanLookupCode,
			"mã tra cứu hóa đơn"},
	}
}

// Fill asks for every blank critical field of rec and stores the answers that
// pass the same shape checks as the extracted values. It returns the names of
// the fields it filled.
func (a *Assistant) Fill(ctx context.Context, rec *models.InvoiceRecord, text string) ([]string, error) {
	var missing []target
	for _, t := range targets(rec) {
		if strings.TrimSpace(*t.dest) == "" {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 || strings.TrimSpace(text) == "" {
		return nil, nil
	}

	start := time.Now()
	raw, err := a.provider.Complete(ctx, buildPrompt(missing, text))
	if err != nil {
		return nil, fmt.Errorf("assist %s: %w", rec.FileName, err)
	}

	var r reply
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &r); err != nil {
		return nil, fmt.Errorf("parse assist reply: %w", err)
	}

	var filled []string
	for _, t := range missing {
		v, ok := t.clean(a, t.pick(r))
		if !ok {
			continue
		}
		*t.dest = v
		filled = append(filled, string(t.field))
	}

	a.log.Info().
		Str("file", rec.FileName).
		Strs("filled", filled).
		Dur("duration", time.Since(start)).
		Msg("Assist finished")
	return filled, nil
}

func buildPrompt(missing []target, text string) string {
	var sb strings.Builder
	sb.WriteString("Đọc nội dung hóa đơn dưới đây và trả về JSON với các khóa sau:\n")
	for _, t := range missing {
		fmt.Fprintf(&sb, "- %q: %s\n", t.field, t.hint)
	}
	sb.WriteString("\nNội dung hóa đơn:\n")
	sb.WriteString(truncate(text, maxPromptText))
	return sb.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// cleanJSON strips the markdown fences some models wrap around JSON.
func cleanJSON(s string) string {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

var (
	isoDate    = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	localDate  = regexp.MustCompile(`^(\d{1,2})[/\-.](\d{1,2})[/\-.](\d{4})$`)
	serialLike = regexp.MustCompile(`^[0-9A-Z/]{6,12}$`)
	digitsOnly = regexp.MustCompile(`\D`)
)

func (a *Assistant) cleanSeller(s string) (string, bool) {
	s = models.CleanString(s)
	if utf8.RuneCountInString(s) < 5 {
		return "", false
	}
	return s, true
}

func (a *Assistant) cleanNumber(s string) (string, bool) {
	s = digitsOnly.ReplaceAllString(s, "")
	if s == "" || len(s) > 12 {
		return "", false
	}
	return s, true
}

func (a *Assistant) cleanDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if m := isoDate.FindStringSubmatch(s); m != nil {
		return validDate(m[3], m[2], m[1])
	}
	if m := localDate.FindStringSubmatch(s); m != nil {
		return validDate(m[1], m[2], m[3])
	}
	return "", false
}

func validDate(d, m, y string) (string, bool) {
	date, ok := fields.FormatDate(d, m, y)
	if !ok {
		return "", false
	}
	if _, err := time.Parse("02/01/2006", date); err != nil {
		return "", false
	}
	return date, true
}

func (a *Assistant) cleanTaxCode(s string) (string, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	digits := digitsOnly.ReplaceAllString(s, "")
	if len(digits) < 10 || len(s) > 14 || a.tables.IsProviderTaxCode(s) {
		return "", false
	}
	return s, true
}

func (a *Assistant) cleanSerial(s string) (string, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !serialLike.MatchString(s) {
		return "", false
	}
	return s, true
}

func (a *Assistant) cleanLookupCode(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) <= 5 || strings.ContainsAny(s, " \t\n") {
		return "", false
	}
	return s, true
}
