// Package tables holds the fixed vocabularies (categories, brands, units,
// blacklists, context words) the extraction pipeline matches against.
package tables

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// Category is a named keyword set. Order in Tables.Categories is the
// tie-break order for classification.
type Category struct {
	Name         string   `yaml:"name"`
	Keywords     []string `yaml:"keywords"`
	TextKeywords []string `yaml:"text_keywords"`
	Substring    bool     `yaml:"substring"`
}

// Template overrides the default rate and category for one seller family
// (e.g. fuel retailers, which always bill at 8%).
type Template struct {
	Name     string   `yaml:"name"`
	Markers  []string `yaml:"markers"`
	Rate     int      `yaml:"rate"`
	Category string   `yaml:"category"`
}

// Tables is loaded once and shared read-only by every pipeline run.
type Tables struct {
	Unrecognized     string     `yaml:"unrecognized"`
	FallbackCategory string     `yaml:"fallback_category"`
	Categories       []Category `yaml:"categories"`
	BrandCategory    string     `yaml:"brand_category"`
	Brands           []string   `yaml:"brands"`
	SellerCategories []Category `yaml:"seller_categories"`
	OCRCategories    []Category `yaml:"ocr_categories"`
	Units            []string   `yaml:"units"`
	AmbiguousUnits   []string   `yaml:"ambiguous_units"`
	JunkKeywords     []string   `yaml:"junk_keywords"`
	Surcharge        []string   `yaml:"surcharge_keywords"`
	ProviderTaxCodes []string   `yaml:"provider_tax_codes"`
	TaxCodeReject    []string   `yaml:"tax_code_reject_context"`
	OCRTaxCodeReject []string   `yaml:"ocr_tax_code_reject_context"`
	AddressContext   []string   `yaml:"address_context"`
	Templates        []Template `yaml:"templates"`

	units     map[string]bool
	ambiguous map[string]bool
}

// Default returns the embedded tables.
func Default() *Tables {
	t, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("tables: embedded default.yaml: %v", err))
	}
	return t
}

// Load reads tables from a YAML file. An empty path yields Default().
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tables file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML tables and builds the lookup indexes.
func Parse(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse tables: %w", err)
	}
	if t.FallbackCategory == "" {
		return nil, fmt.Errorf("tables: fallback_category is required")
	}
	if t.Unrecognized == "" {
		return nil, fmt.Errorf("tables: unrecognized is required")
	}

	t.units = make(map[string]bool, len(t.Units))
	for _, u := range t.Units {
		t.units[strings.ToUpper(u)] = true
	}
	t.ambiguous = make(map[string]bool, len(t.AmbiguousUnits))
	for _, u := range t.AmbiguousUnits {
		t.ambiguous[strings.ToUpper(u)] = true
	}
	return &t, nil
}

// IsUnit reports whether tok is a unit of measure, ignoring case.
func (t *Tables) IsUnit(tok string) bool {
	return t.units[strings.ToUpper(tok)]
}

// IsAmbiguousUnit reports units that are never used to split a line.
func (t *Tables) IsAmbiguousUnit(tok string) bool {
	return t.ambiguous[strings.ToUpper(tok)]
}

// IsProviderTaxCode reports whether code belongs to an e-invoice vendor. Partial
// OCR captures match in both directions.
func (t *Tables) IsProviderTaxCode(code string) bool {
	if code == "" {
		return false
	}
	for _, bl := range t.ProviderTaxCodes {
		if strings.Contains(code, bl) || strings.Contains(bl, code) {
			return true
		}
	}
	return false
}

// IsJunk reports whether lower-cased text contains a header/footer keyword.
func (t *Tables) IsJunk(lower string) bool {
	return ContainsAny(lower, t.JunkKeywords)
}

// IsSurcharge reports fee/surcharge vocabulary in lower-cased text.
func (t *Tables) IsSurcharge(lower string) bool {
	return ContainsAny(lower, t.Surcharge)
}

// HasAddressContext reports whether lower-cased text reads like a postal address.
func (t *Tables) HasAddressContext(lower string) bool {
	return ContainsAny(lower, t.AddressContext)
}

// MatchTemplate returns the first template with a marker in lower-cased text.
func (t *Tables) MatchTemplate(lower string) *Template {
	for i := range t.Templates {
		if ContainsAny(lower, t.Templates[i].Markers) {
			return &t.Templates[i]
		}
	}
	return nil
}

// ContainsAny reports whether s contains any of the substrings.
func ContainsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
