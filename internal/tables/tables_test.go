package tables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	tb := Default()
	require.NotNil(t, tb)

	assert.Equal(t, "Khác", tb.FallbackCategory)
	assert.Equal(t, "không nhận diện được", tb.Unrecognized)
	require.Len(t, tb.Categories, 6)
	assert.Equal(t, "Dịch vụ ăn uống", tb.Categories[0].Name)
	assert.True(t, tb.Categories[4].Substring)
	assert.Contains(t, tb.Brands, "KATINAT")
}

func TestUnits(t *testing.T) {
	tb := Default()
	assert.True(t, tb.IsUnit("phần"))
	assert.True(t, tb.IsUnit("KG"))
	assert.False(t, tb.IsUnit("gà"))
	assert.True(t, tb.IsAmbiguousUnit("Thanh"))
}

func TestIsProviderTaxCode(t *testing.T) {
	tb := Default()
	assert.True(t, tb.IsProviderTaxCode("0106869738"))
	assert.True(t, tb.IsProviderTaxCode("0106869738-001"))
	assert.True(t, tb.IsProviderTaxCode("010686973"))
	assert.False(t, tb.IsProviderTaxCode("0312345678"))
	assert.False(t, tb.IsProviderTaxCode(""))
}

func TestMatchTemplate(t *testing.T) {
	tb := Default()
	tpl := tb.MatchTemplate("cửa hàng xăng dầu petrolimex số 5")
	require.NotNil(t, tpl)
	assert.Equal(t, 8, tpl.Rate)
	assert.Equal(t, "Xăng xe", tpl.Category)

	assert.Nil(t, tb.MatchTemplate("nhà hàng hải sản"))
}

func TestParse_Substitute(t *testing.T) {
	tb, err := Parse([]byte(`
unrecognized: "n/a"
fallback_category: "Other"
units: ["box"]
`))
	require.NoError(t, err)
	assert.True(t, tb.IsUnit("BOX"))
	assert.Empty(t, tb.Categories)

	_, err = Parse([]byte(`units: []`))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/tables.yaml")
	assert.Error(t, err)

	tb, err := Load("")
	require.NoError(t, err)
	assert.NotEmpty(t, tb.Units)
}
