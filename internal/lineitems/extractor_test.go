package lineitems

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

func newExtractor() *Extractor {
	return New(tables.Default(), zerolog.Nop())
}

func TestExtract_UnitSplitsNameAndNumbers(t *testing.T) {
	items := newExtractor().Extract([]string{"1. Cơm gà nướng PHẦN 2 45.000 90.000"})
	require.Len(t, items, 1)

	assert.Equal(t, "Cơm gà nướng", items[0].Name)
	assert.Equal(t, "2", items[0].Quantity)
	assert.Equal(t, "45.000", items[0].UnitPrice)
	assert.Equal(t, "90.000", items[0].Amount)
	assert.Nil(t, items[0].TaxRate)
}

func TestExtract_DiscountColumnAndRate(t *testing.T) {
	items := newExtractor().Extract([]string{"2 Bia Tiger LON 10 20.000 0 200.000 10% 20.000"})
	require.Len(t, items, 1)

	assert.Equal(t, "Bia Tiger", items[0].Name)
	assert.Equal(t, "10", items[0].Quantity)
	assert.Equal(t, "20.000", items[0].UnitPrice)
	assert.Equal(t, "200.000", items[0].Amount)
	require.NotNil(t, items[0].TaxRate)
	assert.Equal(t, 10, *items[0].TaxRate)
}

func TestExtract_SurchargeWithSingleAmount(t *testing.T) {
	items := newExtractor().Extract([]string{"3 Phụ thu 171.500"})
	require.Len(t, items, 1)

	assert.Equal(t, "Phụ thu", items[0].Name)
	assert.Equal(t, "1", items[0].Quantity)
	assert.Equal(t, "171.500", items[0].UnitPrice)
	assert.Equal(t, "171.500", items[0].Amount)
}

func TestExtract_RateDigitReadAsAmount(t *testing.T) {
	items := newExtractor().Extract([]string{"1 Phí phục vụ 1 46.800 8"})
	require.Len(t, items, 1)

	assert.Equal(t, "Phí phục vụ", items[0].Name)
	assert.Equal(t, "46.800", items[0].Amount)
}

func TestExtract_MergesPreviousLine(t *testing.T) {
	items := newExtractor().Extract([]string{
		"Lẩu thái hải sản",
		"2 (size lớn) PHẦN 1 350.000 350.000",
	})
	require.Len(t, items, 1)
	assert.Equal(t, "Lẩu thái hải sản (size lớn)", items[0].Name)
}

func TestExtract_MergesNextLineInsideParentheses(t *testing.T) {
	items := newExtractor().Extract([]string{
		"1 Combo gia đình (gồm PHẦN 1 500.000 500.000",
		"nước ngọt)",
	})
	require.Len(t, items, 1)
	assert.Equal(t, "Combo gia đình (gồm nước ngọt)", items[0].Name)
}

func TestExtract_SkipsHeadersAndShortRows(t *testing.T) {
	items := newExtractor().Extract([]string{
		"STT Tên hàng Đơn vị tính Số lượng Đơn giá Thành tiền",
		"1 2 3 4 5 6=4x5",
		"Cộng tiền hàng: 90.000",
		"4 Khăn lạnh 2.000",
		"",
	})
	assert.Empty(t, items)
}

func TestAssignColumns(t *testing.T) {
	tests := []struct {
		nums               []string
		qty, price, amount string
		ok                 bool
	}{
		{nums: []string{"2", "90.000"}, qty: "2", price: "90.000", amount: "90.000", ok: true},
		{nums: []string{"2", "45.000", "90.000"}, qty: "2", price: "45.000", amount: "90.000", ok: true},
		// service charge injected before the amount
		{nums: []string{"2", "45.000", "9.000", "90.000", "8"}, qty: "2", price: "45.000", amount: "90.000", ok: true},
		{nums: []string{"1"}},
	}
	for _, tt := range tests {
		qty, price, amount, ok := assignColumns(tt.nums)
		assert.Equal(t, tt.ok, ok, tt.nums)
		assert.Equal(t, tt.qty, qty, tt.nums)
		assert.Equal(t, tt.price, price, tt.nums)
		assert.Equal(t, tt.amount, amount, tt.nums)
	}
}
