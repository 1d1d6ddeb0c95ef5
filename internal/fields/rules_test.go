package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_DateSplitOverCaptions(t *testing.T) {
	v := newExtractor().Extract(docOf("Ngày (Date) 05 tháng (month) 11 năm (year) 2023", "a.pdf"))
	assert.Equal(t, "05/11/2023", v[Date])
}

func TestExtract_DateOutOfRange(t *testing.T) {
	v := newExtractor().Extract(docOf("Ngày 45 tháng 13 năm 2024", "a.pdf"))
	assert.Empty(t, v[Date])
}

func TestFormatDate(t *testing.T) {
	got, ok := FormatDate("5", "3", "2024")
	assert.True(t, ok)
	assert.Equal(t, "05/03/2024", got)

	_, ok = FormatDate("0", "3", "2024")
	assert.False(t, ok)
}

func TestExtract_TaxCodeSkipsProvider(t *testing.T) {
	text := "Mã số thuế: 0106869738\nNội dung khác\nMã số thuế: 0312345678"
	v := newExtractor().Extract(docOf(text, "a.pdf"))
	assert.Equal(t, "0312345678", v[TaxCode])
}

func TestExtract_TaxCodeSpacedDigits(t *testing.T) {
	v := newExtractor().Extract(docOf("Mã số thuế: 0 3 1 2 3 4 5 6 7 8", "a.pdf"))
	assert.Equal(t, "0312345678", v[TaxCode])
}

func TestExtract_SellerLabelled(t *testing.T) {
	text := "Đơn vị bán hàng (Seller): CÔNG TY CỔ PHẦN XYZ\nMã số thuế (Tax code): 0312345678"
	v := newExtractor().Extract(docOf(text, "a.pdf"))
	assert.Equal(t, "CÔNG TY CỔ PHẦN XYZ", v[Seller])
}

func TestExtract_NumberFromFileName(t *testing.T) {
	v := newExtractor().Extract(docOf("Cảm ơn quý khách", "HD_2024_000123.pdf"))
	assert.Equal(t, "000123", v[Number])
}

func TestExtract_AuthorityCode(t *testing.T) {
	v := newExtractor().Extract(docOf("Mã CQT: 00A1B2C3D4E5F6", "a.pdf"))
	assert.Equal(t, "00A1B2C3D4E5F6", v[AuthorityCode])
}

func TestValidSerial(t *testing.T) {
	assert.True(t, validSerial("1C24TAA"))
	assert.False(t, validSerial("m"))
	assert.False(t, validSerial("ABCDE"))
}

func TestNormalizeLink(t *testing.T) {
	tests := map[string]string{
		"hoadon.pvoil.vn":          "http://hoadon.pvoil.vn",
		"https://tracuu.vn/hd.":    "https://tracuu.vn/hd",
		"abc":                      "",
		"":                         "",
		"http://x.vn/check?id=123": "http://x.vn/check?id=123",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeLink(in), in)
	}
}

func TestFinalizeSeller(t *testing.T) {
	assert.Equal(t, "CÔNG TY A", finalizeSeller("(Seller): CÔNG TY A"))
	assert.Empty(t, finalizeSeller("Được ký bởi CÔNG TY B"))
}
