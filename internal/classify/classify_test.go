package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/facturaIA/hoadon-extractor/internal/models"
	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

func items(names ...string) []models.LineItem {
	out := make([]models.LineItem, len(names))
	for i, n := range names {
		out[i] = models.LineItem{Name: n}
	}
	return out
}

func TestClassify(t *testing.T) {
	c := New(tables.Default())

	tests := []struct {
		name   string
		seller string
		items  []models.LineItem
		text   string
		want   string
	}{
		{"brand beats item keywords", "CÔNG TY TNHH Katinat Sài Gòn", items("Thuê phòng họp", "Meeting room"), "", "Dịch vụ ăn uống"},
		{"travel seller", "CÔNG TY TNHH DU LỊCH BIỂN XANH", items("Vé tham quan"), "", "Dịch vụ du lịch"},
		{"travel in text", "HỘ KINH DOANH NHÂN LỢI PHÁT", nil, "HỘ KINH DOANH DỊCH VỤ DU LỊCH NHÂN LỢI PHÁT", "Dịch vụ du lịch"},
		{"food items", "CÔNG TY TNHH NHÀ HÀNG BẾN THÀNH", items("Cơm gà nướng", "Trà đá"), "", "Dịch vụ ăn uống"},
		{"room items", "CÔNG TY TNHH AN BÌNH", items("Thuê phòng 2 đêm", "Khách sạn An Bình"), "", "Dịch vụ phòng nghỉ"},
		{"fuel glued by OCR", "CỬA HÀNG SỐ 5", items("XăngRON95-III"), "", "Xăng xe"},
		{"tie goes to first category", "CÔNG TY TNHH MAI", items("hoa quà"), "", "Hoa tươi"},
		{"no items", "CÔNG TY TNHH MAI", nil, "", "Khác"},
		{"no keyword", "CÔNG TY TNHH MAI", items("Văn phòng phẩm"), "", "Khác"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.seller, tt.items, tt.text))
		})
	}
}

func TestClassifyScan(t *testing.T) {
	tb := tables.Default()
	c := New(tb)

	assert.Equal(t, "Xăng xe", c.ClassifyScan("PETROLIMEX ...", tb.MatchTemplate("petrolimex")))
	assert.Equal(t, "Dịch vụ phòng nghỉ", c.ClassifyScan("KHÁCH SẠN SAO MAI\nTiền phòng", nil))
	assert.Equal(t, "Dịch vụ ăn uống", c.ClassifyScan("Nhà hàng Biển Đông", nil))
	assert.Equal(t, "Khác", c.ClassifyScan("Văn phòng phẩm", nil))
}

func TestContainsWord(t *testing.T) {
	assert.True(t, containsWord("cá hấp gừng", "hấp"))
	assert.False(t, containsWord("đèn thấp", "hấp"))
	assert.True(t, containsWord("thấp hấp", "hấp"))
	assert.True(t, containsWord("cà phê sữa", "cà phê"))
	assert.False(t, containsWord("gàu", "gà"))
	assert.True(t, containsWord("gà", "gà"))
	assert.False(t, containsWord("", "gà"))
}
