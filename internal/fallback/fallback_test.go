package fallback

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturaIA/hoadon-extractor/internal/fields"
	"github.com/facturaIA/hoadon-extractor/internal/money"
	"github.com/facturaIA/hoadon-extractor/internal/ocr"
	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

// fakeEngine answers by image width, which tells the full page from the
// upscaled header regions.
type fakeEngine struct {
	byWidth map[int]string
	calls   []int
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(_ context.Context, img image.Image, _ ocr.Options) (*ocr.Result, error) {
	w := img.Bounds().Dx()
	f.calls = append(f.calls, w)
	text, ok := f.byWidth[w]
	if !ok {
		return nil, errors.New("unexpected image")
	}
	return &ocr.Result{Text: text, Confidence: 80}, nil
}

type fakePages struct {
	pages []image.Image
	err   error
}

func (f fakePages) Pages([]byte) ([]image.Image, error) { return f.pages, f.err }

func onePage() fakePages {
	return fakePages{pages: []image.Image{image.NewGray(image.Rect(0, 0, 1000, 2000))}}
}

func newPipeline(engine ocr.Engine, pages fakePages) *Pipeline {
	return New(tables.Default(), engine, pages, ocr.NewPreprocessor(2), zerolog.Nop())
}

func TestParseWords(t *testing.T) {
	tests := []struct {
		text string
		want money.VND
	}{
		{"bảy trăm nghìn", 700000},
		{"Bảy trăm nghìn đồng chẵn", 700000},
		{"một triệu hai trăm năm mươi nghìn", 1250000},
		{"mười lăm nghìn", 15000},
		{"hai mươi mốt nghìn năm trăm", 21500},
		{"một trăm linh năm nghìn", 105000},
		{"nghìn", 1000},
		{"hai tỷ", 2000000000},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseWords(tt.text))
		})
	}
}

const petrolimexScan = `CÔNG TY XĂNG DẦU KHU VỰC II - TNHH MỘT THÀNH VIÊN Ký hiệu: 1C24TAA
PETROLIMEX
Ma sé thué: 0300555450
Ngay 15 thang 02 nam 2026
ông tiên hàng: 462.963
lên thuê GTGT (8% ) 37.037
ông sô tiên thanh toán: 500.000
Mã tra cứu: AB12CD34EF
`

func TestExtract_FuelReceipt(t *testing.T) {
	p := newPipeline(ocr.Disabled{}, onePage())
	res := p.Extract(petrolimexScan, "HD_0001234.pdf")

	v := res.Values
	assert.Equal(t, "CÔNG TY XĂNG DẦU KHU VỰC II - TNHH MỘT THÀNH VIÊN", v[fields.Seller])
	assert.Equal(t, "1C24TAA", v[fields.Serial])
	assert.Equal(t, "0001234", v[fields.Number])
	assert.Equal(t, "0300555450", v[fields.TaxCode])
	assert.Equal(t, "15/02/2026", v[fields.Date])
	assert.Equal(t, "462.963", v[fields.PreTax])
	assert.Equal(t, "37.037", v[fields.TaxTotal])
	assert.Equal(t, "500.000", v[fields.Total])
	assert.Equal(t, "AB12CD34EF", v[fields.LookupCode])
	// fuel receipts get their bucket from the template during reconciliation
	assert.Empty(t, v[fields.Tax8])

	require.NotNil(t, res.Template)
	assert.Equal(t, 8, res.Template.Rate)
}

func TestExtract_RejectsPhoneNumberAndBuyerTaxCode(t *testing.T) {
	p := newPipeline(ocr.Disabled{}, onePage())
	text := "Hotline No. 0903123456\nInvoice No. 0004567\n" +
		"Người mua hàng MST: 0109999999\nMã số thuế: 0312345678\n"
	v := p.Extract(text, "scan.pdf").Values

	assert.Equal(t, "0004567", v[fields.Number])
	assert.Equal(t, "0312345678", v[fields.TaxCode])
}

func TestExtract_TotalInWordsAndRate(t *testing.T) {
	p := newPipeline(ocr.Disabled{}, onePage())
	text := "CỬA HÀNG HOA TƯƠI MAI\nThuế suất 10%\nTiền thuế GTGT: 63.636\n" +
		"Số tiền viết bằng chữ: Bảy trăm nghìn đồng\n"
	v := p.Extract(text, "scan.pdf").Values

	assert.Equal(t, "CỬA HÀNG HOA TƯƠI MAI", v[fields.Seller])
	assert.Equal(t, "700.000", v[fields.Total])
	assert.Equal(t, "63.636", v[fields.Tax10])
	assert.Empty(t, v[fields.Tax8])
}

func TestExtract_TaxFromDifference(t *testing.T) {
	p := newPipeline(ocr.Disabled{}, onePage())
	text := "Cộng tiền hàng: 1.000.000\nTổng cộng: 1.050.000\n"
	v := p.Extract(text, "scan.pdf").Values

	assert.Equal(t, "1.000.000", v[fields.PreTax])
	assert.Equal(t, "1.050.000", v[fields.Total])
	assert.Equal(t, "50.000", v[fields.TaxTotal])
}

func TestRun_RefinesHeaderRegions(t *testing.T) {
	engine := &fakeEngine{byWidth: map[int]string{
		1000: "CÔNG TY TNHH AN PHÁT\nNgày 03 tháng 04 năm 2024\nCộng tiền hàng: 1.000.000\n" +
			"Tiền thuế GTGT: 100.000\nTổng cộng tiền thanh toán: 1.100.000\n",
		600:  "Số: 0004567",
		2000: "Mã số thuế: 0106869738\nMã số thuế: 0312 345 678\n",
	}}
	p := newPipeline(engine, onePage())

	res, err := p.Run(context.Background(), []byte("%PDF"), "scan.pdf")
	require.NoError(t, err)
	require.False(t, res.Empty())

	assert.Equal(t, []int{1000, 600, 2000}, engine.calls)
	assert.Equal(t, []fields.Field{fields.Number, fields.TaxCode}, res.Refined)
	assert.Equal(t, "0004567", res.Values[fields.Number])
	assert.Equal(t, "0312345678", res.Values[fields.TaxCode])
	assert.Equal(t, "03/04/2024", res.Values[fields.Date])
	assert.Equal(t, "1.000.000", res.Values[fields.PreTax])
	assert.Equal(t, "100.000", res.Values[fields.TaxTotal])
	assert.Equal(t, "1.100.000", res.Values[fields.Total])
	assert.Nil(t, res.Template)
	assert.InDelta(t, 80, res.Confidence, 0.001)
}

func TestRun_NoRefineWhenComplete(t *testing.T) {
	engine := &fakeEngine{byWidth: map[int]string{1000: petrolimexScan}}
	p := newPipeline(engine, onePage())

	res, err := p.Run(context.Background(), nil, "HD_0001234.pdf")
	require.NoError(t, err)
	assert.Empty(t, res.Refined)
	assert.Equal(t, []int{1000}, engine.calls)
}

func TestRun_EmptyAndUnavailable(t *testing.T) {
	blank := &fakeEngine{byWidth: map[int]string{1000: "  \n"}}
	res, err := newPipeline(blank, onePage()).Run(context.Background(), nil, "scan.pdf")
	require.NoError(t, err)
	assert.True(t, res.Empty())

	res, err = newPipeline(ocr.Disabled{}, onePage()).Run(context.Background(), nil, "scan.pdf")
	require.NoError(t, err)
	assert.True(t, res.Empty())

	res, err = newPipeline(blank, fakePages{err: errors.New("broken")}).Run(context.Background(), nil, "scan.pdf")
	require.NoError(t, err)
	assert.True(t, res.Empty())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newPipeline(blank, onePage()).Run(ctx, nil, "scan.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}
