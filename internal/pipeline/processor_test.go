package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturaIA/hoadon-extractor/internal/models"
	"github.com/facturaIA/hoadon-extractor/internal/ocr"
	"github.com/facturaIA/hoadon-extractor/internal/pdftext"
)

// fakeText serves the text layer by document bytes. "panic" panics.
type fakeText map[string]string

func (f fakeText) Text(data []byte) (string, error) {
	if string(data) == "panic" {
		panic("corrupt xref table")
	}
	text, ok := f[string(data)]
	if !ok || text == "" {
		return "", pdftext.ErrNoText
	}
	return text, nil
}

type fakePages struct{}

func (fakePages) Pages([]byte) ([]image.Image, error) {
	return []image.Image{image.NewGray(image.Rect(0, 0, 1000, 2000))}, nil
}

type fakeEngine struct {
	mu    sync.Mutex
	text  string
	calls int
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(context.Context, image.Image, ocr.Options) (*ocr.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &ocr.Result{Text: f.text, Confidence: 75}, nil
}

type fakeAssist struct {
	err error
}

func (f fakeAssist) Fill(_ context.Context, rec *models.InvoiceRecord, _ string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if rec.Number != "" {
		return nil, nil
	}
	rec.Number = "0000042"
	return []string{"number"}, nil
}

func newProcessor(text fakeText, engine ocr.Engine, assist Assist) *Processor {
	return New(Options{
		Text:    text,
		Pages:   fakePages{},
		Engine:  engine,
		Assist:  assist,
		Workers: 2,
		Log:     zerolog.Nop(),
	})
}

const textInvoice = `CÔNG TY TNHH THƯƠNG MẠI AN PHÁT
Mã số thuế: 0312345678
Địa chỉ: 12 Lê Lợi, Quận 1
HÓA ĐƠN GIÁ TRỊ GIA TĂNG
Ký hiệu: 1C24TAA
Số: 0001234
Ngày 15 tháng 03 năm 2024
Cộng tiền hàng: 1.000.000
Tiền thuế GTGT: 80.000
Tổng cộng tiền thanh toán: 1.080.000
Tra cứu hóa đơn tại: https://tracuu.example.vn
Mã tra cứu: ABCD12345`

const fuelScan = `CÔNG TY XĂNG DẦU KHU VỰC II - TNHH MỘT THÀNH VIÊN Ký hiệu: 1C24TAA
PETROLIMEX
Ma sé thué: 0300555450
Ngay 15 thang 02 nam 2026
ông tiên hàng: 462.963
lên thuê GTGT (8% ) 37.037
ông sô tiên thanh toán: 500.000
Mã tra cứu: AB12CD34EF
`

func TestProcess_TextLayer(t *testing.T) {
	engine := &fakeEngine{}
	p := newProcessor(fakeText{"a": textInvoice}, engine, nil)

	res := p.Process(context.Background(), Document{
		Name: "a.pdf", Data: []byte("a"), Team: "A", Employee: "Nguyễn Văn A",
	})
	rec := res.Record

	assert.Equal(t, SourceText, res.Source)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "a.pdf", rec.FileName)
	assert.Equal(t, "CÔNG TY TNHH THƯƠNG MẠI AN PHÁT", rec.Seller)
	assert.Equal(t, "0001234", rec.Number)
	assert.Equal(t, "15/03/2024", rec.Date)
	assert.Equal(t, "0312345678", rec.TaxCode)
	assert.Equal(t, "1.000.000", rec.PreTax.String())
	assert.Equal(t, "80.000", rec.Tax8.String())
	assert.Equal(t, "80.000", rec.TaxTotal.String())
	assert.Equal(t, "1.080.000", rec.Total.String())
	assert.True(t, rec.Tax10.IsAbsent())
	assert.Equal(t, "Khác", rec.Category)
	assert.Equal(t, "A", rec.Team)
	assert.Equal(t, "Nguyễn Văn A", rec.Employee)

	assert.Contains(t, res.Steps, "inferRate")
	assert.True(t, res.Valid)
	assert.False(t, res.NeedsReview)
	assert.Empty(t, res.Issues)
	assert.NotNil(t, res.Items)
	assert.Zero(t, engine.calls)
}

func TestProcess_CategoryOverride(t *testing.T) {
	p := newProcessor(fakeText{"a": textInvoice}, &fakeEngine{}, nil)

	res := p.Process(context.Background(), Document{Name: "a.pdf", Data: []byte("a"), Category: "Tiếp khách"})
	assert.Equal(t, "Tiếp khách", res.Record.Category)

	res = p.Process(context.Background(), Document{Name: "a.pdf", Data: []byte("a"), Category: AutoCategory})
	assert.Equal(t, "Khác", res.Record.Category)
}

func TestProcess_OCRFallback(t *testing.T) {
	engine := &fakeEngine{text: fuelScan}
	p := newProcessor(fakeText{}, engine, nil)

	res := p.Process(context.Background(), Document{Name: "HD_0001234.pdf", Data: []byte("scan")})
	rec := res.Record

	assert.Equal(t, SourceOCR, res.Source)
	assert.Equal(t, 1, engine.calls)
	assert.Equal(t, "0001234", rec.Number)
	assert.Equal(t, "0300555450", rec.TaxCode)
	assert.Equal(t, "15/02/2026", rec.Date)
	assert.Equal(t, "500.000", rec.Total.String())
	assert.Equal(t, "Xăng xe", rec.Category)
	assert.Empty(t, res.Items)
	assert.InDelta(t, 75, res.Confidence, 0.001)
}

func TestProcess_Unrecognized(t *testing.T) {
	p := newProcessor(fakeText{}, &fakeEngine{text: " \n "}, nil)

	res := p.Process(context.Background(), Document{Name: "blank.pdf", Data: []byte("blank"), Team: "B"})
	rec := res.Record
	sentinel := "không nhận diện được"

	assert.Equal(t, SourceNone, res.Source)
	assert.Empty(t, res.Items)
	for i, cell := range rec.Row()[1:] {
		assert.Equal(t, sentinel, cell, "column %s", models.Columns[i+1])
	}
	assert.Equal(t, "blank.pdf", rec.FileName)
	assert.Equal(t, "B", rec.Team)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "unrecognized", res.Issues[0].Code)
	assert.False(t, res.Valid)
}

func TestProcess_FailedOCRIsUnrecognized(t *testing.T) {
	p := newProcessor(fakeText{}, ocr.Disabled{}, nil)
	res := p.Process(context.Background(), Document{Name: "scan.pdf", Data: []byte("scan")})

	assert.Equal(t, SourceNone, res.Source)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "unrecognized", res.Issues[0].Code)
	assert.Equal(t, "không nhận diện được", res.Record.Seller)
	assert.Empty(t, res.Items)
	assert.True(t, res.NeedsReview)
}

func TestProcess_FailuresBecomeIssues(t *testing.T) {
	tests := []struct {
		name   string
		engine ocr.Engine
		data   string
		ctx    func() context.Context
	}{
		{"panic in text layer", &fakeEngine{}, "panic", context.Background},
		{"cancelled", &fakeEngine{}, "scan", func() context.Context {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newProcessor(fakeText{}, tt.engine, nil)
			res := p.Process(tt.ctx(), Document{Name: "x.pdf", Data: []byte(tt.data)})

			assert.Equal(t, SourceNone, res.Source)
			require.Len(t, res.Issues, 1)
			assert.Equal(t, "document", res.Issues[0].Field)
			assert.Equal(t, models.SeverityError, res.Issues[0].Severity)
			assert.Equal(t, "processing_failed", res.Issues[0].Code)
			assert.Equal(t, "không nhận diện được", res.Record.Seller)
			assert.Empty(t, res.Items)
		})
	}
}

func TestProcessText(t *testing.T) {
	engine := &fakeEngine{text: fuelScan}
	p := newProcessor(nil, engine, nil)

	res := p.ProcessText(context.Background(), "a.txt", textInvoice)
	assert.Equal(t, SourceText, res.Source)
	assert.Equal(t, "0001234", res.Record.Number)

	res = p.ProcessText(context.Background(), "b.txt", "")
	assert.Equal(t, SourceNone, res.Source)
	assert.Zero(t, engine.calls)
}

func TestProcess_Assist(t *testing.T) {
	noNumber := "CÔNG TY TNHH THƯƠNG MẠI AN PHÁT\nNgày 15 tháng 03 năm 2024\nCộng tiền hàng: 1.000.000\n"

	p := newProcessor(fakeText{"a": noNumber}, &fakeEngine{}, fakeAssist{})
	res := p.Process(context.Background(), Document{Name: "scan.pdf", Data: []byte("a")})
	assert.Equal(t, "0000042", res.Record.Number)
	assert.Equal(t, []string{"number"}, res.Assisted)
	assert.NotContains(t, codes(res.Issues), "missing_number")

	p = newProcessor(fakeText{"a": noNumber}, &fakeEngine{}, fakeAssist{err: errors.New("timeout")})
	res = p.Process(context.Background(), Document{Name: "scan.pdf", Data: []byte("a")})
	assert.Empty(t, res.Assisted)
	assert.Contains(t, codes(res.Issues), "missing_number")
}

func TestProcessBatch_KeepsOrderAndIsolatesFailures(t *testing.T) {
	text := fakeText{}
	var docs []Document
	for i := 0; i < 6; i++ {
		key := fmt.Sprintf("doc%d", i)
		text[key] = textInvoice
		docs = append(docs, Document{ID: key, Name: key + ".pdf", Data: []byte(key)})
	}
	docs[3].Data = []byte("panic")

	results := newProcessor(text, &fakeEngine{}, nil).ProcessBatch(context.Background(), docs)

	require.Len(t, results, len(docs))
	for i, r := range results {
		assert.Equal(t, docs[i].ID, r.ID)
		assert.Equal(t, docs[i].Name, r.Record.FileName)
		if i == 3 {
			assert.Equal(t, "processing_failed", r.Issues[0].Code)
			continue
		}
		assert.Equal(t, SourceText, r.Source)
		assert.True(t, r.Valid)
	}
}

func TestProcessBatch_LogsOutcomeCounts(t *testing.T) {
	var buf bytes.Buffer
	p := New(Options{
		Text:    fakeText{"a": textInvoice},
		Pages:   fakePages{},
		Engine:  ocr.Disabled{},
		Workers: 2,
		Log:     zerolog.New(&buf),
	})
	docs := []Document{
		{Name: "a.pdf", Data: []byte("a")},
		{Name: "scan.pdf", Data: []byte("scan")},
		{Name: "broken.pdf", Data: []byte("panic")},
	}
	p.ProcessBatch(context.Background(), docs)

	var entry struct {
		Message      string `json:"message"`
		Documents    int    `json:"documents"`
		Invalid      int    `json:"invalid"`
		Unrecognized int    `json:"unrecognized"`
	}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		if entry.Message == "Batch processed" {
			break
		}
	}
	require.Equal(t, "Batch processed", entry.Message)
	assert.Equal(t, 3, entry.Documents)
	assert.Equal(t, 2, entry.Invalid)
	assert.Equal(t, 2, entry.Unrecognized)
}

func codes(issues []models.ValidationIssue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Code)
	}
	return out
}
