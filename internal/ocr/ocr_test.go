package ocr

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturaIA/hoadon-extractor/internal/models"
)

func page(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	return img
}

func TestRegion_Rect(t *testing.T) {
	bounds := image.Rect(0, 0, 1000, 2000)

	assert.Equal(t, image.Rect(700, 0, 1000, 300), InvoiceNumberRegion.Rect(bounds))
	assert.Equal(t, image.Rect(0, 0, 1000, 500), TaxCodeRegion.Rect(bounds))

	shifted := image.Rect(10, 20, 1010, 2020)
	assert.Equal(t, image.Rect(710, 20, 1010, 320), InvoiceNumberRegion.Rect(shifted))
}

func TestPreprocessor_Crop(t *testing.T) {
	p := NewPreprocessor(2)
	out := p.Crop(page(200, 400), InvoiceNumberRegion)

	// 60x60 region doubled
	assert.Equal(t, 120, out.Bounds().Dx())
	assert.Equal(t, 120, out.Bounds().Dy())
}

func TestPreprocessor_Preprocess(t *testing.T) {
	p := NewPreprocessor(0)
	assert.Equal(t, 2, p.upscale)

	out := p.Preprocess(page(64, 32))
	require.Equal(t, 64, out.Bounds().Dx())

	r, g, b, _ := out.At(10, 10).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)

	p.maxSide = 32
	out = p.Preprocess(page(64, 32))
	assert.Equal(t, 32, out.Bounds().Dx())
	assert.Equal(t, 16, out.Bounds().Dy())
}

func TestNewEngine(t *testing.T) {
	e := NewEngine(models.OCRConfig{Engine: "none"}, zerolog.Nop())
	assert.Equal(t, "none", e.Name())

	_, err := e.Recognize(context.Background(), page(4, 4), Options{})
	assert.ErrorIs(t, err, ErrEngineUnavailable)

	tess := NewEngine(models.OCRConfig{}, zerolog.Nop())
	require.IsType(t, &Tesseract{}, tess)
	assert.Equal(t, "vie+eng", tess.(*Tesseract).language)
}

func TestSplitLanguages(t *testing.T) {
	assert.Equal(t, []string{"vie", "eng"}, splitLanguages("vie+eng"))
	assert.Equal(t, []string{"eng"}, splitLanguages("eng"))
	assert.Empty(t, splitLanguages(""))
}
