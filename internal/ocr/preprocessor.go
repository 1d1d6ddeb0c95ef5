package ocr

import (
	"image"

	"github.com/disintegration/imaging"
)

// Region is a fixed sub-area of a page, as fractions of its width and height,
// with the page segmentation mode tesseract should use on it.
type Region struct {
	Name   string
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
	PSM    int
}

var (
	// InvoiceNumberRegion is the top-right band where "Số:" is printed.
	InvoiceNumberRegion = Region{Name: "invoice_number", Left: 0.7, Top: 0, Right: 1, Bottom: 0.15, PSM: PSMSparseText}

	// TaxCodeRegion is the top quarter; the seller's MST sits on the left.
	TaxCodeRegion = Region{Name: "tax_code", Left: 0, Top: 0, Right: 1, Bottom: 0.25, PSM: PSMSingleBlock}
)

// Rect returns the pixel rectangle of r inside bounds.
func (r Region) Rect(bounds image.Rectangle) image.Rectangle {
	w, h := bounds.Dx(), bounds.Dy()
	return image.Rect(
		bounds.Min.X+int(float64(w)*r.Left),
		bounds.Min.Y+int(float64(h)*r.Top),
		bounds.Min.X+int(float64(w)*r.Right),
		bounds.Min.Y+int(float64(h)*r.Bottom),
	)
}

// Preprocessor prepares page images for tesseract.
type Preprocessor struct {
	maxSide int
	upscale int
}

// NewPreprocessor creates a preprocessor. upscale is the factor applied to
// cropped regions for the high-resolution pass.
func NewPreprocessor(upscale int) *Preprocessor {
	if upscale < 1 {
		upscale = 2
	}
	return &Preprocessor{
		maxSide: 3000,
		upscale: upscale,
	}
}

// Preprocess converts a page to grayscale, raises contrast and sharpens it.
// Oversized scans are fitted to keep tesseract fast.
func (p *Preprocessor) Preprocess(src image.Image) image.Image {
	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.0)

	b := img.Bounds()
	if b.Dx() > p.maxSide || b.Dy() > p.maxSide {
		img = imaging.Fit(img, p.maxSide, p.maxSide, imaging.Lanczos)
	}
	return img
}

// Crop cuts r out of the page and enlarges it by the upscale factor, which
// stands in for rendering the page at a higher DPI.
func (p *Preprocessor) Crop(src image.Image, r Region) image.Image {
	img := imaging.Crop(src, r.Rect(src.Bounds()))
	if p.upscale > 1 {
		b := img.Bounds()
		img = imaging.Resize(img, b.Dx()*p.upscale, 0, imaging.Lanczos)
	}
	img = imaging.Grayscale(img)
	return imaging.Sharpen(img, 0.8)
}
