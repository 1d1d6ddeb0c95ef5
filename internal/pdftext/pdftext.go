// Package pdftext reads the text layer of invoice PDFs and, for scanned
// documents, the page images OCR runs on.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog"
)

// ErrNoText is returned when a PDF has no usable text layer.
var ErrNoText = errors.New("pdf has no text layer")

// TextSource returns the text of a document, one page after another.
type TextSource interface {
	Text(data []byte) (string, error)
}

// ImageSource returns the page images of a document in page order.
type ImageSource interface {
	Pages(data []byte) ([]image.Image, error)
}

// Reader implements both sources on top of ledongthuc/pdf and pdfcpu.
type Reader struct {
	log zerolog.Logger
}

// NewReader creates a PDF reader.
func NewReader(log zerolog.Logger) *Reader {
	return &Reader{log: log.With().Str("component", "pdftext").Logger()}
}

// Text rebuilds the text layer row by row. Words in a row are joined with a
// space unless the producer already emitted one.
func (r *Reader) Text(data []byte) (text string, err error) {
	// ledongthuc/pdf panics on some malformed streams
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("failed to read pdf: %v", rec)
		}
	}()

	pr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= pr.NumPage(); i++ {
		p := pr.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			r.log.Warn().Err(err).Int("page", i).Msg("Failed to read page text")
			continue
		}
		for _, row := range rows {
			b.WriteString(joinWords(row.Content))
			b.WriteByte('\n')
		}
	}

	text = b.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

func joinWords(words pdf.TextHorizontal) string {
	var b strings.Builder
	for i, w := range words {
		if i > 0 && needsSpace(words[i-1], w) {
			b.WriteByte(' ')
		}
		b.WriteString(w.S)
	}
	return b.String()
}

// needsSpace reports a visible gap between two runs. Glyph runs of one word
// share a baseline and touch.
func needsSpace(prev, cur pdf.Text) bool {
	if prev.W == 0 || cur.S == "" {
		return false
	}
	if strings.HasSuffix(prev.S, " ") || strings.HasPrefix(cur.S, " ") {
		return false
	}
	return cur.X-(prev.X+prev.W) > prev.FontSize*0.15
}

var pageNumber = regexp.MustCompile(`_(\d+)_[^_]*$`)

// pageOrder sorts extracted image names by page, then by name.
func pageOrder(a, b string) bool {
	pa, pb := pageOf(a), pageOf(b)
	if pa != pb {
		return pa < pb
	}
	return a < b
}

func pageOf(name string) int {
	m := pageNumber.FindStringSubmatch(strings.TrimSuffix(name, filepath.Ext(name)))
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// Pages extracts the embedded images of every page. Scanned invoices carry
// one full-page image per page, written by pdfcpu as <name>_<page>_<obj>.
func (r *Reader) Pages(data []byte) ([]image.Image, error) {
	tempDir, err := os.MkdirTemp("", "hoadon-pages")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	tempFile, err := os.CreateTemp("", "hoadon-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return nil, fmt.Errorf("failed to write pdf data: %w", err)
	}
	tempFile.Close()

	conf := model.NewDefaultConfiguration()
	if err := api.ExtractImagesFile(tempFile.Name(), tempDir, nil, conf); err != nil {
		return nil, fmt.Errorf("failed to extract images: %w", err)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read temp dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool { return pageOrder(names[i], names[j]) })

	var images []image.Image
	for _, name := range names {
		img, err := imaging.Open(filepath.Join(tempDir, name))
		if err != nil {
			r.log.Debug().Err(err).Str("image", name).Msg("Skipping undecodable image")
			continue
		}
		images = append(images, img)
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("no page images found")
	}
	return images, nil
}
