// Package fallback extracts invoice fields from scanned documents, where the
// PDF has no text layer and tesseract output is all there is to work with.
package fallback

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/facturaIA/hoadon-extractor/internal/fields"
	"github.com/facturaIA/hoadon-extractor/internal/ocr"
	"github.com/facturaIA/hoadon-extractor/internal/pdftext"
	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

// Result is what the OCR pass recovered from one document.
type Result struct {
	Text       string
	Values     fields.Values
	Template   *tables.Template
	Refined    []fields.Field
	Confidence float64
}

// Empty reports whether OCR produced no usable text.
func (r *Result) Empty() bool {
	return r == nil || strings.TrimSpace(r.Text) == ""
}

// Pipeline runs OCR over page images and extracts fields from the result.
type Pipeline struct {
	tables *tables.Tables
	engine ocr.Engine
	pages  pdftext.ImageSource
	prep   *ocr.Preprocessor
	fields *fields.Extractor
	log    zerolog.Logger
}

// New creates the OCR fallback pipeline.
func New(t *tables.Tables, engine ocr.Engine, pages pdftext.ImageSource, prep *ocr.Preprocessor, log zerolog.Logger) *Pipeline {
	m := &matchers{tables: t}
	return &Pipeline{
		tables: t,
		engine: engine,
		pages:  pages,
		prep:   prep,
		fields: fields.NewExtractor(t, log).WithCascades(m.cascades()),
		log:    log.With().Str("component", "fallback").Logger(),
	}
}

// Run recognizes every page of a PDF and extracts its fields. Failed OCR
// counts as no text: unreadable pages or a disabled engine give an empty
// Result. Only a cancelled context is returned as an error.
func (p *Pipeline) Run(ctx context.Context, data []byte, fileName string) (*Result, error) {
	log := p.log.With().Str("file", fileName).Logger()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pages, err := p.pages.Pages(data)
	if err != nil {
		log.Warn().Err(err).Msg("Page images unreadable")
		return &Result{}, nil
	}

	var b strings.Builder
	var confidence float64
	for i, page := range pages {
		res, err := p.engine.Recognize(ctx, p.prep.Preprocess(page), ocr.Options{})
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, ocr.ErrEngineUnavailable) {
			log.Warn().Err(err).Msg("OCR engine unavailable")
			return &Result{}, nil
		}
		if err != nil {
			log.Warn().Err(err).Int("page", i+1).Msg("Page OCR failed")
			continue
		}
		b.WriteString(res.Text)
		b.WriteByte('\n')
		confidence += res.Confidence
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		log.Info().Int("pages", len(pages)).Msg("OCR found no text")
		return &Result{}, nil
	}

	result := p.Extract(text, fileName)
	result.Confidence = confidence / float64(len(pages))

	if result.Values[fields.Number] == "" || result.Values[fields.TaxCode] == "" {
		result.Refined = p.refine(ctx, pages[0], result.Values)
		for _, f := range result.Refined {
			log.Info().Str("field", string(f)).Str("value", result.Values[f]).Msg("Recovered from high-resolution region")
		}
	}
	return result, nil
}

// Extract applies the OCR cascades to recognized text.
func (p *Pipeline) Extract(text, fileName string) *Result {
	values := p.fields.Extract(fields.TextDocument(text, fileName))
	return &Result{
		Text:     text,
		Values:   values,
		Template: p.tables.MatchTemplate(strings.ToLower(text)),
	}
}
