package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"github.com/facturaIA/hoadon-extractor/internal/models"
)

// Page segmentation modes used by the pipeline.
const (
	PSMAuto        = 3
	PSMSingleBlock = 6
	PSMSparseText  = 11
)

// ErrEngineUnavailable is returned when OCR is disabled in the configuration.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// Options tune one recognition call. Zero values use the engine defaults.
type Options struct {
	PSM      int
	Language string
}

// Result is the recognized text of one image.
type Result struct {
	Text       string
	Confidence float64 // mean word confidence, 0-100
	Duration   time.Duration
}

// Engine recognizes text in an image.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, opts Options) (*Result, error)
	Name() string
}

// NewEngine returns the engine selected by cfg.Engine.
func NewEngine(cfg models.OCRConfig, log zerolog.Logger) Engine {
	if cfg.Engine == "none" {
		return Disabled{}
	}
	return NewTesseract(cfg.Language, cfg.TessdataPrefix, log)
}

// Disabled is the engine used when OCR is switched off.
type Disabled struct{}

func (Disabled) Name() string { return "none" }

func (Disabled) Recognize(context.Context, image.Image, Options) (*Result, error) {
	return nil, ErrEngineUnavailable
}

// Tesseract runs tesseract through gosseract. A client is created per call, so
// one Tesseract can serve concurrent documents.
type Tesseract struct {
	language       string
	tessdataPrefix string
	log            zerolog.Logger
}

// NewTesseract creates a tesseract engine. Vietnamese with English is the
// default language set.
func NewTesseract(language, tessdataPrefix string, log zerolog.Logger) *Tesseract {
	if language == "" {
		language = "vie+eng"
	}
	return &Tesseract{
		language:       language,
		tessdataPrefix: tessdataPrefix,
		log:            log.With().Str("component", "tesseract").Logger(),
	}
}

func (t *Tesseract) Name() string { return "tesseract" }

// Version reports the linked tesseract version.
func (t *Tesseract) Version() string {
	return gosseract.Version()
}

// Recognize encodes img as PNG and runs tesseract on it. gosseract cannot be
// interrupted, so a cancelled context returns early and the call finishes in
// the background.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := t.recognize(buf.Bytes(), opts)
		done <- outcome{res, err}
	}()

	select {
	case <-ctx.Done():
		t.log.Warn().Err(ctx.Err()).Msg("OCR call abandoned")
		return nil, ctx.Err()
	case o := <-done:
		return o.res, o.err
	}
}

func (t *Tesseract) recognize(data []byte, opts Options) (*Result, error) {
	start := time.Now()

	client := gosseract.NewClient()
	defer client.Close()

	if t.tessdataPrefix != "" {
		client.SetTessdataPrefix(t.tessdataPrefix)
	}

	lang := opts.Language
	if lang == "" {
		lang = t.language
	}
	if err := client.SetLanguage(splitLanguages(lang)...); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if opts.PSM != 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(opts.PSM)); err != nil {
			return nil, fmt.Errorf("failed to set page segmentation mode: %w", err)
		}
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("failed to extract text: %w", err)
	}

	res := &Result{Text: text}

	// Confidence is informational; a failure here keeps the text.
	if boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD); err == nil && len(boxes) > 0 {
		var total float64
		for _, box := range boxes {
			total += box.Confidence
		}
		res.Confidence = total / float64(len(boxes))
	}
	res.Duration = time.Since(start)

	t.log.Debug().
		Str("language", lang).
		Int("psm", opts.PSM).
		Int("chars", len(text)).
		Float64("confidence", res.Confidence).
		Dur("duration", res.Duration).
		Msg("OCR finished")
	return res, nil
}

// splitLanguages turns "vie+eng" into the list gosseract expects.
func splitLanguages(lang string) []string {
	return strings.FieldsFunc(lang, func(r rune) bool { return r == '+' })
}
