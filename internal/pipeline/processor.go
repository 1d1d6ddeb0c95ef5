// Package pipeline runs one invoice document through extraction, from the PDF
// bytes to a validated record, and processes batches of documents
// concurrently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/facturaIA/hoadon-extractor/internal/classify"
	"github.com/facturaIA/hoadon-extractor/internal/fallback"
	"github.com/facturaIA/hoadon-extractor/internal/fields"
	"github.com/facturaIA/hoadon-extractor/internal/lineitems"
	"github.com/facturaIA/hoadon-extractor/internal/models"
	"github.com/facturaIA/hoadon-extractor/internal/ocr"
	"github.com/facturaIA/hoadon-extractor/internal/pdftext"
	"github.com/facturaIA/hoadon-extractor/internal/reconcile"
	"github.com/facturaIA/hoadon-extractor/internal/services"
	"github.com/facturaIA/hoadon-extractor/internal/tables"
	"github.com/facturaIA/hoadon-extractor/internal/textnorm"
)

// Assist fills critical fields that extraction left blank. It must only
// write blank fields and returns the names of the fields it filled.
type Assist interface {
	Fill(ctx context.Context, rec *models.InvoiceRecord, text string) ([]string, error)
}

// Options configures a Processor.
type Options struct {
	Tables  *tables.Tables
	Text    pdftext.TextSource
	Pages   pdftext.ImageSource
	Engine  ocr.Engine
	Upscale int    // region re-OCR scale
	Assist  Assist // optional
	Workers int    // batch concurrency, default 4
	Log     zerolog.Logger
}

// Source tells which path produced a record.
type Source string

const (
	SourceText Source = "text"
	SourceOCR  Source = "ocr"
	SourceNone Source = "none"
)

// AutoCategory keeps the classified category.
const AutoCategory = "auto"

// Document is one submitted invoice.
type Document struct {
	ID       string // generated when empty
	Name     string
	Data     []byte
	Team     string
	Employee string
	Category string // override, empty or AutoCategory for automatic
}

// Result is the outcome for one document.
type Result struct {
	ID          string                   `json:"id"`
	Record      *models.InvoiceRecord    `json:"record"`
	Items       []models.LineItem        `json:"items"`
	Issues      []models.ValidationIssue `json:"issues"`
	Valid       bool                     `json:"valid"`
	NeedsReview bool                     `json:"needsReview"`
	Source      Source                   `json:"source"`
	Steps       []string                 `json:"steps,omitempty"`
	Assisted    []string                 `json:"assisted,omitempty"`
	Confidence  float64                  `json:"ocrConfidence,omitempty"`
	Duration    time.Duration            `json:"durationNs"`
}

// Processor holds the read-only collaborators shared by every document.
type Processor struct {
	tables    *tables.Tables
	text      pdftext.TextSource
	norm      *textnorm.Normalizer
	fields    *fields.Extractor
	items     *lineitems.Extractor
	reconcile *reconcile.Reconciler
	scan      *fallback.Pipeline
	classify  *classify.Classifier
	validator *services.InvoiceValidator
	assist    Assist
	workers   int
	log       zerolog.Logger
}

// New creates a processor. Missing providers default to the PDF reader and a
// disabled OCR engine.
func New(opts Options) *Processor {
	t := opts.Tables
	if t == nil {
		t = tables.Default()
	}
	engine := opts.Engine
	if engine == nil {
		engine = ocr.Disabled{}
	}
	if opts.Text == nil || opts.Pages == nil {
		r := pdftext.NewReader(opts.Log)
		if opts.Text == nil {
			opts.Text = r
		}
		if opts.Pages == nil {
			opts.Pages = r
		}
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 4
	}
	return &Processor{
		tables:    t,
		text:      opts.Text,
		norm:      textnorm.New(t),
		fields:    fields.NewExtractor(t, opts.Log),
		items:     lineitems.New(t, opts.Log),
		reconcile: reconcile.New(opts.Log),
		scan:      fallback.New(t, engine, opts.Pages, ocr.NewPreprocessor(opts.Upscale), opts.Log),
		classify:  classify.New(t),
		validator: services.NewInvoiceValidator(),
		assist:    opts.Assist,
		workers:   workers,
		log:       opts.Log.With().Str("component", "pipeline").Logger(),
	}
}

// Process extracts one PDF. It never fails: unreadable documents come back
// sentineled, and panics or provider errors become a document-level issue.
func (p *Processor) Process(ctx context.Context, doc Document) Result {
	return p.run(ctx, doc, func() (string, bool) {
		text, err := p.text.Text(doc.Data)
		if err != nil && !errors.Is(err, pdftext.ErrNoText) {
			p.log.Warn().Err(err).Str("file", doc.Name).Msg("Text layer unreadable")
		}
		return text, true
	})
}

// ProcessText extracts already-read text. Blank text is unrecognized; no OCR
// is attempted.
func (p *Processor) ProcessText(ctx context.Context, name, text string) Result {
	return p.run(ctx, Document{Name: name}, func() (string, bool) { return text, false })
}

type outcome struct {
	text       string
	items      []models.LineItem
	source     Source
	steps      []string
	confidence float64
}

func (p *Processor) run(ctx context.Context, doc Document, read func() (string, bool)) (res Result) {
	start := time.Now()
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	log := p.log.With().Str("file", doc.Name).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("Recovered from panic while processing document")
			res = p.failed(doc, fmt.Errorf("panic: %v", r), start)
		}
	}()

	if err := ctx.Err(); err != nil {
		return p.failed(doc, err, start)
	}

	rec := p.newRecord(doc)
	text, scan := read()

	var out outcome
	if nd := p.norm.Normalize(text); !nd.Empty() {
		out = p.fromText(rec, nd)
	} else if scan {
		var err error
		out, err = p.fromScan(ctx, rec, doc.Data)
		if err != nil {
			log.Warn().Err(err).Msg("OCR fallback failed")
			return p.failed(doc, err, start)
		}
	} else {
		out.source = SourceNone
	}

	if out.source == SourceNone {
		return p.unrecognized(doc, start)
	}

	var assisted []string
	if p.assist != nil {
		var err error
		assisted, err = p.assist.Fill(ctx, rec, out.text)
		if err != nil {
			log.Warn().Err(err).Msg("Assist failed")
		}
	}

	if c := strings.TrimSpace(doc.Category); c != "" && c != AutoCategory {
		rec.Category = c
	}
	rec.Cleanup()

	v := p.validator.Validate(rec)
	res = Result{
		ID:          doc.ID,
		Record:      rec,
		Items:       out.items,
		Issues:      v.Issues,
		Valid:       v.Valid,
		NeedsReview: v.NeedsReview,
		Source:      out.source,
		Steps:       out.steps,
		Assisted:    assisted,
		Confidence:  out.confidence,
		Duration:    time.Since(start),
	}
	if res.Items == nil {
		res.Items = []models.LineItem{}
	}

	log.Info().
		Str("source", string(res.Source)).
		Int("items", len(res.Items)).
		Int("errors", len(v.Errors())).
		Int("warnings", len(v.Warnings())).
		Dur("duration", res.Duration).
		Msg("Document processed")
	return res
}

func (p *Processor) newRecord(doc Document) *models.InvoiceRecord {
	rec := models.NewRecord(doc.Name)
	rec.Team = doc.Team
	rec.Employee = doc.Employee
	return rec
}

// fromText runs the text-layer path.
func (p *Processor) fromText(rec *models.InvoiceRecord, nd *textnorm.Document) outcome {
	d := fields.NewDocument(nd, rec.FileName)
	p.fields.Extract(d).Apply(rec)

	items := p.items.Extract(d.Lines)
	steps := p.reconcile.Reconcile(rec, items, nil)
	rec.Category = p.classify.Classify(rec.Seller, items, nd.Text)

	return outcome{text: nd.Text, items: items, source: SourceText, steps: steps}
}

// fromScan runs the OCR path. Scanned documents have no line items.
func (p *Processor) fromScan(ctx context.Context, rec *models.InvoiceRecord, data []byte) (outcome, error) {
	sr, err := p.scan.Run(ctx, data, rec.FileName)
	if err != nil {
		return outcome{}, err
	}
	if sr.Empty() {
		return outcome{source: SourceNone}, nil
	}

	sr.Values.Apply(rec)
	steps := p.reconcile.Reconcile(rec, nil, sr.Template)
	rec.Category = p.classify.ClassifyScan(sr.Text, sr.Template)

	return outcome{text: sr.Text, source: SourceOCR, steps: steps, confidence: sr.Confidence}, nil
}

// unrecognized is the terminal state for a document without usable text:
// every field carries the sentinel and there are no items.
func (p *Processor) unrecognized(doc Document, start time.Time) Result {
	p.log.Info().Str("file", doc.Name).Msg("Document unrecognized")
	return p.terminal(doc, start, models.ValidationIssue{
		Field:    "document",
		Severity: models.SeverityError,
		Code:     "unrecognized",
		Message:  "Không đọc được nội dung hóa đơn (không có lớp văn bản và OCR rỗng)",
	})
}

func (p *Processor) failed(doc Document, err error, start time.Time) Result {
	return p.terminal(doc, start, models.ValidationIssue{
		Field:    "document",
		Severity: models.SeverityError,
		Code:     "processing_failed",
		Message:  fmt.Sprintf("Lỗi xử lý: %v", err),
	})
}

func (p *Processor) terminal(doc Document, start time.Time, issue models.ValidationIssue) Result {
	rec := p.newRecord(doc)
	rec.MarkUnrecognized(p.tables.Unrecognized)
	return Result{
		ID:          doc.ID,
		Record:      rec,
		Items:       []models.LineItem{},
		Issues:      []models.ValidationIssue{issue},
		NeedsReview: true,
		Source:      SourceNone,
		Duration:    time.Since(start),
	}
}
