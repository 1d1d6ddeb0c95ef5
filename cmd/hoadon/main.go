// Command hoadon extracts a folder of invoice PDFs to JSON (and optionally CSV).
//
//	hoadon -in ./invoices -out results.json -workers 4 -team A -employee "Nguyễn Văn A"
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/facturaIA/hoadon-extractor/internal/ai"
	"github.com/facturaIA/hoadon-extractor/internal/config"
	"github.com/facturaIA/hoadon-extractor/internal/logging"
	"github.com/facturaIA/hoadon-extractor/internal/models"
	"github.com/facturaIA/hoadon-extractor/internal/ocr"
	"github.com/facturaIA/hoadon-extractor/internal/pipeline"
	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

type options struct {
	in         string
	out        string
	csvOut     string
	textFile   string
	workers    int
	team       string
	employee   string
	category   string
	configPath string
	tablesPath string
	logLevel   string
}

func main() {
	var o options
	flag.StringVar(&o.in, "in", ".", "PDF file or folder of PDFs")
	flag.StringVar(&o.out, "out", "", "JSON output file (default stdout)")
	flag.StringVar(&o.csvOut, "csv", "", "also write one CSV row per document")
	flag.StringVar(&o.textFile, "text", "", "extract an already-read text file instead of PDFs")
	flag.IntVar(&o.workers, "workers", 0, "concurrent documents (default from config)")
	flag.StringVar(&o.team, "team", "", "team recorded on every document")
	flag.StringVar(&o.employee, "employee", "", "employee recorded on every document")
	flag.StringVar(&o.category, "category", pipeline.AutoCategory, `category override, "auto" to classify`)
	flag.StringVar(&o.configPath, "config", "", "config file")
	flag.StringVar(&o.tablesPath, "tables", "", "tables file overriding the built-in vocabularies")
	flag.StringVar(&o.logLevel, "log-level", "", "log level (default from config)")
	flag.Parse()

	if err := run(o); err != nil {
		fmt.Fprintln(os.Stderr, "hoadon:", err)
		os.Exit(1)
	}
}

func run(o options) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.workers > 0 {
		cfg.Workers = o.workers
	}
	if o.tablesPath != "" {
		cfg.TablesFile = o.tablesPath
	}
	log := logging.New(cfg.LogLevel, true)

	t, err := tables.Load(cfg.TablesFile)
	if err != nil {
		return err
	}
	proc := newProcessor(cfg, t, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var results []pipeline.Result
	if o.textFile != "" {
		data, err := os.ReadFile(o.textFile)
		if err != nil {
			return fmt.Errorf("failed to read text file: %w", err)
		}
		res := proc.ProcessText(ctx, filepath.Base(o.textFile), string(data))
		res.Record.Team, res.Record.Employee = o.team, o.employee
		if c := strings.TrimSpace(o.category); c != "" && c != pipeline.AutoCategory && res.Source != pipeline.SourceNone {
			res.Record.Category = c
		}
		results = []pipeline.Result{res}
	} else {
		docs, err := collect(o)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return fmt.Errorf("no PDF files found in %s", o.in)
		}
		results = proc.ProcessBatch(ctx, docs)
	}

	for _, res := range results {
		fmt.Fprintln(os.Stderr, summary(res))
	}

	if err := writeJSON(o.out, results); err != nil {
		return err
	}
	if o.csvOut != "" {
		if err := writeCSV(o.csvOut, results); err != nil {
			return err
		}
	}
	return nil
}

func newProcessor(cfg *models.Config, t *tables.Tables, log zerolog.Logger) *pipeline.Processor {
	var assist pipeline.Assist
	assistant, err := ai.NewFromConfig(cfg.AI, t, log)
	switch {
	case errors.Is(err, ai.ErrNoProvider):
	case err != nil:
		log.Warn().Err(err).Msg("AI assist not available")
	default:
		assist = assistant
	}

	return pipeline.New(pipeline.Options{
		Tables:  t,
		Engine:  ocr.NewEngine(cfg.OCR, log),
		Upscale: cfg.OCR.UpscaleFactor,
		Assist:  assist,
		Workers: cfg.Workers,
		Log:     log,
	})
}

// collect reads the PDFs under o.in, sorted by path.
func collect(o options) ([]pipeline.Document, error) {
	var paths []string
	err := filepath.WalkDir(o.in, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", o.in, err)
	}

	docs := make([]pipeline.Document, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		docs = append(docs, pipeline.Document{
			Name:     filepath.Base(path),
			Data:     data,
			Team:     o.team,
			Employee: o.employee,
			Category: o.category,
		})
	}
	return docs, nil
}

func summary(res pipeline.Result) string {
	status := "ok"
	switch {
	case !res.Valid:
		status = "ERROR"
	case res.NeedsReview:
		status = "review"
	}
	rec := res.Record
	return fmt.Sprintf("%-6s %-4s %-40s %-10s %-12s %15s  %s",
		status, res.Source, rec.FileName, rec.Date, rec.Number, rec.Total.String(), rec.Category)
}

func writeJSON(path string, results []pipeline.Result) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	return nil
}

func writeCSV(path string, results []pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	// UTF-8 BOM so spreadsheet tools keep the Vietnamese headers
	if _, err := f.WriteString("\ufeff"); err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(models.Columns); err != nil {
		return err
	}
	for _, res := range results {
		if err := w.Write(res.Record.Row()); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
