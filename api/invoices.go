package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/facturaIA/hoadon-extractor/internal/auth"
	"github.com/facturaIA/hoadon-extractor/internal/db"
	"github.com/facturaIA/hoadon-extractor/internal/models"
	"github.com/facturaIA/hoadon-extractor/internal/pipeline"
	"github.com/facturaIA/hoadon-extractor/internal/storage"
)

// ExtractResponse is returned by ExtractInvoices.
type ExtractResponse struct {
	Success  bool              `json:"success"`
	Count    int               `json:"count"`
	Saved    bool              `json:"saved"`
	Results  []pipeline.Result `json:"results"`
	Duration string            `json:"duration"`
}

type upload struct {
	name string
	data []byte
}

// ExtractInvoices handles POST /api/invoices/extract. The form carries one or
// more PDFs under "files", plus optional "category_override" and "employee".
func (h *Handler) ExtractInvoices(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxFiles*MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		h.sendError(w, http.StatusBadRequest, "No files provided")
		return
	}
	if len(headers) > MaxFiles {
		h.sendError(w, http.StatusBadRequest, fmt.Sprintf("Too many files (max %d)", MaxFiles))
		return
	}

	uploads := make([]upload, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > MaxUploadSize {
			h.sendError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("%s exceeds %d MB", fh.Filename, MaxUploadSize>>20))
			return
		}
		f, err := fh.Open()
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "Failed to read "+fh.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "Failed to read "+fh.Filename)
			return
		}
		if !isPDF(data) {
			h.sendError(w, http.StatusBadRequest, fh.Filename+" is not a PDF")
			return
		}
		uploads = append(uploads, upload{name: filepath.Base(fh.Filename), data: data})
	}

	employee := strings.TrimSpace(r.FormValue("employee"))
	if employee == "" {
		employee = claims.Name
	}
	category := strings.TrimSpace(r.FormValue("category_override"))

	docs := make([]pipeline.Document, len(uploads))
	keys := make([]string, len(uploads))
	for i, u := range uploads {
		docs[i] = pipeline.Document{
			ID:       uuid.NewString(),
			Name:     u.name,
			Data:     u.data,
			Team:     claims.Team,
			Employee: employee,
			Category: category,
		}
		key, err := storage.Upload(r.Context(), claims.Team, u.name, u.data)
		if err != nil && !errors.Is(err, storage.ErrNoStorage) {
			h.log.Warn().Err(err).Str("file", u.name).Msg("Failed to store document")
		}
		keys[i] = key
	}

	results := h.proc.ProcessBatch(r.Context(), docs)

	saved := db.Pool != nil
	for i, res := range results {
		inv := invoiceFromResult(res, claims)
		inv.ObjectKey = keys[i]
		if err := db.SaveExtraction(r.Context(), inv); err != nil {
			if !errors.Is(err, db.ErrNoDatabase) {
				h.log.Error().Err(err).Str("file", res.Record.FileName).Msg("Failed to save extraction")
			}
			saved = false
		}
	}

	h.writeJSON(w, http.StatusOK, ExtractResponse{
		Success:  true,
		Count:    len(results),
		Saved:    saved,
		Results:  results,
		Duration: time.Since(start).String(),
	})
}

// isPDF looks for the PDF header in the first KB; some producers prepend junk.
func isPDF(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, []byte("%PDF-"))
}

func invoiceFromResult(res pipeline.Result, claims *auth.Claims) *db.Invoice {
	inv := &db.Invoice{
		Team:        claims.Team,
		Source:      string(res.Source),
		Record:      res.Record,
		Items:       res.Items,
		Issues:      res.Issues,
		Valid:       res.Valid,
		NeedsReview: res.NeedsReview,
	}
	if id, err := uuid.Parse(res.ID); err == nil {
		inv.ID = id
	}
	if uid, err := uuid.Parse(claims.UserID); err == nil {
		inv.CreatedBy = &uid
	}
	return inv
}

// GetInvoices handles GET /api/invoices?limit=&offset=
func (h *Handler) GetInvoices(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	invoices, total, err := db.ListInvoices(r.Context(), claims.Team, limit, offset)
	if err != nil {
		h.dbError(w, err, "Failed to fetch invoices")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"invoices": invoices,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// GetInvoice handles GET /api/invoices/{id}
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	inv, err := db.GetInvoice(r.Context(), claims.Team, id)
	if err != nil {
		h.dbError(w, err, "Failed to fetch invoice")
		return
	}
	if inv.ObjectKey != "" {
		if url, err := storage.Presign(r.Context(), inv.ObjectKey); err == nil {
			inv.DocumentURL = url
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"invoice": inv,
	})
}

// InvoiceUpdate carries the fields a reviewer may correct. Nil fields are
// left unchanged.
type InvoiceUpdate struct {
	Date          *string `json:"date"`
	Number        *string `json:"number"`
	Serial        *string `json:"serial"`
	Seller        *string `json:"seller"`
	TaxCode       *string `json:"taxCode"`
	AuthorityCode *string `json:"authorityCode"`
	LookupCode    *string `json:"lookupCode"`
	LookupLink    *string `json:"lookupLink"`
	Category      *string `json:"category"`
	Employee      *string `json:"employee"`

	PreTax     *models.Amount `json:"preTax"`
	Tax0       *models.Amount `json:"tax0"`
	Tax5       *models.Amount `json:"tax5"`
	Tax8       *models.Amount `json:"tax8"`
	Tax10      *models.Amount `json:"tax10"`
	TaxOther   *models.Amount `json:"taxOther"`
	TaxTotal   *models.Amount `json:"taxTotal"`
	Total      *models.Amount `json:"total"`
	ServiceFee *models.Amount `json:"serviceFee"`
}

// Apply writes the non-nil fields into rec.
func (u *InvoiceUpdate) Apply(rec *models.InvoiceRecord) {
	texts := []struct {
		src *string
		dst *string
	}{
		{u.Date, &rec.Date}, {u.Number, &rec.Number}, {u.Serial, &rec.Serial},
		{u.Seller, &rec.Seller}, {u.TaxCode, &rec.TaxCode}, {u.AuthorityCode, &rec.AuthorityCode},
		{u.LookupCode, &rec.LookupCode}, {u.LookupLink, &rec.LookupLink},
		{u.Category, &rec.Category}, {u.Employee, &rec.Employee},
	}
	for _, f := range texts {
		if f.src != nil {
			*f.dst = strings.TrimSpace(*f.src)
		}
	}

	amounts := []struct {
		src *models.Amount
		dst *models.Amount
	}{
		{u.PreTax, &rec.PreTax}, {u.Tax0, &rec.Tax0}, {u.Tax5, &rec.Tax5},
		{u.Tax8, &rec.Tax8}, {u.Tax10, &rec.Tax10}, {u.TaxOther, &rec.TaxOther},
		{u.TaxTotal, &rec.TaxTotal}, {u.Total, &rec.Total}, {u.ServiceFee, &rec.ServiceFee},
	}
	for _, f := range amounts {
		if f.src != nil {
			*f.dst = f.src.Resolve()
		}
	}
}

// UpdateInvoice handles PUT /api/invoices/{id}. The edited record is
// validated again and the review flag recomputed.
func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	var update InvoiceUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}

	inv, err := db.GetInvoice(r.Context(), claims.Team, id)
	if err != nil {
		h.dbError(w, err, "Failed to fetch invoice")
		return
	}

	update.Apply(inv.Record)
	inv.Record.Cleanup()
	h.revalidate(inv)

	if err := db.UpdateExtraction(r.Context(), inv); err != nil {
		h.dbError(w, err, "Failed to update invoice")
		return
	}

	h.log.Info().Str("invoice_id", id).Bool("valid", inv.Valid).Msg("Invoice updated")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"invoice": inv,
	})
}

// revalidate replaces the issues of an invoice with a fresh validation. An
// unrecognized document stays flagged until its fields are corrected.
func (h *Handler) revalidate(inv *db.Invoice) {
	v := h.validator.Validate(inv.Record)
	inv.Issues = v.Issues
	inv.Valid = v.Valid
	inv.NeedsReview = v.NeedsReview
}

// DeleteInvoice handles DELETE /api/invoices/{id}
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	objectKey, err := db.DeleteInvoice(r.Context(), claims.Team, id)
	if err != nil {
		h.dbError(w, err, "Failed to delete invoice")
		return
	}
	if objectKey != "" {
		if err := storage.Delete(r.Context(), objectKey); err != nil && !errors.Is(err, storage.ErrNoStorage) {
			h.log.Warn().Err(err).Str("object", objectKey).Msg("Failed to delete stored document")
		}
	}

	h.log.Info().Str("invoice_id", id).Msg("Invoice deleted")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Invoice deleted",
	})
}

// ReprocessInvoice handles POST /api/invoices/{id}/reprocess. The stored PDF
// is extracted again and replaces the record, items and issues.
func (h *Handler) ReprocessInvoice(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	inv, err := db.GetInvoice(r.Context(), claims.Team, id)
	if err != nil {
		h.dbError(w, err, "Failed to fetch invoice")
		return
	}
	if inv.ObjectKey == "" {
		h.sendError(w, http.StatusConflict, "Invoice has no stored document")
		return
	}

	data, err := storage.Get(r.Context(), inv.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrNoStorage) {
			h.sendError(w, http.StatusServiceUnavailable, "Storage not available")
			return
		}
		h.log.Error().Err(err).Str("object", inv.ObjectKey).Msg("Failed to download document")
		h.sendError(w, http.StatusInternalServerError, "Failed to download document")
		return
	}

	res := h.proc.Process(r.Context(), pipeline.Document{
		ID:       inv.ID.String(),
		Name:     inv.Record.FileName,
		Data:     data,
		Team:     inv.Team,
		Employee: inv.Record.Employee,
		Category: r.URL.Query().Get("category_override"),
	})

	inv.Source = string(res.Source)
	inv.Record = res.Record
	inv.Items = res.Items
	inv.Issues = res.Issues
	inv.Valid = res.Valid
	inv.NeedsReview = res.NeedsReview

	if err := db.UpdateExtraction(r.Context(), inv); err != nil {
		h.dbError(w, err, "Failed to update invoice")
		return
	}

	h.log.Info().Str("invoice_id", id).Str("source", inv.Source).Msg("Invoice reprocessed")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"invoice": inv,
		"steps":   res.Steps,
	})
}

// GetInvoiceDocument handles GET /api/invoices/{id}/document and returns a
// presigned link to the stored PDF.
func (h *Handler) GetInvoiceDocument(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}

	inv, err := db.GetInvoice(r.Context(), claims.Team, id)
	if err != nil {
		h.dbError(w, err, "Failed to fetch invoice")
		return
	}
	if inv.ObjectKey == "" {
		h.sendError(w, http.StatusNotFound, "Invoice has no stored document")
		return
	}

	url, err := storage.Presign(r.Context(), inv.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrNoStorage) {
			h.sendError(w, http.StatusServiceUnavailable, "Storage not available")
			return
		}
		h.log.Error().Err(err).Str("object", inv.ObjectKey).Msg("Failed to presign document")
		h.sendError(w, http.StatusInternalServerError, "Failed to generate document URL")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"url":       url,
		"expiresIn": storage.PresignTTL.String(),
	})
}

// GetStats handles GET /api/stats: the current month by category.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.claims(w, r)
	if !ok {
		return
	}

	stats, err := db.GetMonthlyStats(r.Context(), claims.Team)
	if err != nil {
		h.dbError(w, err, "Failed to fetch statistics")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

func (h *Handler) claims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return claims, true
}

func (h *Handler) invoiceID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["id"]
	if _, err := uuid.Parse(id); err != nil {
		h.sendError(w, http.StatusBadRequest, "Invalid invoice ID")
		return "", false
	}
	return id, true
}

// dbError maps repository errors to HTTP responses.
func (h *Handler) dbError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, db.ErrNoDatabase):
		h.sendError(w, http.StatusServiceUnavailable, "Database not available")
	case errors.Is(err, db.ErrNotFound):
		h.sendError(w, http.StatusNotFound, "Invoice not found")
	default:
		h.log.Error().Err(err).Msg(msg)
		h.sendError(w, http.StatusInternalServerError, msg)
	}
}
