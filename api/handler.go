package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/facturaIA/hoadon-extractor/internal/auth"
	"github.com/facturaIA/hoadon-extractor/internal/db"
	"github.com/facturaIA/hoadon-extractor/internal/models"
	"github.com/facturaIA/hoadon-extractor/internal/ocr"
	"github.com/facturaIA/hoadon-extractor/internal/pipeline"
	"github.com/facturaIA/hoadon-extractor/internal/services"
	"github.com/facturaIA/hoadon-extractor/internal/storage"
	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

const (
	MaxUploadSize = 20 * 1024 * 1024 // per PDF
	MaxFiles      = 50
	Version       = "1.0.0"
)

// Handler handles HTTP requests for invoice extraction
type Handler struct {
	config    *models.Config
	proc      *pipeline.Processor
	tables    *tables.Tables
	engine    ocr.Engine
	validator *services.InvoiceValidator
	log       zerolog.Logger
}

// NewHandler creates a new API handler
func NewHandler(config *models.Config, proc *pipeline.Processor, t *tables.Tables, engine ocr.Engine, log zerolog.Logger) *Handler {
	return &Handler{
		config:    config,
		proc:      proc,
		tables:    t,
		engine:    engine,
		validator: services.NewInvoiceValidator(),
		log:       log.With().Str("component", "api").Logger(),
	}
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	// Session
	router.HandleFunc("/api/login", auth.LoginHandler).Methods("POST")
	router.HandleFunc("/api/me", auth.MeHandler).Methods("GET")

	// Extraction
	router.HandleFunc("/api/invoices/extract", h.ExtractInvoices).Methods("POST")
	router.HandleFunc("/api/categories", h.GetCategories).Methods("GET")

	// Invoice CRUD
	router.HandleFunc("/api/invoices", h.GetInvoices).Methods("GET")
	router.HandleFunc("/api/invoices/{id}", h.GetInvoice).Methods("GET")
	router.HandleFunc("/api/invoices/{id}", h.UpdateInvoice).Methods("PUT")
	router.HandleFunc("/api/invoices/{id}", h.DeleteInvoice).Methods("DELETE")
	router.HandleFunc("/api/invoices/{id}/reprocess", h.ReprocessInvoice).Methods("POST")
	router.HandleFunc("/api/invoices/{id}/document", h.GetInvoiceDocument).Methods("GET")

	// Statistics
	router.HandleFunc("/api/stats", h.GetStats).Methods("GET")

	// Health check
	router.HandleFunc("/health", h.Health).Methods("GET")

	return router
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Memory    MemoryStats       `json:"memory"`
	Tesseract ServiceStatus     `json:"tesseract"`
	Database  ServiceStatus     `json:"database"`
	Storage   ServiceStatus     `json:"storage"`
	AI        map[string]string `json:"ai"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

var startTime = time.Now()

// Health reports the service and its dependencies. Scanned PDFs need
// tesseract, so without it the service is degraded.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	tesseractStatus := h.checkTesseract()

	aiStatus := map[string]string{
		"enabled":         fmt.Sprint(h.config.AI.Enabled),
		"defaultProvider": h.config.AI.DefaultProvider,
		"ocrEngine":       h.config.OCR.Engine,
	}

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		Tesseract: tesseractStatus,
		Database:  h.checkDatabase(),
		Storage:   h.checkStorage(),
		AI:        aiStatus,
	}

	status := http.StatusOK
	if !tesseractStatus.Available {
		response.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, response)
}

type versioned interface {
	Version() string
}

func (h *Handler) checkTesseract() ServiceStatus {
	if _, disabled := h.engine.(ocr.Disabled); disabled || h.engine == nil {
		return ServiceStatus{Available: false, Error: "OCR engine disabled"}
	}
	status := ServiceStatus{Available: true, Version: "unknown"}
	if v, ok := h.engine.(versioned); ok {
		status.Version = v.Version()
	}
	return status
}

func (h *Handler) checkDatabase() ServiceStatus {
	if db.Pool == nil {
		return ServiceStatus{Available: false, Error: "database pool not initialized"}
	}
	return ServiceStatus{Available: true, Version: "PostgreSQL"}
}

func (h *Handler) checkStorage() ServiceStatus {
	if storage.Client == nil {
		return ServiceStatus{Available: false, Error: "storage client not initialized"}
	}
	return ServiceStatus{Available: true, Version: "MinIO S3"}
}

// GetCategories returns the category override options: the configured ones,
// or the classification categories when none are configured.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.config.Categories
	if len(categories) == 0 {
		for _, c := range h.tables.Categories {
			categories = append(categories, c.Name)
		}
		for _, c := range h.tables.SellerCategories {
			categories = append(categories, c.Name)
		}
		categories = append(categories, h.tables.FallbackCategory)
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"auto":       pipeline.AutoCategory,
		"categories": categories,
	})
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	h.writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// writeJSON sets the JSON content type and status, then encodes v.
func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn().Err(err).Msg("Failed to write response")
	}
}
