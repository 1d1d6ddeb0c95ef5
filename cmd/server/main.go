package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/facturaIA/hoadon-extractor/api"
	"github.com/facturaIA/hoadon-extractor/internal/ai"
	"github.com/facturaIA/hoadon-extractor/internal/auth"
	"github.com/facturaIA/hoadon-extractor/internal/config"
	"github.com/facturaIA/hoadon-extractor/internal/db"
	"github.com/facturaIA/hoadon-extractor/internal/logging"
	"github.com/facturaIA/hoadon-extractor/internal/ocr"
	"github.com/facturaIA/hoadon-extractor/internal/pipeline"
	"github.com/facturaIA/hoadon-extractor/internal/storage"
	"github.com/facturaIA/hoadon-extractor/internal/tables"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (missing file uses defaults)")
	pretty := flag.Bool("pretty", false, "human-readable console logs")
	flag.Parse()

	cfg, err := config.Load(existing(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, *pretty)

	// Initialize JWT
	if err := auth.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize auth")
	}

	// Initialize database connection pool
	if err := db.Init(); err != nil {
		log.Warn().Err(err).Msg("Database not available, running in extraction-only mode")
	} else {
		defer db.Close()
		seedAdmin(log)
	}

	// Initialize MinIO storage
	if err := storage.Init(); err != nil {
		log.Warn().Err(err).Msg("Storage not available, documents will not be stored")
	}

	t, err := tables.Load(cfg.TablesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load tables")
	}

	engine := ocr.NewEngine(cfg.OCR, log)

	var assist pipeline.Assist
	assistant, err := ai.NewFromConfig(cfg.AI, t, log)
	switch {
	case errors.Is(err, ai.ErrNoProvider):
		log.Info().Msg("AI assist disabled")
	case err != nil:
		log.Warn().Err(err).Msg("AI assist not available")
	default:
		assist = assistant
		log.Info().Str("provider", assistant.Name()).Msg("AI assist enabled")
	}

	proc := pipeline.New(pipeline.Options{
		Tables:  t,
		Engine:  engine,
		Upscale: cfg.OCR.UpscaleFactor,
		Assist:  assist,
		Workers: cfg.Workers,
		Log:     log,
	})

	handler := api.NewHandler(cfg, proc, t, engine, log)
	router := handler.SetupRoutes()

	// JWT middleware skips /health and /api/login
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           auth.JWTMiddleware(router),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("version", api.Version).
			Str("ocr", engine.Name()).
			Bool("database", db.Pool != nil).
			Bool("storage", storage.Client != nil).
			Msg("Starting invoice extraction service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// existing returns path when the file exists, so a missing default config
// falls back to built-in defaults plus the environment.
func existing(path string) string {
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// seedAdmin creates or updates the account named by ADMIN_EMAIL and
// ADMIN_PASSWORD.
func seedAdmin(log zerolog.Logger) {
	email := strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash admin password")
		return
	}
	team := os.Getenv("ADMIN_TEAM")
	if team == "" {
		team = "default"
	}
	user := &db.User{Email: strings.ToLower(email), Name: "Administrator", Team: team, Role: "admin", PasswordHash: hash}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.UpsertUser(ctx, user); err != nil {
		log.Error().Err(err).Msg("Failed to seed admin user")
		return
	}
	log.Info().Str("email", user.Email).Msg("Admin user ready")
}
