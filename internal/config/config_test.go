package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

const sample = `
port: 9000
workers: 8
ocr:
  engine: tesseract
  language: vie
ai:
  enabled: true
  default_provider: gemini
  gemini:
    model: gemini-1.5-pro
categories: ["Tiếp khách", "Công tác phí"]
`

func TestParse_FileAndDefaults(t *testing.T) {
	cfg, err := Parse([]byte(sample), env(nil))
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "vie", cfg.OCR.Language)
	assert.Equal(t, 2, cfg.OCR.UpscaleFactor)
	assert.True(t, cfg.AI.Enabled)
	assert.Equal(t, "gemini", cfg.AI.DefaultProvider)
	assert.Equal(t, "gemini-1.5-pro", cfg.AI.Gemini.Model)
	assert.Equal(t, []string{"Tiếp khách", "Công tác phí"}, cfg.Categories)
}

func TestParse_EnvOverrides(t *testing.T) {
	cfg, err := Parse([]byte(sample), env(map[string]string{
		"PORT":            "7000",
		"WORKERS":         "2",
		"LOG_LEVEL":       "debug",
		"OCR_LANGUAGE":    "vie+eng",
		"OPENAI_API_KEY":  "sk-test",
		"OPENAI_BASE_URL": "http://llm:8000/v1",
		"AI_PROVIDER":     "openai",
		"AI_ENABLED":      "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "vie+eng", cfg.OCR.Language)
	assert.Equal(t, "sk-test", cfg.AI.OpenAI.APIKey)
	assert.Equal(t, "http://llm:8000/v1", cfg.AI.OpenAI.BaseURL)
	assert.Equal(t, "openai", cfg.AI.DefaultProvider)
	assert.False(t, cfg.AI.Enabled)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("port: [1"), env(nil))
	assert.Error(t, err)

	_, err = Parse(nil, env(map[string]string{"PORT": "eighty"}))
	assert.ErrorContains(t, err, "PORT")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.AI.DefaultProvider)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
