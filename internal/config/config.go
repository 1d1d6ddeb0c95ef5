// Package config loads the service configuration from YAML and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/facturaIA/hoadon-extractor/internal/models"
)

// Load reads a YAML file and applies environment overrides. An empty path
// skips the file.
func Load(path string) (*models.Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return Parse(data, os.Getenv)
}

// Parse decodes YAML, applies overrides from getenv and fills defaults.
func Parse(data []byte, getenv func(string) string) (*models.Config, error) {
	var config models.Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := applyEnv(&config, getenv); err != nil {
		return nil, err
	}
	applyDefaults(&config)
	return &config, nil
}

func applyEnv(config *models.Config, getenv func(string) string) error {
	strs := map[string]*string{
		"HOST":            &config.Host,
		"LOG_LEVEL":       &config.LogLevel,
		"TABLES_FILE":     &config.TablesFile,
		"OCR_ENGINE":      &config.OCR.Engine,
		"OCR_LANGUAGE":    &config.OCR.Language,
		"TESSDATA_PREFIX": &config.OCR.TessdataPrefix,
		"OPENAI_API_KEY":  &config.AI.OpenAI.APIKey,
		"OPENAI_BASE_URL": &config.AI.OpenAI.BaseURL,
		"OPENAI_MODEL":    &config.AI.OpenAI.Model,
		"GEMINI_API_KEY":  &config.AI.Gemini.APIKey,
		"GEMINI_MODEL":    &config.AI.Gemini.Model,
		"AI_PROVIDER":     &config.AI.DefaultProvider,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PORT":    &config.Port,
		"WORKERS": &config.Workers,
	}
	for key, dst := range ints {
		v := getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		*dst = n
	}

	if v := getenv("AI_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid AI_ENABLED %q: %w", v, err)
		}
		config.AI.Enabled = enabled
	}
	return nil
}

func applyDefaults(config *models.Config) {
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.Host == "" {
		config.Host = "0.0.0.0"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.Workers < 1 {
		config.Workers = 4
	}
	if config.OCR.Engine == "" {
		config.OCR.Engine = "tesseract"
	}
	if config.OCR.Language == "" {
		config.OCR.Language = "vie+eng"
	}
	if config.OCR.UpscaleFactor < 1 {
		config.OCR.UpscaleFactor = 2
	}
	if config.AI.DefaultProvider == "" {
		config.AI.DefaultProvider = "openai"
	}
}
