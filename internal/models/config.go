package models

// Config represents the service configuration
type Config struct {
	// Server config
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	LogLevel string `yaml:"log_level"` // zerolog level name, default "info"

	// Pipeline
	Workers    int    `yaml:"workers"`     // concurrent documents per batch
	TablesFile string `yaml:"tables_file"` // optional override of the embedded tables

	// OCR config
	OCR OCRConfig `yaml:"ocr"`

	// AI config
	AI AIConfig `yaml:"ai"`

	// Category override options offered to clients
	Categories []string `yaml:"categories"`
}

// OCRConfig represents OCR-specific configuration
type OCRConfig struct {
	Engine         string `yaml:"engine"`          // "tesseract" or "none"
	Language       string `yaml:"language"`        // default "vie+eng"
	TessdataPrefix string `yaml:"tessdata_prefix"` // optional tessdata directory
	UpscaleFactor  int    `yaml:"upscale_factor"`  // region re-OCR scale, default 2
}

// AIConfig configures the optional assist for blank critical fields.
type AIConfig struct {
	Enabled bool `yaml:"enabled"`

	// OpenAI or any OpenAI-compatible endpoint
	OpenAI OpenAIConfig `yaml:"openai"`

	// Gemini
	Gemini GeminiConfig `yaml:"gemini"`

	// Default provider
	DefaultProvider string `yaml:"default_provider"` // "openai" or "gemini"
}

// OpenAIConfig for OpenAI/Azure OpenAI
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url,omitempty"` // For custom endpoints
	Model   string `yaml:"model"`
}

// GeminiConfig for Google Gemini
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}
