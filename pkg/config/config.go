package config

import (
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// Config defines the application configuration structure.
// It maps directly to the config.json file and holds deployment-level
// settings: the LLM provider groups, the front-end channels, the web search
// adapter and an optional override of the mode/persona catalogue.
type Config struct {
	// Channels maps channel identifiers (e.g., "telegram", "web") to their
	// specific configuration payloads in raw JSON format.
	Channels map[string]jsoniter.RawMessage `json:"channels"`
	// LLM holds the provider group list in raw JSON. It is decoded by the
	// llm package so that each provider can own its options.
	LLM jsoniter.RawMessage `json:"llm"`
	// Search configures the web_search tool.
	Search SearchConfig `json:"search"`
	// Catalog optionally replaces the built-in modes and personas.
	Catalog *CatalogConfig `json:"catalog,omitempty"`
	// DefaultMode and DefaultPersona select the initial ids of a new session.
	// Empty means "first declared in the catalogue".
	DefaultMode    string `json:"default_mode"`
	DefaultPersona string `json:"default_persona"`
}

// SearchConfig controls the DuckDuckGo adapter.
type SearchConfig struct {
	Endpoint   string  `json:"endpoint"`
	Region     string  `json:"region"`
	MaxResults int     `json:"max_results"`
	RatePerSec float64 `json:"rate_per_sec"`
	Burst      int     `json:"burst"`
	UserAgent  string  `json:"user_agent"`
}

// CatalogEntry is the JSON form of a mode or persona.
type CatalogEntry struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Directive   string `json:"directive"`
}

// CatalogConfig lists modes and personas in declaration order.
type CatalogConfig struct {
	Modes    []CatalogEntry `json:"modes"`
	Personas []CatalogEntry `json:"personas"`
}

// Validate ensures the configuration structure contains all mandatory fields.
func (c *Config) Validate() error {
	if len(c.LLM) == 0 {
		return fmt.Errorf("mandatory 'llm' configuration is missing or empty")
	}
	if c.Catalog != nil && (len(c.Catalog.Modes) == 0 || len(c.Catalog.Personas) == 0) {
		return fmt.Errorf("'catalog' must declare at least one mode and one persona")
	}
	return nil
}

// ApplyDefaults fills unset search settings.
func (c *Config) ApplyDefaults() {
	if c.Search.Endpoint == "" {
		c.Search.Endpoint = "https://html.duckduckgo.com/html/"
	}
	if c.Search.Region == "" {
		c.Search.Region = "jp-jp"
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 5
	}
	if c.Search.RatePerSec <= 0 {
		c.Search.RatePerSec = 1
	}
	if c.Search.Burst <= 0 {
		c.Search.Burst = 2
	}
}

// SystemConfig defines engine-level technical parameters.
// These settings are stored in system.json and control the limits,
// timeouts and logging of the reasoning engine.
type SystemConfig struct {
	// MaxIterations caps the number of backend calls per turn.
	MaxIterations int `json:"max_iterations"`
	// MaxExecutionTimeMs is the wall-clock ceiling of one turn in milliseconds.
	MaxExecutionTimeMs int `json:"max_execution_time_ms"`
	// Temperature is the sampling temperature passed to every backend.
	Temperature float64 `json:"temperature"`
	// DefaultModel is used when a provider group does not list a model.
	DefaultModel string `json:"default_model"`
	// MaxRetries is the number of attempts the fallback client makes on
	// transient backend errors before giving up.
	MaxRetries int `json:"max_retries"`
	// RetryDelayMs is the initial backoff interval between retries.
	RetryDelayMs int `json:"retry_delay_ms"`
	// LLMTimeoutMs is the hard cutoff for a single backend request.
	LLMTimeoutMs int `json:"llm_timeout_ms"`
	// SearchTimeoutMs bounds one web search call.
	SearchTimeoutMs int `json:"search_timeout_ms"`
	// OllamaDefaultURL is the fallback endpoint for a local Ollama instance.
	OllamaDefaultURL string `json:"ollama_default_url"`
	// HistoryObservationLimit truncates stored tool observations (runes).
	HistoryObservationLimit int `json:"history_observation_limit"`
	// TelegramMessageLimit is the maximum rune count of a single Telegram message.
	TelegramMessageLimit int `json:"telegram_message_limit"`
	// ShowSteps renders the reasoning trace under every answer.
	ShowSteps bool `json:"show_steps"`
	// DebugPrompts saves every prompt/response pair under debug/prompts.
	DebugPrompts bool `json:"debug_prompts"`
	// LogLevel sets the minimum severity for log output.
	// Accepted values: "debug", "info", "warn", "error". Default: "info".
	LogLevel string `json:"log_level"`
	// LogFile enables a rotating file sink in addition to stdout.
	LogFile       string `json:"log_file"`
	LogMaxSizeMB  int    `json:"log_max_size_mb"`
	LogMaxBackups int    `json:"log_max_backups"`
	LogMaxAgeDays int    `json:"log_max_age_days"`
	// EnableTools toggles the web_search tool globally.
	EnableTools bool `json:"enable_tools"`
}

// DefaultSystemConfig returns a SystemConfig initialized with safe defaults.
// It is used when system.json is missing or corrupt.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		MaxIterations:           8,
		MaxExecutionTimeMs:      120000,
		Temperature:             0.7,
		DefaultModel:            "gemini-2.0-flash",
		MaxRetries:              3,
		RetryDelayMs:            500,
		LLMTimeoutMs:            60000,
		SearchTimeoutMs:         15000,
		OllamaDefaultURL:        "http://localhost:11434",
		HistoryObservationLimit: 500,
		TelegramMessageLimit:    4000,
		ShowSteps:               true,
		LogLevel:                "info",
		LogMaxSizeMB:            10,
		LogMaxBackups:           3,
		LogMaxAgeDays:           28,
		EnableTools:             true,
	}
}

// MaxExecutionTime returns the turn ceiling as a duration.
func (s *SystemConfig) MaxExecutionTime() time.Duration {
	return time.Duration(s.MaxExecutionTimeMs) * time.Millisecond
}

// Load reads config.json and system.json from the current working directory.
func Load() (*Config, *SystemConfig, error) {
	return LoadFrom("config.json", "system.json")
}

// LoadFrom reads the application config from appPath (mandatory) and the
// system config from sysPath (optional, defaults on failure).
func LoadFrom(appPath, sysPath string) (*Config, *SystemConfig, error) {
	if _, err := os.Stat(appPath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("config file '%s' not found. please create one", appPath)
	}

	appFile, err := os.ReadFile(appPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(appFile, &cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	cfg.ApplyDefaults()

	return &cfg, LoadSystemConfig(sysPath), nil
}

// LoadSystemConfig attempts to load system settings, returns defaults if it fails
func LoadSystemConfig(path string) *SystemConfig {
	cfg := DefaultSystemConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(file, cfg); err != nil {
		return DefaultSystemConfig()
	}

	// Zero values from a partial file fall back to defaults.
	def := DefaultSystemConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.MaxExecutionTimeMs <= 0 {
		cfg.MaxExecutionTimeMs = def.MaxExecutionTimeMs
	}
	if cfg.HistoryObservationLimit <= 0 {
		cfg.HistoryObservationLimit = def.HistoryObservationLimit
	}
	if cfg.TelegramMessageLimit <= 0 {
		cfg.TelegramMessageLimit = def.TelegramMessageLimit
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = def.DefaultModel
	}

	return cfg
}
