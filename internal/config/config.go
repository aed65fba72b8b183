package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Display modes accepted in configuration
var validDisplayModes = map[string]bool{
	"full":         true,
	"conversation": true,
	"plain":        true,
	"none":         true,
}

// Approval policies accepted in configuration
var validApprovals = map[string]bool{
	"none":  true,
	"human": true,
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// WebSearchConfig configures the web_search tool
type WebSearchConfig struct {
	// Provider is the search provider (only "google" is supported)
	Provider string `yaml:"provider"`

	// NumResults is the number of relevant pages returned to the model
	NumResults int `yaml:"num_results"`

	// MaxProviderCalls caps the number of search provider requests per query
	MaxProviderCalls int `yaml:"max_provider_calls"`

	// MaxConnections caps concurrent requests to the search provider
	MaxConnections int `yaml:"max_connections"`

	// Model judges page relevance; empty means the evaluated model
	Model string `yaml:"model"`
}

// Config represents evalrun configuration options
type Config struct {
	// Model is the default model (provider/model) for tasks that do not set one
	Model string `yaml:"model"`

	// MaxSamples is the maximum number of samples run concurrently (0 = unlimited)
	MaxSamples int `yaml:"max_samples"`

	// MaxConnections is the maximum number of concurrent model requests (0 = unlimited)
	MaxConnections int `yaml:"max_connections"`

	// Timeout is the maximum time for the whole run (0 = no timeout)
	Timeout time.Duration `yaml:"timeout"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs and JSON eval logs are written
	LogDir string `yaml:"log_dir"`

	// Display selects the terminal display (full, conversation, plain, none)
	Display string `yaml:"display"`

	// StorePath is the sqlite database holding eval results
	StorePath string `yaml:"store_path"`

	// RefreshInterval is how often the full display redraws
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// Approval is the tool call approval policy (none, human)
	Approval string `yaml:"approval"`

	// WebSearch configures the web_search tool
	WebSearch WebSearchConfig `yaml:"web_search"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Model:           "mockllm/model",
		MaxSamples:      0, // Unlimited
		MaxConnections:  10,
		Timeout:         0, // No timeout
		LogLevel:        "info",
		LogDir:          ".evalrun/logs",
		Display:         "full",
		StorePath:       ".evalrun/evals.db",
		RefreshInterval: 250 * time.Millisecond,
		Approval:        "none",
		WebSearch: WebSearchConfig{
			Provider:         "google",
			NumResults:       3,
			MaxProviderCalls: 3,
			MaxConnections:   10,
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are strings in YAML
	type yamlConfig struct {
		Model           string          `yaml:"model"`
		MaxSamples      int             `yaml:"max_samples"`
		MaxConnections  int             `yaml:"max_connections"`
		Timeout         string          `yaml:"timeout"`
		LogLevel        string          `yaml:"log_level"`
		LogDir          string          `yaml:"log_dir"`
		Display         string          `yaml:"display"`
		StorePath       string          `yaml:"store_path"`
		RefreshInterval string          `yaml:"refresh_interval"`
		Approval        string          `yaml:"approval"`
		WebSearch       WebSearchConfig `yaml:"web_search"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.Model != "" {
		cfg.Model = yamlCfg.Model
	}
	if yamlCfg.MaxSamples != 0 {
		cfg.MaxSamples = yamlCfg.MaxSamples
	}
	if yamlCfg.MaxConnections != 0 {
		cfg.MaxConnections = yamlCfg.MaxConnections
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(yamlCfg.LogLevel)
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if yamlCfg.Display != "" {
		cfg.Display = strings.ToLower(yamlCfg.Display)
	}
	if yamlCfg.StorePath != "" {
		cfg.StorePath = yamlCfg.StorePath
	}
	if yamlCfg.RefreshInterval != "" {
		interval, err := time.ParseDuration(yamlCfg.RefreshInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid refresh_interval format %q: %w", yamlCfg.RefreshInterval, err)
		}
		cfg.RefreshInterval = interval
	}
	if yamlCfg.Approval != "" {
		cfg.Approval = strings.ToLower(yamlCfg.Approval)
	}

	// Only fields present in the web_search section override defaults
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if section, ok := rawMap["web_search"].(map[string]interface{}); ok {
			ws := yamlCfg.WebSearch
			if _, exists := section["provider"]; exists {
				cfg.WebSearch.Provider = ws.Provider
			}
			if _, exists := section["num_results"]; exists {
				cfg.WebSearch.NumResults = ws.NumResults
			}
			if _, exists := section["max_provider_calls"]; exists {
				cfg.WebSearch.MaxProviderCalls = ws.MaxProviderCalls
			}
			if _, exists := section["max_connections"]; exists {
				cfg.WebSearch.MaxConnections = ws.MaxConnections
			}
			if _, exists := section["model"]; exists {
				cfg.WebSearch.Model = ws.Model
			}
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .evalrun/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".evalrun", "config.yaml"))
}

// Flags holds CLI overrides. Nil fields were not set on the command line.
type Flags struct {
	Model      *string
	MaxSamples *int
	Timeout    *time.Duration
	LogDir     *string
	LogLevel   *string
	Display    *string
	StorePath  *string
	Approval   *string
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(f Flags) {
	if f.Model != nil {
		c.Model = *f.Model
	}
	if f.MaxSamples != nil {
		c.MaxSamples = *f.MaxSamples
	}
	if f.Timeout != nil {
		c.Timeout = *f.Timeout
	}
	if f.LogDir != nil {
		c.LogDir = *f.LogDir
	}
	if f.LogLevel != nil {
		c.LogLevel = strings.ToLower(*f.LogLevel)
	}
	if f.Display != nil {
		c.Display = strings.ToLower(*f.Display)
	}
	if f.StorePath != nil {
		c.StorePath = *f.StorePath
	}
	if f.Approval != nil {
		c.Approval = strings.ToLower(*f.Approval)
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.MaxSamples < 0 {
		return fmt.Errorf("max_samples must be >= 0, got %d", c.MaxSamples)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("max_connections must be >= 0, got %d", c.MaxConnections)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}
	if !validDisplayModes[c.Display] {
		return fmt.Errorf("invalid display %q, must be one of: full, conversation, plain, none", c.Display)
	}
	if !validApprovals[c.Approval] {
		return fmt.Errorf("invalid approval %q, must be one of: none, human", c.Approval)
	}
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be > 0, got %v", c.RefreshInterval)
	}
	if c.StorePath == "" {
		return fmt.Errorf("store_path cannot be empty")
	}

	if c.WebSearch.Provider != "google" {
		return fmt.Errorf("web_search.provider %q not supported, only \"google\" is supported", c.WebSearch.Provider)
	}
	if c.WebSearch.NumResults <= 0 {
		return fmt.Errorf("web_search.num_results must be > 0, got %d", c.WebSearch.NumResults)
	}
	if c.WebSearch.MaxProviderCalls <= 0 {
		return fmt.Errorf("web_search.max_provider_calls must be > 0, got %d", c.WebSearch.MaxProviderCalls)
	}
	if c.WebSearch.MaxConnections <= 0 {
		return fmt.Errorf("web_search.max_connections must be > 0, got %d", c.WebSearch.MaxConnections)
	}

	return nil
}
