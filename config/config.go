// Package config loads vendor credentials, call pipeline and conversation
// settings from a YAML file, the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"

	"github.com/casualjim/omnichat/pkg/slogx"
	"github.com/casualjim/omnichat/resilience"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	OpenAI     = "openai"
	Azure      = "azure"
	Groq       = "groq"
	Perplexity = "perplexity"
	Anthropic  = "anthropic"
	Gemini     = "gemini"
)

// Vendors lists every supported vendor name.
var Vendors = []string{OpenAI, Azure, Groq, Perplexity, Anthropic, Gemini}

type Config struct {
	// Default is the vendor used when none is asked for.
	Default string `yaml:"default"`

	OpenAI     OpenAIConfig `yaml:"openai"`
	Azure      AzureConfig  `yaml:"azure"`
	Groq       VendorConfig `yaml:"groq"`
	Perplexity VendorConfig `yaml:"perplexity"`
	Anthropic  VendorConfig `yaml:"anthropic"`
	Gemini     VendorConfig `yaml:"gemini"`

	Resilience resilience.Config `yaml:"resilience"`
	Executor   ExecutorConfig    `yaml:"executor"`
	Logging    LoggingConfig     `yaml:"logging"`
}

type VendorConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

type OpenAIConfig struct {
	VendorConfig `yaml:",inline"`
	Organization string `yaml:"organization"`
	Project      string `yaml:"project"`
}

type AzureConfig struct {
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"api_version"`
}

type ExecutorConfig struct {
	MaxTurns       int      `yaml:"max_turns"`
	MaxTokens      int      `yaml:"max_tokens"`
	Temperature    *float64 `yaml:"temperature"`
	ContinuePrompt string   `yaml:"continue_prompt"`
	ParallelTools  bool     `yaml:"parallel_tools"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used before any file or environment is read.
func Default() *Config {
	return &Config{
		Default:    OpenAI,
		Resilience: resilience.DefaultConfig(),
		Executor: ExecutorConfig{
			MaxTurns:       16,
			ContinuePrompt: "continue",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads .env when present, then the YAML file at path with ${VAR}
// references expanded, applies environment overrides and validates the result.
// A missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := Parse(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
			slog.Debug("loaded configuration", slog.String("config_file", path))
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("config file not found, using defaults and environment", slog.String("config_file", path))
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	ApplyEnv(cfg, os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg after expanding environment references.
// Fields the document leaves out keep their current value.
func Parse(data []byte, cfg *Config) error {
	return yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg)
}

// ApplyEnv overrides cfg with the conventional vendor environment variables.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(&cfg.Default, "OMNICHAT_PROVIDER")
	set(&cfg.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&cfg.OpenAI.BaseURL, "OPENAI_BASE_URL")
	set(&cfg.OpenAI.Organization, "OPENAI_ORGANIZATION")
	set(&cfg.OpenAI.Project, "OPENAI_PROJECT")
	set(&cfg.Azure.APIKey, "AZURE_OPENAI_API_KEY")
	set(&cfg.Azure.Endpoint, "AZURE_OPENAI_ENDPOINT")
	set(&cfg.Azure.Deployment, "AZURE_OPENAI_DEPLOYMENT")
	set(&cfg.Azure.APIVersion, "AZURE_OPENAI_API_VERSION")
	set(&cfg.Groq.APIKey, "GROQ_API_KEY")
	set(&cfg.Perplexity.APIKey, "PERPLEXITY_API_KEY")
	set(&cfg.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	set(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	set(&cfg.Logging.Level, "OMNICHAT_LOG_LEVEL")

	if v, ok := lookup("OMNICHAT_MAX_TURNS"); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Executor.MaxTurns = n
		} else {
			slog.Warn("ignoring invalid OMNICHAT_MAX_TURNS", slog.String("value", v), slogx.Error(err))
		}
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(Vendors, c.Default) {
		errs = append(errs, fmt.Errorf("default provider %q is not one of %v", c.Default, Vendors))
	}
	if c.Azure.APIKey != "" && (c.Azure.Endpoint == "" || c.Azure.Deployment == "") {
		errs = append(errs, errors.New("azure requires endpoint and deployment"))
	}
	if c.Executor.MaxTurns < 1 {
		errs = append(errs, fmt.Errorf("executor.max_turns must be positive, got %d", c.Executor.MaxTurns))
	}
	if c.Executor.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("executor.max_tokens must not be negative, got %d", c.Executor.MaxTokens))
	}
	if err := c.Resilience.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("resilience: %w", err))
	}
	return errors.Join(errs...)
}

// Configured reports whether credentials for vendor are present.
func (c *Config) Configured(vendor string) bool {
	switch vendor {
	case OpenAI:
		return c.OpenAI.APIKey != ""
	case Azure:
		return c.Azure.APIKey != "" && c.Azure.Endpoint != "" && c.Azure.Deployment != ""
	case Groq:
		return c.Groq.APIKey != ""
	case Perplexity:
		return c.Perplexity.APIKey != ""
	case Anthropic:
		return c.Anthropic.APIKey != ""
	case Gemini:
		return c.Gemini.APIKey != ""
	default:
		return false
	}
}

// Level maps the configured log level onto slog, defaulting to info.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
