// Package config loads quill configuration from defaults, an optional YAML
// file, a .env file and QUILL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/FranksOps/quill/internal/fingerprint"
	"github.com/FranksOps/quill/internal/llm"
	"github.com/FranksOps/quill/internal/logger"
	"github.com/FranksOps/quill/internal/quality"
	"github.com/FranksOps/quill/internal/sheet"
)

// Configuration validation errors.
var (
	ErrInvalidLogLevel          = errors.New("log.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("log.format must be 'text' or 'json'")
	ErrUnknownLLMProvider       = errors.New("generation.provider must be 'openai'")
	ErrMissingAPIKey            = errors.New("generation.api_key (or OPENAI_API_KEY) is required")
	ErrInvalidMaxAttempts       = errors.New("generation.max_attempts must be between 1 and 3")
	ErrInvalidMaxRetries        = errors.New("generation.max_retries cannot be negative")
	ErrInvalidTolerance         = errors.New("generation.tolerance must be between 1 and 99")
	ErrInvalidTimeout           = errors.New("generation.timeout and fetch.timeout must be positive")
	ErrUnknownSearchProvider    = errors.New("search.provider must be one of: google, customsearch, duckduckgo, static")
	ErrMissingSearchCredentials = errors.New("search.google_api_key and search.google_cx are required for customsearch")
	ErrInvalidSearchLimits      = errors.New("search.max_links and search.max_examined must be at least 1")
	ErrInvalidFingerprint       = errors.New("fetch.fingerprint must be one of: chrome, firefox, safari, go, random")
	ErrInvalidRate              = errors.New("fetch.rps and fetch.jitter must be non-negative")
	ErrInvalidWorkers           = errors.New("pipeline.workers must be at least 1")
	ErrUnknownStorageDriver     = errors.New("storage.driver must be one of: none, sqlite, postgres, jsonl")
	ErrMissingStorageDSN        = errors.New("storage.dsn is required for the selected driver")
	ErrMissingCredentials       = errors.New("server.username and server.password_hash are required")
)

// Config holds all application configuration.
type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Generation GenerationConfig `mapstructure:"generation"`
	Search     SearchConfig     `mapstructure:"search"`
	Fetch      FetchConfig      `mapstructure:"fetch"`
	Sheet      SheetConfig      `mapstructure:"sheet"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Server     ServerConfig     `mapstructure:"server"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GenerationConfig controls the LLM adapter and the quality loop.
type GenerationConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// MaxRetries is the SDK's transport retries per call. Every retry is an
	// extra request on top of the attempt budget, so the default is 0.
	MaxRetries  int           `mapstructure:"max_retries"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Tolerance   int           `mapstructure:"tolerance"`
}

// SearchConfig selects the search provider.
type SearchConfig struct {
	Provider     string   `mapstructure:"provider"`
	GoogleAPIKey string   `mapstructure:"google_api_key"`
	GoogleCX     string   `mapstructure:"google_cx"`
	BaseURL      string   `mapstructure:"base_url"`
	Language     string   `mapstructure:"language"`
	MaxLinks     int      `mapstructure:"max_links"`
	MaxExamined  int      `mapstructure:"max_examined"`
	URLs         []string `mapstructure:"urls"`
}

// FetchConfig controls page fetching.
type FetchConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	Fingerprint   string        `mapstructure:"fingerprint"`
	RespectRobots bool          `mapstructure:"respect_robots"`
	RPS           float64       `mapstructure:"rps"`
	Jitter        float64       `mapstructure:"jitter"`
	UserAgents    []string      `mapstructure:"user_agents"`
	RandomUA      bool          `mapstructure:"random_user_agent"`
}

// SheetConfig maps spreadsheet headers.
type SheetConfig struct {
	Columns sheet.Columns `mapstructure:"columns"`
}

// PipelineConfig controls batch runs.
type PipelineConfig struct {
	OutputDir string `mapstructure:"output_dir"`
	Workers   int    `mapstructure:"workers"`
}

// StorageConfig selects where row records go.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// MetricsConfig controls the Prometheus endpoint of the CLI. Port 0
// disables it.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	Username       string        `mapstructure:"username"`
	PasswordHash   string        `mapstructure:"password_hash"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// Load reads configuration. An empty cfgFile searches ./quill.yaml and
// $HOME/.quill/quill.yaml; a missing file is not an error.
func Load(cfgFile string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("QUILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("generation.api_key", "QUILL_GENERATION_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("quill")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.quill")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("generation.provider", "openai")
	v.SetDefault("generation.model", llm.DefaultModel)
	v.SetDefault("generation.api_key", "")
	v.SetDefault("generation.base_url", "")
	v.SetDefault("generation.temperature", llm.DefaultTemperature)
	v.SetDefault("generation.max_tokens", llm.DefaultMaxTokens)
	v.SetDefault("generation.timeout", "2m")
	v.SetDefault("generation.max_retries", 0)
	v.SetDefault("generation.max_attempts", 3)
	v.SetDefault("generation.tolerance", 10)

	v.SetDefault("search.provider", "google")
	v.SetDefault("search.google_api_key", "")
	v.SetDefault("search.google_cx", "")
	v.SetDefault("search.base_url", "")
	v.SetDefault("search.language", "fa")
	v.SetDefault("search.max_links", 5)
	v.SetDefault("search.max_examined", 20)
	v.SetDefault("search.urls", []string{})

	v.SetDefault("fetch.timeout", "10s")
	v.SetDefault("fetch.fingerprint", "chrome")
	v.SetDefault("fetch.respect_robots", false)
	v.SetDefault("fetch.rps", 1.0)
	v.SetDefault("fetch.jitter", 0.2)
	v.SetDefault("fetch.user_agents", []string{})
	v.SetDefault("fetch.random_user_agent", false)

	cols := sheet.DefaultColumns()
	v.SetDefault("sheet.columns.topic", cols.Topic)
	v.SetDefault("sheet.columns.type", cols.Type)
	v.SetDefault("sheet.columns.word_count", cols.WordCount)
	v.SetDefault("sheet.columns.primary_keywords", cols.Primary)
	v.SetDefault("sheet.columns.secondary_keywords", cols.Secondary)
	v.SetDefault("sheet.columns.link1", cols.Link1)
	v.SetDefault("sheet.columns.anchor1", cols.Anchor1)
	v.SetDefault("sheet.columns.link2", cols.Link2)
	v.SetDefault("sheet.columns.anchor2", cols.Anchor2)
	v.SetDefault("sheet.columns.title", cols.Title)
	v.SetDefault("sheet.columns.h2", cols.H2)
	v.SetDefault("sheet.columns.h3", cols.H3)

	v.SetDefault("pipeline.output_dir", "generated_articles")
	v.SetDefault("pipeline.workers", 1)

	v.SetDefault("storage.driver", "none")
	v.SetDefault("storage.dsn", "")

	v.SetDefault("metrics.port", 0)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.username", "")
	v.SetDefault("server.password_hash", "")
	v.SetDefault("server.session_ttl", "12h")
	v.SetDefault("server.max_upload_bytes", 32<<20)
}

// Validate checks everything a batch run needs and reports every problem.
func (c *Config) Validate() error {
	var errs []error

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, ErrInvalidLogLevel)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, ErrInvalidLogFormat)
	}

	g := c.Generation
	if !strings.EqualFold(g.Provider, "openai") {
		errs = append(errs, ErrUnknownLLMProvider)
	} else if g.APIKey == "" {
		errs = append(errs, ErrMissingAPIKey)
	}
	if g.MaxAttempts < 1 || g.MaxAttempts > quality.AttemptLimit {
		errs = append(errs, ErrInvalidMaxAttempts)
	}
	if g.MaxRetries < 0 {
		errs = append(errs, ErrInvalidMaxRetries)
	}
	if g.Tolerance < 1 || g.Tolerance > 99 {
		errs = append(errs, ErrInvalidTolerance)
	}
	if g.Timeout <= 0 || c.Fetch.Timeout <= 0 {
		errs = append(errs, ErrInvalidTimeout)
	}

	switch strings.ToLower(c.Search.Provider) {
	case "google", "duckduckgo", "static":
	case "customsearch":
		if c.Search.GoogleAPIKey == "" || c.Search.GoogleCX == "" {
			errs = append(errs, ErrMissingSearchCredentials)
		}
	default:
		errs = append(errs, ErrUnknownSearchProvider)
	}
	if c.Search.MaxLinks < 1 || c.Search.MaxExamined < 1 {
		errs = append(errs, ErrInvalidSearchLimits)
	}

	if _, err := fingerprint.ParseProfile(c.Fetch.Fingerprint); err != nil {
		errs = append(errs, ErrInvalidFingerprint)
	}
	if c.Fetch.RPS < 0 || c.Fetch.Jitter < 0 {
		errs = append(errs, ErrInvalidRate)
	}

	if c.Pipeline.Workers < 1 {
		errs = append(errs, ErrInvalidWorkers)
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "", "none":
	case "sqlite", "postgres", "jsonl":
		if c.Storage.DSN == "" {
			errs = append(errs, ErrMissingStorageDSN)
		}
	default:
		errs = append(errs, ErrUnknownStorageDriver)
	}

	return errors.Join(errs...)
}

// ValidateServer additionally checks the settings the HTTP surface needs.
func (c *Config) ValidateServer() error {
	err := c.Validate()
	if c.Server.Username == "" || c.Server.PasswordHash == "" {
		err = errors.Join(err, ErrMissingCredentials)
	}
	return err
}
