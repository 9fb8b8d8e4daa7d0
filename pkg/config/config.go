package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all semcache configuration.
type Config struct {
	Listen    string           `yaml:"listen"`
	DBPath    string           `yaml:"db_path"`
	Log       LogConfig        `yaml:"log"`
	Cache     CacheConfig      `yaml:"cache"`
	Embedding EmbeddingConfig  `yaml:"embedding"`
	Providers []ProviderConfig `yaml:"providers"`
	Router    RouterConfig     `yaml:"router"`
	Assistant AssistantConfig  `yaml:"assistant"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// CacheConfig controls the semantic cache. Threshold is the minimum cosine
// similarity the query endpoint accepts as a hit; the cache core itself takes
// the threshold per lookup.
type CacheConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Threshold  float32 `yaml:"threshold"`
	Dimensions int     `yaml:"dimensions"`
}

// EmbeddingConfig selects the embedding provider.
// Provider is "hash" (default, offline) or "openai" (OpenAI or any
// OpenAI-compatible endpoint when URL is set).
type EmbeddingConfig struct {
	Provider string        `yaml:"provider"`
	URL      string        `yaml:"url"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
}

// ProviderConfig defines an upstream OpenAI-compatible LLM provider.
type ProviderConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// RouterConfig defines model aliases and their fallback chains.
type RouterConfig struct {
	Routes []RouteConfig `yaml:"routes"`
}

// RouteConfig maps a model alias to an ordered list of targets.
type RouteConfig struct {
	Model   string        `yaml:"model"`
	Targets []RouteTarget `yaml:"targets"`
}

// RouteTarget identifies a specific provider and model in a fallback chain.
type RouteTarget struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
}

// AssistantConfig names the models used for each kind of upstream call.
type AssistantConfig struct {
	ToolsModel      string        `yaml:"tools_model"`
	ChatModel       string        `yaml:"chat_model"`
	ClassifierModel string        `yaml:"classifier_model"`
	HistoryLimit    int           `yaml:"history_limit"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		DBPath: "semcache.db",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Cache: CacheConfig{
			Enabled:    true,
			Threshold:  0.92,
			Dimensions: 384,
		},
		Embedding: EmbeddingConfig{
			Provider: "hash",
			Timeout:  30 * time.Second,
		},
		Assistant: AssistantConfig{
			ToolsModel:      "gemini-2.5-flash",
			ChatModel:       "gemini-2.5-flash",
			ClassifierModel: "gemini-2.5-flash",
			HistoryLimit:    40,
			Timeout:         2 * time.Minute,
		},
	}
}

// Load reads a YAML config file, expands environment variables and validates
// the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Cache.Threshold < 0 || c.Cache.Threshold > 1 {
		return fmt.Errorf("config: cache.threshold must be within [0, 1], got %v", c.Cache.Threshold)
	}
	if c.Cache.Dimensions <= 0 {
		return fmt.Errorf("config: cache.dimensions must be positive, got %d", c.Cache.Dimensions)
	}
	switch c.Embedding.Provider {
	case "", "hash":
	case "openai":
		if c.Embedding.Model == "" {
			return fmt.Errorf("config: embedding.model is required for the openai provider")
		}
	default:
		return fmt.Errorf("config: unknown embedding.provider %q", c.Embedding.Provider)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log.format %q", c.Log.Format)
	}
	return nil
}
