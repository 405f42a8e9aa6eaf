// Package config loads service configuration from file and environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// OpenAIConfig holds settings for the embedding and completion APIs.
type OpenAIConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	EmbeddingModel    string  `mapstructure:"embedding_model"`
	CompletionModel   string  `mapstructure:"completion_model"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

// QdrantConfig holds vector database connection settings.
type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// AuthConfig holds token verification settings.
type AuthConfig struct {
	BaseURL string `mapstructure:"base_url"`
	AnonKey string `mapstructure:"anon_key"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from the optional file at path and from
// EDGARCHAT_-prefixed environment variables. Environment wins over file.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.embedding_model", "text-embedding-3-small")
	v.SetDefault("openai.completion_model", "gpt-4o-mini")
	v.SetDefault("openai.requests_per_second", 2.0)
	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.collection", "filings")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("EDGARCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees keys viper already knows about; the credentials
	// have no defaults, so bind them explicitly or env values are ignored.
	for _, key := range []string{"openai.api_key", "database.url", "auth.base_url", "auth.anon_key"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Validate returns warnings for settings that will break at runtime.
// Loading still succeeds so the caller can decide how loudly to fail.
func (c *Config) Validate() []string {
	var warnings []string
	if c.OpenAI.APIKey == "" {
		warnings = append(warnings, "openai.api_key is not set; embedding and completion calls will fail")
	}
	if c.Database.URL == "" {
		warnings = append(warnings, "database.url is not set; conversation persistence is disabled")
	}
	if c.Auth.BaseURL == "" {
		warnings = append(warnings, "auth.base_url is not set; all requests will be rejected")
	}
	if c.Qdrant.Collection == "" {
		warnings = append(warnings, "qdrant.collection is not set; retrieval will fail")
	}
	return warnings
}
