package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the whole process configuration, loaded once at startup.
type Config struct {
	Catalog   CatalogConfig   `json:"catalog" yaml:"catalog"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	Batch     BatchConfig     `json:"batch" yaml:"batch"`
	Backoff   BackoffConfig   `json:"backoff" yaml:"backoff"`
	LogLevel  string          `json:"log_level,omitempty" yaml:"log_level,omitempty"`
}

// CatalogConfig points at the classification source collection.
type CatalogConfig struct {
	// Path is a JSON array of catalog entries with precomputed embeddings.
	Path string `json:"path" yaml:"path"`
}

// RetrievalConfig tunes the scorers and rank fusion.
type RetrievalConfig struct {
	// TopK is the candidate count each scorer returns per intent.
	TopK int `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	// FinalK caps the fused list handed to the adjudicator.
	FinalK int `json:"final_k,omitempty" yaml:"final_k,omitempty"`
	// RRFK is the reciprocal-rank-fusion smoothing constant.
	RRFK int `json:"rrf_k,omitempty" yaml:"rrf_k,omitempty"`
}

// LLMConfig defines the chat-completion model used for intent splitting
// and adjudication.
type LLMConfig struct {
	Provider    string  `json:"provider" yaml:"provider"` // Available options: openai
	APIKey      string  `json:"api_key,omitempty" yaml:"api_key"`
	BaseURL     string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	TimeoutMS   int     `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
}

// EmbeddingConfig defines the query embedding model. Catalog embeddings are
// precomputed offline and must match this model's dimensionality.
type EmbeddingConfig struct {
	Provider   string `json:"provider" yaml:"provider"` // Available options: openai
	APIKey     string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Model      string `json:"model,omitempty" yaml:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	// CacheSize bounds the in-process query embedding cache.
	CacheSize int `json:"cache_size,omitempty" yaml:"cache_size,omitempty"`
}

// BatchConfig tunes the batch scheduler.
type BatchConfig struct {
	MicroBatchSize int `json:"micro_batch_size,omitempty" yaml:"micro_batch_size,omitempty"`
	Concurrency    int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"`
}

// BackoffConfig tunes the retry policy shared by all provider calls.
type BackoffConfig struct {
	MaxAttempts int     `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	BaseMS      int     `json:"base_ms,omitempty" yaml:"base_ms,omitempty"`
	MaxMS       int     `json:"max_ms,omitempty" yaml:"max_ms,omitempty"`
	Multiplier  float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
}

// Default returns a configuration with every tunable at its documented
// default. The API key still has to come from the environment or the file.
func Default() *Config {
	return &Config{
		Retrieval: RetrievalConfig{TopK: 10, FinalK: 10, RRFK: 60},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.1,
			MaxTokens:   800,
			TimeoutMS:   30000,
		},
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			CacheSize: 512,
		},
		Batch:    BatchConfig{MicroBatchSize: 10, Concurrency: 5},
		Backoff:  BackoffConfig{MaxAttempts: 3, BaseMS: 200, MaxMS: 2000, Multiplier: 2},
		LogLevel: "info",
	}
}

// Load reads a YAML file over the defaults and validates the result.
// Environment variables OPENAI_API_KEY and EMBEDDING_API_KEY fill the key
// fields when the file leaves them empty.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = os.Getenv("EMBEDDING_API_KEY")
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = c.LLM.APIKey
	}
}

// LLMTimeout returns the request timeout as a duration.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutMS) * time.Millisecond
}
