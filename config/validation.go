package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error [%s]: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	if len(errs) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("found %d configuration error(s):\n", len(errs)))
	for i, err := range errs {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Message))
	}
	return b.String()
}

// Validate validates the complete configuration
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, c.validateRetrieval()...)
	errs = append(errs, c.validateLLM()...)
	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateBatch()...)
	errs = append(errs, c.validateBackoff()...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (c *Config) validateRetrieval() ValidationErrors {
	var errs ValidationErrors

	if c.Retrieval.TopK <= 0 {
		errs = append(errs, ValidationError{
			Field:   "retrieval.top_k",
			Message: fmt.Sprintf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK),
		})
	}
	if c.Retrieval.TopK > 100 {
		errs = append(errs, ValidationError{
			Field:   "retrieval.top_k",
			Message: fmt.Sprintf("retrieval.top_k %d is too large (max recommended: 100)", c.Retrieval.TopK),
		})
	}
	if c.Retrieval.FinalK <= 0 {
		errs = append(errs, ValidationError{
			Field:   "retrieval.final_k",
			Message: fmt.Sprintf("retrieval.final_k must be positive, got %d", c.Retrieval.FinalK),
		})
	}
	if c.Retrieval.RRFK < 0 {
		errs = append(errs, ValidationError{
			Field:   "retrieval.rrf_k",
			Message: fmt.Sprintf("retrieval.rrf_k must be non-negative, got %d", c.Retrieval.RRFK),
		})
	}

	return errs
}

func (c *Config) validateLLM() ValidationErrors {
	var errs ValidationErrors

	if c.LLM.Provider == "" {
		errs = append(errs, ValidationError{
			Field:   "llm.provider",
			Message: "llm provider is required",
		})
	}
	if c.LLM.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "llm.model",
			Message: "llm model is required",
		})
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "llm.temperature",
			Message: fmt.Sprintf("llm.temperature must be in [0, 2], got %.2f", c.LLM.Temperature),
		})
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, ValidationError{
			Field:   "llm.max_tokens",
			Message: fmt.Sprintf("llm.max_tokens must be non-negative, got %d", c.LLM.MaxTokens),
		})
	}
	if c.LLM.TimeoutMS < 0 {
		errs = append(errs, ValidationError{
			Field:   "llm.timeout_ms",
			Message: fmt.Sprintf("llm.timeout_ms must be non-negative, got %d", c.LLM.TimeoutMS),
		})
	}

	return errs
}

func (c *Config) validateEmbedding() ValidationErrors {
	var errs ValidationErrors

	if c.Embedding.Provider == "" {
		errs = append(errs, ValidationError{
			Field:   "embedding.provider",
			Message: "embedding provider is required",
		})
	}
	if c.Embedding.Model == "" {
		errs = append(errs, ValidationError{
			Field:   "embedding.model",
			Message: "embedding model is required",
		})
	}
	// Dimensions are optional (the catalog fixes them), but when set they
	// must fall in the typical range.
	if c.Embedding.Dimensions != 0 && (c.Embedding.Dimensions < 128 || c.Embedding.Dimensions > 4096) {
		errs = append(errs, ValidationError{
			Field:   "embedding.dimensions",
			Message: fmt.Sprintf("embedding dimensions %d is outside typical range [128, 4096]", c.Embedding.Dimensions),
		})
	}
	if c.Embedding.CacheSize < 0 {
		errs = append(errs, ValidationError{
			Field:   "embedding.cache_size",
			Message: fmt.Sprintf("embedding.cache_size must be non-negative, got %d", c.Embedding.CacheSize),
		})
	}

	return errs
}

func (c *Config) validateBatch() ValidationErrors {
	var errs ValidationErrors

	if c.Batch.MicroBatchSize <= 0 {
		errs = append(errs, ValidationError{
			Field:   "batch.micro_batch_size",
			Message: fmt.Sprintf("batch.micro_batch_size must be positive, got %d", c.Batch.MicroBatchSize),
		})
	}
	if c.Batch.Concurrency <= 0 {
		errs = append(errs, ValidationError{
			Field:   "batch.concurrency",
			Message: fmt.Sprintf("batch.concurrency must be positive, got %d", c.Batch.Concurrency),
		})
	}
	if c.Batch.Concurrency > c.Batch.MicroBatchSize && c.Batch.MicroBatchSize > 0 {
		errs = append(errs, ValidationError{
			Field:   "batch.concurrency",
			Message: fmt.Sprintf("batch.concurrency (%d) above micro_batch_size (%d) has no effect", c.Batch.Concurrency, c.Batch.MicroBatchSize),
		})
	}

	return errs
}

func (c *Config) validateBackoff() ValidationErrors {
	var errs ValidationErrors

	if c.Backoff.MaxAttempts <= 0 {
		errs = append(errs, ValidationError{
			Field:   "backoff.max_attempts",
			Message: fmt.Sprintf("backoff.max_attempts must be positive, got %d", c.Backoff.MaxAttempts),
		})
	}
	if c.Backoff.BaseMS <= 0 {
		errs = append(errs, ValidationError{
			Field:   "backoff.base_ms",
			Message: fmt.Sprintf("backoff.base_ms must be positive, got %d", c.Backoff.BaseMS),
		})
	}
	if c.Backoff.MaxMS < c.Backoff.BaseMS {
		errs = append(errs, ValidationError{
			Field:   "backoff.max_ms",
			Message: fmt.Sprintf("backoff.max_ms (%d) must be at least base_ms (%d)", c.Backoff.MaxMS, c.Backoff.BaseMS),
		})
	}
	if c.Backoff.Multiplier < 1 {
		errs = append(errs, ValidationError{
			Field:   "backoff.multiplier",
			Message: fmt.Sprintf("backoff.multiplier must be at least 1, got %.2f", c.Backoff.Multiplier),
		})
	}

	return errs
}
