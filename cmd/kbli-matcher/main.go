package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/alwanrahmanas/kbli2020-matcher/cache"
	"github.com/alwanrahmanas/kbli2020-matcher/catalog"
	"github.com/alwanrahmanas/kbli2020-matcher/common/backoff"
	"github.com/alwanrahmanas/kbli2020-matcher/common/logger"
	"github.com/alwanrahmanas/kbli2020-matcher/config"
	"github.com/alwanrahmanas/kbli2020-matcher/intent"
	"github.com/alwanrahmanas/kbli2020-matcher/llm"
	"github.com/alwanrahmanas/kbli2020-matcher/orchestrator"
	"github.com/alwanrahmanas/kbli2020-matcher/post"
	"github.com/alwanrahmanas/kbli2020-matcher/retriever"
)

var (
	cfgPath     string
	catalogPath string
)

func main() {
	// Missing .env is fine; the config file and environment still apply.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "kbli-matcher",
		Short:        "Hybrid KBLI 2020 business-activity classifier",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&catalogPath, "catalog", "", "path to catalog JSON (overrides config)")

	root.AddCommand(newClassifyCmd(), newBatchCmd(), newLookupCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildPipeline loads configuration and the catalog, then wires the full
// orchestrator. Catalog integrity errors are fatal here, before any query
// is accepted.
func buildPipeline() (*orchestrator.Orchestrator, *config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))

	path := catalogPath
	if path == "" {
		path = cfg.Catalog.Path
	}
	if path == "" {
		return nil, nil, fmt.Errorf("no catalog path: set --catalog or catalog.path in the config file")
	}
	idx, err := catalog.LoadFile(path)
	if err != nil {
		return nil, nil, err
	}

	policy := backoff.Policy{
		MaxAttempts: cfg.Backoff.MaxAttempts,
		Base:        time.Duration(cfg.Backoff.BaseMS) * time.Millisecond,
		Max:         time.Duration(cfg.Backoff.MaxMS) * time.Millisecond,
		Multiplier:  cfg.Backoff.Multiplier,
		Retryable:   llm.IsRetryable,
	}

	chat := llm.NewOpenAI(llm.OpenAIOptions{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		ChatModel:   cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLMTimeout(),
	})
	dims := cfg.Embedding.Dimensions
	if dims == 0 {
		dims = idx.Dimension()
	}
	embed := llm.NewOpenAI(llm.OpenAIOptions{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		EmbedModel: cfg.Embedding.Model,
		Dimensions: dims,
		Timeout:    cfg.LLMTimeout(),
	})

	lex := retriever.NewLexical(idx)
	vec := retriever.NewVector(idx, embed, cache.NewEmbeddings(cfg.Embedding.CacheSize, 0))
	vec.Backoff = policy

	splitter := intent.NewSplitter(chat)
	splitter.Backoff = policy
	adj := post.NewAdjudicator(chat)
	adj.Backoff = policy

	orch := orchestrator.New(idx, lex, vec, splitter, adj, orchestrator.Options{
		TopK:        cfg.Retrieval.TopK,
		FinalK:      cfg.Retrieval.FinalK,
		RRFK:        cfg.Retrieval.RRFK,
		MicroBatch:  cfg.Batch.MicroBatchSize,
		Concurrency: cfg.Batch.Concurrency,
	})
	return orch, cfg, nil
}
