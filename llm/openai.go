package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const (
	defaultChatModel  = "gpt-4o-mini"
	defaultEmbedModel = "text-embedding-3-small"
)

// OpenAIOptions configures the OpenAI-compatible provider. BaseURL may point
// at any compatible gateway; empty fields use the defaults above.
type OpenAIOptions struct {
	APIKey      string
	BaseURL     string
	ChatModel   string
	EmbedModel  string
	Temperature float64
	MaxTokens   int
	// Dimensions, when positive, is requested from the embedding endpoint so
	// query vectors match the catalog's precomputed dimensionality.
	Dimensions int
	Timeout    time.Duration
}

// OpenAI implements Completer and Embedder against the OpenAI API.
type OpenAI struct {
	client      openai.Client
	chatModel   string
	embedModel  string
	temperature float64
	maxTokens   int
	dimensions  int
}

func NewOpenAI(opts OpenAIOptions) *OpenAI {
	ropts := []option.RequestOption{}
	if opts.APIKey != "" {
		ropts = append(ropts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		ropts = append(ropts, option.WithBaseURL(opts.BaseURL))
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ropts = append(ropts, option.WithRequestTimeout(timeout), option.WithMaxRetries(0))

	chatModel := opts.ChatModel
	if chatModel == "" {
		chatModel = defaultChatModel
	}
	embedModel := opts.EmbedModel
	if embedModel == "" {
		embedModel = defaultEmbedModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 800
	}
	return &OpenAI{
		client:      openai.NewClient(ropts...),
		chatModel:   chatModel,
		embedModel:  embedModel,
		temperature: opts.Temperature,
		maxTokens:   maxTokens,
		dimensions:  opts.Dimensions,
	}
}

// Complete sends one system+user exchange and returns the raw response text.
// Retries are owned by the caller's backoff policy, not the SDK.
func (o *OpenAI) Complete(ctx context.Context, system, user string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if system != "" {
		messages = append(messages, openai.SystemMessage(system))
	}
	messages = append(messages, openai.UserMessage(user))

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.chatModel),
		Messages:    messages,
		Temperature: openai.Float(o.temperature),
		MaxTokens:   openai.Int(int64(o.maxTokens)),
	})
	if err != nil {
		return "", classify("llm.complete", err)
	}
	if len(resp.Choices) == 0 {
		return "", InvalidResponse("llm.complete", errors.New("no choices in response"))
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for one text.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float64, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(o.embedModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
	}
	if o.dimensions > 0 {
		params.Dimensions = openai.Int(int64(o.dimensions))
	}
	resp, err := o.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, classify("llm.embed", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, InvalidResponse("llm.embed", errors.New("no embedding in response"))
	}
	return resp.Data[0].Embedding, nil
}

// classify maps SDK and transport errors onto the provider failure taxonomy.
func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(op, err)
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		switch {
		case apierr.StatusCode == http.StatusTooManyRequests:
			return RateLimited(op, err)
		case apierr.StatusCode == http.StatusRequestTimeout || apierr.StatusCode == http.StatusGatewayTimeout:
			return Timeout(op, err)
		default:
			return InvalidResponse(op, err)
		}
	}
	return Timeout(op, err)
}
