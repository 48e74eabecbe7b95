package llm

import "context"

// Embedder turns text into a fixed-length vector via an external provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Completer runs one instruction + context exchange against a language model
// and returns the raw response text. Parsing and validation stay with the
// caller; the model's output is always treated as untrusted.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
