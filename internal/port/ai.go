package port

import "context"

// Embedder turns text into fixed-dimension vectors.
// Implementations are expensive to construct and are shared for the process lifetime.
type Embedder interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// CompletionRequest describes one streaming completion.
type CompletionRequest struct {
	Prompt string
	Model  string
	// Reference scopes the token stream. Empty means tokens are not routed.
	Reference string
}

// TokenSink receives incrementally generated tokens for a reference.
type TokenSink interface {
	// Route delivers one token. It never blocks the producer for long and never fails.
	Route(reference, token string)

	// StreamError reports a failure of the stream. It logs and terminates the stream; no retry.
	StreamError(reference string, err error)
}

// Completer abstracts the language-model completion API.
type Completer interface {
	// Complete returns the full completion for prompt using model.
	Complete(ctx context.Context, prompt, model string) (string, error)

	// CompleteStream emits tokens to sink as they are generated and returns the final text.
	CompleteStream(ctx context.Context, req CompletionRequest, sink TokenSink) (string, error)
}
