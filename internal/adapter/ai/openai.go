package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/arturoeanton/go-kb-answers/internal/port"
)

// OpenAIConfig configures any OpenAI-compatible API (OpenAI, OpenRouter, vLLM...).
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	EmbedModel string
	ChatModel  string
}

// OpenAIProvider implements port.Embedder and port.Completer on top of langchaingo.
type OpenAIProvider struct {
	llm      *openai.LLM
	embedder *embeddings.EmbedderImpl
}

var (
	_ port.Embedder  = (*OpenAIProvider)(nil)
	_ port.Completer = (*OpenAIProvider)(nil)
)

// NewOpenAIProvider builds the client and its embedder once; both are safe
// for concurrent use.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.APIKey, "Bearer ")),
		openai.WithModel(cfg.ChatModel),
		openai.WithEmbeddingModel(cfg.EmbedModel),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai client: %w", err)
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("openai embedder: %w", err)
	}
	return &OpenAIProvider{llm: llm, embedder: embedder}, nil
}

// Embed generates a vector embedding for the given text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("openai embed batch: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("openai embed batch: got %d vectors for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}

// Complete returns the whole completion of prompt.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt, model string) (string, error) {
	resp, err := p.llm.GenerateContent(ctx, userMessage(prompt), callOptions(model)...)
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai completion: no choices")
	}
	return resp.Choices[0].Content, nil
}

// CompleteStream streams the completion, routing every chunk to sink under
// req.Reference.
func (p *OpenAIProvider) CompleteStream(ctx context.Context, req port.CompletionRequest, sink port.TokenSink) (string, error) {
	var answer strings.Builder
	opts := append(callOptions(req.Model), llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		answer.Write(chunk)
		sink.Route(req.Reference, string(chunk))
		return nil
	}))

	resp, err := p.llm.GenerateContent(ctx, userMessage(req.Prompt), opts...)
	if err != nil {
		return "", fmt.Errorf("openai stream: %w", err)
	}
	if answer.Len() == 0 && len(resp.Choices) > 0 {
		return resp.Choices[0].Content, nil
	}
	return answer.String(), nil
}

func userMessage(prompt string) []llms.MessageContent {
	return []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}
}

func callOptions(model string) []llms.CallOption {
	if model == "" {
		return nil
	}
	return []llms.CallOption{llms.WithModel(model)}
}
