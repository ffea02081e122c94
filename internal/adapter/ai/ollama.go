package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/arturoeanton/go-kb-answers/internal/port"
)

// OllamaEndpointConfig holds the configuration for a single Ollama endpoint.
type OllamaEndpointConfig struct {
	BaseURL string // e.g. http://localhost:11434 or https://api.ollama.com
	Model   string // e.g. bge-m3, qwen3
	Token   string // Bearer token for Ollama Cloud (empty = no auth)
}

// OllamaProvider implements port.Embedder and port.Completer using the Ollama REST API.
// Embed and chat may live on different endpoints.
type OllamaProvider struct {
	embed      OllamaEndpointConfig
	chat       OllamaEndpointConfig
	httpClient *http.Client
}

var (
	_ port.Embedder  = (*OllamaProvider)(nil)
	_ port.Completer = (*OllamaProvider)(nil)
)

// NewOllamaProvider creates a new Ollama-backed AI provider with separate embed/chat configs.
func NewOllamaProvider(embed, chat OllamaEndpointConfig) *OllamaProvider {
	return &OllamaProvider{
		embed:      embed,
		chat:       chat,
		httpClient: &http.Client{},
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatChunk struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

// Embed generates a vector embedding for the given text.
func (o *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := o.embedInput(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(vecs) == 0 {
		return nil, errors.New("ollama embed: empty response")
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one call.
func (o *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vecs, err := o.embedInput(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ollama embed batch: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("ollama embed batch: got %d vectors for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}

func (o *OllamaProvider) embedInput(ctx context.Context, input any) ([][]float32, error) {
	payload := map[string]any{
		"model": o.embed.Model,
		"input": input,
	}

	body, err := o.post(ctx, o.embed, "/api/embed", payload)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return resp.Embeddings, nil
}

// Complete returns the whole completion of prompt. An empty model uses the
// configured chat model.
func (o *OllamaProvider) Complete(ctx context.Context, prompt, model string) (string, error) {
	payload := ollamaChatRequest{
		Model:    o.model(model),
		Messages: []ollamaMessage{{Role: "user", Content: prompt}},
	}

	body, err := o.post(ctx, o.chat, "/api/chat", payload)
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}

	var resp ollamaChatChunk
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("ollama chat decode: %w", err)
	}
	return resp.Message.Content, nil
}

// CompleteStream streams the completion, routing every token to sink under
// req.Reference, and returns the concatenated text.
func (o *OllamaProvider) CompleteStream(ctx context.Context, req port.CompletionRequest, sink port.TokenSink) (string, error) {
	payload := ollamaChatRequest{
		Model:    o.model(req.Model),
		Messages: []ollamaMessage{{Role: "user", Content: req.Prompt}},
		Stream:   true,
	}

	resp, err := o.do(ctx, o.chat, "/api/chat", payload)
	if err != nil {
		return "", fmt.Errorf("ollama stream: %w", err)
	}
	defer resp.Body.Close()

	var answer strings.Builder
	decoder := json.NewDecoder(resp.Body)
	for decoder.More() {
		var chunk ollamaChatChunk
		if err := decoder.Decode(&chunk); err != nil {
			return "", fmt.Errorf("ollama stream decode: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("ollama stream: %s", chunk.Error)
		}
		if chunk.Message.Content != "" {
			answer.WriteString(chunk.Message.Content)
			sink.Route(req.Reference, chunk.Message.Content)
		}
		if chunk.Done {
			return answer.String(), nil
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "", errors.New("ollama stream: ended before done")
}

func (o *OllamaProvider) model(m string) string {
	if m != "" {
		return m
	}
	return o.chat.Model
}

// post is a helper for POST requests to an Ollama endpoint (with optional bearer token).
func (o *OllamaProvider) post(ctx context.Context, cfg OllamaEndpointConfig, path string, payload any) ([]byte, error) {
	resp, err := o.do(ctx, cfg, path, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// do sends the request and returns the response when it is 200 OK.
func (o *OllamaProvider) do(ctx context.Context, cfg OllamaEndpointConfig, path string, payload any) (*http.Response, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+path, bytes.NewReader(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(body))
	}
	return resp, nil
}
