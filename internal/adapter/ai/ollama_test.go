package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/go-kb-answers/internal/port"
)

func portRequest(prompt, model, reference string) port.CompletionRequest {
	return port.CompletionRequest{Prompt: prompt, Model: model, Reference: reference}
}

type recordingSink struct {
	mu     sync.Mutex
	tokens map[string][]string
	errs   map[string]error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{tokens: map[string][]string{}, errs: map[string]error{}}
}

func (s *recordingSink) Route(reference, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[reference] = append(s.tokens[reference], token)
}

func (s *recordingSink) StreamError(reference string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[reference] = err
}

func TestOllama_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "bge-m3", body["model"])
		assert.Equal(t, "hello", body["input"])

		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{0.1, 0.2, 0.3}}})
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaEndpointConfig{BaseURL: server.URL, Model: "bge-m3", Token: "secret"}, OllamaEndpointConfig{})
	vec, err := p.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestOllama_EmbedBatchCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{1}}})
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaEndpointConfig{BaseURL: server.URL}, OllamaEndpointConfig{})
	_, err := p.EmbedBatch(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestOllama_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var body ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "reformulator", body.Model)
		assert.False(t, body.Stream)
		require.Len(t, body.Messages, 1)
		assert.Equal(t, "rewrite this", body.Messages[0].Content)

		json.NewEncoder(w).Encode(map[string]any{
			"message": map[string]string{"role": "assistant", "content": `{"search_query": null}`},
			"done":    true,
		})
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaEndpointConfig{}, OllamaEndpointConfig{BaseURL: server.URL, Model: "default"})
	out, err := p.Complete(context.Background(), "rewrite this", "reformulator")
	require.NoError(t, err)
	assert.Equal(t, `{"search_query": null}`, out)
}

func TestOllama_CompleteStreamRoutesTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.True(t, body.Stream)
		assert.Equal(t, "default", body.Model)

		w.Write([]byte(`{"message":{"role":"assistant","content":"The"},"done":false}` + "\n"))
		w.Write([]byte(`{"message":{"role":"assistant","content":" answer"},"done":false}` + "\n"))
		w.Write([]byte(`{"message":{"role":"assistant","content":""},"done":true}` + "\n"))
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaEndpointConfig{}, OllamaEndpointConfig{BaseURL: server.URL, Model: "default"})
	sink := newRecordingSink()
	out, err := p.CompleteStream(context.Background(), portRequest("q", "", "ref-9"), sink)
	require.NoError(t, err)
	assert.Equal(t, "The answer", out)
	assert.Equal(t, []string{"The", " answer"}, sink.tokens["ref-9"])
}

func TestOllama_CompleteStreamTruncated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"content":"partial"},"done":false}` + "\n"))
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaEndpointConfig{}, OllamaEndpointConfig{BaseURL: server.URL})
	out, err := p.CompleteStream(context.Background(), portRequest("q", "m", "ref"), newRecordingSink())
	assert.Error(t, err)
	assert.Empty(t, out)
}

func TestOllama_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("model not found"))
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaEndpointConfig{BaseURL: server.URL}, OllamaEndpointConfig{BaseURL: server.URL})
	_, err := p.Complete(context.Background(), "q", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")

	_, err = p.CompleteStream(context.Background(), portRequest("q", "m", "ref"), newRecordingSink())
	assert.Error(t, err)
}
