package service

import (
	"context"
	"strings"
	"sync"

	"github.com/arturoeanton/go-kb-answers/internal/domain"
	"github.com/arturoeanton/go-kb-answers/internal/port"
)

type fakeEmbedder struct {
	mu      sync.Mutex
	texts   []string
	batches [][]string
	err     error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, texts)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

type fakeCompleter struct {
	reply       string
	completeErr error
	tokens      []string
	streamErr   error

	prompts        []string
	models         []string
	streamRequests []port.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, prompt, model string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.models = append(f.models, model)
	return f.reply, f.completeErr
}

func (f *fakeCompleter) CompleteStream(_ context.Context, req port.CompletionRequest, sink port.TokenSink) (string, error) {
	f.streamRequests = append(f.streamRequests, req)
	for _, tok := range f.tokens {
		sink.Route(req.Reference, tok)
	}
	if f.streamErr != nil {
		return "", f.streamErr
	}
	return strings.Join(f.tokens, ""), nil
}

type fakeStore struct {
	results   []domain.ScoredChunk
	searchErr error
	chunks    map[string]domain.ResourceChunk

	limits   []int
	calls    []string
	inserted []domain.IndexedChunk
}

func (f *fakeStore) Search(_ context.Context, kb string, _ []float32, limit int) ([]domain.ScoredChunk, error) {
	f.calls = append(f.calls, "search:"+kb)
	f.limits = append(f.limits, limit)
	return f.results, f.searchErr
}

func (f *fakeStore) Insert(_ context.Context, kb string, chunks []domain.IndexedChunk) error {
	f.calls = append(f.calls, "insert:"+kb)
	f.inserted = append(f.inserted, chunks...)
	return nil
}

func (f *fakeStore) GetChunks(_ context.Context, _ string, ids []string) ([]domain.ResourceChunk, error) {
	var out []domain.ResourceChunk
	for _, id := range ids {
		if c, ok := f.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteResource(_ context.Context, kb, resourceID string) error {
	f.calls = append(f.calls, "delete:"+kb+"/"+resourceID)
	return nil
}

func (f *fakeStore) DropKnowledgeBase(_ context.Context, kb string) error {
	f.calls = append(f.calls, "drop:"+kb)
	return nil
}

type fakeStream struct {
	mu        sync.Mutex
	attachErr error
	attached  []string
	routed    map[string][]string
	finished  []string
	failed    map[string]error
}

func newFakeStream() *fakeStream {
	return &fakeStream{routed: map[string][]string{}, failed: map[string]error{}}
}

func (f *fakeStream) Attach(reference string, _ context.CancelFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attached = append(f.attached, reference)
	return nil
}

func (f *fakeStream) Route(reference, token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routed[reference] = append(f.routed[reference], token)
}

func (f *fakeStream) StreamError(reference string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[reference] = err
}

func (f *fakeStream) Finish(reference string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, reference)
}

type fakeLoader struct {
	sections []port.Section
	err      error
}

func (f *fakeLoader) Load(context.Context, string, string, []byte) ([]port.Section, error) {
	return f.sections, f.err
}

// pipeSplitter splits on "|".
type pipeSplitter struct{}

func (pipeSplitter) SplitText(text string) ([]string, error) {
	return strings.Split(text, "|"), nil
}

func scored(id, resource string, index int, text string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.ResourceChunk{
			ID:           id,
			ResourceID:   resource,
			ResourceName: resource + ".pdf",
			Text:         text,
			ChunkIndex:   index,
			Metadata:     domain.ChunkMetadata{TotalChunks: 10, PercentageIn: float64(index * 10), Mimetype: "application/pdf"},
		},
		Score: score,
	}
}
