package store

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"

	"github.com/arturoeanton/go-kb-answers/internal/domain"
	"github.com/arturoeanton/go-kb-answers/internal/port"
)

const (
	metaResourceID   = "resource_id"
	metaResourceName = "resource_name"
	metaPayload      = "payload"
)

var errPrecomputedOnly = errors.New("chromem store only accepts precomputed embeddings")

// ChromemStore is an embedded vector store with one collection per
// knowledge base. An empty path keeps everything in memory.
type ChromemStore struct {
	db *chromem.DB
}

var _ port.VectorStore = (*ChromemStore)(nil)

// NewChromemStore opens (or creates) the chromem database at path.
func NewChromemStore(path string) (*ChromemStore, error) {
	if path == "" {
		return &ChromemStore{db: chromem.NewDB()}, nil
	}
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open chromem db: %w", err)
	}
	return &ChromemStore{db: db}, nil
}

// collectionName maps a knowledge base id to its collection.
func collectionName(knowledgeBaseID string) string {
	return "_" + strings.ReplaceAll(knowledgeBaseID, "-", "_")
}

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errPrecomputedOnly
}

func (s *ChromemStore) collection(knowledgeBaseID string) *chromem.Collection {
	return s.db.GetCollection(collectionName(knowledgeBaseID), noEmbedding)
}

// Insert adds chunks to the knowledge base collection, creating it on first use.
func (s *ChromemStore) Insert(ctx context.Context, knowledgeBaseID string, chunks []domain.IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	col, err := s.db.GetOrCreateCollection(collectionName(knowledgeBaseID), nil, noEmbedding)
	if err != nil {
		return fmt.Errorf("chromem collection: %w", err)
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Vector) == 0 {
			return fmt.Errorf("insert chunk %d: %w", c.ChunkIndex, errPrecomputedOnly)
		}
		payload, err := encodePayload(c.ResourceChunk)
		if err != nil {
			return err
		}
		docs = append(docs, chromem.Document{
			ID:      uuid.NewString(),
			Content: c.Text,
			Metadata: map[string]string{
				metaResourceID:   c.ResourceID,
				metaResourceName: c.ResourceName,
				metaPayload:      payload,
			},
			Embedding: c.Vector,
		})
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("chromem add documents: %w", err)
	}
	return nil
}

// Search queries the knowledge base collection. A missing or empty
// collection yields no results.
func (s *ChromemStore) Search(ctx context.Context, knowledgeBaseID string, queryVector []float32, limit int) ([]domain.ScoredChunk, error) {
	col := s.collection(knowledgeBaseID)
	if col == nil || limit <= 0 {
		return nil, nil
	}
	n := min(limit, col.Count())
	if n == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, queryVector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	scored := make([]domain.ScoredChunk, 0, len(results))
	for _, r := range results {
		chunk, err := toChunk(r.ID, r.Content, r.Metadata)
		if err != nil {
			return nil, err
		}
		scored = append(scored, domain.ScoredChunk{Chunk: chunk, Score: float64(r.Similarity)})
	}
	return scored, nil
}

// GetChunks fetches chunks by id, skipping unknown ids.
func (s *ChromemStore) GetChunks(ctx context.Context, knowledgeBaseID string, ids []string) ([]domain.ResourceChunk, error) {
	col := s.collection(knowledgeBaseID)
	if col == nil {
		return nil, nil
	}

	var chunks []domain.ResourceChunk
	for _, id := range ids {
		doc, err := col.GetByID(ctx, id)
		if err != nil {
			continue
		}
		chunk, err := toChunk(doc.ID, doc.Content, doc.Metadata)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// DeleteResource removes every chunk of a resource.
func (s *ChromemStore) DeleteResource(ctx context.Context, knowledgeBaseID, resourceID string) error {
	col := s.collection(knowledgeBaseID)
	if col == nil {
		return nil
	}
	if err := col.Delete(ctx, map[string]string{metaResourceID: resourceID}, nil); err != nil {
		return fmt.Errorf("chromem delete resource: %w", err)
	}
	return nil
}

// DropKnowledgeBase deletes the knowledge base collection.
func (s *ChromemStore) DropKnowledgeBase(_ context.Context, knowledgeBaseID string) error {
	if err := s.db.DeleteCollection(collectionName(knowledgeBaseID)); err != nil {
		return fmt.Errorf("chromem drop collection: %w", err)
	}
	return nil
}

func toChunk(id, content string, meta map[string]string) (domain.ResourceChunk, error) {
	c := domain.ResourceChunk{
		ID:           id,
		ResourceID:   meta[metaResourceID],
		ResourceName: meta[metaResourceName],
		Text:         content,
	}
	if err := decodePayload(meta[metaPayload], &c); err != nil {
		return domain.ResourceChunk{}, err
	}
	return c, nil
}
