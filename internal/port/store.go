package port

import (
	"context"

	"github.com/arturoeanton/go-kb-answers/internal/domain"
)

// VectorStore is the similarity search boundary. Each knowledge base is an
// isolated collection of resource chunks.
type VectorStore interface {
	// Search returns up to limit chunks ordered by descending similarity.
	Search(ctx context.Context, knowledgeBaseID string, queryVector []float32, limit int) ([]domain.ScoredChunk, error)

	// Insert stores chunks with their vectors. Chunk ids are assigned by the store.
	Insert(ctx context.Context, knowledgeBaseID string, chunks []domain.IndexedChunk) error

	// GetChunks fetches chunks by id. Unknown ids are skipped.
	GetChunks(ctx context.Context, knowledgeBaseID string, ids []string) ([]domain.ResourceChunk, error)

	// DeleteResource removes every chunk of a resource.
	DeleteResource(ctx context.Context, knowledgeBaseID, resourceID string) error

	// DropKnowledgeBase removes the whole knowledge base.
	DropKnowledgeBase(ctx context.Context, knowledgeBaseID string) error
}
