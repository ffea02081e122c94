package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arturoeanton/go-kb-answers/internal/domain"
	"github.com/arturoeanton/go-kb-answers/internal/port"
	"github.com/arturoeanton/go-kb-answers/internal/retrieval"
)

const embedBatchSize = 64

// Resource is an uploaded document to assimilate into a knowledge base.
type Resource struct {
	KnowledgeBaseID string
	ResourceID      string
	Name            string
	Mimetype        string
	Data            []byte
}

// KnowledgeService maintains the chunks of knowledge bases.
type KnowledgeService struct {
	loader   port.DocumentLoader
	splitter port.TextSplitter
	embedder port.Embedder
	store    port.VectorStore
	logger   *slog.Logger
}

// NewKnowledgeService creates a new knowledge service.
func NewKnowledgeService(loader port.DocumentLoader, splitter port.TextSplitter, embedder port.Embedder, store port.VectorStore, logger *slog.Logger) *KnowledgeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &KnowledgeService{
		loader:   loader,
		splitter: splitter,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Assimilate loads, splits and embeds a resource, replacing any chunks it
// already had. It returns the number of chunks stored.
func (s *KnowledgeService) Assimilate(ctx context.Context, res Resource) (int, error) {
	if strings.TrimSpace(res.KnowledgeBaseID) == "" || strings.TrimSpace(res.ResourceID) == "" {
		return 0, fmt.Errorf("%w: knowledge base and resource ids are required", port.ErrInvalidRequest)
	}

	sections, err := s.loader.Load(ctx, res.Name, res.Mimetype, res.Data)
	if err != nil {
		return 0, fmt.Errorf("load resource: %w", err)
	}

	chunks, err := s.split(res, sections)
	if err != nil {
		return 0, err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	for start := 0; start < len(texts); start += embedBatchSize {
		end := min(start+embedBatchSize, len(texts))
		vectors, err := s.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return 0, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(vectors) != end-start {
			return 0, fmt.Errorf("embed chunks %d-%d: got %d vectors", start, end-1, len(vectors))
		}
		for i, v := range vectors {
			chunks[start+i].Vector = v
		}
	}

	if err := s.store.DeleteResource(ctx, res.KnowledgeBaseID, res.ResourceID); err != nil {
		return 0, fmt.Errorf("replace resource: %w", err)
	}
	if err := s.store.Insert(ctx, res.KnowledgeBaseID, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	s.logger.Info("resource assimilated",
		"knowledge_base_id", res.KnowledgeBaseID,
		"resource_id", res.ResourceID,
		"resource_name", res.Name,
		"chunks", len(chunks),
	)
	return len(chunks), nil
}

// split numbers chunks across sections so chunk indices are unique and
// contiguous for the whole resource.
func (s *KnowledgeService) split(res Resource, sections []port.Section) ([]domain.IndexedChunk, error) {
	var chunks []domain.IndexedChunk
	for _, sec := range sections {
		pieces, err := s.splitter.SplitText(sec.Text)
		if err != nil {
			return nil, fmt.Errorf("split resource: %w", err)
		}
		for _, p := range pieces {
			if strings.TrimSpace(p) == "" {
				continue
			}
			chunks = append(chunks, domain.IndexedChunk{
				ResourceChunk: domain.ResourceChunk{
					ResourceID:   res.ResourceID,
					ResourceName: res.Name,
					Text:         p,
					ChunkIndex:   len(chunks),
					Metadata: domain.ChunkMetadata{
						Mimetype:  res.Mimetype,
						PageIndex: sec.PageIndex,
					},
				},
			})
		}
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", port.ErrEmptyResource, res.Name)
	}

	total := len(chunks)
	for i := range chunks {
		chunks[i].Metadata.TotalChunks = total
		chunks[i].Metadata.PercentageIn = float64(chunks[i].ChunkIndex) * 100 / float64(total)
	}
	return chunks, nil
}

// RemoveResource deletes every chunk of a resource.
func (s *KnowledgeService) RemoveResource(ctx context.Context, knowledgeBaseID, resourceID string) error {
	if err := s.store.DeleteResource(ctx, knowledgeBaseID, resourceID); err != nil {
		return fmt.Errorf("remove resource: %w", err)
	}
	s.logger.Info("resource removed", "knowledge_base_id", knowledgeBaseID, "resource_id", resourceID)
	return nil
}

// RemoveKnowledgeBase deletes a knowledge base and all its chunks.
func (s *KnowledgeService) RemoveKnowledgeBase(ctx context.Context, knowledgeBaseID string) error {
	if err := s.store.DropKnowledgeBase(ctx, knowledgeBaseID); err != nil {
		return fmt.Errorf("remove knowledge base: %w", err)
	}
	s.logger.Info("knowledge base removed", "knowledge_base_id", knowledgeBaseID)
	return nil
}

// RetrieveChunks fetches chunks by id and stitches contiguous ones together.
func (s *KnowledgeService) RetrieveChunks(ctx context.Context, knowledgeBaseID string, chunkIDs []string) ([]domain.StitchedPassage, error) {
	if strings.TrimSpace(knowledgeBaseID) == "" {
		return nil, fmt.Errorf("%w: knowledge_base_id is required", port.ErrInvalidRequest)
	}
	chunks, err := s.store.GetChunks(ctx, knowledgeBaseID, chunkIDs)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	return retrieval.Flatten(retrieval.Stitch(chunks)), nil
}
