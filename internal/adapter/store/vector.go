package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/arturoeanton/go-kb-answers/internal/domain"
	"github.com/arturoeanton/go-kb-answers/internal/port"
)

// VectorStore handles pgvector-specific operations for resource chunks.
type VectorStore struct {
	store     *PostgresStore
	dimension int
}

var _ port.VectorStore = (*VectorStore)(nil)

// NewVectorStore creates a vector store backed by the given Postgres store.
func NewVectorStore(store *PostgresStore, dimension int) *VectorStore {
	return &VectorStore{store: store, dimension: dimension}
}

// Insert persists chunks in one transaction.
func (v *VectorStore) Insert(ctx context.Context, knowledgeBaseID string, chunks []domain.IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO resource_chunks (id, knowledge_base_id, resource_id, resource_name, chunk_index, content, payload, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::vector)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if v.dimension > 0 && len(c.Vector) != v.dimension {
			return fmt.Errorf("insert chunk %d: vector has %d dimensions, want %d", c.ChunkIndex, len(c.Vector), v.dimension)
		}
		payload, err := encodePayload(c.ResourceChunk)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), knowledgeBaseID, c.ResourceID, c.ResourceName, c.ChunkIndex, c.Text, payload, vectorToString(c.Vector),
		); err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	return tx.Commit()
}

// Search performs a cosine similarity search within one knowledge base.
func (v *VectorStore) Search(ctx context.Context, knowledgeBaseID string, queryVector []float32, limit int) ([]domain.ScoredChunk, error) {
	vectorStr := vectorToString(queryVector)
	query := `SELECT c.id, c.resource_id, c.resource_name, c.content, c.payload,
	                 1 - (c.embedding <=> $1::vector) AS similarity
	          FROM resource_chunks c
	          WHERE c.knowledge_base_id = $2
	          ORDER BY c.embedding <=> $1::vector
	          LIMIT $3`

	rows, err := v.store.db.QueryContext(ctx, query, vectorStr, knowledgeBaseID, limit)
	if err != nil {
		return nil, fmt.Errorf("search similar: %w", err)
	}
	defer rows.Close()

	var results []domain.ScoredChunk
	for rows.Next() {
		var (
			sc      domain.ScoredChunk
			payload string
		)
		if err := rows.Scan(
			&sc.Chunk.ID, &sc.Chunk.ResourceID, &sc.Chunk.ResourceName, &sc.Chunk.Text, &payload, &sc.Score,
		); err != nil {
			return nil, fmt.Errorf("scan similar: %w", err)
		}
		if err := decodePayload(payload, &sc.Chunk); err != nil {
			return nil, err
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

// GetChunks fetches chunks by id, skipping unknown ids.
func (v *VectorStore) GetChunks(ctx context.Context, knowledgeBaseID string, ids []string) ([]domain.ResourceChunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT c.id, c.resource_id, c.resource_name, c.content, c.payload
	          FROM resource_chunks c
	          WHERE c.knowledge_base_id = $1 AND c.id::text = ANY($2)`

	rows, err := v.store.db.QueryContext(ctx, query, knowledgeBaseID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.ResourceChunk
	for rows.Next() {
		var (
			c       domain.ResourceChunk
			payload string
		)
		if err := rows.Scan(&c.ID, &c.ResourceID, &c.ResourceName, &c.Text, &payload); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if err := decodePayload(payload, &c); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteResource deletes all chunks of a resource.
func (v *VectorStore) DeleteResource(ctx context.Context, knowledgeBaseID, resourceID string) error {
	query := `DELETE FROM resource_chunks WHERE knowledge_base_id = $1 AND resource_id = $2`
	if _, err := v.store.db.ExecContext(ctx, query, knowledgeBaseID, resourceID); err != nil {
		return fmt.Errorf("delete resource: %w", err)
	}
	return nil
}

// DropKnowledgeBase deletes every chunk of a knowledge base.
func (v *VectorStore) DropKnowledgeBase(ctx context.Context, knowledgeBaseID string) error {
	query := `DELETE FROM resource_chunks WHERE knowledge_base_id = $1`
	if _, err := v.store.db.ExecContext(ctx, query, knowledgeBaseID); err != nil {
		return fmt.Errorf("drop knowledge base: %w", err)
	}
	return nil
}

// vectorToString converts a float32 slice to pgvector string format: [0.1,0.2,0.3].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = fmt.Sprintf("%g", val)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
