package domain

// ChunkMetadata is carried unchanged from ingestion to citation.
type ChunkMetadata struct {
	TotalChunks  int     `json:"total_chunks"`
	PercentageIn float64 `json:"percentage_in"`
	Mimetype     string  `json:"resource_mimetype"`
	PageIndex    *int    `json:"page_index"`
}

// ResourceChunk is a single indexed fragment of a resource.
// ID is assigned by the vector store, never by the answer pipeline.
type ResourceChunk struct {
	ID           string        `json:"id"`
	ResourceID   string        `json:"resource_id"`
	ResourceName string        `json:"resource_name"`
	Text         string        `json:"data"`
	ChunkIndex   int           `json:"chunk_number"`
	Metadata     ChunkMetadata `json:"payload"`
}

// ScoredChunk is returned by similarity search. Higher scores are more relevant.
type ScoredChunk struct {
	Chunk ResourceChunk `json:"chunk"`
	Score float64       `json:"score"`
}

// IndexedChunk is a chunk ready to be written to a vector store.
type IndexedChunk struct {
	ResourceChunk
	Vector []float32 `json:"-"`
}

// StitchedPassage is one maximal run of contiguous chunks of a resource,
// merged with chunk-boundary overlap removed. Metadata is the first chunk's.
type StitchedPassage struct {
	ResourceID   string        `json:"resource_id"`
	ResourceName string        `json:"resource_name"`
	FirstIndex   int           `json:"first_chunk_number"`
	LastIndex    int           `json:"last_chunk_number"`
	ChunkIDs     []string      `json:"chunk_ids"`
	Text         string        `json:"data"`
	Metadata     ChunkMetadata `json:"payload"`
}

// ResourcePassages groups the passages of one resource in reading order.
type ResourcePassages struct {
	ResourceID   string            `json:"resource_id"`
	ResourceName string            `json:"resource_name"`
	Passages     []StitchedPassage `json:"passages"`
}
