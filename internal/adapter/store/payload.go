package store

import (
	"encoding/json"
	"fmt"

	"github.com/arturoeanton/go-kb-answers/internal/domain"
	"github.com/arturoeanton/go-kb-answers/internal/port"
)

// chunkPayload is the stored form of a chunk's position and citation data.
type chunkPayload struct {
	ChunkNumber      *int    `json:"chunk_number"`
	TotalChunks      int     `json:"total_chunks"`
	PercentageIn     float64 `json:"percentage_in"`
	ResourceMimetype string  `json:"resource_mimetype"`
	PageIndex        *int    `json:"page_index"`
}

func encodePayload(c domain.ResourceChunk) (string, error) {
	idx := c.ChunkIndex
	b, err := json.Marshal(chunkPayload{
		ChunkNumber:      &idx,
		TotalChunks:      c.Metadata.TotalChunks,
		PercentageIn:     c.Metadata.PercentageIn,
		ResourceMimetype: c.Metadata.Mimetype,
		PageIndex:        c.Metadata.PageIndex,
	})
	if err != nil {
		return "", fmt.Errorf("encode chunk payload: %w", err)
	}
	return string(b), nil
}

// decodePayload fills the chunk index and metadata of c from raw.
func decodePayload(raw string, c *domain.ResourceChunk) error {
	var p chunkPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return fmt.Errorf("%w: chunk %s: %v", port.ErrMalformedChunkPayload, c.ID, err)
	}
	if p.ChunkNumber == nil || *p.ChunkNumber < 0 {
		return fmt.Errorf("%w: chunk %s: missing chunk_number", port.ErrMalformedChunkPayload, c.ID)
	}
	c.ChunkIndex = *p.ChunkNumber
	c.Metadata = domain.ChunkMetadata{
		TotalChunks:  p.TotalChunks,
		PercentageIn: p.PercentageIn,
		Mimetype:     p.ResourceMimetype,
		PageIndex:    p.PageIndex,
	}
	return nil
}
